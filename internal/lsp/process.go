package lsp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// Process is a running analysis server connected over stdio.
type Process struct {
	cmd  *exec.Cmd
	Conn *Conn
}

type stdio struct {
	io.Reader
	io.WriteCloser
	stdout io.Closer
}

func (s stdio) Close() error {
	werr := s.WriteCloser.Close()
	rerr := s.stdout.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Start launches command with args and connects to its stdin/stdout. The
// server's stderr is passed through to ours.
func Start(ctx context.Context, command string, args ...string) (*Process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	log.WithFields(log.Fields{
		"command": command,
		"pid":     cmd.Process.Pid,
	}).Info("language server started")
	return &Process{
		cmd:  cmd,
		Conn: NewConn(stdio{Reader: stdout, WriteCloser: stdin, stdout: stdout}),
	}, nil
}

// Wait closes the connection and waits for the process to exit.
func (p *Process) Wait() error {
	_ = p.Conn.Close()
	return p.cmd.Wait()
}
