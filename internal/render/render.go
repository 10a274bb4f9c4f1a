// Package render holds the output surfaces, user notifiers and document
// sources used by the CLI and the local HTTP server.
package render

import (
	"fmt"
	"fqlrun/internal/types"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Buffer is an in-memory Renderer. It is safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	shown bool
}

func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
}

func (b *Buffer) AppendLine(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

func (b *Buffer) Show(bool) {
	b.mu.Lock()
	b.shown = true
	b.mu.Unlock()
}

func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

func (b *Buffer) Shown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown
}

func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}

// Writer renders straight to an io.Writer such as stdout. Clear and Show are
// no-ops since a stream cannot be rewound.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (r *Writer) Clear() {}

func (r *Writer) Show(bool) {}

func (r *Writer) AppendLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		log.WithError(err).Error("failed to write output")
	}
}

var configureHint = types.SecretKey + " and " + types.EndpointKey

// Notifier reports user-facing messages through the log and, when set, to a
// writer such as stderr.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNotifier(w io.Writer) *Notifier { return &Notifier{w: w} }

func (n *Notifier) ConfigurationError(msg string) {
	log.WithField("kind", "configuration").Error(msg)
	n.write("configuration error: " + msg + " (set " + configureHint + ")")
}

func (n *Notifier) Warning(msg string) {
	log.Warn(msg)
	n.write("warning: " + msg)
}

func (n *Notifier) write(line string) {
	if n == nil || n.w == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.w, line)
}
