package main

import (
	"context"
	"fqlrun/internal/backends"
	"fqlrun/internal/config"
	"fqlrun/internal/flow"
	"fqlrun/internal/lsp"
	"fqlrun/internal/ports"
	"fqlrun/internal/pub"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	log "github.com/sirupsen/logrus"
)

const (
	LSPCommandKey  = "FQL_LSP_COMMAND"
	SNSTopicKey    = "SNS_TOPIC_ARN"
	SNSEndpointKey = "SNS_ENDPOINT"
)

// app is the wired set of components shared by every command.
type app struct {
	settings backends.Settings
	store    *config.Store
	orch     *flow.Orchestrator
	notifier ports.UserNotifier

	lspProc *lsp.Process
	bridge  *lsp.Bridge
}

type appOptions struct {
	out      ports.Renderer
	notifier ports.UserNotifier

	// collaborators starts the language server and the SNS broadcaster.
	collaborators bool
	// lspOut is cleared by the language server after each configuration
	// reply. Nil leaves output alone.
	lspOut ports.Renderer
}

// cliOptions is used by one-shot commands writing to a terminal.
func cliOptions(out ports.Renderer, notifier ports.UserNotifier, collaborators bool) appOptions {
	return appOptions{out: out, notifier: notifier, collaborators: collaborators, lspOut: out}
}

// serveOptions keeps the language server away from the shared query buffer:
// a configuration change must not erase the output of a query being served.
func serveOptions(out ports.Renderer, notifier ports.UserNotifier) appOptions {
	return appOptions{out: out, notifier: notifier, collaborators: true}
}

// newApp wires settings, configuration, collaborators and the orchestrator.
// Subscribers are registered in the order they must observe a change: the
// orchestrator first so a query started after a change already uses the new
// client.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	out, notifier := opts.out, opts.notifier
	settings, err := backends.SettingsBackendFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	store := config.New(settings, notifier)
	if err := store.Initialize(ctx); err != nil {
		_ = settings.Close()
		return nil, err
	}
	a := &app{settings: settings, store: store, notifier: notifier}

	var servers lsp.Multi
	if opts.collaborators {
		if cmdline := strings.Fields(os.Getenv(LSPCommandKey)); len(cmdline) > 0 {
			if err := a.startLanguageServer(ctx, cmdline, opts.lspOut); err != nil {
				log.WithError(err).Warn("language server unavailable")
			} else {
				servers = append(servers, a.bridge)
			}
		}
		if topic := os.Getenv(SNSTopicKey); topic != "" {
			b, err := newBroadcaster(ctx, topic)
			if err != nil {
				log.WithError(err).Warn("sns publisher unavailable")
			} else {
				servers = append(servers, b)
			}
		}
	}

	a.orch, err = flow.New(store.Current(), servers, out, notifier)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	store.Subscribe(a.orch)
	if len(servers) > 0 {
		store.Subscribe(servers)
		if err := servers.SetConfig(ctx, store.Current()); err != nil {
			notifier.ConfigurationError(err.Error())
		}
	}
	return a, nil
}

func (a *app) startLanguageServer(ctx context.Context, cmdline []string, out ports.Renderer) error {
	proc, err := lsp.Start(ctx, cmdline[0], cmdline[1:]...)
	if err != nil {
		return err
	}
	bridge := lsp.NewBridge(proc.Conn, out)
	wd, _ := os.Getwd()
	if err := bridge.Initialize(ctx, "file://"+filepath.ToSlash(wd)); err != nil {
		_ = proc.Wait()
		return err
	}
	a.lspProc, a.bridge = proc, bridge
	return nil
}

func newBroadcaster(ctx context.Context, topic string) (*pub.Broadcaster, error) {
	var snsEndpoint *string
	if se := os.Getenv(SNSEndpointKey); se != "" {
		snsEndpoint = aws.String(se)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			// local testing only
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	})
	return pub.NewBroadcaster(pub.NewSNS(snsClient), topic), nil
}

func (a *app) Close(ctx context.Context) {
	if a.bridge != nil {
		if err := a.bridge.Shutdown(ctx); err != nil {
			log.WithError(err).Debug("language server shutdown")
		}
	}
	if a.lspProc != nil {
		_ = a.lspProc.Wait()
	}
	if err := a.settings.Close(); err != nil {
		log.WithError(err).Debug("settings close")
	}
}
