// Command mockflow serves the mock endpoints over HTTP so a web UI dev server
// or an end-to-end suite can point at them instead of the real backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/drblury/mockflow"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	configPath  string
	addr        string
	fixtures    stringList
	onUnhandled string
	upstream    string
	admin       bool
	metrics     bool
	logLevel    string
}

func parseFlags(args []string) (options, map[string]bool, error) {
	var opts options
	fs := flag.NewFlagSet("mockflow", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.addr, "addr", mockflow.DefaultConfig().ListenAddress, "listen address")
	fs.Var(&opts.fixtures, "fixtures", "YAML fixture file, repeatable")
	fs.StringVar(&opts.onUnhandled, "on-unhandled", mockflow.OnUnhandledBypass, "unhandled request policy: bypass, warn or error")
	fs.StringVar(&opts.upstream, "upstream", "", "upstream URL receiving unhandled requests")
	fs.BoolVar(&opts.admin, "admin", false, "enable the admin API")
	fs.BoolVar(&opts.metrics, "metrics", false, "expose Prometheus metrics")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// buildConfig loads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func buildConfig(opts options, set map[string]bool) (*mockflow.Config, error) {
	cfg := mockflow.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := mockflow.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if set["addr"] {
		cfg.ListenAddress = opts.addr
	}
	if len(opts.fixtures) > 0 {
		cfg.FixtureFiles = append(cfg.FixtureFiles, opts.fixtures...)
	}
	if set["on-unhandled"] {
		cfg.OnUnhandledRequest = strings.ToLower(opts.onUnhandled)
	}
	if set["upstream"] {
		cfg.UpstreamURL = opts.upstream
	}
	if set["admin"] {
		cfg.AdminEnabled = opts.admin
	}
	if set["metrics"] {
		cfg.MetricsEnabled = opts.metrics
	}

	if err := mockflow.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func run(ctx context.Context, args []string) error {
	opts, set, err := parseFlags(args)
	if err != nil {
		return err
	}

	level, err := loggingpkg.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := mockflow.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := buildConfig(opts, set)
	if err != nil {
		return err
	}

	svc, err := mockflow.TryNewService(cfg, logger, mockflow.ServiceDependencies{
		Hooks: mockflow.LoggingHooks(logger),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close mock service", err, nil)
		}
	}()

	return svc.Start(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mockflow:", err)
		stop()
		os.Exit(1)
	}
}
