package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/c360/latticectl/config"
	"github.com/c360/latticectl/ctl"
	"github.com/c360/latticectl/envelope"
	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/metric"
	"github.com/c360/latticectl/natsclient"
	"github.com/c360/latticectl/pkg/retry"
)

const closeTimeout = 5 * time.Second

// connectRetry is replaced in tests to keep failures fast.
var connectRetry = errors.ConnectRetryConfig

// usageError marks bad command lines; they exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// globalFlags are accepted before the command name.
type globalFlags struct {
	configs        []string
	natsURL        string
	lattice        string
	timeout        time.Duration
	auctionTimeout time.Duration
	logLevel       string
	logFormat      string
	showVersion    bool
	showHelp       bool
}

func parseGlobalFlags(args []string, stderr io.Writer) (*globalFlags, *pflag.FlagSet, error) {
	g := &globalFlags{}
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)

	fs.StringSliceVarP(&g.configs, "config", "c", envList("LATTICECTL_CONFIG"),
		"Config file layers, later ones win (env: LATTICECTL_CONFIG)")
	fs.StringVarP(&g.natsURL, "nats-url", "s", "", "NATS server URL (env: LATTICECTL_NATS_URL)")
	fs.StringVarP(&g.lattice, "lattice", "l", "", "Lattice id (env: LATTICECTL_LATTICE)")
	fs.DurationVar(&g.timeout, "timeout", 0, "Request timeout (env: LATTICECTL_TIMEOUT)")
	fs.DurationVar(&g.auctionTimeout, "auction-timeout", 0,
		"Auction and host discovery window (env: LATTICECTL_AUCTION_TIMEOUT)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LATTICECTL_LOG_LEVEL)")
	fs.StringVar(&g.logFormat, "log-format", "", "Log format: json, text (env: LATTICECTL_LOG_FORMAT)")
	fs.BoolVarP(&g.showVersion, "version", "v", false, "Show version information")
	fs.BoolVarP(&g.showHelp, "help", "h", false, "Show help information")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			g.showHelp = true
			return g, fs, nil
		}
		return nil, fs, usageError{err: err}
	}
	return g, fs, nil
}

// apply copies explicitly set flags onto cfg.
func (g *globalFlags) apply(fs *pflag.FlagSet) func(*config.Config) {
	return func(cfg *config.Config) {
		if fs.Changed("nats-url") {
			cfg.NATS.URL = g.natsURL
		}
		if fs.Changed("lattice") {
			cfg.Ctl.Lattice = g.lattice
		}
		if fs.Changed("timeout") {
			cfg.Ctl.Timeout = config.Duration(g.timeout)
		}
		if fs.Changed("auction-timeout") {
			cfg.Ctl.AuctionTimeout = config.Duration(g.auctionTimeout)
		}
		if fs.Changed("log-level") {
			cfg.Log.Level = g.logLevel
		}
		if fs.Changed("log-format") {
			cfg.Log.Format = g.logFormat
		}
	}
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// app is the state shared by every command.
type app struct {
	manager  *config.Manager
	cfg      *config.Config
	client   *ctl.Client
	logger   *slog.Logger
	level    *slog.LevelVar
	registry *metric.MetricsRegistry
	out      io.Writer
	errOut   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	g, fs, err := parseGlobalFlags(args, stderr)
	if err != nil {
		return 2
	}
	if g.showVersion {
		fmt.Fprintf(stdout, "%s %s (built %s)\n", appName, Version, BuildTime)
		return 0
	}
	rest := fs.Args()
	if g.showHelp || len(rest) == 0 {
		printUsage(stderr, fs)
		if g.showHelp {
			return 0
		}
		return 2
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr, fs)
		return 2
	}

	loader := config.NewLoader()
	for _, path := range g.configs {
		if path = strings.TrimSpace(path); path != "" {
			loader.AddLayer(path)
		}
	}
	loader.AddOverride(g.apply(fs))
	loader.EnableValidation(true)

	manager, err := config.NewManager(loader, slog.New(slog.NewTextHandler(stderr, nil)))
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	defer manager.Stop()

	cfg := manager.Config().Get()
	logger, level := setupLogger(cfg.Log, stderr)

	a := &app{
		manager:  manager,
		cfg:      cfg,
		logger:   logger,
		level:    level,
		registry: metric.NewMetricsRegistry(),
		out:      stdout,
		errOut:   stderr,
	}

	if !cmd.offline {
		nc, err := connect(ctx, cfg, logger, a.registry)
		if err != nil {
			logger.Error("Failed to connect to NATS", "url", cfg.NATS.URL, "error", err)
			return 1
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := nc.Close(closeCtx); err != nil {
				logger.Warn("NATS close failed", "error", err)
			}
		}()

		a.client, err = ctl.New(nc, cfg.CtlOptions(logger, a.registry)...)
		if err != nil {
			logger.Error("Failed to create control client", "error", err)
			return 1
		}
	}

	if err := cmd.run(ctx, a, a.flagSet(cmd), rest[1:]); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return 0
		}
		var ue usageError
		if stderrors.As(err, &ue) {
			fmt.Fprintf(stderr, "%s: %v\n\nUsage: %s %s\n", cmd.name, err, appName, cmd.usage)
			return 2
		}
		a.logger.Debug("command failed", "command", cmd.name, "class", errors.Classify(err).String(), "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

// connect dials NATS, retrying transient failures with the quick backoff preset.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *metric.MetricsRegistry) (*natsclient.Client, error) {
	opts := cfg.NATSOptions(logger, registry)
	if cfg.NATS.Name == "" {
		opts = append(opts, natsclient.WithName(appName+"-"+uuid.NewString()))
	}

	nc, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, err
	}

	rc := connectRetry().ToRetryConfig()
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("NATS connection attempt failed",
			"attempt", attempt, "class", errors.Classify(err).String(), "retry_in", delay, "error", err)
	}

	err = retry.Do(ctx, rc, func(ctx context.Context, _ int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout.Std())
		defer cancel()
		return nc.Connect(attemptCtx)
	})
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout.Std())
	defer cancel()
	if err := nc.WaitForConnection(waitCtx); err != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
		defer closeCancel()
		_ = nc.Close(closeCtx)
		return nil, err
	}
	return nc, nil
}

// flagSet returns a flag set for one command, writing its errors to stderr.
func (a *app) flagSet(cmd command) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "Usage: %s %s\n\n%s\n\n", appName, cmd.usage, cmd.summary)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and checks the positional argument count.
func parse(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, usageError{err: err}
	}
	if positional >= 0 && fs.NArg() != positional {
		return nil, usagef("expected %d argument(s), got %d", positional, fs.NArg())
	}
	return fs.Args(), nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reply prints a single envelope and turns a host rejection into an error.
func reply[T any](a *app, env envelope.Envelope[T], err error) error {
	if err != nil {
		return err
	}
	if err := a.print(env); err != nil {
		return err
	}
	return env.Err()
}

// replies prints gathered envelopes. A partial failure is printed, then returned.
func replies[T any](a *app, envs []envelope.Envelope[T], err error) error {
	if err != nil && len(envs) == 0 {
		return err
	}
	if envs == nil {
		envs = []envelope.Envelope[T]{}
	}
	if perr := a.print(envs); perr != nil {
		return perr
	}
	return err
}
