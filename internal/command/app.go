// Package command implements the revitpy-bridge command line.
package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aj-geddes/revitpy-sub005/application/bridge"
	"github.com/aj-geddes/revitpy-sub005/application/validation"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/memmodel"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/modelstore"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/parser"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/wazero"
	"github.com/aj-geddes/revitpy-sub005/host"
	wasm "github.com/tetratelabs/wazero"
	"github.com/urfave/cli/v2"
)

const (
	flagConfig      = "config"
	flagModel       = "model"
	flagLogLevel    = "log-level"
	flagTransaction = "transaction"
	flagStats       = "stats"
	flagParallel    = "parallel"
)

// NewApp builds the CLI application. Command output goes to out and logs to
// errOut. Run returns cli.ExitCoder errors instead of exiting.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "revitpy-bridge",
		Usage:     "run scripts against a pooled interpreter bridge",
		Writer:    out,
		ErrWriter: errOut,
		// Exit codes are handled by the caller of Run.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Usage:   "load the host model from `FILE` and save committed changes back",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override the log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "exec",
				Usage:     "execute script files concurrently",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    flagTransaction,
						Aliases: []string{"t"},
						Usage:   "run each script in its own transaction, one at a time",
					},
					&cli.BoolFlag{
						Name:  flagStats,
						Usage: "print bridge statistics afterwards",
					},
					&cli.IntFlag{
						Name:  flagParallel,
						Usage: "maximum scripts in flight; 0 means the pool capacity",
					},
				},
				Action: execAction,
			},
			{
				Name:      "eval",
				Usage:     "evaluate one expression and print its value",
				ArgsUsage: "EXPR",
				Action:    evalAction,
			},
			{
				Name:   "health",
				Usage:  "probe every interpreter in the pool",
				Action: healthAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}
}

// loadConfig reads --config over the defaults, applies --log-level and
// validates the result.
func loadConfig(c *cli.Context) (entities.Config, error) {
	cfg := entities.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		parsed, err := parser.ParseFile(parser.NewYamlConfigParser(), path)
		if err != nil {
			return cfg, err
		}
		cfg = *parsed
	}
	if level := c.String(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}

	v, err := validation.NewConfigValidator()
	if err != nil {
		return cfg, err
	}
	if err := v.Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func loadModel(c *cli.Context, logger *slog.Logger) (ports.HostModel, error) {
	path := c.String(flagModel)
	if path == "" {
		return memmodel.New(memmodel.WithLogger(logger)), nil
	}
	store := modelstore.NewFileStore(modelstore.WithPath(path))
	return memmodel.Load(store, memmodel.WithLogger(logger))
}

// withBridge builds and initializes a bridge from the global flags, runs fn
// and closes the bridge.
func withBridge(c *cli.Context, fn func(ctx context.Context, b *bridge.Bridge) error) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger := newLogger(c.App.ErrWriter, cfg.LogLevel)

	model, err := loadModel(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	// Every interpreter compiles .wasm modules into one shared cache.
	cache := wasm.NewCompilationCache()
	defer cache.Close(context.Background())

	b, err := bridge.New(cfg, model,
		bridge.WithLogger(logger),
		bridge.WithInterpreterOptions(host.WithModuleLoader(wazero.Factory(
			wazero.WithCompilationCache(cache),
			wazero.WithLogger(logger),
		))),
	)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx := c.Context
	if err := b.Initialize(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("bridge initialization failed: %v", err), 1)
	}
	defer func() {
		if closeErr := b.Close(context.Background()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, b)
}
