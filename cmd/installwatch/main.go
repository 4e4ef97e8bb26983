// installwatch monitors externally driven installations and reports per-item
// progress inferred from filesystem state, property lists and an optional
// command-file side channel.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/msageha/installwatch/internal/document"
	"github.com/msageha/installwatch/internal/logutil"
	"github.com/msageha/installwatch/internal/model"
	"github.com/msageha/installwatch/internal/monitor"
	"github.com/msageha/installwatch/internal/statefile"
	"github.com/msageha/installwatch/internal/validate"
)

const version = "1.0.0"

func main() {
	var (
		configPath string
		logLevel   string
		logFile    string
		logger     zerolog.Logger
		logCloser  func()
	)

	app := &cli.Command{
		Name:    "installwatch",
		Usage:   "Monitor externally driven installation progress",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the item configuration file",
				Sources:     cli.EnvVars(model.EnvConfigPath),
				Value:       "installwatch.yaml",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("INSTALLWATCH_LOG_LEVEL"),
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars("INSTALLWATCH_LOG_FILE"),
				Destination: &logFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, logCloser, err = logutil.New(logLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the monitor until every item completes or a signal arrives",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runMonitor(ctx, configPath, logger)
				},
			},
			{
				Name:  "validate",
				Usage: "One-shot validation of every configured item",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "emit the result map as JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runValidate(ctx, configPath, c.Bool("json"), logger)
				},
			},
			{
				Name:  "status",
				Usage: "Print the last persisted interaction state",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runStatus(logger)
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "installwatch: %v\n", err)
		os.Exit(1)
	}
}

func runMonitor(ctx context.Context, configPath string, logger zerolog.Logger) error {
	cfg, err := model.LoadConfig(model.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}

	mon, err := monitor.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, unsubscribe := mon.Tracker().Subscribe()
	defer unsubscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for snap := range snapshots {
			fmt.Printf("progress: %d/%d (%.0f%%)\n", snap.Completed, snap.Total, snap.Percentage*100)
			if snap.IsComplete() {
				logger.Info().Msg("all items completed")
				cancel()
				return
			}
		}
	}()

	return mon.Run(runCtx)
}

func runValidate(ctx context.Context, configPath string, asJSON bool, logger zerolog.Logger) error {
	cfg, err := model.LoadConfig(model.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}

	cache := document.NewCache(document.DefaultCacheSize, document.OSFS{}, logger)
	validator := validate.New(cache, cfg.PlistSources, cfg.Validation.Workers, logger)
	results := validator.ValidateBatch(ctx, cfg.Items, nil, nil)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, item := range cfg.Items {
			state := "missing"
			if results[item.ID] {
				state = "ok"
			}
			fmt.Printf("%-8s %s (%s)\n", state, item.ID, item.DisplayName)
		}
	}

	for _, valid := range results {
		if !valid {
			return cli.Exit("", 1)
		}
	}
	return nil
}

func runStatus(logger zerolog.Logger) error {
	stateDir, err := model.ResolveStateDir()
	if err != nil {
		return err
	}

	store := statefile.NewStore(stateDir, logger)
	state, err := store.Load()
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Println("no interaction state recorded")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
