package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxnlabs/bufsync/internal/config"
	"github.com/fxnlabs/bufsync/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "bufsync",
		Usage: "Exercise guest/host GPU buffer synchronization",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   filepath.Join(config.GetDefaultConfigHome(), config.ConfigFileName),
				Usage:   "Path to the config file; defaults are used when it does not exist",
				EnvVars: []string{"BUFSYNC_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfigOrDefault(c.String("config"))
			if err != nil {
				return err
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity, cfg.Logger.Encoding)
			if err != nil {
				return err
			}
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = zapLogger.Named("cli")
			return nil
		},
		After: func(c *cli.Context) error {
			if log, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
				_ = log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			initCommand(),
			roundTripCommand(),
			stressCommand(),
		},
	}
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		if log, ok := app.Metadata["logger"].(*zap.Logger); ok {
			log.Fatal("failed to run app", zap.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
