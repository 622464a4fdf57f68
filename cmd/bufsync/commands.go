package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/bufsync/internal/config"
	"github.com/fxnlabs/bufsync/internal/node"
	"github.com/fxnlabs/bufsync/internal/stress"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write the default config file",
		Action: func(c *cli.Context) error {
			log := c.App.Metadata["logger"].(*zap.Logger)
			path, err := config.WriteTemplate(filepath.Dir(c.String("config")))
			if err != nil {
				return err
			}
			log.Info("Config written", zap.String("path", path))
			return nil
		},
	}
}

func roundTripCommand() *cli.Command {
	return &cli.Command{
		Name:  "roundtrip",
		Usage: "Copy random data between a fragmented guest buffer and its host buffer and verify it",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "spans", Value: 4, Usage: "Number of guest mappings"},
			&cli.Uint64Flag{Name: "span-size", Value: 8192, Usage: "Bytes per mapping, rounded up to whole pages"},
			&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), DefaultText: "now", Usage: "Payload random seed"},
		},
		Action: func(c *cli.Context) error {
			return withNode(c, nil, func(n *node.Node) error {
				result, err := n.RoundTrip(c.Int("spans"), c.Uint64("span-size"), c.Int64("seed"))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "round trip ok: %d bytes over %d mappings\n", result.Size, result.Mappings)
				return nil
			})
		},
	}
}

func stressCommand() *cli.Command {
	return &cli.Command{
		Name:  "stress",
		Usage: "Race buffer reassignment against view lockers",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "buffers", Usage: "Buffers the view is reassigned through (default from config)"},
			&cli.IntFlag{Name: "lockers", Usage: "Concurrent lockers (default from config)"},
			&cli.IntFlag{Name: "iterations", Usage: "Lock attempts per locker (default from config)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Run deadline (default from config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := c.App.Metadata["config"].(*config.Config)
			if c.IsSet("buffers") {
				cfg.Stress.Buffers = c.Int("buffers")
			}
			if c.IsSet("lockers") {
				cfg.Stress.Lockers = c.Int("lockers")
			}
			if c.IsSet("iterations") {
				cfg.Stress.Iterations = c.Int("iterations")
			}
			if c.IsSet("timeout") {
				cfg.Stress.Timeout = c.Duration("timeout")
			}

			opts := stress.Options{
				Swaps:      max(cfg.Stress.Buffers-1, 0),
				Lockers:    cfg.Stress.Lockers,
				Iterations: cfg.Stress.Iterations,
			}
			return withNode(c, fx.Invoke(node.RegisterMetricsServer), func(n *node.Node) error {
				ctx := c.Context
				if cfg.Stress.Timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, cfg.Stress.Timeout)
					defer cancel()
				}
				report, err := n.Stress(ctx, opts)
				printReport(c.App.Writer, report)
				return err
			})
		},
	}
}

// withNode starts the node's fx app around fn. extra adds options such as
// invokes that only some commands need.
func withNode(c *cli.Context, extra fx.Option, fn func(*node.Node) error) error {
	cfg := c.App.Metadata["config"].(*config.Config)
	log := c.App.Metadata["logger"].(*zap.Logger)
	if extra == nil {
		extra = fx.Options()
	}

	printBanner(c.App.Writer)

	var n *node.Node
	app := fx.New(node.Options(cfg, log), extra, fx.Populate(&n))
	if err := app.Start(c.Context); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			log.Warn("failed to stop node", zap.Error(err))
		}
	}()
	return fn(n)
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, figure.NewFigure("bufsync", "", true).String())
}

func printReport(w io.Writer, r stress.Report) {
	fmt.Fprintf(w, "swaps:          %d\n", r.Swaps)
	fmt.Fprintf(w, "locks:          %d\n", r.Locks)
	fmt.Fprintf(w, "try locks:      %d (%d failed)\n", r.TryLocks, r.TryLockFails)
	fmt.Fprintf(w, "violations:     %d\n", r.Violations)
	fmt.Fprintf(w, "lock latency:   mean %s, stddev %s, p50 %s, p99 %s, max %s\n",
		r.LockLatency.Mean, r.LockLatency.StdDev, r.LockLatency.P50, r.LockLatency.P99, r.LockLatency.Max)
	fmt.Fprintf(w, "elapsed:        %s\n", r.Elapsed)
}
