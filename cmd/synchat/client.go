package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wtask/synchat/internal/client"
	"github.com/wtask/synchat/internal/clock"
	"github.com/wtask/synchat/internal/config"
)

func newClientCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client [username]",
		Short: "Joins the chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Username = args[0]
			}
			return runClient(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.DurationVar(&cfg.SyncPeriod, "sync-period", cfg.SyncPeriod, "interval between clock sync rounds")
	flags.DurationVar(&cfg.SyncTimeout, "sync-timeout", cfg.SyncTimeout, "how long a sync round waits for the reply")
	flags.Float64Var(&cfg.DriftRate, "drift-rate", cfg.DriftRate, "simulated local clock drift, 0.001 gains 1ms per second")
	flags.DurationVar(&cfg.ClockRefresh, "clock-refresh", cfg.ClockRefresh, "show clock readings this often, disabled when 0")
	return cmd
}

func runClient(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.NewClient(
		client.WithServerAddr(cfg.Addr),
		client.WithUsername(cfg.Username),
		client.WithWriteTimeout(cfg.WriteTimeout),
		client.WithClock(clock.New(clock.WithDrift(cfg.DriftRate))),
		client.WithLogger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}
	logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"username": c.Username(),
		"drift":    cfg.DriftRate,
	}).Debug("chat client is launching")

	if err := c.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect client failed")
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr)
	defer stopMetrics()

	err = c.Run(ctx, os.Stdin, client.NewTerminal(os.Stdout, nil), client.RunOptions{
		SyncPeriod:   cfg.SyncPeriod,
		SyncTimeout:  cfg.SyncTimeout,
		ClockRefresh: cfg.ClockRefresh,
	})
	return errors.Wrap(err, "run client failed")
}
