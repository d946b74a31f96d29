package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wtask/synchat/internal/chat"
	"github.com/wtask/synchat/internal/config"
)

func newServerCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Starts chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cfg)
		},
	}
	cmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time to wait for sessions on stop")
	return cmd
}

func runServer(cfg *config.Config) error {
	logger.WithFields(logrus.Fields{
		"version": Version,
		"addr":    cfg.Addr,
	}).Info("chat server is launching")

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s failed", cfg.Addr)
	}

	server, err := chat.NewServer(
		chat.DefaultBroker(cfg.WriteTimeout, logger),
		chat.WithLogger(logger),
	)
	if err != nil {
		listener.Close()
		return errors.Wrap(err, "create chat server failed")
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr)
	defer stopMetrics()

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()
	logger.WithField("addr", listener.Addr().String()).Info("chat server has started, press Ctrl-C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		logger.WithField("signal", s.String()).Info("got stop signal")
	case err := <-served:
		server.Shutdown(cfg.ShutdownTimeout)
		return errors.Wrap(err, "serve failed")
	}
	elapsed := server.Shutdown(cfg.ShutdownTimeout)
	if err := <-served; err != nil {
		return errors.Wrap(err, "serve failed")
	}
	logger.WithField("elapsed", elapsed).Info("chat server stopped, bye")
	return nil
}
