package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wtask/synchat/internal/config"
	"github.com/wtask/synchat/internal/log"
)

var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	// BinaryName - name of run application binary
	BinaryName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))

	// Version - app version fingerprint, set with -ldflags "-X main.Version=..."
	Version = "0.1.0-dev"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           BinaryName,
		Short:         "Chat over TCP with clock synchronization",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "validate config failed")
			}
			log.SetLogger(cfg.LogLevel, cfg.LogFormat, nil)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "server address, host:port")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve prometheus metrics on this address, disabled when empty")
	flags.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "limit for single record write")

	root.AddCommand(newServerCmd(cfg), newClientCmd(cfg))
	return root
}

// serveMetrics - starts metrics endpoint if addr is set, returned stop func is always usable.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics endpoint failed")
		}
	}()
	logger.WithField("addr", addr).Info("metrics endpoint started")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(errors.Wrap(err, "load config failed"))
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
