package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gentleman-programming/gentleman-signals-state-manager/internal/config"
	interrors "github.com/gentleman-programming/gentleman-signals-state-manager/internal/errors"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/inspect"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/persist"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/provide"
	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/signals"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		jsonLogs   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the state store with its inspector",
		Long: `Serve the state store defined by gentleman.json.

Cells materialize lazily from the configured default state. The
inspector exposes the live store over HTTP:

  GET /state          current materialized state
  GET /state/{key}    a single cell
  GET /live           websocket change feed
  GET /metrics        Prometheus metrics
  GET /healthz        liveness probe

With persistence enabled a snapshot is restored on boot and rewritten
whenever the state settles.

Examples:
  gentleman serve
  gentleman serve --addr=0.0.0.0:6060
  gentleman serve --config=./deploy/gentleman.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, jsonLogs)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to gentleman.json (default ./gentleman.json)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")

	return cmd
}

func runServe(configPath, addr string, jsonLogs bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)

	root := signals.NewScope(nil)
	defer root.Dispose()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []manager.Option{
		manager.WithLogger(logger),
		manager.WithMetrics(
			manager.MetricsNamespace(cfg.MetricsNamespace),
			manager.MetricsRegistry(registry),
		),
		manager.WithTracing(""),
	}
	if cfg.StrictKeys {
		opts = append(opts, manager.WithStrictKeys())
	}
	if len(cfg.TransientKeys) > 0 {
		opts = append(opts, manager.WithTransientKeys(cfg.TransientKeys...))
	}

	m := provide.State(root, manager.DefaultState(cfg.State), opts...)

	store, err := snapshotStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snap, err := store.Load(loadCtx)
		cancel()
		if err != nil {
			return interrors.New("E201").Wrap(err)
		}
		if len(snap) > 0 {
			if err := persist.Apply(m, snap); err != nil {
				logger.Warn("snapshot partially applied", "error", err)
			}
			logger.Info("snapshot restored", "keys", len(snap))
		}

		persist.AutoPersist(root, m, store,
			persist.WithDebounce(time.Duration(cfg.Persistence.DebounceMS)*time.Millisecond),
			persist.WithSaveLogger(logger),
		)
	}

	// Seed the store eagerly so the inspector, metrics, and
	// persistence observe the configured state from the start.
	m.MaterializeAll()

	srv := inspect.NewServer(m,
		inspect.WithLogger(logger),
		inspect.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("inspector listening",
			"addr", cfg.Addr,
			"keys", len(cfg.State),
			"persistence", cfg.Persistence.Mode)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return interrors.New("E301").Wrap(err).WithDetail(cfg.Addr)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return nil
}

// snapshotStore builds the persistence backend for cfg, or nil when
// persistence is off.
func snapshotStore(cfg *config.Config) (persist.Store, error) {
	switch cfg.Persistence.Mode {
	case config.PersistFile:
		return persist.NewFileStore(cfg.Persistence.Path), nil
	case config.PersistS3:
		client := s3.New(s3.Options{
			Region:      cfg.Persistence.Region,
			Credentials: envCredentials(),
		}, func(o *s3.Options) {
			if cfg.Persistence.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Persistence.Endpoint)
				o.UsePathStyle = true
			}
		})
		return persist.NewS3Store(client, cfg.Persistence.Bucket, cfg.Persistence.Prefix), nil
	default:
		return nil, nil
	}
}

// envCredentials resolves AWS credentials from the environment,
// falling back to anonymous access for public buckets.
func envCredentials() aws.CredentialsProvider {
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		return aws.AnonymousCredentials{}
	}
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})
}
