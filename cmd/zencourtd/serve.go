package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xraph/relay"
	relaymemory "github.com/xraph/relay/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cladams7905/zencourt-sub006/api"
	audithook "github.com/cladams7905/zencourt-sub006/audit_hook"
	"github.com/cladams7905/zencourt-sub006/engine"
	relayhook "github.com/cladams7905/zencourt-sub006/relay_hook"
)

const callbackPath = "/webhooks/fal"

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		withRelay bool
		withAudit bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the provider callback endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, closeStore, err := openAndMigrate(ctx, cfg.Store, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			opts := []engine.Option{engine.WithLogger(logger)}
			if withRelay {
				r, relayErr := relay.New(relay.WithStore(relaymemory.New()))
				if relayErr != nil {
					return fmt.Errorf("create relay: %w", relayErr)
				}
				if err := relayhook.RegisterAll(ctx, r); err != nil {
					return fmt.Errorf("register relay events: %w", err)
				}
				opts = append(opts, engine.WithExtension(relayhook.New(r)))
			}
			if withAudit {
				audit := audithook.New(audithook.LogRecorder(logger.With(slog.String("component", "audit"))),
					audithook.WithLogger(logger))
				opts = append(opts, engine.WithExtension(audit))
			}

			eng, err := engine.Build(ctx, cfg, st, opts...)
			if err != nil {
				return err
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("POST "+callbackPath, eng.CallbackHandler())
			mux.Handle("POST "+callbackPath+"/{jobId}", eng.CallbackHandler())
			mux.Handle("/", api.New(eng, nil).Handler())

			srv := &http.Server{
				Addr:    cfg.HTTP.Addr,
				Handler: otelhttp.NewHandler(mux, "zencourtd"),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", slog.String("addr", cfg.HTTP.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					logger.Error("http server failed", slog.String("error", err.Error()))
				}
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
			defer cancel()

			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
			if err := eng.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("engine stop: %w", err))
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&withRelay, "relay", false, "publish lifecycle events to an in-process relay")
	cmd.Flags().BoolVar(&withAudit, "audit", false, "write an audit trail of lifecycle events to the log")
	return cmd
}

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			_, closeStore, err := openAndMigrate(cmd.Context(), cfg.Store, logger)
			if err != nil {
				return err
			}
			closeStore()
			logger.Info("migrations applied", slog.String("driver", cfg.Store.Driver))
			return nil
		},
	}
}
