package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/ledgerbook/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(a.logger))
	router.Use(api.JWTSecretMiddleware(a.cfg.Auth.JWTSecret))

	handler := api.NewHandler(a.svc, a.logger, a.metrics)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Reconcile.Interval > 0 {
		g.Go(func() error {
			a.reconcileLoop(gctx)
			return nil
		})
	}

	return g.Wait()
}

// reconcileLoop recomputes every company's balances once per interval
// until ctx is done. Failures are logged and retried on the next tick.
func (a *app) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Reconcile.Interval)
	defer ticker.Stop()

	a.logger.Info("background reconciliation enabled",
		zap.Duration("interval", a.cfg.Reconcile.Interval),
		zap.Int("concurrency", a.cfg.Reconcile.Concurrency),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := a.svc.ReconcileAll(ctx, nil, a.cfg.Reconcile.Concurrency)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("background reconciliation failed", zap.Error(err))
				}
				continue
			}
			a.logger.Debug("background reconciliation finished", zap.Int("companies", len(results)))
		}
	}
}
