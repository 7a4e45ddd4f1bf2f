package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/config"
	"github.com/nexsite/internal/consult"
	"github.com/nexsite/internal/handler"
	"github.com/nexsite/internal/metrics"
	"github.com/nexsite/internal/outbox"
	"github.com/nexsite/internal/router"
	"github.com/nexsite/internal/service"
	"github.com/nexsite/internal/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, envFiles []string) error {
	cfg, logger, err := setup(envFiles)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := store.Open(ctx, cfg.StoreURL, cfg.StoreAPIKey, store.Options{})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()
	queue := outbox.New(logger.Named("outbox"), m, outbox.Options{})

	engine, err := buildRouter(cfg, st, queue, m, logger)
	if err != nil {
		queue.Close(context.Background())
		st.Close()
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced to shut down", zap.Error(err))
	}
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Warn("outbox did not drain", zap.Error(err), zap.Int("pending", queue.Stats().Pending))
	}
	if err := st.Close(); err != nil {
		logger.Warn("store close failed", zap.Error(err))
	}
	logger.Info("server exited")
	return runErr
}

func buildRouter(cfg config.AppConfig, st store.Store, queue *outbox.Outbox, m *metrics.Metrics, logger *zap.Logger) (http.Handler, error) {
	content := service.NewContentService(st, logger.Named("content"), m, cfg.StoreTimeout)
	leads := service.NewLeadService(st, logger.Named("leads"), m, cfg.StoreTimeout)

	workspaces := admin.NewWorkspaces(content, leads, queue, cfg.AdminWorkspaceTTL, logger.Named("admin"), m)
	workspaces.SetLimit(cfg.AdminWorkspaces)

	api := handler.NewAPI(handler.Deps{
		Content: content,
		Flow: consult.NewFlow(leads, queue, consult.Options{
			Pacing:  cfg.LeadPacing,
			Display: cfg.LeadDisplay,
		}, logger.Named("consult"), m),
		Workspaces: workspaces,
		Sync:       queue,
		Store:      st,
		Metrics:    m,
		Logger:     logger,
		SiteName:   cfg.SiteName,
	})

	return router.SetupRouter(router.Options{
		API:           api,
		Metrics:       m,
		Logger:        logger,
		SessionSecret: cfg.SessionSecret,
		SessionMaxAge: cfg.AdminWorkspaceTTL,
	})
}
