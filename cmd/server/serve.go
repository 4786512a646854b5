package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/residency-engine/ai"
	"github.com/warp/residency-engine/api"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/metrics"
	"github.com/warp/residency-engine/residency"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	book, store, err := openBook(residency.WithMetrics(m))
	if err != nil {
		return err
	}
	defer store.Close()

	catalog, err := locale.Load()
	if err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}

	handler := api.NewHandler(book, catalog, logger.Named("api"))
	handler.Country = cfg.Residency.Country
	handler.Health = store.Ping
	handler.AIDeadline = cfg.AI.RequestBudget()

	gemini, err := ai.New(ai.Config{
		APIKey:          cfg.AI.APIKey,
		Endpoint:        cfg.AI.Endpoint,
		ExtractionModel: cfg.AI.ExtractionModel,
		ChatModel:       cfg.AI.ChatModel,
		Timeout:         cfg.AI.Timeout,
		MaxRetries:      cfg.AI.MaxRetries,
		MaxConcurrency:  cfg.AI.MaxConcurrency,
	}, logger, m)
	switch {
	case errors.Is(err, generic.ErrAssistantUnavailable):
		logger.Warn("AI features disabled", zap.Error(err))
	case err != nil:
		return fmt.Errorf("failed to initialize AI client: %w", err)
	default:
		handler.Extractor = gemini
		handler.Assistant = gemini
		handler.ExtractConcurrency = gemini.MaxConcurrency()
	}

	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       reg,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.RequestBudget() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Store.DBPath),
			zap.String("overlap", string(cfg.Residency.OverlapPolicy())),
			zap.Bool("ai", handler.Extractor != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
