package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"aipipeline/features/pipeline"
	"aipipeline/features/stats"
	"aipipeline/internal/adapter/gemini"
	"aipipeline/internal/adapter/uuidgen"
	"aipipeline/internal/config"
	"aipipeline/internal/middleware"
	"aipipeline/internal/notify"
)

type App struct {
	Handler          http.Handler
	PipelineService  *pipeline.Service
	DeliveryConsumer *notify.DeliveryConsumer

	addr     string
	analyzer *gemini.Analyzer
}

func New(cfg *config.Config, db *sql.DB, producer notify.EventPublisher) (*App, error) {
	// Adapters
	callTimeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second
	uuidClient := uuidgen.NewClient(cfg.UUIDEndpoint, callTimeout)

	analyzer, err := gemini.NewAnalyzer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EnrichmentRPS)
	if err != nil {
		return nil, fmt.Errorf("gemini analyzer error: %w", err)
	}

	notifier := notify.NewNotifier(producer, config.TopicPipelineCompleted)

	// Feature: Pipeline
	pipelineRepo := pipeline.NewPostgresRepo(db)
	pipelineService := pipeline.NewService(uuidClient, analyzer, pipelineRepo, notifier, cfg.BatchSize, callTimeout)
	pipelineHandler := pipeline.NewHandler(pipelineService)

	// Feature: Stats
	statsHandler := stats.NewHandler(pipelineRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /pipeline", middleware.CorrelationID(enableCORS(pipelineHandler.Run)))
	mux.Handle("GET /pipeline/items", middleware.CorrelationID(enableCORS(pipelineHandler.ListItems)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
	mux.Handle("GET /{$}", middleware.CorrelationID(enableCORS(pipelineHandler.Root)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Notification Delivery)
	deliveryLog, err := notify.NewFileDeliveryLog(cfg.NotifyLogPath)
	if err != nil {
		slog.Warn("failed to create delivery log, falling back to stdout", "error", err)
		deliveryLog = notify.NewDeliveryLog(os.Stdout)
	}
	deliveryConsumer := notify.NewDeliveryConsumer(deliveryLog)

	return &App{
		Handler:          mux,
		PipelineService:  pipelineService,
		DeliveryConsumer: deliveryConsumer,
		addr:             fmt.Sprintf(":%d", cfg.ServerPort),
		analyzer:         analyzer,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.addr,
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", a.addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a.analyzer != nil {
		if err := a.analyzer.Close(); err != nil {
			slog.Warn("failed to close gemini client", "error", err)
		}
	}
}
