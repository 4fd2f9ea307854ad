package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/adcanvas/ai-router/config"
	"github.com/adcanvas/ai-router/internal/api"
	"github.com/adcanvas/ai-router/internal/app"
	"github.com/adcanvas/ai-router/internal/health"
	"github.com/adcanvas/ai-router/internal/telemetry"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("ai-router", cfg.OTELExporterType, cfg.OTELExporterEndpoint)
	if err != nil {
		logger.WithError(err).Fatal("failed to init tracer")
	}
	defer shutdownTracer()

	// 3. Build the engine (artifact store, ledger, attempt log, providers)
	engine, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build engine")
	}
	defer engine.Close()

	// 4. Handlers
	tracer := otel.GetTracerProvider().Tracer("ai-router")
	handler := api.NewHandler(engine.Router, tracer, logger)
	checker := health.New(engine.Router, engine.Store, engine.Log, logger)

	// 5. Routes
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"ai-router"}`))
	})

	r.Post("/v1/chat", handler.HandleChat)
	r.Post("/v1/video", handler.HandleVideo)
	r.Post("/v1/tts", handler.HandleTTS)
	r.Post("/v1/image", handler.HandleImage)
	r.Get("/v1/quota", handler.HandleQuota)

	// Deep health check runs real provider probes; it spends quota, so it is
	// an operator endpoint rather than a load-balancer target.
	r.Get("/v1/health/deep", func(w http.ResponseWriter, req *http.Request) {
		report := checker.Run(req.Context())
		status := http.StatusOK
		if !report.Success {
			status = http.StatusServiceUnavailable
		}
		api.WriteJSON(w, status, report)
	})

	// Generated artifacts are served from the output directory.
	fileServer := http.StripPrefix("/outputs/", http.FileServer(http.Dir(engine.Store.Dir())))
	r.Get("/outputs/*", fileServer.ServeHTTP)

	// 6. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // video renders are slow
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("ai-router starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("forced shutdown")
	}
	logger.Info("server stopped")
}
