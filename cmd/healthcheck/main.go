// Command healthcheck probes every configured provider once and exits 0 only
// if all of them passed. Intended for CI and operational smoke tests.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adcanvas/ai-router/config"
	"github.com/adcanvas/ai-router/internal/app"
	"github.com/adcanvas/ai-router/internal/health"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	engine, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build engine")
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report := health.New(engine.Router, engine.Store, engine.Log, logger).Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Success {
		os.Exit(1)
	}
}
