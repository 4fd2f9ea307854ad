// Package app wires the engine from configuration: artifact store, quota
// ledger, attempt log, and the provider registry. Both the server and the
// health-check command build the same engine through here.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adcanvas/ai-router/config"
	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
	"github.com/adcanvas/ai-router/internal/provider/elevenlabs"
	"github.com/adcanvas/ai-router/internal/provider/heygen"
	"github.com/adcanvas/ai-router/internal/provider/mistral"
	"github.com/adcanvas/ai-router/internal/provider/openrouter"
	"github.com/adcanvas/ai-router/internal/provider/stability"
	"github.com/adcanvas/ai-router/internal/quota"
	"github.com/adcanvas/ai-router/internal/requestlog"
	"github.com/adcanvas/ai-router/internal/router"
)

type Engine struct {
	Router *router.Router
	Store  *artifact.Store
	Log    *requestlog.FileSink
}

// Close releases the attempt log file handle.
func (e *Engine) Close() error {
	return e.Log.Close()
}

// New builds the full engine. A provider whose credential is missing is not
// registered at all, so it never appears in any category's candidate list.
func New(cfg *config.Config, logger logrus.FieldLogger) (*Engine, error) {
	store, err := artifact.NewStore(cfg.OutputDir, "/outputs")
	if err != nil {
		return nil, err
	}

	sink, err := requestlog.OpenFile(cfg.RequestLogPath)
	if err != nil {
		return nil, err
	}

	ledger := quota.NewLedger(cfg.QuotaWindow, nil)
	r := router.New(ledger, sink, logger)
	r.SetAttemptTimeout(cfg.AttemptTimeout)

	type candidate struct {
		key     string
		desc    provider.Descriptor
		adapter provider.Adapter
	}

	candidates := []candidate{
		{cfg.MistralAPIKey, provider.Descriptor{
			Name: "mistral", Category: provider.CategoryChat,
			Priority: 1, Capacity: config.Capacity("mistral", 500), Enabled: true,
		}, nil},
		{cfg.OpenRouterAPIKey, provider.Descriptor{
			Name: "openrouter", Category: provider.CategoryChat,
			Priority: 2, Capacity: config.Capacity("openrouter", 200), Enabled: true,
		}, nil},
		{cfg.HeyGenAPIKey, provider.Descriptor{
			Name: "heygen", Category: provider.CategoryVideo,
			Priority: 1, Capacity: config.Capacity("heygen", 10), Enabled: true,
		}, nil},
		{cfg.ElevenLabsAPIKey, provider.Descriptor{
			Name: "elevenlabs", Category: provider.CategoryTTS,
			Priority: 1, Capacity: config.Capacity("elevenlabs", 100), Enabled: true,
		}, nil},
		{cfg.StabilityAPIKey, provider.Descriptor{
			Name: "stability", Category: provider.CategoryImage,
			Priority: 1, Capacity: config.Capacity("stability", 50), Enabled: true,
		}, nil},
		// Declared-only categories: descriptor registered, no adapter.
		{cfg.MakeWebhookURL, provider.Descriptor{
			Name: "make", Category: provider.CategoryAutomation,
			Priority: 1, Capacity: config.Capacity("make", 100), Enabled: true,
		}, nil},
		{cfg.GDocsAPIKey, provider.Descriptor{
			Name: "gdocs", Category: provider.CategoryStorage,
			Priority: 1, Capacity: config.Capacity("gdocs", 100), Enabled: true,
		}, nil},
	}

	for i := range candidates {
		c := &candidates[i]
		if c.key == "" {
			continue
		}
		switch c.desc.Name {
		case "mistral":
			c.adapter = mistral.New(cfg.MistralAPIKey)
		case "openrouter":
			c.adapter = openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterReferer)
		case "heygen":
			c.adapter = heygen.New(cfg.HeyGenAPIKey, store)
		case "elevenlabs":
			c.adapter = elevenlabs.New(cfg.ElevenLabsAPIKey, store)
		case "stability":
			c.adapter = stability.New(cfg.StabilityAPIKey, store)
		}
		if c.adapter != nil {
			c.desc.Models = c.adapter.Models()
		}
		if err := r.Register(c.desc, c.adapter); err != nil {
			sink.Close()
			return nil, fmt.Errorf("register %s: %w", c.desc.Name, err)
		}
	}

	return &Engine{Router: r, Store: store, Log: sink}, nil
}
