// Package health probes every configured provider with one minimal synthetic
// request through its production adapter. Probes draw from the same quota
// pool as user traffic, so a health check can itself be quota-limited.
package health

import (
	"context"
	"os"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
	"github.com/adcanvas/ai-router/internal/requestlog"
	"github.com/adcanvas/ai-router/internal/router"
)

const (
	probeTimeout      = 120 * time.Second
	sampleLimit       = 80
	minChatReplyChars = 2
)

type Result struct {
	Provider  string            `json:"provider"`
	Category  provider.Category `json:"category"`
	Passed    bool              `json:"passed"`
	Skipped   bool              `json:"skipped,omitempty"`
	LatencyMs int64             `json:"latency_ms"`
	Sample    string            `json:"sample,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type Report struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
}

type Orchestrator struct {
	router *router.Router
	store  *artifact.Store
	sink   requestlog.Sink
	logger logrus.FieldLogger
	clock  func() time.Time
}

// New builds an orchestrator. Probe invocations go through the same attempt
// log as user traffic, so sink is normally the router's sink.
func New(r *router.Router, store *artifact.Store, sink requestlog.Sink, logger logrus.FieldLogger) *Orchestrator {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Orchestrator{router: r, store: store, sink: sink, logger: logger, clock: time.Now}
}

// Run probes every registered provider sequentially, in registration order,
// and aggregates an overall pass/fail.
func (o *Orchestrator) Run(ctx context.Context) Report {
	report := Report{Success: true}

	for _, reg := range o.router.Registrations() {
		res := o.probe(ctx, reg)
		if !res.Passed {
			report.Success = false
		}
		o.logger.WithFields(logrus.Fields{
			"provider":   res.Provider,
			"category":   res.Category,
			"passed":     res.Passed,
			"latency_ms": res.LatencyMs,
		}).Info("health probe finished")
		report.Results = append(report.Results, res)
	}
	return report
}

func (o *Orchestrator) probe(ctx context.Context, reg router.Registration) Result {
	res := Result{
		Provider: reg.Descriptor.Name,
		Category: reg.Descriptor.Category,
	}

	// Declared-only categories have no adapter to call; report them as
	// skipped rather than failing an otherwise green system.
	if reg.Adapter == nil {
		res.Passed = true
		res.Skipped = true
		res.Sample = "no adapter configured"
		return res
	}

	if !o.router.Ledger().Consume(reg.Descriptor.Name) {
		res.Error = "quota exhausted or provider disabled"
		return res
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := o.clock()
	resp, err := reg.Adapter.Invoke(probeCtx, syntheticRequest(reg.Descriptor.Category))
	res.LatencyMs = o.clock().Sub(start).Milliseconds()

	rec := requestlog.Record{
		Timestamp: start,
		Category:  string(reg.Descriptor.Category),
		Provider:  reg.Descriptor.Name,
		LatencyMs: res.LatencyMs,
		RequestID: "healthcheck",
	}

	if err != nil {
		rec.ErrorKind = string(provider.KindOf(err))
		rec.Error = err.Error()
		o.append(rec)
		res.Error = err.Error()
		return res
	}

	rec.Success = true
	rec.Usage = resp.Usage
	o.append(rec)

	switch reg.Descriptor.Category {
	case provider.CategoryChat:
		if len(resp.Content) < minChatReplyChars {
			res.Error = "chat reply below minimum length"
			return res
		}
		res.Sample = truncate(resp.Content, sampleLimit)
	default:
		// Binary categories must have produced a non-empty artifact on disk.
		info, statErr := os.Stat(o.store.Resolve(resp.URL))
		if resp.URL == "" || statErr != nil || info.Size() == 0 {
			res.Error = "artifact missing or empty"
			return res
		}
		res.Sample = resp.URL
	}

	res.Passed = true
	return res
}

func syntheticRequest(cat provider.Category) *provider.Request {
	req := &provider.Request{Category: cat, RequestID: "healthcheck"}
	switch cat {
	case provider.CategoryChat:
		req.Prompt = "Reply with the single word: ready."
		req.MaxTokens = 20
	case provider.CategoryTTS:
		req.Prompt = "System check."
	case provider.CategoryImage:
		req.Prompt = "a plain blue square on a white background"
		req.AspectRatio = "1:1"
	case provider.CategoryVideo:
		req.Prompt = "System check."
		req.DurationSecs = 5
	}
	return req
}

func (o *Orchestrator) append(rec requestlog.Record) {
	if err := o.sink.Append(rec); err != nil {
		o.logger.WithError(err).Error("failed to append request log record")
	}
}

// truncate cuts on a rune boundary so a multibyte sample never ends with a
// partial sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for i := n; i > 0; i-- {
		if utf8.RuneStart(s[i]) {
			return s[:i]
		}
	}
	return ""
}
