// Package api exposes the router over HTTP. Handlers stay thin: validation
// and normalization here, all provider selection in the router.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/adcanvas/ai-router/internal/provider"
	"github.com/adcanvas/ai-router/internal/router"
)

type Handler struct {
	router *router.Router
	tracer trace.Tracer
	logger logrus.FieldLogger
}

func NewHandler(r *router.Router, tracer trace.Tracer, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{router: r, tracer: tracer, logger: logger}
}

type capabilityRequest struct {
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	Voice        string  `json:"voice,omitempty"`
	DurationSecs int     `json:"duration_secs,omitempty"`
	AspectRatio  string  `json:"aspect_ratio,omitempty"`
}

type capabilityResponse struct {
	Success   bool   `json:"success"`
	Content   string `json:"content,omitempty"`
	URL       string `json:"url,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Usage     int64  `json:"usage,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.CategoryChat)
}

func (h *Handler) HandleVideo(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.CategoryVideo)
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.CategoryTTS)
}

func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, provider.CategoryImage)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, cat provider.Category) {
	var body capabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Prompt == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	requestID := uuid.New().String()
	req := &provider.Request{
		Category:     cat,
		Prompt:       body.Prompt,
		Model:        body.Model,
		MaxTokens:    body.MaxTokens,
		Temperature:  body.Temperature,
		Voice:        body.Voice,
		DurationSecs: body.DurationSecs,
		AspectRatio:  body.AspectRatio,
		RequestID:    requestID,
	}

	ctx, span := h.startSpan(r.Context(), cat, requestID)
	resp := h.router.Route(ctx, req)
	span.End()

	status := http.StatusOK
	if !resp.Success {
		// Exhaustion on non-chat categories surfaces as temporarily unavailable.
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, capabilityResponse{
		Success:   resp.Success,
		Content:   resp.Content,
		URL:       resp.URL,
		Provider:  resp.Provider,
		Model:     resp.Model,
		LatencyMs: resp.LatencyMs,
		Usage:     resp.Usage,
		ErrorKind: string(resp.ErrorKind),
		Error:     resp.ErrorMessage,
		RequestID: requestID,
	})
}

func (h *Handler) startSpan(ctx context.Context, cat provider.Category, requestID string) (context.Context, trace.Span) {
	ctx, span := h.tracer.Start(ctx, "router.route")
	span.SetAttributes(
		attribute.String("category", string(cat)),
		attribute.String("request_id", requestID),
	)
	return ctx, span
}

// HandleQuota reports the ledger state of every registered provider.
func (h *Handler) HandleQuota(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"providers": h.router.Ledger().Snapshot(),
	})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
