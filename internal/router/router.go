// Package router walks the ordered, quota-eligible providers of a category
// until one succeeds. Chat requests never fail: when the cascade is exhausted
// they fall back to deterministic synthetic content.
package router

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/adcanvas/ai-router/internal/fallback"
	"github.com/adcanvas/ai-router/internal/provider"
	"github.com/adcanvas/ai-router/internal/quota"
	"github.com/adcanvas/ai-router/internal/requestlog"
)

const (
	// DefaultAttemptTimeout bounds one provider attempt. It must exceed the
	// poll budget of the slowest adapter (video renders) so that an adapter's
	// own attempt limit, not this bound, decides when a render is given up.
	DefaultAttemptTimeout = 5 * time.Minute
	// FallbackProvider is the providerUsed value for synthetic chat content.
	FallbackProvider = "fallback"
)

// Registration pairs a descriptor with its adapter. Adapter is nil for
// declared-only categories (automation, storage), which are registered for
// quota introspection but never invoked.
type Registration struct {
	Descriptor provider.Descriptor
	Adapter    provider.Adapter
}

type Router struct {
	regs     map[provider.Category][]Registration
	all      []Registration
	ledger   *quota.Ledger
	breakers map[string]*gobreaker.CircuitBreaker
	sink     requestlog.Sink
	logger   logrus.FieldLogger
	timeout  time.Duration
	clock    func() time.Time
}

func New(ledger *quota.Ledger, sink requestlog.Sink, logger logrus.FieldLogger) *Router {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Router{
		regs:     make(map[provider.Category][]Registration),
		ledger:   ledger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		sink:     sink,
		logger:   logger,
		timeout:  DefaultAttemptTimeout,
		clock:    time.Now,
	}
}

// SetAttemptTimeout bounds each individual provider attempt.
func (r *Router) SetAttemptTimeout(d time.Duration) { r.timeout = d }

// Register adds a provider to its category's cascade. Registration order is
// the tie-break for equal priorities, so callers register in preference
// order. Must be called before the first Route; the router is not built for
// concurrent registration.
func (r *Router) Register(desc provider.Descriptor, adapter provider.Adapter) error {
	if err := r.ledger.Register(desc.Name, desc.Capacity, desc.Enabled); err != nil {
		return err
	}
	reg := Registration{Descriptor: desc, Adapter: adapter}
	r.regs[desc.Category] = append(r.regs[desc.Category], reg)
	r.all = append(r.all, reg)

	if adapter != nil {
		settings := gobreaker.Settings{
			Name:        desc.Name,
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}
		r.breakers[desc.Name] = gobreaker.NewCircuitBreaker(settings)
	}

	r.logger.WithFields(logrus.Fields{
		"provider": desc.Name,
		"category": desc.Category,
		"priority": desc.Priority,
		"capacity": desc.Capacity,
	}).Info("provider registered")
	return nil
}

// Registrations returns every registered provider in registration order.
func (r *Router) Registrations() []Registration {
	out := make([]Registration, len(r.all))
	copy(out, r.all)
	return out
}

// Ledger exposes the quota ledger for status endpoints and health checks.
func (r *Router) Ledger() *quota.Ledger { return r.ledger }

// candidates returns the category's providers sorted by priority ascending,
// registration order preserved within equal priorities.
func (r *Router) candidates(cat provider.Category) []Registration {
	src := r.regs[cat]
	out := make([]Registration, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Descriptor.Priority < out[j].Descriptor.Priority
	})
	return out
}

// Route tries each eligible provider of the request's category in priority
// order and returns the first success. Every adapter invocation is logged;
// quota-skipped providers are not, since no call was made.
func (r *Router) Route(ctx context.Context, req *provider.Request) *provider.Response {
	for _, reg := range r.candidates(req.Category) {
		if reg.Adapter == nil {
			continue
		}
		name := reg.Descriptor.Name

		if cb := r.breakers[name]; cb != nil && cb.State() == gobreaker.StateOpen {
			r.logger.WithField("provider", name).Debug("circuit open, skipping")
			continue
		}
		if !r.ledger.Consume(name) {
			r.logger.WithField("provider", name).Debug("quota ineligible, skipping")
			continue
		}

		resp, err := r.attempt(ctx, reg, req)
		if err == nil {
			return resp
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Breaker rejected before the adapter ran: nothing to log, and
			// the claimed quota unit goes back.
			r.ledger.Refund(name)
			continue
		}
		if provider.KindOf(err) == provider.FailureAuth {
			r.ledger.Disable(name)
			r.logger.WithField("provider", name).Warn("credential rejected, provider disabled for process lifetime")
		}
	}

	if req.Category == provider.CategoryChat {
		return &provider.Response{
			Success:  true,
			Content:  fallback.Generate(req.Prompt),
			Provider: FallbackProvider,
		}
	}
	return &provider.Response{
		Success:      false,
		ErrorKind:    provider.FailureExhausted,
		ErrorMessage: "no provider available for category " + string(req.Category),
	}
}

// attempt invokes one adapter under its breaker with a bounded timeout and
// writes exactly one log record for the call.
func (r *Router) attempt(ctx context.Context, reg Registration, req *provider.Request) (*provider.Response, error) {
	name := reg.Descriptor.Name
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.clock()
	result, err := r.breakers[name].Execute(func() (interface{}, error) {
		return reg.Adapter.Invoke(attemptCtx, req)
	})
	latency := r.clock().Sub(start).Milliseconds()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, err
	}

	rec := requestlog.Record{
		Timestamp: start,
		Category:  string(req.Category),
		Provider:  name,
		LatencyMs: latency,
		RequestID: req.RequestID,
	}

	if err != nil {
		rec.Success = false
		rec.ErrorKind = string(provider.KindOf(err))
		rec.Error = err.Error()
		if logErr := r.sink.Append(rec); logErr != nil {
			r.logger.WithError(logErr).Error("failed to append request log record")
		}
		r.logger.WithFields(logrus.Fields{
			"provider": name,
			"category": req.Category,
			"kind":     rec.ErrorKind,
		}).WithError(err).Warn("provider attempt failed")
		return nil, err
	}

	resp := result.(*provider.Response)
	resp.Provider = name
	resp.LatencyMs = latency

	rec.Success = true
	rec.Usage = resp.Usage
	if logErr := r.sink.Append(rec); logErr != nil {
		r.logger.WithError(logErr).Error("failed to append request log record")
	}
	return resp, nil
}

// Category entry points consumed by the HTTP layer.

func (r *Router) RouteChat(ctx context.Context, req *provider.Request) *provider.Response {
	req.Category = provider.CategoryChat
	return r.Route(ctx, req)
}

func (r *Router) RouteVideo(ctx context.Context, req *provider.Request) *provider.Response {
	req.Category = provider.CategoryVideo
	return r.Route(ctx, req)
}

func (r *Router) RouteTTS(ctx context.Context, req *provider.Request) *provider.Response {
	req.Category = provider.CategoryTTS
	return r.Route(ctx, req)
}

func (r *Router) RouteImage(ctx context.Context, req *provider.Request) *provider.Response {
	req.Category = provider.CategoryImage
	return r.Route(ctx, req)
}
