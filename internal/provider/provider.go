package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Category groups interchangeable providers by capability.
type Category string

const (
	CategoryChat       Category = "chat"
	CategoryVideo      Category = "video"
	CategoryTTS        Category = "tts"
	CategoryImage      Category = "image"
	CategoryAutomation Category = "automation"
	CategoryStorage    Category = "storage"
)

type Request struct {
	Category Category
	Prompt   string
	Model    string

	// Category-specific knobs; each adapter validates the ones it cares about.
	MaxTokens    int
	Temperature  float64
	Voice        string
	DurationSecs int
	AspectRatio  string

	// Metadata carried through for logging and tracing.
	RequestID string
}

type Response struct {
	Success   bool
	Content   string // text result (chat, fallback)
	URL       string // relative URL of a written artifact (tts, image, video)
	Provider  string
	Model     string
	LatencyMs int64
	Usage     int64 // tokens for text categories, bytes for binary ones

	ErrorKind    FailureKind
	ErrorMessage string
}

// FailureKind classifies why a provider attempt did not produce a usable result.
type FailureKind string

const (
	// FailureAuth means the credential was rejected; the provider is disabled
	// for the remainder of the process.
	FailureAuth FailureKind = "auth"
	// FailureRateLimited means the vendor returned 429; equivalent to quota
	// exhaustion on our side.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureTransient covers network errors, timeouts and 5xx responses.
	FailureTransient FailureKind = "transient"
	// FailureInvalidResponse means the vendor reported success but the payload
	// was unusable (malformed JSON, empty content).
	FailureInvalidResponse FailureKind = "invalid_response"
	// FailureExhausted is produced by the router, never by an adapter: every
	// provider in the category was ineligible or failed.
	FailureExhausted FailureKind = "all_providers_exhausted"
)

// Failure is the typed error every adapter raises on an unusable attempt.
type Failure struct {
	Kind     FailureKind
	Provider string
	Message  string
	Err      error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Provider, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s", f.Provider, f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a typed failure for the given provider.
func NewFailure(kind FailureKind, providerName, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Provider: providerName, Message: fmt.Sprintf(format, args...)}
}

// WrapFailure attaches a kind and provider to an underlying transport error.
func WrapFailure(kind FailureKind, providerName string, err error) *Failure {
	return &Failure{Kind: kind, Provider: providerName, Err: err}
}

// KindOf extracts the failure kind from an adapter error. Unknown errors
// (context cancellation, plain transport errors) classify as transient.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureTransient
}

// ClassifyStatus maps a non-2xx vendor status code onto the failure taxonomy.
func ClassifyStatus(code int) FailureKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return FailureAuth
	case code == http.StatusTooManyRequests:
		return FailureRateLimited
	default:
		return FailureTransient
	}
}

// Adapter is implemented once per (provider, category) pair. Invoke translates
// the normalized request into the vendor's wire format, calls it, and either
// returns a normalized response or raises a *Failure. Adapters never return
// success with empty content.
type Adapter interface {
	Invoke(ctx context.Context, req *Request) (*Response, error)
	Name() string
	Category() Category
	Models() []string
}

// Descriptor is the identity and routing policy for one provider within one
// category. Usage bookkeeping lives in the quota ledger, keyed by Name.
type Descriptor struct {
	Name     string
	Category Category
	Priority int // lower tried first; ties broken by registration order
	Capacity int // max calls per quota window
	Enabled  bool
	Models   []string
}
