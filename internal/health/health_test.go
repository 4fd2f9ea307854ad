package health

import (
	"context"
	"testing"
	"time"

	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
	"github.com/adcanvas/ai-router/internal/quota"
	"github.com/adcanvas/ai-router/internal/requestlog"
	"github.com/adcanvas/ai-router/internal/router"
)

type fakeAdapter struct {
	name     string
	category provider.Category
	content  string
	url      string
	err      error
}

func (f *fakeAdapter) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Success: true, Content: f.content, URL: f.url, Usage: 5}, nil
}

func (f *fakeAdapter) Name() string                { return f.name }
func (f *fakeAdapter) Category() provider.Category { return f.category }
func (f *fakeAdapter) Models() []string            { return nil }

func fixture(t *testing.T) (*router.Router, *artifact.Store, *requestlog.Buffer) {
	t.Helper()
	sink := &requestlog.Buffer{}
	r := router.New(quota.NewLedger(time.Hour, nil), sink, nil)
	store, err := artifact.NewStore(t.TempDir(), "/outputs")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return r, store, sink
}

func mustRegister(t *testing.T, r *router.Router, a provider.Adapter, desc provider.Descriptor) {
	t.Helper()
	if err := r.Register(desc, a); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRun_AllPass(t *testing.T) {
	r, store, sink := fixture(t)

	url, err := store.Save("tts", "mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mustRegister(t, r, &fakeAdapter{name: "mistral", category: provider.CategoryChat, content: "ready"},
		provider.Descriptor{Name: "mistral", Category: provider.CategoryChat, Capacity: 10, Enabled: true})
	mustRegister(t, r, &fakeAdapter{name: "elevenlabs", category: provider.CategoryTTS, url: url},
		provider.Descriptor{Name: "elevenlabs", Category: provider.CategoryTTS, Capacity: 10, Enabled: true})

	report := New(r, store, sink, nil).Run(context.Background())
	if !report.Success {
		t.Fatalf("expected overall pass, got %+v", report)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Sample != "ready" {
		t.Errorf("expected chat sample 'ready', got %q", report.Results[0].Sample)
	}
}

// Every probe invocation lands in the attempt log, exactly like user traffic.
func TestRun_ProbesAreLogged(t *testing.T) {
	r, store, sink := fixture(t)

	mustRegister(t, r, &fakeAdapter{name: "mistral", category: provider.CategoryChat, content: "ready"},
		provider.Descriptor{Name: "mistral", Category: provider.CategoryChat, Capacity: 10, Enabled: true})
	mustRegister(t, r,
		&fakeAdapter{name: "openrouter", category: provider.CategoryChat,
			err: provider.NewFailure(provider.FailureTransient, "openrouter", "down")},
		provider.Descriptor{Name: "openrouter", Category: provider.CategoryChat, Priority: 2, Capacity: 10, Enabled: true})

	New(r, store, sink, nil).Run(context.Background())

	recs := sink.Records()
	if len(recs) != 2 {
		t.Fatalf("expected one record per probe invocation, got %d", len(recs))
	}
	if recs[0].Provider != "mistral" || !recs[0].Success {
		t.Errorf("first record should be mistral's success: %+v", recs[0])
	}
	if recs[1].Provider != "openrouter" || recs[1].Success {
		t.Errorf("second record should be openrouter's failure: %+v", recs[1])
	}
	if recs[1].ErrorKind != string(provider.FailureTransient) {
		t.Errorf("expected transient error kind, got %q", recs[1].ErrorKind)
	}
	for _, rec := range recs {
		if rec.RequestID != "healthcheck" {
			t.Errorf("probe record should be tagged healthcheck: %+v", rec)
		}
	}
}

func TestRun_FailedProviderFailsReport(t *testing.T) {
	r, store, sink := fixture(t)
	mustRegister(t, r,
		&fakeAdapter{name: "mistral", category: provider.CategoryChat,
			err: provider.NewFailure(provider.FailureTransient, "mistral", "down")},
		provider.Descriptor{Name: "mistral", Category: provider.CategoryChat, Capacity: 10, Enabled: true})

	report := New(r, store, sink, nil).Run(context.Background())
	if report.Success {
		t.Error("a failing provider must fail the aggregate report")
	}
	if report.Results[0].Error == "" {
		t.Error("failed result must carry the error")
	}
}

func TestRun_MissingArtifactFails(t *testing.T) {
	r, store, sink := fixture(t)
	mustRegister(t, r,
		&fakeAdapter{name: "stability", category: provider.CategoryImage, url: "/outputs/never-written.png"},
		provider.Descriptor{Name: "stability", Category: provider.CategoryImage, Capacity: 10, Enabled: true})

	report := New(r, store, sink, nil).Run(context.Background())
	if report.Success {
		t.Error("missing artifact must fail the probe")
	}
}

func TestRun_ConsumesSharedQuota(t *testing.T) {
	r, store, sink := fixture(t)
	mustRegister(t, r, &fakeAdapter{name: "mistral", category: provider.CategoryChat, content: "ready"},
		provider.Descriptor{Name: "mistral", Category: provider.CategoryChat, Capacity: 1, Enabled: true})

	orch := New(r, store, sink, nil)
	if report := orch.Run(context.Background()); !report.Success {
		t.Fatalf("first run should pass: %+v", report)
	}
	// Second run finds the single quota unit spent by the first probe.
	report := orch.Run(context.Background())
	if report.Success {
		t.Error("health probes must draw from the shared quota pool")
	}
	// The quota-refused probe made no call, so only the first run logged.
	if recs := sink.Records(); len(recs) != 1 {
		t.Errorf("expected 1 record (quota skip logs nothing), got %d", len(recs))
	}
}

func TestRun_DeclaredOnlyProviderIsSkipped(t *testing.T) {
	r, store, sink := fixture(t)
	mustRegister(t, r, nil,
		provider.Descriptor{Name: "make", Category: provider.CategoryAutomation, Capacity: 10, Enabled: true})

	report := New(r, store, sink, nil).Run(context.Background())
	if !report.Success {
		t.Fatalf("declared-only providers must not fail the report: %+v", report)
	}
	if !report.Results[0].Skipped {
		t.Error("declared-only provider should be marked skipped")
	}
	if recs := sink.Records(); len(recs) != 0 {
		t.Errorf("no adapter ran, so the log must stay empty, got %d records", len(recs))
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := "héllo wörld" // multibyte at indexes 1 and 8
	out := truncate(s, 2)
	if out != "h" {
		t.Errorf("expected cut before the split rune, got %q", out)
	}
	if truncate("short", 80) != "short" {
		t.Error("strings within the limit must pass through unchanged")
	}
}
