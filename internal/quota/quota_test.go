package quota

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger(t *testing.T, window time.Duration) (*Ledger, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewLedger(window, clk.Now), clk
}

func TestConsume_StopsAtCapacity(t *testing.T) {
	l, _ := newTestLedger(t, time.Hour)
	if err := l.Register("mistral", 3, true); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !l.Consume("mistral") {
			t.Fatalf("Consume %d should succeed", i+1)
		}
	}
	if l.Consume("mistral") {
		t.Error("Consume past capacity should fail")
	}
	if l.Eligible("mistral") {
		t.Error("provider at capacity should not be eligible")
	}
}

func TestLazyReset(t *testing.T) {
	l, clk := newTestLedger(t, time.Hour)
	l.Register("mistral", 1, true)

	if !l.Consume("mistral") {
		t.Fatal("first Consume should succeed")
	}
	if l.Consume("mistral") {
		t.Fatal("second Consume should fail within the window")
	}

	clk.Advance(time.Hour + time.Minute)

	if !l.Eligible("mistral") {
		t.Error("provider should be eligible again after window reset")
	}
	if !l.Consume("mistral") {
		t.Error("Consume should succeed after window reset")
	}

	st, ok := l.StatusOf("mistral")
	if !ok {
		t.Fatal("StatusOf should find the provider")
	}
	if st.Remaining != 0 {
		t.Errorf("expected 0 remaining after consuming the new window, got %d", st.Remaining)
	}
}

func TestDisable_SurvivesReset(t *testing.T) {
	l, clk := newTestLedger(t, time.Hour)
	l.Register("mistral", 5, true)
	l.Disable("mistral")

	if l.Eligible("mistral") {
		t.Error("disabled provider should not be eligible")
	}
	clk.Advance(2 * time.Hour)
	if l.Consume("mistral") {
		t.Error("window reset must not re-enable a disabled provider")
	}
}

func TestConsume_UnknownProvider(t *testing.T) {
	l, _ := newTestLedger(t, time.Hour)
	if l.Consume("ghost") {
		t.Error("unknown provider should never consume")
	}
	if l.Eligible("ghost") {
		t.Error("unknown provider should never be eligible")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	l, _ := newTestLedger(t, time.Hour)
	l.Register("mistral", 1, true)
	if err := l.Register("mistral", 1, true); err == nil {
		t.Error("duplicate Register should error")
	}
}

func TestConsume_ConcurrentNeverOvercommits(t *testing.T) {
	const capacity = 7
	const callers = 50

	l, _ := newTestLedger(t, time.Hour)
	l.Register("mistral", capacity, true)

	var successes int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.Consume("mistral") {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != capacity {
		t.Errorf("expected exactly %d successful consumes, got %d", capacity, successes)
	}
}

func TestRefund_RestoresUnclaimedUnit(t *testing.T) {
	l, _ := newTestLedger(t, time.Hour)
	l.Register("mistral", 1, true)

	if !l.Consume("mistral") {
		t.Fatal("first Consume should succeed")
	}
	l.Refund("mistral")

	if !l.Consume("mistral") {
		t.Error("Consume should succeed again after a refund")
	}

	// Refunding with nothing consumed must not create phantom capacity.
	l.Refund("mistral")
	l.Refund("mistral")
	if !l.Consume("mistral") {
		t.Fatal("refund of the spent unit should restore exactly one Consume")
	}
	if l.Consume("mistral") {
		t.Error("repeated refunds must not push usage below zero")
	}

	// Unknown providers are a no-op.
	l.Refund("ghost")
}

func TestSnapshot_RegistrationOrder(t *testing.T) {
	l, _ := newTestLedger(t, time.Hour)
	l.Register("mistral", 2, true)
	l.Register("openrouter", 5, true)
	l.Register("elevenlabs", 3, false)

	snap := l.Snapshot()
	want := []string{"mistral", "openrouter", "elevenlabs"}
	if len(snap) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(snap))
	}
	for i, name := range want {
		if snap[i].Name != name {
			t.Errorf("snapshot[%d] = %s, want %s", i, snap[i].Name, name)
		}
	}
	if snap[2].Available {
		t.Error("disabled provider should report unavailable")
	}
}
