package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/fusesearch/fuse-search/internal/pkg/logger"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := New("test-upstream", Config{Threshold: threshold, Cooldown: cooldown}, logger.Discard())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		if !b.CanExecute() {
			t.Fatalf("call %d: expected closed breaker to allow execution", i)
		}
		b.RecordFailure()
	}

	if b.State() != StateClosed {
		t.Errorf("expected closed after 4 failures, got %s", b.State())
	}

	b.RecordFailure() // fifth consecutive failure

	if b.State() != StateOpen {
		t.Errorf("expected open after 5 failures, got %s", b.State())
	}
	if b.CanExecute() {
		t.Error("expected open breaker to reject execution")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
	if got := b.FailureCount(); got != 2 {
		t.Errorf("expected failure count 2, got %d", got)
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	// Before cooldown: still rejecting
	*now = now.Add(30 * time.Second)
	if b.CanExecute() {
		t.Error("expected rejection before cooldown elapses")
	}

	// After cooldown: exactly one trial allowed
	*now = now.Add(31 * time.Second)
	if !b.CanExecute() {
		t.Fatal("expected trial call after cooldown")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("expected half_open, got %s", b.State())
	}
	if b.CanExecute() {
		t.Error("expected second call during trial to be rejected")
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*now = now.Add(2 * time.Minute)

	if !b.CanExecute() {
		t.Fatal("expected trial call")
	}
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Errorf("expected closed after trial success, got %s", b.State())
	}
	if !b.CanExecute() {
		t.Error("expected closed breaker to allow execution")
	}
}

func TestBreaker_HalfOpenFailureReopensAndRestartsClock(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*now = now.Add(2 * time.Minute)

	if !b.CanExecute() {
		t.Fatal("expected trial call")
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("expected open after trial failure, got %s", b.State())
	}

	// The cooldown clock restarted at the trial failure.
	*now = now.Add(30 * time.Second)
	if b.CanExecute() {
		t.Error("expected rejection, cooldown clock should have restarted")
	}

	*now = now.Add(31 * time.Second)
	if !b.CanExecute() {
		t.Error("expected trial call after restarted cooldown")
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := New("concurrent", Config{Threshold: 5, Cooldown: time.Minute}, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.CanExecute()
			if n%2 == 0 {
				b.RecordFailure()
			} else {
				b.RecordSuccess()
			}
			b.State()
		}(i)
	}
	wg.Wait()
}

func TestRegistry_OneBreakerPerUpstream(t *testing.T) {
	r := NewRegistry(Config{Threshold: 2, Cooldown: time.Minute}, logger.Discard())

	a := r.Get("brave")
	b := r.Get("serper")
	if a == b {
		t.Fatal("expected distinct breakers per upstream")
	}
	if r.Get("brave") != a {
		t.Error("expected the same breaker instance on repeat lookup")
	}

	a.RecordFailure()
	a.RecordFailure()

	states := r.States()
	if states["brave"] != StateOpen {
		t.Errorf("expected brave open, got %s", states["brave"])
	}
	if states["serper"] != StateClosed {
		t.Errorf("expected serper closed, got %s", states["serper"])
	}

	r.ResetAll()
	if r.Get("brave").State() != StateClosed {
		t.Error("expected reset to close all breakers")
	}
}
