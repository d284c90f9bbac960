package scheduler

import (
	"context"
	"testing"
	"time"
)

// fakeClock hands out a shared trigger channel so tests decide when timers
// fire.
type fakeClock struct {
	trigger chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{trigger: make(chan time.Time, 1)}
}

func (c *fakeClock) Now() time.Time                         { return time.Unix(0, 0) }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return c.trigger }

func TestScheduleFiresOnClock(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule(10*time.Minute, func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
		t.Fatal("task fired before the clock did")
	case <-time.After(20 * time.Millisecond):
	}

	clock.trigger <- time.Unix(600, 0)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not fire after the clock triggered")
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	defer s.Stop()

	fired := make(chan struct{}, 1)
	id := s.Schedule(time.Minute, func(ctx context.Context) {
		fired <- struct{}{}
	})
	if !s.Cancel(id) {
		t.Fatal("Cancel should report true for a pending task")
	}
	// wait for the task goroutine to observe the cancellation
	deadline := time.Now().Add(time.Second)
	for s.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("cancelled task did not drain")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Cancel(id) {
		t.Error("second Cancel should report false")
	}

	select {
	case clock.trigger <- time.Unix(60, 0):
	default:
	}
	select {
	case <-fired:
		t.Error("cancelled task must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPendingCount(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)
	defer s.Stop()

	if s.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", s.Pending())
	}
	id := s.Schedule(time.Minute, func(ctx context.Context) {})
	if s.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", s.Pending())
	}
	s.Cancel(id)

	deadline := time.Now().Add(time.Second)
	for s.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Pending did not drain after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopCancelsEverything(t *testing.T) {
	clock := newFakeClock()
	s := New(clock, nil)

	fired := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		s.Schedule(time.Hour, func(ctx context.Context) {
			fired <- struct{}{}
		})
	}
	s.Stop()

	select {
	case <-fired:
		t.Error("no task should fire after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after Stop, want 0", s.Pending())
	}
}
