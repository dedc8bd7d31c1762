package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	s := New(fc)
	t.Cleanup(s.Stop)
	return s, fc
}

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.Load() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("count = %d, want %d", n.Load(), want)
}

func TestScheduleFires(t *testing.T) {
	s, fc := newTestScheduler(t)
	var n atomic.Int32
	key := Key{Room: "R", Purpose: PurposeAdvance}
	s.Schedule(key, time.Second, func() { n.Add(1) })
	if !s.Pending(key) {
		t.Fatalf("expected pending task")
	}
	fc.Advance(999 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("fired early")
	}
	fc.Advance(time.Millisecond)
	waitCount(t, &n, 1)
	if s.Pending(key) {
		t.Fatalf("fired task should be cleared")
	}
}

func TestRescheduleReplaces(t *testing.T) {
	s, fc := newTestScheduler(t)
	var first, second atomic.Int32
	key := Key{Room: "R", Purpose: PurposeGrace, Role: "A"}
	s.Schedule(key, time.Second, func() { first.Add(1) })
	s.Schedule(key, 2*time.Second, func() { second.Add(1) })
	fc.Advance(3 * time.Second)
	waitCount(t, &second, 1)
	if first.Load() != 0 {
		t.Fatalf("replaced task must not fire")
	}
}

func TestCancelAndCancelRoom(t *testing.T) {
	s, fc := newTestScheduler(t)
	var n atomic.Int32
	a := Key{Room: "R1", Purpose: PurposeGrace, Role: "A"}
	b := Key{Room: "R1", Purpose: PurposeAdvance}
	c := Key{Room: "R2", Purpose: PurposeAdvance}
	for _, k := range []Key{a, b, c} {
		s.Schedule(k, time.Second, func() { n.Add(1) })
	}
	s.Cancel(a)
	s.CancelRoom("R1")
	if s.Len() != 1 || !s.Pending(c) {
		t.Fatalf("expected only R2 pending, len=%d", s.Len())
	}
	fc.Advance(time.Second)
	waitCount(t, &n, 1)
}

func TestStopRefusesWork(t *testing.T) {
	s, fc := newTestScheduler(t)
	s.Stop()
	var n atomic.Int32
	s.Schedule(Key{Room: "R"}, time.Millisecond, func() { n.Add(1) })
	fc.Advance(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	<-ctx.Done()
	if n.Load() != 0 || s.Len() != 0 {
		t.Fatalf("stopped scheduler ran a task")
	}
}
