// Package sched runs cancelable delayed tasks keyed by room, purpose and seat.
package sched

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Purpose string

const (
	PurposeAdvance Purpose = "advance"
	PurposeGrace   Purpose = "grace"
	PurposeReap    Purpose = "reap"
)

// Key identifies one pending task. Scheduling under an existing key replaces it.
type Key struct {
	Room    string
	Purpose Purpose
	Role    string
}

type task struct {
	id    uint64
	timer clockwork.Timer
}

type Scheduler struct {
	clock clockwork.Clock

	mu      sync.Mutex
	seq     uint64
	tasks   map[Key]task
	stopped bool
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, tasks: make(map[Key]task)}
}

// Schedule runs fn after d unless the key is cancelled or rescheduled first.
func (s *Scheduler) Schedule(key Key, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.tasks[key]; ok {
		old.timer.Stop()
	}
	s.seq++
	id := s.seq
	// fake clocks run callbacks while holding their own lock
	t := s.clock.AfterFunc(d, func() { go s.fire(key, id, fn) })
	s.tasks[key] = task{id: id, timer: t}
}

func (s *Scheduler) fire(key Key, id uint64, fn func()) {
	if s.take(key, id) {
		fn()
	}
}

// take claims the task if it is still the current one for key.
func (s *Scheduler) take(key Key, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[key]
	if !ok || cur.id != id {
		return false
	}
	delete(s.tasks, key)
	return true
}

func (s *Scheduler) Cancel(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[key]; ok {
		t.timer.Stop()
		delete(s.tasks, key)
	}
}

// CancelRoom drops every task of a room.
func (s *Scheduler) CancelRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tasks {
		if k.Room == room {
			t.timer.Stop()
			delete(s.tasks, k)
		}
	}
}

func (s *Scheduler) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels everything and refuses new work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, k)
	}
	s.stopped = true
}
