package lobby

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/matrix-duel/internal/room"
)

// Handle is whatever the registry stores per room; it only needs a summary.
type Handle interface {
	Summary() room.Summary
}

// RateLimitedError rejects a creation within the requester's cooldown.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("room creation rate limited, retry after %s", e.RetryAfter)
}

// RetrySeconds rounds RetryAfter up to whole seconds, at least one.
func (e *RateLimitedError) RetrySeconds() int {
	s := int((e.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

var ErrIDSpace = errf("failed to allocate room id")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

const maxIDAttempts = 32

type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]Handle
	limiter Limiter
	gen     func() (string, error)
	log     *zap.Logger
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.log = l } }

// WithIDGenerator replaces the random id source.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.gen = gen }
}

func NewRegistry(limiter Limiter, opts ...Option) *Registry {
	r := &Registry{
		rooms:   make(map[string]Handle),
		limiter: limiter,
		gen:     codeGen,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// LimiterName reports the cooldown backend.
func (r *Registry) LimiterName() string {
	if r.limiter == nil {
		return "none"
	}
	return r.limiter.Name()
}

// Create mints a fresh id for requester and stores build(id) under it.
func (r *Registry) Create(ctx context.Context, requester string, build func(id string) Handle) (string, Handle, error) {
	if r.limiter != nil {
		ok, wait, err := r.limiter.Reserve(ctx, requester)
		switch {
		case err != nil:
			// limiter outage must not block room creation
			r.log.Warn("room_create_limiter_error", zap.String("requester", requester), zap.Error(err))
		case !ok:
			r.log.Info("room_create_limited", zap.String("requester", requester), zap.Duration("retry_after", wait))
			return "", nil, &RateLimitedError{RetryAfter: wait}
		}
	}

	for i := 0; i < maxIDAttempts; i++ {
		id, err := r.gen()
		if err != nil {
			return "", nil, err
		}
		r.mu.Lock()
		if _, taken := r.rooms[id]; taken {
			r.mu.Unlock()
			continue
		}
		h := build(id)
		r.rooms[id] = h
		r.mu.Unlock()
		r.log.Info("room_create", zap.String("room", id), zap.String("requester", requester))
		return id, h, nil
	}
	return "", nil, ErrIDSpace
}

// GetOrCreate returns the room under id, building it when absent.
func (r *Registry) GetOrCreate(id string, build func(id string) Handle) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return h, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.rooms[id]; ok {
		return h, false
	}
	h = build(id)
	r.rooms[id] = h
	r.log.Info("room_create", zap.String("room", id), zap.String("requester", "join"))
	return h, true
}

func (r *Registry) Get(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.rooms[id]
	return h, ok
}

// Delete removes id; idempotent.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}

// Remove deletes id only while it still maps to h.
func (r *Registry) Remove(id string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[id]; ok && cur == h {
		delete(r.rooms, id)
		return true
	}
	return false
}

// List returns occupied rooms, newest first.
func (r *Registry) List() []room.Summary {
	r.mu.RLock()
	out := make([]room.Summary, 0, len(r.rooms))
	for _, h := range r.rooms {
		s := h.Summary()
		if s.Occupants() == 0 {
			continue
		}
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Handles snapshots every stored handle.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.rooms))
	for _, h := range r.rooms {
		out = append(out, h)
	}
	return out
}
