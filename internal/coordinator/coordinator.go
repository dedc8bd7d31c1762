// Package coordinator runs every live room as a serialised actor and wires the
// round machine to timers, the broadcast hub and the game archive.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/park285/matrix-duel/internal/lobby"
	"github.com/park285/matrix-duel/internal/room"
	"github.com/park285/matrix-duel/internal/sched"
)

// Broadcaster delivers events. Membership follows seat changes.
type Broadcaster interface {
	Join(roomID string, who room.Identity)
	Leave(roomID string, who room.Identity)
	ToRoom(roomID string, ev room.Event)
	ToIdentity(who room.Identity, ev room.Event)
}

// Archive stores finished games.
type Archive interface {
	SaveGame(ctx context.Context, rec *room.GameRecord) error
}

// Messages renders human-readable text for error codes.
type Messages interface {
	Render(key string, data any) (string, error)
}

type Settings struct {
	RevealDelay time.Duration
	GraceDelay  time.Duration
	// EmptyRoomTTL reaps a room nobody has joined; zero keeps it forever.
	EmptyRoomTTL time.Duration
}

var ErrClosed = errf("coordinator closed")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

const archiveTimeout = 5 * time.Second

type Coordinator struct {
	reg      *lobby.Registry
	dealer   room.Dealer
	bc       Broadcaster
	settings Settings

	clock   clockwork.Clock
	timers  *sched.Scheduler
	archive Archive
	msgs    Messages
	log     *zap.Logger

	mu    sync.Mutex
	where map[room.Identity]string

	bg     sync.WaitGroup
	closed atomic.Bool
}

type Option func(*Coordinator)

func WithClock(c clockwork.Clock) Option { return func(co *Coordinator) { co.clock = c } }
func WithArchive(a Archive) Option       { return func(co *Coordinator) { co.archive = a } }
func WithMessages(m Messages) Option     { return func(co *Coordinator) { co.msgs = m } }
func WithLogger(l *zap.Logger) Option    { return func(co *Coordinator) { co.log = l } }

func New(reg *lobby.Registry, dealer room.Dealer, bc Broadcaster, settings Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:      reg,
		dealer:   dealer,
		bc:       bc,
		settings: settings,
		clock:    clockwork.NewRealClock(),
		log:      zap.NewNop(),
		where:    make(map[room.Identity]string),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.timers = sched.New(c.clock)
	return c
}

func (c *Coordinator) build(id string) lobby.Handle {
	a := newRoomActor(c, room.New(id, c.clock.Now()))
	go a.run()
	if ttl := c.settings.EmptyRoomTTL; ttl > 0 {
		c.timers.Schedule(reapKey(id), ttl, func() {
			a.post(action{kind: actReap})
		})
	}
	return a
}

// CreateRoom mints an empty room for requester, subject to the creation cooldown.
func (c *Coordinator) CreateRoom(ctx context.Context, requester string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	id, _, err := c.reg.Create(ctx, requester, c.build)
	return id, err
}

func (c *Coordinator) ListRooms() []room.Summary { return c.reg.List() }

// Rooms is the number of live rooms, listed or not.
func (c *Coordinator) Rooms() int { return c.reg.Len() }

// Join seats who in the room, creating it if the id is free.
// Rejections are reported to who; the returned error is informational.
func (c *Coordinator) Join(ctx context.Context, rawID, rawRole string, who room.Identity) error {
	id, err := lobby.NormalizeID(rawID)
	if err != nil {
		c.Reject(who, err)
		return err
	}
	role, err := room.ParseRole(rawRole)
	if err != nil {
		c.Reject(who, err)
		return err
	}
	for attempt := 0; attempt < 3; attempt++ {
		if c.closed.Load() {
			return ErrClosed
		}
		h, _ := c.reg.GetOrCreate(id, c.build)
		res, err := h.(*roomActor).call(ctx, action{kind: actJoin, role: role, who: who})
		if errors.Is(err, errGone) {
			// raced with deletion; the next GetOrCreate builds a fresh room
			continue
		}
		if err != nil {
			return err
		}
		return res.err
	}
	c.Reject(who, room.ErrRoomNotFound)
	return room.ErrRoomNotFound
}

// Pick submits who's index for role in the room.
func (c *Coordinator) Pick(ctx context.Context, rawID string, role room.Role, who room.Identity, index int) error {
	return c.dispatch(ctx, rawID, action{kind: actPick, role: role, who: who, index: index})
}

func (c *Coordinator) Restart(ctx context.Context, rawID string, who room.Identity) error {
	return c.dispatch(ctx, rawID, action{kind: actRestart, who: who})
}

func (c *Coordinator) Leave(ctx context.Context, rawID string, who room.Identity) error {
	return c.dispatch(ctx, rawID, action{kind: actLeave, who: who})
}

// Disconnect starts the grace period for every seat who holds.
func (c *Coordinator) Disconnect(ctx context.Context, who room.Identity) {
	id := c.roomOf(who)
	if id == "" {
		return
	}
	h, ok := c.reg.Get(id)
	if !ok {
		c.unbind(who, id)
		return
	}
	if _, err := h.(*roomActor).call(ctx, action{kind: actDisconnect, who: who}); err != nil && !errors.Is(err, errGone) {
		c.log.Warn("disconnect_error", zap.String("room", id), zap.String("identity", string(who)), zap.Error(err))
	}
}

// Snapshot returns the public state of a room.
func (c *Coordinator) Snapshot(ctx context.Context, rawID string) (room.Snapshot, error) {
	id, err := lobby.NormalizeID(rawID)
	if err != nil {
		return room.Snapshot{}, err
	}
	h, ok := c.reg.Get(id)
	if !ok {
		return room.Snapshot{}, room.ErrRoomNotFound
	}
	res, err := h.(*roomActor).call(ctx, action{kind: actSnapshot})
	if errors.Is(err, errGone) {
		return room.Snapshot{}, room.ErrRoomNotFound
	}
	if err != nil {
		return room.Snapshot{}, err
	}
	return res.snap, nil
}

func (c *Coordinator) dispatch(ctx context.Context, rawID string, act action) error {
	id, err := lobby.NormalizeID(rawID)
	if err != nil {
		c.reject(nil, act, err)
		return err
	}
	h, ok := c.reg.Get(id)
	if !ok {
		c.reject(nil, act, room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}
	res, err := h.(*roomActor).call(ctx, act)
	if errors.Is(err, errGone) {
		c.reject(nil, act, room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	return res.err
}

// Reject reports err to who as an errorMsg.
func (c *Coordinator) Reject(who room.Identity, err error) {
	c.reject(nil, action{who: who}, err)
}

func (c *Coordinator) reject(r *room.Room, act action, err error) {
	if act.who == "" {
		return
	}
	var re *room.Error
	if !errors.As(err, &re) {
		re = room.ErrInternal
	}
	ev := room.Event{Kind: room.EventErrorMsg, To: act.who, Code: re.Code, Message: c.message(re.Code)}
	if act.kind == actPick {
		ev.Kind = room.EventInvalidPick
	}
	if r != nil {
		ev.Room = r.ID
		if re.WithState {
			s := r.Snapshot()
			ev.Snapshot = &s
		}
	}
	c.bc.ToIdentity(act.who, ev)
}

func (c *Coordinator) message(code string) string {
	if c.msgs == nil {
		return code
	}
	text, err := c.msgs.Render("error."+code, nil)
	if err != nil {
		c.log.Warn("message_render_error", zap.String("code", code), zap.Error(err))
		return code
	}
	return text
}

func (c *Coordinator) roomOf(who room.Identity) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.where[who]
}

// bind records who in id and returns the room it occupied before, if any.
func (c *Coordinator) bind(who room.Identity, id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.where[who]
	c.where[who] = id
	if prev == id {
		return ""
	}
	return prev
}

func (c *Coordinator) unbind(who room.Identity, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.where[who] == id {
		delete(c.where, who)
	}
}

// commit applies a handler outcome for actor a. Runs on a's goroutine.
func (c *Coordinator) commit(a *roomActor, out room.Outcome) {
	for _, who := range out.Left {
		c.bc.Leave(a.id, who)
		c.unbind(who, a.id)
	}
	if out.Joined != "" {
		c.timers.Cancel(reapKey(a.id))
		c.bc.Join(a.id, out.Joined)
		if prev := c.bind(out.Joined, a.id); prev != "" {
			c.bc.Leave(prev, out.Joined)
			c.detach(prev, out.Joined)
		}
	}

	if out.CancelAdvance {
		c.timers.Cancel(advanceKey(a.id))
	}
	for _, role := range out.CancelGrace {
		c.timers.Cancel(graceKey(a.id, role))
	}
	if adv := out.Advance; adv != nil {
		tag := *adv
		c.timers.Schedule(advanceKey(a.id), c.settings.RevealDelay, func() {
			a.post(action{kind: actAdvance, adv: tag})
		})
		c.log.Info("round_resolve", zap.String("room", a.id), zap.Int("round", tag.Round))
	}
	for _, g := range out.Grace {
		g := g
		c.timers.Schedule(graceKey(a.id, g.Role), c.settings.GraceDelay, func() {
			a.post(action{kind: actGrace, grace: g})
		})
		c.log.Info("grace_start", zap.String("room", a.id), zap.String("role", string(g.Role)), zap.Duration("grace", c.settings.GraceDelay))
	}

	for _, ev := range out.Events {
		ev.Room = a.id
		if ev.Code != "" && ev.Message == "" {
			ev.Message = c.message(ev.Code)
		}
		if ev.To == "" {
			c.bc.ToRoom(a.id, ev)
		} else {
			c.bc.ToIdentity(ev.To, ev)
		}
	}

	if rec := out.Record; rec != nil {
		c.log.Info("game_over", zap.String("room", a.id), zap.Int("score_a", rec.Scores.A), zap.Int("score_b", rec.Scores.B), zap.String("winner", rec.Winner))
		c.save(rec)
	}
}

// detach drops who from a room it no longer plays in. The room re-checks the
// binding when the action arrives, so a later return to id wins.
func (c *Coordinator) detach(id string, who room.Identity) {
	h, ok := c.reg.Get(id)
	if !ok {
		return
	}
	go h.(*roomActor).post(action{kind: actDetach, who: who})
	c.log.Info("identity_detach", zap.String("room", id), zap.String("identity", string(who)))
}

func (c *Coordinator) save(rec *room.GameRecord) {
	if c.archive == nil {
		return
	}
	rec.ID = uuid.NewString()
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := c.archive.SaveGame(ctx, rec); err != nil {
			c.log.Warn("archive_save_error", zap.String("room", rec.RoomID), zap.String("game_id", rec.ID), zap.Error(err))
		}
	}()
}

// drop removes a deleted room and its pending timers.
func (c *Coordinator) drop(a *roomActor) {
	c.reg.Remove(a.id, a)
	c.timers.CancelRoom(a.id)
	c.log.Info("room_delete", zap.String("room", a.id))
}

// Close stops every room and waits for pending archive writes.
func (c *Coordinator) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.timers.Stop()
	for _, h := range c.reg.Handles() {
		a := h.(*roomActor)
		a.stop()
		<-a.done
		c.reg.Remove(a.id, a)
	}
	c.bg.Wait()
}

func advanceKey(id string) sched.Key {
	return sched.Key{Room: id, Purpose: sched.PurposeAdvance}
}

func reapKey(id string) sched.Key {
	return sched.Key{Room: id, Purpose: sched.PurposeReap}
}

func graceKey(id string, role room.Role) sched.Key {
	return sched.Key{Room: id, Purpose: sched.PurposeGrace, Role: string(role)}
}
