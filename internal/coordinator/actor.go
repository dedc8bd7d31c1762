package coordinator

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/park285/matrix-duel/internal/room"
)

type actionKind int

const (
	actJoin actionKind = iota
	actPick
	actRestart
	actLeave
	actDetach
	actDisconnect
	actAdvance
	actGrace
	actSnapshot
	actReap
)

func (k actionKind) String() string {
	switch k {
	case actJoin:
		return "join"
	case actPick:
		return "pick"
	case actRestart:
		return "restart"
	case actLeave:
		return "leave"
	case actDetach:
		return "detach"
	case actDisconnect:
		return "disconnect"
	case actAdvance:
		return "advance"
	case actGrace:
		return "grace"
	case actSnapshot:
		return "snapshot"
	case actReap:
		return "reap"
	}
	return "unknown"
}

type action struct {
	kind  actionKind
	role  room.Role
	who   room.Identity
	index int
	adv   room.Advance
	grace room.Grace
	reply chan result
}

type result struct {
	err  error
	snap room.Snapshot
}

var errGone = errf("room actor gone")

const inboxSize = 64

// roomActor owns one room. Only run touches a.room.
type roomActor struct {
	id   string
	c    *Coordinator
	room *room.Room

	inbox    chan action
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	summary  atomic.Pointer[room.Summary]
}

func newRoomActor(c *Coordinator, r *room.Room) *roomActor {
	a := &roomActor{
		id:    r.ID,
		c:     c,
		room:  r,
		inbox: make(chan action, inboxSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	a.publish()
	return a
}

func (a *roomActor) Summary() room.Summary { return *a.summary.Load() }

// publish refreshes the summary read by room listings.
func (a *roomActor) publish() {
	s := a.room.Summary()
	a.summary.Store(&s)
}

func (a *roomActor) stop() { a.stopOnce.Do(func() { close(a.quit) }) }

func (a *roomActor) run() {
	defer close(a.done)
	for {
		select {
		case act := <-a.inbox:
			res, deleted := a.handle(act)
			a.publish()
			if act.reply != nil {
				act.reply <- res
			}
			if deleted {
				a.c.drop(a)
				return
			}
		case <-a.quit:
			return
		}
	}
}

// call posts act and waits for its result.
func (a *roomActor) call(ctx context.Context, act action) (result, error) {
	act.reply = make(chan result, 1)
	select {
	case a.inbox <- act:
	case <-a.done:
		return result{}, errGone
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-act.reply:
		return res, nil
	case <-a.done:
		// the reply is sent before done closes when the action was handled
		select {
		case res := <-act.reply:
			return res, nil
		default:
			return result{}, errGone
		}
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// post delivers act without waiting; dropped once the actor is gone.
func (a *roomActor) post(act action) {
	select {
	case a.inbox <- act:
	case <-a.done:
	}
}

func (a *roomActor) handle(act action) (res result, deleted bool) {
	defer func() {
		if p := recover(); p != nil {
			a.c.log.Error("room_handler_panic",
				zap.String("room", a.id),
				zap.String("action", act.kind.String()),
				zap.Any("panic", p),
				zap.Stack("stack"))
			res = result{err: room.ErrInternal}
			deleted = false
			a.c.reject(nil, act, room.ErrInternal)
		}
	}()

	env := room.Env{Now: a.c.clock.Now(), Dealer: a.c.dealer}
	var (
		out room.Outcome
		err error
	)
	switch act.kind {
	case actJoin:
		out, err = a.room.Join(env, act.role, act.who)
	case actPick:
		out, err = a.room.Pick(env, act.role, act.who, act.index)
	case actRestart:
		out, err = a.room.Restart(env, act.who)
	case actLeave:
		out = a.room.Leave(act.who)
	case actDetach:
		if a.c.roomOf(act.who) == a.id {
			// who came back here after moving away
			return result{}, false
		}
		out = a.room.Leave(act.who)
	case actDisconnect:
		out = a.room.Disconnect(env, act.who)
	case actAdvance:
		out = a.room.Advance(env, act.adv)
	case actGrace:
		out = a.room.GraceExpired(act.grace)
		if len(out.Events) > 0 || out.Deleted {
			a.c.log.Info("grace_expire", zap.String("room", a.id), zap.String("role", string(act.grace.Role)))
		}
	case actSnapshot:
		return result{snap: a.room.Snapshot()}, false
	case actReap:
		if a.room.State != room.StateEmpty || a.room.Occupants() > 0 {
			return result{}, false
		}
		a.c.log.Info("room_reap", zap.String("room", a.id))
		return result{}, true
	}

	if err != nil {
		a.c.log.Debug("room_action_rejected",
			zap.String("room", a.id),
			zap.String("action", act.kind.String()),
			zap.String("identity", string(act.who)),
			zap.Error(err))
		a.c.reject(a.room, act, err)
		return result{err: err}, false
	}
	// listings reflect the outcome before its events go out
	a.publish()
	a.c.commit(a, out)
	return result{}, out.Deleted
}
