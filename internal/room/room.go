package room

import (
	"time"

	"github.com/park285/matrix-duel/internal/board"
)

// Dealer produces the next board for a score differential (A minus B).
type Dealer interface {
	Deal(scoreDiff int) board.Board
}

type DealerFunc func(scoreDiff int) board.Board

func (f DealerFunc) Deal(scoreDiff int) board.Board { return f(scoreDiff) }

// Env is what handlers need from the outside world.
type Env struct {
	Now    time.Time
	Dealer Dealer
}

// Room is one game session. It is not safe for concurrent use; the owner
// serialises every handler call.
type Room struct {
	ID        string
	CreatedAt time.Time
	State     State
	Round     int
	Scores    Scores
	Picks     Picks
	Board     *board.Board
	Seats     map[Role]Identity
	Offline   map[Role]time.Time
	Epoch     uint64
	StartedAt time.Time
	History   []RoundRecord
}

func New(id string, now time.Time) *Room {
	return &Room{
		ID:        id,
		CreatedAt: now,
		State:     StateEmpty,
		Seats:     make(map[Role]Identity, 2),
		Offline:   make(map[Role]time.Time, 2),
	}
}

func (r *Room) Occupied(role Role) bool {
	_, ok := r.Seats[role]
	return ok
}

func (r *Room) Occupants() int { return len(r.Seats) }

// InProgress is true while a game is being played, including the reveal delay.
func (r *Room) InProgress() bool {
	return r.State == StateActive || r.State == StateResolving
}

func (r *Room) rolesOf(who Identity) []Role {
	var out []Role
	for _, role := range Roles {
		if id, ok := r.Seats[role]; ok && id == who {
			out = append(out, role)
		}
	}
	return out
}

// Holds reports whether who sits in any seat.
func (r *Room) Holds(who Identity) bool { return len(r.rolesOf(who)) > 0 }

func (r *Room) Snapshot() Snapshot {
	s := Snapshot{
		RoomID:   r.ID,
		State:    r.State,
		Occupied: Occupancy{A: r.Occupied(RoleA), B: r.Occupied(RoleB)},
		Round:    r.Round,
		Scores:   r.Scores,
		Picks:    r.Picks.clone(),
		Active:   r.InProgress(),
	}
	if r.Board != nil {
		b := *r.Board
		s.Board = &b
	}
	return s
}

func (r *Room) Summary() Summary {
	s := Summary{
		ID:        r.ID,
		Occupied:  Occupancy{A: r.Occupied(RoleA), B: r.Occupied(RoleB)},
		Active:    r.InProgress(),
		CreatedAt: r.CreatedAt,
	}
	for _, role := range Roles {
		if !r.Occupied(role) {
			s.OpenRole = role
			break
		}
	}
	return s
}

func (r *Room) snapshotEvent(kind EventKind, to Identity) Event {
	s := r.Snapshot()
	return Event{Kind: kind, To: to, Snapshot: &s}
}

func (r *Room) startGame(env Env, b board.Board, out *Outcome) {
	r.State = StateActive
	r.Round = 1
	r.Scores = Scores{}
	r.Picks = Picks{}
	r.History = nil
	r.StartedAt = env.Now
	r.Epoch++
	r.Board = &b
	out.CancelAdvance = true
	out.emit(r.snapshotEvent(EventGameStart, ""))
}

// reset drops any game in flight and returns to Waiting (or Empty).
func (r *Room) reset(out *Outcome) {
	if r.Occupants() == 0 {
		r.State = StateEmpty
	} else {
		r.State = StateWaiting
	}
	r.Round = 0
	r.Scores = Scores{}
	r.Picks = Picks{}
	r.Board = nil
	r.History = nil
	r.StartedAt = time.Time{}
	r.Epoch++
	for _, role := range Roles {
		if _, ok := r.Offline[role]; ok {
			delete(r.Offline, role)
			out.CancelGrace = append(out.CancelGrace, role)
		}
	}
	out.CancelAdvance = true
}

func (r *Room) record(now time.Time) *GameRecord {
	seats := make(map[Role]Identity, len(r.Seats))
	for k, v := range r.Seats {
		seats[k] = v
	}
	rounds := make([]RoundRecord, len(r.History))
	copy(rounds, r.History)
	return &GameRecord{
		RoomID:    r.ID,
		Seats:     seats,
		Rounds:    rounds,
		Scores:    r.Scores,
		Winner:    r.Scores.Winner(),
		StartedAt: r.StartedAt,
		EndedAt:   now,
	}
}
