package room

import (
	"time"

	"github.com/park285/matrix-duel/internal/board"
)

// Role names a seat. A chooses rows, B chooses columns.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

var Roles = [2]Role{RoleA, RoleB}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleA, RoleB:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

func (r Role) Other() Role {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

// State is the round lifecycle of a room.
type State string

const (
	StateEmpty     State = "EMPTY"
	StateWaiting   State = "WAITING"
	StateActive    State = "ACTIVE"
	StateResolving State = "RESOLVING"
	StateFinished  State = "FINISHED"
)

// Rounds per game.
const Rounds = 9

// Identity is a stable session identity, compared by value.
type Identity string

type Scores struct {
	A int `json:"A"`
	B int `json:"B"`
}

func (s Scores) Winner() string {
	switch {
	case s.A > s.B:
		return string(RoleA)
	case s.B > s.A:
		return string(RoleB)
	}
	return WinnerDraw
}

const WinnerDraw = "DRAW"

// Picks holds this round's selections; nil means not yet picked.
type Picks struct {
	Row *int `json:"A"`
	Col *int `json:"B"`
}

func (p Picks) of(role Role) *int {
	if role == RoleA {
		return p.Row
	}
	return p.Col
}

func (p *Picks) set(role Role, idx int) {
	v := idx
	if role == RoleA {
		p.Row = &v
	} else {
		p.Col = &v
	}
}

func (p Picks) complete() bool { return p.Row != nil && p.Col != nil }

func (p Picks) clone() Picks {
	var out Picks
	if p.Row != nil {
		v := *p.Row
		out.Row = &v
	}
	if p.Col != nil {
		v := *p.Col
		out.Col = &v
	}
	return out
}

// RoundRecord is one resolved round, kept for the game archive.
type RoundRecord struct {
	Round  int        `json:"round"`
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Delta  board.Cell `json:"delta"`
	Scores Scores     `json:"scores"`
}

// GameRecord describes a finished game.
type GameRecord struct {
	ID        string
	RoomID    string
	Seats     map[Role]Identity
	Rounds    []RoundRecord
	Scores    Scores
	Winner    string
	StartedAt time.Time
	EndedAt   time.Time
}

type Occupancy struct {
	A bool `json:"A"`
	B bool `json:"B"`
}

// Snapshot is the public view of a room sent to clients.
type Snapshot struct {
	RoomID   string       `json:"roomId"`
	State    State        `json:"state"`
	Occupied Occupancy    `json:"occupied"`
	Round    int          `json:"round"`
	Scores   Scores       `json:"scores"`
	Picks    Picks        `json:"picks"`
	Board    *board.Board `json:"board"`
	Active   bool         `json:"active"`
}

// Summary is a lobby listing row.
type Summary struct {
	ID        string
	OpenRole  Role
	Occupied  Occupancy
	Active    bool
	CreatedAt time.Time
}

func (s Summary) Occupants() int {
	n := 0
	if s.Occupied.A {
		n++
	}
	if s.Occupied.B {
		n++
	}
	return n
}
