package room

import (
	"time"

	"github.com/park285/matrix-duel/internal/board"
)

type EventKind string

const (
	EventRoomState            EventKind = "roomState"
	EventWaiting              EventKind = "waiting"
	EventGameStart            EventKind = "gameStart"
	EventInvalidPick          EventKind = "invalidPick"
	EventRoundResult          EventKind = "roundResult"
	EventNextRound            EventKind = "nextRound"
	EventGameOver             EventKind = "gameOver"
	EventOpponentLeft         EventKind = "opponentLeft"
	EventOpponentDisconnected EventKind = "opponentDisconnected"
	EventErrorMsg             EventKind = "errorMsg"
)

// Event is an outbound notification. An empty To addresses everyone seated in
// the room; otherwise only that identity. Room is stamped by the owner on delivery.
type Event struct {
	Kind     EventKind
	To       Identity
	Room     string
	Snapshot *Snapshot
	Result   *RoundResult
	Over     *GameOver
	Role     Role
	Code     string
	Message  string
}

type RoundResult struct {
	Round  int
	Row    int
	Col    int
	Delta  board.Cell
	Scores Scores
	Board  board.Board
}

type GameOver struct {
	Scores Scores
	Winner string
}

// Advance asks for the delayed round transition; Epoch and Round tag it so a
// stale one is ignored.
type Advance struct {
	Epoch uint64
	Round int
}

// Grace asks for a disconnect timer tagged by the drop time.
type Grace struct {
	Role  Role
	Since time.Time
}

// Outcome is everything a handler wants the caller to do after a state change.
type Outcome struct {
	Events        []Event
	Joined        Identity
	Left          []Identity
	Advance       *Advance
	CancelAdvance bool
	Grace         []Grace
	CancelGrace   []Role
	Deleted       bool
	Record        *GameRecord
}

func (o *Outcome) emit(e Event) { o.Events = append(o.Events, e) }

func (o *Outcome) leave(who Identity) {
	for _, l := range o.Left {
		if l == who {
			return
		}
	}
	o.Left = append(o.Left, who)
}
