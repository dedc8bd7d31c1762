package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/park285/matrix-duel/internal/board"
	"github.com/park285/matrix-duel/internal/room"
	"github.com/park285/matrix-duel/pkg/duelproto"
)

// encode renders ev as a framed wire message. Notices carry ev.Room, falling back to roomID.
func encode(roomID string, ev room.Event) ([]byte, error) {
	if ev.Room != "" {
		roomID = ev.Room
	}
	var payload any
	switch ev.Kind {
	case room.EventRoomState, room.EventGameStart, room.EventNextRound:
		if ev.Snapshot != nil {
			payload = stateOf(*ev.Snapshot)
		}
	case room.EventRoundResult:
		if ev.Result == nil {
			return nil, fmt.Errorf("%s without result", ev.Kind)
		}
		r := ev.Result
		payload = duelproto.RoundResult{
			Round:  r.Round,
			Chosen: duelproto.Chosen{Row: r.Row, Col: r.Col},
			Delta:  duelproto.Scores{A: r.Delta.A, B: r.Delta.B},
			Scores: scoresOf(r.Scores),
			Board:  boardOf(r.Board),
		}
	case room.EventGameOver:
		if ev.Over == nil {
			return nil, fmt.Errorf("%s without scores", ev.Kind)
		}
		payload = duelproto.GameOver{Scores: scoresOf(ev.Over.Scores), Winner: ev.Over.Winner}
	case room.EventInvalidPick, room.EventErrorMsg:
		msg := duelproto.ErrorMsg{Code: ev.Code, Message: ev.Message}
		if ev.Snapshot != nil {
			s := stateOf(*ev.Snapshot)
			msg.State = &s
		}
		payload = msg
	case room.EventWaiting, room.EventOpponentLeft, room.EventOpponentDisconnected:
		payload = duelproto.Notice{RoomID: roomID, Role: string(ev.Role)}
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	env, err := duelproto.NewEnvelope(string(ev.Kind), payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func stateOf(s room.Snapshot) duelproto.RoomState {
	out := duelproto.RoomState{
		RoomID:   s.RoomID,
		State:    string(s.State),
		Occupied: duelproto.Seats{A: s.Occupied.A, B: s.Occupied.B},
		Round:    s.Round,
		Scores:   scoresOf(s.Scores),
		Picks:    duelproto.Picks{A: s.Picks.Row, B: s.Picks.Col},
		Active:   s.Active,
	}
	if s.Board != nil {
		b := boardOf(*s.Board)
		out.Board = &b
	}
	return out
}

func scoresOf(s room.Scores) duelproto.Scores {
	return duelproto.Scores{A: s.A, B: s.B}
}

func boardOf(b board.Board) duelproto.Board {
	var out duelproto.Board
	for r := range b {
		for c := range b[r] {
			out[r][c] = duelproto.Cell{b[r][c].A, b[r][c].B}
		}
	}
	return out
}

func summaryOf(s room.Summary) duelproto.RoomSummary {
	return duelproto.RoomSummary{
		RoomID:    s.ID,
		OpenRole:  string(s.OpenRole),
		Occupied:  duelproto.Seats{A: s.Occupied.A, B: s.Occupied.B},
		Players:   s.Occupants(),
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
	}
}
