// Package duelproto holds the wire format shared by the server and its clients.
package duelproto

import "encoding/json"

// Client to server.
const (
	EventJoinRoom    = "joinRoom"
	EventPickRow     = "pickRow"
	EventPickCol     = "pickCol"
	EventRestartGame = "restartGame"
	EventLeaveRoom   = "leaveRoom"
)

// Server to client.
const (
	EventRoomState            = "roomState"
	EventWaiting              = "waiting"
	EventGameStart            = "gameStart"
	EventInvalidPick          = "invalidPick"
	EventRoundResult          = "roundResult"
	EventNextRound            = "nextRound"
	EventGameOver             = "gameOver"
	EventOpponentLeft         = "opponentLeft"
	EventOpponentDisconnected = "opponentDisconnected"
	EventErrorMsg             = "errorMsg"
)

// Envelope frames every WebSocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

// Decode unmarshals the payload into dst. An empty payload leaves dst untouched.
func (e Envelope) Decode(dst any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, dst)
}
