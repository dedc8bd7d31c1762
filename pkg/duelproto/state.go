package duelproto

// Cell is one payoff pair: [A, B].
type Cell [2]int

type Board [3][3]Cell

type Seats struct {
	A bool `json:"A"`
	B bool `json:"B"`
}

type Scores struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Picks holds this round's indices; null means not yet picked.
type Picks struct {
	A *int `json:"A"`
	B *int `json:"B"`
}

// RoomState is the full public snapshot of a room.
type RoomState struct {
	RoomID   string `json:"roomId"`
	State    string `json:"state"`
	Occupied Seats  `json:"occupied"`
	Round    int    `json:"round"`
	Scores   Scores `json:"scores"`
	Picks    Picks  `json:"picks"`
	Board    *Board `json:"board"`
	Active   bool   `json:"active"`
}

type Chosen struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type RoundResult struct {
	Round  int    `json:"round"`
	Chosen Chosen `json:"chosen"`
	Delta  Scores `json:"delta"`
	Scores Scores `json:"scores"`
	Board  Board  `json:"board"`
}

type GameOver struct {
	Scores Scores `json:"scores"`
	Winner string `json:"winner"`
}

// Notice covers waiting, opponentLeft and opponentDisconnected.
type Notice struct {
	RoomID string `json:"roomId,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ErrorMsg reports a rejected action. State is set when the client should resync.
type ErrorMsg struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	State   *RoomState `json:"state,omitempty"`
}
