package duelproto

type JoinRoom struct {
	RoomID string `json:"roomId"`
	Role   string `json:"role"`
}

// PickRow is sent by the row chooser. A missing row is rejected as out of range.
type PickRow struct {
	RoomID string `json:"roomId"`
	Row    *int   `json:"row"`
}

type PickCol struct {
	RoomID string `json:"roomId"`
	Col    *int   `json:"col"`
}

// RoomRef carries only a room id (restartGame, leaveRoom).
type RoomRef struct {
	RoomID string `json:"roomId"`
}
