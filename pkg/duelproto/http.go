package duelproto

import "time"

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// RateLimited is the 429 body of create-room; RetryAfter is in seconds.
type RateLimited struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

type RoomSummary struct {
	RoomID    string    `json:"roomId"`
	OpenRole  string    `json:"openRole,omitempty"`
	Occupied  Seats     `json:"occupied"`
	Players   int       `json:"players"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

type Health struct {
	OK             bool     `json:"ok"`
	Fairness       bool     `json:"fairness"`
	RubberBand     bool     `json:"rubberBand"`
	Listen         string   `json:"listen"`
	AllowedOrigins []string `json:"allowedOrigins"`
	Rooms          int      `json:"rooms"`
	Limiter        string   `json:"limiter"`
}

// ErrorResponse is the generic non-2xx body.
type ErrorResponse struct {
	Error string `json:"error"`
}
