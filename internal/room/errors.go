package room

// Error is a non-fatal rejection of an action. Code is stable and used as the
// message catalog key; WithState asks the caller to attach a fresh snapshot.
type Error struct {
	Code      string
	WithState bool
}

func (e *Error) Error() string { return e.Code }

var (
	ErrRoomNotFound  = &Error{Code: "room_not_found"}
	ErrInvalidRoomID = &Error{Code: "invalid_room_id"}
	ErrInvalidRole   = &Error{Code: "invalid_role"}
	ErrSeatTaken     = &Error{Code: "seat_taken", WithState: true}
	ErrNotActive     = &Error{Code: "not_active", WithState: true}
	ErrNotYourSeat   = &Error{Code: "not_your_seat", WithState: true}
	ErrBadIndex      = &Error{Code: "bad_index", WithState: true}
	ErrDuplicatePick = &Error{Code: "duplicate_pick", WithState: true}
	ErrCannotRestart = &Error{Code: "cannot_restart", WithState: true}
	ErrBadRequest    = &Error{Code: "bad_request"}
	ErrInternal      = &Error{Code: "internal"}
)
