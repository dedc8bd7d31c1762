package room

import "github.com/park285/matrix-duel/internal/board"

// Join seats who in role. A second seat filled outside a game starts one.
func (r *Room) Join(env Env, role Role, who Identity) (Outcome, error) {
	var out Outcome
	if role != RoleA && role != RoleB {
		return out, ErrInvalidRole
	}
	if holder, ok := r.Seats[role]; ok && holder != who {
		return out, ErrSeatTaken
	}
	holder, ok := r.Seats[role.Other()]
	switching := ok && holder == who

	// deal before touching seats; a panicking dealer must leave them intact
	var dealt *board.Board
	if r.occupantsAfterJoin(role, switching) == 2 && !r.InProgress() {
		b := env.Dealer.Deal(0)
		dealt = &b
	}

	// switching seats mid-game invalidates the game
	if switching {
		delete(r.Seats, role.Other())
		if r.InProgress() {
			r.reset(&out)
		}
	}

	r.Seats[role] = who
	out.Joined = who
	if _, ok := r.Offline[role]; ok {
		delete(r.Offline, role)
		out.CancelGrace = append(out.CancelGrace, role)
	}

	if dealt != nil {
		r.startGame(env, *dealt, &out)
		out.emit(r.snapshotEvent(EventRoomState, ""))
		return out, nil
	}
	if r.State == StateEmpty {
		r.State = StateWaiting
	}
	out.emit(r.snapshotEvent(EventRoomState, ""))
	if r.State == StateWaiting {
		out.emit(Event{Kind: EventWaiting, To: who})
	}
	return out, nil
}

func (r *Room) occupantsAfterJoin(role Role, switching bool) int {
	n := r.Occupants()
	if !r.Occupied(role) {
		n++
	}
	if switching {
		n--
	}
	return n
}

// Pick records who's selection for role. The second pick resolves the round.
func (r *Room) Pick(env Env, role Role, who Identity, index int) (Outcome, error) {
	var out Outcome
	if r.State != StateActive || r.Board == nil {
		return out, ErrNotActive
	}
	if holder, ok := r.Seats[role]; !ok || holder != who {
		return out, ErrNotYourSeat
	}
	if !board.ValidIndex(index) {
		return out, ErrBadIndex
	}
	if r.Picks.of(role) != nil {
		return out, ErrDuplicatePick
	}

	r.Picks.set(role, index)
	out.emit(r.snapshotEvent(EventRoomState, ""))
	if r.Picks.complete() {
		r.resolve(&out)
	}
	return out, nil
}

func (r *Room) resolve(out *Outcome) {
	row, col := *r.Picks.Row, *r.Picks.Col
	cell := r.Board.At(row, col)
	r.Scores.A += cell.A
	r.Scores.B += cell.B
	r.State = StateResolving
	r.History = append(r.History, RoundRecord{Round: r.Round, Row: row, Col: col, Delta: cell, Scores: r.Scores})

	out.emit(Event{Kind: EventRoundResult, Result: &RoundResult{
		Round:  r.Round,
		Row:    row,
		Col:    col,
		Delta:  cell,
		Scores: r.Scores,
		Board:  *r.Board,
	}})
	out.Advance = &Advance{Epoch: r.Epoch, Round: r.Round}
}

// Advance runs the delayed transition after a resolved round. A stale tag is a no-op.
func (r *Room) Advance(env Env, tag Advance) Outcome {
	var out Outcome
	if r.State != StateResolving || tag.Epoch != r.Epoch || tag.Round != r.Round {
		return out
	}
	if r.Round >= Rounds {
		r.Picks = Picks{}
		r.State = StateFinished
		r.Board = nil
		out.emit(Event{Kind: EventGameOver, Over: &GameOver{Scores: r.Scores, Winner: r.Scores.Winner()}})
		out.emit(r.snapshotEvent(EventRoomState, ""))
		out.Record = r.record(env.Now)
		return out
	}

	b := env.Dealer.Deal(r.Scores.A - r.Scores.B)
	r.Picks = Picks{}
	r.Round++
	r.Board = &b
	r.State = StateActive
	out.emit(r.snapshotEvent(EventNextRound, ""))
	return out
}

// Restart begins a fresh game when both seats are filled and none is running.
func (r *Room) Restart(env Env, who Identity) (Outcome, error) {
	var out Outcome
	if r.Occupants() != 2 || !r.Holds(who) || r.InProgress() {
		return out, ErrCannotRestart
	}
	r.startGame(env, env.Dealer.Deal(0), &out)
	out.emit(r.snapshotEvent(EventRoomState, ""))
	return out, nil
}

// Leave removes who from every seat it holds.
func (r *Room) Leave(who Identity) Outcome {
	var out Outcome
	roles := r.rolesOf(who)
	if len(roles) == 0 {
		return out
	}
	for _, role := range roles {
		delete(r.Seats, role)
	}
	out.leave(who)

	if r.Occupants() == 0 {
		r.reset(&out)
		out.Deleted = true
		return out
	}
	r.reset(&out)
	out.emit(Event{Kind: EventOpponentLeft})
	out.emit(r.snapshotEvent(EventRoomState, ""))
	out.emit(Event{Kind: EventWaiting})
	return out
}

// Disconnect frees who's seats but keeps the game for a grace period.
func (r *Room) Disconnect(env Env, who Identity) Outcome {
	var out Outcome
	roles := r.rolesOf(who)
	if len(roles) == 0 {
		return out
	}
	for _, role := range roles {
		delete(r.Seats, role)
	}
	out.leave(who)

	if r.Occupants() == 0 {
		r.reset(&out)
		out.Deleted = true
		return out
	}
	for _, role := range roles {
		r.Offline[role] = env.Now
		out.Grace = append(out.Grace, Grace{Role: role, Since: env.Now})
		out.emit(Event{Kind: EventOpponentDisconnected, Role: role})
	}
	out.emit(r.snapshotEvent(EventRoomState, ""))
	return out
}

// GraceExpired ends the game for a seat that was not reclaimed in time.
func (r *Room) GraceExpired(g Grace) Outcome {
	var out Outcome
	since, ok := r.Offline[g.Role]
	if !ok || !since.Equal(g.Since) || r.Occupied(g.Role) {
		return out
	}
	delete(r.Offline, g.Role)

	if r.Occupants() == 0 {
		r.reset(&out)
		out.Deleted = true
		return out
	}
	r.reset(&out)
	out.emit(Event{Kind: EventOpponentLeft, Role: g.Role})
	out.emit(r.snapshotEvent(EventRoomState, ""))
	out.emit(Event{Kind: EventWaiting})
	return out
}
