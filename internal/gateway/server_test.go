package gateway

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/park285/matrix-duel/internal/coordinator"
	"github.com/park285/matrix-duel/internal/duelclient"
	"github.com/park285/matrix-duel/internal/lobby"
	"github.com/park285/matrix-duel/internal/msgcat"
	"github.com/park285/matrix-duel/internal/room"
	"github.com/park285/matrix-duel/pkg/duelproto"
)

type stack struct {
	url    string
	client *duelclient.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reg := lobby.NewRegistry(lobby.NewMemoryLimiter(clockwork.NewRealClock(), time.Minute))
	hub := NewHub(nil)
	coord := coordinator.New(reg, room.DealerFunc(fixedBoard), hub,
		coordinator.Settings{RevealDelay: 20 * time.Millisecond, GraceDelay: time.Minute},
		coordinator.WithMessages(cat))
	gw := NewServer(coord, hub, Info{
		Listen: ":0", AllowedOrigins: []string{"*"}, Fairness: true, RubberBand: true, Limiter: reg.LimiterName(),
	}, WithMessages(cat))
	ts := httptest.NewServer(gw.Routes())
	t.Cleanup(func() {
		gw.Close()
		coord.Close()
		ts.Close()
	})
	return &stack{url: ts.URL, client: duelclient.NewClient(ts.URL, duelclient.WithRetry(1))}
}

func (s *stack) dial(t *testing.T, ctx context.Context) *duelclient.Conn {
	t.Helper()
	conn, err := duelclient.Dial(ctx, s.client.WebSocketURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHealthAndCreateCooldown(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, err := s.client.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !h.OK || !h.Fairness || !h.RubberBand || h.Limiter != "memory" || h.Rooms != 0 {
		t.Fatalf("unexpected health %+v", h)
	}

	id, err := s.client.CreateRoom(ctx)
	if err != nil || len(id) != 6 {
		t.Fatalf("create: %q, %v", id, err)
	}
	_, err = s.client.CreateRoom(ctx)
	var limited *duelclient.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if limited.RetryAfter <= 0 || limited.Message == "" {
		t.Fatalf("rate limit lacks details: %+v", limited)
	}

	rooms, err := s.client.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("empty rooms are not listed, got %v", rooms)
	}
}

func TestPlayOverWebSocket(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.client.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := s.dial(t, ctx)
	b := s.dial(t, ctx)

	if err := a.Join(ctx, id, "A"); err != nil {
		t.Fatalf("join A: %v", err)
	}
	var st duelproto.RoomState
	if err := a.Await(ctx, duelproto.EventRoomState, &st); err != nil {
		t.Fatalf("await roomState: %v", err)
	}
	if !st.Occupied.A || st.Occupied.B || st.Active || st.Board != nil {
		t.Fatalf("unexpected waiting state %+v", st)
	}
	var waiting duelproto.Notice
	if err := a.Await(ctx, duelproto.EventWaiting, &waiting); err != nil || waiting.RoomID != id {
		t.Fatalf("waiting = %+v, %v", waiting, err)
	}

	if err := b.Join(ctx, id, "B"); err != nil {
		t.Fatalf("join B: %v", err)
	}
	var start duelproto.RoomState
	if err := a.Await(ctx, duelproto.EventGameStart, &start); err != nil {
		t.Fatalf("await gameStart: %v", err)
	}
	if start.Round != 1 || start.Board == nil || start.Scores != (duelproto.Scores{}) || start.Picks.A != nil {
		t.Fatalf("unexpected start %+v", start)
	}
	if err := b.Await(ctx, duelproto.EventGameStart, nil); err != nil {
		t.Fatalf("B gameStart: %v", err)
	}

	rooms, err := s.client.ListRooms(ctx)
	if err != nil || len(rooms) != 1 || rooms[0].Players != 2 || !rooms[0].Active {
		t.Fatalf("list = %+v, %v", rooms, err)
	}

	if err := a.PickRow(ctx, id, 1); err != nil {
		t.Fatalf("pick row: %v", err)
	}
	if err := b.PickCol(ctx, id, 2); err != nil {
		t.Fatalf("pick col: %v", err)
	}
	var rr duelproto.RoundResult
	if err := a.Await(ctx, duelproto.EventRoundResult, &rr); err != nil {
		t.Fatalf("await roundResult: %v", err)
	}
	want := fixedBoard(0)[1][2]
	if rr.Chosen != (duelproto.Chosen{Row: 1, Col: 2}) || rr.Delta != (duelproto.Scores{A: want.A, B: want.B}) || rr.Scores != rr.Delta {
		t.Fatalf("unexpected round result %+v", rr)
	}
	var next duelproto.RoomState
	if err := a.Await(ctx, duelproto.EventNextRound, &next); err != nil {
		t.Fatalf("await nextRound: %v", err)
	}
	if next.Round != 2 || next.Picks.A != nil || next.Board == nil {
		t.Fatalf("unexpected next round %+v", next)
	}

	// A holds the row seat, so a column pick is refused with a resync snapshot.
	if err := a.PickCol(ctx, id, 0); err != nil {
		t.Fatalf("pick col as A: %v", err)
	}
	var bad duelproto.ErrorMsg
	if err := a.Await(ctx, duelproto.EventInvalidPick, &bad); err != nil {
		t.Fatalf("await invalidPick: %v", err)
	}
	if bad.Code != "not_your_seat" || bad.State == nil || bad.State.Round != 2 || bad.Message == "" || bad.Message == bad.Code {
		t.Fatalf("unexpected rejection %+v", bad)
	}

	if err := a.Send(ctx, "dance", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	var unknown duelproto.ErrorMsg
	if err := a.Await(ctx, duelproto.EventErrorMsg, &unknown); err != nil {
		t.Fatalf("await errorMsg: %v", err)
	}
	if unknown.Code != "bad_request" {
		t.Fatalf("unexpected code %q", unknown.Code)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close B: %v", err)
	}
	var n duelproto.Notice
	if err := a.Await(ctx, duelproto.EventOpponentDisconnected, &n); err != nil {
		t.Fatalf("await opponentDisconnected: %v", err)
	}
	if n.Role != "B" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestJoinRejectsMalformedRoom(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := s.dial(t, ctx)
	if err := a.Join(ctx, "no!", "A"); err != nil {
		t.Fatalf("join: %v", err)
	}
	var msg duelproto.ErrorMsg
	if err := a.Await(ctx, duelproto.EventErrorMsg, &msg); err != nil {
		t.Fatalf("await: %v", err)
	}
	if msg.Code != "invalid_room_id" || msg.State != nil {
		t.Fatalf("unexpected error %+v", msg)
	}
}

func TestRequesterKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/rooms", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	if got := requesterKey(r); got != "10.0.0.7" {
		t.Fatalf("remote addr key = %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := requesterKey(r); got != "203.0.113.9" {
		t.Fatalf("forwarded key = %q", got)
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://duel.example", "localhost:5173", " "})
	if len(got) != 2 || got[0] != "duel.example" || got[1] != "localhost:5173" {
		t.Fatalf("patterns = %v", got)
	}
	if got := originPatterns([]string{"https://a.example", "*"}); len(got) != 1 || got[0] != "*" {
		t.Fatalf("wildcard must win: %v", got)
	}
}
