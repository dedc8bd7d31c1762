package duelclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/matrix-duel/pkg/duelproto"
)

// Conn is one player's event channel. Next must be called from a single goroutine.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens the event channel at url (ws:// or wss://).
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Send writes one event with its payload.
func (c *Conn) Send(ctx context.Context, event string, payload any) error {
	env, err := duelproto.NewEnvelope(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return wsjson.Write(ctx, c.ws, env)
}

func (c *Conn) Join(ctx context.Context, roomID, role string) error {
	return c.Send(ctx, duelproto.EventJoinRoom, duelproto.JoinRoom{RoomID: roomID, Role: role})
}

func (c *Conn) PickRow(ctx context.Context, roomID string, row int) error {
	return c.Send(ctx, duelproto.EventPickRow, duelproto.PickRow{RoomID: roomID, Row: &row})
}

func (c *Conn) PickCol(ctx context.Context, roomID string, col int) error {
	return c.Send(ctx, duelproto.EventPickCol, duelproto.PickCol{RoomID: roomID, Col: &col})
}

func (c *Conn) Restart(ctx context.Context, roomID string) error {
	return c.Send(ctx, duelproto.EventRestartGame, duelproto.RoomRef{RoomID: roomID})
}

func (c *Conn) Leave(ctx context.Context, roomID string) error {
	return c.Send(ctx, duelproto.EventLeaveRoom, duelproto.RoomRef{RoomID: roomID})
}

// Next blocks for the next server event.
func (c *Conn) Next(ctx context.Context) (duelproto.Envelope, error) {
	var env duelproto.Envelope
	if err := wsjson.Read(ctx, c.ws, &env); err != nil {
		return duelproto.Envelope{}, err
	}
	return env, nil
}

// Await skips events until one named event arrives and decodes it into dst.
func (c *Conn) Await(ctx context.Context, event string, dst any) error {
	for {
		env, err := c.Next(ctx)
		if err != nil {
			return fmt.Errorf("await %s: %w", event, err)
		}
		if env.Event != event {
			continue
		}
		if dst == nil {
			return nil
		}
		return env.Decode(dst)
	}
}

func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "close")
}
