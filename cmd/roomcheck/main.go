package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/park285/matrix-duel/internal/duelclient"
)

func main() {
	baseURL := os.Getenv("DUEL_BASE_URL")
	roomID := os.Getenv("ROOM_ID")
	role := os.Getenv("ROLE")
	watch := 10 * time.Second

	if baseURL == "" {
		baseURL = "http://127.0.0.1:3001"
	}
	if role == "" {
		role = "A"
	}
	if v := os.Getenv("WATCH_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("WATCH_SECONDS must be a positive integer, got %q", v)
		}
		watch = time.Duration(n) * time.Second
	}

	client := duelclient.NewClient(baseURL, duelclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Printf("/health ok: listen=%s fairness=%t rubberBand=%t rooms=%d limiter=%s",
		h.Listen, h.Fairness, h.RubberBand, h.Rooms, h.Limiter)

	if roomID == "" {
		roomID, err = client.CreateRoom(ctx)
		var limited *duelclient.RateLimitedError
		switch {
		case errors.As(err, &limited):
			log.Fatalf("create room limited: %s (retry after %s)", limited.Message, limited.RetryAfter)
		case err != nil:
			log.Fatalf("create room error: %v", err)
		}
		log.Printf("created room %s", roomID)
	}

	conn, err := duelclient.Dial(ctx, client.WebSocketURL(), nil)
	if err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.Join(ctx, roomID, role); err != nil {
		log.Printf("join error: %v", err)
		return
	}

	// Observe for a short window
	wctx, wcancel := context.WithTimeout(context.Background(), watch)
	defer wcancel()
	for {
		env, err := conn.Next(wctx)
		if err != nil {
			if wctx.Err() == nil {
				log.Printf("WS read error: %v", err)
			}
			break
		}
		fmt.Printf("WS event=%s data=%s\n", env.Event, string(env.Data))
	}
	log.Println("roomcheck done")
}
