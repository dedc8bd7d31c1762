package duelclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWebSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://127.0.0.1:3001/":  "ws://127.0.0.1:3001/ws",
		"https://duel.example":    "wss://duel.example/ws",
		"ws://already.example:80": "ws://already.example:80/ws",
	}
	for in, want := range cases {
		if got := NewClient(in).WebSocketURL(); got != want {
			t.Fatalf("WebSocketURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rooms":[{"roomId":"ABCDEF","players":1}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetry(3), WithTimeout(2*time.Second))
	rooms, err := c.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].RoomID != "ABCDEF" || hits.Load() != 3 {
		t.Fatalf("rooms=%+v hits=%d", rooms, hits.Load())
	}
}

func TestCreateRoomDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).CreateRoom(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadGateway || hits.Load() != 1 {
		t.Fatalf("err=%v hits=%d", err, hits.Load())
	}
}

func TestCreateRoomRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down","retryAfter":2}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).CreateRoom(context.Background())
	var rl *RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter != 2*time.Second || rl.Error() != "slow down" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(50) != backoffDuration(6) {
		t.Fatalf("backoff must cap at attempt 6")
	}
}
