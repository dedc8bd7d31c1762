// Package results archives finished games in Postgres.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/matrix-duel/internal/room"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS matrix_games (
    game_id      TEXT PRIMARY KEY,
    room_id      TEXT NOT NULL,
    seat_a       TEXT NOT NULL,
    seat_b       TEXT NOT NULL,
    score_a      INTEGER NOT NULL,
    score_b      INTEGER NOT NULL,
    winner       TEXT NOT NULL,
    rounds       JSONB NOT NULL,
    transcript   TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

// EnsureSchema creates the archive table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create matrix_games: %w", err)
	}
	return nil
}

// SaveGame upserts a finished game keyed by its id.
func (r *Repository) SaveGame(ctx context.Context, rec *room.GameRecord) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	rounds, err := encodeRounds(rec.Rounds)
	if err != nil {
		return err
	}
	duration := rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO matrix_games (
        game_id, room_id, seat_a, seat_b, score_a, score_b, winner,
        rounds, transcript, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        room_id=EXCLUDED.room_id,
        seat_a=EXCLUDED.seat_a,
        seat_b=EXCLUDED.seat_b,
        score_a=EXCLUDED.score_a,
        score_b=EXCLUDED.score_b,
        winner=EXCLUDED.winner,
        rounds=EXCLUDED.rounds,
        transcript=EXCLUDED.transcript,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.RoomID,
		string(rec.Seats[room.RoleA]), string(rec.Seats[room.RoleB]),
		rec.Scores.A, rec.Scores.B, rec.Winner,
		rounds, buildTranscript(rec),
		rec.StartedAt, rec.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.ID, err)
	}
	return nil
}

func encodeRounds(rounds []room.RoundRecord) (string, error) {
	if rounds == nil {
		rounds = []room.RoundRecord{}
	}
	raw, err := json.Marshal(rounds)
	if err != nil {
		return "", fmt.Errorf("encode rounds: %w", err)
	}
	return string(raw), nil
}

// buildTranscript renders one line per round, e.g. "1. r1 c2 (+5/+7) 5-7".
func buildTranscript(rec *room.GameRecord) string {
	if rec == nil {
		return ""
	}
	var b strings.Builder
	for _, rd := range rec.Rounds {
		fmt.Fprintf(&b, "%d. r%d c%d (%+d/%+d) %d-%d\n", rd.Round, rd.Row, rd.Col, rd.Delta.A, rd.Delta.B, rd.Scores.A, rd.Scores.B)
	}
	fmt.Fprintf(&b, "result %s %d-%d", strings.TrimSpace(rec.Winner), rec.Scores.A, rec.Scores.B)
	return b.String()
}
