package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "LISTEN_ADDR", "ALLOWED_ORIGINS", "FAIRNESS_ENABLED", "RUBBER_BAND_ENABLED",
		"BOARD_CANDIDATES", "BOARD_MEAN_LIMIT", "BOARD_SPREAD_LIMIT", "BOARD_EXTREME_THRESHOLD",
		"RUBBER_BAND_MAX_BIAS", "RUBBER_BAND_STEP", "REVEAL_DELAY_MS", "DISCONNECT_GRACE_MS",
		"ROOM_CREATE_COOLDOWN_MS", "EMPTY_ROOM_TTL_MS", "REDIS_URL", "DATABASE_URL", "MESSAGES_DIR",
	} {
		t.Setenv(k, "")
	}
	// keep godotenv away from any .env in the package dir
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3001" || len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.Fairness.Enabled || !cfg.Fairness.RubberBand || cfg.RevealDelay() != 1800*time.Millisecond {
		t.Fatalf("unexpected fairness defaults %+v", cfg.Fairness)
	}
	if cfg.DisconnectGrace() != 15*time.Second || cfg.RoomCreateCooldown() != 3*time.Second || cfg.EmptyRoomTTL() != 10*time.Minute {
		t.Fatalf("unexpected delays")
	}
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "duel.yaml")
	body := `
listen_addr: ":9000"
allowed_origins: ["https://a.example"]
reveal_delay_ms: 500
fairness:
  enabled: true
  rubber_band: false
  candidates: 12
  mean_limit: 4.5
  spread_limit: 40
  extreme_threshold: 45
  max_bias: 3
  bias_step: 10
  weights:
    balance: 2
    dominance_tolerance: 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BOARD_CANDIDATES", "30")
	t.Setenv("ALLOWED_ORIGINS", "https://x.example, https://y.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.RevealDelayMS != 500 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://y.example" {
		t.Fatalf("env must win over file: %v", cfg.AllowedOrigins)
	}
	b := cfg.Board()
	if b.Candidates != 30 || b.RubberBand || b.MeanLimit != 4.5 || b.MaxBias != 3 || b.BiasStep != 10 {
		t.Fatalf("unexpected board config %+v", b)
	}
	if b.Weights.Balance != 2 || b.Weights.DominanceTolerance != 5 {
		t.Fatalf("weights not loaded: %+v", b.Weights)
	}
	// untouched weights keep their defaults
	if b.Weights.Catastrophic == 0 {
		t.Fatalf("default weights lost")
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BOARD_CANDIDATES":    "0",
		"RUBBER_BAND_STEP":    "0",
		"REVEAL_DELAY_MS":     "-1",
		"FAIRNESS_ENABLED":    "maybe",
		"BOARD_MEAN_LIMIT":    "lots",
		"DISCONNECT_GRACE_MS": "soon",
		"EMPTY_ROOM_TTL_MS":   "-5",
	}
	for k, v := range cases {
		clearEnv(t)
		t.Setenv(k, v)
		if _, err := Load(); err == nil {
			t.Fatalf("%s=%s should fail", k, v)
		}
	}
}

func TestMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
