package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/park285/matrix-duel/internal/board"
)

type AppConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Fairness Fairness `yaml:"fairness"`

	RevealDelayMS        int `yaml:"reveal_delay_ms"`
	DisconnectGraceMS    int `yaml:"disconnect_grace_ms"`
	RoomCreateCooldownMS int `yaml:"room_create_cooldown_ms"`
	EmptyRoomTTLMS       int `yaml:"empty_room_ttl_ms"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	MessagesDir string `yaml:"messages_dir"`
}

// Fairness groups the board generator tunables.
type Fairness struct {
	Enabled          bool          `yaml:"enabled"`
	RubberBand       bool          `yaml:"rubber_band"`
	Candidates       int           `yaml:"candidates"`
	MeanLimit        float64       `yaml:"mean_limit"`
	SpreadLimit      int           `yaml:"spread_limit"`
	ExtremeThreshold int           `yaml:"extreme_threshold"`
	MaxBias          int           `yaml:"max_bias"`
	BiasStep         int           `yaml:"bias_step"`
	Weights          board.Weights `yaml:"weights"`
}

func Defaults() *AppConfig {
	b := board.DefaultConfig()
	return &AppConfig{
		ListenAddr:     ":3001",
		AllowedOrigins: []string{"*"},
		Fairness: Fairness{
			Enabled:          b.Enabled,
			RubberBand:       b.RubberBand,
			Candidates:       b.Candidates,
			MeanLimit:        b.MeanLimit,
			SpreadLimit:      b.SpreadLimit,
			ExtremeThreshold: b.ExtremeThreshold,
			MaxBias:          b.MaxBias,
			BiasStep:         b.BiasStep,
			Weights:          b.Weights,
		},
		RevealDelayMS:        1800,
		DisconnectGraceMS:    15000,
		RoomCreateCooldownMS: 3000,
		EmptyRoomTTLMS:       600000,
	}
}

// Load reads .env (optional), then CONFIG_FILE (optional), then the environment.
func Load() (*AppConfig, error) {
	// .env 없으면 무시
	_ = godotenv.Load()

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		c.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}

	f := &c.Fairness
	bools := []struct {
		key string
		dst *bool
	}{
		{"FAIRNESS_ENABLED", &f.Enabled},
		{"RUBBER_BAND_ENABLED", &f.RubberBand},
	}
	for _, b := range bools {
		if err := envBool(b.key, b.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BOARD_CANDIDATES", &f.Candidates},
		{"BOARD_SPREAD_LIMIT", &f.SpreadLimit},
		{"BOARD_EXTREME_THRESHOLD", &f.ExtremeThreshold},
		{"RUBBER_BAND_MAX_BIAS", &f.MaxBias},
		{"RUBBER_BAND_STEP", &f.BiasStep},
		{"REVEAL_DELAY_MS", &c.RevealDelayMS},
		{"DISCONNECT_GRACE_MS", &c.DisconnectGraceMS},
		{"ROOM_CREATE_COOLDOWN_MS", &c.RoomCreateCooldownMS},
		{"EMPTY_ROOM_TTL_MS", &c.EmptyRoomTTLMS},
	}
	for _, i := range ints {
		if err := envInt(i.key, i.dst); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(os.Getenv("BOARD_MEAN_LIMIT")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BOARD_MEAN_LIMIT: %w", err)
		}
		f.MeanLimit = n
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if len(c.AllowedOrigins) == 0 {
		return errors.New("ALLOWED_ORIGINS must list at least one origin")
	}
	if c.RevealDelayMS < 0 || c.DisconnectGraceMS < 0 || c.RoomCreateCooldownMS < 0 || c.EmptyRoomTTLMS < 0 {
		return errors.New("delays must not be negative")
	}
	if err := c.Board().Validate(); err != nil {
		return fmt.Errorf("fairness: %w", err)
	}
	return nil
}

// Board converts the fairness section for the generator.
func (c *AppConfig) Board() board.Config {
	f := c.Fairness
	return board.Config{
		Enabled:          f.Enabled,
		RubberBand:       f.RubberBand,
		Candidates:       f.Candidates,
		MeanLimit:        f.MeanLimit,
		SpreadLimit:      f.SpreadLimit,
		ExtremeThreshold: f.ExtremeThreshold,
		MaxBias:          f.MaxBias,
		BiasStep:         f.BiasStep,
		Weights:          f.Weights,
	}
}

func (c *AppConfig) RevealDelay() time.Duration {
	return time.Duration(c.RevealDelayMS) * time.Millisecond
}

func (c *AppConfig) DisconnectGrace() time.Duration {
	return time.Duration(c.DisconnectGraceMS) * time.Millisecond
}

func (c *AppConfig) RoomCreateCooldown() time.Duration {
	return time.Duration(c.RoomCreateCooldownMS) * time.Millisecond
}

// EmptyRoomTTL is how long a room nobody joined survives; zero disables reaping.
func (c *AppConfig) EmptyRoomTTL() time.Duration {
	return time.Duration(c.EmptyRoomTTLMS) * time.Millisecond
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
