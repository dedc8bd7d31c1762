package board

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Config carries the fairness tunables.
type Config struct {
	Enabled          bool
	RubberBand       bool
	Candidates       int
	MeanLimit        float64
	SpreadLimit      int
	ExtremeThreshold int
	MaxBias          int
	BiasStep         int
	Weights          Weights
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		RubberBand:       true,
		Candidates:       80,
		MeanLimit:        20,
		SpreadLimit:      90,
		ExtremeThreshold: 50,
		MaxBias:          8,
		BiasStep:         25,
		Weights:          DefaultWeights(),
	}
}

func (c Config) Validate() error {
	if c.Candidates <= 0 {
		return errors.New("candidate count must be positive")
	}
	if c.MeanLimit < 0 || c.SpreadLimit < 0 {
		return errors.New("hard constraint limits must not be negative")
	}
	if c.BiasStep <= 0 {
		return errors.New("rubber band step must be positive")
	}
	if c.MaxBias < 0 {
		return errors.New("rubber band max bias must not be negative")
	}
	return nil
}

// Admissible reports whether b passes the hard mean and spread constraints.
func (c Config) Admissible(b Board) bool {
	rows, cols := b.RowSums(), b.ColSums()
	if math.Abs(mean(rows)) > c.MeanLimit || math.Abs(mean(cols)) > c.MeanLimit {
		return false
	}
	return spread(rows) <= c.SpreadLimit && spread(cols) <= c.SpreadLimit
}

// Generator deals boards. Safe for concurrent use by many rooms.
type Generator struct {
	cfg    Config
	scorer Scorer

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator builds a generator; a nil rng is seeded from the wall clock.
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 1
	}
	return &Generator{
		cfg:    cfg,
		scorer: Scorer{Weights: cfg.Weights, ExtremeThreshold: cfg.ExtremeThreshold},
		rng:    rng,
	}
}

func (g *Generator) Config() Config { return g.cfg }

// Deal produces the next board given the row-chooser's lead (negative when trailing).
func (g *Generator) Deal(scoreDiff int) Board {
	return g.Generate(g.biasFor(scoreDiff))
}

func (g *Generator) biasFor(scoreDiff int) Bias {
	if !g.cfg.Enabled || !g.cfg.RubberBand {
		return Bias{}
	}
	return RubberBand(scoreDiff, g.cfg.BiasStep, g.cfg.MaxBias)
}

// Generate returns a board under bias. With fairness off it is one uniform draw.
func (g *Generator) Generate(bias Bias) Board {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cfg.Enabled {
		return g.draw(Bias{})
	}
	if b, ok := g.selectBest(g.drawMany(bias), true); ok {
		return b
	}
	// soft fallback: nothing met the hard constraints
	b, _ := g.selectBest(g.drawMany(bias), false)
	return b
}

func (g *Generator) drawMany(bias Bias) []Board {
	out := make([]Board, g.cfg.Candidates)
	for i := range out {
		out[i] = g.draw(bias)
	}
	return out
}

func (g *Generator) selectBest(candidates []Board, constrained bool) (Board, bool) {
	var (
		best      Board
		bestScore float64
		found     bool
	)
	for _, b := range candidates {
		if constrained && !g.cfg.Admissible(b) {
			continue
		}
		s := g.scorer.Score(b)
		if !found || s < bestScore {
			best, bestScore, found = b, s, true
		}
	}
	return best, found
}

func (g *Generator) draw(bias Bias) Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			b[r][c] = Cell{
				A: Clamp(g.uniform() + bias.A),
				B: Clamp(g.uniform() + bias.B),
			}
		}
	}
	return b
}

func (g *Generator) uniform() int {
	return MinPayoff + g.rng.Intn(MaxPayoff-MinPayoff+1)
}
