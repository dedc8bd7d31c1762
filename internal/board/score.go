package board

import "math"

// Weights tune the fairness penalty. Values are policy; DefaultWeights holds the
// shipped ones.
type Weights struct {
	Balance            float64 `yaml:"balance"`
	Mean               float64 `yaml:"mean"`
	Spread             float64 `yaml:"spread"`
	Extreme            float64 `yaml:"extreme"`
	Dominance          float64 `yaml:"dominance"`
	DominanceTolerance float64 `yaml:"dominance_tolerance"`
	Catastrophic       float64 `yaml:"catastrophic"`
	CatastrophicFloor  float64 `yaml:"catastrophic_floor"`
}

func DefaultWeights() Weights {
	return Weights{
		Balance:            1.0,
		Mean:               1.5,
		Spread:             0.35,
		Extreme:            0.8,
		Dominance:          1.2,
		DominanceTolerance: 8,
		Catastrophic:       1.5,
		CatastrophicFloor:  -50,
	}
}

// Scorer rates a candidate board. Lower is fairer.
type Scorer struct {
	Weights          Weights
	ExtremeThreshold int
}

// Breakdown keeps each penalty term separately, mostly for logs and tests.
type Breakdown struct {
	Balance      float64
	Mean         float64
	Spread       float64
	Extreme      float64
	Dominance    float64
	Catastrophic float64
}

func (b Breakdown) Total() float64 {
	return b.Balance + b.Mean + b.Spread + b.Extreme + b.Dominance + b.Catastrophic
}

func (s Scorer) Score(b Board) float64 { return s.Breakdown(b).Total() }

func (s Scorer) Breakdown(b Board) Breakdown {
	w := s.Weights
	rows, cols := b.RowSums(), b.ColSums()

	var out Breakdown
	out.Balance = w.Balance * (stdDev(rows) + stdDev(cols))
	out.Mean = w.Mean * (math.Abs(mean(rows)) + math.Abs(mean(cols)))
	out.Spread = w.Spread * float64(spread(rows)+spread(cols))

	threshold := s.ExtremeThreshold
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out.Extreme += w.Extreme * excess(b[r][c].A, threshold)
			out.Extreme += w.Extreme * excess(b[r][c].B, threshold)
		}
	}

	for _, g := range []int{b.RowGuarantee(), b.ColGuarantee()} {
		if over := math.Abs(float64(g)) - w.DominanceTolerance; over > 0 {
			out.Dominance += w.Dominance * over
		}
	}

	// trap rows/columns: ruinous whatever the opponent does
	for _, worst := range b.RowWorst() {
		if d := w.CatastrophicFloor - float64(worst); d > 0 {
			out.Catastrophic += w.Catastrophic * d
		}
	}
	for _, worst := range b.ColWorst() {
		if d := w.CatastrophicFloor - float64(worst); d > 0 {
			out.Catastrophic += w.Catastrophic * d
		}
	}
	return out
}

func excess(v, threshold int) float64 {
	if v < 0 {
		v = -v
	}
	if v <= threshold {
		return 0
	}
	return float64(v - threshold)
}

func mean(v [Size]int) float64 {
	sum := 0
	for _, x := range v {
		sum += x
	}
	return float64(sum) / float64(Size)
}

func stdDev(v [Size]int) float64 {
	m := mean(v)
	acc := 0.0
	for _, x := range v {
		d := float64(x) - m
		acc += d * d
	}
	return math.Sqrt(acc / float64(Size))
}

func spread(v [Size]int) int { return maxOf(v) - minOf(v) }
