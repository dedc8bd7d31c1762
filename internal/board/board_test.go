package board

import (
	"math"
	"testing"
)

func uniformBoard(a, b int) Board {
	var out Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r][c] = Cell{A: a, B: b}
		}
	}
	return out
}

func TestGuarantees(t *testing.T) {
	b := Board{
		{{A: 10, B: 1}, {A: -5, B: 2}, {A: 3, B: 3}},
		{{A: 0, B: -9}, {A: 7, B: 4}, {A: 2, B: 20}},
		{{A: -40, B: 5}, {A: 50, B: -6}, {A: 9, B: 0}},
	}
	// row minima: -5, 0, -40
	if g := b.RowGuarantee(); g != 0 {
		t.Fatalf("row guarantee = %d, want 0", g)
	}
	// column minima: -9, -6, 0
	if g := b.ColGuarantee(); g != 0 {
		t.Fatalf("col guarantee = %d, want 0", g)
	}
	if s := b.RowSums(); s != [Size]int{8, 9, 19} {
		t.Fatalf("row sums %v", s)
	}
	if s := b.ColSums(); s != [Size]int{-3, 0, 23} {
		t.Fatalf("col sums %v", s)
	}
}

func TestScoreZeroBoard(t *testing.T) {
	s := Scorer{Weights: DefaultWeights(), ExtremeThreshold: 50}
	if got := s.Score(Board{}); got != 0 {
		t.Fatalf("zero board should score 0, got %v", got)
	}
}

func TestScoreTerms(t *testing.T) {
	w := DefaultWeights()
	s := Scorer{Weights: w, ExtremeThreshold: 50}

	bd := s.Breakdown(uniformBoard(55, -55))
	if math.Abs(bd.Extreme-w.Extreme*5*18) > 1e-9 {
		t.Fatalf("extreme = %v", bd.Extreme)
	}
	if bd.Balance != 0 || bd.Spread != 0 {
		t.Fatalf("uniform board has no imbalance: %+v", bd)
	}
	// guarantees are 55 and -55
	want := 2 * w.Dominance * (55 - w.DominanceTolerance)
	if math.Abs(bd.Dominance-want) > 1e-9 {
		t.Fatalf("dominance = %v, want %v", bd.Dominance, want)
	}
	// every column worst is -55, below the -50 floor
	if math.Abs(bd.Catastrophic-3*w.Catastrophic*5) > 1e-9 {
		t.Fatalf("catastrophic = %v", bd.Catastrophic)
	}
	if bd.Mean == 0 {
		t.Fatalf("expected a mean-centering penalty")
	}
}

func TestFairerBoardScoresLower(t *testing.T) {
	s := Scorer{Weights: DefaultWeights(), ExtremeThreshold: 50}
	fair := Board{
		{{A: 5, B: -5}, {A: -5, B: 5}, {A: 0, B: 0}},
		{{A: -5, B: 5}, {A: 0, B: 0}, {A: 5, B: -5}},
		{{A: 0, B: 0}, {A: 5, B: -5}, {A: -5, B: 5}},
	}
	trap := fair
	trap[2] = [Size]Cell{{A: -60, B: 0}, {A: -60, B: 0}, {A: -60, B: 0}}
	if s.Score(fair) >= s.Score(trap) {
		t.Fatalf("trap row must be penalised: fair=%v trap=%v", s.Score(fair), s.Score(trap))
	}
}

func TestAdmissible(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Admissible(Board{}) {
		t.Fatalf("zero board must be admissible")
	}
	if cfg.Admissible(uniformBoard(10, 0)) {
		t.Fatalf("mean row sum 30 exceeds limit")
	}
	wide := Board{}
	wide[0] = [Size]Cell{{A: 60}, {A: 0}, {A: 0}}
	wide[1] = [Size]Cell{{A: -60}, {A: 0}, {A: 0}}
	if cfg.Admissible(wide) {
		t.Fatalf("row spread 120 exceeds limit: rows %v", wide.RowSums())
	}
	wide[0][0].A, wide[1][0].A = 30, -30
	if !cfg.Admissible(wide) {
		t.Fatalf("row spread 60 is within limit: rows %v", wide.RowSums())
	}
}

func TestClampAndIndex(t *testing.T) {
	if Clamp(-99) != MinPayoff || Clamp(99) != MaxPayoff || Clamp(3) != 3 {
		t.Fatalf("clamp broken")
	}
	for _, i := range []int{-1, 3, 100} {
		if ValidIndex(i) {
			t.Fatalf("%d should be invalid", i)
		}
	}
	for i := 0; i < Size; i++ {
		if !ValidIndex(i) {
			t.Fatalf("%d should be valid", i)
		}
	}
}
