package board

import "testing"

func TestRubberBand(t *testing.T) {
	cases := []struct {
		diff, step, max int
		want            Bias
	}{
		{0, 25, 8, Bias{}},
		{12, 25, 8, Bias{}},
		{13, 25, 8, Bias{A: -1, B: 1}},
		{-13, 25, 8, Bias{A: 1, B: -1}},
		{100, 25, 8, Bias{A: -4, B: 4}},
		{-100, 25, 8, Bias{A: 4, B: -4}},
		{5000, 25, 8, Bias{A: -8, B: 8}},
		{-5000, 25, 8, Bias{A: 8, B: -8}},
		{100, 25, 0, Bias{}},
	}
	for _, tc := range cases {
		if got := RubberBand(tc.diff, tc.step, tc.max); got != tc.want {
			t.Fatalf("RubberBand(%d,%d,%d) = %+v, want %+v", tc.diff, tc.step, tc.max, got, tc.want)
		}
	}
}

func TestRubberBandNeverExceedsMax(t *testing.T) {
	for max := 0; max <= 12; max++ {
		for diff := -1000; diff <= 1000; diff += 17 {
			b := RubberBand(diff, 7, max)
			if b.A > max || b.A < -max || b.B > max || b.B < -max {
				t.Fatalf("diff=%d max=%d: bias %+v out of bounds", diff, max, b)
			}
			if b.A != -b.B {
				t.Fatalf("bias must be symmetric, got %+v", b)
			}
		}
	}
}
