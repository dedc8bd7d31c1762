package board

import "math"

// Bias shifts every payoff of one role before clamping.
type Bias struct {
	A int
	B int
}

// RubberBand turns a score differential (row-chooser minus column-chooser) into a
// bias against the leader. The magnitude is diff/step rounded, capped at maxBias.
func RubberBand(diff, step, maxBias int) Bias {
	if step <= 0 || maxBias <= 0 || diff == 0 {
		return Bias{}
	}
	mag := int(math.Round(float64(diff) / float64(step)))
	if mag > maxBias {
		mag = maxBias
	}
	if mag < -maxBias {
		mag = -maxBias
	}
	return Bias{A: -mag, B: mag}
}
