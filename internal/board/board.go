package board

const (
	Size      = 3
	MinPayoff = -60
	MaxPayoff = 60
)

// Cell holds one payoff per role: A goes to the row-chooser, B to the column-chooser.
type Cell struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Board is the 3x3 payoff grid dealt for one round.
type Board [Size][Size]Cell

// At returns the cell at the intersection of a row pick and a column pick.
func (b Board) At(row, col int) Cell { return b[row][col] }

// ValidIndex reports whether i addresses a row or column.
func ValidIndex(i int) bool { return i >= 0 && i < Size }

// Clamp forces v into the payoff range.
func Clamp(v int) int {
	if v < MinPayoff {
		return MinPayoff
	}
	if v > MaxPayoff {
		return MaxPayoff
	}
	return v
}

// RowSums are the row-chooser's totals per row.
func (b Board) RowSums() [Size]int {
	var out [Size]int
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r] += b[r][c].A
		}
	}
	return out
}

// ColSums are the column-chooser's totals per column.
func (b Board) ColSums() [Size]int {
	var out [Size]int
	for c := 0; c < Size; c++ {
		for r := 0; r < Size; r++ {
			out[c] += b[r][c].B
		}
	}
	return out
}

// RowWorst is the smallest row-chooser payoff in each row.
func (b Board) RowWorst() [Size]int {
	var out [Size]int
	for r := 0; r < Size; r++ {
		out[r] = b[r][0].A
		for c := 1; c < Size; c++ {
			if b[r][c].A < out[r] {
				out[r] = b[r][c].A
			}
		}
	}
	return out
}

// ColWorst is the smallest column-chooser payoff in each column.
func (b Board) ColWorst() [Size]int {
	var out [Size]int
	for c := 0; c < Size; c++ {
		out[c] = b[0][c].B
		for r := 1; r < Size; r++ {
			if b[r][c].B < out[c] {
				out[c] = b[r][c].B
			}
		}
	}
	return out
}

// RowGuarantee is the row-chooser's maximin payoff: the best row assuming the
// column-chooser answers with that row's worst column.
func (b Board) RowGuarantee() int { return maxOf(b.RowWorst()) }

// ColGuarantee mirrors RowGuarantee for the column-chooser.
func (b Board) ColGuarantee() int { return maxOf(b.ColWorst()) }

// InRange reports whether every payoff lies in [MinPayoff, MaxPayoff].
func (b Board) InRange() bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			cell := b[r][c]
			if cell.A < MinPayoff || cell.A > MaxPayoff || cell.B < MinPayoff || cell.B > MaxPayoff {
				return false
			}
		}
	}
	return true
}

func maxOf(v [Size]int) int {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(v [Size]int) int {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
