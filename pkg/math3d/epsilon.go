package math3d

import "math"

// absEpsilon and relEpsilon are the shared tolerances used by Equal and by
// every round-trip law in this package. Do not introduce ad-hoc tolerances
// at call sites; add a case here instead.
const (
	absEpsilon = 1e-5
	relEpsilon = 1e-5
)

// Equal reports whether a and b are close enough to be considered equal:
// first by absolute difference, then by a relative bound scaled by the
// larger operand's magnitude.
func Equal(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= absEpsilon {
		return true
	}
	return diff <= relEpsilon*math.Max(math.Abs(a), math.Abs(b))
}
