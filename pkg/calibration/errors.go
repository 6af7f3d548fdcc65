package calibration

import (
	"fmt"
	"strings"
)

// maxListedPoints caps how many missing cells an IncompleteGridError prints.
const maxListedPoints = 8

// IncompleteGridError is returned when the Cartesian product of the θ and P
// axes is not fully covered by the observations.
type IncompleteGridError struct {
	Missing []GridPoint
}

func (e *IncompleteGridError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "incomplete calibration grid: %d missing (theta, P) pairs", len(e.Missing))
	for i, p := range e.Missing {
		if i == maxListedPoints {
			fmt.Fprintf(&sb, ", ... (%d more)", len(e.Missing)-maxListedPoints)
			break
		}
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "(%g, %g)", p.Theta, p.Pressure)
	}
	return sb.String()
}

// DuplicateEntryError is returned when the same (θ, P) cell is observed
// twice with strains that differ by more than the strain tolerance.
type DuplicateEntryError struct {
	Point  GridPoint
	First  float64
	Second float64
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("conflicting duplicate observation at (theta=%g, P=%g): strain %g vs %g",
		e.Point.Theta, e.Point.Pressure, e.First, e.Second)
}

// AxisMismatchError is returned when an observation's θ or P is not within
// tolerance of any axis entry.
type AxisMismatchError struct {
	// Axis is "theta" or "pressure".
	Axis        string
	Value       float64
	Nearest     float64
	Observation Observation
}

func (e *AxisMismatchError) Error() string {
	return fmt.Sprintf("observation %s %g does not match any axis entry (nearest %g)",
		e.Axis, e.Value, e.Nearest)
}

// NonMonotonicRowError is returned when a θ-row's strain is not monotonic
// in P, which makes the row impossible to invert.
type NonMonotonicRowError struct {
	Row   int
	Theta float64
}

func (e *NonMonotonicRowError) Error() string {
	return fmt.Sprintf("strain is not monotonic in pressure for row %d (theta=%g)", e.Row, e.Theta)
}

// EmptyTableError is returned when a table has fewer than two θ rows or
// fewer than two P columns, so interpolation is undefined.
type EmptyTableError struct {
	Rows    int
	Columns int
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("calibration table needs at least 2x2 entries, got %dx%d", e.Rows, e.Columns)
}
