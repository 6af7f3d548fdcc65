package calibration

import (
	"math"
	"sort"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Build validates observations and arranges them into a Table.
//
// The θ and P axes are taken from opts when given, otherwise derived from
// the observations by grouping values that lie within opts.ThetaTolerance
// (opts.PressureTolerance for P) of each other. Every observation is then
// matched to its (row, column) cell.
// Build fails with *AxisMismatchError, *DuplicateEntryError,
// *IncompleteGridError, *NonMonotonicRowError or *EmptyTableError; there is
// no partial result.
func Build(observations []Observation, opts Options) (*Table, error) {
	if len(observations) == 0 {
		return nil, &EmptyTableError{}
	}

	for _, o := range observations {
		if !isFinite(o.Theta) {
			return nil, &AxisMismatchError{Axis: "theta", Value: o.Theta, Nearest: math.NaN(), Observation: o}
		}
		if !isFinite(o.Pressure) {
			return nil, &AxisMismatchError{Axis: "pressure", Value: o.Pressure, Nearest: math.NaN(), Observation: o}
		}
	}

	thetas, err := resolveAxis(opts.ThetaAxis, observations, func(o Observation) float64 { return o.Theta }, opts.ThetaTolerance)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid theta axis")
	}
	pressures, err := resolveAxis(opts.PressureAxis, observations, func(o Observation) float64 { return o.Pressure }, opts.PressureTolerance)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid pressure axis")
	}

	rows, cols := len(thetas), len(pressures)
	if rows < 2 || cols < 2 {
		return nil, &EmptyTableError{Rows: rows, Columns: cols}
	}

	data := make([]float64, rows*cols)
	filled := make([]bool, rows*cols)

	for _, o := range observations {
		i, nearest, ok := matchAxis(thetas, o.Theta, opts.ThetaTolerance)
		if !ok {
			return nil, &AxisMismatchError{Axis: "theta", Value: o.Theta, Nearest: nearest, Observation: o}
		}
		j, nearest, ok := matchAxis(pressures, o.Pressure, opts.PressureTolerance)
		if !ok {
			return nil, &AxisMismatchError{Axis: "pressure", Value: o.Pressure, Nearest: nearest, Observation: o}
		}

		k := i*cols + j
		if filled[k] {
			if !(math.Abs(data[k]-o.Strain) <= opts.StrainTolerance) {
				return nil, &DuplicateEntryError{
					Point:  GridPoint{Theta: thetas[i], Pressure: pressures[j]},
					First:  data[k],
					Second: o.Strain,
				}
			}
			logrus.WithFields(logrus.Fields{
				"theta":    thetas[i],
				"pressure": pressures[j],
			}).Debug("merged duplicate calibration observation")
			continue
		}
		data[k] = o.Strain
		filled[k] = true
	}

	var missing []GridPoint
	for k, ok := range filled {
		if !ok {
			missing = append(missing, GridPoint{Theta: thetas[k/cols], Pressure: pressures[k%cols]})
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteGridError{Missing: missing}
	}

	strain := mat.NewDense(rows, cols, data)
	for i := 0; i < rows; i++ {
		if !isMonotonic(mat.Row(nil, i, strain), opts.MonotonicTolerance) {
			return nil, &NonMonotonicRowError{Row: i, Theta: thetas[i]}
		}
	}

	return &Table{
		thetas:    thetas,
		pressures: pressures,
		strain:    strain,

		tieTolerance: opts.MonotonicTolerance,
	}, nil
}

func resolveAxis(explicit []float64, observations []Observation, value func(Observation) float64, tol float64) ([]float64, error) {
	if len(explicit) > 0 {
		for k := 1; k < len(explicit); k++ {
			if !(explicit[k] > explicit[k-1]) {
				return nil, pkgerrors.Errorf("axis is not strictly increasing at index %d (%g after %g)", k, explicit[k], explicit[k-1])
			}
		}
		return append([]float64(nil), explicit...), nil
	}

	values := make([]float64, len(observations))
	for k, o := range observations {
		values[k] = value(o)
	}
	return deriveAxis(values, tol), nil
}

// deriveAxis sorts values and replaces every run whose consecutive gaps are
// within tol by the run's mean.
func deriveAxis(values []float64, tol float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var axis []float64
	start := 0
	for k := 1; k <= len(sorted); k++ {
		if k < len(sorted) && sorted[k]-sorted[k-1] <= tol {
			continue
		}
		base, offset := sorted[start], 0.0
		for _, v := range sorted[start:k] {
			offset += v - base
		}
		axis = append(axis, base+offset/float64(k-start))
		start = k
	}
	return axis
}

// matchAxis returns the index of the axis entry nearest to v and whether it
// lies within tol.
func matchAxis(axis []float64, v, tol float64) (int, float64, bool) {
	idx := sort.SearchFloat64s(axis, v)
	best := idx
	if idx == len(axis) || (idx > 0 && v-axis[idx-1] < axis[idx]-v) {
		best = idx - 1
	}
	nearest := axis[best]
	return best, nearest, math.Abs(v-nearest) <= tol
}

// isMonotonic reports whether row is monotonic with at least one strict
// step. Ties (steps within tol) may only form a leading or trailing run.
func isMonotonic(row []float64, tol float64) bool {
	steps := make([]int, len(row)-1)
	dir, first, last := 0, -1, -1
	for k := range steps {
		d := row[k+1] - row[k]
		switch {
		case math.IsNaN(d):
			return false
		case d > tol:
			steps[k] = 1
		case d < -tol:
			steps[k] = -1
		default:
			continue
		}
		if dir == 0 {
			dir = steps[k]
		} else if steps[k] != dir {
			return false
		}
		if first < 0 {
			first = k
		}
		last = k
	}
	if dir == 0 {
		return false
	}
	for k := first; k <= last; k++ {
		if steps[k] == 0 {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
