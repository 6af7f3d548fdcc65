// Package estimator recovers applied pressure from a measured (θ, strain)
// pair using a calibration.Table.
//
// Estimation runs in two stages. Each θ-row bracketing the measured angle is
// inverted (strain to P) by piecewise-linear interpolation, then the row
// pressures are blended linearly in θ. Outside the θ axis the nearest row is
// used as is; outside a row's strain range the edge segment is extrapolated.
// Use WithinCalibrationEnvelope to flag estimates produced by either policy.
package estimator

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/grasplab/pcal/pkg/calibration"
)

// Result describes one estimate and how it was obtained.
type Result struct {
	Pressure float64 `json:"pressure"`

	Theta  float64 `json:"theta"`
	Strain float64 `json:"strain"`

	// RowLo and RowHi are the bracketing θ-rows. They are equal when θ is
	// clamped or hits an axis entry exactly.
	RowLo      int     `json:"rowLo"`
	RowHi      int     `json:"rowHi"`
	PressureLo float64 `json:"pressureLo"`
	PressureHi float64 `json:"pressureHi"`
	// Weight is the share of RowHi in the blend.
	Weight float64 `json:"weight"`

	ThetaClamped       bool `json:"thetaClamped"`
	StrainExtrapolated bool `json:"strainExtrapolated"`
	WithinEnvelope     bool `json:"withinEnvelope"`
}

// NonFiniteInputError is returned for NaN or infinite measurements.
type NonFiniteInputError struct {
	Theta  float64
	Strain float64
}

func (e *NonFiniteInputError) Error() string {
	return fmt.Sprintf("measurement must be finite, got theta=%g strain=%g", e.Theta, e.Strain)
}

// Estimate returns the applied pressure in pascals for the measured angle
// theta (radians) and strain.
func Estimate(table *calibration.Table, theta, strain float64) (float64, error) {
	r, err := EstimateDetail(table, theta, strain)
	if err != nil {
		return 0, err
	}
	return r.Pressure, nil
}

// EstimateDetail is Estimate with the intermediate values exposed.
func EstimateDetail(table *calibration.Table, theta, strain float64) (Result, error) {
	if err := checkTable(table); err != nil {
		return Result{}, err
	}
	if math.IsNaN(theta) || math.IsInf(theta, 0) || math.IsNaN(strain) || math.IsInf(strain, 0) {
		return Result{}, &NonFiniteInputError{Theta: theta, Strain: strain}
	}

	lo, hi, clamped := bracket(table, theta)
	r := Result{
		Theta:        theta,
		Strain:       strain,
		RowLo:        lo,
		RowHi:        hi,
		ThetaClamped: clamped,
	}

	var extLo, extHi bool
	r.PressureLo, extLo = invertRow(table, lo, strain)
	if lo == hi {
		r.Pressure, r.PressureHi = r.PressureLo, r.PressureLo
	} else {
		r.PressureHi, extHi = invertRow(table, hi, strain)
		r.Weight = (theta - table.Theta(lo)) / (table.Theta(hi) - table.Theta(lo))
		r.Pressure = (1-r.Weight)*r.PressureLo + r.Weight*r.PressureHi
	}
	r.StrainExtrapolated = extLo || extHi
	r.WithinEnvelope = WithinCalibrationEnvelope(table, theta, strain)

	return r, nil
}

// WithinCalibrationEnvelope reports whether theta lies within the θ axis and
// strain lies within the strain range of every bracketing row. It is
// advisory: Estimate accepts measurements outside the envelope.
func WithinCalibrationEnvelope(table *calibration.Table, theta, strain float64) bool {
	if checkTable(table) != nil {
		return false
	}
	if !table.Envelope().ContainsTheta(theta) {
		return false
	}
	lo, hi, _ := bracket(table, theta)
	for _, i := range []int{lo, hi} {
		lowest, highest := rowRange(table.Row(i))
		if !(strain >= lowest && strain <= highest) {
			return false
		}
	}
	return true
}

func checkTable(table *calibration.Table) error {
	rows, cols := table.Dims()
	if rows < 2 || cols < 2 {
		return &calibration.EmptyTableError{Rows: rows, Columns: cols}
	}
	return nil
}

// bracket returns the adjacent rows enclosing theta. Angles outside the axis
// clamp to the first or last row, reported by clamped.
func bracket(table *calibration.Table, theta float64) (lo, hi int, clamped bool) {
	rows, _ := table.Dims()
	switch {
	case theta < table.Theta(0):
		return 0, 0, true
	case theta > table.Theta(rows-1):
		return rows - 1, rows - 1, true
	}

	hi = sort.Search(rows, func(i int) bool { return table.Theta(i) >= theta })
	if table.Theta(hi) == theta {
		return hi, hi, false
	}
	return hi - 1, hi, false
}

// orientedRow is a local copy of a θ-row with strain strictly increasing.
type orientedRow struct {
	strains   []float64
	pressures []float64
}

// orient copies row i, reverses it if strain decreases with P and drops
// boundary tie runs down to the point next to the strictly monotonic part.
func orient(table *calibration.Table, i int) orientedRow {
	strains := table.Row(i)
	pressures := table.PressureAxis()
	n := len(strains)
	if strains[n-1] < strains[0] {
		for a, b := 0, n-1; a < b; a, b = a+1, b-1 {
			strains[a], strains[b] = strains[b], strains[a]
			pressures[a], pressures[b] = pressures[b], pressures[a]
		}
	}

	tol := table.TieTolerance()
	first, last := 0, n-1
	for first < n-1 && strains[first+1]-strains[first] <= tol {
		first++
	}
	for last > first && strains[last]-strains[last-1] <= tol {
		last--
	}

	return orientedRow{
		strains:   strains[first : last+1],
		pressures: pressures[first : last+1],
	}
}

// invertRow returns the pressure at which row i reads strain, and whether
// the value was extrapolated beyond the row's strain range.
func invertRow(table *calibration.Table, i int, strain float64) (float64, bool) {
	row := orient(table, i)
	xs, ys := row.strains, row.pressures
	n := len(xs)

	switch {
	case strain < xs[0]:
		slope := (ys[1] - ys[0]) / (xs[1] - xs[0])
		return ys[0] + slope*(strain-xs[0]), true
	case strain > xs[n-1]:
		slope := (ys[n-1] - ys[n-2]) / (xs[n-1] - xs[n-2])
		return ys[n-1] + slope*(strain-xs[n-1]), true
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		// Build guarantees a strictly increasing oriented row.
		panic(fmt.Sprintf("row %d is not invertible: %v", i, err))
	}
	return pl.Predict(strain), false
}

func rowRange(row []float64) (lowest, highest float64) {
	lowest, highest = row[0], row[0]
	for _, v := range row[1:] {
		lowest = math.Min(lowest, v)
		highest = math.Max(highest, v)
	}
	return lowest, highest
}
