package calibration

import (
	"gonum.org/v1/gonum/mat"
)

// Table is an immutable regular grid of strain values indexed by θ (rows)
// and P (columns). Build is the only way to obtain a populated Table.
type Table struct {
	thetas    []float64
	pressures []float64
	strain    *mat.Dense

	tieTolerance float64
}

// Dims returns the number of θ rows and P columns. A nil or zero-value
// Table has no rows and no columns.
func (t *Table) Dims() (rows, cols int) {
	if t == nil || t.strain == nil {
		return 0, 0
	}
	return t.strain.Dims()
}

// ThetaAxis returns a copy of the strictly increasing θ axis in radians.
func (t *Table) ThetaAxis() []float64 {
	if t == nil {
		return nil
	}
	return append([]float64(nil), t.thetas...)
}

// PressureAxis returns a copy of the strictly increasing P axis in pascals.
func (t *Table) PressureAxis() []float64 {
	if t == nil {
		return nil
	}
	return append([]float64(nil), t.pressures...)
}

// TieTolerance returns the MonotonicTolerance the table was validated with.
// Adjacent strains of a row closer than this are treated as equal.
func (t *Table) TieTolerance() float64 {
	if t == nil {
		return 0
	}
	return t.tieTolerance
}

// Theta returns the i-th entry of the θ axis.
func (t *Table) Theta(i int) float64 {
	return t.thetas[i]
}

// Pressure returns the j-th entry of the P axis.
func (t *Table) Pressure(j int) float64 {
	return t.pressures[j]
}

// Strain returns the strain at (ThetaAxis()[i], PressureAxis()[j]).
func (t *Table) Strain(i, j int) float64 {
	return t.strain.At(i, j)
}

// Row returns a copy of the strains of θ-row i, ordered by ascending P.
func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.strain)
}

// Column returns a copy of the strains of P-column j, ordered by ascending θ.
func (t *Table) Column(j int) []float64 {
	return mat.Col(nil, j, t.strain)
}

// Grid returns a copy of the whole strain matrix as row slices.
func (t *Table) Grid() [][]float64 {
	rows, _ := t.Dims()
	grid := make([][]float64, rows)
	for i := range grid {
		grid[i] = t.Row(i)
	}
	return grid
}

// Envelope returns the calibrated region. It is the zero Envelope for an
// empty table.
func (t *Table) Envelope() Envelope {
	rows, cols := t.Dims()
	if rows == 0 || cols == 0 {
		return Envelope{}
	}
	return Envelope{
		ThetaMin:    t.thetas[0],
		ThetaMax:    t.thetas[rows-1],
		PressureMin: t.pressures[0],
		PressureMax: t.pressures[cols-1],
		StrainMin:   mat.Min(t.strain),
		StrainMax:   mat.Max(t.strain),
	}
}
