// Package crosscheck holds the closed-form tension relation used to sanity
// check simulated calibration data offline. Nothing on the estimation path
// calls into this package.
package crosscheck

import (
	"math"

	"github.com/grasplab/pcal/pkg/calibration"
)

// TensionCoefficient converts P·cot(θ) in pascals into newtons of tension.
const TensionCoefficient = 7.17e-5

// Tension returns T(θ, P) = TensionCoefficient · P · cot(θ) in newtons, with
// theta in radians and pressure in pascals. It is +Inf or NaN where cot(θ)
// is undefined.
func Tension(theta, pressure float64) float64 {
	return TensionCoefficient * pressure / math.Tan(theta)
}

// Grid evaluates Tension over the axes of table, row by row.
func Grid(table *calibration.Table) [][]float64 {
	thetas, pressures := table.ThetaAxis(), table.PressureAxis()
	grid := make([][]float64, len(thetas))
	for i, th := range thetas {
		grid[i] = make([]float64, len(pressures))
		for j, p := range pressures {
			grid[i][j] = Tension(th, p)
		}
	}
	return grid
}
