package estimator

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/grasplab/pcal/pkg/calibration"
)

const eps = 1e-9

func buildTable(t *testing.T, thetasDeg, pressures []float64, grid [][]float64) *calibration.Table {
	t.Helper()
	var obs []calibration.Observation
	for i, deg := range thetasDeg {
		for j, p := range pressures {
			obs = append(obs, calibration.Observation{
				Theta:    calibration.Radians(deg),
				Pressure: p,
				Strain:   grid[i][j],
			})
		}
	}
	table, err := calibration.Build(obs, calibration.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return table
}

// threeRowTable has an increasing, a shallower increasing and a decreasing row.
func threeRowTable(t *testing.T) *calibration.Table {
	return buildTable(t,
		[]float64{10, 20, 30},
		[]float64{0, 1000, 2000},
		[][]float64{
			{0.0, 0.02, 0.04},
			{0.0, 0.01, 0.02},
			{0.03, 0.02, 0.01},
		},
	)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Abs(b))
}

func TestEstimateMidpointOfRow(t *testing.T) {
	table := threeRowTable(t)

	got, err := Estimate(table, calibration.Radians(20), 0.015)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if !near(got, 1500) {
		t.Fatalf("Estimate() = %v, want 1500", got)
	}
}

// Every grid point maps back to its own pressure on rows without boundary
// ties. Inside a tie run the pressure is not identifiable from strain; see
// TestEstimateExactRecoveryBoundaryTies.
func TestEstimateExactRecovery(t *testing.T) {
	table := threeRowTable(t)
	rows, cols := table.Dims()

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			got, err := Estimate(table, table.Theta(i), table.Strain(i, j))
			if err != nil {
				t.Fatalf("Estimate(%d, %d) failed: %v", i, j, err)
			}
			if !near(got, table.Pressure(j)) {
				t.Errorf("Estimate at grid point (%d, %d) = %v, want %v", i, j, got, table.Pressure(j))
			}
		}
	}
}

func TestEstimateThetaInterpolationAgreeingRows(t *testing.T) {
	// Both rows read 0.01 at 500 Pa although their shapes differ.
	table := buildTable(t,
		[]float64{10, 20},
		[]float64{0, 1000, 2000},
		[][]float64{
			{0.0, 0.02, 0.04},
			{0.004, 0.016, 0.02},
		},
	)

	got, err := Estimate(table, calibration.Radians(15), 0.01)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if !near(got, 500) {
		t.Fatalf("Estimate() = %v, want 500", got)
	}
}

func TestEstimateInteriorBounds(t *testing.T) {
	table := threeRowTable(t)

	tests := []struct {
		name     string
		thetaDeg float64
		strain   float64
	}{
		{name: "near lower row", thetaDeg: 11, strain: 0.012},
		{name: "midway", thetaDeg: 15, strain: 0.005},
		{name: "near upper row", thetaDeg: 19.5, strain: 0.019},
		{name: "decreasing upper row", thetaDeg: 25, strain: 0.015},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := EstimateDetail(table, calibration.Radians(tt.thetaDeg), tt.strain)
			if err != nil {
				t.Fatalf("EstimateDetail failed: %v", err)
			}
			if r.RowHi != r.RowLo+1 {
				t.Fatalf("expected adjacent bracketing rows, got %d and %d", r.RowLo, r.RowHi)
			}
			lo := math.Min(r.PressureLo, r.PressureHi)
			hi := math.Max(r.PressureLo, r.PressureHi)
			if r.Pressure < lo-eps || r.Pressure > hi+eps {
				t.Errorf("pressure %v outside [%v, %v]", r.Pressure, lo, hi)
			}
			if r.Weight < 0 || r.Weight > 1 {
				t.Errorf("weight %v outside [0, 1]", r.Weight)
			}
			if !r.WithinEnvelope || r.ThetaClamped || r.StrainExtrapolated {
				t.Errorf("unexpected policy flags: %+v", r)
			}
		})
	}
}

func TestEstimateThetaClamp(t *testing.T) {
	table := threeRowTable(t)

	tests := []struct {
		name     string
		thetaDeg float64
		edgeDeg  float64
		strain   float64
	}{
		{name: "below axis", thetaDeg: 2, edgeDeg: 10, strain: 0.03},
		{name: "above axis", thetaDeg: 45, edgeDeg: 30, strain: 0.025},
		{name: "below axis extrapolated strain", thetaDeg: 5, edgeDeg: 10, strain: 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateDetail(table, calibration.Radians(tt.thetaDeg), tt.strain)
			if err != nil {
				t.Fatalf("EstimateDetail failed: %v", err)
			}
			edge, err := Estimate(table, calibration.Radians(tt.edgeDeg), tt.strain)
			if err != nil {
				t.Fatalf("Estimate failed: %v", err)
			}
			if got.Pressure != edge {
				t.Errorf("clamped estimate %v != boundary row estimate %v", got.Pressure, edge)
			}
			if !got.ThetaClamped || got.WithinEnvelope {
				t.Errorf("expected clamp to be reported: %+v", got)
			}
		})
	}
}

func TestEstimateStrainExtrapolation(t *testing.T) {
	table := threeRowTable(t)

	tests := []struct {
		name   string
		strain float64
		want   float64
	}{
		{name: "above row range", strain: 0.025, want: 2500},
		{name: "below row range", strain: -0.005, want: -500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := EstimateDetail(table, calibration.Radians(20), tt.strain)
			if err != nil {
				t.Fatalf("EstimateDetail failed: %v", err)
			}
			if !near(r.Pressure, tt.want) {
				t.Errorf("pressure = %v, want %v", r.Pressure, tt.want)
			}
			if !r.StrainExtrapolated || r.WithinEnvelope {
				t.Errorf("expected extrapolation to be reported: %+v", r)
			}
		})
	}

	// Decreasing row: strain above the first column maps below 0 Pa.
	got, err := Estimate(table, calibration.Radians(30), 0.035)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if !near(got, -500) {
		t.Errorf("decreasing row extrapolation = %v, want -500", got)
	}
}

func TestEstimateBoundaryTies(t *testing.T) {
	// The gauge saturates at low pressure: 0 and 1000 Pa both read 0.
	table := buildTable(t,
		[]float64{10, 20},
		[]float64{0, 1000, 2000, 3000},
		[][]float64{
			{0, 0, 0.01, 0.02},
			{0, 0.01, 0.02, 0.03},
		},
	)

	tests := []struct {
		strain float64
		want   float64
	}{
		{strain: 0, want: 1000},
		{strain: 0.005, want: 1500},
		{strain: 0.02, want: 3000},
		{strain: -0.005, want: 500},
	}
	for _, tt := range tests {
		got, err := Estimate(table, calibration.Radians(10), tt.strain)
		if err != nil {
			t.Fatalf("Estimate failed: %v", err)
		}
		if !near(got, tt.want) {
			t.Errorf("Estimate(strain=%v) = %v, want %v", tt.strain, got, tt.want)
		}
	}
}

func TestEstimateExactRecoveryBoundaryTies(t *testing.T) {
	table := buildTable(t,
		[]float64{10, 20},
		[]float64{0, 1000, 2000, 3000},
		[][]float64{
			{0, 0, 0.01, 0.02},
			{0, 0.01, 0.02, 0.02},
		},
	)

	// want[i][j] is the estimate at grid point (i, j). Points inside a tie
	// run collapse onto the run's point next to the strict interior.
	want := [][]float64{
		{1000, 1000, 2000, 3000},
		{0, 1000, 2000, 2000},
	}
	for i := range want {
		for j, w := range want[i] {
			got, err := Estimate(table, table.Theta(i), table.Strain(i, j))
			if err != nil {
				t.Fatalf("Estimate(%d, %d) failed: %v", i, j, err)
			}
			if !near(got, w) {
				t.Errorf("Estimate at grid point (%d, %d) = %v, want %v", i, j, got, w)
			}
		}
	}
}

func TestEstimateEmptyTable(t *testing.T) {
	for _, table := range []*calibration.Table{nil, {}} {
		_, err := Estimate(table, 0.1, 0.1)
		var empty *calibration.EmptyTableError
		if !errors.As(err, &empty) {
			t.Fatalf("expected EmptyTableError, got %v", err)
		}
		if WithinCalibrationEnvelope(table, 0.1, 0.1) {
			t.Fatalf("empty table should not have an envelope")
		}
	}
}

func TestEstimateNonFinite(t *testing.T) {
	table := threeRowTable(t)
	for _, in := range [][2]float64{{math.NaN(), 0}, {0.2, math.Inf(1)}} {
		_, err := Estimate(table, in[0], in[1])
		var nonFinite *NonFiniteInputError
		if !errors.As(err, &nonFinite) {
			t.Fatalf("expected NonFiniteInputError for %v, got %v", in, err)
		}
	}
}

func TestWithinCalibrationEnvelope(t *testing.T) {
	table := threeRowTable(t)

	tests := []struct {
		name     string
		thetaDeg float64
		strain   float64
		want     bool
	}{
		{name: "grid point", thetaDeg: 20, strain: 0.01, want: true},
		{name: "interior", thetaDeg: 15, strain: 0.015, want: true},
		{name: "theta below axis", thetaDeg: 5, strain: 0.01, want: false},
		{name: "theta above axis", thetaDeg: 31, strain: 0.02, want: false},
		{name: "strain above one bracketing row", thetaDeg: 15, strain: 0.03, want: false},
		{name: "strain below decreasing row", thetaDeg: 25, strain: 0.005, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinCalibrationEnvelope(table, calibration.Radians(tt.thetaDeg), tt.strain); got != tt.want {
				t.Errorf("WithinCalibrationEnvelope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateIsReproducibleUnderConcurrency(t *testing.T) {
	table := threeRowTable(t)
	theta, strain := calibration.Radians(17.3), 0.0123

	want, err := Estimate(table, theta, strain)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for k := range results {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			results[k], _ = Estimate(table, theta, strain)
		}(k)
	}
	wg.Wait()

	for k, got := range results {
		if got != want {
			t.Fatalf("call %d returned %v, want %v", k, got, want)
		}
	}
}
