package calibration

import (
	"errors"
	"math"
	"testing"
)

func gridObservations(thetas, pressures []float64, grid [][]float64) []Observation {
	var obs []Observation
	for i, th := range thetas {
		for j, p := range pressures {
			obs = append(obs, Observation{Theta: th, Pressure: p, Strain: grid[i][j]})
		}
	}
	return obs
}

var (
	testThetas    = []float64{Radians(10), Radians(20), Radians(30)}
	testPressures = []float64{0, 1000, 2000}
	testGrid      = [][]float64{
		{0.0, 0.02, 0.04},
		{0.0, 0.01, 0.02},
		{0.03, 0.02, 0.01},
	}
)

func TestBuildCompleteGrid(t *testing.T) {
	obs := gridObservations(testThetas, testPressures, testGrid)
	// Shuffle order: the builder must not depend on input order.
	obs[0], obs[len(obs)-1] = obs[len(obs)-1], obs[0]
	obs[2], obs[4] = obs[4], obs[2]

	table, err := Build(obs, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rows, cols := table.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("expected 3x3 table, got %dx%d", rows, cols)
	}
	for i := range testThetas {
		if table.Theta(i) != testThetas[i] {
			t.Errorf("theta axis[%d] = %v, want %v", i, table.Theta(i), testThetas[i])
		}
		for j := range testPressures {
			if got := table.Strain(i, j); got != testGrid[i][j] {
				t.Errorf("strain[%d][%d] = %v, want %v", i, j, got, testGrid[i][j])
			}
		}
	}
}

func TestBuildIncompleteGrid(t *testing.T) {
	full := gridObservations(testThetas, testPressures, testGrid)
	for drop := range full {
		obs := append(append([]Observation(nil), full[:drop]...), full[drop+1:]...)
		_, err := Build(obs, DefaultOptions())

		var incomplete *IncompleteGridError
		if !errors.As(err, &incomplete) {
			t.Fatalf("dropping observation %d: expected IncompleteGridError, got %v", drop, err)
		}
		if len(incomplete.Missing) != 1 {
			t.Fatalf("expected exactly one missing pair, got %v", incomplete.Missing)
		}
		if m := incomplete.Missing[0]; m.Theta != full[drop].Theta || m.Pressure != full[drop].Pressure {
			t.Errorf("missing pair = %+v, want (%v, %v)", m, full[drop].Theta, full[drop].Pressure)
		}
	}
}

func TestBuildDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		strain  float64
		wantErr bool
	}{
		{name: "agreeing duplicate is merged", strain: testGrid[1][1], wantErr: false},
		{name: "conflicting duplicate", strain: testGrid[1][1] + 0.001, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := gridObservations(testThetas, testPressures, testGrid)
			obs = append(obs, Observation{Theta: testThetas[1], Pressure: testPressures[1], Strain: tt.strain})

			table, err := Build(obs, DefaultOptions())
			var dup *DuplicateEntryError
			if tt.wantErr {
				if !errors.As(err, &dup) {
					t.Fatalf("expected DuplicateEntryError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if got := table.Strain(1, 1); got != testGrid[1][1] {
				t.Errorf("strain = %v, want %v", got, testGrid[1][1])
			}
		})
	}
}

func TestBuildAxisTolerance(t *testing.T) {
	obs := gridObservations(testThetas, testPressures, testGrid)
	// I/O noise well below the tolerance.
	obs[4].Theta += 1e-12
	obs[5].Pressure -= 1e-11

	table, err := Build(obs, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rows, cols := table.Dims(); rows != 3 || cols != 3 {
		t.Fatalf("noise created extra axis entries: %dx%d", rows, cols)
	}
}

func TestBuildPerAxisTolerance(t *testing.T) {
	// Pressure export noise larger than the θ spacing (about 0.17 rad).
	obs := gridObservations(testThetas, testPressures, testGrid)
	obs[4].Pressure = 1000.25

	if _, err := Build(obs, DefaultOptions()); err == nil {
		t.Fatalf("expected default pressure tolerance to reject 1000.25")
	}

	opts := DefaultOptions()
	opts.PressureTolerance = 0.5
	table, err := Build(obs, opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rows, cols := table.Dims(); rows != 3 || cols != 3 {
		t.Fatalf("dims = %dx%d, want 3x3", rows, cols)
	}
	if got, want := table.Pressure(1), 1000+0.25/3; math.Abs(got-want) > 1e-9 {
		t.Errorf("pressure axis entry = %v, want %v", got, want)
	}
	for i, want := range testThetas {
		if got := table.Theta(i); got != want {
			t.Errorf("theta axis entry %d = %v, want %v", i, got, want)
		}
	}
	if got := table.Strain(1, 1); got != testGrid[1][1] {
		t.Errorf("strain = %v, want %v", got, testGrid[1][1])
	}

	// A θ tolerance wide enough for that noise would merge every row.
	opts = DefaultOptions()
	opts.ThetaTolerance = 0.5
	var empty *EmptyTableError
	if _, err := Build(gridObservations(testThetas, testPressures, testGrid), opts); !errors.As(err, &empty) {
		t.Errorf("expected EmptyTableError with a wide theta tolerance, got %v", err)
	}
}

func TestBuildAxisMismatch(t *testing.T) {
	t.Run("explicit axes", func(t *testing.T) {
		obs := gridObservations(testThetas, testPressures, testGrid)
		obs[3].Pressure = 1500

		opts := DefaultOptions()
		opts.ThetaAxis = testThetas
		opts.PressureAxis = testPressures
		_, err := Build(obs, opts)

		var mismatch *AxisMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected AxisMismatchError, got %v", err)
		}
		if mismatch.Axis != "pressure" || mismatch.Value != 1500 {
			t.Errorf("unexpected mismatch: %+v", mismatch)
		}
	})

	t.Run("derived axis spread wider than tolerance", func(t *testing.T) {
		obs := gridObservations(testThetas, testPressures, testGrid)
		opts := DefaultOptions()
		opts.PressureTolerance = 0.6
		// 1000, 1000.5, 1001 and 1001.5 chain into one group with mean
		// 1000.75, leaving 1000 and 1001.5 out of tolerance.
		obs[4].Pressure = 1000.5
		obs[7].Pressure = 1001
		obs = append(obs, Observation{Theta: testThetas[0], Pressure: 1001.5, Strain: testGrid[0][1]})
		_, err := Build(obs, opts)

		var mismatch *AxisMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected AxisMismatchError, got %v", err)
		}
		if mismatch.Axis != "pressure" || mismatch.Nearest != 1000.75 {
			t.Errorf("unexpected mismatch: %+v", mismatch)
		}
	})

	t.Run("non-finite theta", func(t *testing.T) {
		obs := gridObservations(testThetas, testPressures, testGrid)
		obs[0].Theta = math.NaN()
		_, err := Build(obs, DefaultOptions())

		var mismatch *AxisMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected AxisMismatchError, got %v", err)
		}
	})
}

func TestBuildMonotonicity(t *testing.T) {
	pressures := []float64{0, 1000, 2000, 3000}
	thetas := []float64{Radians(10), Radians(20)}
	good := []float64{0, 1, 2, 3}

	tests := []struct {
		name    string
		row     []float64
		wantErr bool
	}{
		{name: "increasing", row: []float64{1, 2, 3, 4}},
		{name: "decreasing", row: []float64{4, 3, 2, 1}},
		{name: "leading tie", row: []float64{1, 1, 2, 3}},
		{name: "trailing tie", row: []float64{3, 2, 1, 1}},
		{name: "interior tie", row: []float64{1, 2, 2, 3}, wantErr: true},
		{name: "reversal", row: []float64{1, 3, 2, 4}, wantErr: true},
		{name: "constant", row: []float64{2, 2, 2, 2}, wantErr: true},
		{name: "nan", row: []float64{1, math.NaN(), 2, 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := gridObservations(thetas, pressures, [][]float64{good, tt.row})
			_, err := Build(obs, DefaultOptions())

			var nonMono *NonMonotonicRowError
			if tt.wantErr {
				if !errors.As(err, &nonMono) {
					t.Fatalf("expected NonMonotonicRowError, got %v", err)
				}
				if nonMono.Row != 1 {
					t.Errorf("row = %d, want 1", nonMono.Row)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
		})
	}
}

func TestBuildMonotonicTolerance(t *testing.T) {
	thetas := []float64{Radians(10), Radians(20)}
	pressures := []float64{0, 1000, 2000, 3000}
	rows := [][]float64{{0, 1, 2, 3}, {0, 1, 1 + 1e-7, 3}}

	if _, err := Build(gridObservations(thetas, pressures, rows), DefaultOptions()); err != nil {
		t.Fatalf("strictly increasing row rejected with zero tolerance: %v", err)
	}

	opts := DefaultOptions()
	opts.MonotonicTolerance = 1e-6
	_, err := Build(gridObservations(thetas, pressures, rows), opts)
	var nonMono *NonMonotonicRowError
	if !errors.As(err, &nonMono) {
		t.Fatalf("expected near-tie to be rejected, got %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	tests := []struct {
		name string
		obs  []Observation
	}{
		{name: "no observations", obs: nil},
		{name: "single theta", obs: gridObservations([]float64{0.1}, []float64{0, 1}, [][]float64{{0, 1}})},
		{name: "single pressure", obs: gridObservations([]float64{0.1, 0.2}, []float64{0}, [][]float64{{0}, {1}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.obs, DefaultOptions())
			var empty *EmptyTableError
			if !errors.As(err, &empty) {
				t.Fatalf("expected EmptyTableError, got %v", err)
			}
		})
	}
}

func TestTableIsImmutable(t *testing.T) {
	table, err := Build(gridObservations(testThetas, testPressures, testGrid), DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	row := table.Row(0)
	row[0] = 42
	axis := table.PressureAxis()
	axis[0] = 42
	grid := table.Grid()
	grid[1][1] = 42

	if table.Strain(0, 0) != testGrid[0][0] || table.Strain(1, 1) != testGrid[1][1] {
		t.Fatalf("mutating a returned slice changed the table")
	}
	if table.Pressure(0) != 0 {
		t.Fatalf("mutating the returned axis changed the table")
	}
}

func TestTableEnvelope(t *testing.T) {
	table, err := Build(gridObservations(testThetas, testPressures, testGrid), DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	env := table.Envelope()
	want := Envelope{
		ThetaMin:    testThetas[0],
		ThetaMax:    testThetas[2],
		PressureMin: 0,
		PressureMax: 2000,
		StrainMin:   0,
		StrainMax:   0.04,
	}
	if env != want {
		t.Fatalf("Envelope() = %+v, want %+v", env, want)
	}

	var zero Table
	if zero.Envelope() != (Envelope{}) {
		t.Fatalf("zero table should have an empty envelope")
	}
}

func TestIncompleteGridErrorMessage(t *testing.T) {
	err := &IncompleteGridError{}
	for i := 0; i < maxListedPoints+3; i++ {
		err.Missing = append(err.Missing, GridPoint{Theta: float64(i), Pressure: 1})
	}
	want := "incomplete calibration grid: 11 missing (theta, P) pairs: (0, 1), (1, 1), (2, 1), (3, 1), (4, 1), (5, 1), (6, 1), (7, 1), ... (3 more)"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
