package crosscheck

import (
	"math"
	"testing"

	"github.com/grasplab/pcal/pkg/calibration"
)

func TestTension(t *testing.T) {
	tests := []struct {
		name     string
		theta    float64
		pressure float64
		want     float64
	}{
		{name: "45 degrees", theta: math.Pi / 4, pressure: 1000, want: 0.0717},
		{name: "zero pressure", theta: 0.3, pressure: 0, want: 0},
		{name: "60 degrees", theta: math.Pi / 3, pressure: 2000, want: 2000 * 7.17e-5 / math.Sqrt(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tension(tt.theta, tt.pressure); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Tension() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrid(t *testing.T) {
	var obs []calibration.Observation
	for _, th := range []float64{math.Pi / 6, math.Pi / 4} {
		for j, p := range []float64{0, 1000} {
			obs = append(obs, calibration.Observation{Theta: th, Pressure: p, Strain: float64(j)})
		}
	}
	table, err := calibration.Build(obs, calibration.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	grid := Grid(table)
	if len(grid) != 2 || len(grid[0]) != 2 {
		t.Fatalf("unexpected grid shape %v", grid)
	}
	if grid[1][0] != 0 || math.Abs(grid[1][1]-0.0717) > 1e-12 {
		t.Errorf("unexpected row for 45 degrees: %v", grid[1])
	}
	if !(grid[0][1] > grid[1][1]) {
		t.Errorf("tension should fall as theta grows: %v", grid)
	}
}
