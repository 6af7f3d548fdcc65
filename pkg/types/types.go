package types

import (
	"time"

	"github.com/grasplab/pcal/pkg/calibration"
)

// TableInfo describes the calibration table currently served by the daemon.
// This struct is shared between the daemon and client packages.
type TableInfo struct {
	Path         string               `json:"path"`
	LoadedAt     time.Time            `json:"loadedAt"`
	ThetaAxis    []float64            `json:"thetaAxis"`
	PressureAxis []float64            `json:"pressureAxis"`
	Strain       [][]float64          `json:"strain"`
	Envelope     calibration.Envelope `json:"envelope"`
}

// Measurement is the body of POST /estimate.
type Measurement struct {
	// Theta is the mechanism angle in radians.
	Theta  float64 `json:"theta"`
	Strain float64 `json:"strain"`
}

// ReloadSchedule describes the daemon's scheduled table reloads.
type ReloadSchedule struct {
	Schedule string `json:"schedule"`
	// NextRun is zero when no reload is scheduled.
	NextRun time.Time `json:"nextRun"`
}
