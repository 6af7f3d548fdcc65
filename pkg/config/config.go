package config

import (
	"github.com/sirupsen/logrus"

	"github.com/grasplab/pcal/pkg/calibration"
)

type Config interface {
	TablePath() string
	ThetaTolerance() float64
	PressureTolerance() float64
	StrainTolerance() float64
	MonotonicTolerance() float64
	ThetaAxis() []float64
	PressureAxis() []float64
	ReloadSchedule() string
	AllowNonRootAccess() bool

	SetTablePath(string)
	SetThetaTolerance(float64)
	SetPressureTolerance(float64)
	SetStrainTolerance(float64)
	SetMonotonicTolerance(float64)
	SetReloadSchedule(string)
	SetAllowNonRootAccess(bool)

	// BuildOptions returns the calibration builder options described by the
	// configuration.
	BuildOptions() calibration.Options
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
