package calibration

import "math"

// Observation is one simulated calibration sample.
type Observation struct {
	// Theta is the configuration angle in radians.
	Theta float64 `json:"theta_rad" yaml:"theta_rad"`
	// ThetaDeg is carried for readability only and never consumed by Build.
	ThetaDeg *float64 `json:"theta_deg,omitempty" yaml:"theta_deg,omitempty"`
	// Pressure is the applied pressure in pascals.
	Pressure float64 `json:"P_Pa" yaml:"P_Pa"`
	Strain   float64 `json:"strain" yaml:"strain"`
}

// GridPoint addresses one (θ, P) cell of a Table.
type GridPoint struct {
	Theta    float64 `json:"theta"`
	Pressure float64 `json:"pressure"`
}

// Options controls how Build matches and validates observations.
type Options struct {
	// ThetaTolerance bounds the distance, in radians, between an
	// observation's θ and the axis entry it is matched to.
	ThetaTolerance float64 `json:"thetaTolerance"`
	// PressureTolerance is the same bound for P, in pascals.
	PressureTolerance float64 `json:"pressureTolerance"`
	// StrainTolerance is the largest strain difference two observations of
	// the same cell may have before they conflict.
	StrainTolerance float64 `json:"strainTolerance"`
	// MonotonicTolerance is the largest difference between adjacent strains
	// of a row that still counts as a tie.
	MonotonicTolerance float64 `json:"monotonicTolerance"`

	// ThetaAxis and PressureAxis, when set, replace the axes derived from
	// the observations. They must be strictly increasing.
	ThetaAxis    []float64 `json:"thetaAxis,omitempty"`
	PressureAxis []float64 `json:"pressureAxis,omitempty"`
}

const (
	DefaultThetaTolerance     = 1e-9
	DefaultPressureTolerance  = 1e-6
	DefaultStrainTolerance    = 1e-12
	DefaultMonotonicTolerance = 0
)

// DefaultOptions returns the tolerances used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ThetaTolerance:     DefaultThetaTolerance,
		PressureTolerance:  DefaultPressureTolerance,
		StrainTolerance:    DefaultStrainTolerance,
		MonotonicTolerance: DefaultMonotonicTolerance,
	}
}

// Envelope is the region covered by a Table.
type Envelope struct {
	ThetaMin    float64 `json:"thetaMin"`
	ThetaMax    float64 `json:"thetaMax"`
	PressureMin float64 `json:"pressureMin"`
	PressureMax float64 `json:"pressureMax"`
	StrainMin   float64 `json:"strainMin"`
	StrainMax   float64 `json:"strainMax"`
}

// ContainsTheta reports whether theta lies within the angular span.
func (e Envelope) ContainsTheta(theta float64) bool {
	return theta >= e.ThetaMin && theta <= e.ThetaMax
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
