// Package calibration builds the strain(θ, P) calibration table used to
// recover applied pressure from a measured angle and strain. It contains:
//
//   - Observation: one simulated (θ, P, strain) sample
//   - Options: tolerances and optional explicit axes used by the builder
//   - Table: the immutable regular grid produced by Build
//
// A Table is never mutated after Build returns, so a single instance may be
// shared by any number of concurrent readers. Recalibration means building
// a new Table and swapping the reference.
package calibration
