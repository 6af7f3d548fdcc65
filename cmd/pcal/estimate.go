package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/estimator"
)

func NewEstimateCommand() *cobra.Command {
	var (
		m      measurementFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "Estimate pressure from a measured angle and strain",
		GroupID: gBasic,
		Long: `Estimate pressure from a measured angle and strain.

Strain is inverted to pressure along the calibration rows that bracket the
angle, then the two pressures are interpolated linearly in angle. Angles
outside the table are clamped to its edge. Strains outside a row are
extrapolated linearly, and the result is flagged as outside the envelope.`,
		Example: `  pcal estimate --theta-deg 20 --strain 0.015
  pcal estimate --table cal.csv --theta 0.35 --strain 0.015 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			theta := m.radians(cmd)

			var r *estimator.Result
			if m.table != "" {
				t, err := loadLocalTable(m.table)
				if err != nil {
					return err
				}
				res, err := estimator.EstimateDetail(t, theta, m.strain)
				if err != nil {
					return err
				}
				r = &res
			} else {
				var err error
				r, err = apiClient().Estimate(theta, m.strain)
				if err != nil {
					return fmt.Errorf("failed to estimate pressure: %w", err)
				}
			}

			if asJSON {
				b, err := json.MarshalIndent(r, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printResult(cmd, r)
			return nil
		},
	}

	m.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func printResult(cmd *cobra.Command, r *estimator.Result) {
	cmd.Printf("Pressure: %s\n", bold("%g Pa", r.Pressure))
	if r.RowLo == r.RowHi {
		cmd.Printf("  From row %d (θ = %.3f°)\n", r.RowLo, calibration.Degrees(r.Theta))
	} else {
		cmd.Printf("  Between rows %d and %d: %g Pa and %g Pa, weight %.3f\n",
			r.RowLo, r.RowHi, r.PressureLo, r.PressureHi, r.Weight)
	}
	cmd.Println("  Within calibration envelope: " + bool2Text(r.WithinEnvelope))

	warn := color.New(color.FgYellow)
	if r.ThetaClamped {
		cmd.Println(warn.Sprint("  Angle is outside the table and was clamped to its edge."))
	}
	if r.StrainExtrapolated {
		cmd.Println(warn.Sprint("  Strain is outside the calibrated range; pressure was extrapolated."))
	}
}

func NewEnvelopeCommand() *cobra.Command {
	var m measurementFlags

	cmd := &cobra.Command{
		Use:     "envelope",
		Short:   "Check whether a measurement lies within the calibration envelope",
		GroupID: gBasic,
		RunE: func(cmd *cobra.Command, _ []string) error {
			theta := m.radians(cmd)

			var within bool
			if m.table != "" {
				t, err := loadLocalTable(m.table)
				if err != nil {
					return err
				}
				within = estimator.WithinCalibrationEnvelope(t, theta, m.strain)
			} else {
				var err error
				within, err = apiClient().WithinEnvelope(theta, m.strain)
				if err != nil {
					return fmt.Errorf("failed to check envelope: %w", err)
				}
			}

			cmd.Println("Within calibration envelope: " + bool2Text(within))
			return nil
		},
	}

	m.register(cmd)

	return cmd
}
