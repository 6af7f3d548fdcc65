package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/crosscheck"
)

func NewCrossCheckCommand() *cobra.Command {
	var tablePath string

	cmd := &cobra.Command{
		Use:     "crosscheck",
		Short:   "Print the expected string tension over the calibration grid",
		GroupID: gBasic,
		Long: fmt.Sprintf(`Print T = %g * P * cot(theta), in newtons, at every grid point.

This is an offline sanity check. Estimates never use it.`, crosscheck.TensionCoefficient),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := fetchTableInfo(tablePath)
			if err != nil {
				return err
			}

			header := color.New(color.Bold, color.FgCyan)

			var sb strings.Builder
			sb.WriteString(header.Sprintf("%10s", "θ (°) \\ P"))
			for _, p := range info.PressureAxis {
				sb.WriteString(header.Sprintf(" %12g", p))
			}
			cmd.Println(sb.String())

			for _, theta := range info.ThetaAxis {
				sb.Reset()
				sb.WriteString(header.Sprintf("%10.3f", calibration.Degrees(theta)))
				for _, p := range info.PressureAxis {
					sb.WriteString(fmt.Sprintf(" %12.6g", crosscheck.Tension(theta, p)))
				}
				cmd.Println(sb.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tablePath, "table", "", "work on this table file instead of asking the daemon")

	return cmd
}
