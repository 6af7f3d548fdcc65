package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/tableio"
	"github.com/grasplab/pcal/pkg/types"
)

func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate <file>",
		Short:   "Check that a file of observations builds a calibration table",
		GroupID: gBasic,
		Long: `Build a calibration table from a CSV, JSON or YAML file of observations
and report whether it is a complete, unambiguous and monotonic grid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadLocalTable(args[0])
			if err != nil {
				cmd.Printf("%s %s\n", bool2Text(false), args[0])
				printBuildHint(cmd, err)
				return err
			}

			rows, cols := t.Dims()
			cmd.Printf("%s %s: %d angles x %d pressures\n", bool2Text(true), args[0], rows, cols)
			return nil
		},
	}
}

// printBuildHint explains the build errors a user can fix in the data.
func printBuildHint(cmd *cobra.Command, err error) {
	var (
		incomplete *calibration.IncompleteGridError
		mismatch   *calibration.AxisMismatchError
		monotonic  *calibration.NonMonotonicRowError
	)
	switch {
	case errors.As(err, &incomplete):
		cmd.Printf("  %d grid points have no observation.\n", len(incomplete.Missing))
	case errors.As(err, &mismatch):
		cmd.Printf("  Observed %s values drift more than the tolerance. Check %sTolerance in the config.\n", mismatch.Axis, mismatch.Axis)
	case errors.As(err, &monotonic):
		cmd.Printf("  Row at %.3f° must strictly increase or decrease with pressure.\n", calibration.Degrees(monotonic.Theta))
	}
}

func NewTableCommand() *cobra.Command {
	var (
		tablePath string
		asJSON    bool
		export    string
	)

	cmd := &cobra.Command{
		Use:     "table",
		Short:   "Print the calibration table",
		GroupID: gBasic,
		Long: `Print the axes, strain grid and envelope of a calibration table.

With --table the file is built locally, otherwise the daemon's table is shown.
With --export csv the grid is written as observations that pcal can load.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := fetchTableInfo(tablePath)
			if err != nil {
				return err
			}

			switch export {
			case "":
			case "csv":
				obs := tableio.GridObservations(info.ThetaAxis, info.PressureAxis, info.Strain)
				return tableio.WriteCSV(cmd.OutOrStdout(), obs)
			default:
				return fmt.Errorf("unsupported export format %q", export)
			}

			if asJSON {
				b, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printTable(cmd, info)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&tablePath, "table", "", "work on this table file instead of asking the daemon")
	f.BoolVar(&asJSON, "json", false, "print as JSON")
	f.StringVar(&export, "export", "", "write the table as observations in this format (csv)")
	cmd.MarkFlagsMutuallyExclusive("json", "export")

	return cmd
}

func fetchTableInfo(tablePath string) (*types.TableInfo, error) {
	if tablePath == "" {
		info, err := apiClient().GetTable()
		if err != nil {
			return nil, fmt.Errorf("failed to get table from daemon: %w", err)
		}
		return info, nil
	}

	t, err := loadLocalTable(tablePath)
	if err != nil {
		return nil, err
	}
	return tableInfo(tablePath, t), nil
}

func printTable(cmd *cobra.Command, info *types.TableInfo) {
	if info.Path != "" {
		cmd.Println(bold("Table: ") + info.Path)
	}
	if !info.LoadedAt.IsZero() {
		cmd.Printf("  Loaded at: %s\n", info.LoadedAt.Local().Format("2006-01-02 15:04:05"))
	}
	cmd.Println()

	header := color.New(color.Bold, color.FgCyan)

	var sb strings.Builder
	sb.WriteString(header.Sprintf("%10s", "θ (°) \\ P"))
	for _, p := range info.PressureAxis {
		sb.WriteString(header.Sprintf(" %12g", p))
	}
	cmd.Println(sb.String())

	for i, theta := range info.ThetaAxis {
		sb.Reset()
		sb.WriteString(header.Sprintf("%10.3f", calibration.Degrees(theta)))
		for _, s := range info.Strain[i] {
			sb.WriteString(fmt.Sprintf(" %12.6g", s))
		}
		cmd.Println(sb.String())
	}

	env := info.Envelope
	cmd.Println()
	cmd.Println(bold("Envelope:"))
	cmd.Printf("  Theta:    %.3f° to %.3f°\n", calibration.Degrees(env.ThetaMin), calibration.Degrees(env.ThetaMax))
	cmd.Printf("  Pressure: %g to %g Pa\n", env.PressureMin, env.PressureMax)
	cmd.Printf("  Strain:   %g to %g\n", env.StrainMin, env.StrainMax)
}
