package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/client"
	"github.com/grasplab/pcal/pkg/config"
	"github.com/grasplab/pcal/pkg/tableio"
	"github.com/grasplab/pcal/pkg/types"
)

func apiClient() *client.Client {
	return client.NewClient(unixSocketPath)
}

// loadLocalTable builds a table from path using the tolerances in the
// config file. A missing config file means defaults.
func loadLocalTable(path string) (*calibration.Table, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	obs, err := tableio.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return calibration.Build(obs, conf.BuildOptions())
}

func tableInfo(path string, t *calibration.Table) *types.TableInfo {
	return &types.TableInfo{
		Path:         path,
		ThetaAxis:    t.ThetaAxis(),
		PressureAxis: t.PressureAxis(),
		Strain:       t.Grid(),
		Envelope:     t.Envelope(),
	}
}

// measurementFlags are shared by commands that take a single measurement.
type measurementFlags struct {
	theta    float64
	thetaDeg float64
	strain   float64
	table    string
}

func (m *measurementFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&m.theta, "theta", 0, "measured angle in radians")
	f.Float64Var(&m.thetaDeg, "theta-deg", 0, "measured angle in degrees")
	f.Float64Var(&m.strain, "strain", 0, "measured strain")
	f.StringVar(&m.table, "table", "", "work on this table file instead of asking the daemon")

	cmd.MarkFlagsMutuallyExclusive("theta", "theta-deg")
	cmd.MarkFlagsOneRequired("theta", "theta-deg")
	_ = cmd.MarkFlagRequired("strain")
}

// radians returns the measured angle, whichever flag it was given with.
func (m *measurementFlags) radians(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("theta-deg") {
		return calibration.Radians(m.thetaDeg)
	}
	return m.theta
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
