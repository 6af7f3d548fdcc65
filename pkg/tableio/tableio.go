// Package tableio reads calibration observations exported by the simulation
// pipeline. CSV, JSON and YAML exports are supported; each record carries
// theta_rad, P_Pa and strain, optionally with a theta_deg companion column.
package tableio

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grasplab/pcal/pkg/calibration"
)

// Format is an observation file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// degreeMismatchTolerance is how far theta_deg may disagree with theta_rad
// (in radians) before a warning is logged.
const degreeMismatchTolerance = 1e-6

var columnAliases = map[string]string{
	"theta":       "theta_rad",
	"theta_rad":   "theta_rad",
	"theta_deg":   "theta_deg",
	"p_pa":        "P_Pa",
	"pressure":    "P_Pa",
	"pressure_pa": "P_Pa",
	"strain":      "strain",
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", pkgerrors.Errorf("cannot infer observation format of %s", path)
	}
}

// LoadFile reads every observation in the file at path.
func LoadFile(path string) ([]calibration.Observation, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	fp, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open file %s", path)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", path)
		}
	}(fp)

	obs, err := Read(fp, format)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read observations from %s", path)
	}

	logrus.WithFields(logrus.Fields{
		"path":         path,
		"format":       format,
		"observations": len(obs),
	}).Debug("loaded calibration observations")

	return obs, nil
}

// Read decodes observations from r in the given format.
func Read(r io.Reader, format Format) ([]calibration.Observation, error) {
	var (
		obs []calibration.Observation
		err error
	)

	switch format {
	case FormatCSV:
		obs, err = ReadCSV(r)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&obs)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&obs)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, pkgerrors.Errorf("unknown observation format %q", format)
	}
	if err != nil {
		return nil, err
	}

	for i, o := range obs {
		check(i, o)
	}
	return obs, nil
}

// ReadCSV decodes a CSV export with a header row. Columns may come in any
// order; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]calibration.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read csv header")
	}

	cols := map[string]int{}
	for i, name := range header {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			cols[canonical] = i
		}
	}
	for _, required := range []string{"theta_rad", "P_Pa", "strain"} {
		if _, ok := cols[required]; !ok {
			return nil, pkgerrors.Errorf("csv header is missing column %s", required)
		}
	}

	var obs []calibration.Observation
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to read csv record")
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) (float64, error) {
			raw := strings.TrimSpace(record[cols[name]])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, pkgerrors.Wrapf(err, "line %d: invalid %s %q", line, name, raw)
			}
			return v, nil
		}

		var o calibration.Observation
		if o.Theta, err = field("theta_rad"); err != nil {
			return nil, err
		}
		if o.Pressure, err = field("P_Pa"); err != nil {
			return nil, err
		}
		if o.Strain, err = field("strain"); err != nil {
			return nil, err
		}
		if i, ok := cols["theta_deg"]; ok && strings.TrimSpace(record[i]) != "" {
			deg, err := field("theta_deg")
			if err != nil {
				return nil, err
			}
			o.ThetaDeg = &deg
		}
		obs = append(obs, o)
	}

	return obs, nil
}

// check logs suspicious records. It never rejects them: validation is the
// builder's job.
func check(i int, o calibration.Observation) {
	entry := logrus.WithFields(logrus.Fields{
		"record":   i,
		"theta":    o.Theta,
		"pressure": o.Pressure,
	})
	if o.Pressure < 0 {
		entry.Warn("negative pressure in calibration observation")
	}
	if o.ThetaDeg != nil && math.Abs(calibration.Radians(*o.ThetaDeg)-o.Theta) > degreeMismatchTolerance {
		entry.WithField("thetaDeg", *o.ThetaDeg).Warn("theta_deg disagrees with theta_rad; theta_rad is used")
	}
}

// WriteCSV writes observations in the CSV layout ReadCSV accepts.
func WriteCSV(w io.Writer, obs []calibration.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"theta_rad", "theta_deg", "P_Pa", "strain"}); err != nil {
		return pkgerrors.Wrap(err, "failed to write csv header")
	}
	for _, o := range obs {
		deg := calibration.Degrees(o.Theta)
		if o.ThetaDeg != nil {
			deg = *o.ThetaDeg
		}
		row := []string{
			strconv.FormatFloat(o.Theta, 'g', -1, 64),
			strconv.FormatFloat(deg, 'g', -1, 64),
			strconv.FormatFloat(o.Pressure, 'g', -1, 64),
			strconv.FormatFloat(o.Strain, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return pkgerrors.Wrap(err, "failed to write csv record")
		}
	}
	cw.Flush()
	return pkgerrors.Wrap(cw.Error(), "failed to flush csv")
}

// GridObservations flattens a strain grid back into observations, row by
// row. grid[i][j] is the strain at (thetas[i], pressures[j]).
func GridObservations(thetas, pressures []float64, grid [][]float64) []calibration.Observation {
	obs := make([]calibration.Observation, 0, len(thetas)*len(pressures))
	for i, theta := range thetas {
		for j, p := range pressures {
			obs = append(obs, calibration.Observation{Theta: theta, Pressure: p, Strain: grid[i][j]})
		}
	}
	return obs
}
