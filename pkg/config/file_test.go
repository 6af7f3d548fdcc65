package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/grasplab/pcal/pkg/calibration"
)

func TestFileDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	if got := f.BuildOptions(); !reflect.DeepEqual(got, calibration.Options{
		ThetaTolerance:     calibration.DefaultThetaTolerance,
		PressureTolerance:  calibration.DefaultPressureTolerance,
		StrainTolerance:    calibration.DefaultStrainTolerance,
		MonotonicTolerance: calibration.DefaultMonotonicTolerance,
	}) {
		t.Errorf("BuildOptions() = %+v, want defaults", got)
	}
	if f.TablePath() != "" || f.ReloadSchedule() != "" || f.AllowNonRootAccess() {
		t.Errorf("unexpected defaults: %v", f.LogrusFields())
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"pcal.json", "pcal.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			f := NewFileFromConfig(nil, path)
			f.SetTablePath("/var/lib/pcal/table.csv")
			f.SetThetaTolerance(1e-6)
			f.SetPressureTolerance(0.5)
			f.SetStrainTolerance(1e-8)
			f.SetMonotonicTolerance(1e-10)
			f.SetReloadSchedule("@every 1h")
			f.SetAllowNonRootAccess(true)
			if err := f.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := NewFile(path)
			if err != nil {
				t.Fatalf("NewFile failed: %v", err)
			}
			if !reflect.DeepEqual(loaded.LogrusFields(), f.LogrusFields()) {
				t.Errorf("loaded %v, want %v", loaded.LogrusFields(), f.LogrusFields())
			}
		})
	}
}

func TestFileLoadYAMLAxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcal.yml")
	content := `tablePath: table.csv
thetaTolerance: 0.001
pressureTolerance: 2.5
thetaAxis: [0.1, 0.2, 0.3]
pressureAxis: [0, 1000]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	opts := f.BuildOptions()
	if opts.ThetaTolerance != 0.001 || opts.PressureTolerance != 2.5 {
		t.Errorf("tolerances = %v, %v, want 0.001, 2.5", opts.ThetaTolerance, opts.PressureTolerance)
	}
	if !reflect.DeepEqual(opts.ThetaAxis, []float64{0.1, 0.2, 0.3}) || !reflect.DeepEqual(opts.PressureAxis, []float64{0, 1000}) {
		t.Errorf("unexpected axes: %v %v", opts.ThetaAxis, opts.PressureAxis)
	}
	if opts.StrainTolerance != calibration.DefaultStrainTolerance {
		t.Errorf("StrainTolerance = %v, want default", opts.StrainTolerance)
	}
}

func TestFileLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{name: "empty file", file: "c.json", content: "  \n", wantErr: false},
		{name: "malformed json", file: "c.json", content: "{", wantErr: true},
		{name: "negative theta tolerance", file: "c.json", content: `{"thetaTolerance": -1}`, wantErr: true},
		{name: "negative pressure tolerance", file: "c.yaml", content: "pressureTolerance: -0.5", wantErr: true},
		{name: "malformed yaml", file: "c.yaml", content: "thetaTolerance: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
