package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		TablePath:          ptr.To(""),
		ThetaTolerance:     ptr.To(calibration.DefaultThetaTolerance),
		PressureTolerance:  ptr.To(calibration.DefaultPressureTolerance),
		StrainTolerance:    ptr.To(calibration.DefaultStrainTolerance),
		MonotonicTolerance: ptr.To(float64(calibration.DefaultMonotonicTolerance)),
		// Empty means the table is only reloaded on request or SIGHUP.
		ReloadSchedule:     ptr.To(""),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	TablePath          *string   `json:"tablePath,omitempty" yaml:"tablePath,omitempty"`
	ThetaTolerance     *float64  `json:"thetaTolerance,omitempty" yaml:"thetaTolerance,omitempty"`
	PressureTolerance  *float64  `json:"pressureTolerance,omitempty" yaml:"pressureTolerance,omitempty"`
	StrainTolerance    *float64  `json:"strainTolerance,omitempty" yaml:"strainTolerance,omitempty"`
	MonotonicTolerance *float64  `json:"monotonicTolerance,omitempty" yaml:"monotonicTolerance,omitempty"`
	ThetaAxis          []float64 `json:"thetaAxis,omitempty" yaml:"thetaAxis,omitempty"`
	PressureAxis       []float64 `json:"pressureAxis,omitempty" yaml:"pressureAxis,omitempty"`
	ReloadSchedule     *string   `json:"reloadSchedule,omitempty" yaml:"reloadSchedule,omitempty"`
	AllowNonRootAccess *bool     `json:"allowNonRootAccess,omitempty" yaml:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		TablePath:          ptr.To(c.TablePath()),
		ThetaTolerance:     ptr.To(c.ThetaTolerance()),
		PressureTolerance:  ptr.To(c.PressureTolerance()),
		StrainTolerance:    ptr.To(c.StrainTolerance()),
		MonotonicTolerance: ptr.To(c.MonotonicTolerance()),
		ThetaAxis:          c.ThetaAxis(),
		PressureAxis:       c.PressureAxis(),
		ReloadSchedule:     ptr.To(c.ReloadSchedule()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// isYAML tells whether the config file should be read and written as YAML.
// Everything else is JSON.
func (f *File) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.filepath))
	return ext == ".yaml" || ext == ".yml"
}

func (f *File) TablePath() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.TablePath, *defaultFileConfig.TablePath)
}

// ThetaTolerance is in radians.
func (f *File) ThetaTolerance() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ThetaTolerance, *defaultFileConfig.ThetaTolerance)
}

// PressureTolerance is in pascals.
func (f *File) PressureTolerance() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.PressureTolerance, *defaultFileConfig.PressureTolerance)
}

func (f *File) StrainTolerance() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.StrainTolerance, *defaultFileConfig.StrainTolerance)
}

func (f *File) MonotonicTolerance() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.MonotonicTolerance, *defaultFileConfig.MonotonicTolerance)
}

func (f *File) ThetaAxis() []float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]float64(nil), f.c.ThetaAxis...)
}

func (f *File) PressureAxis() []float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]float64(nil), f.c.PressureAxis...)
}

func (f *File) ReloadSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ReloadSchedule, *defaultFileConfig.ReloadSchedule)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) SetTablePath(p string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.TablePath = &p
}

func (f *File) SetThetaTolerance(tol float64) {
	if f.c == nil {
		panic("config is nil")
	}
	if tol < 0 {
		panic("theta tolerance must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ThetaTolerance = &tol
}

func (f *File) SetPressureTolerance(tol float64) {
	if f.c == nil {
		panic("config is nil")
	}
	if tol < 0 {
		panic("pressure tolerance must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PressureTolerance = &tol
}

func (f *File) SetStrainTolerance(tol float64) {
	if f.c == nil {
		panic("config is nil")
	}
	if tol < 0 {
		panic("strain tolerance must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.StrainTolerance = &tol
}

func (f *File) SetMonotonicTolerance(tol float64) {
	if f.c == nil {
		panic("config is nil")
	}
	if tol < 0 {
		panic("monotonic tolerance must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.MonotonicTolerance = &tol
}

func (f *File) SetReloadSchedule(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ReloadSchedule = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) BuildOptions() calibration.Options {
	return calibration.Options{
		ThetaTolerance:     f.ThetaTolerance(),
		PressureTolerance:  f.PressureTolerance(),
		StrainTolerance:    f.StrainTolerance(),
		MonotonicTolerance: f.MonotonicTolerance(),
		ThetaAxis:          f.ThetaAxis(),
		PressureAxis:       f.PressureAxis(),
	}
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := validate(&conf); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func validate(c *RawFileConfig) error {
	for name, tol := range map[string]*float64{
		"thetaTolerance":     c.ThetaTolerance,
		"pressureTolerance":  c.PressureTolerance,
		"strainTolerance":    c.StrainTolerance,
		"monotonicTolerance": c.MonotonicTolerance,
	} {
		if tol != nil && *tol < 0 {
			return pkgerrors.Errorf("%s must not be negative, got %g", name, *tol)
		}
	}
	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	var buf bytes.Buffer
	if f.isYAML() {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.c); err != nil {
			return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
		}
		_ = enc.Close()
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f.c); err != nil {
			return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
		}
	}

	if err := os.WriteFile(f.filepath, buf.Bytes(), 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"tablePath":          f.TablePath(),
		"thetaTolerance":     f.ThetaTolerance(),
		"pressureTolerance":  f.PressureTolerance(),
		"strainTolerance":    f.StrainTolerance(),
		"monotonicTolerance": f.MonotonicTolerance(),
		"thetaAxis":          f.ThetaAxis(),
		"pressureAxis":       f.PressureAxis(),
		"reloadSchedule":     f.ReloadSchedule(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
