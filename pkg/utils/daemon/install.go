// Package daemon installs the pcal daemon as a systemd service.
package daemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/sirupsen/logrus"
)

var (
	// UnitPath is where the service unit is written.
	UnitPath = "/etc/systemd/system/pcal.service"

	// systemctl is swapped out in tests.
	systemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %v: %w: %s", args, err, bytes.TrimSpace(out))
		}
		return nil
	}
)

const unitName = "pcal.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=pcal calibration table daemon
After=local-fs.target

[Service]
Type=simple
ExecStart={{.ExecPath}} daemon --config {{.ConfigPath}} --daemon-socket {{.SocketPath}}{{if .AllowNonRootAccess}} --always-allow-non-root-access{{end}}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure

[Install]
WantedBy=multi-user.target
`))

// UnitOptions fills the service unit template.
type UnitOptions struct {
	// ExecPath defaults to the running executable.
	ExecPath           string
	ConfigPath         string
	SocketPath         string
	AllowNonRootAccess bool
}

func RenderUnit(opts UnitOptions) (string, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, opts); err != nil {
		return "", fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.String(), nil
}

func Install(opts UnitOptions) error {
	if opts.ExecPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get the path to the current executable: %w", err)
		}
		opts.ExecPath = exePath
	}
	exePath, err := filepath.Abs(opts.ExecPath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the executable: %w", err)
	}
	opts.ExecPath = exePath

	logrus.Infof("executable path: %s", exePath)

	unit, err := RenderUnit(opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(UnitPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(UnitPath), err)
	}

	if _, err := os.Stat(UnitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", UnitPath)
	}

	logrus.Infof("writing service unit to %s", UnitPath)
	if err := os.WriteFile(UnitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", UnitPath, err)
	}

	logrus.Infof("starting pcal")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}
