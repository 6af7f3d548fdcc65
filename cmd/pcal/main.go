package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grasplab/pcal/pkg/client"
	"github.com/grasplab/pcal/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/pcal.sock"
	configPath     = "/etc/pcal.json"
)

var (
	gBasic        = "Basic:"
	gDaemon       = "Daemon:"
	commandGroups = []string{
		gBasic,
		gDaemon,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: pcal daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'pcal daemon', or pass --table to work on a local file.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or start the daemon with '--always-allow-non-root-access'")
	case errors.Is(err, client.ErrNoTable):
		fmt.Fprintln(os.Stderr, "\nError: the daemon has no calibration table loaded")
		fmt.Fprintln(os.Stderr, "Set tablePath in the config and run 'pcal reload'.")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pcal",
		Short: "pcal estimates pressure from angle and strain using a calibration table",
		Long: `pcal builds a calibration table from (theta, pressure, strain) observations
and estimates pressure from a measured angle and strain.

Commands work either on a local table file (--table) or against a running
pcal daemon.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path (.json, .yaml or .yml)")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "pcal daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewValidateCommand(),
		NewTableCommand(),
		NewEstimateCommand(),
		NewEnvelopeCommand(),
		NewCrossCheckCommand(),
		NewReloadCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)

			daemonVersion, err := apiClient().GetVersion()
			if err != nil {
				logrus.Debugf("failed to get daemon version: %v", err)
				return
			}
			if daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("version mismatch between client and daemon")
			}
		},
	}
}
