package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/config"
	daemonutils "github.com/grasplab/pcal/pkg/utils/daemon"
)

func NewInstallCommand() *cobra.Command {
	var (
		allowNonRootAccess bool
		tablePath          string
	)

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install pcal daemon as a systemd service",
		GroupID: gDaemon,
		Long: `Install pcal daemon as a systemd service (system-wide).

This makes pcal run in the background and start on boot. You must run this command as root.

By default, only root may access the daemon socket. Use --allow-non-root-access to let other users query estimates without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if tablePath != "" {
				conf.SetTablePath(tablePath)
			}
			if conf.TablePath() == "" {
				logrus.Warn("no table path configured, the daemon will start without a calibration table")
			}

			err = daemonutils.Install(daemonutils.UnitOptions{
				ConfigPath:         configPath,
				SocketPath:         unixSocketPath,
				AllowNonRootAccess: allowNonRootAccess,
			})
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			if err := conf.Save(); err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()
			cmd.Printf("systemd will run the current binary (%s). If you move or delete it, run `pcal install' again.\n", exePath)

			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access the pcal daemon.")
	f.StringVar(&tablePath, "table", "", "calibration table file the daemon loads")

	return cmd
}

func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall pcal daemon from systemd",
		GroupID: gDaemon,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(); err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")
			cmd.Printf("Your config is kept in %s. Remove it by hand for a complete uninstall.\n", configPath)
			return nil
		},
	}
}
