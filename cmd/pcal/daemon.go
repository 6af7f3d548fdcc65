package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grasplab/pcal/pkg/daemon"
	"github.com/grasplab/pcal/pkg/types"
	"github.com/grasplab/pcal/pkg/version"
)

var (
	// alwaysAllowNonRootAccess lets non-root users talk to the daemon socket.
	alwaysAllowNonRootAccess = false
)

func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run pcal daemon in the foreground",
		GroupID: gDaemon,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("pcal daemon starting")
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}

func NewReloadCommand() *cobra.Command {
	var skip, status bool

	cmd := &cobra.Command{
		Use:     "reload",
		Short:   "Rebuild the daemon's table from its configured file",
		GroupID: gDaemon,
		Long: `Ask the daemon to rebuild its calibration table from the configured file.

If the new table fails to build, the daemon keeps serving the previous one.

With --skip the next scheduled reload is dropped instead; --status shows
the reload schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case skip:
				sched, err := apiClient().SkipReload()
				if err != nil {
					return err
				}
				printReloadSchedule(cmd, sched)
				return nil
			case status:
				sched, err := apiClient().GetReloadSchedule()
				if err != nil {
					return err
				}
				printReloadSchedule(cmd, sched)
				return nil
			}

			ret, err := apiClient().Reload()
			if err != nil {
				return fmt.Errorf("failed to reload table: %w", err)
			}
			logrus.Infof("daemon responded: %s", ret)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&skip, "skip", false, "skip the next scheduled reload")
	f.BoolVar(&status, "status", false, "show the reload schedule")
	cmd.MarkFlagsMutuallyExclusive("skip", "status")

	return cmd
}

func printReloadSchedule(cmd *cobra.Command, sched *types.ReloadSchedule) {
	if sched.Schedule == "" || sched.NextRun.IsZero() {
		cmd.Println("No table reload is scheduled.")
		return
	}
	cmd.Printf("Reload schedule: %s\n", bold("%s", sched.Schedule))
	cmd.Printf("  Next reload: %s\n", sched.NextRun.Local().Format(time.DateTime))
}
