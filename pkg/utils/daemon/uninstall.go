package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func Uninstall() error {
	logrus.Infof("stopping pcal")

	if err := systemctl("disable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to stop %s: %w. Are you root?", unitName, err)
	}

	logrus.Infof("removing service unit")

	// if the file doesn't exist, we don't need to remove it
	if _, err := os.Stat(UnitPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", UnitPath, err)
	}

	if err := os.Remove(UnitPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", UnitPath, err)
	}

	return systemctl("daemon-reload")
}
