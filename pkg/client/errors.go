package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the daemon socket does not exist
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user may not connect to the daemon socket
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")

	// ErrNoTable is returned when the daemon has no calibration table loaded
	ErrNoTable = errors.New("daemon has no calibration table loaded")
)
