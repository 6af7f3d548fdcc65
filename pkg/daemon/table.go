package daemon

import (
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/events"
	"github.com/grasplab/pcal/pkg/tableio"
)

// Reload triggers, reported in events and logs.
const (
	triggerStartup  = "startup"
	triggerAPI      = "api"
	triggerSignal   = "sighup"
	triggerSchedule = "schedule"
)

// ErrNoTablePath is returned when a reload is requested but no table path
// is configured.
var ErrNoTablePath = pkgerrors.New("no calibration table path configured")

// loadedTable is a table together with where and when it was loaded.
type loadedTable struct {
	table    *calibration.Table
	path     string
	loadedAt time.Time
}

var (
	// current is swapped as a whole; readers never see a partially built
	// table.
	current atomic.Pointer[loadedTable]
	// reloadMu serializes reloads so builds do not race each other.
	reloadMu sync.Mutex
)

// currentTable returns the table in service, or nil if none is loaded.
func currentTable() *loadedTable {
	return current.Load()
}

// reloadTable builds a new table from the configured path and swaps it in.
// On failure the previous table stays in service.
func reloadTable(trigger string) (*loadedTable, error) {
	reloadMu.Lock()
	defer reloadMu.Unlock()

	path := conf.TablePath()
	logger := logrus.WithFields(logrus.Fields{
		"path":    path,
		"trigger": trigger,
	})

	lt, err := buildTable(path)
	if err != nil {
		logger.Errorf("failed to reload calibration table: %v", err)
		hub.Publish(events.TableReloadFailed, events.TableReloadFailedEvent{
			Path:      path,
			Error:     err.Error(),
			Trigger:   trigger,
			Timestamp: time.Now().Unix(),
		})
		return nil, err
	}

	current.Store(lt)

	rows, cols := lt.table.Dims()
	logger.WithFields(logrus.Fields{
		"rows":    rows,
		"columns": cols,
	}).Info("calibration table loaded")
	hub.Publish(events.TableReloaded, events.TableReloadedEvent{
		Path:      path,
		Rows:      rows,
		Columns:   cols,
		Trigger:   trigger,
		Timestamp: lt.loadedAt.Unix(),
	})

	return lt, nil
}

func buildTable(path string) (*loadedTable, error) {
	if path == "" {
		return nil, ErrNoTablePath
	}

	obs, err := tableio.LoadFile(path)
	if err != nil {
		return nil, err
	}

	table, err := calibration.Build(obs, conf.BuildOptions())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to build calibration table from %s", path)
	}

	return &loadedTable{
		table:    table,
		path:     path,
		loadedAt: time.Now(),
	}, nil
}
