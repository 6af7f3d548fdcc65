package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/grasplab/pcal/pkg/calibration"
	"github.com/grasplab/pcal/pkg/config"
	"github.com/grasplab/pcal/pkg/estimator"
	"github.com/grasplab/pcal/pkg/types"
	"github.com/grasplab/pcal/pkg/version"
)

var errNoTable = errors.New("no calibration table loaded")

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

// requireTable writes 503 and returns nil when no table is loaded.
func requireTable(c *gin.Context) *loadedTable {
	lt := currentTable()
	if lt == nil {
		c.IndentedJSON(http.StatusServiceUnavailable, errNoTable.Error())
		_ = c.AbortWithError(http.StatusServiceUnavailable, errNoTable)
	}
	return lt
}

func getTable(c *gin.Context) {
	lt := requireTable(c)
	if lt == nil {
		return
	}

	c.IndentedJSON(http.StatusOK, types.TableInfo{
		Path:         lt.path,
		LoadedAt:     lt.loadedAt,
		ThetaAxis:    lt.table.ThetaAxis(),
		PressureAxis: lt.table.PressureAxis(),
		Strain:       lt.table.Grid(),
		Envelope:     lt.table.Envelope(),
	})
}

// parseMeasurement reads theta (or thetaDeg) and strain from the query.
func parseMeasurement(c *gin.Context) (types.Measurement, error) {
	var m types.Measurement
	var err error

	if raw, ok := c.GetQuery("thetaDeg"); ok {
		var deg float64
		if deg, err = strconv.ParseFloat(raw, 64); err != nil {
			return m, fmt.Errorf("invalid thetaDeg: %v", err)
		}
		m.Theta = calibration.Radians(deg)
	} else if m.Theta, err = strconv.ParseFloat(c.Query("theta"), 64); err != nil {
		return m, fmt.Errorf("invalid theta: %v", err)
	}

	if m.Strain, err = strconv.ParseFloat(c.Query("strain"), 64); err != nil {
		return m, fmt.Errorf("invalid strain: %v", err)
	}
	return m, nil
}

func respondEstimate(c *gin.Context, m types.Measurement) {
	lt := requireTable(c)
	if lt == nil {
		return
	}

	r, err := estimator.EstimateDetail(lt.table, m.Theta, m.Strain)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	c.IndentedJSON(http.StatusOK, r)
}

func getEstimate(c *gin.Context) {
	m, err := parseMeasurement(c)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	respondEstimate(c, m)
}

func postEstimate(c *gin.Context) {
	var m types.Measurement
	if err := c.BindJSON(&m); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	respondEstimate(c, m)
}

func getEnvelope(c *gin.Context) {
	m, err := parseMeasurement(c)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	lt := requireTable(c)
	if lt == nil {
		return
	}
	c.IndentedJSON(http.StatusOK, estimator.WithinCalibrationEnvelope(lt.table, m.Theta, m.Strain))
}

func putReload(c *gin.Context) {
	lt, err := reloadTable(triggerAPI)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrNoTablePath) {
			status = http.StatusConflict
		}
		c.IndentedJSON(status, err.Error())
		_ = c.AbortWithError(status, err)
		return
	}

	rows, cols := lt.table.Dims()
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("loaded %dx%d calibration table from %s", rows, cols, lt.path))
}

var errNoSchedule = errors.New("no table reload is scheduled")

func reloadSchedule() types.ReloadSchedule {
	if reloadScheduler == nil {
		return types.ReloadSchedule{}
	}
	next, _ := reloadScheduler.Status()
	return types.ReloadSchedule{
		Schedule: reloadScheduler.Expr(),
		NextRun:  next,
	}
}

func getReloadSchedule(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, reloadSchedule())
}

func putReloadSkip(c *gin.Context) {
	if reloadScheduler == nil {
		c.IndentedJSON(http.StatusConflict, errNoSchedule.Error())
		_ = c.AbortWithError(http.StatusConflict, errNoSchedule)
		return
	}
	if _, err := reloadScheduler.Skip(); err != nil {
		c.IndentedJSON(http.StatusConflict, err.Error())
		_ = c.AbortWithError(http.StatusConflict, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, reloadSchedule())
}

func streamEvents(c *gin.Context) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
