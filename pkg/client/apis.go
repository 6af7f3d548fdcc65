package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/grasplab/pcal/pkg/config"
	"github.com/grasplab/pcal/pkg/estimator"
	"github.com/grasplab/pcal/pkg/types"
)

func (c *Client) GetTable() (*types.TableInfo, error) {
	ret, err := c.Get("/table")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration table")
	}

	var info types.TableInfo
	if err := json.Unmarshal([]byte(ret), &info); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration table")
	}
	return &info, nil
}

// Estimate asks the daemon for the pressure at theta (radians) and strain.
func (c *Client) Estimate(theta, strain float64) (*estimator.Result, error) {
	payload, err := json.Marshal(types.Measurement{Theta: theta, Strain: strain})
	if err != nil {
		return nil, err
	}
	ret, err := c.Post("/estimate", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to estimate pressure")
	}

	var r estimator.Result
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal estimate")
	}
	return &r, nil
}

func (c *Client) WithinEnvelope(theta, strain float64) (bool, error) {
	q := url.Values{}
	q.Set("theta", strconv.FormatFloat(theta, 'g', -1, 64))
	q.Set("strain", strconv.FormatFloat(strain, 'g', -1, 64))

	ret, err := c.Get("/envelope?" + q.Encode())
	if err != nil {
		return false, pkgerrors.Wrapf(err, "failed to check calibration envelope")
	}
	return parseBoolResponse(ret)
}

// Reload asks the daemon to rebuild its table from the configured file.
func (c *Client) Reload() (string, error) {
	ret, err := c.Put("/reload", "")
	if err != nil {
		return "", err
	}
	return unquote(ret), nil
}

// SkipReload drops the next scheduled reload and returns the schedule after
// the skip.
func (c *Client) SkipReload() (*types.ReloadSchedule, error) {
	ret, err := c.Put("/reload/skip", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to skip scheduled reload")
	}
	return parseReloadSchedule(ret)
}

func (c *Client) GetReloadSchedule() (*types.ReloadSchedule, error) {
	ret, err := c.Get("/reload/schedule")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get reload schedule")
	}
	return parseReloadSchedule(ret)
}

func parseReloadSchedule(ret string) (*types.ReloadSchedule, error) {
	var sched types.ReloadSchedule
	if err := json.Unmarshal([]byte(ret), &sched); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal reload schedule")
	}
	return &sched, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

func parseBoolResponse(resp string) (bool, error) {
	switch unquote(resp) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, pkgerrors.Errorf("unexpected response: %s", resp)
	}
}
