package daemon

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// quietPaths are polled by measurement loops; successful requests to them
// are logged at debug level so they do not drown the reload history.
var quietPaths = map[string]bool{
	"/estimate":        true,
	"/envelope":        true,
	"/table":           true,
	"/reload/schedule": true,
	"/version":         true,
}

// ginLogger logs every request through logger. Failed requests are logged at
// warn (4xx) or error (5xx) with the handler errors attached.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// handlers may rewrite c.Request.URL
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"statusCode": status,
			"latencyMs":  time.Since(start).Milliseconds(),
			"dataLength": max(c.Writer.Size(), 0),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", strings.Join(c.Errors.Errors(), "; "))
		}

		msg := c.Request.Method + " " + path + " " + http.StatusText(status)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		case quietPaths[path]:
			entry.Debug(msg)
		default:
			entry.Info(msg)
		}
	}
}
