package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/grasplab/pcal/pkg/config"
	"github.com/grasplab/pcal/pkg/events"
)

var (
	conf            config.Config
	hub             = events.NewHub()
	reloadScheduler *Scheduler
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", getConfig)
	router.GET("/table", getTable)
	router.GET("/estimate", getEstimate)
	router.POST("/estimate", postEstimate)
	router.GET("/envelope", getEnvelope)
	router.PUT("/reload", putReload)
	router.GET("/reload/schedule", getReloadSchedule)
	router.PUT("/reload/skip", putReloadSkip)
	router.GET("/events", streamEvents)
	router.GET("/version", getVersion)

	return router
}

func newReloadScheduler() *Scheduler {
	s := NewScheduler(
		func() error {
			_, err := reloadTable(triggerSchedule)
			return err
		},
		func() error {
			if _, err := os.Stat(conf.TablePath()); err != nil {
				return err
			}
			return nil
		},
		func(data any) {
			due, _ := data.(time.Time)
			logrus.Infof("scheduled calibration table reload at %s", due.Format(time.DateTime))
			hub.Publish(events.ReloadUpcoming, events.ReloadUpcomingEvent{
				Path:      conf.TablePath(),
				DueAt:     due.Unix(),
				Timestamp: time.Now().Unix(),
			})
		},
		func(data any) {
			logrus.Warnf("scheduled calibration table reload: %v", data)
		},
	)
	return s
}

// applyConfig (re)starts the parts of the daemon driven by the config.
func applyConfig() {
	if err := reloadScheduler.Schedule(conf.ReloadSchedule()); err != nil {
		logrus.Errorf("failed to apply reload schedule: %v", err)
	} else if next, _ := reloadScheduler.Status(); !next.IsZero() {
		logrus.Infof("next scheduled table reload at %s", next.Format(time.DateTime))
	}
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	// A daemon without a table still starts: it answers 503 until a
	// reload succeeds.
	if _, err := reloadTable(triggerStartup); err != nil {
		logrus.Warnf("starting without a calibration table: %v", err)
	}

	reloadScheduler = newReloadScheduler()
	applyConfig()
	reloadScheduler.Start()

	// Receive SIGHUP to reload config and table
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
			applyConfig()
			_, _ = reloadTable(triggerSignal)
		}
	}()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Remove a stale socket left by an unclean shutdown.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Fatal(err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping reload scheduler")
	reloadScheduler.Stop()

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
