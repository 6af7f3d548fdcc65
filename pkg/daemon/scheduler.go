package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultLead          = 10 * time.Second
	defaultRetryInterval = 10 * time.Second
	defaultMaxRetries    = 6
)

type NotifyFunc func(data any)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task at the times of a cron schedule.
//
// Lead before each run OnUpcoming receives the run time. At the run time
// PreCheck gates the task; a failing PreCheck is retried every
// RetryInterval, at most MaxRetries times, before that run is abandoned.
// Failures of either are passed to OnError.
type Scheduler struct {
	Task       TaskFunc
	PreCheck   TaskFunc
	OnUpcoming NotifyFunc
	OnError    NotifyFunc

	Lead          time.Duration
	RetryInterval time.Duration
	MaxRetries    int

	parser cron.Parser

	mu       sync.Mutex
	expr     string
	schedule cron.Schedule
	next     time.Time
	running  bool

	// wake is signalled whenever the schedule or the next run changes.
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewScheduler(task, preCheck TaskFunc, onUpcoming, onError NotifyFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		Task:          task,
		PreCheck:      preCheck,
		OnUpcoming:    onUpcoming,
		OnError:       onError,
		Lead:          defaultLead,
		RetryInterval: defaultRetryInterval,
		MaxRetries:    defaultMaxRetries,
		parser:        cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Schedule replaces the schedule with cronExpr. An empty expression clears
// it, leaving the scheduler idle.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = s.parser.Parse(cronExpr)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cronExpr, err)
		}
	}

	s.mu.Lock()
	s.expr = cronExpr
	s.schedule = sh
	s.next = time.Time{}
	if sh != nil {
		s.next = sh.Next(time.Now())
	}
	s.mu.Unlock()

	s.signal()
	return nil
}

// Skip drops the next run and returns the one after it.
func (s *Scheduler) Skip() (time.Time, error) {
	s.mu.Lock()
	if s.schedule == nil || s.next.IsZero() {
		s.mu.Unlock()
		return time.Time{}, fmt.Errorf("no scheduled reload to skip")
	}
	skipped := s.next
	s.next = s.schedule.Next(skipped)
	next := s.next
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"skipped": skipped.Format(time.DateTime),
		"next":    next.Format(time.DateTime),
	}).Info("skipped scheduled table reload")

	s.signal()
	return next, nil
}

// Status returns the next run time (zero when nothing is scheduled) and
// whether the run loop is active.
func (s *Scheduler) Status() (next time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.running
}

// Expr returns the cron expression in effect.
func (s *Scheduler) Expr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

type wakeReason int

const (
	wakeTimer wakeReason = iota
	wakeChanged
	wakeStopped
)

// wait sleeps for d unless the schedule changes or the scheduler stops.
func (s *Scheduler) wait(d time.Duration) wakeReason {
	if d < 0 {
		d = 0
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return wakeTimer
	case <-s.wake:
		return wakeChanged
	case <-s.stop:
		return wakeStopped
	}
}

func (s *Scheduler) loop() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("reload scheduler stopped")
	}()

	logrus.Debug("reload scheduler started")

	for {
		next, _ := s.Status()
		if next.IsZero() {
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			}
		}

		switch s.wait(time.Until(next) - s.Lead) {
		case wakeStopped:
			return
		case wakeChanged:
			continue
		}
		logrus.Debugf("scheduled reload upcoming at %s", next.Format(time.DateTime))
		s.notify(s.OnUpcoming, next)

		switch s.wait(time.Until(next)) {
		case wakeStopped:
			return
		case wakeChanged:
			continue
		}

		if !s.attempt(next) {
			return
		}
	}
}

// attempt runs the task for the run due at due. It returns false when the
// scheduler was stopped while retrying the precheck.
func (s *Scheduler) attempt(due time.Time) bool {
	var lastErr error
	for try := 0; ; try++ {
		err := s.check()
		if err == nil {
			logrus.Debugf("running scheduled reload due at %s", due.Format(time.DateTime))
			go func() {
				if err := s.Task(); err != nil {
					s.notify(s.OnError, fmt.Errorf("scheduled reload failed: %w", err))
				}
			}()
			break
		}

		// Report each distinct failure once.
		if lastErr == nil || err.Error() != lastErr.Error() {
			s.notify(s.OnError, fmt.Errorf("precheck failed: %w", err))
		}
		lastErr = err

		if try >= s.MaxRetries {
			logrus.Warnf("giving up scheduled reload due at %s after %d prechecks", due.Format(time.DateTime), try+1)
			break
		}
		logrus.Debugf("precheck failed (%d/%d): %v; retrying in %s", try+1, s.MaxRetries, err, s.RetryInterval)

		switch s.wait(s.RetryInterval) {
		case wakeStopped:
			return false
		case wakeChanged:
			// Schedule or Skip already moved the next run.
			return true
		}
	}

	s.mu.Lock()
	if s.schedule != nil && s.next.Equal(due) {
		s.next = s.schedule.Next(time.Now())
	}
	s.mu.Unlock()
	return true
}

func (s *Scheduler) check() error {
	if s.PreCheck == nil {
		return nil
	}
	return s.PreCheck()
}

func (s *Scheduler) notify(fn NotifyFunc, data any) {
	if fn == nil {
		return
	}
	go fn(data)
}
