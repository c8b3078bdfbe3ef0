// Package sequencer runs scripted presentation sequences as cooperative
// tasks on a virtual clock.
//
// At most one task is active. A task runs on its own goroutine but only
// while the caller that resumed it is blocked, so exactly one flow of control
// touches campaign state at any moment. Tasks suspend at named points
// (Sleep, Await) and are resumed by Advance or Deliver.
//
// A Scheduler is not safe for concurrent use; the host drives it from a
// single goroutine.
package sequencer

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrBusy is returned by Start while another task is in flight.
	ErrBusy = errors.New("sequencer: a task is already running")
	// ErrAborted is returned from suspend points once the task is aborted.
	ErrAborted = errors.New("sequencer: task aborted")
)

// Signal names an external occurrence a task can wait for.
type Signal string

// Routine is the body of a task.
type Routine func(t *Task) error

// TimerID identifies a pending timer.
type TimerID uint64

type timer struct {
	id   TimerID
	name string
	due  time.Duration
	fn   func()
}

// Scheduler owns the virtual clock, the active task, and pending timers.
type Scheduler struct {
	logger *zap.Logger

	now       time.Duration
	active    *Task
	timers    []*timer
	nextTimer TimerID
	advancing bool
}

// New creates a scheduler with its clock at zero.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Now returns the virtual time elapsed since creation.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Busy reports whether a task is in flight.
func (s *Scheduler) Busy() bool {
	return s.active != nil
}

// Active returns the in-flight task, or nil.
func (s *Scheduler) Active() *Task {
	return s.active
}

// Start runs routine as the active task until its first suspend point.
func (s *Scheduler) Start(name string, routine Routine) (*Task, error) {
	if s.active != nil {
		s.logger.Debug("start rejected",
			zap.String("op", "sequencer.Start"),
			zap.String("task", name),
			zap.String("active", s.active.Name),
		)
		return nil, ErrBusy
	}
	t := newTask(s, name)
	s.active = t
	s.logger.Debug("task started",
		zap.String("op", "sequencer.Start"),
		zap.String("task", name),
		zap.String("id", t.ID),
	)
	go t.run(routine)
	s.resume(t)
	return t, nil
}

// Deliver resumes the active task if it is suspended on sig and its
// condition, if any, holds. Signals nobody waits for are dropped.
func (s *Scheduler) Deliver(sig Signal) bool {
	t := s.active
	if t == nil || t.running || t.wait != waitSignal || t.signal != sig {
		return false
	}
	if t.cond != nil && !t.cond() {
		return false
	}
	s.logger.Debug("signal delivered",
		zap.String("op", "sequencer.Deliver"),
		zap.String("task", t.Name),
		zap.String("signal", string(sig)),
	)
	s.resume(t)
	return true
}

// Abort cancels the active task. Called from the host, it waits for the
// task to unwind. Called from inside the task, it marks the task aborted
// and releases the scheduler; the task's next suspend point returns
// ErrAborted.
func (s *Scheduler) Abort() bool {
	t := s.active
	if t == nil {
		return false
	}
	t.aborted = true
	t.cancel()
	s.logger.Info("task aborted",
		zap.String("op", "sequencer.Abort"),
		zap.String("task", t.Name),
		zap.String("id", t.ID),
	)
	if t.running {
		s.active = nil
		return true
	}
	s.resume(t)
	return true
}

// AfterFunc schedules fn to run on the host after d of virtual time.
func (s *Scheduler) AfterFunc(d time.Duration, name string, fn func()) TimerID {
	if d < 0 {
		d = 0
	}
	s.nextTimer++
	tm := &timer{id: s.nextTimer, name: name, due: s.now + d, fn: fn}
	s.timers = append(s.timers, tm)
	sort.SliceStable(s.timers, func(i, j int) bool { return s.timers[i].due < s.timers[j].due })
	return tm.id
}

// Cancel removes a pending timer.
func (s *Scheduler) Cancel(id TimerID) bool {
	for i, tm := range s.timers {
		if tm.id == id {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of pending timers.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

// Reset aborts the active task and drops every pending timer.
func (s *Scheduler) Reset() {
	s.Abort()
	s.timers = nil
}

// Advance moves the clock forward by d, waking sleeping tasks and firing
// timers in due order.
func (s *Scheduler) Advance(d time.Duration) {
	if s.advancing {
		s.logger.Warn("re-entrant advance ignored", zap.String("op", "sequencer.Advance"))
		return
	}
	s.advancing = true
	defer func() { s.advancing = false }()

	if d < 0 {
		d = 0
	}
	target := s.now + d
	for {
		due, ok := s.nextDue()
		if !ok || due > target {
			break
		}
		if due > s.now {
			s.now = due
		}
		s.fireNext()
	}
	s.now = target
}

func (s *Scheduler) nextDue() (time.Duration, bool) {
	var (
		due time.Duration
		ok  bool
	)
	if t := s.active; t != nil && !t.running && t.wait == waitSleep {
		due, ok = t.wakeAt, true
	}
	if len(s.timers) > 0 && (!ok || s.timers[0].due < due) {
		due, ok = s.timers[0].due, true
	}
	return due, ok
}

func (s *Scheduler) fireNext() {
	if t := s.active; t != nil && !t.running && t.wait == waitSleep && t.wakeAt <= s.now {
		s.resume(t)
		return
	}
	if len(s.timers) == 0 {
		return
	}
	tm := s.timers[0]
	s.timers = s.timers[1:]
	s.logger.Debug("timer fired",
		zap.String("op", "sequencer.Advance"),
		zap.String("timer", tm.name),
	)
	tm.fn()
}

// resume hands control to t and blocks until it suspends or returns.
func (s *Scheduler) resume(t *Task) {
	t.resume <- struct{}{}
	<-t.yield
	if t.done {
		s.finish(t)
	}
}

func (s *Scheduler) finish(t *Task) {
	if s.active == t {
		s.active = nil
	}
	t.cancel()
	fields := []zap.Field{
		zap.String("op", "sequencer.finish"),
		zap.String("task", t.Name),
		zap.String("id", t.ID),
		zap.Bool("aborted", t.aborted),
	}
	if t.err != nil && !errors.Is(t.err, ErrAborted) {
		s.logger.Error("task failed", append(fields, zap.Error(t.err))...)
		return
	}
	s.logger.Debug("task finished", fields...)
}
