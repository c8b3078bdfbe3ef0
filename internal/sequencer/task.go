package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type waitKind int

const (
	waitNone waitKind = iota
	waitSleep
	waitSignal
)

// Task is one cooperative routine. Its methods must only be called from the
// routine itself.
type Task struct {
	ID   string
	Name string

	s      *Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	resume chan struct{}
	yield  chan struct{}

	wait    waitKind
	wakeAt  time.Duration
	signal  Signal
	cond    func() bool
	running bool
	aborted bool
	done    bool
	err     error
}

func newTask(s *Scheduler, name string) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		ID:     uuid.NewString(),
		Name:   name,
		s:      s,
		ctx:    ctx,
		cancel: cancel,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
}

// Context is cancelled when the task is aborted or finishes.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Aborted reports whether the task was aborted.
func (t *Task) Aborted() bool {
	return t.aborted
}

// Done reports whether the routine has returned.
func (t *Task) Done() bool {
	return t.done
}

// Err returns the routine's result once it is done.
func (t *Task) Err() error {
	return t.err
}

// Sleep suspends the task for d of virtual time.
func (t *Task) Sleep(d time.Duration) error {
	if t.aborted {
		return ErrAborted
	}
	if d <= 0 {
		return nil
	}
	t.wait = waitSleep
	t.wakeAt = t.s.now + d
	return t.suspend()
}

// Await suspends the task until sig is delivered.
func (t *Task) Await(sig Signal) error {
	return t.AwaitUntil(sig, nil)
}

// AwaitUntil suspends the task until sig is delivered at a moment when cond
// holds. It returns immediately if cond already holds.
func (t *Task) AwaitUntil(sig Signal, cond func() bool) error {
	if t.aborted {
		return ErrAborted
	}
	if cond != nil && cond() {
		return nil
	}
	t.wait = waitSignal
	t.signal = sig
	t.cond = cond
	return t.suspend()
}

// Waiting returns the signal the task is suspended on, if any.
func (t *Task) Waiting() (Signal, bool) {
	if t.running || t.wait != waitSignal {
		return "", false
	}
	return t.signal, true
}

func (t *Task) suspend() error {
	t.running = false
	t.yield <- struct{}{}
	<-t.resume
	t.running = true
	t.wait = waitNone
	t.signal = ""
	t.cond = nil
	if t.aborted {
		return ErrAborted
	}
	return nil
}

func (t *Task) run(routine Routine) {
	<-t.resume
	t.running = true
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
		t.running = false
		t.done = true
		t.yield <- struct{}{}
	}()
	t.err = routine(t)
}
