// Package eventloop is a single goroutine host loop with a microtask queue
// and a macrotask queue, the deferral primitives the observer scheduler
// needs.
//
// QueueMicrotask, QueueMacrotask, Tick and Drain must be called from the
// goroutine that owns the loop. Other goroutines hand work over with Post,
// which is consumed by Run.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrLoopRunning is returned when Run is called on a loop that is already running.
	ErrLoopRunning = errors.New("eventloop: loop is already running")

	// ErrLoopTerminated is returned when work is posted to a closed loop.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")
)

const DefaultIngressSize = 256

// Task is one unit of work run by the loop.
type Task func()

// Loop runs microtasks to exhaustion before each macrotask, like a browser
// event loop.
type Loop struct {
	microtasks []Task
	macrotasks []Task

	ingress   chan Task
	done      chan struct{}
	closeOnce sync.Once
	running   atomic.Bool

	logger  *slog.Logger
	onPanic func(v any)

	tasksRun uint64
}

type Option func(*Loop)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPanicHandler receives values recovered from panicking tasks. By
// default they are logged and the loop carries on.
func WithPanicHandler(fn func(v any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

func WithIngressSize(n int) Option {
	return func(l *Loop) {
		l.ingress = make(chan Task, n)
	}
}

func New(opts ...Option) *Loop {
	l := &Loop{
		microtasks: make([]Task, 0, 64),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.ingress == nil {
		l.ingress = make(chan Task, DefaultIngressSize)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "eventloop")
	}
	return l
}

func (l *Loop) QueueMicrotask(t Task) {
	l.microtasks = append(l.microtasks, t)
}

func (l *Loop) QueueMacrotask(t Task) {
	l.macrotasks = append(l.macrotasks, t)
}

// Pending is the number of queued micro and macro tasks.
func (l *Loop) Pending() int {
	return len(l.microtasks) + len(l.macrotasks)
}

// TasksRun is the number of tasks run since the loop was created.
func (l *Loop) TasksRun() uint64 {
	return l.tasksRun
}

// DrainMicrotasks runs microtasks, including ones queued meanwhile, until
// none are left.
func (l *Loop) DrainMicrotasks() int {
	n := 0
	for len(l.microtasks) > 0 {
		t := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]
		l.run(t)
		n++
	}
	// Give the backing array back once it has been consumed.
	l.microtasks = l.microtasks[:0:0]
	return n
}

// Tick drains microtasks, then runs a single macrotask followed by the
// microtasks it queued. It reports whether any work remains.
func (l *Loop) Tick() bool {
	l.DrainMicrotasks()
	if len(l.macrotasks) > 0 {
		t := l.macrotasks[0]
		l.macrotasks[0] = nil
		l.macrotasks = l.macrotasks[1:]
		l.run(t)
		l.DrainMicrotasks()
	}
	return l.Pending() > 0
}

// Drain ticks until both queues are empty and returns the tasks run.
func (l *Loop) Drain() int {
	before := l.tasksRun
	for l.Tick() {
	}
	return int(l.tasksRun - before)
}

func (l *Loop) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			if l.onPanic != nil {
				l.onPanic(r)
				return
			}
			l.logger.Error("task panicked", "panic", fmt.Sprint(r))
		}
	}()
	l.tasksRun++
	t()
}

// Post hands t to the loop from any goroutine. It is queued as a macrotask
// when Run picks it up.
func (l *Loop) Post(ctx context.Context, t Task) error {
	select {
	case <-l.done:
		return ErrLoopTerminated
	default:
	}
	select {
	case l.ingress <- t:
		return nil
	case <-l.done:
		return ErrLoopTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run owns the loop until ctx is cancelled or Close is called, draining the
// queues after each posted task.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	for {
		l.Drain()
		select {
		case t := <-l.ingress:
			l.QueueMacrotask(t)
		case <-l.done:
			l.Drain()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops Run and rejects further posts. Queued tasks still drain.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}
