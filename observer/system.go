// Package observer is a dependency-tracking reactivity engine. Reactive
// containers record which watchers read them and notify those watchers when
// written; watchers re-run through a deduplicating, ordered scheduler that
// flushes on the host event loop.
package observer

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/observerparty/eventloop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrorHandler receives every error raised by a getter, callback or hook.
// info names the phase that failed.
type ErrorHandler func(err error, vm *Instance, info string)

// WarnHandler receives development warnings. It is not called when the
// System is silent or in production mode.
type WarnHandler func(msg string, vm *Instance)

// System owns all reactive state that would otherwise be global: the
// evaluation target stack, id counters, the scheduler queue and the tick
// queue. A System and everything created from it belong to one goroutine.
type System struct {
	cfg     Config
	logger  *slog.Logger
	loop    *eventloop.Loop
	metrics *Metrics
	tracer  trace.Tracer
	onError ErrorHandler
	onWarn  WarnHandler

	depUID     int
	watcherUID int

	target      *Watcher
	targetStack []*Watcher

	shouldObserve bool

	sched scheduler
	tick  tickQueue
	seen  mapset.Set[int]
	paths map[uint64]*parsedPath
}

type Option func(*System)

func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithErrorHandler replaces the default handler, which logs.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *System) {
		s.onError = fn
	}
}

func WithWarnHandler(fn WarnHandler) Option {
	return func(s *System) {
		s.onWarn = fn
	}
}

// WithLoop schedules flushes on loop instead of a private one.
func WithLoop(loop *eventloop.Loop) Option {
	return func(s *System) {
		s.loop = loop
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *System) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *System) {
		s.tracer = t
	}
}

// New validates cfg and builds a System.
func New(cfg Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &System{
		cfg:           cfg,
		shouldObserve: true,
		sched:         newScheduler(),
		seen:          mapset.NewThreadUnsafeSet[int](),
		paths:         map[uint64]*parsedPath{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "observer")
	}
	if s.loop == nil {
		s.loop = eventloop.New(eventloop.WithLogger(s.logger))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(cfg.TracerName)
	}
	return s, nil
}

// MustNew is New for configurations known to be valid.
func MustNew(cfg Config, opts ...Option) *System {
	s, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *System) Config() Config {
	return s.cfg
}

func (s *System) Loop() *eventloop.Loop {
	return s.loop
}

// Flush runs the loop until every pending tick and flush has completed and
// returns the number of tasks run.
func (s *System) Flush() int {
	return s.loop.Drain()
}

// Target is the watcher currently collecting dependencies, if any.
func (s *System) Target() *Watcher {
	return s.target
}

func (s *System) pushTarget(w *Watcher) {
	s.targetStack = append(s.targetStack, s.target)
	s.target = w
}

func (s *System) popTarget() {
	n := len(s.targetStack) - 1
	s.target = s.targetStack[n]
	s.targetStack[n] = nil
	s.targetStack = s.targetStack[:n]
}

// PauseTracking stops dependency collection until ResumeTracking.
func (s *System) PauseTracking() {
	s.pushTarget(nil)
}

func (s *System) ResumeTracking() {
	s.popTarget()
}

// Untracked runs fn with no watcher collecting dependencies.
func (s *System) Untracked(fn func()) {
	s.pushTarget(nil)
	defer s.popTarget()
	fn()
}

func (s *System) warn(msg string, vm *Instance) {
	if s.cfg.Silent || s.cfg.Production {
		return
	}
	if s.onWarn != nil {
		s.onWarn(msg, vm)
		return
	}
	attrs := []any{"warning", msg}
	if vm != nil {
		attrs = append(attrs, "instance", vm.name)
	}
	s.logger.Warn("observer warning", attrs...)
}

func (s *System) handleError(err error, vm *Instance, info string) {
	s.metrics.errored(err)
	if s.onError != nil {
		// A failing handler must not take the flush down with it.
		if herr := protect(func() error {
			s.onError(err, vm, info)
			return nil
		}); herr != nil {
			s.logger.Error("error handler failed", "error", herr, "original", err)
		}
		return
	}
	attrs := []any{"error", err, "info", info}
	if vm != nil {
		attrs = append(attrs, "instance", vm.name)
	}
	s.logger.Error("observer error", attrs...)
}

// invokeWithErrorHandling runs fn and routes any error or panic to the error
// handler.
func (s *System) invokeWithErrorHandling(fn func() error, vm *Instance, info string) {
	if err := protect(fn); err != nil {
		s.handleError(err, vm, info)
	}
}

func (s *System) String() string {
	return fmt.Sprintf("observer.System{deps: %d, watchers: %d, pending: %d}", s.depUID, s.watcherUID, s.Pending())
}
