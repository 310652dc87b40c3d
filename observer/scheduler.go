package observer

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxUpdateCount bounds how many times one watcher may run again
// within a single flush, whether it re-queued itself or was re-queued by
// another watcher.
const DefaultMaxUpdateCount = 100

type scheduler struct {
	queue    []*Watcher
	next     []*Watcher
	has      mapset.Set[int]
	aborted  mapset.Set[int]
	circular map[int]int
	waiting  bool
	flushing bool
	index    int
}

func newScheduler() scheduler {
	return scheduler{
		has:      mapset.NewThreadUnsafeSet[int](),
		aborted:  mapset.NewThreadUnsafeSet[int](),
		circular: map[int]int{},
	}
}

// queueWatcher adds w to the pending queue unless it is already pending.
// During a flush, a watcher with an id above the one being run joins the
// current pass in id order; anything else waits for the next pass.
func (s *System) queueWatcher(w *Watcher) {
	q := &s.sched
	id := w.id
	if q.has.Contains(id) || q.aborted.Contains(id) {
		return
	}
	q.has.Add(id)

	switch {
	case !q.flushing:
		q.queue = append(q.queue, w)
	case q.index < len(q.queue) && id > q.queue[q.index].id:
		i := len(q.queue) - 1
		for i > q.index && q.queue[i].id > id {
			i--
		}
		q.queue = slices.Insert(q.queue, i+1, w)
	default:
		q.next = append(q.next, w)
	}

	if q.waiting {
		return
	}
	q.waiting = true
	if !s.cfg.Async {
		s.flushSchedulerQueue()
		return
	}
	s.NextTick(s.flushSchedulerQueue)
}

func (s *System) flushSchedulerQueue() {
	q := &s.sched
	_, span := s.tracer.Start(context.Background(), "observer.flush")
	defer span.End()

	start := time.Now()
	q.flushing = true

	var ran []*Watcher
	passes := 0
	for len(q.queue) > 0 {
		passes++
		// Ascending ids run parents before children and user watchers
		// before the render watcher of the same instance.
		slices.SortFunc(q.queue, func(a, b *Watcher) int {
			return cmp.Compare(a.id, b.id)
		})

		for q.index = 0; q.index < len(q.queue); q.index++ {
			w := q.queue[q.index]
			id := w.id
			if q.aborted.Contains(id) || !w.active {
				q.has.Remove(id)
				continue
			}
			if q.circular[id] > s.cfg.MaxUpdateCount {
				q.aborted.Add(id)
				q.has.Remove(id)
				s.metrics.loopAborted()
				s.handleError(&WatcherError{
					WatcherID:  id,
					Expression: w.expression,
					Info:       "scheduler",
					Err:        ErrInfiniteUpdateLoop,
				}, w.vm, fmt.Sprintf("You may have an infinite update loop in watcher with expression %q", w.expression))
				continue
			}
			if w.before != nil {
				s.invokeWithErrorHandling(func() error {
					w.before()
					return nil
				}, w.vm, fmt.Sprintf("before hook for watcher %q", w.expression))
			}
			q.has.Remove(id)
			w.Run()
			ran = append(ran, w)
			q.circular[id]++
		}

		q.queue, q.next = q.next, q.queue[:0]
	}

	span.SetAttributes(
		attribute.Int("observer.watchers_run", len(ran)),
		attribute.Int("observer.passes", passes),
	)
	s.metrics.flushed(time.Since(start), len(ran))

	s.resetSchedulerState()
	s.callUpdatedHooks(ran)
}

func (s *System) resetSchedulerState() {
	q := &s.sched
	clear(q.queue)
	q.queue = q.queue[:0]
	clear(q.next)
	q.next = q.next[:0]
	q.index = 0
	q.has.Clear()
	q.aborted.Clear()
	clear(q.circular)
	q.waiting = false
	q.flushing = false
}

// callUpdatedHooks fires updated hooks of mounted instances whose render
// watcher ran, children first.
func (s *System) callUpdatedHooks(ran []*Watcher) {
	called := map[*Instance]bool{}
	for i := len(ran) - 1; i >= 0; i-- {
		w := ran[i]
		vm := w.vm
		if vm == nil || vm.renderWatcher != w || !vm.mounted || vm.destroyed || called[vm] {
			continue
		}
		called[vm] = true
		vm.callUpdated()
	}
}

// Pending reports how many watchers wait for the next flush.
func (s *System) Pending() int {
	return len(s.sched.queue) + len(s.sched.next)
}
