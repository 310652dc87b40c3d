package observer

type tickQueue struct {
	callbacks    []func()
	pending      bool
	useMacroTask bool
}

// NextTick queues cb to run after the current flush. The returned channel is
// closed once cb has run; with a nil cb it simply marks the next tick.
//
// Callbacks queued while a tick is running wait for the following tick.
func (s *System) NextTick(cb func()) <-chan struct{} {
	done := make(chan struct{})
	s.tick.callbacks = append(s.tick.callbacks, func() {
		defer close(done)
		if cb == nil {
			return
		}
		s.invokeWithErrorHandling(func() error {
			cb()
			return nil
		}, nil, "nextTick")
	})

	if !s.tick.pending {
		s.tick.pending = true
		if s.tick.useMacroTask {
			s.loop.QueueMacrotask(s.flushCallbacks)
		} else {
			s.loop.QueueMicrotask(s.flushCallbacks)
		}
	}
	return done
}

func (s *System) flushCallbacks() {
	s.tick.pending = false
	copies := s.tick.callbacks
	s.tick.callbacks = nil
	for _, cb := range copies {
		cb()
	}
}

// WithMacroTask wraps fn so that any flush it schedules is deferred to a
// macrotask instead of a microtask, e.g. to run after event dispatch.
func (s *System) WithMacroTask(fn func()) func() {
	return func() {
		prev := s.tick.useMacroTask
		s.tick.useMacroTask = true
		defer func() {
			s.tick.useMacroTask = prev
		}()
		fn()
	}
}
