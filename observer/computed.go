package observer

// Computed is a typed, lazily evaluated derivation outside any Instance.
type Computed[T any] struct {
	w *Watcher
}

func NewComputed[T any](sys *System, fn func() T) *Computed[T] {
	getter := Getter(func(*Instance) (any, error) {
		return fn(), nil
	})
	return &Computed[T]{w: sys.NewWatcher(nil, getter, nil, &WatchOptions{Computed: true})}
}

// Value returns the memoized value, recomputing it if a dependency changed,
// and makes the current watcher depend on it.
func (c *Computed[T]) Value() T {
	c.w.Depend()
	return as[T](c.w.Evaluate())
}

func (c *Computed[T]) Watcher() *Watcher {
	return c.w
}

func (c *Computed[T]) Stop() {
	c.w.Teardown()
}

// Effect runs fn now and again on the next flush after any dependency it
// read changes. Errors go to the error handler.
func Effect(sys *System, fn func() error) (stop func()) {
	getter := Getter(func(*Instance) (any, error) {
		return nil, fn()
	})
	return sys.NewWatcher(nil, getter, nil, nil).Teardown
}

// SyncEffect is Effect without the scheduler: fn re-runs inside the write
// that invalidated it.
func SyncEffect(sys *System, fn func() error) (stop func()) {
	getter := Getter(func(*Instance) (any, error) {
		return nil, fn()
	})
	return sys.NewWatcher(nil, getter, nil, &WatchOptions{Sync: true}).Teardown
}
