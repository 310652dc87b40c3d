package observer

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Getter is a tracked expression. Every reactive read it performs becomes a
// dependency of the watcher evaluating it.
type Getter func(vm *Instance) (any, error)

// Expr adapts a plain function to a Getter.
func Expr(fn func() any) Getter {
	return func(*Instance) (any, error) {
		return fn(), nil
	}
}

// Callback receives the new and the previous value of a watcher.
type Callback func(newValue, oldValue any) error

type WatchOptions struct {
	// Deep traverses the value so nested mutations also trigger the watcher.
	Deep bool
	// User marks watchers registered through the public watch API.
	User bool
	// Computed watchers are lazy and memoized.
	Computed bool
	// Sync watchers run immediately instead of being queued.
	Sync bool
	// Immediate invokes the callback once with the initial value.
	Immediate bool
	// Before runs right before the scheduler runs the watcher.
	Before func()
}

// Watcher evaluates an expression, records the dependency sets it reads and
// re-runs when any of them notifies.
type Watcher struct {
	sys        *System
	vm         *Instance
	id         int
	expression string
	getter     Getter
	cb         Callback

	deep     bool
	user     bool
	computed bool
	sync     bool
	before   func()

	active bool
	dirty  bool
	// dep makes a computed watcher itself trackable.
	dep *Dep

	deps      []*Dep
	newDeps   []*Dep
	depIDs    mapset.Set[int]
	newDepIDs mapset.Set[int]

	value any
}

// NewWatcher creates a watcher on expOrFn, which is either a dot-delimited
// path resolved against vm or a Getter. Non-computed watchers evaluate
// immediately.
func (s *System) NewWatcher(vm *Instance, expOrFn any, cb Callback, opts *WatchOptions) *Watcher {
	return s.newWatcher(vm, expOrFn, cb, opts, false)
}

func (s *System) newWatcher(vm *Instance, expOrFn any, cb Callback, opts *WatchOptions, isRender bool) *Watcher {
	if opts == nil {
		opts = &WatchOptions{}
	}
	s.watcherUID++
	w := &Watcher{
		sys:       s,
		vm:        vm,
		id:        s.watcherUID,
		cb:        cb,
		deep:      opts.Deep,
		user:      opts.User,
		computed:  opts.Computed,
		sync:      opts.Sync,
		before:    opts.Before,
		active:    true,
		dirty:     opts.Computed,
		depIDs:    mapset.NewThreadUnsafeSet[int](),
		newDepIDs: mapset.NewThreadUnsafeSet[int](),
	}
	if vm != nil {
		if isRender {
			vm.renderWatcher = w
		}
		vm.watchers = append(vm.watchers, w)
	}

	switch e := expOrFn.(type) {
	case Getter:
		w.getter = e
		w.expression = funcName(e)
	case func(*Instance) (any, error):
		w.getter = e
		w.expression = funcName(e)
	case func() any:
		w.getter = Expr(e)
		w.expression = funcName(e)
	case string:
		w.expression = e
		getter, err := s.parsePath(e)
		if err != nil {
			getter = noopGetter
			s.warn(fmt.Sprintf("Failed watching path: %q Watcher only accepts simple dot-delimited paths. For full control, use a function instead.", e), vm)
		}
		w.getter = getter
	default:
		w.expression = fmt.Sprintf("%T", expOrFn)
		w.getter = noopGetter
		s.warn(fmt.Sprintf("Cannot watch expression of type %T.", expOrFn), vm)
	}

	if w.computed {
		w.dep = s.newDep()
	} else {
		w.value, _ = w.get()
	}
	return w
}

func noopGetter(*Instance) (any, error) {
	return nil, nil
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "<func>"
}

func (w *Watcher) ID() int {
	return w.id
}

func (w *Watcher) Expression() string {
	return w.expression
}

func (w *Watcher) Value() any {
	return w.value
}

func (w *Watcher) Dirty() bool {
	return w.dirty
}

func (w *Watcher) Active() bool {
	return w.active
}

// Dep is the watcher's own dependency set; only computed watchers have one.
func (w *Watcher) Dep() *Dep {
	return w.dep
}

// DepIDs lists the ids of the dependency sets the watcher is subscribed to.
func (w *Watcher) DepIDs() []int {
	ids := w.depIDs.ToSlice()
	slices.Sort(ids)
	return ids
}

// Get evaluates the expression and re-collects dependencies.
func (w *Watcher) Get() any {
	v, _ := w.get()
	return v
}

// get reports false when the getter failed; the previous value is returned
// in that case.
func (w *Watcher) get() (value any, ok bool) {
	w.sys.pushTarget(w)

	value, err := w.invoke()
	ok = err == nil
	if !ok {
		value = w.value
		w.sys.handleError(&WatcherError{
			WatcherID:  w.id,
			Expression: w.expression,
			Info:       "getter",
			Err:        err,
		}, w.vm, fmt.Sprintf("getter for watcher %q", w.expression))
	}
	if w.deep {
		w.sys.Traverse(value)
	}

	w.sys.popTarget()
	w.cleanupDeps()
	return value, ok
}

func (w *Watcher) invoke() (any, error) {
	var value any
	err := protect(func() error {
		v, err := w.getter(w.vm)
		value = v
		return err
	})
	return value, err
}

func (w *Watcher) addDep(dep *Dep) {
	id := dep.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, dep)
	if !w.depIDs.Contains(id) {
		dep.AddSub(w)
	}
}

// cleanupDeps unsubscribes from every dep read last time but not this time,
// then makes this evaluation's deps the current generation.
func (w *Watcher) cleanupDeps() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		dep := w.deps[i]
		if !w.newDepIDs.Contains(dep.id) {
			dep.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()

	clear(w.deps)
	w.deps, w.newDeps = w.newDeps, w.deps[:0]
}

// Update is called by a Dep when one of the watcher's dependencies changes.
func (w *Watcher) Update() {
	if !w.active {
		return
	}
	switch {
	case w.computed:
		if w.dep.Len() == 0 {
			w.dirty = true
			return
		}
		w.getAndInvoke(func(_, _ any) error {
			w.dep.Notify()
			return nil
		})
	case w.sync:
		w.Run()
	default:
		w.sys.queueWatcher(w)
	}
}

// Run re-evaluates the watcher and fires its callback when the value changed.
func (w *Watcher) Run() {
	if w.active {
		w.getAndInvoke(w.cb)
	}
}

func (w *Watcher) getAndInvoke(cb Callback) {
	w.sys.metrics.watcherRan()
	value, ok := w.get()
	if !ok {
		return
	}
	// Objects may have been mutated in place, so they always count as changed.
	if sameValue(value, w.value) && !isNonPrimitive(value) && !w.deep {
		return
	}

	oldValue := w.value
	w.value = value
	w.dirty = false
	if cb == nil {
		return
	}
	if err := protect(func() error { return cb(value, oldValue) }); err != nil {
		w.sys.handleError(&WatcherError{
			WatcherID:  w.id,
			Expression: w.expression,
			Info:       "callback",
			Err:        err,
		}, w.vm, fmt.Sprintf("callback for watcher %q", w.expression))
	}
}

// Evaluate returns the memoized value of a computed watcher, recomputing it
// first when dirty.
func (w *Watcher) Evaluate() any {
	if w.dirty {
		if v, ok := w.get(); ok {
			w.value = v
		}
		w.dirty = false
	}
	return w.value
}

// Depend lets whoever is evaluating now depend on this computed watcher.
func (w *Watcher) Depend() {
	if w.dep != nil && w.sys.target != nil {
		w.dep.Depend()
	}
}

// Teardown unsubscribes from every dependency. It is safe to call twice.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	if w.vm != nil && !w.vm.beingDestroyed {
		w.vm.removeWatcher(w)
	}
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].RemoveSub(w)
	}
	w.active = false
}
