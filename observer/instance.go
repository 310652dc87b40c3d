package observer

import (
	"fmt"
	"slices"
)

// Instance is the owning context of a set of watchers: it holds the root
// state object, computed properties, an optional render watcher and its
// lifecycle hooks. Errors and warnings raised by its watchers carry it.
type Instance struct {
	sys  *System
	name string
	data *Object

	watchers      []*Watcher
	renderWatcher *Watcher
	computed      map[string]*computedProperty
	updated       []func()

	mounted        bool
	destroyed      bool
	beingDestroyed bool
}

type computedProperty struct {
	watcher *Watcher
	set     func(vm *Instance, v any) error
}

// NewInstance observes data as a root state object. A nil data gets an empty
// object.
func (s *System) NewInstance(name string, data *Object) *Instance {
	if data == nil {
		data = NewObject()
	}
	vm := &Instance{
		sys:      s,
		name:     name,
		data:     data,
		computed: map[string]*computedProperty{},
	}
	s.Observe(data, true)
	return vm
}

func (vm *Instance) Name() string {
	return vm.name
}

func (vm *Instance) Data() *Object {
	return vm.data
}

func (vm *Instance) System() *System {
	return vm.sys
}

// Watchers lists the live watchers owned by the instance.
func (vm *Instance) Watchers() []*Watcher {
	return slices.Clone(vm.watchers)
}

func (vm *Instance) RenderWatcher() *Watcher {
	return vm.renderWatcher
}

func (vm *Instance) Mounted() bool {
	return vm.mounted
}

func (vm *Instance) Destroyed() bool {
	return vm.destroyed
}

// Get resolves key against computed properties first, then data.
func (vm *Instance) Get(key string) any {
	if _, ok := vm.computed[key]; ok {
		v, _ := vm.Computed(key)
		return v
	}
	return vm.data.Get(key)
}

// Set writes a computed property through its setter or an existing data key.
// Unknown keys are rejected with a warning.
func (vm *Instance) Set(key string, v any) {
	if _, ok := vm.computed[key]; ok {
		vm.SetComputed(key, v)
		return
	}
	if vm.data.Has(key) {
		vm.data.Put(key, v)
		return
	}
	vm.sys.Set(vm, key, v)
}

// Watch registers a user watcher and returns the function that stops it.
func (vm *Instance) Watch(expOrFn any, cb Callback, opts WatchOptions) (unwatch func()) {
	opts.User = true
	w := vm.sys.NewWatcher(vm, expOrFn, cb, &opts)
	if opts.Immediate && cb != nil {
		vm.sys.invokeWithErrorHandling(func() error {
			return cb(w.value, nil)
		}, vm, fmt.Sprintf("callback for immediate watcher %q", w.expression))
	}
	return w.Teardown
}

// DefineComputed adds a lazy, memoized property. set may be nil for a
// read-only property.
func (vm *Instance) DefineComputed(key string, get Getter, set func(vm *Instance, v any) error) {
	if vm.data.Has(key) {
		vm.sys.warn(fmt.Sprintf("The computed property %q is already defined in data.", key), vm)
		return
	}
	if _, ok := vm.computed[key]; ok {
		vm.sys.warn(fmt.Sprintf("The computed property %q is already defined.", key), vm)
		return
	}
	if get == nil {
		vm.sys.warn(fmt.Sprintf("Getter is missing for computed property %q.", key), vm)
		get = noopGetter
	}
	w := vm.sys.NewWatcher(vm, get, nil, &WatchOptions{Computed: true})
	w.expression = key
	vm.computed[key] = &computedProperty{watcher: w, set: set}
}

// Computed reads a computed property, making the caller depend on it.
func (vm *Instance) Computed(key string) (any, bool) {
	c, ok := vm.computed[key]
	if !ok {
		return nil, false
	}
	c.watcher.Depend()
	return c.watcher.Evaluate(), true
}

func (vm *Instance) SetComputed(key string, v any) {
	c, ok := vm.computed[key]
	if !ok {
		vm.sys.warn(fmt.Sprintf("Computed property %q is not defined.", key), vm)
		return
	}
	if c.set == nil {
		vm.sys.warn(fmt.Sprintf("Computed property %q was assigned to but it has no setter.", key), vm)
		return
	}
	vm.sys.invokeWithErrorHandling(func() error {
		return c.set(vm, v)
	}, vm, fmt.Sprintf("setter for computed property %q", key))
}

// Mount installs render as the instance's render watcher. before runs ahead
// of every re-render the scheduler performs.
func (vm *Instance) Mount(render func(vm *Instance) error, before func()) *Watcher {
	if vm.destroyed {
		vm.sys.warn("Cannot mount a destroyed instance.", vm)
		return nil
	}
	getter := Getter(func(vm *Instance) (any, error) {
		return nil, render(vm)
	})
	w := vm.sys.newWatcher(vm, getter, nil, &WatchOptions{Before: before}, true)
	w.expression = vm.name + ".render"
	vm.mounted = true
	return w
}

// OnUpdated registers fn to run after a flush that re-rendered the instance.
func (vm *Instance) OnUpdated(fn func()) {
	vm.updated = append(vm.updated, fn)
}

func (vm *Instance) callUpdated() {
	for _, fn := range vm.updated {
		vm.sys.invokeWithErrorHandling(func() error {
			fn()
			return nil
		}, vm, "updated hook")
	}
}

func (vm *Instance) removeWatcher(w *Watcher) {
	vm.watchers = slices.DeleteFunc(vm.watchers, func(x *Watcher) bool { return x == w })
}

// Destroy tears down every watcher and releases the root state object.
func (vm *Instance) Destroy() {
	if vm.beingDestroyed {
		return
	}
	vm.beingDestroyed = true
	for i := len(vm.watchers) - 1; i >= 0; i-- {
		vm.watchers[i].Teardown()
	}
	vm.watchers = nil
	if ob := vm.data.ob; ob != nil && ob.rootCount > 0 {
		ob.rootCount--
	}
	vm.mounted = false
	vm.destroyed = true
}
