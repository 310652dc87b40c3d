package observer

import (
	"fmt"
	"slices"
	"strconv"
)

// Observer is attached to each observed Object or Array. It turns the keys
// of an object into reactive properties and owns the dependency set that is
// notified when keys are added or removed, or when the array's structure
// changes.
type Observer struct {
	sys       *System
	value     any
	dep       *Dep
	rootCount int
}

func (ob *Observer) Value() any {
	return ob.value
}

func (ob *Observer) Dep() *Dep {
	return ob.dep
}

// RootCount is the number of instances using the value as their root state.
func (ob *Observer) RootCount() int {
	return ob.rootCount
}

func (ob *Observer) walk(o *Object) {
	for _, key := range slices.Clone(o.keys) {
		ob.sys.defineReactive(o, key, nil, false, nil, false)
	}
}

func (ob *Observer) observeArray(items []any) {
	for _, item := range items {
		ob.sys.Observe(item, false)
	}
}

// Observe attaches an Observer to v, or returns the one already attached.
// Values that are not containers, frozen containers and values created while
// observing is toggled off get nil.
func (s *System) Observe(v any, asRoot bool) *Observer {
	var ob *Observer
	switch KindOf(v) {
	case KindObject:
		o := v.(*Object)
		if o.ob != nil {
			ob = o.ob
		} else if s.shouldObserve {
			ob = s.newObserver(o)
			o.ob = ob
			ob.walk(o)
		}
	case KindArray:
		a := v.(*Array)
		if a.ob != nil {
			ob = a.ob
		} else if s.shouldObserve {
			ob = s.newObserver(a)
			a.ob = ob
			ob.observeArray(a.items)
		}
	default:
		return nil
	}
	if asRoot && ob != nil {
		ob.rootCount++
	}
	return ob
}

func (s *System) newObserver(v any) *Observer {
	s.metrics.observed()
	return &Observer{sys: s, value: v, dep: s.newDep()}
}

// DefineReactive installs key on obj as a reactive property holding val.
// customSetter runs on every effective write outside production mode and
// shallow properties do not observe their values.
func (s *System) DefineReactive(obj *Object, key string, val any, customSetter func(), shallow bool) {
	s.defineReactive(obj, key, val, true, customSetter, shallow)
}

func (s *System) defineReactive(obj *Object, key string, val any, useVal bool, customSetter func(), shallow bool) {
	p, exists := obj.props[key]
	switch {
	case exists && p.fixed:
		return
	case exists && p.reactive:
		if useVal {
			p.set(val)
		}
		return
	case !exists:
		p = &property{}
		obj.props[key] = p
		obj.keys = append(obj.keys, key)
	case !useVal:
		val = p.value
	}

	p.value = val
	p.dep = s.newDep()
	p.reactive = true
	p.shallow = shallow
	p.customSetter = customSetter
	if !shallow {
		p.childOb = s.Observe(val, false)
	}
}

// ToggleObserving switches observer creation on or off and returns a func
// restoring the previous setting.
func (s *System) ToggleObserving(on bool) (restore func()) {
	prev := s.shouldObserve
	s.shouldObserve = on
	return func() {
		s.shouldObserve = prev
	}
}

// WithoutObserving runs fn with observer creation suspended.
func (s *System) WithoutObserving(fn func()) {
	restore := s.ToggleObserving(false)
	defer restore()
	fn()
}

func (s *System) Observing() bool {
	return s.shouldObserve
}

// Set adds or updates key on target so that the change is observed. It is
// the only way to add a reactive key to an object that is already observed.
// Array targets take an integer index and grow as needed.
func (s *System) Set(target any, key any, val any) any {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		idx, ok := arrayIndex(key)
		if !ok {
			s.warn(fmt.Sprintf("Cannot set non-index key %v on an array.", key), nil)
			return val
		}
		t.grow(idx)
		t.Splice(idx, 1, val)
		return val

	case *Object:
		if t == nil {
			break
		}
		k := fmt.Sprint(key)
		if t.Has(k) {
			t.Put(k, val)
			return val
		}
		ob := t.ob
		if ob != nil && ob.rootCount > 0 {
			s.warn("Avoid adding reactive properties to a root state object at runtime - declare it upfront.", nil)
			return val
		}
		if ob == nil {
			t.Put(k, val)
			return val
		}
		s.defineReactive(t, k, val, true, nil, false)
		ob.dep.Notify()
		return val

	case *Instance:
		s.warn("Avoid adding reactive properties to an instance at runtime - declare them upfront in its data.", t)
		return val
	}

	s.warn(fmt.Sprintf("Cannot set reactive property on undefined, nil, or primitive value: %v", target), nil)
	return val
}

// Delete removes key from target and notifies the target's subscribers.
func (s *System) Delete(target any, key any) {
	switch t := target.(type) {
	case *Array:
		if t == nil {
			break
		}
		if idx, ok := arrayIndex(key); ok {
			t.Splice(idx, 1)
		}
		return

	case *Object:
		if t == nil {
			break
		}
		ob := t.ob
		if ob != nil && ob.rootCount > 0 {
			s.warn("Avoid deleting properties on a root state object - just set it to nil.", nil)
			return
		}
		k := fmt.Sprint(key)
		if p, ok := t.props[k]; !ok || p.fixed {
			return
		}
		t.Remove(k)
		if ob == nil {
			return
		}
		ob.dep.Notify()
		return

	case *Instance:
		s.warn("Avoid deleting properties on an instance - just set them to nil.", t)
		return
	}

	s.warn(fmt.Sprintf("Cannot delete reactive property on undefined, nil, or primitive value: %v", target), nil)
}

func arrayIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, k >= 0
	case int64:
		return int(k), k >= 0
	case uint:
		return int(k), true
	case string:
		n, err := strconv.Atoi(k)
		return n, err == nil && n >= 0
	}
	return 0, false
}
