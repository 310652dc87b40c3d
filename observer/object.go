package observer

import (
	"slices"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Object is a map-like container with string keys kept in insertion order.
// Keys that exist when the object is observed become reactive; keys added
// later with Put stay plain until they are added through System.Set.
//
// Objects are not safe for concurrent use; they belong to the goroutine that
// drives their System.
type Object struct {
	keys   []string
	props  map[string]*property
	ob     *Observer
	frozen bool
}

func NewObject() *Object {
	return &Object{props: map[string]*property{}}
}

// ObjectOf builds an Object from m, with keys in sorted order.
func ObjectOf(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Put(k, m[k])
	}
	return o
}

// Get reads key. Reactive keys register the read with the current watcher.
func (o *Object) Get(key string) any {
	v, _ := o.Lookup(key)
	return v
}

func (o *Object) Lookup(key string) (any, bool) {
	p, ok := o.props[key]
	if !ok {
		return nil, false
	}
	if p.reactive {
		return p.get(), true
	}
	return p.value, true
}

// Put assigns key. Existing reactive keys notify their subscribers; new keys
// are added as plain fields and notify nobody.
func (o *Object) Put(key string, v any) {
	p, ok := o.props[key]
	if !ok {
		o.props[key] = &property{value: v}
		o.keys = append(o.keys, key)
		return
	}
	if p.reactive {
		p.set(v)
		return
	}
	p.value = v
}

// DefineFixed adds a non-configurable key. It is never made reactive.
func (o *Object) DefineFixed(key string, v any) {
	p, ok := o.props[key]
	if !ok {
		p = &property{}
		o.props[key] = p
		o.keys = append(o.keys, key)
	}
	p.value = v
	p.fixed = true
}

// Remove deletes key without notifying anyone.
func (o *Object) Remove(key string) {
	p, ok := o.props[key]
	if !ok || p.fixed {
		return
	}
	delete(o.props, key)
	o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
}

func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) IsReactive(key string) bool {
	p, ok := o.props[key]
	return ok && p.reactive
}

// Dep returns the dependency set of a reactive key.
func (o *Object) Dep(key string) *Dep {
	if p, ok := o.props[key]; ok && p.reactive {
		return p.dep
	}
	return nil
}

// Observer returns the back-reference installed by Observe, if any.
func (o *Object) Observer() *Observer {
	return o.ob
}

// Freeze excludes the object from observation and deep traversal.
func (o *Object) Freeze() {
	o.frozen = true
}

func (o *Object) Frozen() bool {
	return o.frozen
}

// property is one slot of an Object or the storage of a Ref.
type property struct {
	value        any
	dep          *Dep
	childOb      *Observer
	shallow      bool
	customSetter func()
	reactive     bool
	fixed        bool
}

func (p *property) get() any {
	if p.dep.sys.target != nil {
		p.dep.Depend()
		if p.childOb != nil {
			p.childOb.dep.Depend()
			if arr, ok := p.value.(*Array); ok {
				dependArray(arr, nil)
			}
		}
	}
	return p.value
}

func (p *property) set(v any) {
	if sameValue(v, p.value) {
		return
	}
	sys := p.dep.sys
	if p.customSetter != nil && !sys.cfg.Production {
		p.customSetter()
	}
	p.value = v
	if p.shallow {
		p.childOb = nil
	} else {
		p.childOb = sys.Observe(v, false)
	}
	p.dep.Notify()
}

// dependArray registers the current watcher on every observed element, since
// element reads are not intercepted the way keyed reads are. Nested arrays
// are visited once each, so arrays that contain themselves terminate.
func dependArray(a *Array, seen mapset.Set[*Array]) {
	for _, e := range a.items {
		switch c := e.(type) {
		case *Object:
			if c != nil && c.ob != nil {
				c.ob.dep.Depend()
			}
		case *Array:
			if c == nil {
				continue
			}
			if c.ob != nil {
				c.ob.dep.Depend()
			}
			if seen == nil {
				seen = mapset.NewThreadUnsafeSet(a)
			}
			if seen.Contains(c) {
				continue
			}
			seen.Add(c)
			dependArray(c, seen)
		}
	}
}
