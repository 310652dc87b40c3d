package observer

import "slices"

// Subscriber is anything a Dep can notify.
type Subscriber interface {
	ID() int
	Update()
}

// Dep is the set of subscribers interested in one observable slot.
type Dep struct {
	sys  *System
	id   int
	subs []Subscriber
}

func (s *System) newDep() *Dep {
	s.depUID++
	return &Dep{sys: s, id: s.depUID}
}

func (d *Dep) ID() int {
	return d.id
}

func (d *Dep) AddSub(sub Subscriber) {
	if slices.Contains(d.subs, sub) {
		return
	}
	d.subs = append(d.subs, sub)
}

func (d *Dep) RemoveSub(sub Subscriber) {
	if i := slices.Index(d.subs, sub); i >= 0 {
		d.subs = slices.Delete(d.subs, i, i+1)
	}
}

// Depend registers the watcher currently evaluating, if any.
func (d *Dep) Depend() {
	if t := d.sys.target; t != nil {
		t.addDep(d)
	}
}

// Notify calls Update on a snapshot of the subscribers, in subscription order.
func (d *Dep) Notify() {
	subs := slices.Clone(d.subs)
	for _, sub := range subs {
		sub.Update()
	}
}

func (d *Dep) Subs() []Subscriber {
	return slices.Clone(d.subs)
}

func (d *Dep) Len() int {
	return len(d.subs)
}
