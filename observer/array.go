package observer

import (
	"slices"
	"sort"
)

// Array is a growable sequence whose structure-changing operations are the
// only way to mutate it. Once observed, each of them notifies the array's
// Observer and observes any inserted elements.
//
// Element reads are not tracked individually; a watcher depends on the whole
// array through the property or Ref that holds it.
type Array struct {
	items  []any
	ob     *Observer
	frozen bool
}

func NewArray(items ...any) *Array {
	return &Array{items: slices.Clone(items)}
}

func (a *Array) Len() int {
	return len(a.items)
}

// At returns the element at i, or nil when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

func (a *Array) Items() []any {
	return slices.Clone(a.items)
}

func (a *Array) Observer() *Observer {
	return a.ob
}

// Freeze excludes the array from observation and deep traversal.
func (a *Array) Freeze() {
	a.frozen = true
}

func (a *Array) Frozen() bool {
	return a.frozen
}

// Push appends items and returns the new length.
func (a *Array) Push(items ...any) int {
	a.items = append(a.items, items...)
	a.mutated(items)
	return len(a.items)
}

// Pop removes and returns the last element.
func (a *Array) Pop() any {
	var v any
	if n := len(a.items); n > 0 {
		v = a.items[n-1]
		a.items[n-1] = nil
		a.items = a.items[:n-1]
	}
	a.mutated(nil)
	return v
}

// Shift removes and returns the first element.
func (a *Array) Shift() any {
	var v any
	if len(a.items) > 0 {
		v = a.items[0]
		a.items = slices.Delete(a.items, 0, 1)
	}
	a.mutated(nil)
	return v
}

// Unshift prepends items and returns the new length.
func (a *Array) Unshift(items ...any) int {
	a.items = slices.Insert(a.items, 0, items...)
	a.mutated(items)
	return len(a.items)
}

// Splice removes deleteCount elements starting at start, inserts items in
// their place and returns the removed elements. A negative start counts back
// from the end; out of range arguments are clamped.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	n := len(a.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, items...)
	a.mutated(items)
	return removed
}

// Sort orders the elements in place with a stable sort.
func (a *Array) Sort(less func(x, y any) bool) {
	sort.SliceStable(a.items, func(i, j int) bool {
		return less(a.items[i], a.items[j])
	})
	a.mutated(nil)
}

func (a *Array) Reverse() {
	slices.Reverse(a.items)
	a.mutated(nil)
}

func (a *Array) mutated(inserted []any) {
	if a.ob == nil {
		return
	}
	if len(inserted) > 0 {
		a.ob.observeArray(inserted)
	}
	a.ob.dep.Notify()
}

// grow pads the array with nils up to n elements.
func (a *Array) grow(n int) {
	if n > len(a.items) {
		a.items = append(a.items, make([]any, n-len(a.items))...)
	}
}
