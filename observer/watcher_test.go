package observer_test

import (
	"errors"
	"testing"

	"github.com/delaneyj/observerparty/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// should drop dependencies that were not read on the last evaluation
func TestWatcherBranchPruning(t *testing.T) {
	sys := newSystem(t)
	obj := observed(sys, map[string]any{"flag": true, "a": 1, "b": 2})

	runs := 0
	w := sys.NewWatcher(nil, observer.Expr(func() any {
		runs++
		if obj.Get("flag").(bool) {
			return obj.Get("a")
		}
		return obj.Get("b")
	}), nil, &observer.WatchOptions{Sync: true})

	assert.ElementsMatch(t, []int{obj.Dep("flag").ID(), obj.Dep("a").ID()}, w.DepIDs())
	assert.Equal(t, 0, obj.Dep("b").Len())

	obj.Put("flag", false)
	assert.Equal(t, 2, runs)
	assert.ElementsMatch(t, []int{obj.Dep("flag").ID(), obj.Dep("b").ID()}, w.DepIDs())
	assert.Equal(t, 0, obj.Dep("a").Len())

	obj.Put("a", 10)
	assert.Equal(t, 2, runs)
	obj.Put("b", 20)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 20, w.Value())
}

// should subscribe once per dep however often it is read
func TestWatcherDedupesReads(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)
	w := sys.NewWatcher(nil, observer.Expr(func() any {
		return r.Get() + r.Get() + r.Get()
	}), nil, nil)
	assert.Equal(t, 1, r.Dep().Len())
	assert.Len(t, w.DepIDs(), 1)
	assert.Equal(t, 3, w.Value())
}

// should restore the outer target after a nested evaluation
func TestWatcherNestedTargets(t *testing.T) {
	sys := newSystem(t)
	a := observer.NewRef(sys, 1)
	b := observer.NewRef(sys, 2)

	var inner *observer.Watcher
	outer := sys.NewWatcher(nil, observer.Expr(func() any {
		a.Get()
		if inner == nil {
			inner = sys.NewWatcher(nil, observer.Expr(func() any { return b.Get() }), nil, nil)
		}
		assert.NotSame(t, inner, sys.Target())
		return nil
	}), nil, nil)

	assert.Equal(t, []int{a.Dep().ID()}, outer.DepIDs())
	assert.Equal(t, []int{b.Dep().ID()}, inner.DepIDs())
	assert.Nil(t, sys.Target())
}

// should not track reads while paused
func TestUntracked(t *testing.T) {
	sys := newSystem(t)
	a := observer.NewRef(sys, 1)
	b := observer.NewRef(sys, 1)
	w := sys.NewWatcher(nil, observer.Expr(func() any {
		sys.Untracked(func() { b.Get() })
		sys.PauseTracking()
		b.Get()
		sys.ResumeTracking()
		return a.Get()
	}), nil, nil)
	assert.Equal(t, []int{a.Dep().ID()}, w.DepIDs())
}

// should resolve dot-delimited paths against the instance
func TestWatcherPath(t *testing.T) {
	sys := newSystem(t)
	vm := sys.NewInstance("vm", observer.ObjectOf(map[string]any{
		"user": observer.ObjectOf(map[string]any{
			"tags": observer.NewArray("a", "b"),
		}),
	}))

	var got []any
	vm.Watch("user.tags.1", func(n, o any) error {
		got = append(got, n)
		return nil
	}, observer.WatchOptions{})

	tags := vm.Data().Get("user").(*observer.Object).Get("tags").(*observer.Array)
	tags.Splice(1, 1, "c")
	sys.Flush()
	assert.Equal(t, []any{"c"}, got)
}

// should warn about unsupported paths and never fire
func TestWatcherBadPath(t *testing.T) {
	sys, rec := newRecordingSystem(t, observer.DefaultConfig())
	vm := sys.NewInstance("vm", observer.ObjectOf(map[string]any{"a": 1}))
	w := sys.NewWatcher(vm, "a[0]", nil, nil)
	require.Len(t, rec.warnings, 1)
	assert.Contains(t, rec.warnings[0], "a[0]")
	assert.Empty(t, w.DepIDs())

	sys.NewWatcher(vm, 42, nil, nil)
	assert.Len(t, rec.warnings, 2)
}

// should keep the previous value and skip the callback when the getter fails
func TestWatcherGetterError(t *testing.T) {
	sys, rec := newRecordingSystem(t, observer.DefaultConfig())
	r := observer.NewRef(sys, 1)
	boom := errors.New("boom")

	calls := 0
	w := sys.NewWatcher(nil, observer.Getter(func(*observer.Instance) (any, error) {
		if v := r.Get(); v != 2 {
			return v, nil
		}
		return nil, boom
	}), func(n, o any) error {
		calls++
		return nil
	}, &observer.WatchOptions{Sync: true})

	r.Set(2)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, w.Value())
	require.Len(t, rec.errors, 1)
	assert.ErrorIs(t, rec.errors[0].err, boom)

	var werr *observer.WatcherError
	require.ErrorAs(t, rec.errors[0].err, &werr)
	assert.Equal(t, "getter", werr.Info)
	assert.Equal(t, w.ID(), werr.WatcherID)

	r.Set(3)
	assert.Equal(t, 1, calls, "still subscribed after a failed run")
}

// should route callback errors and panics
func TestWatcherCallbackErrors(t *testing.T) {
	sys, rec := newRecordingSystem(t, observer.DefaultConfig())
	r := observer.NewRef(sys, 1)
	sys.NewWatcher(nil, observer.Expr(func() any { return r.Get() }), func(n, o any) error {
		if n.(int) == 2 {
			return errors.New("bad value")
		}
		panic("worse value")
	}, &observer.WatchOptions{Sync: true})

	r.Set(2)
	r.Set(3)
	require.Len(t, rec.errors, 2)

	var perr *observer.PanicError
	require.ErrorAs(t, rec.errors[1].err, &perr)
	assert.Equal(t, "worse value", perr.Value)
}

// should convert getter panics into errors
func TestWatcherGetterPanic(t *testing.T) {
	sys, rec := newRecordingSystem(t, observer.DefaultConfig())
	w := sys.NewWatcher(nil, observer.Expr(func() any { panic("nope") }), nil, nil)
	assert.Nil(t, w.Value())
	require.Len(t, rec.errors, 1)
	assert.Nil(t, sys.Target(), "target restored after panic")
}

// should fire for in-place mutation of containers
func TestWatcherObjectValueAlwaysChanged(t *testing.T) {
	sys := newSystem(t)
	inner := observer.ObjectOf(map[string]any{"x": 1})
	obj := observed(sys, map[string]any{"inner": inner})

	calls := 0
	sys.NewWatcher(nil, observer.Expr(func() any { return obj.Get("inner") }), func(n, o any) error {
		calls++
		assert.Same(t, n, o)
		return nil
	}, nil)

	sys.Set(inner, "y", 1)
	sys.Flush()
	assert.Equal(t, 1, calls)
}

// should compare struct values by value
func TestWatcherStructValue(t *testing.T) {
	type point struct{ X, Y int }
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)

	var got []any
	sys.NewWatcher(nil, observer.Expr(func() any {
		return point{X: r.Get() / 10}
	}), func(n, o any) error {
		got = append(got, n)
		return nil
	}, nil)

	r.Set(2)
	sys.Flush()
	assert.Empty(t, got)

	r.Set(20)
	sys.Flush()
	assert.Equal(t, []any{point{X: 2}}, got)
}

// should traverse nested values in deep mode, cycles included
func TestWatcherDeep(t *testing.T) {
	sys := newSystem(t)
	leaf := observer.ObjectOf(map[string]any{"n": 1})
	list := observer.NewArray(leaf)
	root := observed(sys, map[string]any{"list": list})
	leaf.Put("parent", root)

	calls := 0
	sys.NewWatcher(nil, observer.Expr(func() any { return root }), func(n, o any) error {
		calls++
		return nil
	}, &observer.WatchOptions{Deep: true})

	leaf.Put("n", 2)
	sys.Flush()
	assert.Equal(t, 1, calls)

	list.Push(3)
	sys.Flush()
	assert.Equal(t, 2, calls)
}

// should not traverse frozen values
func TestTraverseFrozen(t *testing.T) {
	sys := newSystem(t)
	frozen := observer.ObjectOf(map[string]any{"x": 1})
	frozen.Freeze()
	root := observed(sys, map[string]any{"f": frozen})

	w := sys.NewWatcher(nil, observer.Expr(func() any { return root }), nil, &observer.WatchOptions{Deep: true})
	assert.Equal(t, []int{root.Dep("f").ID()}, w.DepIDs())
}

// should stop updating after teardown
func TestWatcherTeardown(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)
	calls := 0
	w := sys.NewWatcher(nil, observer.Expr(func() any { return r.Get() }), func(n, o any) error {
		calls++
		return nil
	}, &observer.WatchOptions{Sync: true})

	w.Teardown()
	w.Teardown()
	assert.False(t, w.Active())
	assert.Equal(t, 0, r.Dep().Len())
	r.Set(2)
	assert.Equal(t, 0, calls)
}

// should not run a watcher torn down while queued
func TestWatcherTeardownWhileQueued(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)
	calls := 0
	w := sys.NewWatcher(nil, observer.Expr(func() any { return r.Get() }), func(n, o any) error {
		calls++
		return nil
	}, nil)

	r.Set(2)
	w.Teardown()
	sys.Flush()
	assert.Equal(t, 0, calls)
}

// should terminate on self references and register each dep once
func TestTraverseSelfCycle(t *testing.T) {
	sys := newSystem(t)
	obj := observed(sys, map[string]any{"self": nil, "n": 1})
	obj.Put("self", obj)

	w := sys.NewWatcher(nil, observer.Expr(func() any { return obj }), nil, &observer.WatchOptions{Deep: true})
	assert.ElementsMatch(t, []int{
		obj.Observer().Dep().ID(),
		obj.Dep("self").ID(),
		obj.Dep("n").ID(),
	}, w.DepIDs())
	assert.Equal(t, 1, obj.Dep("self").Len())
}
