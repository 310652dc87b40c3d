package observer_test

import (
	"testing"

	"github.com/delaneyj/observerparty/observer"
	"github.com/stretchr/testify/assert"
)

type countingSub struct {
	id    int
	calls *[]int
}

func (s *countingSub) ID() int { return s.id }

func (s *countingSub) Update() { *s.calls = append(*s.calls, s.id) }

// should notify subscribers once each in subscription order
func TestDepNotifyOrder(t *testing.T) {
	sys := newSystem(t)
	d := observer.NewRef(sys, 0).Dep()

	var calls []int
	a := &countingSub{id: 1, calls: &calls}
	b := &countingSub{id: 2, calls: &calls}
	d.AddSub(b)
	d.AddSub(a)
	d.AddSub(b)
	assert.Equal(t, 2, d.Len())

	d.Notify()
	assert.Equal(t, []int{2, 1}, calls)

	d.RemoveSub(b)
	d.RemoveSub(b)
	calls = nil
	d.Notify()
	assert.Equal(t, []int{1}, calls)
}

// should only register the current target on depend
func TestDepDependRequiresTarget(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)

	r.Get()
	assert.Equal(t, 0, r.Dep().Len())

	w := sys.NewWatcher(nil, observer.Expr(func() any { return r.Get() }), nil, nil)
	assert.Equal(t, 1, r.Dep().Len())
	assert.Equal(t, []int{r.Dep().ID()}, w.DepIDs())
}

// should hand out increasing ids
func TestDepIDsIncrease(t *testing.T) {
	sys := newSystem(t)
	a := observer.NewRef(sys, 1).Dep()
	b := observer.NewRef(sys, 1).Dep()
	assert.Less(t, a.ID(), b.ID())
}

// should skip subscribers torn down while the dep is notifying
func TestDepNotifySkipsTornDown(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)

	runs := 0
	var stopB func()
	observer.SyncEffect(sys, func() error {
		if r.Get() > 1 && stopB != nil {
			stopB()
		}
		return nil
	})
	stopB = observer.SyncEffect(sys, func() error {
		r.Get()
		runs++
		return nil
	})
	assert.Equal(t, 1, runs)

	r.Set(2)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, r.Dep().Len())
	r.Set(3)
	assert.Equal(t, 1, runs)
}
