package observer_test

import (
	"testing"

	"github.com/delaneyj/observerparty/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T, opts ...observer.Option) *observer.System {
	t.Helper()
	opts = append([]observer.Option{
		observer.WithErrorHandler(func(err error, vm *observer.Instance, info string) {
			assert.FailNow(t, err.Error(), info)
		}),
	}, opts...)
	sys, err := observer.New(observer.DefaultConfig(), opts...)
	require.NoError(t, err)
	return sys
}

type routedError struct {
	err  error
	vm   *observer.Instance
	info string
}

type recorder struct {
	errors   []routedError
	warnings []string
}

// newRecordingSystem collects routed errors and warnings instead of failing.
func newRecordingSystem(t *testing.T, cfg observer.Config) (*observer.System, *recorder) {
	t.Helper()
	rec := &recorder{}
	sys, err := observer.New(cfg,
		observer.WithErrorHandler(func(err error, vm *observer.Instance, info string) {
			rec.errors = append(rec.errors, routedError{err: err, vm: vm, info: info})
		}),
		observer.WithWarnHandler(func(msg string, vm *observer.Instance) {
			rec.warnings = append(rec.warnings, msg)
		}),
	)
	require.NoError(t, err)
	return sys, rec
}

func observed(sys *observer.System, m map[string]any) *observer.Object {
	o := observer.ObjectOf(m)
	sys.Observe(o, false)
	return o
}
