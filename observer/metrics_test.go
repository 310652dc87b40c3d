package observer_test

import (
	"testing"

	"github.com/delaneyj/observerparty/observer"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

// should count observers, watcher runs, flushes and errors
func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observer.NewMetrics(observer.WithRegistry(reg), observer.WithNamespace("test"))

	var errs int
	sys := newSystem(t,
		observer.WithMetrics(m),
		observer.WithTracer(noop.NewTracerProvider().Tracer("test")),
		observer.WithErrorHandler(func(error, *observer.Instance, string) { errs++ }),
	)

	obj := observed(sys, map[string]any{"a": 1, "nested": observer.NewObject()})
	assert.Equal(t, 2.0, counterValue(t, m.ObserversCreated))

	sys.NewWatcher(nil, observer.Expr(func() any {
		if obj.Get("a").(int) > 2 {
			panic("too big")
		}
		return obj.Get("a")
	}), nil, nil)

	obj.Put("a", 2)
	sys.Flush()
	assert.Equal(t, 1.0, counterValue(t, m.WatcherRuns))
	assert.Equal(t, 1.0, counterValue(t, m.Flushes))
	assert.Equal(t, uint64(1), histogramCount(t, m.FlushDuration))

	obj.Put("a", 3)
	sys.Flush()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1.0, counterValue(t, m.Errors.WithLabelValues("getter")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_flushes_total")
}

// should record nothing without metrics
func TestMetricsNil(t *testing.T) {
	sys := newSystem(t)
	r := observer.NewRef(sys, 1)
	observer.Effect(sys, func() error {
		r.Get()
		return nil
	})
	r.Set(2)
	assert.NotPanics(t, func() { sys.Flush() })
}
