package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("reading counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveFit(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := InitMetrics(registry)

	m.ObserveFit("lm", 2, 10*time.Millisecond, nil)
	m.ObserveFit("lm", 3, 20*time.Millisecond, nil)
	m.ObserveFit("lm", 0, time.Millisecond, errors.New("boom"))

	if got := counterValue(t, m.FitsTotal.WithLabelValues("lm", "ok")); got != 2 {
		t.Fatalf("ok fits: got=%v want=2", got)
	}
	if got := counterValue(t, m.FitsTotal.WithLabelValues("lm", "error")); got != 1 {
		t.Fatalf("failed fits: got=%v want=1", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "govar_basis_size" {
			continue
		}
		if got := f.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
			t.Fatalf("basis samples: got=%d want=2", got)
		}
		return
	}
	t.Fatalf("govar_basis_size not registered")
}

func TestObserveCombination(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())
	m.ObserveCombination(true)
	m.ObserveCombination(false)
	m.ObserveCombination(true)

	if got := counterValue(t, m.Combinations.WithLabelValues("true")); got != 2 {
		t.Fatalf("found: got=%v want=2", got)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("reading gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestObserveRuntime(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())
	m.ObserveRuntime(1<<20, 12, 3)
	m.ObserveRuntime(2<<20, 7, 4)

	if got := gaugeValue(t, m.HeapBytes); got != 2<<20 {
		t.Fatalf("heap: got=%v want=%v", got, 2<<20)
	}
	if got := gaugeValue(t, m.Goroutines); got != 7 {
		t.Fatalf("goroutines: got=%v want=7", got)
	}
	if got := gaugeValue(t, m.GCRuns); got != 4 {
		t.Fatalf("gc runs: got=%v want=4", got)
	}
}

func TestObserveFitAlloc(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())
	m.ObserveFitAlloc("lm", 1<<20)
	m.ObserveFitAlloc("lm", 3<<20)

	var metric dto.Metric
	if err := m.FitAllocBytes.WithLabelValues("lm").(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("reading histogram: %v", err)
	}
	h := metric.GetHistogram()
	if h.GetSampleCount() != 2 || h.GetSampleSum() != 4<<20 {
		t.Fatalf("alloc: got count=%d sum=%v want count=2 sum=%v", h.GetSampleCount(), h.GetSampleSum(), 4<<20)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveFit("lm", 1, time.Second, nil)
	m.ObserveCombination(true)
	m.ObserveFitAlloc("lm", 1)
	m.ObserveRuntime(1, 1, 1)
}
