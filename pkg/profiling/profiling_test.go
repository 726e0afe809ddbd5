package profiling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kacperjurak/govarcore/pkg/config"
	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

func TestMiddlewareRecordsMetrics(t *testing.T) {
	metrics := telemetry.InitMetrics(prometheus.NewRegistry())

	for _, profiling := range []bool{false, true} {
		m := NewMiddleware(metrics, profiling)
		h := m.ProfiledHandlerFunc("teapot", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusTeapot)
		}
	}

	var out dto.Metric
	if err := metrics.HTTPRequests.WithLabelValues("teapot", "418").Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := out.GetCounter().GetValue(); got != 2 {
		t.Fatalf("requests: got=%v want=2", got)
	}
}

func TestMiddlewareWithoutMetrics(t *testing.T) {
	h := NewMiddleware(nil, false).ProfiledHandlerFunc("ok", func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestProfilerHandler(t *testing.T) {
	p := New(config.DefaultServerConfig())
	h := p.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
	var info RuntimeInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Goroutines < 1 || info.NumCPU < 1 || info.Version == "" {
		t.Fatalf("info: got=%+v", info)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/stats?n=1", nil))
	if got := strings.Count(rec.Body.String(), "=== Runtime Stats"); got != 1 {
		t.Fatalf("snapshots: got=%d want=1", got)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("disabled start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("stop without start: %v", err)
	}
}

func TestForceGC(t *testing.T) {
	before := GetGCStats()
	after := ForceGC()
	if after.NumGC <= before.NumGC {
		t.Fatalf("gc runs: got=%d want>%d", after.NumGC, before.NumGC)
	}
}

var sink []byte

func TestMeasureFit(t *testing.T) {
	stats := MeasureFit(func() { sink = make([]byte, 1<<20) })
	if stats.AllocBytes < 1<<20 {
		t.Fatalf("alloc: got=%d want>=%d", stats.AllocBytes, 1<<20)
	}
	if stats.Mallocs == 0 || stats.Duration <= 0 {
		t.Fatalf("stats: got=%+v", stats)
	}
}

func TestMemoryProfilerSample(t *testing.T) {
	metrics := telemetry.InitMetrics(prometheus.NewRegistry())
	mp := NewMemoryProfiler(time.Hour, metrics, true)

	m := mp.Sample()

	var heap, goroutines dto.Metric
	if err := metrics.HeapBytes.Write(&heap); err != nil {
		t.Fatalf("reading heap: %v", err)
	}
	if got := heap.GetGauge().GetValue(); got != float64(m.HeapAlloc) {
		t.Fatalf("heap: got=%v want=%v", got, m.HeapAlloc)
	}
	if err := metrics.Goroutines.Write(&goroutines); err != nil {
		t.Fatalf("reading goroutines: %v", err)
	}
	if got := goroutines.GetGauge().GetValue(); got < 1 {
		t.Fatalf("goroutines: got=%v want>=1", got)
	}

	mp.Start()
	mp.Stop()
}
