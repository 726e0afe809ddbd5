package profiling

import (
	"log"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

// Middleware records request metrics and, when profiling is enabled, logs
// per-request memory and goroutine deltas
type Middleware struct {
	metrics         *telemetry.Metrics
	enableProfiling bool
}

// NewMiddleware creates a new profiling middleware. metrics may be nil.
func NewMiddleware(metrics *telemetry.Metrics, enableProfiling bool) *Middleware {
	return &Middleware{
		metrics:         metrics,
		enableProfiling: enableProfiling,
	}
}

// ProfiledHandler wraps an HTTP handler under the given metrics label
func (m *Middleware) ProfiledHandler(name string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var profiler *RequestProfiler
		if m.enableProfiling {
			profiler = NewRequestProfiler(name)
		}
		startTime := time.Now()

		// Wrap response writer to capture status
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		handler.ServeHTTP(wrapped, r)

		if m.metrics != nil {
			m.metrics.HTTPRequests.WithLabelValues(name, strconv.Itoa(wrapped.statusCode)).Inc()
			m.metrics.HTTPDuration.WithLabelValues(name).Observe(time.Since(startTime).Seconds())
		}

		if profiler != nil {
			pm := profiler.Finish()
			log.Printf("⚡ %s %d: %.3fms, memory: %+d bytes, goroutines: %d",
				pm.Name, wrapped.statusCode, float64(pm.Duration.Nanoseconds())/1000000.0, pm.MemoryDelta, pm.Goroutines)
		}
	})
}

// ProfiledHandlerFunc wraps an HTTP handler function with profiling capabilities
func (m *Middleware) ProfiledHandlerFunc(name string, handlerFunc http.HandlerFunc) http.Handler {
	return m.ProfiledHandler(name, handlerFunc)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestProfiler provides per-request profiling information
type RequestProfiler struct {
	StartTime   time.Time
	StartMemory uint64
	Name        string
}

// NewRequestProfiler creates a new request profiler
func NewRequestProfiler(name string) *RequestProfiler {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &RequestProfiler{
		StartTime:   time.Now(),
		StartMemory: m.Alloc,
		Name:        name,
	}
}

// Finish completes the profiling and returns metrics
func (rp *RequestProfiler) Finish() ProfileMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ProfileMetrics{
		Name:        rp.Name,
		Duration:    time.Since(rp.StartTime),
		MemoryDelta: int64(m.Alloc) - int64(rp.StartMemory),
		FinalMemory: m.Alloc,
		Goroutines:  runtime.NumGoroutine(),
	}
}

// ProfileMetrics holds profiling metrics for a request
type ProfileMetrics struct {
	Name string
	// MemoryDelta is negative when a GC ran during the request.
	MemoryDelta int64
	Duration    time.Duration
	FinalMemory uint64
	Goroutines  int
}
