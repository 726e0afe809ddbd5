package profiling

import (
	"log"
	"runtime"
	"time"

	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

// FitStats is the cost of one measured fit. The memory figures are process
// wide, so fits running concurrently show up in each other's deltas.
type FitStats struct {
	Duration   time.Duration
	AllocBytes uint64
	Mallocs    uint64
	GCRuns     uint32
}

// MeasureFit runs fn and returns its duration and allocation deltas.
func MeasureFit(fn func()) FitStats {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	fn()

	d := time.Since(start)
	runtime.ReadMemStats(&after)
	return FitStats{
		Duration:   d,
		AllocBytes: after.TotalAlloc - before.TotalAlloc,
		Mallocs:    after.Mallocs - before.Mallocs,
		GCRuns:     after.NumGC - before.NumGC,
	}
}

// MemoryProfiler samples the heap into the runtime gauges of Metrics on
// every tick.
type MemoryProfiler struct {
	interval time.Duration
	metrics  *telemetry.Metrics
	quiet    bool
	stopChan chan struct{}
}

func NewMemoryProfiler(interval time.Duration, metrics *telemetry.Metrics, quiet bool) *MemoryProfiler {
	return &MemoryProfiler{
		interval: interval,
		metrics:  metrics,
		quiet:    quiet,
		stopChan: make(chan struct{}),
	}
}

// Start begins memory profiling
func (mp *MemoryProfiler) Start() {
	go func() {
		ticker := time.NewTicker(mp.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mp.Sample()
			case <-mp.stopChan:
				return
			}
		}
	}()
}

// Stop ends memory profiling
func (mp *MemoryProfiler) Stop() {
	close(mp.stopChan)
}

// Sample reads the runtime once and updates the gauges.
func (mp *MemoryProfiler) Sample() runtime.MemStats {
	m := SampleRuntime(mp.metrics)
	if !mp.quiet {
		log.Printf("📊 Memory: Heap=%.2fMB, TotalAlloc=%.2fMB, Sys=%.2fMB, GC=%d, Goroutines=%d",
			bToMb(m.HeapAlloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC, runtime.NumGoroutine())
	}
	return m
}

// SampleRuntime sets the heap, goroutine and GC gauges of metrics, which may
// be nil, and returns the stats it read.
func SampleRuntime(metrics *telemetry.Metrics) runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.ObserveRuntime(m.HeapAlloc, runtime.NumGoroutine(), m.NumGC)
	return m
}

// GCStats provides garbage collection statistics
type GCStats struct {
	NumGC        uint32        `json:"num_gc"`
	PauseTotal   time.Duration `json:"pause_total_ns"`
	PauseRecent  time.Duration `json:"pause_recent_ns"`
	LastGC       time.Time     `json:"last_gc"`
	GCCPUPercent float64       `json:"cpu_percent"`
}

func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return gcStats(&m)
}

func gcStats(m *runtime.MemStats) GCStats {
	var recentPause time.Duration
	if m.NumGC > 0 {
		recentPause = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}

	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recentPause,
		LastGC:       time.Unix(0, int64(m.LastGC)),
		GCCPUPercent: m.GCCPUFraction * 100,
	}
}

// ForceGC runs a collection for /debug/gc and returns the stats after it.
func ForceGC() GCStats {
	before := GetGCStats()
	runtime.GC()
	after := GetGCStats()

	log.Printf("🗑️  Forced GC: %d→%d runs, pause: %.2fμs",
		before.NumGC, after.NumGC,
		float64(after.PauseRecent.Nanoseconds())/1000.0)
	return after
}
