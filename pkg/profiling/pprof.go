package profiling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"time"

	"github.com/kacperjurak/govarcore/pkg/config"
)

// Profiler manages pprof profiling server
type Profiler struct {
	config *config.ServerConfig
	server *http.Server
}

// New creates a new profiler instance
func New(cfg *config.ServerConfig) *Profiler {
	return &Profiler{
		config: cfg,
	}
}

// Handler returns the profiling routes
func (p *Profiler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/info", p.infoHandler)
	mux.HandleFunc("/debug/stats", p.statsHandler)
	return mux
}

// Start starts the profiling server on a separate port
func (p *Profiler) Start() error {
	if !p.config.EnableProfiling {
		log.Println("📊 Profiling disabled")
		return nil
	}

	// Enable more detailed profiling
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	p.server = &http.Server{
		Addr:              ":" + p.config.ProfilingPort,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("📊 Starting profiling server on port %s", p.config.ProfilingPort)
	log.Printf("📈 Profiling endpoints:")
	log.Printf("  - CPU Profile:    http://localhost:%s/debug/pprof/profile", p.config.ProfilingPort)
	log.Printf("  - Heap Profile:   http://localhost:%s/debug/pprof/heap", p.config.ProfilingPort)
	log.Printf("  - Goroutines:     http://localhost:%s/debug/pprof/goroutine", p.config.ProfilingPort)
	log.Printf("  - Full Index:     http://localhost:%s/debug/pprof/", p.config.ProfilingPort)
	log.Printf("  - Runtime Info:   http://localhost:%s/debug/info", p.config.ProfilingPort)
	log.Printf("  - Runtime Stats:  http://localhost:%s/debug/stats", p.config.ProfilingPort)

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Profiling server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the profiling server
func (p *Profiler) Stop() error {
	if p.server == nil {
		return nil
	}

	log.Println("🛑 Shutting down profiling server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown error: %w", err)
	}

	log.Println("✅ Profiling server stopped")
	return nil
}

// RuntimeInfo is the body of /debug/info
type RuntimeInfo struct {
	Timestamp  string     `json:"timestamp"`
	Goroutines int        `json:"goroutines"`
	GOMAXPROCS int        `json:"gomaxprocs"`
	NumCPU     int        `json:"num_cpu"`
	Version    string     `json:"version"`
	Memory     MemoryInfo `json:"memory"`
	GC         GCStats    `json:"gc"`
}

// MemoryInfo holds heap and stack usage in megabytes
type MemoryInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	TotalAllocMB float64 `json:"total_alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	HeapSysMB    float64 `json:"heap_sys_mb"`
	HeapObjects  uint64  `json:"heap_objects"`
	StackInUseMB float64 `json:"stack_in_use_mb"`
}

// ReadRuntimeInfo samples the Go runtime
func ReadRuntimeInfo() RuntimeInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeInfo{
		Timestamp:  time.Now().Format(time.RFC3339),
		Goroutines: runtime.NumGoroutine(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		NumCPU:     runtime.NumCPU(),
		Version:    runtime.Version(),
		Memory: MemoryInfo{
			AllocMB:      bToMb(m.Alloc),
			TotalAllocMB: bToMb(m.TotalAlloc),
			SysMB:        bToMb(m.Sys),
			HeapAllocMB:  bToMb(m.HeapAlloc),
			HeapSysMB:    bToMb(m.HeapSys),
			HeapObjects:  m.HeapObjects,
			StackInUseMB: bToMb(m.StackInuse),
		},
		GC: gcStats(&m),
	}
}

// infoHandler provides runtime information
func (p *Profiler) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ReadRuntimeInfo())
}

// statsHandler streams one runtime snapshot per second, ?n=30 by default
func (p *Profiler) statsHandler(w http.ResponseWriter, r *http.Request) {
	n := 30
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v > 0 {
		n = v
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	for i := 0; i < n; i++ {
		if i > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Second):
			}
		}

		info := ReadRuntimeInfo()
		fmt.Fprintf(w, "=== Runtime Stats [%02d] ===\n", i+1)
		fmt.Fprintf(w, "Timestamp: %s\n", info.Timestamp)
		fmt.Fprintf(w, "Goroutines: %d\n", info.Goroutines)
		fmt.Fprintf(w, "Memory Allocated: %.2f MB\n", info.Memory.AllocMB)
		fmt.Fprintf(w, "Total Allocations: %.2f MB\n", info.Memory.TotalAllocMB)
		fmt.Fprintf(w, "System Memory: %.2f MB\n", info.Memory.SysMB)
		fmt.Fprintf(w, "GC Runs: %d\n", info.GC.NumGC)
		fmt.Fprintf(w, "Heap Objects: %d\n\n", info.Memory.HeapObjects)

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// bToMb converts bytes to megabytes
func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
