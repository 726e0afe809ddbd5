package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/kacperjurak/govarcore/internal/utils"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/webhook"
	"github.com/kacperjurak/govarcore/pkg/worker"
)

// BatchOptions configures a BatchHandler
type BatchOptions struct {
	// TimingFile receives one CSV summary row per batch; empty disables it.
	TimingFile  string
	Concurrency int
	Quiet       bool
}

// BatchHandler handles batch light curve fit requests
type BatchHandler struct {
	workerPool *worker.Pool
	store      ResultStore
	calculator *webhook.Calculator
	opts       BatchOptions
	running    sync.WaitGroup
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(pool *worker.Pool, store ResultStore, opts BatchOptions) *BatchHandler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	return &BatchHandler{
		workerPool: pool,
		store:      store,
		calculator: webhook.NewCalculator(),
		opts:       opts,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setupCORS(w, "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch models.FitBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	if len(batch.Curves) == 0 {
		writeError(w, "No light curves provided in batch", http.StatusBadRequest)
		return
	}
	if batch.BatchID == "" {
		batch.BatchID = utils.GenerateID()
	}

	log.Printf("🔄 Batch processing started - ID: %s, Curves: %d", batch.BatchID, len(batch.Curves))

	// Process batch asynchronously
	h.running.Add(1)
	go h.processBatchAsync(batch)

	response := map[string]interface{}{
		"success":  true,
		"batch_id": batch.BatchID,
		"curves":   len(batch.Curves),
		"message":  "Batch processing started with worker pool",
	}
	writeJSON(w, http.StatusAccepted, response)
}

// Wait blocks until every accepted batch has finished
func (h *BatchHandler) Wait() {
	h.running.Wait()
}

// processBatchAsync handles asynchronous batch processing
func (h *BatchHandler) processBatchAsync(batch models.FitBatch) {
	defer h.running.Done()

	batchStartTime := time.Now()
	curveTimings := make([]models.CurveTiming, len(batch.Curves))
	reply := make(chan models.WorkResult, len(batch.Curves))

	// Submit all jobs to worker pool
	for i, item := range batch.Curves {
		h.workerPool.SubmitJob(models.WorkItem{
			ID:        i,
			RequestID: fmt.Sprintf("%s_iter_%03d", batch.BatchID, item.Iteration),
			BatchID:   batch.BatchID,
			Iteration: item.Iteration,
			Request:   item.Request,
			StartTime: time.Now(),
			Reply:     reply,
		})
	}

	for range batch.Curves {
		h.processResult(<-reply, curveTimings)
	}

	totalBatchTime := time.Since(batchStartTime)
	if h.opts.TimingFile != "" {
		h.saveTimingResults(batch.BatchID, totalBatchTime, curveTimings)
	}

	log.Printf("🎉 Batch processing completed - ID: %s, Total time: %v", batch.BatchID, totalBatchTime)
}

// processResult stores a work result, queues its webhook and records timing
func (h *BatchHandler) processResult(result models.WorkResult, curveTimings []models.CurveTiming) {
	timing := models.CurveTiming{
		Iteration:      result.Iteration,
		ProcessingTime: result.ProcessingTime,
		Success:        result.Success,
	}

	if !result.Success {
		curveTimings[result.ID] = timing
		log.Printf("❌ Curve iteration %d failed: %v", result.Iteration, result.Err)
		return
	}

	timing.ChiSquare = result.Result.ChiSquare
	timing.Method = result.Result.Method
	curveTimings[result.ID] = timing

	if h.store != nil {
		if err := h.store.Put(result.Result); err != nil {
			log.Printf("❌ Failed to store fit %s: %v", result.Result.ID, err)
		}
	}

	h.workerPool.QueueWebhook(models.WebhookItem{
		RequestID:  result.RequestID,
		Result:     result.Result,
		Data:       result.Data,
		Components: h.calculator.Components(result.Data.Time, result.Result.Params, result.Result.Matrix),
	})

	if !h.opts.Quiet {
		log.Printf("✅ Processed curve iteration %d", result.Iteration)
	}
}

// saveTimingResults appends a batch summary to the timing CSV file
func (h *BatchHandler) saveTimingResults(batchID string, totalTime time.Duration, curveTimings []models.CurveTiming) {
	filename := h.opts.TimingFile
	concurrency := h.opts.Concurrency

	// Check if file exists to decide on header
	var writeHeader bool
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		writeHeader = true
	}

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Error opening timing file: %v", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if writeHeader {
		header := []string{
			"Timestamp",
			"BatchID",
			"TotalCurves",
			"Concurrency",
			"TotalBatchTime_ms",
			"AvgCurveTime_ms",
			"MinCurveTime_ms",
			"MaxCurveTime_ms",
			"SuccessRate",
			"AvgChiSquare",
			"CurvesPerSecond",
			"EfficiencyScore",
			"Method",
		}
		if err := writer.Write(header); err != nil {
			log.Printf("Error writing timing header: %v", err)
			return
		}
	}

	var totalCurveTime time.Duration
	var minTime, maxTime time.Duration = time.Hour, 0
	var successful int
	var totalChiSq float64
	method := "unknown"

	for _, timing := range curveTimings {
		totalCurveTime += timing.ProcessingTime
		if timing.ProcessingTime < minTime {
			minTime = timing.ProcessingTime
		}
		if timing.ProcessingTime > maxTime {
			maxTime = timing.ProcessingTime
		}
		if timing.Success {
			successful++
			totalChiSq += timing.ChiSquare
			method = timing.Method
		}
	}

	numCurves := len(curveTimings)
	avgCurveTime := totalCurveTime / time.Duration(numCurves)
	successRate := float64(successful) / float64(numCurves) * 100
	avgChiSq := 0.0
	if successful > 0 {
		avgChiSq = totalChiSq / float64(successful)
	}

	curvesPerSecond := float64(numCurves) / totalTime.Seconds()

	// 1.0 is a linear speedup over the workers
	theoreticalTime := avgCurveTime * time.Duration(numCurves)
	efficiencyScore := theoreticalTime.Seconds() / totalTime.Seconds() / float64(concurrency)

	record := []string{
		time.Now().Format(time.RFC3339),
		batchID,
		fmt.Sprintf("%d", numCurves),
		fmt.Sprintf("%d", concurrency),
		fmt.Sprintf("%.2f", float64(totalTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(avgCurveTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(minTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.2f", float64(maxTime.Nanoseconds())/1000000.0),
		fmt.Sprintf("%.1f", successRate),
		fmt.Sprintf("%.6e", avgChiSq),
		fmt.Sprintf("%.2f", curvesPerSecond),
		fmt.Sprintf("%.3f", efficiencyScore),
		method,
	}

	if err := writer.Write(record); err != nil {
		log.Printf("Error writing timing record: %v", err)
		return
	}

	log.Printf("📊 Timing saved: %d curves, %d goroutines, %.2f ms total, %.2f%% success, %.3f efficiency",
		numCurves, concurrency, float64(totalTime.Nanoseconds())/1000000.0, successRate, efficiencyScore)
}
