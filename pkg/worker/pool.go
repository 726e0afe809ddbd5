package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

// Pool manages concurrent light curve fitting workers
type Pool struct {
	jobs         chan models.WorkItem
	results      chan models.WorkResult
	webhookQueue chan models.WebhookItem
	workers      int
	bufferPool   sync.Pool
	shutdown     chan struct{}
	wg           sync.WaitGroup
	sends        sync.WaitGroup
	processor    ProcessorFunc
	sender       Sender
	metrics      *telemetry.Metrics
	once         sync.Once
}

// ProcessorFunc fits a single request
type ProcessorFunc func(ctx context.Context, req models.FitRequest) (*models.FitResult, error)

// Sender delivers finished fits, e.g. *webhook.Client
type Sender interface {
	Send(ctx context.Context, item models.WebhookItem) error
}

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Sender    Sender
	Metrics   *telemetry.Metrics
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	// do not block queueing new jobs, and results even if the workers are already busy jobs/results * 2
	pool := &Pool{
		jobs:         make(chan models.WorkItem, opts.Workers*2),
		results:      make(chan models.WorkResult, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4), // webhooks are slower than fits
		workers:      opts.Workers,
		shutdown:     make(chan struct{}),
		processor:    opts.Processor,
		sender:       opts.Sender,
		metrics:      opts.Metrics,
		bufferPool: sync.Pool{
			New: func() interface{} {
				// Typical light curves have a few hundred to a few thousand points
				return &models.BufferSet{
					Time: make([]float64, 0, 1024),
					Mag:  make([]float64, 0, 1024),
					Err:  make([]float64, 0, 1024),
				}
			},
		},
	}

	pool.start()
	return pool
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.webhookProcessor()

	log.Printf("🔧 Worker pool started with %d workers", p.workers)
}

// worker processes fit jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			result := p.processJob(job)
			if job.Reply != nil {
				job.Reply <- result
			} else {
				p.results <- result
			}
			p.observeQueues()

		case <-p.shutdown:
			return
		}
	}
}

// processJob runs the processor on a private copy of the light curve
func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	buffers := p.bufferPool.Get().(*models.BufferSet)
	defer p.bufferPool.Put(buffers)

	p.copyLightCurve(job.Request.LightCurveData, buffers)

	req := job.Request
	req.LightCurveData = models.LightCurveData{Time: buffers.Time, Mag: buffers.Mag, Err: buffers.Err}

	startTime := time.Now()
	result, err := p.processor(context.Background(), req)
	processingTime := time.Since(startTime)
	if err != nil {
		log.Printf("❌ Fit %s failed: %v", job.RequestID, err)
	}

	// Create copies for result (buffers will be reused)
	data := models.LightCurveData{
		Time: append([]float64(nil), buffers.Time...),
		Mag:  append([]float64(nil), buffers.Mag...),
		Err:  append([]float64(nil), buffers.Err...),
	}

	return models.WorkResult{
		ID:             job.ID,
		RequestID:      job.RequestID,
		BatchID:        job.BatchID,
		Iteration:      job.Iteration,
		Result:         result,
		Err:            err,
		ProcessingTime: processingTime,
		Success:        err == nil && result != nil,
		Data:           data,
	}
}

// copyLightCurve fills the pooled buffers with the columns of d
func (p *Pool) copyLightCurve(d models.LightCurveData, buffers *models.BufferSet) {
	buffers.Time = append(buffers.Time[:0], d.Time...)
	buffers.Mag = append(buffers.Mag[:0], d.Mag...)
	buffers.Err = append(buffers.Err[:0], d.Err...)
}

// webhookProcessor handles webhook requests asynchronously. Webhooks still
// queued at shutdown are sent before it returns.
func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case webhook := <-p.webhookQueue:
			p.dispatch(webhook)

		case <-p.shutdown:
			for {
				select {
				case webhook := <-p.webhookQueue:
					p.dispatch(webhook)
				default:
					return
				}
			}
		}
	}
}

// dispatch sends in the background so a slow receiver never blocks the queue
func (p *Pool) dispatch(webhook models.WebhookItem) {
	p.sends.Add(1)
	go p.sendWebhook(webhook)
}

func (p *Pool) sendWebhook(webhook models.WebhookItem) {
	defer p.sends.Done()
	if p.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.sender.Send(ctx, webhook); err != nil {
		log.Printf("❌ Webhook for %s failed: %v", webhook.RequestID, err)
	}
}

// SubmitJob submits a job to the worker pool
func (p *Pool) SubmitJob(job models.WorkItem) {
	select {
	case p.jobs <- job:
	default:
		log.Printf("⚠️  Worker pool jobs channel full, job may be delayed")
		p.jobs <- job // Block until space available
	}
	p.observeQueues()
}

// GetResult retrieves a result from the worker pool (non-blocking)
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// QueueWebhook queues a webhook for async processing
func (p *Pool) QueueWebhook(webhook models.WebhookItem) {
	select {
	case p.webhookQueue <- webhook:
	default:
		log.Printf("⚠️  Webhook queue full, dropping webhook for %s", webhook.RequestID)
		if p.metrics != nil {
			p.metrics.WebhooksDropped.Inc()
		}
	}
}

func (p *Pool) observeQueues() {
	if p.metrics == nil {
		return
	}
	p.metrics.QueueDepth.WithLabelValues("jobs").Set(float64(len(p.jobs)))
	p.metrics.QueueDepth.WithLabelValues("results").Set(float64(len(p.results)))
	p.metrics.QueueDepth.WithLabelValues("webhooks").Set(float64(len(p.webhookQueue)))
}

// Shutdown gracefully shuts down the worker pool and waits for in-flight
// webhooks. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		log.Printf("🛑 Shutting down worker pool...")
		close(p.shutdown)
		p.wg.Wait()
		p.sends.Wait()
		log.Printf("✅ Worker pool shutdown complete")
	})
}
