package processing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/internal/utils"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/profiling"
	"github.com/kacperjurak/govarcore/pkg/telemetry"
)

// MethodAll runs every solver method and keeps the lowest chi-square.
const MethodAll = "all"

// FitProcessor validates fit requests and runs the fitting engine
type FitProcessor struct {
	Bounds govarcore.Bounds
	// MaxSearchSize caps the combination search of one request, 0 disables it.
	MaxSearchSize float64
	// MaxIterations is passed to the solver, 0 keeps its defaults.
	MaxIterations int
	// Profile measures the allocations of every fit.
	Profile bool
	Quiet   bool
	Metrics *telemetry.Metrics
}

// NewFitProcessor creates a processor with the given default bounds
func NewFitProcessor(bounds govarcore.Bounds, quiet bool, metrics *telemetry.Metrics) *FitProcessor {
	return &FitProcessor{
		Bounds:        bounds,
		MaxSearchSize: govarcore.DefaultMaxSearchSize,
		Quiet:         quiet,
		Metrics:       metrics,
	}
}

// fail marks span as failed and returns err.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Process fits req and returns the result with a fresh ID
func (p *FitProcessor) Process(ctx context.Context, req models.FitRequest) (*models.FitResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "govar.fit")
	defer span.End()

	lc, err := req.LightCurve()
	if err != nil {
		return nil, fail(span, err)
	}
	if len(req.Frequencies) == 0 {
		return nil, fail(span, fmt.Errorf("no frequencies provided: %w", govarcore.ErrMalformedInput))
	}

	opts := govarcore.FitOptions{
		Bounds:        req.Bounds.Apply(p.Bounds),
		MaxIterations: p.MaxIterations,
		Quiet:         p.Quiet,
	}
	if err := opts.Bounds.Validate(); err != nil {
		return nil, fail(span, err)
	}
	// Every dependent frequency is searched over a basis of at most n-1.
	if !req.Independent {
		if err := opts.Bounds.CheckSearchSize(len(req.Frequencies)-1, p.MaxSearchSize); err != nil {
			return nil, fail(span, err)
		}
	}

	span.SetAttributes(
		attribute.Int("govar.points", lc.Len()),
		attribute.Int("govar.frequencies", len(req.Frequencies)),
		attribute.Bool("govar.independent", req.Independent),
		attribute.String("govar.method", req.Method),
	)

	if !p.Quiet {
		log.Printf("🔭 Fitting %d points, %d frequencies, method=%q", lc.Len(), len(req.Frequencies), req.Method)
	}

	var (
		fit   *govarcore.Fit
		stats profiling.FitStats
	)
	if strings.EqualFold(req.Method, MethodAll) {
		fit, stats, err = p.runAllMethods(ctx, lc, req, opts)
	} else {
		opts.Method, err = govarcore.ParseMethod(req.Method)
		if err != nil {
			return nil, fail(span, err)
		}
		fit, stats, err = p.runMethod(ctx, lc, req, opts)
	}
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Float64("govar.chi_square", fit.ChiSq))

	result := &models.FitResult{
		ID:          utils.GenerateID(),
		CreatedAt:   time.Now().UTC(),
		Params:      fit.Params,
		Basis:       fit.Basis,
		Matrix:      fit.Matrix,
		ChiSquare:   fit.ChiSq,
		Method:      string(fit.Method),
		Independent: req.Independent,
		Iterations:  fit.Iters,
		RuntimeMs:   float64(fit.Runtime.Nanoseconds()) / 1e6,
	}
	if req.Residuals {
		result.Residuals = fit.Residuals(lc).Mag
	}
	if p.Profile {
		result.AllocBytes = stats.AllocBytes
	}

	if !p.Quiet {
		log.Printf("✅ Fit %s done - method: %s, chi-square: %.12e, params: %v", result.ID, result.Method, result.ChiSquare, fit.Params.Vector())
	}
	return result, nil
}

func (p *FitProcessor) runMethod(ctx context.Context, lc govarcore.LightCurve, req models.FitRequest, opts govarcore.FitOptions) (*govarcore.Fit, profiling.FitStats, error) {
	_, span := telemetry.Tracer().Start(ctx, "govar.fit."+string(opts.Method))
	defer span.End()

	var (
		fit *govarcore.Fit
		err error
	)
	run := func() {
		if req.Independent {
			fit, err = govarcore.FitIndependentWithOptions(lc, req.Frequencies, opts)
		} else {
			fit, err = govarcore.FitFinalCurve(lc, req.Frequencies, opts)
		}
	}

	var stats profiling.FitStats
	if p.Profile {
		stats = profiling.MeasureFit(run)
		p.Metrics.ObserveFitAlloc(string(opts.Method), stats.AllocBytes)
		span.SetAttributes(attribute.Int64("govar.alloc_bytes", int64(stats.AllocBytes)))
		if !p.Quiet {
			log.Printf("⚡ %s fit: %.3fms, allocated: %d bytes in %d objects, gc runs: %d",
				opts.Method, float64(stats.Duration.Nanoseconds())/1e6, stats.AllocBytes, stats.Mallocs, stats.GCRuns)
		}
	} else {
		start := time.Now()
		run()
		stats.Duration = time.Since(start)
	}

	basisSize := len(req.Frequencies)
	if fit != nil && fit.Basis != nil {
		basisSize = len(fit.Basis)
	}
	p.Metrics.ObserveFit(string(opts.Method), basisSize, stats.Duration, err)

	if err != nil {
		return nil, stats, fail(span, err)
	}
	return fit, stats, nil
}

// runAllMethods keeps the first method reaching the lowest chi-square
func (p *FitProcessor) runAllMethods(ctx context.Context, lc govarcore.LightCurve, req models.FitRequest, opts govarcore.FitOptions) (*govarcore.Fit, profiling.FitStats, error) {
	var (
		best      *govarcore.Fit
		bestStats profiling.FitStats
		errs      []error
	)
	bestChiSq := math.Inf(1)

	if !p.Quiet {
		log.Printf("Running all optimization methods for comparison...")
	}

	for _, method := range govarcore.Methods {
		opts.Method = method
		fit, stats, err := p.runMethod(ctx, lc, req, opts)
		if err != nil {
			if !p.Quiet {
				log.Printf("Method: %s FAILED - %v", method, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
			continue
		}
		if fit.ChiSq < bestChiSq {
			best, bestStats = fit, stats
			bestChiSq = fit.ChiSq
			if !p.Quiet {
				log.Printf("New best method: %s with chi-square: %.12e", method, fit.ChiSq)
			}
		}
	}

	if best == nil {
		return nil, profiling.FitStats{}, fmt.Errorf("all optimization methods failed: %w", errors.Join(errs...))
	}
	return best, bestStats, nil
}

// ProcessorFunc adapts the processor to the worker pool
func (p *FitProcessor) ProcessorFunc() func(ctx context.Context, req models.FitRequest) (*models.FitResult, error) {
	return p.Process
}
