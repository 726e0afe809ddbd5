package models

import (
	"time"

	"github.com/kacperjurak/govarcore"
)

// LightCurveData is the JSON form of a three-column light curve
type LightCurveData struct {
	Time []float64 `json:"time"`
	Mag  []float64 `json:"mag"`
	Err  []float64 `json:"err"`
}

// LightCurve validates the columns and converts them to the core type.
func (d LightCurveData) LightCurve() (govarcore.LightCurve, error) {
	return govarcore.NewLightCurve(d.Time, d.Mag, d.Err)
}

// BoundsRequest overrides selected combination search bounds
type BoundsRequest struct {
	Min         *int     `json:"min,omitempty"`
	Max         *int     `json:"max,omitempty"`
	MaxHarmonic *int     `json:"max_harmonic,omitempty"`
	Epsilon     *float64 `json:"epsilon,omitempty"`
}

// Apply returns def with every field set in r replaced.
func (r *BoundsRequest) Apply(def govarcore.Bounds) govarcore.Bounds {
	if r == nil {
		return def
	}
	if r.Min != nil {
		def.Min = *r.Min
	}
	if r.Max != nil {
		def.Max = *r.Max
	}
	if r.MaxHarmonic != nil {
		def.MaxHarmonic = *r.MaxHarmonic
	}
	if r.Epsilon != nil {
		def.Epsilon = *r.Epsilon
	}
	return def
}

// FitRequest represents an incoming light curve to fit
type FitRequest struct {
	LightCurveData
	Frequencies []float64      `json:"frequencies"`
	Bounds      *BoundsRequest `json:"bounds,omitempty"`
	Method      string         `json:"method,omitempty"`
	Independent bool           `json:"independent,omitempty"`
	Residuals   bool           `json:"residuals,omitempty"`
}

// FitResult is the stored and returned outcome of a fit
type FitResult struct {
	ID          string                      `json:"id"`
	CreatedAt   time.Time                   `json:"created_at"`
	Params      govarcore.Params            `json:"params"`
	Basis       []float64                   `json:"basis,omitempty"`
	Matrix      govarcore.CombinationMatrix `json:"matrix,omitempty"`
	ChiSquare   float64                     `json:"chi_square"`
	Method      string                      `json:"method"`
	Independent bool                        `json:"independent"`
	Iterations  int                         `json:"iterations"`
	RuntimeMs   float64                     `json:"runtime_ms"`
	Residuals   []float64                   `json:"residuals,omitempty"`
	// AllocBytes is set when the fit was profiled.
	AllocBytes uint64 `json:"alloc_bytes,omitempty"`
}

// CombinationRequest asks whether Target is a combination of Basis
type CombinationRequest struct {
	Basis  []float64      `json:"basis"`
	Target float64        `json:"target"`
	Bounds *BoundsRequest `json:"bounds,omitempty"`
}

// CombinationResponse carries the most likely combination, if any
type CombinationResponse struct {
	Found        bool    `json:"found"`
	Coefficients []int   `json:"coefficients,omitempty"`
	Value        float64 `json:"value,omitempty"`
}

// BatchItem represents a single light curve with iteration number
type BatchItem struct {
	Request   FitRequest `json:"request"`
	Iteration int        `json:"iteration"`
}

// FitBatch represents a batch of light curves
type FitBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Curves    []BatchItem `json:"curves"`
}

// WorkItem represents a single fitting task
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Iteration int
	Request   FitRequest
	StartTime time.Time
	// Reply receives the result when set, instead of the shared pool channel.
	Reply chan<- WorkResult
}

// WorkResult contains the result of a fitting task
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Iteration      int
	Result         *FitResult
	Err            error
	ProcessingTime time.Duration
	Success        bool
	Data           LightCurveData
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	RequestID  string
	Result     *FitResult
	Data       LightCurveData
	Components []SineComponent
}

// SineComponent is one fitted sine sampled at the observation times
type SineComponent struct {
	Name      string    `json:"name"`
	Amplitude float64   `json:"amplitude"`
	Frequency float64   `json:"frequency"`
	Phase     float64   `json:"phase"`
	Values    []float64 `json:"values"`
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	ID          string          `json:"id"`
	Time        string          `json:"time"`
	ChiSquare   float64         `json:"chi_square"`
	Method      string          `json:"method"`
	YIntercept  float64         `json:"y_intercept"`
	Frequencies []float64       `json:"frequencies"`
	Basis       []float64       `json:"basis,omitempty"`
	Parameters  []float64       `json:"parameters"`
	ObsTime     []float64       `json:"obs_time"`
	ObsMag      []float64       `json:"obs_mag"`
	Components  []SineComponent `json:"components"`
}

// CurveTiming tracks performance metrics for individual light curve fits
type CurveTiming struct {
	Iteration      int           `json:"iteration"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	ChiSquare      float64       `json:"chi_square"`
	Success        bool          `json:"success"`
	Method         string        `json:"method"`
}

// BufferSet contains reusable buffers to reduce allocations
type BufferSet struct {
	Time []float64
	Mag  []float64
	Err  []float64
}
