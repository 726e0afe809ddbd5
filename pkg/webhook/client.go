package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kacperjurak/govarcore/pkg/models"
)

// Client handles webhook HTTP requests with optimized connection pooling
type Client struct {
	url        string
	httpClient *http.Client
	quiet      bool
	bufferPool sync.Pool // Pool for JSON marshaling buffers
}

// NewClient creates a new webhook client with optimized connection pooling
func NewClient(url string, quiet bool) *Client {
	transport := &http.Transport{
		// Connection pooling settings
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{},

		ResponseHeaderTimeout: 30 * time.Second,

		// Payloads are small JSON documents
		DisableCompression: true,
		ForceAttemptHTTP2:  false,
	}

	return &Client{
		url:   url,
		quiet: quiet,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}
}

// URL returns the webhook endpoint, empty when webhooks are disabled.
func (c *Client) URL() string {
	return c.url
}

// Payload builds the JSON document posted for a finished fit.
func Payload(item models.WebhookItem) models.WebhookResponse {
	r := item.Result
	payload := models.WebhookResponse{
		ID:         item.RequestID,
		Time:       time.Now().Format(time.RFC3339Nano),
		ObsTime:    item.Data.Time,
		ObsMag:     item.Data.Mag,
		Components: item.Components,
	}
	if r == nil {
		return payload
	}

	payload.ChiSquare = sanitizeFloat(r.ChiSquare)
	payload.Method = r.Method
	payload.YIntercept = sanitizeFloat(r.Params.YIntercept)
	payload.Frequencies = r.Params.Frequencies()
	payload.Basis = r.Basis
	payload.Parameters = r.Params.Vector()
	for i, v := range payload.Parameters {
		payload.Parameters[i] = sanitizeFloat(v)
	}
	return payload
}

// Send posts the fit result of webhook to the configured URL
func (c *Client) Send(ctx context.Context, webhook models.WebhookItem) error {
	if c.url == "" {
		return nil
	}
	if webhook.Result != nil && sanitizeFloat(webhook.Result.ChiSquare) != webhook.Result.ChiSquare {
		log.Printf("Warning: Chi-square sanitized from %v to 0", webhook.Result.ChiSquare)
	}
	payload := Payload(webhook)

	// Get buffer from pool and marshal to JSON
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if !c.quiet {
		log.Printf("Webhook sent - ID: %s, Chi-square: %.14e, Sines: %d, Status: %d",
			webhook.RequestID, payload.ChiSquare, len(payload.Frequencies), resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return nil
}

// sanitizeFloat cleans float64 values for JSON compatibility
func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0.0
	}
	return value
}
