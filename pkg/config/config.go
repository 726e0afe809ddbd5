package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/kacperjurak/govarcore"
)

// ArrayFlags collects a repeated float flag such as -freq.
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (a *ArrayFlags) Set(value string) error {
	if val, err := strconv.ParseFloat(value, 64); err == nil {
		*a = append(*a, val)
		return nil
	} else {
		return err
	}
}

// Config holds all configuration settings of the fit CLI
type Config struct {
	File            string
	Frequencies     ArrayFlags
	Residuals       string
	Min             int
	Max             int
	MaxHarmonic     int
	Epsilon         float64
	Method          string
	Independent     bool
	Synthetic       bool
	ImgSave         bool
	ImgPath         string
	ImgSize         uint
	Quiet           bool
	HTTPServer      bool
	Threads         uint
	EnableProfiling bool
}

// ServerConfig holds server-specific configuration, read from GOVAR_* variables
type ServerConfig struct {
	Port            string `env:"PORT, default=8080"`
	WorkerCount     int    `env:"WORKERS, default=5"`
	WebhookURL      string `env:"WEBHOOK_URL"`
	EnableMetrics   bool   `env:"METRICS, default=true"`
	EnableProfiling bool   `env:"PROFILING, default=false"`
	ProfilingPort   string `env:"PROFILING_PORT, default=6060"`
	StorePath       string `env:"STORE_PATH"`
	EnableTracing   bool   `env:"TRACING, default=false"`
	TimingFile      string `env:"TIMING_FILE, default=timing_results.csv"`
	// MaxSearchSize caps the coefficient vectors one request may search.
	MaxSearchSize float64 `env:"MAX_SEARCH_SIZE, default=1e8"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	b := govarcore.DefaultBounds()
	return &Config{
		Min:         b.Min,
		Max:         b.Max,
		MaxHarmonic: b.MaxHarmonic,
		Epsilon:     b.Epsilon,
		Method:      string(govarcore.MethodLM),
		ImgPath:     "fit.png",
		ImgSize:     800,
		Threads:     5,
	}
}

// Bounds returns the combination search bounds of the configuration.
func (c *Config) Bounds() govarcore.Bounds {
	return govarcore.Bounds{
		Min:         c.Min,
		Max:         c.Max,
		MaxHarmonic: c.MaxHarmonic,
		Epsilon:     c.Epsilon,
	}
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WorkerCount:     5,
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
		TimingFile:      "timing_results.csv",
		MaxSearchSize:   govarcore.DefaultMaxSearchSize,
	}
}

// LoadServerConfig fills a ServerConfig from l, every key prefixed with
// GOVAR_. A nil lookuper reads the process environment.
func LoadServerConfig(ctx context.Context, l envconfig.Lookuper) (*ServerConfig, error) {
	if l == nil {
		l = envconfig.OsLookuper()
	}

	var cfg ServerConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("GOVAR_", l),
	}); err != nil {
		return nil, fmt.Errorf("loading server config: %w", err)
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}
