package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kacperjurak/govarcore"
	"github.com/kacperjurak/govarcore/internal/dataio"
	"github.com/kacperjurak/govarcore/internal/plot"
	"github.com/kacperjurak/govarcore/internal/processing"
	"github.com/kacperjurak/govarcore/pkg/config"
	"github.com/kacperjurak/govarcore/pkg/models"
	"github.com/kacperjurak/govarcore/pkg/server"
)

func main() {
	cfg := parseFlags()

	if cfg.HTTPServer {
		startHTTPServer(cfg)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// parseFlags parses command line flags and returns configuration
func parseFlags() *config.Config {
	cfg := config.DefaultConfig()

	flag.StringVar(&cfg.File, "f", cfg.File, "Light curve file (time mag err)")
	flag.Var(&cfg.Frequencies, "freq", "Frequency to fit (repeat for more)")
	flag.StringVar(&cfg.Residuals, "residuals", cfg.Residuals, "Save residuals to this file")
	flag.IntVar(&cfg.Min, "min", cfg.Min, "Minimal coefficient of a combination")
	flag.IntVar(&cfg.Max, "max", cfg.Max, "Maximal coefficient of a combination")
	flag.IntVar(&cfg.MaxHarmonic, "max_harm", cfg.MaxHarmonic, "Highest harmonic to look for")
	flag.Float64Var(&cfg.Epsilon, "eps", cfg.Epsilon, "Tolerance of a combination match")
	flag.StringVar(&cfg.Method, "m", cfg.Method, "Minimizer: lm, nelder-mead, lbfgs, newton, gd or all")
	flag.BoolVar(&cfg.Independent, "independent", cfg.Independent, "Fit every frequency as free")
	flag.BoolVar(&cfg.Synthetic, "synthetic", cfg.Synthetic, "Fit a generated light curve instead of -f")
	flag.BoolVar(&cfg.ImgSave, "imgsave", cfg.ImgSave, "Save a plot of the fit")
	flag.StringVar(&cfg.ImgPath, "imgpath", cfg.ImgPath, "Path to generated image (.png or .svg)")
	flag.UintVar(&cfg.ImgSize, "imgsize", cfg.ImgSize, "Image height in points")
	flag.BoolVar(&cfg.Quiet, "q", cfg.Quiet, "Quiet mode")
	flag.BoolVar(&cfg.HTTPServer, "http", cfg.HTTPServer, "Start HTTP server")
	flag.UintVar(&cfg.Threads, "threads", cfg.Threads, "Number of worker threads (HTTP server)")
	flag.BoolVar(&cfg.EnableProfiling, "profiling", cfg.EnableProfiling, "Enable pprof profiling")
	flag.Parse()

	return cfg
}

func run(cfg *config.Config) error {
	lc, err := loadLightCurve(cfg)
	if err != nil {
		return err
	}

	processor := processing.NewFitProcessor(cfg.Bounds(), cfg.Quiet, nil)
	// Local runs search whatever the flags ask for.
	processor.MaxSearchSize = 0
	processor.Profile = cfg.EnableProfiling
	req := models.FitRequest{
		LightCurveData: models.LightCurveData{Time: lc.Time, Mag: lc.Mag, Err: lc.Err},
		Frequencies:    cfg.Frequencies,
		Method:         cfg.Method,
		Independent:    cfg.Independent,
	}

	result, err := processor.Process(context.Background(), req)
	if err != nil {
		return err
	}

	if err := dataio.WriteParameters(os.Stdout, result.Params); err != nil {
		return err
	}
	if cfg.Residuals != "" {
		if err := dataio.WriteResidualsFile(cfg.Residuals, lc, result.Params); err != nil {
			return err
		}
	}
	if cfg.ImgSave {
		if err := plot.Save(cfg.ImgPath, lc, result.Params, cfg.ImgSize); err != nil {
			return err
		}
		if !cfg.Quiet {
			log.Printf("🖼️  Plot saved to %s", cfg.ImgPath)
		}
	}
	return nil
}

func loadLightCurve(cfg *config.Config) (govarcore.LightCurve, error) {
	if !cfg.Synthetic {
		return dataio.ReadLightCurveFile(cfg.File)
	}
	return syntheticLightCurve(cfg.Frequencies)
}

// syntheticLightCurve generates a slightly noisy curve with one sine per
// frequency and decreasing amplitudes.
func syntheticLightCurve(freqs []float64) (govarcore.LightCurve, error) {
	p := govarcore.Params{YIntercept: 10}
	for i, f := range freqs {
		p.Sines = append(p.Sines, govarcore.Sine{
			Amplitude: 0.5 / float64(i+1),
			Frequency: f,
			Phase:     govarcore.NormalizePhase(float64(i) * 1.3),
		})
	}

	const n = 1000
	return govarcore.NoisyLightCurve(p, govarcore.UniformTimes(n, 50), govarcore.ConstantErrors(n, 0.005), 0.005, rand.New(rand.NewSource(1)))
}

// startHTTPServer runs the fitting service until SIGINT or SIGTERM
func startHTTPServer(cfg *config.Config) {
	serverConfig, err := config.LoadServerConfig(context.Background(), nil)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Explicit flags override the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "threads":
			serverConfig.WorkerCount = int(cfg.Threads)
		case "profiling":
			serverConfig.EnableProfiling = cfg.EnableProfiling
		}
	})

	srv, err := server.New(server.Options{Config: cfg, ServerConfig: serverConfig})
	if err != nil {
		log.Fatalf("❌ Failed to create server: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		log.Println("🛑 Received shutdown signal...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
	<-done
}
