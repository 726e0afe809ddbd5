// Package plot renders a light curve together with its fitted model.
package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kacperjurak/govarcore"
)

// modelSamples is the number of points drawn along the fitted curve
const modelSamples = 2000

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// New builds a plot of lc with p drawn over its time range. Magnitudes grow
// downwards.
func New(lc govarcore.LightCurve, p govarcore.Params, title string) (*plot.Plot, error) {
	if err := lc.Validate(); err != nil {
		return nil, err
	}

	pl := plot.New()
	pl.Title.Text = title
	pl.X.Label.Text = "Time"
	pl.Y.Label.Text = "Magnitude"
	pl.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	pl.Add(plotter.NewGrid())

	data := errorPoints{XYs: make(plotter.XYs, lc.Len()), YErrors: make(plotter.YErrors, lc.Len())}
	for i := range lc.Time {
		data.XYs[i].X = lc.Time[i]
		data.XYs[i].Y = lc.Mag[i]
		data.YErrors[i].Low = lc.Err[i]
		data.YErrors[i].High = lc.Err[i]
	}

	scatter, err := plotter.NewScatter(data.XYs)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 40, G: 40, B: 40, A: 255}

	bars, err := plotter.NewYErrorBars(data)
	if err != nil {
		return nil, fmt.Errorf("error bars: %w", err)
	}
	bars.LineStyle.Color = color.RGBA{R: 150, G: 150, B: 150, A: 255}

	line, err := plotter.NewLine(modelPoints(lc, p))
	if err != nil {
		return nil, fmt.Errorf("model line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}

	pl.Add(bars, scatter, line)
	pl.Legend.Add("data", scatter)
	pl.Legend.Add(fmt.Sprintf("model (%d sines)", len(p.Sines)), line)
	pl.Legend.Top = true

	return pl, nil
}

// Save writes the plot of lc and p to path. The format follows the
// extension, e.g. .png or .svg.
func Save(path string, lc govarcore.LightCurve, p govarcore.Params, size uint) error {
	pl, err := New(lc, p, path)
	if err != nil {
		return err
	}

	side := vg.Points(float64(size))
	return pl.Save(side*3/2, side, path)
}

func modelPoints(lc govarcore.LightCurve, p govarcore.Params) plotter.XYs {
	lo, hi := lc.Time[0], lc.Time[0]
	for _, t := range lc.Time {
		lo = min(lo, t)
		hi = max(hi, t)
	}

	pts := make(plotter.XYs, modelSamples)
	step := (hi - lo) / float64(modelSamples-1)
	for i := range pts {
		t := lo + float64(i)*step
		pts[i].X = t
		pts[i].Y = p.Eval(t)
	}
	return pts
}
