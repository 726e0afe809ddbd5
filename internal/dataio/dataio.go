// Package dataio reads and writes the plain-text formats of light curves and
// fitted parameters.
package dataio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kacperjurak/govarcore"
)

// ReadLightCurve parses whitespace separated time, magnitude and error
// columns. Blank lines and lines starting with # are skipped, extra columns
// are ignored.
func ReadLightCurve(r io.Reader) (govarcore.LightCurve, error) {
	var lc govarcore.LightCurve

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return govarcore.LightCurve{}, fmt.Errorf("line %d: want 3 columns, got %d: %w", lineNo, len(fields), govarcore.ErrMalformedInput)
		}

		var vals [3]float64
		for i := range vals {
			val, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return govarcore.LightCurve{}, fmt.Errorf("line %d column %d: %v: %w", lineNo, i+1, err, govarcore.ErrMalformedInput)
			}
			vals[i] = val
		}
		lc.Time = append(lc.Time, vals[0])
		lc.Mag = append(lc.Mag, vals[1])
		lc.Err = append(lc.Err, vals[2])
	}
	if err := scanner.Err(); err != nil {
		return govarcore.LightCurve{}, err
	}

	return lc, lc.Validate()
}

// ReadLightCurveFile reads a light curve from path.
func ReadLightCurveFile(path string) (govarcore.LightCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return govarcore.LightCurve{}, err
	}
	defer f.Close()

	lc, err := ReadLightCurve(f)
	if err != nil {
		return govarcore.LightCurve{}, fmt.Errorf("%s: %w", path, err)
	}
	return lc, nil
}

// WriteParameters prints the intercept on the first line followed by one
// "amplitude frequency phase" line per sine.
func WriteParameters(w io.Writer, p govarcore.Params) error {
	if _, err := fmt.Fprintf(w, "%16.10f\n", p.YIntercept); err != nil {
		return err
	}
	for _, s := range p.Sines {
		if _, err := fmt.Fprintf(w, "%16.10f %16.10f %16.10f\n", s.Amplitude, s.Frequency, s.Phase); err != nil {
			return err
		}
	}
	return nil
}

// WriteLightCurve writes lc in the fixed-width three-column format.
func WriteLightCurve(w io.Writer, lc govarcore.LightCurve) error {
	bw := bufio.NewWriter(w)
	for i := range lc.Time {
		if _, err := fmt.Fprintf(bw, "%18.7f %15.7f %15.7f\n", lc.Time[i], lc.Mag[i], lc.Err[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteResidualsFile saves lc with the model p subtracted to path.
func WriteResidualsFile(path string, lc govarcore.LightCurve, p govarcore.Params) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteLightCurve(f, govarcore.Residuals(lc, p)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
