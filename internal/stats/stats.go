// Package stats computes trailing-window means of scalar metrics recorded
// in an event file.
package stats

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/signalnine/highwin/internal/tfevents"
)

// Means maps each tracked tag to its window mean. A tag that was never
// recorded maps to NaN.
type Means map[string]float64

// Rate returns the mean for tag with undefined values mapped to -Inf, so
// a metric that was never recorded loses every comparison.
func (m Means) Rate(tag string) float64 {
	v, ok := m[tag]
	if !ok || math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// WindowMean averages the last min(len(values), window) values. It
// returns NaN for an empty slice.
func WindowMean(values []float64, window int) float64 {
	if len(values) == 0 || window < 1 {
		return math.NaN()
	}
	if len(values) > window {
		values = values[len(values)-window:]
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Extract reads the event file at path to the end and returns the window
// means of tags. tags[0] is the tag whose count is logged.
func Extract(path string, window int, tags []string, logger *slog.Logger) (Means, error) {
	r, err := tfevents.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	series := make(map[string][]float64, len(tags))
	var lastStep int64
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tfevents.ErrTruncated) {
			logger.Warn("event file ends mid-record, using complete records only", "path", path)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for _, s := range ev.Scalars {
			if slices.Contains(tags, s.Tag) {
				series[s.Tag] = append(series[s.Tag], s.Value)
				lastStep = ev.Step
			}
		}
	}

	if len(tags) > 0 {
		logger.Info("read events", "count", len(series[tags[0]]), "last_step", lastStep, "path", path)
	}

	means := make(Means, len(tags))
	for _, tag := range tags {
		means[tag] = WindowMean(series[tag], window)
	}
	return means, nil
}
