package pointsplus

import (
	"fmt"
	"math"
)

// DistributionBin counts players whose Points+ falls in [Min, Max).
type DistributionBin struct {
	Min   int
	Max   int
	Label string
	Count int
}

// DistributionConfig fixes the bin width and the range the histogram always
// spans, so the chart keeps the same axis from one run to the next. Observed
// values outside [SpanMin, SpanMax) extend the range by whole bins.
type DistributionConfig struct {
	Width   int
	SpanMin int
	SpanMax int
}

func DefaultDistributionConfig() DistributionConfig {
	return DistributionConfig{Width: 10, SpanMin: 70, SpanMax: 150}
}

// Distribution buckets values into fixed-width half-open bins. Every value
// lands in exactly one bin.
func Distribution(values []float64, cfg DistributionConfig) []DistributionBin {
	if cfg.Width <= 0 {
		cfg.Width = DefaultDistributionConfig().Width
	}
	w := float64(cfg.Width)

	lo := floorTo(float64(cfg.SpanMin), w)
	hi := floorTo(float64(cfg.SpanMax), w)
	if hi <= lo {
		hi = lo + cfg.Width
	}
	for _, v := range values {
		if b := floorTo(v, w); b < lo {
			lo = b
		}
		if b := floorTo(v, w) + cfg.Width; b > hi {
			hi = b
		}
	}

	bins := make([]DistributionBin, 0, (hi-lo)/cfg.Width)
	for start := lo; start < hi; start += cfg.Width {
		bins = append(bins, DistributionBin{
			Min:   start,
			Max:   start + cfg.Width,
			Label: fmt.Sprintf("%d-%d", start, start+cfg.Width),
		})
	}
	for _, v := range values {
		i := (floorTo(v, w) - lo) / cfg.Width
		bins[i].Count++
	}
	return bins
}

func floorTo(v, width float64) int {
	return int(math.Floor(v/width) * width)
}
