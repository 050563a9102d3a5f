package pointsplus

// Baseline is the league average adjusted PPG over qualifying players. The
// zero value is an uncomputed baseline; only ComputeBaseline makes a usable one.
type Baseline struct {
	AdjustedPPG float64
	Players     int
}

// ComputeBaseline averages adjusted PPG over an already qualified population.
func ComputeBaseline(qualified []PlayerAggregate) (Baseline, error) {
	if len(qualified) == 0 {
		return Baseline{}, ErrEmptyPopulation
	}
	var sum float64
	for _, p := range qualified {
		sum += p.AdjustedPPG
	}
	b := Baseline{
		AdjustedPPG: sum / float64(len(qualified)),
		Players:     len(qualified),
	}
	if !positive(b.AdjustedPPG) {
		return Baseline{}, &DataIntegrityError{Reason: "league adjusted PPG is not a positive number"}
	}
	return b, nil
}

// Computed reports whether b came from ComputeBaseline.
func (b Baseline) Computed() bool {
	return b.Players > 0 && b.AdjustedPPG > 0
}

// Scale converts adjusted points into Points+ (100 = league average). The
// result is unrounded. Calling Scale on an uncomputed baseline panics with an
// *OrderingViolation.
func (b Baseline) Scale(adjusted float64) float64 {
	if !b.Computed() {
		panic(&OrderingViolation{Stage: "scale", Detail: "league baseline not computed"})
	}
	return adjusted / b.AdjustedPPG * 100
}
