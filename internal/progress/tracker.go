package progress

import "time"

// Tracker maps segment end timestamps onto a completion percentage.
// The zero value is ready to use.
type Tracker struct {
	percent float64
}

// Update returns the percentage for a segment ending at end. ok is false when
// total is unknown (zero or negative), in which case nothing should be
// reported. The result is clamped to [0,100] and never decreases within a run.
func (t *Tracker) Update(end, total time.Duration) (percent float64, ok bool) {
	if total <= 0 {
		return t.percent, false
	}

	p := end.Seconds() / total.Seconds() * 100
	p = clamp(p, 0, 100)
	if p > t.percent {
		t.percent = p
	}
	return t.percent, true
}

// Complete forces the final value to exactly 100. Model-reported segment
// boundaries may end slightly before or after the nominal duration.
func (t *Tracker) Complete() float64 {
	t.percent = 100
	return t.percent
}

// Percent returns the last reported value.
func (t *Tracker) Percent() float64 {
	return t.percent
}

// Reset returns the tracker to 0 for a new run.
func (t *Tracker) Reset() {
	t.percent = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
