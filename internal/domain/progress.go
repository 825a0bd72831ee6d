package domain

// ProgressFunc receives (phase, fraction) updates from a running install
// or update. fraction is in [0, 1]. Callbacks arrive on the worker
// goroutine running the pipeline; implementations must be safe to call
// from there.
type ProgressFunc func(phase string, fraction float64)

// Report calls p when non-nil.
func (p ProgressFunc) Report(phase string, fraction float64) {
	if p != nil {
		p(phase, fraction)
	}
}
