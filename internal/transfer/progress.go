package transfer

import "github.com/teamcutter/cellar/internal/domain"

// Stage maps a sub-phase's local [0,1] progress into the caller-visible
// [lo,hi] sub-range, so a multi-phase pipeline presents one continuous
// 0→1 sweep.
func Stage(p domain.ProgressFunc, phase string, lo, hi float64) func(float64) {
	return func(f float64) {
		if f < 0 {
			f = 0
		} else if f > 1 {
			f = 1
		}
		p.Report(phase, lo+f*(hi-lo))
	}
}
