package eventide

import (
	"math"

	Et "github.com/maroda/eventide/types"
)

// WindowPolicy turns the configured window sizes into a visible range
type WindowPolicy struct {
	TimeWindowSeconds float64 // width of the sliding time window
	MaxTrials         int     // rolling cap on trial rows, 0 = unlimited
}

// VisibleTrialRange gives the first visible trial row and how many are shown
func VisibleTrialRange(total, maxTrials int, enabled bool) (int, int) {
	switch {
	case !enabled:
		return 0, 1
	case maxTrials > 0 && total > maxTrials:
		return total - maxTrials, maxTrials
	default:
		return 0, total
	}
}

// Compute derives the WindowState for one tick
func (wp WindowPolicy) Compute(now float64, tb *TrialBoundaryTracker) Et.WindowState {
	first, count := VisibleTrialRange(tb.TrialCount(), wp.MaxTrials, tb.Enabled())
	return Et.WindowState{
		VisibleTimeMin:    now - wp.TimeWindowSeconds,
		VisibleTimeMax:    now,
		VisibleTrialFirst: first,
		VisibleTrialCount: count,
	}
}

// EffectiveCutoff is the eviction cutoff for now.
// When trial clipping is active the start of the first visible trial
// also bounds the cutoff, so rows still on screen keep their data.
func (wp WindowPolicy) EffectiveCutoff(now float64, tb *TrialBoundaryTracker) float64 {
	ws := wp.Compute(now, tb)
	cutoff := ws.VisibleTimeMin
	if tb.Enabled() && wp.MaxTrials > 0 && ws.VisibleTrialFirst > 0 {
		if start, ok := tb.Boundary(ws.VisibleTrialFirst - 1); ok {
			cutoff = math.Min(cutoff, start)
		}
	}
	return cutoff
}
