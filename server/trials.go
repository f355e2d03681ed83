package eventide

import (
	"fmt"
	"sort"
)

// TrialBoundaryTracker derives trial-start instants from a boundary event.
// Trial i spans [boundary(i-1), boundary(i)), trial 0 is everything
// before the first boundary. Indices are absolute: Offset counts the
// boundaries evicted from the front, so rows never renumber.
type TrialBoundaryTracker struct {
	EventName  string    // boundary event name, empty disables trial mode
	Boundaries []float64 // strictly increasing
	Offset     int       // boundaries evicted so far
}

func NewTrialBoundaryTracker(name string) *TrialBoundaryTracker {
	return &TrialBoundaryTracker{
		EventName:  name,
		Boundaries: make([]float64, 0),
	}
}

// Enabled reports whether trial mode is active
func (tb *TrialBoundaryTracker) Enabled() bool {
	return tb != nil && tb.EventName != ""
}

// Observe records ts as a new boundary when name is the boundary event.
// A boundary that does not advance past the last one is rejected so the
// sequence stays strictly increasing.
func (tb *TrialBoundaryTracker) Observe(name string, ts float64) (bool, error) {
	if !tb.Enabled() || name != tb.EventName {
		return false, nil
	}
	if n := len(tb.Boundaries); n > 0 && ts <= tb.Boundaries[n-1] {
		return false, fmt.Errorf("boundary %f after %f: %w", ts, tb.Boundaries[n-1], ErrBoundaryNotIncreasing)
	}
	tb.Boundaries = append(tb.Boundaries, ts)
	return true, nil
}

// TrialIndexOf returns the trial containing ts, using [boundary, next).
// Timestamps older than the earliest retained boundary map to the
// earliest retained row.
func (tb *TrialBoundaryTracker) TrialIndexOf(ts float64) int {
	if !tb.Enabled() {
		return 0
	}
	// first index whose boundary is after ts, i.e. the count of boundaries <= ts
	i := sort.Search(len(tb.Boundaries), func(i int) bool {
		return tb.Boundaries[i] > ts
	})
	return tb.Offset + i
}

// TrialCount is the number of trial rows seen so far, including the open one
func (tb *TrialBoundaryTracker) TrialCount() int {
	if !tb.Enabled() {
		return 1
	}
	return tb.Offset + len(tb.Boundaries) + 1
}

// Boundary returns the absolute boundary i, which ends trial i.
// The bool is false when i was evicted or has not happened yet.
func (tb *TrialBoundaryTracker) Boundary(i int) (float64, bool) {
	if tb == nil {
		return 0, false
	}
	j := i - tb.Offset
	if j < 0 || j >= len(tb.Boundaries) {
		return 0, false
	}
	return tb.Boundaries[j], true
}

// EvictOlderThan applies the same carry-in rule as the EventStore:
// the last boundary before cutoff is kept so rows stay continuous.
// Returns the number of boundaries dropped.
func (tb *TrialBoundaryTracker) EvictOlderThan(cutoff float64) int {
	if !tb.Enabled() || len(tb.Boundaries) <= 1 {
		return 0
	}
	keep := sort.Search(len(tb.Boundaries), func(i int) bool {
		return tb.Boundaries[i] >= cutoff
	}) - 1
	if keep <= 0 {
		return 0
	}
	tb.Boundaries = tb.Boundaries[keep:]
	tb.Offset += keep
	return keep
}

// Reset drops all boundaries and switches the boundary event name
func (tb *TrialBoundaryTracker) Reset(name string) {
	tb.EventName = name
	tb.Boundaries = make([]float64, 0)
	tb.Offset = 0
}
