package eventide

import (
	"math"
	"sort"

	Et "github.com/maroda/eventide/types"
)

// RegionMark is one region-tagged occurrence on the merged timeline
type RegionMark struct {
	Timestamp float64
	Spec      Et.RegionSpec
}

// MergeRegionMarks unions every stored occurrence of every region source
// into one list sorted by timestamp. The sort is stable and the specs are
// walked in declaration order, so ties keep declaration order.
func MergeRegionMarks(es *EventStore, specs []Et.RegionSpec) []RegionMark {
	marks := make([]RegionMark, 0)
	for _, spec := range specs {
		for _, ev := range es.Query(spec.EventName) {
			marks = append(marks, RegionMark{
				Timestamp: ev.Timestamp,
				Spec:      spec,
			})
		}
	}

	sort.SliceStable(marks, func(a, b int) bool {
		return marks[a].Timestamp < marks[b].Timestamp
	})
	return marks
}

// MergeTimeline builds the mutually exclusive segment sequence for a tick.
// Each mark owns the interval up to the next mark, the last one runs to
// the window's right edge. Segments are clipped to the time window, then
// split per trial row and clipped to the visible rows in trial mode.
func MergeTimeline(es *EventStore, specs []Et.RegionSpec, ws Et.WindowState, tb *TrialBoundaryTracker) []Et.Segment {
	segments := make([]Et.Segment, 0)
	if len(specs) == 0 {
		return segments
	}

	marks := MergeRegionMarks(es, specs)
	for i, mark := range marks {
		end := ws.VisibleTimeMax
		if i+1 < len(marks) {
			end = marks[i+1].Timestamp
		}

		start := math.Max(mark.Timestamp, ws.VisibleTimeMin)
		end = math.Min(end, ws.VisibleTimeMax)
		if end <= start {
			continue
		}

		if !tb.Enabled() {
			segments = append(segments, Et.Segment{
				StartTime: start,
				EndTime:   end,
				Style:     mark.Spec,
			})
			continue
		}

		segments = splitByTrial(segments, start, end, mark.Spec, ws, tb)
	}

	return segments
}

// splitByTrial emits one sub-segment per trial row crossed by [start, end),
// keeping only rows inside the visible trial range.
func splitByTrial(segments []Et.Segment, start, end float64, spec Et.RegionSpec, ws Et.WindowState, tb *TrialBoundaryTracker) []Et.Segment {
	lastVisible := ws.VisibleTrialFirst + ws.VisibleTrialCount
	trial := tb.TrialIndexOf(start)
	current := start

	for current < end {
		trialEnd, ok := tb.Boundary(trial)
		if !ok {
			trialEnd = math.Inf(1)
		}
		next := math.Min(trialEnd, end)

		if trial >= ws.VisibleTrialFirst && trial < lastVisible {
			segments = append(segments, Et.Segment{
				StartTime: current,
				EndTime:   next,
				Trial:     trial,
				Style:     spec,
			})
		}

		current = next
		trial++
	}

	return segments
}
