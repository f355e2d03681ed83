package eventide

import (
	Et "github.com/maroda/eventide/types"
)

// ProjectPoints filters each PointSpec's occurrences to the visible window
// and maps them into plot coordinates, preserving stored order.
func ProjectPoints(es *EventStore, specs []Et.PointSpec, ws Et.WindowState, vm ViewportMapper) []Et.PointSeries {
	series := make([]Et.PointSeries, 0, len(specs))
	lastVisible := ws.VisibleTrialFirst + ws.VisibleTrialCount
	trialMode := vm.Trials.Enabled()

	for _, spec := range specs {
		points := make([]Et.Point, 0)
		for _, ev := range es.Query(spec.EventName) {
			if ev.Timestamp < ws.VisibleTimeMin || ev.Timestamp > ws.VisibleTimeMax {
				continue
			}

			y := spec.YPosition
			row := vm.TrialRow(ev.Timestamp)
			if trialMode {
				if row < ws.VisibleTrialFirst || row >= lastVisible {
					continue
				}
				y += float64(row)
			}

			points = append(points, Et.Point{
				X:     vm.ToRelativeTime(ev.Timestamp),
				Y:     y,
				Trial: row,
			})
		}
		series = append(series, Et.PointSeries{Spec: spec, Points: points})
	}

	return series
}
