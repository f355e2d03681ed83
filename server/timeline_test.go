package eventide_test

import (
	"testing"

	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

var (
	specA = Et.RegionSpec{EventName: "A", Color: "#6495ED", Alpha: 0.3}
	specB = Et.RegionSpec{EventName: "B", Color: "#FF8800", Alpha: 0.5}
)

// assertContiguous checks the merged segments tile their range
func assertContiguous(t testing.TB, segs []Et.Segment) {
	t.Helper()
	for i, s := range segs {
		if s.EndTime <= s.StartTime {
			t.Errorf("segment %d is empty: %+v", i, s)
		}
		if i == 0 {
			continue
		}
		prev := segs[i-1]
		if prev.Trial == s.Trial && prev.EndTime != s.StartTime {
			t.Errorf("gap or overlap between %d and %d: %v -> %v", i-1, i, prev.EndTime, s.StartTime)
		}
		if prev.StartTime > s.StartTime {
			t.Errorf("segments out of order at %d", i)
		}
	}
}

func TestMergeRegionMarks(t *testing.T) {
	t.Run("Unions and sorts every region source", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {0, 5, 10}, "B": {3, 8}})
		marks := Es.MergeRegionMarks(es, []Et.RegionSpec{specA, specB})

		wantTS := []float64{0, 3, 5, 8, 10}
		wantName := []string{"A", "B", "A", "B", "A"}
		assertInt(t, len(marks), len(wantTS))
		for i, m := range marks {
			assertFloat(t, m.Timestamp, wantTS[i])
			assertString(t, m.Spec.EventName, wantName[i])
		}
	})

	t.Run("Ties keep declaration order", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {3}, "B": {3}})

		marks := Es.MergeRegionMarks(es, []Et.RegionSpec{specB, specA})
		assertString(t, marks[0].Spec.EventName, "B")
		assertString(t, marks[1].Spec.EventName, "A")
	})

	t.Run("Names that are not region sources are ignored", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {1}, "lick": {2}})
		marks := Es.MergeRegionMarks(es, []Et.RegionSpec{specA})
		assertInt(t, len(marks), 1)
	})
}

func TestMergeTimeline(t *testing.T) {
	t.Run("A and B with a six second window", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {0, 5, 10}, "B": {3, 8}})
		tb := Es.NewTrialBoundaryTracker("")
		ws := Es.WindowPolicy{TimeWindowSeconds: 6}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA, specB}, ws, tb)
		assertInt(t, len(segs), 3)

		first := segs[0]
		assertFloat(t, first.StartTime, 4)
		assertFloat(t, first.EndTime, 5)
		assertString(t, first.Style.EventName, "B")
		assertString(t, first.Style.Color, "#FF8800")

		assertString(t, segs[1].Style.EventName, "A")
		assertFloat(t, segs[1].StartTime, 5)
		assertFloat(t, segs[1].EndTime, 8)
		assertFloat(t, segs[2].EndTime, 10)
		assertContiguous(t, segs)
	})

	t.Run("No region specs gives no segments", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {1}})
		tb := Es.NewTrialBoundaryTracker("")
		ws := Es.WindowPolicy{TimeWindowSeconds: 6}.Compute(10, tb)

		segs := Es.MergeTimeline(es, nil, ws, tb)
		if segs == nil {
			t.Error("expected an empty slice, got nil")
		}
		assertInt(t, len(segs), 0)
	})

	t.Run("Empty store gives no segments", func(t *testing.T) {
		tb := Es.NewTrialBoundaryTracker("")
		ws := Es.WindowPolicy{TimeWindowSeconds: 6}.Compute(10, tb)

		segs := Es.MergeTimeline(Es.NewEventStore(), []Et.RegionSpec{specA}, ws, tb)
		assertInt(t, len(segs), 0)
	})

	t.Run("Last region runs to now", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {7}})
		tb := Es.NewTrialBoundaryTracker("")
		ws := Es.WindowPolicy{TimeWindowSeconds: 6}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA}, ws, tb)
		assertInt(t, len(segs), 1)
		assertFloat(t, segs[0].StartTime, 7)
		assertFloat(t, segs[0].EndTime, 10)
	})

	t.Run("Equal timestamps leave one owner", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {6}, "B": {6}})
		tb := Es.NewTrialBoundaryTracker("")
		ws := Es.WindowPolicy{TimeWindowSeconds: 6}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA, specB}, ws, tb)
		assertInt(t, len(segs), 1)
		assertString(t, segs[0].Style.EventName, "B")
	})

	t.Run("Segments split at trial boundaries", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {2}})
		tb := makeTracker(t, 6)
		ws := Es.WindowPolicy{TimeWindowSeconds: 10}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA}, ws, tb)
		assertInt(t, len(segs), 2)
		assertInt(t, segs[0].Trial, 0)
		assertFloat(t, segs[0].StartTime, 2)
		assertFloat(t, segs[0].EndTime, 6)
		assertInt(t, segs[1].Trial, 1)
		assertFloat(t, segs[1].StartTime, 6)
		assertFloat(t, segs[1].EndTime, 10)
	})

	t.Run("Region starting on a boundary belongs to the new row", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {6}})
		tb := makeTracker(t, 6)
		ws := Es.WindowPolicy{TimeWindowSeconds: 10}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA}, ws, tb)
		assertInt(t, len(segs), 1)
		assertInt(t, segs[0].Trial, 1)
	})

	t.Run("Rows outside maxTrials are clipped", func(t *testing.T) {
		es := makeStore(map[string][]float64{"A": {1}, "B": {5}})
		tb := makeTracker(t, 2, 4, 6)
		ws := Es.WindowPolicy{TimeWindowSeconds: 10, MaxTrials: 2}.Compute(10, tb)

		segs := Es.MergeTimeline(es, []Et.RegionSpec{specA, specB}, ws, tb)
		for _, s := range segs {
			if s.Trial < 2 {
				t.Errorf("row %d should be clipped: %+v", s.Trial, s)
			}
		}
		// A owns [4,5) in trial 2, B owns [5,6) then [6,10)
		assertInt(t, len(segs), 3)
		assertString(t, segs[0].Style.EventName, "A")
		assertFloat(t, segs[0].StartTime, 4)
		assertInt(t, segs[2].Trial, 3)
		assertContiguous(t, segs)
	})
}
