package eventide_test

import (
	"context"
	"errors"
	"testing"
	"time"

	Md "github.com/maroda/eventide/display"
	Et "github.com/maroda/eventide/types"
)

func TestLoadReplayFile(t *testing.T) {
	recording := `# session 12
{"wallClock": 1, "event": {"name": "A"}}

{"wallClock": 2, "event": {"name": "B", "value": 0.5}}
{"wallClock": 2, "trial": {"trial": {"p_reward_left": 0.8}, "is_right_choice": null, "is_rewarded": false}}
`
	file, cleanup := createTempFile(t, recording)
	defer cleanup()

	batch, err := Md.LoadReplayFile(file.Name())
	assertError(t, err, nil)
	assertInt(t, len(batch), 3)
	assertFloat(t, batch[2].Trial.Trial.PRewardLeft, 0.8)

	t.Run("Missing file", func(t *testing.T) {
		_, err := Md.LoadReplayFile("/no/such/recording.jsonl")
		assertGotError(t, err)
	})
}

func TestView_Replay(t *testing.T) {
	batch := []Et.Delivery{
		event(1, "A"),
		event(1.01, "B"),
		event(1.01, "lick"),
		event(1.02, "A"),
	}

	t.Run("Speed zero ingests at once", func(t *testing.T) {
		view := makeTestView(t)
		report, err := view.Replay(context.Background(), batch, 0)
		assertError(t, err, nil)
		assertInt(t, report.Accepted, 4)

		events, _, _ := view.Engine.Stats()
		assertInt(t, events, 4)
	})

	t.Run("Paced replay follows the recorded clock", func(t *testing.T) {
		view := makeTestView(t)
		view.ReplayClock(batch, 1)

		start := time.Now()
		report, err := view.Replay(context.Background(), batch, 1)
		assertError(t, err, nil)
		assertInt(t, report.Accepted, 4)
		if report.BatchID == "" {
			t.Errorf("expected a batch id")
		}

		if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
			t.Errorf("replay finished in %v, expected the recorded spacing", elapsed)
		}
		if now := view.Engine.Now(); now < 1.02 {
			t.Errorf("engine clock at %f, expected past the last delivery", now)
		}
		got := view.Engine.Store.Query("A")
		assertFloat(t, got[1].Timestamp, 1.02)
	})

	t.Run("Cancelled replay stops early", func(t *testing.T) {
		view := makeTestView(t)
		slow := []Et.Delivery{event(1, "A"), event(100, "B")}
		view.ReplayClock(slow, 1)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		report, err := view.Replay(ctx, slow, 1)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got error %v, want deadline exceeded", err)
		}
		assertInt(t, report.Accepted, 1)
	})
}
