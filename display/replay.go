package eventide

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

// LoadReplayFile reads a JSON lines delivery recording
func LoadReplayFile(filename string) ([]Et.Delivery, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	batch, err := Es.ParseDeliveryLines(file)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", filename, err)
	}
	return batch, nil
}

// ReplayClock points the engine clock at the first recorded wall clock
// and runs it at speed. It must be called before anything reads the clock.
func (v *View) ReplayClock(batch []Et.Delivery, speed float64) {
	if speed <= 0 {
		speed = 1
	}
	first := 0.0
	for _, d := range batch {
		if d.WallClock != nil {
			first = *d.WallClock
			break
		}
	}

	start := time.Now()
	v.Engine.Epoch = start.Add(-time.Duration(first * float64(time.Second)))
	v.Engine.Clock = func() time.Time {
		return start.Add(time.Duration(float64(time.Since(start)) * speed))
	}
}

// sameWall reports whether two deliveries were recorded at the same wall clock
func sameWall(a, b Et.Delivery) bool {
	if a.WallClock == nil || b.WallClock == nil {
		return a.WallClock == nil && b.WallClock == nil
	}
	return *a.WallClock == *b.WallClock
}

// Replay ingests recorded deliveries as the engine clock reaches them.
// Deliveries sharing a wall clock are ingested as one batch and recorded
// order is kept. Unstamped deliveries go in without waiting.
// A speed of zero or less ingests everything at once.
func (v *View) Replay(ctx context.Context, batch []Et.Delivery, speed float64) (Es.IngestReport, error) {
	total := Es.IngestReport{}
	if speed <= 0 {
		report := v.IngestBatch(ctx, batch)
		total.BatchID = report.BatchID
		total.Merge(report)
		return total, nil
	}

	for i := 0; i < len(batch); {
		j := i + 1
		for j < len(batch) && sameWall(batch[i], batch[j]) {
			j++
		}

		wait := 0.0
		if wall := batch[i].WallClock; wall != nil {
			wait = (*wall - v.Engine.Now()) / speed
		}
		if wait > 0 {
			timer := time.NewTimer(time.Duration(wait * float64(time.Second)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return total, ctx.Err()
			case <-timer.C:
			}
		}

		report := v.IngestBatch(ctx, batch[i:j])
		if total.BatchID == "" {
			total.BatchID = report.BatchID
		}
		total.Merge(report)
		i = j
	}

	slog.Info("Replay finished",
		slog.Int("deliveries", len(batch)),
		slog.Int("accepted", total.Accepted),
		slog.Int("dropped", total.Dropped))
	return total, nil
}

// StartReplay plays a recording into a fresh engine, on the terminal view
// or on the web surface only
func StartReplay(cfg Es.Config, rc Es.RuntimeConfig, filename string, speed float64, tui bool) error {
	batch, err := LoadReplayFile(filename)
	if err != nil {
		slog.Error("Could not load replay", slog.String("file", filename), slog.Any("Error", err))
		return err
	}

	var view *View
	if tui {
		screen, err := GetTTY()
		if err != nil {
			return err
		}
		if view, err = NewEngineView(cfg, rc, screen); err != nil {
			screen.Fini()
			return err
		}
	} else {
		if view, err = NewEngineView(cfg, rc, nil); err != nil {
			return err
		}
	}
	view.ReplayClock(batch, speed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if _, err := view.Replay(ctx, batch, speed); err != nil {
			slog.Debug("Replay stopped", slog.Any("error", err))
		}
	}()

	if tui {
		return view.runTUI()
	}

	view.Start()
	defer func() {
		if err := view.Shutdown(context.Background()); err != nil {
			slog.Error("Shutdown failed", slog.Any("Error", err))
		}
	}()
	return view.Serve(rc.Addr)
}
