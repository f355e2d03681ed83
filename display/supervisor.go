package eventide

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	Eo "github.com/maroda/eventide/obvy"
	Es "github.com/maroda/eventide/server"
	Et "github.com/maroda/eventide/types"
)

// Supervisor runs Task on a ticker in its own goroutine.
// A tick that overruns is superseded by the next, never queued.
type Supervisor struct {
	Name     string
	Interval time.Duration
	Task     func()
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
	mu       sync.Mutex
}

// NewTickSupervisor drives the per-tick evict and compute.
// The view and its supervisors are strongly coupled, one knows about the other.
func (v *View) NewTickSupervisor(interval time.Duration) *Supervisor {
	ts := &Supervisor{
		Name:     "tick",
		Interval: interval,
		Task:     func() { v.Tick() },
	}
	v.TickSup = ts
	return ts
}

// NewPollSupervisor fetches deliveries from an upstream source each interval
func (v *View) NewPollSupervisor(url string, interval time.Duration) *Supervisor {
	ps := &Supervisor{
		Name:     "poll",
		Interval: interval,
		Task: func() {
			if _, err := v.PollSource(url); err != nil {
				// Only log the error, keep going otherwise
				slog.Error("Failed to poll source", slog.String("url", url), slog.Any("Error", err))
			}
		},
	}
	v.PollSup = ps
	return ps
}

// Start the Supervisor, a no-op when already running
func (p *Supervisor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StopChan != nil {
		return
	}

	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	stop := make(chan struct{})
	p.StopChan = stop
	p.Ticker = time.NewTicker(interval)
	ticker := p.Ticker

	p.WG.Add(1)
	go func() {
		defer p.WG.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.run()
			case <-stop:
				return
			}
		}
	}()
}

func (p *Supervisor) run() {
	defer recoverLoop(p.Name)
	p.Task()
}

// Stop the Supervisor and wait for the running task
func (p *Supervisor) Stop() {
	p.mu.Lock()
	stop := p.StopChan
	p.StopChan = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		p.WG.Wait()
	}
}

// Restart the Supervisor
func (p *Supervisor) Restart() {
	p.Stop()
	p.Start()
}

// Running reports whether the loop is active
func (p *Supervisor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.StopChan != nil
}

// PollSource fetches one batch from url and ingests it
func (v *View) PollSource(url string) (Es.IngestReport, error) {
	start := time.Now()
	defer func() {
		v.Stats.RecPollTimer(time.Since(start).Seconds())
	}()

	batch, err := Es.FetchDeliveries(url)
	if err != nil {
		return Es.IngestReport{}, err
	}
	return v.IngestBatch(context.Background(), batch), nil
}

// IngestBatch ingests and records one batch
func (v *View) IngestBatch(ctx context.Context, batch []Et.Delivery) Es.IngestReport {
	_, span := Eo.Tracer().Start(ctx, "ingest")
	defer span.End()

	report := v.Engine.Ingest(batch)
	span.SetAttributes(
		attribute.String("batch.id", report.BatchID),
		attribute.Int("batch.size", len(batch)),
		attribute.Int("batch.accepted", report.Accepted),
		attribute.Int("batch.dropped", report.Dropped),
	)
	v.Stats.RecIngest(report.Accepted, report.Trials, report.Dropped,
		report.OutOfOrder, report.NonNumeric, report.Evicted)
	return report
}

// ReloadConfig applies a new engine configuration with polling paused
func (v *View) ReloadConfig(cfg Es.Config) {
	if v.PollSup != nil && v.PollSup.Running() {
		v.PollSup.Stop()
		defer v.PollSup.Start()
	}
	v.Engine.Configure(cfg)
	slog.Info("Configuration reloaded",
		slog.Float64("timeWindowSeconds", cfg.TimeWindowSeconds),
		slog.Int("maxTrials", cfg.MaxTrials),
		slog.String("trialBoundaryEventName", cfg.TrialBoundaryEventName))
}
