package eventide

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	Ep "github.com/maroda/eventide/plugin"
	Et "github.com/maroda/eventide/types"
)

// Engine owns the working set and derives a Frame per tick.
// MU guards Store, Trials and History: Ingest and Evict take the write
// lock, Compute the read lock.
type Engine struct {
	MU         sync.RWMutex
	Config     Config
	Policy     WindowPolicy
	Store      *EventStore
	Trials     *TrialBoundaryTracker
	History    *TrialHistory
	Extractors map[string]Ep.ValueExtractor // by event name
	Output     Ep.OutputAdapter             // optional archive sink

	Epoch time.Time
	Clock func() time.Time
}

// IngestReport summarizes one Ingest call
type IngestReport struct {
	BatchID    string `json:"batchId"`
	Accepted   int    `json:"accepted"`
	Trials     int    `json:"trials"`
	Dropped    int    `json:"dropped"`
	OutOfOrder int    `json:"outOfOrder"`
	NonNumeric int    `json:"nonNumeric"`
	Evicted    int    `json:"evicted"`
	Written    int    `json:"written"`
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		Store:   NewEventStore(),
		Trials:  NewTrialBoundaryTracker(cfg.TrialBoundaryEventName),
		History: NewTrialHistory(DefaultTrialHistoryCap),
		Clock:   time.Now,
	}
	e.Epoch = e.Clock()
	e.apply(cfg)
	return e
}

// Configure swaps in a new configuration.
// A new boundary event name restarts trial numbering.
func (e *Engine) Configure(cfg Config) {
	e.MU.Lock()
	defer e.MU.Unlock()

	if cfg.TrialBoundaryEventName != e.Trials.EventName {
		slog.Info("Trial boundary event changed, resetting trials",
			slog.String("from", e.Trials.EventName),
			slog.String("to", cfg.TrialBoundaryEventName))
		e.Trials.Reset(cfg.TrialBoundaryEventName)
	}
	e.apply(cfg)
}

func (e *Engine) apply(cfg Config) {
	cfg = cfg.Clamp()
	e.Config = cfg
	e.Policy = cfg.Policy()
	e.Extractors = make(map[string]Ep.ValueExtractor, len(cfg.ValueExtractors))
	for name, ec := range cfg.ValueExtractors {
		ex, err := Ep.ExtractorLookup(ec.Type, ec.Key)
		if err != nil {
			slog.Error("Could not load value extractor",
				slog.String("event", name),
				slog.Any("error", err))
			continue
		}
		e.Extractors[name] = ex
	}
}

// Now is the engine clock in seconds since Epoch.
// Callers read it once per tick and pass it through.
func (e *Engine) Now() float64 {
	return e.Clock().Sub(e.Epoch).Seconds()
}

// Stamp sets the wall clock of unstamped deliveries to the engine clock.
// A delivery stamped at zero keeps its zero.
func (e *Engine) Stamp(batch []Et.Delivery) []Et.Delivery {
	var now *float64
	for i := range batch {
		if batch[i].WallClock != nil {
			continue
		}
		if now == nil {
			t := e.Now()
			now = &t
		}
		batch[i].WallClock = now
	}
	return batch
}

// Ingest folds a batch into the working set and evicts against the
// batch's latest wall clock, all in one critical section.
// Unstamped deliveries take the engine clock. Bad deliveries are counted
// and skipped.
func (e *Engine) Ingest(batch []Et.Delivery) IngestReport {
	report := IngestReport{BatchID: ulid.Make().String()}
	if len(batch) == 0 {
		return report
	}
	batch = e.Stamp(batch)
	archive := make([]*Et.Event, 0, len(batch))

	e.MU.Lock()
	latest := math.Inf(-1)
	for _, d := range batch {
		latest = math.Max(latest, *d.WallClock)

		if d.Event == nil && d.Trial == nil {
			report.Dropped++
			slog.Debug("Dropping delivery", slog.Any("error", ErrNoPayload))
			continue
		}
		if d.Trial != nil {
			e.History.Append(*d.Trial)
			report.Trials++
		}
		if d.Event == nil {
			continue
		}

		ev, err := e.ingestEvent(d, &report)
		if err != nil {
			report.Dropped++
			slog.Debug("Dropping delivery", slog.Any("error", err))
			continue
		}
		archive = append(archive, ev)
	}
	report.Evicted = e.evictLocked(latest)
	out := e.Output
	e.MU.Unlock()

	if report.OutOfOrder > 0 {
		slog.Debug("Out of order events appended",
			slog.String("batch", report.BatchID),
			slog.Int("count", report.OutOfOrder))
	}

	// archive outside the lock, the output decides when to write through
	if out != nil {
		for _, ev := range archive {
			if err := out.WriteEvent(ev); err != nil {
				slog.Error("Output write failed",
					slog.String("output", out.Type()),
					slog.String("batch", report.BatchID),
					slog.Any("error", err))
				continue
			}
			report.Written++
		}
	}

	return report
}

// ingestEvent stores one event payload, the write lock must be held
func (e *Engine) ingestEvent(d Et.Delivery, report *IngestReport) (*Et.Event, error) {
	p := d.Event
	if p.Name == "" {
		return nil, ErrEmptyName
	}

	ts := *d.WallClock
	if p.Timestamp != nil {
		ts = *p.Timestamp
	}

	value, err := e.eventValue(p, ts)
	if err != nil {
		report.NonNumeric++
		slog.Debug("Using neutral value",
			slog.String("event", p.Name),
			slog.Any("error", err))
	}

	if e.Store.Ingest(p.Name, ts, value) {
		report.OutOfOrder++
	}
	if _, err := e.Trials.Observe(p.Name, ts); err != nil {
		slog.Warn("Ignoring trial boundary",
			slog.String("event", p.Name),
			slog.Any("error", err))
	}
	report.Accepted++

	return &Et.Event{Name: p.Name, Timestamp: ts, Value: value}, nil
}

// eventValue resolves the payload value.
// Numbers are used as-is, a configured extractor handles anything else,
// and what cannot be resolved becomes NeutralValue with an error.
func (e *Engine) eventValue(p *Et.EventPayload, ts float64) (*float64, error) {
	raw := bytes.TrimSpace(p.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v, nil
	}

	neutral := NeutralValue
	ex, ok := e.Extractors[p.Name]
	if !ok {
		return &neutral, ErrNonNumericValue
	}
	v, err := ex.Extract(p.Name, raw, ts)
	if err != nil {
		return &neutral, errors.Join(ErrNonNumericValue, err)
	}
	return &v, nil
}

// SetOutput attaches an archive sink, nil detaches it
func (e *Engine) SetOutput(out Ep.OutputAdapter) {
	e.MU.Lock()
	defer e.MU.Unlock()
	e.Output = out
}

// CurrentOutput is the attached archive sink, nil when there is none
func (e *Engine) CurrentOutput() Ep.OutputAdapter {
	e.MU.RLock()
	defer e.MU.RUnlock()
	return e.Output
}

// Evict applies the eviction policy for now without ingesting
func (e *Engine) Evict(now float64) int {
	e.MU.Lock()
	defer e.MU.Unlock()
	return e.evictLocked(now)
}

func (e *Engine) evictLocked(now float64) int {
	if math.IsInf(now, 0) || math.IsNaN(now) {
		return 0
	}
	// the cutoff is derived before boundaries move
	cutoff := e.Policy.EffectiveCutoff(now, e.Trials)
	evicted := e.Store.EvictOlderThan(cutoff)
	e.Trials.EvictOlderThan(cutoff)
	return evicted
}

// Compute derives every drawable for now.
// It never mutates state, so two calls with the same now agree.
func (e *Engine) Compute(now float64) Et.Frame {
	e.MU.RLock()
	defer e.MU.RUnlock()

	ws := e.Policy.Compute(now, e.Trials)
	vm := ViewportMapper{Now: now, Trials: e.Trials}

	return Et.Frame{
		Now:      now,
		Window:   ws,
		Segments: MergeTimeline(e.Store, e.Config.RegionSpecs, ws, e.Trials),
		Points:   ProjectPoints(e.Store, e.Config.PointSpecs, ws, vm),
		Rolling:  e.History.RollingSeries(e.Config.RollingWindowSize, e.Config.HistoryLength),
		Outcomes: e.History.Outcomes(e.Config.HistoryLength),
		Table:    BuildTrialTable(e.History.Records, e.Config.TableHistory, TrialFields),
	}
}

// CurrentConfig is the applied configuration
func (e *Engine) CurrentConfig() Config {
	e.MU.RLock()
	defer e.MU.RUnlock()
	return e.Config
}

// Merge adds the counts of another report, keeping this BatchID
func (r *IngestReport) Merge(o IngestReport) {
	r.Accepted += o.Accepted
	r.Trials += o.Trials
	r.Dropped += o.Dropped
	r.OutOfOrder += o.OutOfOrder
	r.NonNumeric += o.NonNumeric
	r.Evicted += o.Evicted
	r.Written += o.Written
}

// Stats is a point-in-time size of the working set
func (e *Engine) Stats() (events, boundaries, trials int) {
	e.MU.RLock()
	defer e.MU.RUnlock()
	return e.Store.Len(), len(e.Trials.Boundaries), len(e.History.Records)
}
