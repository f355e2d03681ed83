package obvy

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal is the attached prometheus registry for eventide.
// Every Rec method is safe on a nil receiver so views built
// without stats (tests, replay) need no guards.
type StatsInternal struct {
	Registry   *prometheus.Registry
	Ingested   prometheus.Counter
	Trials     prometheus.Counter
	Dropped    prometheus.Counter
	OutOfOrder prometheus.Counter
	NonNumeric prometheus.Counter
	Evicted    prometheus.Counter
	WorkingSet prometheus.Gauge
	TickTimer  prometheus.Histogram
	PollTimer  prometheus.Histogram
	WWW        *prometheus.CounterVec
}

func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &StatsInternal{
		Registry: reg,
		Ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_events_ingested_total",
			Help: "Events accepted into the working set",
		}),
		Trials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_trials_ingested_total",
			Help: "Trial outcome records accepted",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_deliveries_dropped_total",
			Help: "Malformed deliveries skipped during ingestion",
		}),
		OutOfOrder: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_events_out_of_order_total",
			Help: "Events older than the last stored event of the same name",
		}),
		NonNumeric: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_values_non_numeric_total",
			Help: "Event values replaced by the neutral value",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventide_events_evicted_total",
			Help: "Events evicted from the working set",
		}),
		WorkingSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventide_working_set_events",
			Help: "Events currently held in the working set",
		}),
		TickTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventide_tick_duration_seconds",
			Help:    "Time to evict and compute one frame",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		PollTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventide_poll_duration_seconds",
			Help:    "Time to fetch and ingest one upstream poll",
			Buckets: prometheus.DefBuckets,
		}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventide_http_requests_total",
			Help: "API requests by status code and method",
		}, []string{"code", "method"}),
	}

	reg.MustRegister(s.Ingested, s.Trials, s.Dropped, s.OutOfOrder, s.NonNumeric,
		s.Evicted, s.WorkingSet, s.TickTimer, s.PollTimer, s.WWW)
	return s
}

// Handler serves the registry in the prometheus exposition format
func (s *StatsInternal) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

// RecIngest records the counts from one ingestion batch
func (s *StatsInternal) RecIngest(accepted, trials, dropped, outOfOrder, nonNumeric, evicted int) {
	if s == nil {
		return
	}
	s.Ingested.Add(float64(accepted))
	s.Trials.Add(float64(trials))
	s.Dropped.Add(float64(dropped))
	s.OutOfOrder.Add(float64(outOfOrder))
	s.NonNumeric.Add(float64(nonNumeric))
	s.Evicted.Add(float64(evicted))
}

func (s *StatsInternal) RecEvicted(n int) {
	if s == nil {
		return
	}
	s.Evicted.Add(float64(n))
}

func (s *StatsInternal) RecWorkingSet(n int) {
	if s == nil {
		return
	}
	s.WorkingSet.Set(float64(n))
}

func (s *StatsInternal) RecTickTimer(seconds float64) {
	if s == nil {
		return
	}
	s.TickTimer.Observe(seconds)
}

func (s *StatsInternal) RecPollTimer(seconds float64) {
	if s == nil {
		return
	}
	s.PollTimer.Observe(seconds)
}

func (s *StatsInternal) RecWWW(code, method string) {
	if s == nil {
		return
	}
	s.WWW.WithLabelValues(code, method).Inc()
}
