package eventide

import (
	"sort"

	Et "github.com/maroda/eventide/types"
)

// Events is the ordered occurrence buffer for one name
type Events []Et.Event

// EventStore keeps one arrival-ordered buffer per event name.
// Buffers are only mutated by Ingest and EvictOlderThan.
type EventStore struct {
	Series map[string]Events
}

// NewEventStore returns an empty store
func NewEventStore() *EventStore {
	return &EventStore{
		Series: make(map[string]Events),
	}
}

// Ingest appends the occurrence to its name's buffer.
// The returned bool is true when ts is older than the last stored timestamp;
// the event is still appended as-is.
func (es *EventStore) Ingest(name string, ts float64, value *float64) bool {
	seq := es.Series[name]
	outOfOrder := len(seq) > 0 && ts < seq[len(seq)-1].Timestamp
	es.Series[name] = append(seq, Et.Event{
		Name:      name,
		Timestamp: ts,
		Value:     value,
	})
	return outOfOrder
}

// EvictOlderThan drops the front run of every buffer that is older than
// cutoff, keeping the last element of that run as the carry-in sample.
// Elements at or after the cutoff are never dropped, so a late arrival
// stored behind in-window events waits until they age out.
// Returns the number of evicted events.
func (es *EventStore) EvictOlderThan(cutoff float64) int {
	evicted := 0
	for name, seq := range es.Series {
		keep := carryInIndex(seq, cutoff)
		if keep <= 0 {
			continue
		}

		// the next growing append reallocates with only the live tail
		es.Series[name] = seq[keep:]
		evicted += keep
	}
	return evicted
}

// carryInIndex is the index of the last element in the leading run of
// elements older than cutoff, -1 when the buffer starts at or after it.
// The scan stops at the first element not older, so the cost is the
// number of evicted elements plus one.
func carryInIndex(seq Events, cutoff float64) int {
	i := 0
	for i < len(seq) && seq[i].Timestamp < cutoff {
		i++
	}
	return i - 1
}

// Query returns the buffer for name, nil when the name was never seen.
// Callers must not modify the returned slice.
func (es *EventStore) Query(name string) Events {
	return es.Series[name]
}

// Names lists every stored event name in sorted order
func (es *EventStore) Names() []string {
	names := make([]string, 0, len(es.Series))
	for name := range es.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the total number of stored events
func (es *EventStore) Len() int {
	total := 0
	for _, seq := range es.Series {
		total += len(seq)
	}
	return total
}
