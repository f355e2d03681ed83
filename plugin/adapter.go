package plugin

/*

	The Adapter sits aside /eventide/
	Contains core interfaces for Plugin

*/

import (
	"encoding/json"

	Et "github.com/maroda/eventide/types"
)

// ValueExtractor turns a raw event payload into the numeric value stored
// with the event. An ID or Type for the extractor that is descriptive of
// what it does is returned by Type.
type ValueExtractor interface {
	Extract(name string, raw json.RawMessage, timestamp float64) (float64, error)
	Type() string // Unique ID for the extractor
}

// OutputAdapter can be used to define a place for ingested events to go,
// event-by-event or in batches if supported by the output type.
// The engine never reads an output back, it is an archive sink.
type OutputAdapter interface {
	WriteEvent(ev *Et.Event) error                      // Write singleton event
	WriteBatch(evs []*Et.Event) error                   // Write batches of events
	QueryRange(start, end float64) ([]*Et.Event, error) // Time range query tool
	Flush() error                                       // Flush any buffered data
	Close() error                                       // Close the adapter and release resources
	Type() string                                       // ID for output
}
