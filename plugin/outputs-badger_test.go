package plugin_test

import (
	"bytes"
	"testing"

	"github.com/dgraph-io/badger/v4"
	Ep "github.com/maroda/eventide/plugin"
	Et "github.com/maroda/eventide/types"
)

func TestNewBadgerOutput(t *testing.T) {
	t.Run("Creates new struct for output", func(t *testing.T) {
		got, err := Ep.NewBadgerOutput(t.TempDir(), 10)
		assertError(t, err, nil)
		defer got.Close()
		assertInt(t, got.BatchSize, 10)
	})

	t.Run("Returns Type", func(t *testing.T) {
		adapter, closedb := makeTestBadgerOutput(t)
		defer closedb()
		assertStringContains(t, adapter.Type(), "BadgerDB")
	})
}

func TestBadgerOutput_WriteEvent(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	t.Run("Buffers below batch size", func(t *testing.T) {
		err := adapter.WriteEvent(&Et.Event{Name: "Lick", Timestamp: 1})
		assertError(t, err, nil)
		assertInt(t, len(adapter.Buffer), 1)
	})

	t.Run("Flushes events for writing at batch size", func(t *testing.T) {
		// the test adapter buffer size is 5, one is already queued
		for i := 2; i <= 5; i++ {
			err := adapter.WriteEvent(&Et.Event{Name: "Lick", Timestamp: float64(i)})
			assertError(t, err, nil)
		}
		assertInt(t, len(adapter.Buffer), 0)

		got, err := adapter.QueryRange(0, 10)
		assertError(t, err, nil)
		assertInt(t, len(got), 5)
	})
}

func TestBadgerOutput_EventKey(t *testing.T) {
	ev := &Et.Event{Name: "RewardDelivered", Timestamp: 2.5}

	t.Run("Makes a key with a five letter name prefix", func(t *testing.T) {
		key := Ep.EventKey(ev)
		assertInt(t, len(key), 8+5+16)
		if !bytes.Equal(key[8:13], []byte("Rewar")) {
			t.Errorf("EventKey name = %q, want %q", key[8:13], "Rewar")
		}
	})

	t.Run("Keys for the same event are unique", func(t *testing.T) {
		if bytes.Equal(Ep.EventKey(ev), Ep.EventKey(ev)) {
			t.Errorf("EventKey returned identical keys")
		}
	})

	t.Run("Keys sort by time", func(t *testing.T) {
		early := Ep.EventKey(&Et.Event{Name: "Z", Timestamp: 1})
		late := Ep.EventKey(&Et.Event{Name: "A", Timestamp: 2})
		if bytes.Compare(early, late) >= 0 {
			t.Errorf("early key does not sort before late key")
		}
	})

	t.Run("Negative times sort before positive", func(t *testing.T) {
		past := Ep.EventKey(&Et.Event{Name: "Z", Timestamp: -5})
		recent := Ep.EventKey(&Et.Event{Name: "Z", Timestamp: -0.5})
		zero := Ep.EventKey(&Et.Event{Name: "A", Timestamp: 0})
		if bytes.Compare(past, recent) >= 0 || bytes.Compare(recent, zero) >= 0 {
			t.Errorf("negative keys are out of order")
		}
	})
}

func TestBadgerOutput_EncodeDecode(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name string
		ev   *Et.Event
	}{
		{"without value", &Et.Event{Name: "Go", Timestamp: 3}},
		{"with zero value", &Et.Event{Name: "Go", Timestamp: 3, Value: &zero}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Ep.EventEncode(tt.ev)
			assertError(t, err, nil)
			got, err := Ep.EventDecode(data)
			assertError(t, err, nil)
			if (got.Value == nil) != (tt.ev.Value == nil) {
				t.Fatalf("Value presence = %v, want %v", got.Value != nil, tt.ev.Value != nil)
			}
			assertStringContains(t, got.Name, tt.ev.Name)
		})
	}
}

func TestBadgerOutput_QueryRange(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	events := []*Et.Event{
		{Name: "Go", Timestamp: -5},
		{Name: "Go", Timestamp: -0.5},
		{Name: "Go", Timestamp: 1},
		{Name: "Go", Timestamp: 2},
		{Name: "Go", Timestamp: 3},
		{Name: "Go", Timestamp: 4},
	}
	err := adapter.WriteBatch(events)
	assertError(t, err, nil)

	tests := []struct {
		name       string
		start, end float64
		want       int
	}{
		{"everything", 0, 10, 4},
		{"inclusive edges", 2, 3, 2},
		{"nothing after", 5, 10, 0},
		{"negative edge", -1, 1, 2},
		{"only negative", -10, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adapter.QueryRange(tt.start, tt.end)
			assertError(t, err, nil)
			assertInt(t, len(got), tt.want)
		})
	}
}

// Helpers //

func makeTestBadgerOutput(t *testing.T) (*Ep.BadgerOutput, func()) {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	assertError(t, err, nil)

	adapter := &Ep.BadgerOutput{
		DB:        db,
		BatchSize: 5,
		Buffer:    make([]*Et.Event, 0, 5),
	}

	cleanup := func() {
		adapter.Close()
	}

	return adapter, cleanup
}
