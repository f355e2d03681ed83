package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Et "github.com/maroda/eventide/types"
	"github.com/oklog/ulid/v2"
)

const (
	keyTimeLen = 8
	keyNameLen = 5
	keyIDLen   = 16
)

type BadgerOutput struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Et.Event
}

// eventRecord is the stored form of an Event.
// gob drops zero values behind pointers, so the optional value is flattened.
type eventRecord struct {
	Name      string
	Timestamp float64
	Value     float64
	HasValue  bool
}

func NewBadgerOutput(path string, batchSize int) (*BadgerOutput, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerOutput failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	if batchSize < 1 {
		batchSize = 1
	}

	slog.Info("BadgerOutput opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerOutput{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Et.Event, 0, batchSize),
	}, nil
}

// WriteEvent queues up a batch of events,
// when batchsize is reached, it calls flushLocked()
// which calls WriteBatch() with the new batch
func (bo *BadgerOutput) WriteEvent(ev *Et.Event) error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	bo.Buffer = append(bo.Buffer, ev)
	if len(bo.Buffer) >= bo.BatchSize {
		return bo.flushLocked() // private Flush that does not lock
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (bo *BadgerOutput) WriteBatch(evs []*Et.Event) error {
	wb := bo.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, ev := range evs {
		k := EventKey(ev)
		v, err := EventEncode(ev)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		if err := wb.Set(k, v); err != nil {
			slog.Error("BadgerOutput failed to set key in batch",
				slog.Any("error", err),
				slog.Float64("timestamp", ev.Timestamp),
				slog.String("event", ev.Name))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerOutput failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (bo *BadgerOutput) Flush() error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	if len(bo.Buffer) == 0 {
		return nil
	}
	return bo.flushLocked()
}

// flushLocked mimics Flush without locking, called by WriteEvent
func (bo *BadgerOutput) flushLocked() error {
	err := bo.WriteBatch(bo.Buffer) // Delegate to WriteBatch
	bo.Buffer = bo.Buffer[:0]       // Clear but keep capacity
	return err
}

// Close returns a Flush error but still attempts to close
func (bo *BadgerOutput) Close() error {
	bo.MU.Lock()
	buffered := len(bo.Buffer)
	bo.MU.Unlock()

	slog.Info("BadgerOutput closing, flushing buffer",
		slog.Int("bufferSize", buffered))
	flushErr := bo.Flush()
	closeErr := bo.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerOutput failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}

	if closeErr != nil {
		slog.Error("BadgerOutput failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %w", closeErr)
	}

	slog.Info("BadgerOutput closed successfully")
	return nil
}

func (bo *BadgerOutput) Type() string { return "BadgerDB" }

// timeKey converts seconds to a big endian nanosecond prefix
// so keys are sorted chronologically by BadgerDB.
// The sign bit is flipped so negative timestamps sort before positive ones.
func timeKey(ts float64) []byte {
	key := make([]byte, keyTimeLen)
	binary.BigEndian.PutUint64(key, uint64(int64(ts*1e9))^(1<<63))
	return key
}

// EventKey creates a composite key
// timestamp + first five letters of the name + ULID
// The ULID keeps two events with the same time and prefix apart.
func EventKey(ev *Et.Event) []byte {
	key := make([]byte, 0, keyTimeLen+keyNameLen+keyIDLen)
	key = append(key, timeKey(ev.Timestamp)...)

	// Keep event name at five chars, zero padded
	name := make([]byte, keyNameLen)
	copy(name, ev.Name)
	key = append(key, name...)

	id := ulid.Make()
	return append(key, id[:]...)
}

// EventEncode serializes the event for data storage
func EventEncode(ev *Et.Event) ([]byte, error) {
	rec := eventRecord{Name: ev.Name, Timestamp: ev.Timestamp}
	if ev.Value != nil {
		rec.Value = *ev.Value
		rec.HasValue = true
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EventDecode deserializes the stored event data
func EventDecode(data []byte) (*Et.Event, error) {
	var rec eventRecord
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&rec); err != nil {
		return nil, err
	}

	ev := &Et.Event{Name: rec.Name, Timestamp: rec.Timestamp}
	if rec.HasValue {
		v := rec.Value
		ev.Value = &v
	}
	return ev, nil
}

// QueryRange retrieves events with start <= timestamp <= end
func (bo *BadgerOutput) QueryRange(start, end float64) ([]*Et.Event, error) {
	var events []*Et.Event
	stop := timeKey(end)

	// db.View() callback
	// BadgerDB provides a transaction in which to get item.Value()
	err := bo.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(timeKey(start)); it.Valid(); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key()[:keyTimeLen], stop) > 0 {
				break
			}

			// item.Value() callback
			// BadgerDB passes bytes to the anon func
			err := item.Value(func(val []byte) error {
				ev, err := EventDecode(val)
				if err != nil {
					slog.Error("BadgerOutput failed to decode event", slog.Any("error", err))
					return fmt.Errorf("event decode error: %w", err)
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				slog.Error("BadgerOutput callback failure", slog.Any("error", err))
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})

	slog.Debug("BadgerOutput QueryRange", slog.Int("count", len(events)))

	return events, err
}
