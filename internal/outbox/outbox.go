// Package outbox durably tracks pending "a snapshot is needed for venue X,
// symbol Y" signals so that a recovery request is never silently dropped
// by a process restart between the moment a gap is detected and the
// moment a downstream snapshot requester has actually sent the request.
//
// This is deliberately not a mechanism for persisting order-book state:
// the core's order book never touches disk (a non-goal). It durably
// records only the fact that recovery is pending, the same way a
// production matching engine's exit-outbox durably records that an order
// needs to be forwarded downstream before it is safe to forget about it.
// Grounded on that engine's pebble-backed outbox (infra/wal/exit/wal.go):
// same State/New/Sent/Acked/Failed lifecycle and binary record encoding,
// re-keyed from order_id to a per-request UUID whose record names the
// (venue, symbol) that needs a snapshot.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// State is the lifecycle stage of a pending snapshot request.
type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one durable snapshot-request entry.
type Record struct {
	ID          string
	Venue       string
	Symbol      string
	State       State
	Retries     uint32
	LastAttempt int64
}

// Outbox is a pebble-backed durable queue of pending snapshot requests.
type Outbox struct {
	db *pebble.DB
}

// Open opens (or creates) the outbox database at dir.
func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{DisableWAL: false})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error { return o.db.Close() }

// RequestSnapshot records a new pending snapshot request for
// (venue, symbol) and returns its durable ID.
func (o *Outbox) RequestSnapshot(venue, symbol string) (string, error) {
	id := uuid.NewString()
	rec := Record{ID: id, Venue: venue, Symbol: symbol, State: StateNew}
	if err := o.db.Set(keyFor(id), encode(rec), pebble.Sync); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateState transitions record id to state, recording the attempt time
// and retry count.
func (o *Outbox) UpdateState(id string, state State, retries uint32) error {
	rec, err := o.Get(id)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(id), encode(rec), pebble.Sync)
}

// Delete removes a record, typically after it reaches StateAcked.
func (o *Outbox) Delete(id string) error {
	return o.db.Delete(keyFor(id), pebble.Sync)
}

// Get returns the current record for id.
func (o *Outbox) Get(id string) (Record, error) {
	val, closer, err := o.db.Get(keyFor(id))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decode(id, val)
}

// ScanByState iterates every record currently in state, invoking fn for
// each. Used by the broadcaster to find work.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id := string(bytes.TrimPrefix(iter.Key(), []byte(keyPrefix)))
		rec, err := decode(id, iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

const keyPrefix = "snapshot-request/"

func keyFor(id string) []byte {
	return []byte(keyPrefix + id)
}

// encode serializes a Record as:
// [state:1][retries:4][lastAttempt:8][venueLen:2][venue][symbolLen:2][symbol]
func encode(r Record) []byte {
	buf := make([]byte, 0, 1+4+8+2+len(r.Venue)+2+len(r.Symbol))
	buf = append(buf, byte(r.State))

	var tmp [8]byte
	binary.BigEndian.PutUint32(tmp[:4], r.Retries)
	buf = append(buf, tmp[:4]...)
	binary.BigEndian.PutUint64(tmp[:8], uint64(r.LastAttempt))
	buf = append(buf, tmp[:8]...)

	var tmp2 [2]byte
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(r.Venue)))
	buf = append(buf, tmp2[:]...)
	buf = append(buf, r.Venue...)
	binary.BigEndian.PutUint16(tmp2[:], uint16(len(r.Symbol)))
	buf = append(buf, tmp2[:]...)
	buf = append(buf, r.Symbol...)
	return buf
}

func decode(id string, b []byte) (Record, error) {
	if len(b) < 1+4+8+2 {
		return Record{}, errors.New("outbox: invalid record length")
	}
	state := State(b[0])
	retries := binary.BigEndian.Uint32(b[1:5])
	lastAttempt := int64(binary.BigEndian.Uint64(b[5:13]))

	off := 13
	venueLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if off+venueLen+2 > len(b) {
		return Record{}, fmt.Errorf("outbox: truncated venue field")
	}
	venue := string(b[off : off+venueLen])
	off += venueLen

	symbolLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if off+symbolLen > len(b) {
		return Record{}, fmt.Errorf("outbox: truncated symbol field")
	}
	symbol := string(b[off : off+symbolLen])

	return Record{
		ID:          id,
		Venue:       venue,
		Symbol:      symbol,
		State:       state,
		Retries:     retries,
		LastAttempt: lastAttempt,
	}, nil
}
