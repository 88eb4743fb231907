// Package recovery gates live order-book updates on snapshot receipt,
// implementing the Empty -> Recovered -> Awaiting-Snapshot -> Recovered
// state machine this feed requires after any sequence gap.
package recovery

import (
	"errors"

	"github.com/brightline-markets/feedcore/internal/decoder"
	"github.com/brightline-markets/feedcore/internal/orderbook"
	"github.com/brightline-markets/feedcore/internal/protocol"
)

// ErrNeedsRecovery is returned by ApplyUpdate while the manager is
// awaiting a snapshot. It is an expected control signal, not a fatal
// error: callers should request a snapshot and retry once one arrives.
var ErrNeedsRecovery = errors.New("recovery: needs snapshot before further updates")

// Manager owns a book and gates access to it behind a snapshot-recovery
// flag.
type Manager struct {
	book          *orderbook.Book
	needsRecovery bool
	hasLast       bool
	lastApplied   uint32
}

// New returns a Manager over a fresh book. The manager starts in the
// Empty state: needs_recovery is set until the first snapshot arrives.
func New() *Manager {
	return &Manager{book: orderbook.New(), needsRecovery: true}
}

// Book returns the manager's owned book.
func (m *Manager) Book() *orderbook.Book { return m.book }

// NeedsRecovery reports whether incremental updates are currently gated.
func (m *Manager) NeedsRecovery() bool { return m.needsRecovery }

// LastApplied returns the most recently applied sequence number and
// whether any has been applied yet.
func (m *Manager) LastApplied() (seq uint32, ok bool) { return m.lastApplied, m.hasLast }

// MarkGap forces the manager into Awaiting-Snapshot, e.g. because an
// upstream gap detector observed a missing range this manager hasn't
// itself seen yet.
func (m *Manager) MarkGap() {
	m.needsRecovery = true
}

// ApplySnapshot installs view as the book's full state and clears the
// recovery flag if the snapshot is not stale. The first-ever snapshot
// always succeeds and establishes the high-water mark.
func (m *Manager) ApplySnapshot(view decoder.View) error {
	if view.MessageType() != protocol.MsgSnapshot {
		return errors.New("recovery: ApplySnapshot requires a Snapshot view")
	}
	seq := view.Sequence()
	if m.hasLast && seq < m.lastApplied {
		return errors.New("recovery: stale snapshot")
	}
	m.book.ApplySnapshot(view)
	m.lastApplied = seq
	m.hasLast = true
	m.needsRecovery = false
	return nil
}

// ApplyUpdate is the gated entry point for incremental messages. It
// refuses with ErrNeedsRecovery while awaiting a snapshot, and on a
// sequence gap transitions into Awaiting-Snapshot and drops the message
// that revealed the gap (its content is unknown to be consistent with
// whatever is about to arrive in the snapshot).
func (m *Manager) ApplyUpdate(view decoder.View) (orderbook.Outcome, error) {
	if m.needsRecovery {
		return orderbook.Outcome{}, ErrNeedsRecovery
	}

	seq := view.Sequence()
	if m.hasLast && seq > m.lastApplied+1 {
		m.needsRecovery = true
		return orderbook.Outcome{}, ErrNeedsRecovery
	}

	outcome, err := m.book.Apply(view)
	if err != nil {
		return outcome, err
	}
	if !m.hasLast || seq > m.lastApplied {
		m.lastApplied = seq
		m.hasLast = true
	}
	return outcome, nil
}
