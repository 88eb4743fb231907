package recovery

import (
	"errors"
	"testing"

	"github.com/brightline-markets/feedcore/internal/decoder"
	"github.com/brightline-markets/feedcore/internal/protocol"
)

func addOrderView(t *testing.T, seq uint32, f protocol.AddOrderFields) decoder.View {
	t.Helper()
	buf := make([]byte, protocol.SizeAddOrder)
	protocol.PutHeader(buf, protocol.MsgAddOrder, protocol.SizeAddOrder, seq)
	protocol.PutAddOrder(buf, f)
	v, _, err := decoder.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func snapshotView(t *testing.T, seq uint32) decoder.View {
	t.Helper()
	length, ok := protocol.SnapshotRecordLength(0, 0)
	if !ok {
		t.Fatal("expected valid length")
	}
	buf := make([]byte, length)
	protocol.PutHeader(buf, protocol.MsgSnapshot, uint16(len(buf)), seq)
	protocol.PutSnapshotCounts(buf, 0, 0)
	v, _, err := decoder.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// S6 — Recovery gate.
func TestS6RecoveryGate(t *testing.T) {
	m := New()

	_, err := m.ApplyUpdate(addOrderView(t, 1, protocol.AddOrderFields{OrderID: 1, Price: 1, Quantity: 1, Side: protocol.SideBid}))
	if !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("expected NeedsRecovery on empty manager, got %v", err)
	}

	if err := m.ApplySnapshot(snapshotView(t, 100)); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	if m.NeedsRecovery() {
		t.Fatal("expected Recovered after snapshot")
	}

	_, err = m.ApplyUpdate(addOrderView(t, 101, protocol.AddOrderFields{OrderID: 1, Price: 1, Quantity: 1, Side: protocol.SideBid}))
	if err != nil {
		t.Fatalf("apply_update at seq 101: %v", err)
	}

	_, err = m.ApplyUpdate(addOrderView(t, 103, protocol.AddOrderFields{OrderID: 2, Price: 1, Quantity: 1, Side: protocol.SideBid}))
	if !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("expected gap-triggered NeedsRecovery at seq 103, got %v", err)
	}

	_, err = m.ApplyUpdate(addOrderView(t, 104, protocol.AddOrderFields{OrderID: 3, Price: 1, Quantity: 1, Side: protocol.SideBid}))
	if !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("expected continued NeedsRecovery, got %v", err)
	}

	if err := m.ApplySnapshot(snapshotView(t, 104)); err != nil {
		t.Fatalf("recovery snapshot: %v", err)
	}
	if m.NeedsRecovery() {
		t.Fatal("expected Recovered after second snapshot")
	}
}

// Recovery gating: in Awaiting-Snapshot, apply_update must not mutate the
// underlying book.
func TestApplyUpdateDoesNotMutateBookWhileAwaiting(t *testing.T) {
	m := New()
	m.MarkGap()
	before := m.Book().LenOrders()

	_, err := m.ApplyUpdate(addOrderView(t, 1, protocol.AddOrderFields{OrderID: 1, Price: 1, Quantity: 1, Side: protocol.SideBid}))
	if !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("expected NeedsRecovery, got %v", err)
	}
	if after := m.Book().LenOrders(); after != before {
		t.Fatalf("book mutated while awaiting recovery: before=%d after=%d", before, after)
	}
}

func TestMarkGapForcesAwaitingState(t *testing.T) {
	m := New()
	if err := m.ApplySnapshot(snapshotView(t, 1)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	m.MarkGap()
	if !m.NeedsRecovery() {
		t.Fatal("expected needs_recovery after MarkGap")
	}
}
