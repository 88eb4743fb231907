package protocol

import (
	"math"
	"testing"
)

func TestAddOrderRoundTrip(t *testing.T) {
	buf := make([]byte, SizeAddOrder)
	PutHeader(buf, MsgAddOrder, SizeAddOrder, 42)
	PutAddOrder(buf, AddOrderFields{OrderID: 100, Price: 10000000000, Quantity: 5, Side: SideBid})

	if ReadMsgType(buf) != MsgAddOrder {
		t.Fatalf("msg type: got %v", ReadMsgType(buf))
	}
	if ReadSequence(buf) != 42 {
		t.Fatalf("sequence: got %d", ReadSequence(buf))
	}
	f := ReadAddOrder(buf)
	if f.OrderID != 100 || f.Price != 10000000000 || f.Quantity != 5 || f.Side != SideBid {
		t.Fatalf("fields mismatch: %+v", f)
	}
}

func TestModifyOrderPaddingIsSixBytes(t *testing.T) {
	if SizeModifyOrder != 26 {
		t.Fatalf("expected 26-byte ModifyOrder record, got %d", SizeModifyOrder)
	}
	// order_id(8)+new_quantity(4) = 12 bytes of payload after the header,
	// so the remaining 26-8-12 = 6 bytes are padding, not 2.
	payloadFields := 8 + 4
	padding := SizeModifyOrder - HeaderSize - payloadFields
	if padding != 6 {
		t.Fatalf("expected 6 bytes of ModifyOrder padding, got %d", padding)
	}
}

func TestSnapshotRecordLength(t *testing.T) {
	got, ok := SnapshotRecordLength(2, 3)
	want := HeaderSize + SizeSnapshotHeader + 5*SizeSnapshotLevel
	if !ok || got != want {
		t.Fatalf("got (%d, %v), want (%d, true)", got, ok, want)
	}
}

func TestSnapshotRecordLengthOverflowIsRejected(t *testing.T) {
	if _, ok := SnapshotRecordLength(math.MaxUint32, 4095); ok {
		t.Fatal("expected overflowing counts to report ok=false")
	}
	if _, ok := SnapshotRecordLength(math.MaxUint32, math.MaxUint32); ok {
		t.Fatal("expected overflowing counts to report ok=false")
	}
}

func TestSnapshotLevelRoundTrip(t *testing.T) {
	length, ok := SnapshotRecordLength(1, 1)
	if !ok {
		t.Fatal("expected valid length")
	}
	buf := make([]byte, length)
	PutHeader(buf, MsgSnapshot, uint16(len(buf)), 7)
	PutSnapshotCounts(buf, 1, 1)
	PutSnapshotLevel(buf, 0, SnapshotLevel{Price: 100, Quantity: 5})
	PutSnapshotLevel(buf, 1, SnapshotLevel{Price: 200, Quantity: 9})

	nb, na := ReadSnapshotCounts(buf)
	if nb != 1 || na != 1 {
		t.Fatalf("counts: got %d %d", nb, na)
	}
	bid := ReadSnapshotLevel(buf, 0)
	ask := ReadSnapshotLevel(buf, 1)
	if bid.Price != 100 || bid.Quantity != 5 {
		t.Fatalf("bid level: %+v", bid)
	}
	if ask.Price != 200 || ask.Quantity != 9 {
		t.Fatalf("ask level: %+v", ask)
	}
}

func TestMessageTypeValid(t *testing.T) {
	for mt := MessageType(0); mt < 7; mt++ {
		want := mt >= MsgAddOrder && mt <= MsgSnapshot
		if mt.Valid() != want {
			t.Errorf("MessageType(%d).Valid() = %v, want %v", mt, mt.Valid(), want)
		}
	}
}
