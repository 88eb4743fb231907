// Package decoder turns raw bytes into typed, borrowed views over the
// caller's buffer. No record is copied and nothing is allocated on the
// success path; every View is a thin wrapper around a sub-slice of the
// input.
package decoder

import (
	"fmt"

	"github.com/brightline-markets/feedcore/internal/protocol"
)

// ErrorKind distinguishes the framing-error taxonomy without relying on
// string matching.
type ErrorKind int

const (
	BufferTooSmall ErrorKind = iota
	UnknownMessageType
	LengthMismatch
	InvalidField
)

func (k ErrorKind) String() string {
	switch k {
	case BufferTooSmall:
		return "BufferTooSmall"
	case UnknownMessageType:
		return "UnknownMessageType"
	case LengthMismatch:
		return "LengthMismatch"
	case InvalidField:
		return "InvalidField"
	default:
		return "Unknown"
	}
}

// Error reports a framing failure. Need/Have are populated for
// BufferTooSmall; MsgType is populated for UnknownMessageType.
type Error struct {
	Kind    ErrorKind
	Need    int
	Have    int
	MsgType byte
	Detail  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case BufferTooSmall:
		return fmt.Sprintf("decoder: buffer too small: need %d, have %d", e.Need, e.Have)
	case UnknownMessageType:
		return fmt.Sprintf("decoder: unknown message type %d", e.MsgType)
	case LengthMismatch:
		return fmt.Sprintf("decoder: length mismatch: %s", e.Detail)
	case InvalidField:
		return fmt.Sprintf("decoder: invalid field: %s", e.Detail)
	default:
		return "decoder: error"
	}
}

// View is a tagged, borrowed reference into the buffer passed to Decode.
// It must not be retained past the lifetime of that buffer.
type View struct {
	buf  []byte
	kind protocol.MessageType
}

func (v View) MessageType() protocol.MessageType { return v.kind }
func (v View) Sequence() uint32                  { return protocol.ReadSequence(v.buf) }
func (v View) Len() int                          { return len(v.buf) }
func (v View) Bytes() []byte                     { return v.buf }

func (v View) AddOrder() protocol.AddOrderFields {
	return protocol.ReadAddOrder(v.buf)
}

func (v View) ModifyOrder() protocol.ModifyOrderFields {
	return protocol.ReadModifyOrder(v.buf)
}

func (v View) DeleteOrder() protocol.DeleteOrderFields {
	return protocol.ReadDeleteOrder(v.buf)
}

func (v View) Trade() protocol.TradeFields {
	return protocol.ReadTrade(v.buf)
}

// SnapshotCounts returns the number of bid and ask levels in a Snapshot
// view.
func (v View) SnapshotCounts() (numBids, numAsks uint32) {
	return protocol.ReadSnapshotCounts(v.buf)
}

// SnapshotLevel returns the i'th level of a Snapshot view; indices
// [0, numBids) are bid levels, [numBids, numBids+numAsks) are ask levels.
func (v View) SnapshotLevel(i int) protocol.SnapshotLevel {
	return protocol.ReadSnapshotLevel(v.buf, i)
}

// Decode parses exactly one record from the start of buf. On success it
// returns a View borrowing from buf and the number of bytes consumed.
func Decode(buf []byte) (View, int, error) {
	if len(buf) < protocol.HeaderSize {
		return View{}, 0, &Error{Kind: BufferTooSmall, Need: protocol.HeaderSize, Have: len(buf)}
	}

	mt := protocol.ReadMsgType(buf)
	if !mt.Valid() {
		return View{}, 0, &Error{Kind: UnknownMessageType, MsgType: byte(mt)}
	}

	declared := int(protocol.ReadLength(buf))

	if mt == protocol.MsgSnapshot {
		return decodeSnapshot(buf, declared)
	}

	expected, _ := protocol.ExpectedSize(mt)
	if declared != expected {
		return View{}, 0, &Error{
			Kind:   LengthMismatch,
			Detail: fmt.Sprintf("msg_type %s declared length %d, expected %d", mt, declared, expected),
		}
	}
	if len(buf) < declared {
		return View{}, 0, &Error{Kind: BufferTooSmall, Need: declared, Have: len(buf)}
	}

	view := View{buf: buf[:declared], kind: mt}

	if mt == protocol.MsgAddOrder {
		f := view.AddOrder()
		if !f.Side.Valid() {
			return View{}, 0, &Error{Kind: InvalidField, Detail: fmt.Sprintf("side byte %d invalid", f.Side)}
		}
	}

	return view, declared, nil
}

func decodeSnapshot(buf []byte, declared int) (View, int, error) {
	if declared < protocol.HeaderSize+protocol.SizeSnapshotHeader {
		return View{}, 0, &Error{
			Kind:   LengthMismatch,
			Detail: fmt.Sprintf("snapshot declared length %d below minimum %d", declared, protocol.HeaderSize+protocol.SizeSnapshotHeader),
		}
	}
	if len(buf) < protocol.HeaderSize+protocol.SizeSnapshotHeader {
		return View{}, 0, &Error{Kind: BufferTooSmall, Need: protocol.HeaderSize + protocol.SizeSnapshotHeader, Have: len(buf)}
	}

	numBids, numAsks := protocol.ReadSnapshotCounts(buf)
	expected, ok := protocol.SnapshotRecordLength(numBids, numAsks)
	if !ok {
		return View{}, 0, &Error{
			Kind:   InvalidField,
			Detail: fmt.Sprintf("snapshot num_bids=%d, num_asks=%d: no declared length could hold that many levels", numBids, numAsks),
		}
	}
	if declared != expected {
		return View{}, 0, &Error{
			Kind:   LengthMismatch,
			Detail: fmt.Sprintf("snapshot declared length %d inconsistent with %d+%d levels (expected %d)", declared, numBids, numAsks, expected),
		}
	}
	if len(buf) < declared {
		return View{}, 0, &Error{Kind: BufferTooSmall, Need: declared, Have: len(buf)}
	}

	return View{buf: buf[:declared], kind: protocol.MsgSnapshot}, declared, nil
}

// DecodeStream repeatedly decodes records from buf and invokes sink for
// each. It stops when sink returns false, when fewer than 8 bytes remain
// (treated as a normal end of stream, not an error), or on the first
// decode error, which is returned to the caller. It returns the number of
// records successfully delivered to sink.
func DecodeStream(buf []byte, sink func(View) bool) (int, error) {
	count := 0
	for len(buf) > 0 {
		if len(buf) < protocol.HeaderSize {
			return count, nil
		}
		view, consumed, err := Decode(buf)
		if err != nil {
			return count, err
		}
		count++
		if !sink(view) {
			return count, nil
		}
		buf = buf[consumed:]
	}
	return count, nil
}
