// Package protocol defines the fixed-layout wire records this feed speaks:
// an 8-byte header shared by every record, followed by a kind-specific
// payload whose offsets are compile-time-known. Every accessor in this
// package reads directly from a caller-owned byte slice; nothing here
// allocates or copies the buffer.
package protocol

import (
	"encoding/binary"
	"math"
)

// HeaderSize is the width, in bytes, of the record header common to every
// message kind.
const HeaderSize = 8

// MessageType tags the kind of payload that follows a header.
type MessageType uint8

const (
	MsgAddOrder    MessageType = 1
	MsgModifyOrder MessageType = 2
	MsgDeleteOrder MessageType = 3
	MsgTrade       MessageType = 4
	MsgSnapshot    MessageType = 5
)

func (m MessageType) Valid() bool {
	return m >= MsgAddOrder && m <= MsgSnapshot
}

func (m MessageType) String() string {
	switch m {
	case MsgAddOrder:
		return "AddOrder"
	case MsgModifyOrder:
		return "ModifyOrder"
	case MsgDeleteOrder:
		return "DeleteOrder"
	case MsgTrade:
		return "Trade"
	case MsgSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// Side is the two-valued book side, encoded on the wire as a single byte.
type Side uint8

const (
	SideBid Side = 0
	SideAsk Side = 1
)

func (s Side) Valid() bool { return s == SideBid || s == SideAsk }

// Fixed record sizes, header included, for the non-variable message kinds.
const (
	SizeAddOrder    = 46
	SizeModifyOrder = 26
	SizeDeleteOrder = 16
	SizeTrade       = 38

	// SizeSnapshotHeader is the portion of a Snapshot record after the
	// common 8-byte header and before the level arrays: num_bids (4) +
	// num_asks (4).
	SizeSnapshotHeader = 8
	// SizeSnapshotLevel is the width of one {price, quantity, padding}
	// entry inside a Snapshot payload.
	SizeSnapshotLevel = 16
)

// Header offsets, relative to the start of any record.
const (
	offMsgType  = 0
	offLength   = 1
	offSequence = 3
	offPadding  = 7
)

// ReadMsgType returns the tag byte at offset 0. Callers must have already
// checked buf has at least HeaderSize bytes.
func ReadMsgType(buf []byte) MessageType {
	return MessageType(buf[offMsgType])
}

// ReadLength returns the declared total record length at offset 1, LE.
func ReadLength(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[offLength : offLength+2])
}

// ReadSequence returns the sequence number at offset 3, LE.
func ReadSequence(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[offSequence : offSequence+4])
}

// ExpectedSize returns the fixed record size for msg types 1-4, and ok=false
// for Snapshot (variable) or an unrecognized type.
func ExpectedSize(mt MessageType) (size int, ok bool) {
	switch mt {
	case MsgAddOrder:
		return SizeAddOrder, true
	case MsgModifyOrder:
		return SizeModifyOrder, true
	case MsgDeleteOrder:
		return SizeDeleteOrder, true
	case MsgTrade:
		return SizeTrade, true
	default:
		return 0, false
	}
}

// --- AddOrder payload, offsets relative to start of record ---
// order_id u64 @8, price u64 @16, quantity u32 @24, side u8 @28, padding[17] @29..45

const (
	addOrderOffID    = 8
	addOrderOffPrice = 16
	addOrderOffQty   = 24
	addOrderOffSide  = 28
)

type AddOrderFields struct {
	OrderID  uint64
	Price    uint64
	Quantity uint32
	Side     Side
}

func ReadAddOrder(buf []byte) AddOrderFields {
	return AddOrderFields{
		OrderID:  binary.LittleEndian.Uint64(buf[addOrderOffID : addOrderOffID+8]),
		Price:    binary.LittleEndian.Uint64(buf[addOrderOffPrice : addOrderOffPrice+8]),
		Quantity: binary.LittleEndian.Uint32(buf[addOrderOffQty : addOrderOffQty+4]),
		Side:     Side(buf[addOrderOffSide]),
	}
}

func PutAddOrder(buf []byte, f AddOrderFields) {
	binary.LittleEndian.PutUint64(buf[addOrderOffID:addOrderOffID+8], f.OrderID)
	binary.LittleEndian.PutUint64(buf[addOrderOffPrice:addOrderOffPrice+8], f.Price)
	binary.LittleEndian.PutUint32(buf[addOrderOffQty:addOrderOffQty+4], f.Quantity)
	buf[addOrderOffSide] = byte(f.Side)
}

// --- ModifyOrder payload ---
// order_id u64 @8, new_quantity u32 @16, padding[6] @20..25 (see design
// note: the wire table's "padding u8[2]" is a documentation error; the
// record's declared 26-byte length only works out if offsets 20-25 are
// padding, six bytes not two).

const (
	modifyOrderOffID  = 8
	modifyOrderOffQty = 16
)

type ModifyOrderFields struct {
	OrderID     uint64
	NewQuantity uint32
}

func ReadModifyOrder(buf []byte) ModifyOrderFields {
	return ModifyOrderFields{
		OrderID:     binary.LittleEndian.Uint64(buf[modifyOrderOffID : modifyOrderOffID+8]),
		NewQuantity: binary.LittleEndian.Uint32(buf[modifyOrderOffQty : modifyOrderOffQty+4]),
	}
}

func PutModifyOrder(buf []byte, f ModifyOrderFields) {
	binary.LittleEndian.PutUint64(buf[modifyOrderOffID:modifyOrderOffID+8], f.OrderID)
	binary.LittleEndian.PutUint32(buf[modifyOrderOffQty:modifyOrderOffQty+4], f.NewQuantity)
}

// --- DeleteOrder payload ---
// order_id u64 @8

const deleteOrderOffID = 8

type DeleteOrderFields struct {
	OrderID uint64
}

func ReadDeleteOrder(buf []byte) DeleteOrderFields {
	return DeleteOrderFields{
		OrderID: binary.LittleEndian.Uint64(buf[deleteOrderOffID : deleteOrderOffID+8]),
	}
}

func PutDeleteOrder(buf []byte, f DeleteOrderFields) {
	binary.LittleEndian.PutUint64(buf[deleteOrderOffID:deleteOrderOffID+8], f.OrderID)
}

// --- Trade payload ---
// buyer_order_id u64 @8, seller_order_id u64 @16, price u64 @24,
// quantity u32 @32, padding[2] @36..37

const (
	tradeOffBuyer = 8
	tradeOffSell  = 16
	tradeOffPrice = 24
	tradeOffQty   = 32
)

type TradeFields struct {
	BuyerOrderID  uint64
	SellerOrderID uint64
	Price         uint64
	Quantity      uint32
}

func ReadTrade(buf []byte) TradeFields {
	return TradeFields{
		BuyerOrderID:  binary.LittleEndian.Uint64(buf[tradeOffBuyer : tradeOffBuyer+8]),
		SellerOrderID: binary.LittleEndian.Uint64(buf[tradeOffSell : tradeOffSell+8]),
		Price:         binary.LittleEndian.Uint64(buf[tradeOffPrice : tradeOffPrice+8]),
		Quantity:      binary.LittleEndian.Uint32(buf[tradeOffQty : tradeOffQty+4]),
	}
}

func PutTrade(buf []byte, f TradeFields) {
	binary.LittleEndian.PutUint64(buf[tradeOffBuyer:tradeOffBuyer+8], f.BuyerOrderID)
	binary.LittleEndian.PutUint64(buf[tradeOffSell:tradeOffSell+8], f.SellerOrderID)
	binary.LittleEndian.PutUint64(buf[tradeOffPrice:tradeOffPrice+8], f.Price)
	binary.LittleEndian.PutUint32(buf[tradeOffQty:tradeOffQty+4], f.Quantity)
}

// --- Snapshot payload ---
// num_bids u32 @8, num_asks u32 @12, then num_bids levels of
// {price u64, quantity u32, padding[4]}, then num_asks such levels.

const (
	snapOffNumBids = 8
	snapOffNumAsks = 12
	snapLevelsOff  = 16
)

type SnapshotLevel struct {
	Price    uint64
	Quantity uint32
}

func ReadSnapshotCounts(buf []byte) (numBids, numAsks uint32) {
	return binary.LittleEndian.Uint32(buf[snapOffNumBids : snapOffNumBids+4]),
		binary.LittleEndian.Uint32(buf[snapOffNumAsks : snapOffNumAsks+4])
}

func PutSnapshotCounts(buf []byte, numBids, numAsks uint32) {
	binary.LittleEndian.PutUint32(buf[snapOffNumBids:snapOffNumBids+4], numBids)
	binary.LittleEndian.PutUint32(buf[snapOffNumAsks:snapOffNumAsks+4], numAsks)
}

// ReadSnapshotLevel reads level index i (0-based across the combined
// bid+ask run, i.e. asks start at index numBids) starting at snapLevelsOff.
func ReadSnapshotLevel(buf []byte, i int) SnapshotLevel {
	off := snapLevelsOff + i*SizeSnapshotLevel
	return SnapshotLevel{
		Price:    binary.LittleEndian.Uint64(buf[off : off+8]),
		Quantity: binary.LittleEndian.Uint32(buf[off+8 : off+12]),
	}
}

func PutSnapshotLevel(buf []byte, i int, lvl SnapshotLevel) {
	off := snapLevelsOff + i*SizeSnapshotLevel
	binary.LittleEndian.PutUint64(buf[off:off+8], lvl.Price)
	binary.LittleEndian.PutUint32(buf[off+8:off+12], lvl.Quantity)
}

// SnapshotRecordLength returns the total declared record length for a
// snapshot with the given bid/ask level counts, and whether that length
// actually fits in the wire format's 16-bit length field. numBids+numAsks
// is widened to uint64 before the multiply so that counts near the
// uint32 range can never wrap around to a small, falsely-valid length;
// such counts simply report ok=false.
func SnapshotRecordLength(numBids, numAsks uint32) (length int, ok bool) {
	total := uint64(numBids) + uint64(numAsks)
	full := uint64(HeaderSize+SizeSnapshotHeader) + total*uint64(SizeSnapshotLevel)
	if full > math.MaxUint16 {
		return 0, false
	}
	return int(full), true
}

// PutHeader writes the common 8-byte header at the start of buf.
func PutHeader(buf []byte, mt MessageType, length uint16, sequence uint32) {
	buf[offMsgType] = byte(mt)
	binary.LittleEndian.PutUint16(buf[offLength:offLength+2], length)
	binary.LittleEndian.PutUint32(buf[offSequence:offSequence+4], sequence)
	buf[offPadding] = 0
}
