// Package orderbook maintains aggregated bid/ask price ladders and
// per-order state for a single instrument, applying decoded message views
// in place. It is not internally synchronized: callers needing a
// consistent concurrent read must take a Depth snapshot on the owning
// goroutine and hand the copy to readers.
//
// Grounded on a production matching engine's red-black-tree price ladder
// (see rbtree.go); the per-order FIFO linkage that engine uses inside a
// level is dropped here, since this book only needs aggregate quantity
// and existence per level, not time priority.
package orderbook

import (
	"errors"

	"github.com/brightline-markets/feedcore/internal/decoder"
	"github.com/brightline-markets/feedcore/internal/protocol"
)

var (
	ErrDuplicateOrder = errors.New("orderbook: duplicate order")
	ErrUnknownOrder   = errors.New("orderbook: unknown order")
	ErrInvalidField   = errors.New("orderbook: invalid field")
)

// level is an aggregate price level: the total resting quantity across all
// orders at this price on one side.
type level struct {
	price uint64
	qty   uint64
}

type orderRecord struct {
	side  protocol.Side
	price uint64
	qty   uint32
}

// PriceQty is one row of book depth.
type PriceQty struct {
	Price    uint64
	Quantity uint64
}

// Outcome reports the observable side-effects of an Apply call that the
// book itself does not act on, leaving policy (e.g. counting it) to the
// caller.
type Outcome struct {
	Crossed bool
}

// Book is a single-instrument order book: two price-ordered ladders plus a
// hash map from order_id to its resting order.
type Book struct {
	bids   *rbTree
	asks   *rbTree
	orders map[uint64]*orderRecord
}

// New returns an empty book.
func New() *Book {
	return &Book{
		bids:   newRBTree(),
		asks:   newRBTree(),
		orders: make(map[uint64]*orderRecord),
	}
}

// LenOrders returns the number of resting orders tracked by order_id.
func (b *Book) LenOrders() int { return len(b.orders) }

// LenLevels returns the number of distinct price levels on the given side.
func (b *Book) LenLevels(side protocol.Side) int {
	return b.ladder(side).Size()
}

func (b *Book) ladder(side protocol.Side) *rbTree {
	if side == protocol.SideBid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest bid price and its aggregate quantity.
func (b *Book) BestBid() (price, qty uint64, ok bool) {
	lvl := b.bids.Max()
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.price, lvl.qty, true
}

// BestAsk returns the lowest ask price and its aggregate quantity.
func (b *Book) BestAsk() (price, qty uint64, ok bool) {
	lvl := b.asks.Min()
	if lvl == nil {
		return 0, 0, false
	}
	return lvl.price, lvl.qty, true
}

// Depth returns up to n levels on the given side in book-priority order:
// descending for bids, ascending for asks.
func (b *Book) Depth(side protocol.Side, n int) []PriceQty {
	out := make([]PriceQty, 0, n)
	visit := func(lvl *level) bool {
		out = append(out, PriceQty{Price: lvl.price, Quantity: lvl.qty})
		return len(out) < n
	}
	if side == protocol.SideBid {
		b.bids.EachDescending(visit)
	} else {
		b.asks.EachAscending(visit)
	}
	return out
}

// Clear empties the book: no levels, no orders.
func (b *Book) Clear() {
	b.bids.Clear()
	b.asks.Clear()
	b.orders = make(map[uint64]*orderRecord)
}

// Apply dispatches view to the appropriate mutation and reports whether
// the book is left in a crossed state.
func (b *Book) Apply(view decoder.View) (Outcome, error) {
	switch view.MessageType() {
	case protocol.MsgAddOrder:
		if err := b.applyAdd(view.AddOrder()); err != nil {
			return Outcome{}, err
		}
	case protocol.MsgModifyOrder:
		if err := b.applyModify(view.ModifyOrder()); err != nil {
			return Outcome{}, err
		}
	case protocol.MsgDeleteOrder:
		if err := b.applyDelete(view.DeleteOrder()); err != nil {
			return Outcome{}, err
		}
	case protocol.MsgTrade:
		// Informational only; never mutates level or order state.
	case protocol.MsgSnapshot:
		b.applySnapshot(view)
	}
	return Outcome{Crossed: b.isCrossed()}, nil
}

// ApplySnapshot atomically replaces the book with the levels in view,
// discarding all per-order state.
func (b *Book) ApplySnapshot(view decoder.View) {
	b.applySnapshot(view)
}

func (b *Book) applySnapshot(view decoder.View) {
	b.Clear()
	numBids, numAsks := view.SnapshotCounts()
	for i := 0; i < int(numBids); i++ {
		lvl := view.SnapshotLevel(i)
		if lvl.Quantity == 0 {
			continue
		}
		l := b.bids.Upsert(lvl.Price)
		l.qty = uint64(lvl.Quantity)
	}
	for i := 0; i < int(numAsks); i++ {
		lvl := view.SnapshotLevel(int(numBids) + i)
		if lvl.Quantity == 0 {
			continue
		}
		l := b.asks.Upsert(lvl.Price)
		l.qty = uint64(lvl.Quantity)
	}
}

func (b *Book) applyAdd(f protocol.AddOrderFields) error {
	if f.Quantity == 0 {
		return ErrInvalidField
	}
	if !f.Side.Valid() {
		return ErrInvalidField
	}
	if _, exists := b.orders[f.OrderID]; exists {
		return ErrDuplicateOrder
	}

	lvl := b.ladder(f.Side).Upsert(f.Price)
	lvl.qty += uint64(f.Quantity)
	b.orders[f.OrderID] = &orderRecord{side: f.Side, price: f.Price, qty: f.Quantity}
	return nil
}

func (b *Book) applyModify(f protocol.ModifyOrderFields) error {
	ord, exists := b.orders[f.OrderID]
	if !exists {
		return ErrUnknownOrder
	}

	ladder := b.ladder(ord.side)
	lvl := ladder.Find(ord.price)
	if lvl == nil {
		// Invariant violation elsewhere would land here; nothing legal
		// to do but treat the order as already gone.
		return ErrUnknownOrder
	}

	if f.NewQuantity == ord.qty {
		return nil // Δ = 0, no-op beyond the lookup.
	}

	delta := int64(f.NewQuantity) - int64(ord.qty)
	lvl.qty = uint64(int64(lvl.qty) + delta)
	ord.qty = f.NewQuantity

	if f.NewQuantity == 0 {
		delete(b.orders, f.OrderID)
	}
	if lvl.qty == 0 {
		ladder.Delete(ord.price)
	}
	return nil
}

func (b *Book) applyDelete(f protocol.DeleteOrderFields) error {
	ord, exists := b.orders[f.OrderID]
	if !exists {
		return ErrUnknownOrder
	}

	ladder := b.ladder(ord.side)
	lvl := ladder.Find(ord.price)
	if lvl != nil {
		lvl.qty -= uint64(ord.qty)
		if lvl.qty == 0 {
			ladder.Delete(ord.price)
		}
	}
	delete(b.orders, f.OrderID)
	return nil
}

func (b *Book) isCrossed() bool {
	bidPrice, _, hasBid := b.BestBid()
	askPrice, _, hasAsk := b.BestAsk()
	return hasBid && hasAsk && bidPrice >= askPrice
}
