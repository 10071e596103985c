package orderbook

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
)

// level holds the FIFO queue of orders resting at a single price.
type level struct {
	price  Price
	orders *list.List // of *Order, time priority front to back
	volume uint64     // sum of remaining quantities
}

// handle locates a resting order inside the book in O(1).
type handle struct {
	side Side
	lvl  *level
	elem *list.Element
}

// Book is a price/time priority order book for a single symbol.
//
// Each side is a red-black tree keyed by price whose comparator puts the
// best price leftmost (highest bid, lowest ask); each tree value is a FIFO
// queue of orders at that price. A handle map gives O(1) lookup and removal
// by order id. The book is not safe for concurrent use: all access is
// serialized through the owning symbol's strand.
type Book struct {
	Symbol string

	bids    *rbt.Tree[Price, *level]
	asks    *rbt.Tree[Price, *level]
	handles map[OrderID]handle
}

// NewBook creates an empty order book for a symbol.
func NewBook(sym string) *Book {
	return &Book{
		Symbol: sym,
		bids: rbt.NewWith[Price, *level](func(a, b Price) int {
			// highest price first
			if a > b {
				return -1
			} else if a < b {
				return 1
			}
			return 0
		}),
		asks: rbt.NewWith[Price, *level](func(a, b Price) int {
			if a < b {
				return -1
			} else if a > b {
				return 1
			}
			return 0
		}),
		handles: make(map[OrderID]handle),
	}
}

func (b *Book) tree(s Side) *rbt.Tree[Price, *level] {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

// Insert rests an order on its own side. Time priority within a price level
// is admission order; the caller admits orders one at a time through the
// symbol strand, so a FIFO append preserves it.
func (b *Book) Insert(o *Order) {
	tree := b.tree(o.Side)
	lvl, found := tree.Get(o.Price)
	if !found {
		lvl = &level{price: o.Price, orders: list.New()}
		tree.Put(o.Price, lvl)
	}
	elem := lvl.orders.PushBack(o)
	lvl.volume += uint64(o.Remaining)
	b.handles[o.ID] = handle{side: o.Side, lvl: lvl, elem: elem}
}

// Lookup returns a resting order by id, or nil if not resting.
func (b *Book) Lookup(id OrderID) *Order {
	h, ok := b.handles[id]
	if !ok {
		return nil
	}
	return h.elem.Value.(*Order)
}

// Remove unrests an order by id. Returns the removed order or nil.
func (b *Book) Remove(id OrderID) *Order {
	h, ok := b.handles[id]
	if !ok {
		return nil
	}
	o := h.elem.Value.(*Order)
	h.lvl.orders.Remove(h.elem)
	h.lvl.volume -= uint64(o.Remaining)
	if h.lvl.orders.Len() == 0 {
		b.tree(h.side).Remove(h.lvl.price)
	}
	delete(b.handles, id)
	return o
}

// ReduceVolume accounts a fill against the level volume of a resting order.
// The order's Remaining must already be decremented by qty.
func (b *Book) ReduceVolume(id OrderID, qty Quantity) {
	if h, ok := b.handles[id]; ok {
		h.lvl.volume -= uint64(qty)
	}
}

// Best returns the highest-priority resting order on a side, or nil.
func (b *Book) Best(s Side) *Order {
	node := b.tree(s).Left()
	if node == nil {
		return nil
	}
	front := node.Value.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

// SideEmpty reports whether a side has no resting orders.
func (b *Book) SideEmpty(s Side) bool {
	return b.tree(s).Size() == 0
}

// BestBid returns the best bid price, or 0 if the bid side is empty.
func (b *Book) BestBid() Price {
	if o := b.Best(SideBuy); o != nil {
		return o.Price
	}
	return 0
}

// BestAsk returns the best ask price, or 0 if the ask side is empty.
func (b *Book) BestAsk() Price {
	if o := b.Best(SideSell); o != nil {
		return o.Price
	}
	return 0
}

// OrderCount returns the total number of resting orders.
func (b *Book) OrderCount() int {
	return len(b.handles)
}

// BidLevels returns the number of bid price levels.
func (b *Book) BidLevels() int {
	return b.bids.Size()
}

// AskLevels returns the number of ask price levels.
func (b *Book) AskLevels() int {
	return b.asks.Size()
}

// OrdersOn returns the resting orders of a side in priority order
// (best price first, FIFO within a level).
func (b *Book) OrdersOn(s Side) []*Order {
	var out []*Order
	it := b.tree(s).Iterator()
	for it.Next() {
		for e := it.Value().orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*Order))
		}
	}
	return out
}

// DepthLevel represents aggregated data at a single price level.
type DepthLevel struct {
	Price    Price
	Orders   int
	TotalQty uint64
}

// DepthSnapshot is a point-in-time snapshot of the order book.
type DepthSnapshot struct {
	Symbol   string
	Bids     []DepthLevel
	Asks     []DepthLevel
	BestBid  Price
	BestAsk  Price
	MidPrice float64
	Spread   Price
}

// Depth returns a snapshot of the book's bid/ask levels. Like every other
// book operation, it must run on the symbol's strand.
func (b *Book) Depth(maxLevels int) DepthSnapshot {
	snap := DepthSnapshot{Symbol: b.Symbol}
	snap.Bids = b.depthSide(SideBuy, maxLevels)
	snap.Asks = b.depthSide(SideSell, maxLevels)
	snap.BestBid = b.BestBid()
	snap.BestAsk = b.BestAsk()
	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid.Float() + snap.BestAsk.Float()) / 2
		snap.Spread = snap.BestAsk - snap.BestBid
	}
	return snap
}

func (b *Book) depthSide(s Side, maxLevels int) []DepthLevel {
	var out []DepthLevel
	it := b.tree(s).Iterator()
	for it.Next() {
		if maxLevels > 0 && len(out) >= maxLevels {
			break
		}
		lvl := it.Value()
		out = append(out, DepthLevel{
			Price:    lvl.price,
			Orders:   lvl.orders.Len(),
			TotalQty: lvl.volume,
		})
	}
	return out
}
