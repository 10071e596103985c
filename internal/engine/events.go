package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndrandal/matchbook/internal/orderbook"
)

// Fill is the immutable record of a single maker/taker match. The executed
// price is always the maker's price.
type Fill struct {
	Symbol     string
	TakerID    orderbook.OrderID
	MakerID    orderbook.OrderID
	Price      orderbook.Price
	Qty        orderbook.Quantity
	TakerIsBuy bool
	At         time.Time
	MatchSeq   uint64 // per-symbol monotonic
}

// OrderEventType classifies order lifecycle events.
type OrderEventType byte

const (
	EventNewAccepted OrderEventType = iota
	EventReplaced
	EventCanceled
	EventExpired
	EventRejected
	EventPartiallyFilled
	EventFilled
)

func (t OrderEventType) String() string {
	switch t {
	case EventNewAccepted:
		return "NEW_ACCEPTED"
	case EventReplaced:
		return "REPLACED"
	case EventCanceled:
		return "CANCELED"
	case EventExpired:
		return "EXPIRED"
	case EventRejected:
		return "REJECTED"
	case EventPartiallyFilled:
		return "PARTIALLY_FILLED"
	case EventFilled:
		return "FILLED"
	}
	return "UNKNOWN"
}

// OrderEvent is one order lifecycle record destined for the order log.
type OrderEvent struct {
	Symbol    string
	Seq       uint64 // per-symbol monotonic
	At        time.Time
	Type      OrderEventType
	OrderID   orderbook.OrderID // 0 for rejected unknown kinds
	Side      orderbook.Side
	Price     orderbook.Price
	Remaining orderbook.Quantity
	Reason    Reason // for REJECTED/EXPIRED
}

// TradeEvent is one trade record destined for the trade log.
type TradeEvent struct {
	Symbol string
	Seq    uint64 // per-symbol monotonic
	At     time.Time
	Fill   Fill
}

// EventSink receives order and trade events emitted by the matching path.
// Implementations must not block: the engine calls these inline.
type EventSink interface {
	LogOrder(OrderEvent)
	LogTrade(TradeEvent)
}

// EventLog extends EventSink with request outcomes, the full trio the
// asynchronous writer persists.
type EventLog interface {
	EventSink
	LogOutcome(Outcome)
}

// seqTable hands out per-symbol monotonic sequence numbers. The map is
// guarded by a mutex; the counters themselves are atomics so a sequence
// stays safe even if two strands ever shared a symbol string.
type seqTable struct {
	mu sync.Mutex
	m  map[string]*uint64
}

func newSeqTable() *seqTable {
	return &seqTable{m: make(map[string]*uint64)}
}

func (t *seqTable) next(symbol string) uint64 {
	t.mu.Lock()
	c, ok := t.m[symbol]
	if !ok {
		c = new(uint64)
		t.m[symbol] = c
	}
	t.mu.Unlock()
	return atomic.AddUint64(c, 1)
}
