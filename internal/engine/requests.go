package engine

import "github.com/ndrandal/matchbook/internal/orderbook"

// RequestID is a caller-supplied correlation id echoed on every outcome.
type RequestID uint64

// Status is the synchronous result class of a trading request.
type Status byte

const (
	StatusOK Status = iota
	StatusRejected
	StatusNoop
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRejected:
		return "REJECTED"
	case StatusNoop:
		return "NOOP"
	}
	return "UNKNOWN"
}

// Reason qualifies a REJECTED or NOOP outcome.
type Reason byte

const (
	ReasonNone Reason = iota
	ReasonUnknownSymbol
	ReasonUnknownOrder
	ReasonInvalidPrice
	ReasonInvalidQuantity
	ReasonNotModifiable
	ReasonBookClosed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUnknownSymbol:
		return "UNKNOWN_SYMBOL"
	case ReasonUnknownOrder:
		return "UNKNOWN_ORDER"
	case ReasonInvalidPrice:
		return "INVALID_PRICE"
	case ReasonInvalidQuantity:
		return "INVALID_QUANTITY"
	case ReasonNotModifiable:
		return "NOT_MODIFIABLE"
	case ReasonBookClosed:
		return "BOOK_CLOSED"
	}
	return "UNKNOWN"
}

// Request is one of NewOrder, Cancel or Modify.
type Request interface {
	ReqID() RequestID
	ReqSymbol() string
}

// NewOrderParams carries the caller-supplied order fields.
type NewOrderParams struct {
	Client string
	Side   orderbook.Side
	Price  orderbook.Price // ignored for market orders
	Qty    orderbook.Quantity
}

// NewOrder admits a market or limit order.
type NewOrder struct {
	RequestID RequestID
	Symbol    string
	Kind      orderbook.OrderKind
	Params    NewOrderParams
}

// Cancel removes a resting order.
type Cancel struct {
	RequestID RequestID
	Symbol    string
	OrderID   orderbook.OrderID
}

// Modify replaces a resting order's price and quantity. Time priority is
// not preserved: the replacement is admitted fresh.
type Modify struct {
	RequestID RequestID
	Symbol    string
	OrderID   orderbook.OrderID
	NewPrice  orderbook.Price
	NewQty    orderbook.Quantity
}

func (r NewOrder) ReqID() RequestID  { return r.RequestID }
func (r NewOrder) ReqSymbol() string { return r.Symbol }
func (r Cancel) ReqID() RequestID    { return r.RequestID }
func (r Cancel) ReqSymbol() string   { return r.Symbol }
func (r Modify) ReqID() RequestID    { return r.RequestID }
func (r Modify) ReqSymbol() string   { return r.Symbol }

// Outcome is the synchronous result of processing one request.
type Outcome struct {
	RequestID    RequestID
	Status       Status
	Reason       Reason
	Message      string
	Fills        []Fill // taker-view fills produced by this request only
	TakerFilled  orderbook.Quantity
	TakerRemains orderbook.Quantity
}
