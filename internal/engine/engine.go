package engine

import (
	"fmt"
	"time"

	"github.com/ndrandal/matchbook/internal/orderbook"
)

// Engine matches incoming requests against per-symbol order books using
// strict price/time priority. ProcessRequest is always invoked from inside
// the strand of the request's symbol, so the book it touches is effectively
// single-threaded; the engine itself holds no order or price-level state,
// only the per-symbol sequence counters.
type Engine struct {
	sink EventSink

	orderSeqs *seqTable
	tradeSeqs *seqTable
	matchSeqs *seqTable
}

// NewEngine creates a matching engine emitting events to sink.
func NewEngine(sink EventSink) *Engine {
	return &Engine{
		sink:      sink,
		orderSeqs: newSeqTable(),
		tradeSeqs: newSeqTable(),
		matchSeqs: newSeqTable(),
	}
}

// ProcessRequest applies one trading request to a book and returns its
// synchronous outcome. The outcome always echoes the request id.
func (e *Engine) ProcessRequest(book *orderbook.Book, req Request) Outcome {
	var out Outcome
	switch r := req.(type) {
	case NewOrder:
		out = e.newOrder(book, r)
	case Cancel:
		out = e.cancel(book, r)
	case Modify:
		out = e.modify(book, r)
	default:
		out = Outcome{
			Status:  StatusRejected,
			Message: "unsupported request",
		}
	}
	out.RequestID = req.ReqID()
	return out
}

func (e *Engine) newOrder(book *orderbook.Book, r NewOrder) Outcome {
	if r.Kind != orderbook.KindMarket && r.Kind != orderbook.KindLimit {
		// unknown kind: reject without touching the book, but emit an
		// order event with id 0 so the audit trail records the attempt
		e.sink.LogOrder(OrderEvent{
			Symbol:  r.Symbol,
			Seq:     e.orderSeqs.next(r.Symbol),
			At:      time.Now(),
			Type:    EventRejected,
			OrderID: 0,
			Side:    r.Params.Side,
			Reason:  ReasonInvalidPrice,
		})
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonInvalidPrice,
			Message: fmt.Sprintf("invalid order type: %c", r.Kind),
		}
	}

	if r.Params.Qty == 0 {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonInvalidQuantity,
			Message: "quantity must be positive",
		}
	}
	if r.Kind == orderbook.KindLimit && r.Params.Price <= 0 {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonInvalidPrice,
			Message: "limit orders require a positive price",
		}
	}

	o := &orderbook.Order{
		ID:        orderbook.NextOrderID(),
		Client:    r.Params.Client,
		Side:      r.Params.Side,
		Kind:      r.Kind,
		Price:     r.Params.Price,
		Qty:       r.Params.Qty,
		Remaining: r.Params.Qty,
		State:     orderbook.StateActive,
		Admitted:  time.Now(),
		AdmitSeq:  orderbook.NextAdmitSeq(),
	}
	return e.submit(book, o)
}

// submit runs the matching path for an admitted order. Shared by new-order
// and the resubmission half of modify.
func (e *Engine) submit(book *orderbook.Book, o *orderbook.Order) Outcome {
	if o.Kind == orderbook.KindMarket {
		return e.matchMarket(book, o)
	}
	return e.matchLimit(book, o)
}

func (e *Engine) matchLimit(book *orderbook.Book, taker *orderbook.Order) Outcome {
	fills := e.matchAgainstBook(book, taker)

	out := Outcome{
		Status:       StatusOK,
		Fills:        fills,
		TakerFilled:  sumQty(fills),
		TakerRemains: taker.Remaining,
	}
	if taker.Remaining == 0 {
		out.Message = "limit order fully filled"
		return out
	}

	e.rest(book, taker)
	if len(fills) > 0 {
		out.Message = "limit order partially filled and added to book"
	} else {
		out.Message = "limit order added to book"
	}
	return out
}

func (e *Engine) matchMarket(book *orderbook.Book, taker *orderbook.Order) Outcome {
	if book.SideEmpty(taker.Side.Opposite()) {
		// no liquidity at all: no mutation, no events
		return Outcome{
			Status:       StatusRejected,
			Reason:       ReasonBookClosed,
			Message:      "no liquidity available for market order",
			TakerRemains: taker.Remaining,
		}
	}

	fills := e.matchAgainstBook(book, taker)

	out := Outcome{
		Fills:        fills,
		TakerFilled:  sumQty(fills),
		TakerRemains: taker.Remaining,
	}
	if taker.Remaining == 0 {
		out.Status = StatusOK
		out.Message = "market order fully filled"
	} else {
		// the residual is never rested; partial fills stay observable
		out.Status = StatusRejected
		out.Reason = ReasonBookClosed
		out.Message = "market order partially filled - insufficient liquidity"
	}
	return out
}

// matchAgainstBook walks the opposite side best-first, executing at maker
// prices, until the taker is exhausted or the book stops crossing.
func (e *Engine) matchAgainstBook(book *orderbook.Book, taker *orderbook.Order) []Fill {
	var fills []Fill
	opp := taker.Side.Opposite()

	for taker.Remaining > 0 {
		maker := book.Best(opp)
		if maker == nil || !crosses(taker, maker) {
			break
		}

		qty := taker.Remaining
		if maker.Remaining < qty {
			qty = maker.Remaining
		}
		now := time.Now()
		fill := Fill{
			Symbol:     book.Symbol,
			TakerID:    taker.ID,
			MakerID:    maker.ID,
			Price:      maker.Price,
			Qty:        qty,
			TakerIsBuy: taker.Side == orderbook.SideBuy,
			At:         now,
			MatchSeq:   e.matchSeqs.next(book.Symbol),
		}
		fills = append(fills, fill)
		e.sink.LogTrade(TradeEvent{
			Symbol: book.Symbol,
			Seq:    e.tradeSeqs.next(book.Symbol),
			At:     now,
			Fill:   fill,
		})

		taker.Remaining -= qty
		maker.Remaining -= qty
		book.ReduceVolume(maker.ID, qty)

		makerEv := OrderEvent{
			Symbol:    book.Symbol,
			Seq:       e.orderSeqs.next(book.Symbol),
			At:        now,
			OrderID:   maker.ID,
			Side:      maker.Side,
			Price:     maker.Price,
			Remaining: maker.Remaining,
		}
		if maker.Remaining == 0 {
			maker.State = orderbook.StateFilled
			makerEv.Type = EventFilled
			e.sink.LogOrder(makerEv)
			book.Remove(maker.ID)
		} else {
			maker.State = orderbook.StatePartiallyFilled
			makerEv.Type = EventPartiallyFilled
			e.sink.LogOrder(makerEv)
		}

		takerEv := OrderEvent{
			Symbol:    book.Symbol,
			Seq:       e.orderSeqs.next(book.Symbol),
			At:        now,
			OrderID:   taker.ID,
			Side:      taker.Side,
			Price:     taker.Price,
			Remaining: taker.Remaining,
		}
		if taker.Remaining == 0 {
			taker.State = orderbook.StateFilled
			takerEv.Type = EventFilled
		} else {
			taker.State = orderbook.StatePartiallyFilled
			takerEv.Type = EventPartiallyFilled
		}
		e.sink.LogOrder(takerEv)
	}
	return fills
}

// rest inserts the residual of a limit order into its own side.
func (e *Engine) rest(book *orderbook.Book, o *orderbook.Order) {
	book.Insert(o)
	e.sink.LogOrder(OrderEvent{
		Symbol:    book.Symbol,
		Seq:       e.orderSeqs.next(book.Symbol),
		At:        time.Now(),
		Type:      EventNewAccepted,
		OrderID:   o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Remaining: o.Remaining,
	})
}

func (e *Engine) cancel(book *orderbook.Book, r Cancel) Outcome {
	o := book.Lookup(r.OrderID)
	if o == nil {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonUnknownOrder,
			Message: "order not found",
		}
	}

	o.State = orderbook.StateCancelled
	e.sink.LogOrder(OrderEvent{
		Symbol:    book.Symbol,
		Seq:       e.orderSeqs.next(book.Symbol),
		At:        time.Now(),
		Type:      EventCanceled,
		OrderID:   o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Remaining: o.Remaining,
	})
	book.Remove(r.OrderID)

	return Outcome{
		Status:  StatusOK,
		Message: "order cancelled successfully",
	}
}

func (e *Engine) modify(book *orderbook.Book, r Modify) Outcome {
	old := book.Lookup(r.OrderID)
	if old == nil {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonUnknownOrder,
			Message: "order not found",
		}
	}
	if r.NewQty == 0 {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonInvalidQuantity,
			Message: "quantity must be positive",
		}
	}
	if old.Kind == orderbook.KindLimit && r.NewPrice <= 0 {
		return Outcome{
			Status:  StatusRejected,
			Reason:  ReasonInvalidPrice,
			Message: "limit orders require a positive price",
		}
	}

	e.sink.LogOrder(OrderEvent{
		Symbol:    book.Symbol,
		Seq:       e.orderSeqs.next(book.Symbol),
		At:        time.Now(),
		Type:      EventReplaced,
		OrderID:   old.ID,
		Side:      old.Side,
		Price:     r.NewPrice,
		Remaining: r.NewQty,
	})
	book.Remove(r.OrderID)

	// resubmit under the same id and client; priority is reset
	replacement := &orderbook.Order{
		ID:        old.ID,
		Client:    old.Client,
		Side:      old.Side,
		Kind:      old.Kind,
		Price:     r.NewPrice,
		Qty:       r.NewQty,
		Remaining: r.NewQty,
		State:     orderbook.StateActive,
		Admitted:  time.Now(),
		AdmitSeq:  orderbook.NextAdmitSeq(),
	}
	out := e.submit(book, replacement)
	out.Message = "order modified: " + out.Message
	return out
}

// crosses reports whether the taker can trade against the resting maker.
// Market takers cross any price.
func crosses(taker, maker *orderbook.Order) bool {
	if taker.Side == maker.Side {
		return false
	}
	if taker.Kind == orderbook.KindMarket {
		return true
	}
	if taker.Side == orderbook.SideBuy {
		return taker.Price >= maker.Price
	}
	return taker.Price <= maker.Price
}

func sumQty(fills []Fill) orderbook.Quantity {
	var total orderbook.Quantity
	for i := range fills {
		total += fills[i].Qty
	}
	return total
}
