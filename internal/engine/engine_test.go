package engine

import (
	"testing"

	"github.com/ndrandal/matchbook/internal/orderbook"
)

// captureSink records emitted events in order for assertions.
type captureSink struct {
	orders []OrderEvent
	trades []TradeEvent
}

func (c *captureSink) LogOrder(ev OrderEvent) { c.orders = append(c.orders, ev) }
func (c *captureSink) LogTrade(ev TradeEvent) { c.trades = append(c.trades, ev) }

func newTestEngine(sym string) (*Engine, *captureSink, *orderbook.Book) {
	sink := &captureSink{}
	return NewEngine(sink), sink, orderbook.NewBook(sym)
}

func px(t *testing.T, s string) orderbook.Price {
	t.Helper()
	p, err := orderbook.PriceFromString(s)
	if err != nil {
		t.Fatalf("bad price %q: %v", s, err)
	}
	return p
}

func limit(reqID RequestID, sym string, side orderbook.Side, price orderbook.Price, qty orderbook.Quantity) NewOrder {
	return NewOrder{
		RequestID: reqID,
		Symbol:    sym,
		Kind:      orderbook.KindLimit,
		Params:    NewOrderParams{Client: "test", Side: side, Price: price, Qty: qty},
	}
}

func market(reqID RequestID, sym string, side orderbook.Side, qty orderbook.Quantity) NewOrder {
	return NewOrder{
		RequestID: reqID,
		Symbol:    sym,
		Kind:      orderbook.KindMarket,
		Params:    NewOrderParams{Client: "test", Side: side, Qty: qty},
	}
}

func TestSimpleCross(t *testing.T) {
	e, _, b := newTestEngine("S1")

	outA := e.ProcessRequest(b, limit(1, "S1", orderbook.SideBuy, px(t, "100"), 10))
	if outA.Status != StatusOK || len(outA.Fills) != 0 {
		t.Fatalf("first order outcome = %+v", outA)
	}
	makerID := b.Best(orderbook.SideBuy).ID

	outB := e.ProcessRequest(b, limit(2, "S1", orderbook.SideSell, px(t, "100"), 10))
	if outB.Status != StatusOK {
		t.Fatalf("second order status = %v", outB.Status)
	}
	if len(outB.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(outB.Fills))
	}
	f := outB.Fills[0]
	if f.MakerID != makerID || f.Price != px(t, "100") || f.Qty != 10 {
		t.Fatalf("fill = %+v", f)
	}
	if f.TakerIsBuy {
		t.Fatal("taker side should be SELL")
	}
	if outB.TakerFilled != 10 || outB.TakerRemains != 0 {
		t.Fatalf("taker filled/remaining = %d/%d", outB.TakerFilled, outB.TakerRemains)
	}
	if b.OrderCount() != 0 {
		t.Fatal("book should be empty after full cross")
	}
}

func TestPartialFillAndRest(t *testing.T) {
	e, _, b := newTestEngine("S2")

	e.ProcessRequest(b, limit(1, "S2", orderbook.SideSell, px(t, "50"), 4))
	out := e.ProcessRequest(b, limit(2, "S2", orderbook.SideBuy, px(t, "60"), 10))

	if out.Status != StatusOK {
		t.Fatalf("status = %v", out.Status)
	}
	if len(out.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(out.Fills))
	}
	// maker-price rule: executes at the resting 50, not the taker's 60
	if out.Fills[0].Price != px(t, "50") || out.Fills[0].Qty != 4 {
		t.Fatalf("fill = %+v", out.Fills[0])
	}
	if out.TakerFilled != 4 || out.TakerRemains != 6 {
		t.Fatalf("taker filled/remaining = %d/%d", out.TakerFilled, out.TakerRemains)
	}
	if !b.SideEmpty(orderbook.SideSell) {
		t.Fatal("ask side should be empty")
	}
	rest := b.Best(orderbook.SideBuy)
	if rest == nil || rest.Remaining != 6 || rest.Price != px(t, "60") {
		t.Fatalf("residual bid = %+v", rest)
	}
	if rest.State != orderbook.StatePartiallyFilled {
		t.Fatalf("residual state = %v", rest.State)
	}
}

func TestWalkTheBook(t *testing.T) {
	e, _, b := newTestEngine("S3")

	e.ProcessRequest(b, limit(1, "S3", orderbook.SideSell, px(t, "100"), 5))
	e.ProcessRequest(b, limit(2, "S3", orderbook.SideSell, px(t, "101"), 5))
	e.ProcessRequest(b, limit(3, "S3", orderbook.SideSell, px(t, "102"), 5))

	out := e.ProcessRequest(b, limit(4, "S3", orderbook.SideBuy, px(t, "102"), 12))
	if out.Status != StatusOK {
		t.Fatalf("status = %v", out.Status)
	}
	if len(out.Fills) != 3 {
		t.Fatalf("fills = %d, want 3", len(out.Fills))
	}
	wantPx := []string{"100", "101", "102"}
	wantQty := []orderbook.Quantity{5, 5, 2}
	for i, f := range out.Fills {
		if f.Price != px(t, wantPx[i]) || f.Qty != wantQty[i] {
			t.Fatalf("fill[%d] = %+v, want price %s qty %d", i, f, wantPx[i], wantQty[i])
		}
	}
	if out.TakerFilled != 12 || out.TakerRemains != 0 {
		t.Fatalf("taker filled/remaining = %d/%d", out.TakerFilled, out.TakerRemains)
	}
	// M3 partially filled with 3 remaining at 102, no residual bid
	if !b.SideEmpty(orderbook.SideBuy) {
		t.Fatal("no residual bid expected")
	}
	m3 := b.Best(orderbook.SideSell)
	if m3 == nil || m3.Remaining != 3 || m3.Price != px(t, "102") {
		t.Fatalf("M3 = %+v", m3)
	}
	if m3.State != orderbook.StatePartiallyFilled {
		t.Fatalf("M3 state = %v", m3.State)
	}
}

func TestMarketRejectedEmptyBook(t *testing.T) {
	e, sink, b := newTestEngine("S4")

	out := e.ProcessRequest(b, market(1, "S4", orderbook.SideBuy, 5))
	if out.Status != StatusRejected || out.Reason != ReasonBookClosed {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Fills) != 0 {
		t.Fatal("no fills expected")
	}
	if len(sink.orders) != 0 || len(sink.trades) != 0 {
		t.Fatalf("no events expected, got %d orders %d trades", len(sink.orders), len(sink.trades))
	}
	if b.OrderCount() != 0 {
		t.Fatal("book should be untouched")
	}
}

func TestMarketPartialRejected(t *testing.T) {
	e, _, b := newTestEngine("S5")

	e.ProcessRequest(b, limit(1, "S5", orderbook.SideSell, px(t, "100"), 3))
	out := e.ProcessRequest(b, market(2, "S5", orderbook.SideBuy, 10))

	if out.Status != StatusRejected || out.Reason != ReasonBookClosed {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Fills) != 1 || out.Fills[0].Qty != 3 || out.Fills[0].Price != px(t, "100") {
		t.Fatalf("fills = %+v", out.Fills)
	}
	if out.TakerFilled != 3 || out.TakerRemains != 7 {
		t.Fatalf("taker filled/remaining = %d/%d", out.TakerFilled, out.TakerRemains)
	}
	// residual is never rested
	if b.OrderCount() != 0 {
		t.Fatal("market residual must not rest")
	}
}

func TestMarketFullFillIsOK(t *testing.T) {
	e, _, b := newTestEngine("S5b")

	e.ProcessRequest(b, limit(1, "S5b", orderbook.SideSell, px(t, "100"), 10))
	out := e.ProcessRequest(b, market(2, "S5b", orderbook.SideBuy, 10))
	if out.Status != StatusOK {
		t.Fatalf("status = %v, want OK for fully filled market order", out.Status)
	}
	if out.TakerFilled != 10 || out.TakerRemains != 0 {
		t.Fatalf("taker filled/remaining = %d/%d", out.TakerFilled, out.TakerRemains)
	}
}

func TestCancelThenCancelAgain(t *testing.T) {
	e, sink, b := newTestEngine("S6")

	e.ProcessRequest(b, limit(1, "S6", orderbook.SideBuy, px(t, "100"), 10))
	id := b.Best(orderbook.SideBuy).ID

	out := e.ProcessRequest(b, Cancel{RequestID: 2, Symbol: "S6", OrderID: id})
	if out.Status != StatusOK {
		t.Fatalf("cancel status = %v", out.Status)
	}
	if b.OrderCount() != 0 {
		t.Fatal("book should be empty")
	}
	last := sink.orders[len(sink.orders)-1]
	if last.Type != EventCanceled || last.OrderID != id {
		t.Fatalf("last event = %+v, want CANCELED for %d", last, id)
	}

	events := len(sink.orders)
	again := e.ProcessRequest(b, Cancel{RequestID: 3, Symbol: "S6", OrderID: id})
	if again.Status != StatusRejected || again.Reason != ReasonUnknownOrder {
		t.Fatalf("second cancel = %+v", again)
	}
	if len(sink.orders) != events {
		t.Fatal("rejected cancel must not emit events")
	}
}

func TestModifyResetsPriority(t *testing.T) {
	e, sink, b := newTestEngine("MOD")

	e.ProcessRequest(b, limit(1, "MOD", orderbook.SideBuy, px(t, "100"), 10))
	first := b.Best(orderbook.SideBuy).ID
	e.ProcessRequest(b, limit(2, "MOD", orderbook.SideBuy, px(t, "100"), 20))

	out := e.ProcessRequest(b, Modify{RequestID: 3, Symbol: "MOD", OrderID: first, NewPrice: px(t, "100"), NewQty: 10})
	if out.Status != StatusOK {
		t.Fatalf("modify status = %v", out.Status)
	}

	// the modified order keeps its id but goes to the back of the level
	orders := b.OrdersOn(orderbook.SideBuy)
	if len(orders) != 2 {
		t.Fatalf("resting orders = %d, want 2", len(orders))
	}
	if orders[1].ID != first {
		t.Fatalf("modified order should be last at its level, got order %d first=%d", orders[1].ID, first)
	}

	var replaced *OrderEvent
	for i := range sink.orders {
		if sink.orders[i].Type == EventReplaced {
			replaced = &sink.orders[i]
		}
	}
	if replaced == nil {
		t.Fatal("no REPLACED event emitted")
	}
	if replaced.OrderID != first || replaced.Remaining != 10 {
		t.Fatalf("REPLACED event = %+v", replaced)
	}
}

func TestModifyCanCross(t *testing.T) {
	e, _, b := newTestEngine("MODX")

	e.ProcessRequest(b, limit(1, "MODX", orderbook.SideSell, px(t, "105"), 5))
	e.ProcessRequest(b, limit(2, "MODX", orderbook.SideBuy, px(t, "100"), 5))
	bid := b.Best(orderbook.SideBuy).ID

	out := e.ProcessRequest(b, Modify{RequestID: 3, Symbol: "MODX", OrderID: bid, NewPrice: px(t, "105"), NewQty: 5})
	if out.Status != StatusOK {
		t.Fatalf("modify status = %v", out.Status)
	}
	if len(out.Fills) != 1 || out.Fills[0].Price != px(t, "105") {
		t.Fatalf("fills = %+v", out.Fills)
	}
	if b.OrderCount() != 0 {
		t.Fatal("both orders should be gone after the cross")
	}
}

func TestInvalidParamsRejected(t *testing.T) {
	e, sink, b := newTestEngine("VAL")

	out := e.ProcessRequest(b, limit(1, "VAL", orderbook.SideBuy, px(t, "100"), 0))
	if out.Status != StatusRejected || out.Reason != ReasonInvalidQuantity {
		t.Fatalf("zero qty outcome = %+v", out)
	}

	out = e.ProcessRequest(b, limit(2, "VAL", orderbook.SideSell, 0, 5))
	if out.Status != StatusRejected || out.Reason != ReasonInvalidPrice {
		t.Fatalf("zero price outcome = %+v", out)
	}

	if b.OrderCount() != 0 || len(sink.orders) != 0 {
		t.Fatal("rejected orders must not touch the book or emit events")
	}

	// modify to zero quantity is rejected, book untouched
	e.ProcessRequest(b, limit(3, "VAL", orderbook.SideBuy, px(t, "100"), 5))
	id := b.Best(orderbook.SideBuy).ID
	out = e.ProcessRequest(b, Modify{RequestID: 4, Symbol: "VAL", OrderID: id, NewPrice: px(t, "100"), NewQty: 0})
	if out.Status != StatusRejected || out.Reason != ReasonInvalidQuantity {
		t.Fatalf("zero-qty modify outcome = %+v", out)
	}
	if b.Lookup(id) == nil {
		t.Fatal("rejected modify must leave the order resting")
	}
}

func TestModifyUnknownOrder(t *testing.T) {
	e, _, b := newTestEngine("MODU")
	out := e.ProcessRequest(b, Modify{RequestID: 1, Symbol: "MODU", OrderID: 424242, NewPrice: px(t, "1"), NewQty: 1})
	if out.Status != StatusRejected || out.Reason != ReasonUnknownOrder {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	e, sink, b := newTestEngine("BAD")

	out := e.ProcessRequest(b, NewOrder{
		RequestID: 7,
		Symbol:    "BAD",
		Kind:      orderbook.OrderKind('?'),
		Params:    NewOrderParams{Side: orderbook.SideBuy, Qty: 1},
	})
	if out.Status != StatusRejected || out.Reason != ReasonInvalidPrice {
		t.Fatalf("outcome = %+v", out)
	}
	if out.RequestID != 7 {
		t.Fatalf("request id = %d, want 7", out.RequestID)
	}
	if b.OrderCount() != 0 {
		t.Fatal("book must not change")
	}
	if len(sink.orders) != 1 {
		t.Fatalf("events = %d, want 1 REJECTED", len(sink.orders))
	}
	ev := sink.orders[0]
	if ev.Type != EventRejected || ev.OrderID != 0 || ev.Reason != ReasonInvalidPrice {
		t.Fatalf("event = %+v", ev)
	}
}

func TestEventOrderAndSequences(t *testing.T) {
	e, sink, b := newTestEngine("SEQ")

	e.ProcessRequest(b, limit(1, "SEQ", orderbook.SideSell, px(t, "100"), 5))
	e.ProcessRequest(b, limit(2, "SEQ", orderbook.SideBuy, px(t, "100"), 3))

	// NEW_ACCEPTED for the sell, then per match: trade, maker event, taker event
	if len(sink.trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(sink.trades))
	}
	if len(sink.orders) != 3 {
		t.Fatalf("order events = %d, want 3", len(sink.orders))
	}
	if sink.orders[0].Type != EventNewAccepted {
		t.Fatalf("orders[0] = %v, want NEW_ACCEPTED", sink.orders[0].Type)
	}
	if sink.orders[1].Type != EventPartiallyFilled {
		t.Fatalf("orders[1] (maker) = %v, want PARTIALLY_FILLED", sink.orders[1].Type)
	}
	if sink.orders[2].Type != EventFilled {
		t.Fatalf("orders[2] (taker) = %v, want FILLED", sink.orders[2].Type)
	}

	// per-symbol order sequence strictly increasing with no gaps
	for i, ev := range sink.orders {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("order seq[%d] = %d, want %d", i, ev.Seq, i+1)
		}
	}
	if sink.trades[0].Seq != 1 || sink.trades[0].Fill.MatchSeq != 1 {
		t.Fatalf("trade seq/match seq = %d/%d, want 1/1", sink.trades[0].Seq, sink.trades[0].Fill.MatchSeq)
	}
}

func TestSequencesIndependentPerSymbol(t *testing.T) {
	sink := &captureSink{}
	e := NewEngine(sink)
	ba := orderbook.NewBook("AAA")
	bb := orderbook.NewBook("BBB")

	e.ProcessRequest(ba, limit(1, "AAA", orderbook.SideBuy, px(t, "10"), 1))
	e.ProcessRequest(bb, limit(2, "BBB", orderbook.SideBuy, px(t, "10"), 1))

	if sink.orders[0].Seq != 1 || sink.orders[1].Seq != 1 {
		t.Fatalf("seqs = %d,%d; each symbol counts from 1", sink.orders[0].Seq, sink.orders[1].Seq)
	}
}

// bookInvariants asserts the §8 structural invariants.
func bookInvariants(t *testing.T, b *orderbook.Book) {
	t.Helper()

	bestBid, bestAsk := b.BestBid(), b.BestAsk()
	if bestBid > 0 && bestAsk > 0 && bestBid >= bestAsk {
		t.Fatalf("crossed book: bid %d >= ask %d", bestBid, bestAsk)
	}

	bids := b.OrdersOn(orderbook.SideBuy)
	for i := 1; i < len(bids); i++ {
		if bids[i].Price > bids[i-1].Price {
			t.Fatalf("bids out of order at %d", i)
		}
		if bids[i].Price == bids[i-1].Price && bids[i].AdmitSeq < bids[i-1].AdmitSeq {
			t.Fatalf("bid time priority violated at %d", i)
		}
	}
	asks := b.OrdersOn(orderbook.SideSell)
	for i := 1; i < len(asks); i++ {
		if asks[i].Price < asks[i-1].Price {
			t.Fatalf("asks out of order at %d", i)
		}
		if asks[i].Price == asks[i-1].Price && asks[i].AdmitSeq < asks[i-1].AdmitSeq {
			t.Fatalf("ask time priority violated at %d", i)
		}
	}

	for _, o := range append(bids, asks...) {
		if o.Kind == orderbook.KindMarket {
			t.Fatalf("market order %d resting", o.ID)
		}
		if o.Remaining == 0 {
			t.Fatalf("zero-remaining order %d resting", o.ID)
		}
		if o.State != orderbook.StateActive && o.State != orderbook.StatePartiallyFilled {
			t.Fatalf("resting order %d in state %v", o.ID, o.State)
		}
		if b.Lookup(o.ID) != o {
			t.Fatalf("handle integrity broken for %d", o.ID)
		}
	}
}

func TestInvariantsUnderMixedFlow(t *testing.T) {
	e, _, b := newTestEngine("INV")

	reqs := []Request{
		limit(1, "INV", orderbook.SideBuy, px(t, "99"), 10),
		limit(2, "INV", orderbook.SideBuy, px(t, "100"), 10),
		limit(3, "INV", orderbook.SideSell, px(t, "101"), 5),
		limit(4, "INV", orderbook.SideSell, px(t, "100"), 7),
		market(5, "INV", orderbook.SideBuy, 3),
		limit(6, "INV", orderbook.SideSell, px(t, "98"), 25),
		market(7, "INV", orderbook.SideSell, 50),
		limit(8, "INV", orderbook.SideBuy, px(t, "97"), 4),
	}
	for _, r := range reqs {
		e.ProcessRequest(b, r)
		bookInvariants(t, b)
	}
}

func TestConservationOfQuantity(t *testing.T) {
	e, sink, b := newTestEngine("CONS")

	e.ProcessRequest(b, limit(1, "CONS", orderbook.SideSell, px(t, "100"), 8))
	sellID := b.Best(orderbook.SideSell).ID
	e.ProcessRequest(b, limit(2, "CONS", orderbook.SideBuy, px(t, "100"), 5))
	e.ProcessRequest(b, limit(3, "CONS", orderbook.SideBuy, px(t, "100"), 5))

	var filled orderbook.Quantity
	for _, tr := range sink.trades {
		if tr.Fill.MakerID == sellID {
			filled += tr.Fill.Qty
		}
	}
	if filled != 8 {
		t.Fatalf("maker filled %d, want 8", filled)
	}
	// original 8 = fills 8 + 0 in book
	if b.Lookup(sellID) != nil {
		t.Fatal("fully filled maker still resting")
	}
	// the second buy keeps its residual: 5+5 admitted, 8 filled, 2 resting
	rest := b.Best(orderbook.SideBuy)
	if rest == nil || rest.Remaining != 2 {
		t.Fatalf("residual = %+v, want remaining 2", rest)
	}
}
