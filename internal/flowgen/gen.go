package flowgen

import (
	"sync"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/orderbook"
	"github.com/ndrandal/matchbook/internal/symbol"
)

// Action weights for synthetic order flow.
var actionWeights = []float64{
	0.50, // add limit
	0.10, // add market
	0.25, // cancel
	0.15, // modify
}

const (
	actionAddLimit  = 0
	actionAddMarket = 1
	actionCancel    = 2
	actionModify    = 3
)

// maxTracked bounds the live-order id pool per generator.
const maxTracked = 4096

// Generator produces a stream of synthetic trading requests for one symbol:
// limit orders scattered around a random-walking reference price, market
// orders, and cancels/modifies of previously accepted orders. Feed accepted
// ids back via Observe so cancels and modifies hit live orders.
type Generator struct {
	rng *RNG
	sym symbol.Symbol

	ref     int64 // reference price random walk, in price ticks
	nextReq engine.RequestID

	mu   sync.Mutex
	live []uint64 // order ids seen resting
}

// NewGenerator creates a flow generator for a symbol.
func NewGenerator(rng *RNG, sym symbol.Symbol) *Generator {
	return &Generator{
		rng: rng,
		sym: sym,
		ref: sym.BasePrice,
	}
}

// Observe records an order id that rested in the book, making it a future
// cancel/modify target. Safe to call from the event writer's goroutine.
func (g *Generator) Observe(id uint64) {
	g.mu.Lock()
	if len(g.live) < maxTracked {
		g.live = append(g.live, id)
	}
	g.mu.Unlock()
}

// pickLive removes and returns a random tracked order id.
func (g *Generator) pickLive() (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.live) == 0 {
		return 0, false
	}
	i := g.rng.Intn(len(g.live))
	id := g.live[i]
	g.live[i] = g.live[len(g.live)-1]
	g.live = g.live[:len(g.live)-1]
	return id, true
}

// Next produces the next request. Request ids increase per generator.
func (g *Generator) Next() engine.Request {
	g.nextReq++

	switch g.rng.WeightedPick(actionWeights) {
	case actionAddMarket:
		return engine.NewOrder{
			RequestID: g.nextReq,
			Symbol:    g.sym.Ticker,
			Kind:      orderbook.KindMarket,
			Params: engine.NewOrderParams{
				Client: "flowgen",
				Side:   g.randomSide(),
				Qty:    g.randomQty(),
			},
		}

	case actionCancel:
		if id, ok := g.pickLive(); ok {
			return engine.Cancel{
				RequestID: g.nextReq,
				Symbol:    g.sym.Ticker,
				OrderID:   orderbook.OrderID(id),
			}
		}

	case actionModify:
		if id, ok := g.pickLive(); ok {
			g.Observe(id) // stays a target after the modify
			return engine.Modify{
				RequestID: g.nextReq,
				Symbol:    g.sym.Ticker,
				OrderID:   orderbook.OrderID(id),
				NewPrice:  g.randomPrice(),
				NewQty:    g.randomQty(),
			}
		}
	}

	// default (and fallback when no live orders exist): add a limit order
	return engine.NewOrder{
		RequestID: g.nextReq,
		Symbol:    g.sym.Ticker,
		Kind:      orderbook.KindLimit,
		Params: engine.NewOrderParams{
			Client: "flowgen",
			Side:   g.randomSide(),
			Price:  g.randomPrice(),
			Qty:    g.randomQty(),
		},
	}
}

func (g *Generator) randomSide() orderbook.Side {
	if g.rng.Float64() < 0.5 {
		return orderbook.SideBuy
	}
	return orderbook.SideSell
}

// randomQty returns 1-10 round lots.
func (g *Generator) randomQty() orderbook.Quantity {
	lots := g.rng.IntRange(1, 10)
	return orderbook.Quantity(int32(lots) * g.sym.LotSize)
}

// randomPrice walks the reference and scatters orders a few ticks around
// it, so some orders cross and some rest.
func (g *Generator) randomPrice() orderbook.Price {
	g.ref += int64(g.rng.Gaussian() * float64(g.sym.TickSize))
	if g.ref < g.sym.TickSize {
		g.ref = g.sym.TickSize
	}

	offset := int64(g.rng.Gaussian() * 5 * float64(g.sym.TickSize))
	px := g.ref + offset
	px -= px % g.sym.TickSize
	if px < g.sym.TickSize {
		px = g.sym.TickSize
	}
	return orderbook.Price(px)
}
