package exchange

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/orderbook"
)

// assetContext pairs one symbol's book with the strand that serializes
// access to it.
type assetContext struct {
	symbol string
	strand *Strand
	book   *orderbook.Book
}

// Exchange routes trading requests to per-symbol strands running on a
// shared worker pool, and fans engine events into the event log.
type Exchange struct {
	pool   *ants.Pool
	eng    *engine.Engine
	events engine.EventLog
	assets map[string]*assetContext

	closed    atomic.Bool
	processed atomic.Uint64
}

// New creates an exchange for the given symbols. workers <= 0 means one
// worker per CPU. Events and request outcomes are delivered to events.
func New(symbols []string, workers int, events engine.EventLog) (*Exchange, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	ex := &Exchange{
		pool:   pool,
		eng:    engine.NewEngine(events),
		events: events,
		assets: make(map[string]*assetContext, len(symbols)),
	}
	for _, sym := range symbols {
		ex.assets[sym] = &assetContext{
			symbol: sym,
			strand: NewStrand(pool),
			book:   orderbook.NewBook(sym),
		}
	}
	return ex, nil
}

// Submit posts a request to its symbol's strand and returns a one-slot
// channel that receives the outcome once the serialized task has run.
// Unknown symbols and requests arriving after Shutdown resolve immediately
// without touching any book.
func (ex *Exchange) Submit(req engine.Request) <-chan engine.Outcome {
	ch := make(chan engine.Outcome, 1)

	ac, ok := ex.assets[req.ReqSymbol()]
	if !ok {
		out := engine.Outcome{
			RequestID: req.ReqID(),
			Status:    engine.StatusRejected,
			Reason:    engine.ReasonUnknownSymbol,
			Message:   "unknown symbol: " + req.ReqSymbol(),
		}
		ex.events.LogOutcome(out)
		ch <- out
		return ch
	}
	if ex.closed.Load() {
		ch <- engine.Outcome{
			RequestID: req.ReqID(),
			Status:    engine.StatusNoop,
			Message:   "exchange is shut down",
		}
		return ch
	}

	ac.strand.Post(func() {
		out := ex.eng.ProcessRequest(ac.book, req)
		ex.processed.Add(1)
		ex.events.LogOutcome(out)
		ch <- out
	})
	return ch
}

// Process submits a request and blocks for its outcome.
func (ex *Exchange) Process(req engine.Request) engine.Outcome {
	return <-ex.Submit(req)
}

// Depth snapshots a symbol's book through its strand. Returns false for an
// unknown symbol.
func (ex *Exchange) Depth(symbol string, maxLevels int) (orderbook.DepthSnapshot, bool) {
	ac, ok := ex.assets[symbol]
	if !ok || ex.closed.Load() {
		return orderbook.DepthSnapshot{}, false
	}
	ch := make(chan orderbook.DepthSnapshot, 1)
	ac.strand.Post(func() {
		ch <- ac.book.Depth(maxLevels)
	})
	return <-ch, true
}

// Symbols returns the configured symbol list.
func (ex *Exchange) Symbols() []string {
	out := make([]string, 0, len(ex.assets))
	for sym := range ex.assets {
		out = append(out, sym)
	}
	return out
}

// Processed returns the number of requests executed so far.
func (ex *Exchange) Processed() uint64 {
	return ex.processed.Load()
}

// Shutdown stops intake, waits for every strand to drain its queued work,
// then releases the pool. The event writer is owned by the caller and is
// closed after this returns, so all emitted events survive.
func (ex *Exchange) Shutdown() {
	if ex.closed.Swap(true) {
		return
	}

	var wg sync.WaitGroup
	for _, ac := range ex.assets {
		wg.Add(1)
		ac.strand.Post(wg.Done)
	}
	wg.Wait()

	ex.pool.Release()
	log.Printf("exchange stopped after %d requests", ex.processed.Load())
}
