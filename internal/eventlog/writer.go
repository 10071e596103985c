package eventlog

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/ndrandal/matchbook/internal/engine"
)

// DefaultCapacity bounds the writer queue when the caller passes 0.
const DefaultCapacity = 65536

type entryKind byte

const (
	kindOrder entryKind = iota
	kindTrade
	kindOutcome
)

type entry struct {
	kind    entryKind
	order   engine.OrderEvent
	trade   engine.TradeEvent
	outcome engine.Outcome
}

// Writer is the asynchronous event pipeline: producers append to a bounded
// FIFO under a mutex and a single consumer goroutine drains it into the
// file sinks. Posting never blocks the matching path; when the queue is at
// capacity the entry is dropped and counted. Close drains whatever was
// accepted before returning.
type Writer struct {
	sinks *Sinks

	// Optional per-kind hooks, invoked on the consumer goroutine after the
	// file write. Wire them before the first request flows.
	OnOrder   func(engine.OrderEvent)
	OnTrade   func(engine.TradeEvent)
	OnOutcome func(engine.Outcome)

	mu     sync.Mutex
	queue  []entry
	cap    int
	closed bool

	wake    chan struct{}
	done    chan struct{}
	dropped atomic.Uint64
}

// NewWriter creates a writer over the given sinks and starts its consumer.
func NewWriter(sinks *Sinks, capacity int) *Writer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	w := &Writer{
		sinks: sinks,
		cap:   capacity,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// LogOrder enqueues an order event. No-op after Close.
func (w *Writer) LogOrder(ev engine.OrderEvent) {
	w.post(entry{kind: kindOrder, order: ev})
}

// LogTrade enqueues a trade event. No-op after Close.
func (w *Writer) LogTrade(ev engine.TradeEvent) {
	w.post(entry{kind: kindTrade, trade: ev})
}

// LogOutcome enqueues a request outcome. No-op after Close.
func (w *Writer) LogOutcome(out engine.Outcome) {
	w.post(entry{kind: kindOutcome, outcome: out})
}

func (w *Writer) post(e entry) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if len(w.queue) >= w.cap {
		w.mu.Unlock()
		w.dropped.Add(1)
		return
	}
	w.queue = append(w.queue, e)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the number of entries discarded due to a full queue.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops intake, waits for the consumer to drain every accepted entry,
// and joins it. Safe to call more than once; later calls wait for the
// consumer to finish and return.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done

	if n := w.dropped.Load(); n > 0 {
		log.Printf("event writer: dropped %d events under backpressure", n)
	}
}

// run is the single consumer: it swaps the queue out under the lock, writes
// the batch in order, and parks on the wake channel when idle.
func (w *Writer) run() {
	for {
		w.mu.Lock()
		batch := w.queue
		w.queue = nil
		closed := w.closed
		w.mu.Unlock()

		for i := range batch {
			w.dispatch(&batch[i])
		}

		if len(batch) == 0 {
			if closed {
				close(w.done)
				return
			}
			<-w.wake
		}
	}
}

// dispatch writes one entry to its sink. Sink failures are logged and never
// propagate: persistence problems must not fail requests.
func (w *Writer) dispatch(e *entry) {
	switch e.kind {
	case kindOrder:
		if err := w.sinks.writeOrder(e.order); err != nil {
			log.Printf("event writer: order log: %v", err)
		}
		if w.OnOrder != nil {
			w.OnOrder(e.order)
		}
	case kindTrade:
		if err := w.sinks.writeTrade(e.trade); err != nil {
			log.Printf("event writer: trade log: %v", err)
		}
		if w.OnTrade != nil {
			w.OnTrade(e.trade)
		}
	case kindOutcome:
		if err := w.sinks.writeOutcome(e.outcome); err != nil {
			log.Printf("event writer: request log: %v", err)
		}
		if w.OnOutcome != nil {
			w.OnOutcome(e.outcome)
		}
	}
}
