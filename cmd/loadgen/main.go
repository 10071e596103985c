// Command loadgen drives a local exchange with synthetic order flow and
// reports throughput. Stress symbols are paced by the calm/active/burst
// controller; normal symbols run at a fixed interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/eventlog"
	"github.com/ndrandal/matchbook/internal/exchange"
	"github.com/ndrandal/matchbook/internal/flowgen"
	"github.com/ndrandal/matchbook/internal/symbol"
)

func main() {
	var (
		total    = flag.Int("n", 100000, "Total requests to generate (0 = run until interrupted)")
		seed     = flag.Int64("seed", 0, "PRNG seed (0 = random)")
		workers  = flag.Int("workers", 0, "Worker pool size (0 = one per CPU)")
		logDir   = flag.String("log-dir", "logs", "Directory for orders/trades/requests logs")
		interval = flag.Duration("interval", time.Millisecond, "Pause between batches for normal symbols")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	rng := flowgen.NewRNG(*seed)
	log.Printf("PRNG seed: %d", *seed)

	syms := symbol.Defaults()

	sinks, err := eventlog.OpenSinks(*logDir)
	if err != nil {
		log.Fatalf("open event logs: %v", err)
	}
	defer sinks.Close()
	writer := eventlog.NewWriter(sinks, 0)

	ex, err := exchange.New(symbol.Tickers(syms), *workers, writer)
	if err != nil {
		log.Fatalf("create exchange: %v", err)
	}

	// One generator per symbol; accepted order ids feed back from the
	// event stream so cancels and modifies target live orders.
	gens := make(map[string]*flowgen.Generator, len(syms))
	for _, s := range syms {
		gens[s.Ticker] = flowgen.NewGenerator(rng, s)
	}
	writer.OnOrder = func(ev engine.OrderEvent) {
		if ev.Type == engine.EventNewAccepted {
			if g, ok := gens[ev.Symbol]; ok {
				g.Observe(uint64(ev.OrderID))
			}
		}
	}

	var sent, okCount, rejCount atomic.Uint64
	budget := int64(*total)
	var remaining atomic.Int64
	remaining.Store(budget)

	drain := func(ch <-chan engine.Outcome) {
		out := <-ch
		if out.Status == engine.StatusOK {
			okCount.Add(1)
		} else {
			rejCount.Add(1)
		}
	}

	t0 := time.Now()

	var wg sync.WaitGroup
	for _, s := range syms {
		s := s
		g := gens[s.Ticker]
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ctrl *flowgen.StressController
			if s.IsStress {
				ctrl = flowgen.NewStressController(rng, flowgen.DefaultStressConfig())
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pause := *interval
				batch := 1
				if ctrl != nil {
					pause, batch = ctrl.Tick()
				}

				for i := 0; i < batch; i++ {
					if budget > 0 && remaining.Add(-1) < 0 {
						return
					}
					sent.Add(1)
					drain(ex.Submit(g.Next()))
				}
				time.Sleep(pause)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(t0)
	ex.Shutdown()
	writer.Close()

	n := sent.Load()
	fmt.Printf("\nsent %d requests in %v (%.0f req/s)\n", n, elapsed, float64(n)/elapsed.Seconds())
	fmt.Printf("ok=%d rejected=%d events dropped=%d\n", okCount.Load(), rejCount.Load(), writer.Dropped())
}
