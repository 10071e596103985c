// Command replay loads trading requests from a CSV file, runs them through
// the matching engine and writes the orders/trades/requests logs.
//
// Usage: replay [orders.csv]
//
// Exits 1 when the file yields no requests.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/eventlog"
	"github.com/ndrandal/matchbook/internal/exchange"
	"github.com/ndrandal/matchbook/internal/loader"
)

func main() {
	var (
		symbolFlag = flag.String("symbol", "NEXO", "Symbol the requests trade")
		logDir     = flag.String("log-dir", "logs", "Directory for orders/trades/requests logs")
		workers    = flag.Int("workers", 0, "Worker pool size (0 = one per CPU)")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	path := "orders.csv"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	log.Printf("loading requests from %s", path)
	reqs, stats, err := loader.LoadCSV(path, *symbolFlag)
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}
	log.Printf("loaded %d requests (%d invalid lines skipped)", stats.Loaded, stats.Skipped)

	if len(reqs) == 0 {
		log.Println("no requests loaded, exiting")
		os.Exit(1)
	}

	sinks, err := eventlog.OpenSinks(*logDir)
	if err != nil {
		log.Fatalf("open event logs: %v", err)
	}
	defer sinks.Close()
	writer := eventlog.NewWriter(sinks, 0)

	ex, err := exchange.New([]string{*symbolFlag}, *workers, writer)
	if err != nil {
		log.Fatalf("create exchange: %v", err)
	}

	t0 := time.Now()

	// Pipeline through the strand: submit everything, then wait. The
	// per-symbol serializer preserves file order.
	outcomes := make([]<-chan engine.Outcome, len(reqs))
	for i, req := range reqs {
		outcomes[i] = ex.Submit(req)
	}

	var ok, rejected int
	var filled uint64
	for _, ch := range outcomes {
		out := <-ch
		switch out.Status {
		case engine.StatusOK:
			ok++
		case engine.StatusRejected:
			rejected++
		}
		filled += uint64(out.TakerFilled)
	}
	elapsed := time.Since(t0)

	ex.Shutdown()
	writer.Close()

	tput := float64(len(reqs)) / elapsed.Seconds()
	fmt.Printf("\nprocessed %d requests in %v (%.0f req/s)\n", len(reqs), elapsed, tput)
	fmt.Printf("ok=%d rejected=%d total filled qty=%d\n", ok, rejected, filled)
	fmt.Printf("logs written to %s/{orders,trades,requests}.log\n", *logDir)
}
