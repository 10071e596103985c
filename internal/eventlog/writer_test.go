package eventlog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/orderbook"
)

func newTestWriter(t *testing.T, capacity int) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	sinks, err := OpenSinks(dir)
	if err != nil {
		t.Fatalf("open sinks: %v", err)
	}
	t.Cleanup(sinks.Close)
	return NewWriter(sinks, capacity), dir
}

func readLines(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func orderEvent(sym string, seq uint64) engine.OrderEvent {
	return engine.OrderEvent{
		Symbol:    sym,
		Seq:       seq,
		At:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local),
		Type:      engine.EventNewAccepted,
		OrderID:   1001,
		Side:      orderbook.SideBuy,
		Price:     1002500,
		Remaining: 10,
	}
}

func TestWriterOrderFormat(t *testing.T) {
	w, dir := newTestWriter(t, 0)
	w.LogOrder(orderEvent("NEXO", 1))
	w.Close()

	lines := readLines(t, dir, "orders.log")
	if len(lines) != 1 {
		t.Fatalf("orders.log lines = %d, want 1", len(lines))
	}
	want := "2026-03-14 09:30:00,NEXO,1,NEW_ACCEPTED,1001,BUY,100.25,10"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestWriterTradeFormat(t *testing.T) {
	w, dir := newTestWriter(t, 0)
	w.LogTrade(engine.TradeEvent{
		Symbol: "NEXO",
		Seq:    3,
		At:     time.Date(2026, 3, 14, 9, 31, 0, 0, time.Local),
		Fill: engine.Fill{
			Symbol:     "NEXO",
			TakerID:    1002,
			MakerID:    1001,
			Price:      1002500,
			Qty:        5,
			TakerIsBuy: true,
			MatchSeq:   1,
		},
	})
	w.Close()

	lines := readLines(t, dir, "trades.log")
	want := "2026-03-14 09:31:00,NEXO,3,NEXO,1002,1001,100.25,5,BUY,1"
	if len(lines) != 1 || lines[0] != want {
		t.Fatalf("trades.log = %v, want %q", lines, want)
	}
}

func TestWriterOutcomeFormat(t *testing.T) {
	w, dir := newTestWriter(t, 0)
	w.LogOutcome(engine.Outcome{
		RequestID:    7,
		Status:       engine.StatusRejected,
		Reason:       engine.ReasonBookClosed,
		Message:      "market order partially filled - insufficient liquidity",
		TakerFilled:  3,
		TakerRemains: 7,
		Fills: []engine.Fill{{
			Symbol:     "NEXO",
			TakerID:    1002,
			MakerID:    1001,
			Price:      1000000,
			Qty:        3,
			TakerIsBuy: true,
			MatchSeq:   1,
		}},
	})
	w.Close()

	lines := readLines(t, dir, "requests.log")
	want := `7,REJECTED,BOOK_CLOSED,"market order partially filled - insufficient liquidity",3,7,1,[NEXO,1002,1001,100.00,3,BUY,1]`
	if len(lines) != 1 || lines[0] != want {
		t.Fatalf("requests.log = %v, want %q", lines, want)
	}
}

func TestWriterPreservesOrder(t *testing.T) {
	w, dir := newTestWriter(t, 0)
	const n = 500
	for i := 1; i <= n; i++ {
		w.LogOrder(orderEvent("SEQ", uint64(i)))
	}
	w.Close()

	lines := readLines(t, dir, "orders.log")
	if len(lines) != n {
		t.Fatalf("lines = %d, want %d", len(lines), n)
	}
	for i, line := range lines {
		fields := strings.Split(line, ",")
		if fields[2] != strconv.Itoa(i+1) {
			t.Fatalf("line %d has seq %s, want %d", i, fields[2], i+1)
		}
	}
}

func TestWriterDropsWhenFull(t *testing.T) {
	dir := t.TempDir()
	sinks, err := OpenSinks(dir)
	if err != nil {
		t.Fatalf("open sinks: %v", err)
	}
	defer sinks.Close()

	w := &Writer{
		sinks: sinks,
		cap:   4,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	// fill the queue before the consumer exists so the cap must bite
	for i := 1; i <= 10; i++ {
		w.post(entry{kind: kindOrder, order: orderEvent("FULL", uint64(i))})
	}
	if got := w.Dropped(); got != 6 {
		t.Fatalf("dropped = %d, want 6", got)
	}
	go w.run()
	w.Close()

	lines := readLines(t, dir, "orders.log")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4 (accepted entries only)", len(lines))
	}
}

func TestWriterPostAfterCloseIsNoop(t *testing.T) {
	w, dir := newTestWriter(t, 0)
	w.LogOrder(orderEvent("X", 1))
	w.Close()

	w.LogOrder(orderEvent("X", 2))
	w.LogTrade(engine.TradeEvent{Symbol: "X"})
	w.LogOutcome(engine.Outcome{RequestID: 1})

	lines := readLines(t, dir, "orders.log")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1 (post after close ignored)", len(lines))
	}
}

func TestWriterHooksRunOnConsumer(t *testing.T) {
	dir := t.TempDir()
	sinks, err := OpenSinks(dir)
	if err != nil {
		t.Fatalf("open sinks: %v", err)
	}
	defer sinks.Close()

	var orders, trades, outcomes int
	w := NewWriter(sinks, 0)
	w.OnOrder = func(engine.OrderEvent) { orders++ }
	w.OnTrade = func(engine.TradeEvent) { trades++ }
	w.OnOutcome = func(engine.Outcome) { outcomes++ }

	w.LogOrder(orderEvent("H", 1))
	w.LogTrade(engine.TradeEvent{Symbol: "H", Fill: engine.Fill{Symbol: "H"}})
	w.LogOutcome(engine.Outcome{RequestID: 1})
	w.Close()

	// Close joins the consumer, so the hook counts are settled
	if orders != 1 || trades != 1 || outcomes != 1 {
		t.Fatalf("hooks ran %d/%d/%d times, want 1/1/1", orders, trades, outcomes)
	}
}
