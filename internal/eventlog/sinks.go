package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ndrandal/matchbook/internal/engine"
)

// timeLayout is the log timestamp format: local calendar time to the second.
const timeLayout = "2006-01-02 15:04:05"

// Sinks owns the three append-only log files the writer dispatches into.
type Sinks struct {
	orders   *os.File
	trades   *os.File
	requests *os.File
}

// OpenSinks creates dir if needed and opens orders.log, trades.log and
// requests.log for appending.
func OpenSinks(dir string) (*Sinks, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	s := &Sinks{}
	var err error
	if s.orders, err = openAppend(filepath.Join(dir, "orders.log")); err != nil {
		return nil, err
	}
	if s.trades, err = openAppend(filepath.Join(dir, "trades.log")); err != nil {
		s.Close()
		return nil, err
	}
	if s.requests, err = openAppend(filepath.Join(dir, "requests.log")); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Close closes whichever files are open.
func (s *Sinks) Close() {
	for _, f := range []*os.File{s.orders, s.trades, s.requests} {
		if f != nil {
			f.Close()
		}
	}
}

func (s *Sinks) writeOrder(ev engine.OrderEvent) error {
	_, err := fmt.Fprintf(s.orders, "%s,%s,%d,%s,%d,%s,%s,%d\n",
		ev.At.Format(timeLayout), ev.Symbol, ev.Seq, ev.Type,
		ev.OrderID, ev.Side, ev.Price.Fixed2(), ev.Remaining)
	return err
}

func (s *Sinks) writeTrade(ev engine.TradeEvent) error {
	_, err := fmt.Fprintf(s.trades, "%s,%s,%d,%s\n",
		ev.At.Format(timeLayout), ev.Symbol, ev.Seq, formatFill(ev.Fill))
	return err
}

func (s *Sinks) writeOutcome(out engine.Outcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d,%s,%s,%q,%d,%d,%d",
		out.RequestID, out.Status, out.Reason, out.Message,
		out.TakerFilled, out.TakerRemains, len(out.Fills))
	for i := range out.Fills {
		fmt.Fprintf(&b, ",[%s]", formatFill(out.Fills[i]))
	}
	b.WriteByte('\n')
	_, err := s.requests.WriteString(b.String())
	return err
}

func formatFill(f engine.Fill) string {
	side := "SELL"
	if f.TakerIsBuy {
		side = "BUY"
	}
	return fmt.Sprintf("%s,%d,%d,%s,%d,%s,%d",
		f.Symbol, f.TakerID, f.MakerID, f.Price.Fixed2(), f.Qty, side, f.MatchSeq)
}
