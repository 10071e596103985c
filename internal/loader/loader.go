// Package loader reads trading requests from CSV files.
//
// Format: a header line, then `action,order_type,side,price,quantity,order_id`
// with action ADD or CANCEL, order_type MARKET or LIMIT, side BUY or SELL.
// Empty numeric fields parse as zero. Invalid lines are counted, logged and
// skipped; they never reach the engine.
package loader

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/orderbook"
)

// Stats summarizes a load run.
type Stats struct {
	Loaded  int
	Skipped int
}

// LoadCSV parses path into a request slice for one symbol. Request ids are
// assigned from the input line numbers so outcomes correlate back to lines.
func LoadCSV(path, symbol string) ([]engine.Request, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		reqs  []engine.Request
		stats Stats
	)

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 || line == "" {
			// header or blank
			continue
		}

		req, err := parseLine(line, symbol, engine.RequestID(lineNo))
		if err != nil {
			stats.Skipped++
			log.Printf("loader: %s line %d skipped: %v", path, lineNo, err)
			continue
		}
		reqs = append(reqs, req)
		stats.Loaded++
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return reqs, stats, nil
}

func parseLine(line, symbol string, reqID engine.RequestID) (engine.Request, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return nil, fmt.Errorf("want 6 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	action := fields[0]
	price, err := parsePrice(fields[3])
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", fields[3], err)
	}
	qty, err := parseUint32(fields[4])
	if err != nil {
		return nil, fmt.Errorf("quantity %q: %w", fields[4], err)
	}
	orderID, err := parseUint64(fields[5])
	if err != nil {
		return nil, fmt.Errorf("order_id %q: %w", fields[5], err)
	}

	switch action {
	case "ADD":
		kind, err := parseKind(fields[1])
		if err != nil {
			return nil, err
		}
		side, err := parseSide(fields[2])
		if err != nil {
			return nil, err
		}
		if qty == 0 {
			return nil, fmt.Errorf("ADD requires quantity > 0")
		}
		if kind == orderbook.KindLimit && price <= 0 {
			return nil, fmt.Errorf("ADD LIMIT requires price > 0")
		}
		return engine.NewOrder{
			RequestID: reqID,
			Symbol:    symbol,
			Kind:      kind,
			Params: engine.NewOrderParams{
				Side:  side,
				Price: price,
				Qty:   orderbook.Quantity(qty),
			},
		}, nil

	case "CANCEL":
		if orderID == 0 {
			return nil, fmt.Errorf("CANCEL requires order_id > 0")
		}
		return engine.Cancel{
			RequestID: reqID,
			Symbol:    symbol,
			OrderID:   orderbook.OrderID(orderID),
		}, nil
	}
	return nil, fmt.Errorf("unknown action %q", action)
}

func parseKind(s string) (orderbook.OrderKind, error) {
	switch s {
	case "MARKET":
		return orderbook.KindMarket, nil
	case "LIMIT":
		return orderbook.KindLimit, nil
	}
	return 0, fmt.Errorf("unknown order_type %q", s)
}

func parseSide(s string) (orderbook.Side, error) {
	switch s {
	case "BUY":
		return orderbook.SideBuy, nil
	case "SELL":
		return orderbook.SideSell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// parsePrice converts a decimal string to price ticks; empty means zero.
func parsePrice(s string) (orderbook.Price, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price")
	}
	return orderbook.PriceFromDecimal(d), nil
}

func parseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func parseUint64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
