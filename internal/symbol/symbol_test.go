package symbol

import "testing"

func TestDefaultsUnique(t *testing.T) {
	syms := Defaults()
	seen := make(map[string]bool)
	for _, s := range syms {
		if seen[s.Ticker] {
			t.Fatalf("duplicate ticker %s", s.Ticker)
		}
		seen[s.Ticker] = true
	}
}

func TestDefaultsSane(t *testing.T) {
	for _, s := range Defaults() {
		if s.Ticker == "" {
			t.Fatal("empty ticker")
		}
		if s.BasePrice <= 0 {
			t.Fatalf("%s: base price %d, want > 0", s.Ticker, s.BasePrice)
		}
		if s.TickSize <= 0 {
			t.Fatalf("%s: tick size %d, want > 0", s.Ticker, s.TickSize)
		}
		if s.BasePrice%s.TickSize != 0 {
			t.Fatalf("%s: base price %d not aligned to tick %d", s.Ticker, s.BasePrice, s.TickSize)
		}
		if s.LotSize <= 0 {
			t.Fatalf("%s: lot size %d, want > 0", s.Ticker, s.LotSize)
		}
	}
}

func TestByTicker(t *testing.T) {
	syms := Defaults()
	m := ByTicker(syms)
	if len(m) != len(syms) {
		t.Fatalf("ByTicker has %d entries, want %d", len(m), len(syms))
	}
	s, ok := m["BLITZ"]
	if !ok {
		t.Fatal("BLITZ missing from directory")
	}
	if !s.IsStress {
		t.Fatal("BLITZ should be the stress symbol")
	}
	if _, ok := m["NOPE"]; ok {
		t.Fatal("unknown ticker resolved")
	}
}

func TestTickers(t *testing.T) {
	syms := Defaults()
	ts := Tickers(syms)
	if len(ts) != len(syms) {
		t.Fatalf("Tickers returned %d entries, want %d", len(ts), len(syms))
	}
	if ts[0] != syms[0].Ticker {
		t.Fatalf("Tickers[0] = %s, want %s", ts[0], syms[0].Ticker)
	}
}
