package symbol

// Symbol holds static metadata for a tradable instrument.
// Prices are expressed in ticks of 1/10000 of a currency unit throughout
// the engine; BasePrice and TickSize here use the same scale.
type Symbol struct {
	Ticker    string
	Name      string
	BasePrice int64 // reference price in price ticks, used to seed flow generators
	TickSize  int64 // minimum price increment in price ticks
	LotSize   int32 // round lot size in units of quantity
	IsStress  bool  // driven at burst rates by the load generator
}

// Defaults returns the built-in instrument directory.
func Defaults() []Symbol {
	return []Symbol{
		{Ticker: "NEXO", Name: "Nexo Dynamics Inc", BasePrice: 1850000, TickSize: 100, LotSize: 100},
		{Ticker: "QBIT", Name: "Qbit Quantum Corp", BasePrice: 925000, TickSize: 100, LotSize: 100},
		{Ticker: "FLUX", Name: "Flux Systems Ltd", BasePrice: 3100000, TickSize: 100, LotSize: 100},
		{Ticker: "SYNK", Name: "Synk Networks Inc", BasePrice: 672500, TickSize: 100, LotSize: 100},
		{Ticker: "LEDG", Name: "Ledger Capital Group", BasePrice: 785000, TickSize: 100, LotSize: 100},
		{Ticker: "VALT", Name: "Vault Securities Inc", BasePrice: 1250000, TickSize: 100, LotSize: 100},
		{Ticker: "HELX", Name: "Helix Biomedical Inc", BasePrice: 1950000, TickSize: 100, LotSize: 100},
		{Ticker: "VOLT", Name: "Volt Energy Corp", BasePrice: 980000, TickSize: 100, LotSize: 100},
		{Ticker: "BRND", Name: "Brand Global Inc", BasePrice: 1120000, TickSize: 100, LotSize: 100},
		{Ticker: "FORG", Name: "Forge Manufacturing", BasePrice: 1320000, TickSize: 100, LotSize: 100},
		{Ticker: "BLITZ", Name: "Blitz Trading Corp", BasePrice: 1250000, TickSize: 100, LotSize: 100, IsStress: true},
		{Ticker: "MKTS", Name: "Markets Broad ETF", BasePrice: 3500000, TickSize: 100, LotSize: 100},
	}
}

// Tickers extracts the ticker list from a symbol slice.
func Tickers(syms []Symbol) []string {
	out := make([]string, len(syms))
	for i := range syms {
		out[i] = syms[i].Ticker
	}
	return out
}

// ByTicker returns a map from ticker to symbol for quick lookups.
func ByTicker(syms []Symbol) map[string]*Symbol {
	m := make(map[string]*Symbol, len(syms))
	for i := range syms {
		m[syms[i].Ticker] = &syms[i]
	}
	return m
}
