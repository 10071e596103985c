package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ndrandal/matchbook/internal/eventlog"
	"github.com/ndrandal/matchbook/internal/exchange"
	"github.com/ndrandal/matchbook/internal/persist"
	"github.com/ndrandal/matchbook/internal/session"
	"github.com/ndrandal/matchbook/internal/symbol"
)

// Server provides the REST surface: symbol directory, book depth, trade
// history, stats and order entry.
type Server struct {
	ex      *exchange.Exchange
	reader  persist.TradeReader // nil when persistence is disabled
	writer  *eventlog.Writer
	mgr     *session.Manager
	syms    []symbol.Symbol
	byTick  map[string]*symbol.Symbol
	startAt time.Time

	nextReq atomic.Uint64
}

// NewServer creates a new API server. reader may be nil when MongoDB is not
// configured; trade history then returns 503.
func NewServer(ex *exchange.Exchange, reader persist.TradeReader, writer *eventlog.Writer, mgr *session.Manager, syms []symbol.Symbol) *Server {
	return &Server{
		ex:      ex,
		reader:  reader,
		writer:  writer,
		mgr:     mgr,
		syms:    syms,
		byTick:  symbol.ByTicker(syms),
		startAt: time.Now(),
	}
}

// Register attaches API routes to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/symbols/{ticker}", s.handleSymbolDetail)
	mux.HandleFunc("GET /api/book/{ticker}", s.handleBookDepth)
	mux.HandleFunc("GET /api/trades/{ticker}", s.handleTrades)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/orders", s.handleNewOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", s.handleCancel)
	mux.HandleFunc("PUT /api/orders/{id}", s.handleModify)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolveTicker looks up a symbol by ticker, writing a 404 if not found.
// Returns nil if the symbol was not found (error already written).
func (s *Server) resolveTicker(w http.ResponseWriter, ticker string) *symbol.Symbol {
	sym, ok := s.byTick[ticker]
	if !ok {
		writeError(w, http.StatusNotFound, "symbol not found: "+ticker)
		return nil
	}
	return sym
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
