package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/orderbook"
	"github.com/ndrandal/matchbook/internal/persist"
)

type symbolInfo struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	TickSize string `json:"tickSize"`
	LotSize  int32  `json:"lotSize"`
	BestBid  string `json:"bestBid"`
	BestAsk  string `json:"bestAsk"`
	Orders   int    `json:"orders"`
}

func (s *Server) symbolInfoFor(ticker string) symbolInfo {
	sym := s.byTick[ticker]
	si := symbolInfo{
		Ticker:   sym.Ticker,
		Name:     sym.Name,
		TickSize: orderbook.Price(sym.TickSize).String(),
		LotSize:  sym.LotSize,
	}
	if snap, ok := s.ex.Depth(ticker, 1); ok {
		si.BestBid = snap.BestBid.String()
		si.BestAsk = snap.BestAsk.String()
		for _, lvl := range snap.Bids {
			si.Orders += lvl.Orders
		}
		for _, lvl := range snap.Asks {
			si.Orders += lvl.Orders
		}
	}
	return si
}

// handleSymbols returns all symbols with top-of-book.
func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	out := make([]symbolInfo, 0, len(s.syms))
	for _, sym := range s.syms {
		out = append(out, s.symbolInfoFor(sym.Ticker))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSymbolDetail returns a single symbol with top-of-book.
func (s *Server) handleSymbolDetail(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if s.resolveTicker(w, ticker) == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.symbolInfoFor(ticker))
}

type depthResponse struct {
	Ticker   string      `json:"ticker"`
	Bids     []levelJSON `json:"bids"`
	Asks     []levelJSON `json:"asks"`
	BestBid  string      `json:"bestBid"`
	BestAsk  string      `json:"bestAsk"`
	MidPrice float64     `json:"midPrice"`
	Spread   string      `json:"spread"`
}

type levelJSON struct {
	Price    string `json:"price"`
	Orders   int    `json:"orders"`
	TotalQty uint64 `json:"totalQty"`
}

// handleBookDepth returns the order book depth for a symbol.
func (s *Server) handleBookDepth(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if s.resolveTicker(w, ticker) == nil {
		return
	}

	levels := parseIntParam(r, "levels", 10)
	snap, ok := s.ex.Depth(ticker, levels)
	if !ok {
		writeError(w, http.StatusNotFound, "no book for symbol: "+ticker)
		return
	}

	resp := depthResponse{
		Ticker:   ticker,
		Bids:     make([]levelJSON, 0, len(snap.Bids)),
		Asks:     make([]levelJSON, 0, len(snap.Asks)),
		BestBid:  snap.BestBid.String(),
		BestAsk:  snap.BestAsk.String(),
		MidPrice: snap.MidPrice,
		Spread:   snap.Spread.String(),
	}
	for _, lvl := range snap.Bids {
		resp.Bids = append(resp.Bids, levelJSON{Price: lvl.Price.String(), Orders: lvl.Orders, TotalQty: lvl.TotalQty})
	}
	for _, lvl := range snap.Asks {
		resp.Asks = append(resp.Asks, levelJSON{Price: lvl.Price.String(), Orders: lvl.Orders, TotalQty: lvl.TotalQty})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTrades returns recent trades for a symbol from MongoDB.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if s.resolveTicker(w, ticker) == nil {
		return
	}
	if s.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "trade persistence is disabled")
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	trades, err := s.reader.QueryTrades(ctx, persist.TradeFilter{
		Symbol: ticker,
		Limit:  parseIntParam(r, "limit", 100),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

type statsResponse struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	Symbols       int                `json:"symbols"`
	Clients       int                `json:"clients"`
	Processed     uint64             `json:"requestsProcessed"`
	EventsDropped uint64             `json:"eventsDropped"`
	Trades        *persist.TradeStats `json:"trades,omitempty"`
}

// handleStats returns engine-wide statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		UptimeSeconds: time.Since(s.startAt).Seconds(),
		Symbols:       len(s.syms),
		Processed:     s.ex.Processed(),
	}
	if s.mgr != nil {
		resp.Clients = s.mgr.ClientCount()
	}
	if s.writer != nil {
		resp.EventsDropped = s.writer.Dropped()
	}
	if s.reader != nil {
		ctx, cancel := timeoutCtx(r)
		defer cancel()
		if ts, err := s.reader.QueryTradeStats(ctx); err == nil {
			resp.Trades = &ts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type newOrderRequest struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"` // MARKET or LIMIT
	Side     string `json:"side"` // BUY or SELL
	Price    string `json:"price,omitempty"`
	Quantity uint32 `json:"quantity"`
	Client   string `json:"client,omitempty"`
}

type fillJSON struct {
	TakerID  uint64 `json:"takerId"`
	MakerID  uint64 `json:"makerId"`
	Price    string `json:"price"`
	Qty      uint32 `json:"qty"`
	MatchSeq uint64 `json:"matchSeq"`
}

type outcomeJSON struct {
	RequestID      uint64     `json:"requestId"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
	Message        string     `json:"message"`
	TakerFilled    uint32     `json:"takerFilled"`
	TakerRemaining uint32     `json:"takerRemaining"`
	Fills          []fillJSON `json:"fills"`
}

func outcomeToJSON(out engine.Outcome) outcomeJSON {
	resp := outcomeJSON{
		RequestID:      uint64(out.RequestID),
		Status:         out.Status.String(),
		Reason:         out.Reason.String(),
		Message:        out.Message,
		TakerFilled:    uint32(out.TakerFilled),
		TakerRemaining: uint32(out.TakerRemains),
		Fills:          make([]fillJSON, 0, len(out.Fills)),
	}
	for _, f := range out.Fills {
		resp.Fills = append(resp.Fills, fillJSON{
			TakerID:  uint64(f.TakerID),
			MakerID:  uint64(f.MakerID),
			Price:    f.Price.String(),
			Qty:      uint32(f.Qty),
			MatchSeq: f.MatchSeq,
		})
	}
	return resp
}

// handleNewOrder admits a new order via the exchange.
func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var req newOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if s.resolveTicker(w, req.Symbol) == nil {
		return
	}

	var kind orderbook.OrderKind
	switch req.Type {
	case "MARKET":
		kind = orderbook.KindMarket
	case "LIMIT":
		kind = orderbook.KindLimit
	default:
		writeError(w, http.StatusBadRequest, "type must be MARKET or LIMIT")
		return
	}

	var side orderbook.Side
	switch req.Side {
	case "BUY":
		side = orderbook.SideBuy
	case "SELL":
		side = orderbook.SideSell
	default:
		writeError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}

	if req.Quantity == 0 {
		writeError(w, http.StatusBadRequest, "quantity must be > 0")
		return
	}

	var price orderbook.Price
	if kind == orderbook.KindLimit {
		p, err := orderbook.PriceFromString(req.Price)
		if err != nil || p <= 0 {
			writeError(w, http.StatusBadRequest, "limit orders need a positive price")
			return
		}
		price = p
	}

	out := s.ex.Process(engine.NewOrder{
		RequestID: engine.RequestID(s.nextReq.Add(1)),
		Symbol:    req.Symbol,
		Kind:      kind,
		Params: engine.NewOrderParams{
			Client: req.Client,
			Side:   side,
			Price:  price,
			Qty:    orderbook.Quantity(req.Quantity),
		},
	})
	writeJSON(w, outcomeStatus(out), outcomeToJSON(out))
}

// handleCancel cancels a resting order.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ticker := r.URL.Query().Get("symbol")
	if s.resolveTicker(w, ticker) == nil {
		return
	}

	out := s.ex.Process(engine.Cancel{
		RequestID: engine.RequestID(s.nextReq.Add(1)),
		Symbol:    ticker,
		OrderID:   orderbook.OrderID(id),
	})
	writeJSON(w, outcomeStatus(out), outcomeToJSON(out))
}

type modifyRequest struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Quantity uint32 `json:"quantity"`
}

// handleModify replaces a resting order's price and quantity.
func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req modifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if s.resolveTicker(w, req.Symbol) == nil {
		return
	}
	price, err := orderbook.PriceFromString(req.Price)
	if err != nil || price <= 0 {
		writeError(w, http.StatusBadRequest, "modify needs a positive price")
		return
	}
	if req.Quantity == 0 {
		writeError(w, http.StatusBadRequest, "quantity must be > 0")
		return
	}

	out := s.ex.Process(engine.Modify{
		RequestID: engine.RequestID(s.nextReq.Add(1)),
		Symbol:    req.Symbol,
		OrderID:   orderbook.OrderID(id),
		NewPrice:  price,
		NewQty:    orderbook.Quantity(req.Quantity),
	})
	writeJSON(w, outcomeStatus(out), outcomeToJSON(out))
}

// outcomeStatus maps engine outcomes onto HTTP statuses: rejections are the
// caller's problem, not the server's.
func outcomeStatus(out engine.Outcome) int {
	if out.Status == engine.StatusOK {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// timeoutCtx bounds database work for one request.
func timeoutCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
