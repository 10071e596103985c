package session

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/symbol"
	"github.com/ndrandal/matchbook/internal/wire"
)

// Manager handles client registration, subscriptions, and fan-out of live
// order and trade events.
type Manager struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	symbols    []symbol.Symbol
	byTicker   map[string]*symbol.Symbol
	bufferSize int
}

// NewManager creates a session manager.
func NewManager(syms []symbol.Symbol, bufferSize int) *Manager {
	return &Manager{
		clients:    make(map[uint64]*Client),
		symbols:    syms,
		byTicker:   symbol.ByTicker(syms),
		bufferSize: bufferSize,
	}
}

// Register adds a new client. Returns the client for further use.
func (m *Manager) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, m.bufferSize)

	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()

	log.Printf("client %d connected (%s)", c.ID, conn.RemoteAddr())
	return c
}

// Unregister removes a client.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	m.mu.Unlock()

	c.Close()
	log.Printf("client %d disconnected", c.ID)
}

// ResolveTickers filters tickers to known symbols.
// Returns all=true for "*".
func (m *Manager) ResolveTickers(tickers []string) (known []string, all bool) {
	for _, t := range tickers {
		if t == "*" {
			return nil, true
		}
		if _, ok := m.byTicker[t]; ok {
			known = append(known, t)
		}
	}
	return known, false
}

// BroadcastOrder fans an order event to subscribed clients. Intended as an
// event writer hook; it runs on the writer's consumer goroutine.
func (m *Manager) BroadcastOrder(ev engine.OrderEvent) {
	msg := wire.FromOrderEvent(ev)
	m.broadcast(ev.Symbol, &msg)
}

// BroadcastTrade fans a trade event to subscribed clients.
func (m *Manager) BroadcastTrade(ev engine.TradeEvent) {
	msg := wire.FromTrade(ev)
	m.broadcast(ev.Symbol, &msg)
}

// broadcast encodes once per format (lazily) and fans out to subscribers.
func (m *Manager) broadcast(ticker string, msg *wire.Message) {
	var jsonEncoded, binaryEncoded []byte

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.clients {
		if !c.IsSubscribed(ticker) {
			continue
		}

		switch c.Format() {
		case FormatJSON:
			if jsonEncoded == nil {
				data, err := wire.EncodeJSON(msg)
				if err != nil {
					return
				}
				jsonEncoded = data
			}
			if !c.Send(jsonEncoded) {
				// buffer full, message dropped
			}

		case FormatBinary:
			if binaryEncoded == nil {
				binaryEncoded = wire.EncodeBinary(msg)
				if binaryEncoded == nil {
					return
				}
			}
			if !c.Send(binaryEncoded) {
				// buffer full, message dropped
			}
		}
	}
}

// SendToClient sends messages directly to a specific client (e.g., the
// instrument directory on subscribe).
func (m *Manager) SendToClient(c *Client, msgs []wire.Message) {
	for i := range msgs {
		switch c.Format() {
		case FormatJSON:
			if data, err := wire.EncodeJSON(&msgs[i]); err == nil {
				c.Send(data)
			}
		case FormatBinary:
			if data := wire.EncodeBinary(&msgs[i]); data != nil {
				c.Send(data)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Symbols returns the symbol list.
func (m *Manager) Symbols() []symbol.Symbol {
	return m.symbols
}
