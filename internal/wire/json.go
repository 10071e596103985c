package wire

import (
	"encoding/json"
	"fmt"

	"github.com/ndrandal/matchbook/internal/orderbook"
)

// JSON encoder — human-readable mirror of the binary stream frames.
// Prices are formatted as 4-decimal strings, timestamps as int64 nanos.

// EncodeJSON encodes a Message into JSON bytes.
func EncodeJSON(m *Message) ([]byte, error) {
	obj := msgToMap(m)
	if obj == nil {
		return nil, fmt.Errorf("unsupported message type: %c", m.Type)
	}
	return json.Marshal(obj)
}

func msgToMap(m *Message) map[string]any {
	switch m.Type {
	case MsgOrderEvent:
		return map[string]any{
			"type":      "order_event",
			"timestamp": m.Timestamp,
			"symbol":    m.Symbol,
			"event":     eventNames[m.EventCode],
			"seq":       m.Seq,
			"orderId":   m.OrderID,
			"side":      string([]byte{m.Side}),
			"price":     formatPrice(m.Price),
			"remaining": m.Remaining,
		}

	case MsgTrade:
		return map[string]any{
			"type":      "trade",
			"timestamp": m.Timestamp,
			"symbol":    m.Symbol,
			"seq":       m.Seq,
			"takerId":   m.TakerID,
			"makerId":   m.MakerID,
			"takerSide": string([]byte{m.Side}),
			"price":     formatPrice(m.Price),
			"qty":       m.Qty,
			"matchSeq":  m.MatchSeq,
		}

	case MsgDirectory:
		return map[string]any{
			"type":     "directory",
			"symbol":   m.Symbol,
			"name":     m.Name,
			"tickSize": formatPrice(m.TickSize),
			"lotSize":  m.LotSize,
		}
	}
	return nil
}

func formatPrice(ticks int64) string {
	return orderbook.Price(ticks).Decimal().StringFixed(4)
}
