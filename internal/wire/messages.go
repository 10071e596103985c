package wire

import (
	"github.com/ndrandal/matchbook/internal/engine"
	"github.com/ndrandal/matchbook/internal/symbol"
)

// MsgType identifies a stream frame.
type MsgType byte

const (
	MsgOrderEvent MsgType = 'O'
	MsgTrade      MsgType = 'T'
	MsgDirectory  MsgType = 'D'
)

// Order event codes carried in binary frames.
const (
	EvAccepted        byte = 'A'
	EvReplaced        byte = 'U'
	EvCanceled        byte = 'X'
	EvExpired         byte = 'E'
	EvRejected        byte = 'R'
	EvPartiallyFilled byte = 'P'
	EvFilled          byte = 'F'
)

// Message is the universal frame struct for the live event stream.
// Not all fields are used for every message type.
type Message struct {
	Type      MsgType
	Timestamp int64 // unix nanoseconds
	Symbol    string

	// order event fields
	EventCode byte
	Seq       uint64
	OrderID   uint64
	Side      byte // 'B' or 'S'
	Price     int64 // price ticks
	Remaining uint32

	// trade fields
	TakerID  uint64
	MakerID  uint64
	Qty      uint32
	MatchSeq uint64

	// directory fields
	Name     string
	TickSize int64
	LotSize  int32
}

// eventCodes maps engine order event types onto single-byte codes.
var eventCodes = map[engine.OrderEventType]byte{
	engine.EventNewAccepted:     EvAccepted,
	engine.EventReplaced:        EvReplaced,
	engine.EventCanceled:        EvCanceled,
	engine.EventExpired:         EvExpired,
	engine.EventRejected:        EvRejected,
	engine.EventPartiallyFilled: EvPartiallyFilled,
	engine.EventFilled:          EvFilled,
}

// eventNames is the inverse mapping for JSON output and decoding.
var eventNames = map[byte]string{
	EvAccepted:        "NEW_ACCEPTED",
	EvReplaced:        "REPLACED",
	EvCanceled:        "CANCELED",
	EvExpired:         "EXPIRED",
	EvRejected:        "REJECTED",
	EvPartiallyFilled: "PARTIALLY_FILLED",
	EvFilled:          "FILLED",
}

// FromOrderEvent converts an engine order event into a stream frame.
func FromOrderEvent(ev engine.OrderEvent) Message {
	return Message{
		Type:      MsgOrderEvent,
		Timestamp: ev.At.UnixNano(),
		Symbol:    ev.Symbol,
		EventCode: eventCodes[ev.Type],
		Seq:       ev.Seq,
		OrderID:   uint64(ev.OrderID),
		Side:      byte(ev.Side),
		Price:     int64(ev.Price),
		Remaining: uint32(ev.Remaining),
	}
}

// FromTrade converts an engine trade event into a stream frame.
func FromTrade(ev engine.TradeEvent) Message {
	side := byte('S')
	if ev.Fill.TakerIsBuy {
		side = 'B'
	}
	return Message{
		Type:      MsgTrade,
		Timestamp: ev.At.UnixNano(),
		Symbol:    ev.Symbol,
		Seq:       ev.Seq,
		Side:      side,
		Price:     int64(ev.Fill.Price),
		Qty:       uint32(ev.Fill.Qty),
		TakerID:   uint64(ev.Fill.TakerID),
		MakerID:   uint64(ev.Fill.MakerID),
		MatchSeq:  ev.Fill.MatchSeq,
	}
}

// Directory builds the instrument directory frame sent on subscribe.
func Directory(s symbol.Symbol) Message {
	return Message{
		Type:     MsgDirectory,
		Symbol:   s.Ticker,
		Name:     s.Name,
		TickSize: s.TickSize,
		LotSize:  s.LotSize,
	}
}

// PadSymbol right-pads a ticker to 8 bytes with spaces.
func PadSymbol(ticker string) [8]byte {
	var b [8]byte
	copy(b[:], ticker)
	for i := len(ticker); i < 8; i++ {
		b[i] = ' '
	}
	return b
}
