package wire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Binary stream encoder.
// Each message is prefixed with a 2-byte big-endian length.

const (
	orderEventLen = 47
	tradeLen      = 62
	directoryLen  = 53
)

// EncodeBinary encodes a Message into its binary frame, including the
// 2-byte length prefix. Returns nil for unsupported types.
func EncodeBinary(m *Message) []byte {
	var body []byte

	switch m.Type {
	case MsgOrderEvent:
		body = encodeOrderEvent(m)
	case MsgTrade:
		body = encodeTrade(m)
	case MsgDirectory:
		body = encodeDirectory(m)
	default:
		return nil
	}

	frame := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(frame[0:2], uint16(len(body)))
	copy(frame[2:], body)
	return frame
}

// Order Event (47 bytes)
// Type(1) + EventCode(1) + Side(1) + Symbol(8) + Seq(8) + Timestamp(8) +
// OrderID(8) + Price(8) + Remaining(4)
func encodeOrderEvent(m *Message) []byte {
	buf := make([]byte, orderEventLen)
	buf[0] = byte(m.Type)
	buf[1] = m.EventCode
	buf[2] = m.Side
	sym := PadSymbol(m.Symbol)
	copy(buf[3:11], sym[:])
	binary.BigEndian.PutUint64(buf[11:19], m.Seq)
	binary.BigEndian.PutUint64(buf[19:27], uint64(m.Timestamp))
	binary.BigEndian.PutUint64(buf[27:35], m.OrderID)
	binary.BigEndian.PutUint64(buf[35:43], uint64(m.Price))
	binary.BigEndian.PutUint32(buf[43:47], m.Remaining)
	return buf
}

// Trade (62 bytes)
// Type(1) + Side(1) + Symbol(8) + Seq(8) + Timestamp(8) + TakerID(8) +
// MakerID(8) + Price(8) + Qty(4) + MatchSeq(8)
func encodeTrade(m *Message) []byte {
	buf := make([]byte, tradeLen)
	buf[0] = byte(m.Type)
	buf[1] = m.Side
	sym := PadSymbol(m.Symbol)
	copy(buf[2:10], sym[:])
	binary.BigEndian.PutUint64(buf[10:18], m.Seq)
	binary.BigEndian.PutUint64(buf[18:26], uint64(m.Timestamp))
	binary.BigEndian.PutUint64(buf[26:34], m.TakerID)
	binary.BigEndian.PutUint64(buf[34:42], m.MakerID)
	binary.BigEndian.PutUint64(buf[42:50], uint64(m.Price))
	binary.BigEndian.PutUint32(buf[50:54], m.Qty)
	binary.BigEndian.PutUint64(buf[54:62], m.MatchSeq)
	return buf
}

// Directory (53 bytes)
// Type(1) + Symbol(8) + TickSize(8) + LotSize(4) + Name(32)
func encodeDirectory(m *Message) []byte {
	buf := make([]byte, directoryLen)
	buf[0] = byte(m.Type)
	sym := PadSymbol(m.Symbol)
	copy(buf[1:9], sym[:])
	binary.BigEndian.PutUint64(buf[9:17], uint64(m.TickSize))
	binary.BigEndian.PutUint32(buf[17:21], uint32(m.LotSize))
	name := m.Name
	if len(name) > 32 {
		name = name[:32]
	}
	copy(buf[21:53], name)
	for i := 21 + len(name); i < 53; i++ {
		buf[i] = ' '
	}
	return buf
}

// DecodeBinary parses one length-prefixed frame back into a Message.
func DecodeBinary(frame []byte) (*Message, error) {
	if len(frame) < 3 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	bodyLen := int(binary.BigEndian.Uint16(frame[0:2]))
	if len(frame) != 2+bodyLen {
		return nil, fmt.Errorf("frame length %d does not match prefix %d", len(frame)-2, bodyLen)
	}
	body := frame[2:]

	switch MsgType(body[0]) {
	case MsgOrderEvent:
		if bodyLen != orderEventLen {
			return nil, fmt.Errorf("order event frame is %d bytes, want %d", bodyLen, orderEventLen)
		}
		return &Message{
			Type:      MsgOrderEvent,
			EventCode: body[1],
			Side:      body[2],
			Symbol:    strings.TrimRight(string(body[3:11]), " "),
			Seq:       binary.BigEndian.Uint64(body[11:19]),
			Timestamp: int64(binary.BigEndian.Uint64(body[19:27])),
			OrderID:   binary.BigEndian.Uint64(body[27:35]),
			Price:     int64(binary.BigEndian.Uint64(body[35:43])),
			Remaining: binary.BigEndian.Uint32(body[43:47]),
		}, nil

	case MsgTrade:
		if bodyLen != tradeLen {
			return nil, fmt.Errorf("trade frame is %d bytes, want %d", bodyLen, tradeLen)
		}
		return &Message{
			Type:      MsgTrade,
			Side:      body[1],
			Symbol:    strings.TrimRight(string(body[2:10]), " "),
			Seq:       binary.BigEndian.Uint64(body[10:18]),
			Timestamp: int64(binary.BigEndian.Uint64(body[18:26])),
			TakerID:   binary.BigEndian.Uint64(body[26:34]),
			MakerID:   binary.BigEndian.Uint64(body[34:42]),
			Price:     int64(binary.BigEndian.Uint64(body[42:50])),
			Qty:       binary.BigEndian.Uint32(body[50:54]),
			MatchSeq:  binary.BigEndian.Uint64(body[54:62]),
		}, nil

	case MsgDirectory:
		if bodyLen != directoryLen {
			return nil, fmt.Errorf("directory frame is %d bytes, want %d", bodyLen, directoryLen)
		}
		return &Message{
			Type:     MsgDirectory,
			Symbol:   strings.TrimRight(string(body[1:9]), " "),
			TickSize: int64(binary.BigEndian.Uint64(body[9:17])),
			LotSize:  int32(binary.BigEndian.Uint32(body[17:21])),
			Name:     strings.TrimRight(string(body[21:53]), " "),
		}, nil
	}
	return nil, fmt.Errorf("unknown message type: %c", body[0])
}
