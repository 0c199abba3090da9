package spa

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the envelope header: opcode, destination, source
// and dialog id.
const HeaderSize = 1 + 4 + 4 + 2

var bodySizes = map[Opcode]int{
	OpLocalHello:          4 + 4 + 8,
	OpLocalAck:            4,
	OpSubscriptionRequest: 4 + 4 + 4 + 1 + 4 + 2,
	OpSubscriptionReply:   4 + 4,
	OpData:                1 + 8,
	OpCourier:             4,
}

// FrameSize returns the number of bytes a frame with the given opcode
// occupies on the wire. Courier bodies are not included.
func FrameSize(op Opcode) (int, bool) {
	body, ok := bodySizes[op]
	if !ok {
		return 0, false
	}

	return HeaderSize + body, true
}

// MarshalMsg encodes a message into its fixed-size frame.
func MarshalMsg(m Msg) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("marshal nil message: %w", ErrMalformedMsg)
	}

	op := m.Opcode()

	size, ok := FrameSize(op)
	if !ok {
		return nil, fmt.Errorf("marshal %s: %w", op, ErrUnknownOpcode)
	}

	meta := m.Meta()
	buf := make([]byte, 0, size)
	buf = append(buf, byte(op))
	buf = appendAddress(buf, meta.Dst)
	buf = appendAddress(buf, meta.Src)
	buf = binary.BigEndian.AppendUint16(buf, meta.DialogID)

	switch m := m.(type) {
	case *Hello:
		buf = appendAddress(buf, m.Requester)
		buf = appendAddress(buf, m.Target)
		buf = append(buf, m.Reserved[:]...)
	case *LocalAck:
		buf = appendAddress(buf, m.Assigned)
	case *SubscriptionRequest:
		buf = appendAddress(buf, m.Producer)
		buf = appendAddress(buf, m.Consumer)
		buf = appendAddress(buf, m.ViaManager)
		buf = append(buf, m.Priority)
		buf = binary.BigEndian.AppendUint32(buf, m.LeasePeriod)
		buf = binary.BigEndian.AppendUint16(buf, m.DeliveryRateDivisor)
	case *SubscriptionReply:
		buf = appendAddress(buf, m.Requester)
		buf = appendAddress(buf, m.Responder)
	case *Data:
		if !m.Value.Kind.valid() {
			return nil, fmt.Errorf("marshal data with kind %s: %w",
				m.Value.Kind, ErrMalformedMsg)
		}
		buf = append(buf, byte(m.Value.Kind))
		buf = binary.BigEndian.AppendUint64(buf, m.Value.Bits)
	case *Courier:
		buf = binary.BigEndian.AppendUint32(buf, m.ByteLength)
	}

	return buf, nil
}

// UnmarshalMsg decodes one frame. The length of b must match the size the
// opcode implies; no field is read before the length is checked.
func UnmarshalMsg(b []byte) (Msg, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty frame: %w", ErrMalformedMsg)
	}

	op := Opcode(b[0])

	size, ok := FrameSize(op)
	if !ok {
		return nil, fmt.Errorf("opcode 0x%02x: %w", b[0], ErrUnknownOpcode)
	}

	if len(b) != size {
		return nil, fmt.Errorf("%s frame of %d bytes, want %d: %w",
			op, len(b), size, ErrMalformedMsg)
	}

	r := frameReader{buf: b, off: 1}
	meta := MsgMeta{}
	meta.Dst = r.address()
	meta.Src = r.address()
	meta.DialogID = r.u16()

	switch op {
	case OpLocalHello:
		m := &Hello{MsgMeta: meta}
		m.Requester = r.address()
		m.Target = r.address()
		copy(m.Reserved[:], r.bytes(len(m.Reserved)))
		return m, nil
	case OpLocalAck:
		m := &LocalAck{MsgMeta: meta}
		m.Assigned = r.address()
		return m, nil
	case OpSubscriptionRequest:
		m := &SubscriptionRequest{MsgMeta: meta}
		m.Producer = r.address()
		m.Consumer = r.address()
		m.ViaManager = r.address()
		m.Priority = r.u8()
		m.LeasePeriod = r.u32()
		m.DeliveryRateDivisor = r.u16()
		return m, nil
	case OpSubscriptionReply:
		m := &SubscriptionReply{MsgMeta: meta}
		m.Requester = r.address()
		m.Responder = r.address()
		return m, nil
	case OpData:
		m := &Data{MsgMeta: meta}
		m.Value.Kind = ValueKind(r.u8())
		m.Value.Bits = r.u64()
		if !m.Value.Kind.valid() {
			return nil, fmt.Errorf("data with kind %s: %w",
				m.Value.Kind, ErrMalformedMsg)
		}
		return m, nil
	case OpCourier:
		m := &Courier{MsgMeta: meta}
		m.ByteLength = r.u32()
		return m, nil
	}

	return nil, fmt.Errorf("opcode 0x%02x: %w", b[0], ErrUnknownOpcode)
}

func appendAddress(buf []byte, a LogicalAddress) []byte {
	buf = binary.BigEndian.AppendUint16(buf, a.Subnet)
	return binary.BigEndian.AppendUint16(buf, a.Node)
}

// frameReader walks a frame whose length has already been validated.
type frameReader struct {
	buf []byte
	off int
}

func (r *frameReader) bytes(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n

	return b
}

func (r *frameReader) u8() uint8 {
	return r.bytes(1)[0]
}

func (r *frameReader) u16() uint16 {
	return binary.BigEndian.Uint16(r.bytes(2))
}

func (r *frameReader) u32() uint32 {
	return binary.BigEndian.Uint32(r.bytes(4))
}

func (r *frameReader) u64() uint64 {
	return binary.BigEndian.Uint64(r.bytes(8))
}

func (r *frameReader) address() LogicalAddress {
	subnet := r.u16()
	node := r.u16()

	return LogicalAddress{Subnet: subnet, Node: node}
}
