package spa

import "fmt"

// Opcode identifies the kind of a message on the wire. The opcode alone
// determines the size of the frame.
type Opcode uint8

// Opcodes understood by the core.
const (
	OpLocalHello          Opcode = 0x20
	OpLocalAck            Opcode = 0x21
	OpSubscriptionRequest Opcode = 0x46
	OpSubscriptionReply   Opcode = 0x47
	OpData                Opcode = 0x74
	OpCourier             Opcode = 0x75
)

// OpcodeRange groups opcodes by the reserved range they fall in.
type OpcodeRange int

// Reserved opcode ranges.
const (
	RangeUnknown OpcodeRange = iota
	RangeControl
	RangeSubscription
	RangeData
)

// Range returns the reserved range of the opcode.
func (op Opcode) Range() OpcodeRange {
	switch {
	case op >= 0x20 && op <= 0x2F:
		return RangeControl
	case op >= 0x40 && op <= 0x4F:
		return RangeSubscription
	case op >= 0x70 && op <= 0x7F:
		return RangeData
	default:
		return RangeUnknown
	}
}

func (op Opcode) String() string {
	switch op {
	case OpLocalHello:
		return "LocalHello"
	case OpLocalAck:
		return "LocalAck"
	case OpSubscriptionRequest:
		return "SubscriptionRequest"
	case OpSubscriptionReply:
		return "SubscriptionReply"
	case OpData:
		return "Data"
	case OpCourier:
		return "Courier"
	default:
		return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
	}
}

func (r OpcodeRange) String() string {
	switch r {
	case RangeControl:
		return "control"
	case RangeSubscription:
		return "subscription"
	case RangeData:
		return "data"
	default:
		return "unknown"
	}
}
