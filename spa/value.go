package spa

import (
	"fmt"
	"math"
)

// ValueKind tells how the bits of a Value are interpreted.
type ValueKind uint8

// Kinds of values a Data message can carry.
const (
	KindInvalid ValueKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
)

func (k ValueKind) valid() bool {
	return k > KindInvalid && k <= KindFloat64
}

func (k ValueKind) String() string {
	names := [...]string{
		"invalid", "bool",
		"int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64",
		"float32", "float64",
	}

	if int(k) < len(names) {
		return names[k]
	}

	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Scalar lists the Go types that fit in a Data message.
type Scalar interface {
	bool |
		int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// A Value is one fixed-size scalar. Bits holds the value widened to 64 bits;
// Kind tells how to narrow it back.
type Value struct {
	Kind ValueKind
	Bits uint64
}

// NewValue wraps a scalar into a Value.
func NewValue[T Scalar](v T) Value {
	switch x := any(v).(type) {
	case bool:
		if x {
			return Value{Kind: KindBool, Bits: 1}
		}
		return Value{Kind: KindBool}
	case int8:
		return Value{Kind: KindInt8, Bits: uint64(int64(x))}
	case int16:
		return Value{Kind: KindInt16, Bits: uint64(int64(x))}
	case int32:
		return Value{Kind: KindInt32, Bits: uint64(int64(x))}
	case int64:
		return Value{Kind: KindInt64, Bits: uint64(x)}
	case uint8:
		return Value{Kind: KindUint8, Bits: uint64(x)}
	case uint16:
		return Value{Kind: KindUint16, Bits: uint64(x)}
	case uint32:
		return Value{Kind: KindUint32, Bits: uint64(x)}
	case uint64:
		return Value{Kind: KindUint64, Bits: x}
	case float32:
		return Value{Kind: KindFloat32, Bits: uint64(math.Float32bits(x))}
	case float64:
		return Value{Kind: KindFloat64, Bits: math.Float64bits(x)}
	}

	panic("unsupported scalar type")
}

// ValueAs unwraps a Value into T. It returns false when the value was not
// created from a T.
func ValueAs[T Scalar](v Value) (T, bool) {
	var zero T

	var out any
	switch any(zero).(type) {
	case bool:
		out = v.Bits != 0
	case int8:
		out = int8(v.Bits)
	case int16:
		out = int16(v.Bits)
	case int32:
		out = int32(v.Bits)
	case int64:
		out = int64(v.Bits)
	case uint8:
		out = uint8(v.Bits)
	case uint16:
		out = uint16(v.Bits)
	case uint32:
		out = uint32(v.Bits)
	case uint64:
		out = v.Bits
	case float32:
		out = math.Float32frombits(uint32(v.Bits))
	case float64:
		out = math.Float64frombits(v.Bits)
	}

	if v.Kind != NewValue(zero).Kind {
		return zero, false
	}

	return out.(T), true
}

// Float64 converts any numeric value to float64. Booleans become 0 or 1.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindBool:
		if v.Bits != 0 {
			return 1
		}
		return 0
	case KindInt8:
		return float64(int8(v.Bits))
	case KindInt16:
		return float64(int16(v.Bits))
	case KindInt32:
		return float64(int32(v.Bits))
	case KindInt64:
		return float64(int64(v.Bits))
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return float64(v.Bits)
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.Bits)))
	case KindFloat64:
		return math.Float64frombits(v.Bits)
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bits != 0)
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("%s(%g)", v.Kind, v.Float64())
	}
}
