package schema

import "strconv"

// ValueKind is the runtime value representation a column's values should be
// coerced to when scanned out of the engine.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueBinary
	ValueArray
)

// String returns the string representation of the value kind
func (v ValueKind) String() string {
	switch v {
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueBool:
		return "bool"
	case ValueBinary:
		return "binary"
	case ValueArray:
		return "array"
	default:
		return "unknown"
	}
}

// ValueKind maps the abstract column type to the runtime value kind on the
// current platform. Integer types whose range can exceed the platform's
// native integer coerce to ValueString rather than risk silent precision
// loss: an unsigned or 32-bit-hosted BIGINT does not fit in int, and an
// unsigned INTEGER does not fit in a 32-bit int.
func (t ColumnType) ValueKind(unsigned bool) ValueKind {
	return valueKindFor(t, unsigned, strconv.IntSize)
}

// ValueKind maps the column's abstract type and signedness to a runtime
// value kind.
func (c *ColumnSchema) ValueKind() ValueKind {
	return c.Type.ValueKind(c.Unsigned)
}

// valueKindFor is the platform-parametric mapping; intSize is the width of
// the native int type in bits.
func valueKindFor(t ColumnType, unsigned bool, intSize int) ValueKind {
	switch t {
	case TypeTinyInt, TypeSmallInt:
		return ValueInt
	case TypeInteger:
		if intSize == 32 && unsigned {
			return ValueString
		}
		return ValueInt
	case TypeBigInt:
		if intSize >= 64 && !unsigned {
			return ValueInt
		}
		return ValueString
	case TypeBoolean:
		return ValueBool
	case TypeFloat, TypeDouble:
		return ValueFloat
	case TypeBinary:
		return ValueBinary
	case TypeJSON:
		return ValueArray
	default:
		// Decimal, money, text, and temporal types all travel as strings.
		return ValueString
	}
}
