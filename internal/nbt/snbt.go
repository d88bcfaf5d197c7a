package nbt

import (
	"math"
	"strconv"
	"strings"
)

// Encode renders v in the literal syntax accepted by commands, e.g.
// {Items: [{Slot: 0b, id: "minecraft:stone", Count: 1b}]}.
//
// Strings are written between double quotes without escaping. Compound
// fields keep their input order. A nil value encodes as "".
func Encode(v Value) string {
	var e emitter
	e.emit(v)
	return e.sb.String()
}

// Raw renders a scalar without its type suffix or quotes, the way block
// state values are written ("north", "3", "true"). Non-scalar values fall
// back to Encode.
func Raw(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case String:
		return string(x)
	case Byte:
		return strconv.FormatInt(int64(x), 10)
	case Short:
		return strconv.FormatInt(int64(x), 10)
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Long:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return formatFloat(float64(x), 32)
	case Double:
		return formatFloat(float64(x), 64)
	default:
		return Encode(v)
	}
}

type emitter struct {
	sb strings.Builder
}

func (e *emitter) emit(v Value) {
	switch x := v.(type) {
	case nil:
	case Byte:
		e.integer(int64(x), "b")
	case Short:
		e.integer(int64(x), "s")
	case Int:
		e.integer(int64(x), "")
	case Long:
		e.integer(int64(x), "L")
	case Float:
		e.sb.WriteString(formatFloat(float64(x), 32))
		e.sb.WriteByte('f')
	case Double:
		e.sb.WriteString(formatFloat(float64(x), 64))
		e.sb.WriteByte('d')
	case String:
		e.sb.WriteByte('"')
		e.sb.WriteString(string(x))
		e.sb.WriteByte('"')
	case ByteArray:
		e.sb.WriteByte('[')
		for i, n := range x {
			e.sep(i)
			e.integer(int64(n), "b")
		}
		e.sb.WriteByte(']')
	case IntArray:
		e.sb.WriteByte('[')
		for i, n := range x {
			e.sep(i)
			e.integer(int64(n), "")
		}
		e.sb.WriteByte(']')
	case LongArray:
		e.sb.WriteByte('[')
		for i, n := range x {
			e.sep(i)
			e.integer(n, "L")
		}
		e.sb.WriteByte(']')
	case List:
		e.sb.WriteByte('[')
		for i, elem := range x {
			e.sep(i)
			e.emit(elem)
		}
		e.sb.WriteByte(']')
	case Compound:
		e.sb.WriteByte('{')
		for i, f := range x {
			e.sep(i)
			e.sb.WriteString(f.Name)
			e.sb.WriteString(": ")
			e.emit(f.Value)
		}
		e.sb.WriteByte('}')
	}
}

func (e *emitter) integer(n int64, suffix string) {
	e.sb.WriteString(strconv.FormatInt(n, 10))
	e.sb.WriteString(suffix)
}

func (e *emitter) sep(i int) {
	if i > 0 {
		e.sb.WriteString(", ")
	}
}

// formatFloat never uses exponent notation: 1 -> "1", 1e20 -> "100000000000000000000".
// Non-finite values print as inf, -inf and NaN.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
