package value

import (
	"fmt"
	"strconv"
	"strings"
)

// RawDisplay renders a Value's default display form without consulting
// any class `toString` override — the fallback half of the printing
// design in spec §4.1/§9. pkg/vm's Display wraps this, trying the
// receiver's class chain first and only calling RawDisplay when no
// `toString` is found, unifying on the "delegate entirely through
// toString" design spec §9 flags as the intended one.
//
// quoted controls whether strings render with surrounding quotes
// (spec §4.1: "strings render without quotes at the top level and with
// quotes when nested inside containers").
func RawDisplay(v Value, quoted bool) string {
	switch v.tag {
	case Null:
		return "null"
	case Undefined:
		return "undefined"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Int32:
		return strconv.FormatInt(int64(v.i32), 10)
	case BigInt:
		return v.BigInt().String()
	case Float32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case String:
		if quoted {
			return strconv.Quote(v.String())
		}
		return v.String()
	case StringBuilder:
		if quoted {
			return strconv.Quote(v.StringBuilderString())
		}
		return v.StringBuilderString()
	case Array:
		elems := v.ArrayElems()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = RawDisplay(e, true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		var b strings.Builder
		b.WriteString("{")
		first := true
		v.ObjectForEach(func(key string, val Value) bool {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s: %s", key, RawDisplay(val, true))
			return true
		})
		b.WriteString("}")
		return b.String()
	case Range:
		start, end, exclusive, _ := v.RangeParts()
		op := ".."
		if exclusive {
			op = "..<"
		}
		return RawDisplay(start, false) + op + RawDisplay(end, false)
	case Function:
		return fmt.Sprintf("<function %s>", v.Function().Name)
	case Closure:
		return fmt.Sprintf("<function %s>", v.Closure().Fn.Name)
	case Native:
		return fmt.Sprintf("<native %s>", v.Native().Name)
	case Class:
		return fmt.Sprintf("<class %s>", v.class.Name)
	case BoundMethod:
		return "<bound method>"
	case Buffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.Bytes()))
	default:
		return fmt.Sprintf("<%s>", v.tag)
	}
}
