package value

import (
	"fmt"
	"math"
	"math/big"
)

// Compare implements the numeric comparison primitive of spec §4.1:
// identical tags use the native comparison of that type; if either
// operand is a float, both widen to double (NaN propagates unordered,
// reported via the ok=false return); otherwise both operands are
// Int32/BigInt and are compared as BigInt.
//
// ok is false only for the NaN-unordered case; a non-numeric operand is
// a caller error, reported through the err return.
func Compare(a, b Value) (cmp int, ok bool, err error) {
	if !a.tag.numeric() || !b.tag.numeric() {
		return 0, false, fmt.Errorf("Compare: operand is not numeric (%s, %s)", a.tag, b.tag)
	}
	if a.tag == Float32 || a.tag == Float64 || b.tag == Float32 || b.tag == Float64 {
		af, bf := toFloat64(a), toFloat64(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false, nil
		}
		switch {
		case af < bf:
			return -1, true, nil
		case af > bf:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	}
	ab, bb := toBigInt(a), toBigInt(b)
	return ab.Cmp(bb), true, nil
}

func toFloat64(v Value) float64 {
	switch v.tag {
	case Float32, Float64:
		return v.num
	case Int32:
		return float64(v.i32)
	case BigInt:
		f := new(big.Float).SetInt(v.BigInt())
		out, _ := f.Float64()
		return out
	}
	return math.NaN()
}

func toBigInt(v Value) *big.Int {
	switch v.tag {
	case Int32:
		return big.NewInt(int64(v.i32))
	case BigInt:
		return v.BigInt()
	}
	return big.NewInt(0)
}

// Truthy implements the truthiness rules of spec §4.1: null, undefined,
// false, numeric zero, empty string, empty buffer and null container
// handles are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch v.tag {
	case Null, Undefined:
		return false
	case Bool:
		return v.b
	case Int32:
		return v.i32 != 0
	case Float32, Float64:
		return v.num != 0
	case BigInt:
		return v.BigInt().Sign() != 0
	case String:
		return v.String() != ""
	case StringBuilder:
		return v.StringBuilderString() != ""
	case Buffer:
		return len(v.Bytes()) != 0
	case BufferBuilder:
		return len(v.BufferBuilderBytes()) != 0
	default:
		return true
	}
}

// StructuralEqual implements the immutable-type half of spec §4.1
// equality: identical structural comparison for strings, numbers,
// booleans, null and undefined, plus cross-type numeric equality via
// Compare. Compound containers are NOT handled here — callers (pkg/vm)
// fall back to reference equality or the receiver class's `equals`
// method, which requires invoking user code and so cannot live in this
// package.
func StructuralEqual(a, b Value) bool {
	if a.tag.numeric() && b.tag.numeric() {
		cmp, ok, err := Compare(a, b)
		return err == nil && ok && cmp == 0
	}
	if a.tag != b.tag {
		if (a.tag == Null || a.tag == Undefined) && (b.tag == Null || b.tag == Undefined) {
			return a.tag == b.tag
		}
		return false
	}
	switch a.tag {
	case Null, Undefined:
		return true
	case Bool:
		return a.b == b.b
	case String:
		return a.String() == b.String()
	default:
		return false
	}
}
