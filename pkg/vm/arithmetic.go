package vm

import (
	"math"
	"math/big"

	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/value"
)

// isFloatTag separates the float half of the numeric tower from the
// integer half for the promotion rules of spec §4.3, generalized from the teacher's
// add/subtract/multiply/divide (pkg/vm/vm.go) int64/float64 switch to
// Slate's four-variant tower (Int32, BigInt, Float32, Float64).
func isFloatTag(t value.Tag) bool { return t == value.Float32 || t == value.Float64 }

func toF64(v value.Value) float64 {
	switch v.Tag() {
	case value.Int32:
		return float64(v.Int32())
	case value.BigInt:
		f := new(big.Float).SetInt(v.BigInt())
		out, _ := f.Float64()
		return out
	case value.Float32:
		return float64(v.Float32())
	case value.Float64:
		return v.Float64()
	}
	return math.NaN()
}

func toBig(v value.Value) *big.Int {
	switch v.Tag() {
	case value.Int32:
		return big.NewInt(int64(v.Int32()))
	case value.BigInt:
		return v.BigInt()
	}
	return big.NewInt(0)
}

// narrow wraps a *big.Int result back to Int32 if it fits (spec §4.3
// "on overflow the result is promoted to BigInt"; the converse, a BigInt
// that now fits, is not automatically narrowed back by this core —
// narrowing only happens at the point an operation produces the value).
func narrow(b *big.Int) value.Value {
	if i, ok := value.FitsInt32(b); ok {
		return value.NewInt32(i)
	}
	return value.NewBigInt(b)
}

func bothNumeric(op string, a, b value.Value, loc *value.Location) error {
	if !numericTag(a.Tag()) || !numericTag(b.Tag()) {
		return vmerr.New(vmerr.Type, toErrLoc(loc), "cannot %s %s and %s", op, a.Tag(), b.Tag()).WithOpcode(op)
	}
	return nil
}

func numericTag(t value.Tag) bool {
	switch t {
	case value.Int32, value.BigInt, value.Float32, value.Float64:
		return true
	}
	return false
}

func toErrLoc(loc *value.Location) *vmerr.Location {
	if loc == nil {
		return nil
	}
	return &vmerr.Location{File: loc.File, Line: loc.Line, Column: loc.Column}
}

// arith applies a same-typed-or-promoted binary operator, implementing
// spec §4.3's promotion ladder: same-tag Int32 uses wide (big.Int)
// arithmetic and narrows; any BigInt operand promotes to BigInt; any
// float operand widens both sides to float64 (the VM does not track
// Float32 vs Float64 separately for arithmetic, both widen to float64
// and the result is tagged Float64, matching the teacher's single
// float64 case in add/subtract/multiply).
func (v *VM) arith(op string, a, b value.Value, loc *value.Location, bigOp func(z, x, y *big.Int) *big.Int, floatOp func(x, y float64) float64) (value.Value, error) {
	if err := bothNumeric(op, a, b, loc); err != nil {
		return value.Value{}, err
	}
	if isFloatTag(a.Tag()) || isFloatTag(b.Tag()) {
		return value.NewFloat64(floatOp(toF64(a), toF64(b))), nil
	}
	z := new(big.Int)
	bigOp(z, toBig(a), toBig(b))
	return narrow(z), nil
}

func (v *VM) opAdd(a, b value.Value, loc *value.Location) (value.Value, error) {
	return v.arith("add", a, b, loc, (*big.Int).Add, func(x, y float64) float64 { return x + y })
}

func (v *VM) opSub(a, b value.Value, loc *value.Location) (value.Value, error) {
	return v.arith("subtract", a, b, loc, (*big.Int).Sub, func(x, y float64) float64 { return x - y })
}

func (v *VM) opMul(a, b value.Value, loc *value.Location) (value.Value, error) {
	return v.arith("multiply", a, b, loc, (*big.Int).Mul, func(x, y float64) float64 { return x * y })
}

// opDiv implements spec §4.3 "Division always yields a float".
func (v *VM) opDiv(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("divide", a, b, loc); err != nil {
		return value.Value{}, err
	}
	af, bf := toF64(a), toF64(b)
	if bf == 0 {
		return value.Value{}, vmerr.New(vmerr.Arithmetic, toErrLoc(loc), "division by zero").WithOpcode("DIVIDE")
	}
	return value.NewFloat64(af / bf), nil
}

// opFloorDiv implements spec §4.3 "Floor division yields an integer"
// and §8 invariant 5's `(a // b) * b + (a mod b) == a` law for integer
// operands; float operands floor the float quotient.
func (v *VM) opFloorDiv(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("floor-divide", a, b, loc); err != nil {
		return value.Value{}, err
	}
	if isFloatTag(a.Tag()) || isFloatTag(b.Tag()) {
		bf := toF64(b)
		if bf == 0 {
			return value.Value{}, vmerr.New(vmerr.Arithmetic, toErrLoc(loc), "division by zero").WithOpcode("FLOOR_DIV")
		}
		return value.NewFloat64(math.Floor(toF64(a) / bf)), nil
	}
	bb := toBig(b)
	if bb.Sign() == 0 {
		return value.Value{}, vmerr.New(vmerr.Arithmetic, toErrLoc(loc), "division by zero").WithOpcode("FLOOR_DIV")
	}
	ab := toBig(a)
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(ab, bb, m) // Euclidean; adjust to floor semantics below
	// big.Int.DivMod is Euclidean (m >= 0); floor division additionally
	// requires q to round toward -inf, which DivMod already gives when
	// bb > 0. For bb < 0, correct q/m to floor convention.
	if bb.Sign() < 0 && m.Sign() != 0 {
		q.Sub(q, big.NewInt(1))
	}
	return narrow(q), nil
}

// opMod implements the modulo half of invariant 5, defined so that
// `(a // b) * b + (a mod b) == a` holds (floor-mod, sign follows b).
func (v *VM) opMod(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("mod", a, b, loc); err != nil {
		return value.Value{}, err
	}
	if isFloatTag(a.Tag()) || isFloatTag(b.Tag()) {
		bf := toF64(b)
		if bf == 0 {
			return value.Value{}, vmerr.New(vmerr.Arithmetic, toErrLoc(loc), "division by zero").WithOpcode("MOD")
		}
		return value.NewFloat64(math.Mod(math.Mod(toF64(a), bf)+bf, bf)), nil
	}
	bb := toBig(b)
	if bb.Sign() == 0 {
		return value.Value{}, vmerr.New(vmerr.Arithmetic, toErrLoc(loc), "division by zero").WithOpcode("MOD")
	}
	ab := toBig(a)
	m := new(big.Int).Mod(ab, new(big.Int).Abs(bb))
	if bb.Sign() < 0 && m.Sign() != 0 {
		m.Add(m, bb)
	}
	return narrow(m), nil
}

// opPow implements `**`, right-associative at the compiler level (spec
// §6); this handler only evaluates one application. Negative or
// fractional exponents and any float operand widen to float64 math.Pow.
func (v *VM) opPow(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("raise to power", a, b, loc); err != nil {
		return value.Value{}, err
	}
	if isFloatTag(a.Tag()) || isFloatTag(b.Tag()) {
		return value.NewFloat64(math.Pow(toF64(a), toF64(b))), nil
	}
	bb := toBig(b)
	if bb.Sign() < 0 {
		return value.NewFloat64(math.Pow(toF64(a), toF64(b))), nil
	}
	z := new(big.Int).Exp(toBig(a), bb, nil)
	return narrow(z), nil
}

func (v *VM) opNegate(a value.Value, loc *value.Location) (value.Value, error) {
	switch a.Tag() {
	case value.Int32:
		z := new(big.Int).Neg(big.NewInt(int64(a.Int32())))
		return narrow(z), nil
	case value.BigInt:
		return narrow(new(big.Int).Neg(a.BigInt())), nil
	case value.Float32, value.Float64:
		return value.NewFloat64(-toF64(a)), nil
	}
	return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot negate %s", a.Tag()).WithOpcode("NEGATE")
}

func (v *VM) opIncDec(a value.Value, delta int64, loc *value.Location) (value.Value, error) {
	switch a.Tag() {
	case value.Int32, value.BigInt:
		z := new(big.Int).Add(toBig(a), big.NewInt(delta))
		return narrow(z), nil
	case value.Float32, value.Float64:
		return value.NewFloat64(toF64(a) + float64(delta)), nil
	}
	return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot increment/decrement %s", a.Tag()).WithOpcode("INCREMENT")
}

// Bitwise/shift operators operate on Int32/BigInt narrowed to int64 two's
// complement, per spec §6's BITWISE_AND/OR/XOR/NOT, LEFT_SHIFT,
// RIGHT_SHIFT (arithmetic, sign-preserving), LOGICAL_RIGHT_SHIFT
// (zero-fill). Spec §8 boundary behavior: "Right-shift of a negative
// Int32 preserves sign under >>, fills with zero under >>>".
func (v *VM) opBitwise(op string, a, b value.Value, loc *value.Location, f func(x, y int64) int64) (value.Value, error) {
	if err := bothNumeric(op, a, b, loc); err != nil {
		return value.Value{}, err
	}
	if isFloatTag(a.Tag()) || isFloatTag(b.Tag()) {
		return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "%s requires integer operands, got %s and %s", op, a.Tag(), b.Tag()).WithOpcode(op)
	}
	x := toBig(a)
	y := toBig(b)
	return narrow(big.NewInt(f(x.Int64(), y.Int64()))), nil
}

func (v *VM) opLeftShift(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("shift", a, b, loc); err != nil {
		return value.Value{}, err
	}
	x := toBig(a)
	shift := uint(toBig(b).Int64())
	z := new(big.Int).Lsh(x, shift)
	return narrow(z), nil
}

func (v *VM) opRightShift(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("shift", a, b, loc); err != nil {
		return value.Value{}, err
	}
	x := int32(toBig(a).Int64())
	shift := uint(toBig(b).Int64()) & 31
	return value.NewInt32(x >> shift), nil
}

func (v *VM) opLogicalRightShift(a, b value.Value, loc *value.Location) (value.Value, error) {
	if err := bothNumeric("shift", a, b, loc); err != nil {
		return value.Value{}, err
	}
	x := uint32(int32(toBig(a).Int64()))
	shift := uint(toBig(b).Int64()) & 31
	return value.NewInt32(int32(x >> shift)), nil
}
