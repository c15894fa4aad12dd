package value

import "math/big"

// BigIntVal is the shared, reference-counted arbitrary-precision integer
// collaborator named in spec §1/§6. No repository in the retrieval pack
// ships a standalone bignum library (the pack's bignum-adjacent
// dependencies are all blockchain-specific, e.g. uint256, which is fixed
// width and cannot represent arbitrary magnitude); math/big is the
// standard library's own arbitrary-precision integer and is the
// documented exception (DESIGN.md) to "never fall back to stdlib".
type BigIntVal struct {
	rc
	V *big.Int
}

func (b *BigIntVal) children() []Value { return nil }

func NewBigIntFromInt64(i int64) Value {
	return newValue(BigInt, &BigIntVal{V: big.NewInt(i)})
}

func NewBigInt(b *big.Int) Value {
	return newValue(BigInt, &BigIntVal{V: b})
}

func (v Value) BigInt() *big.Int { return v.ptr.(*BigIntVal).V }

// FitsInt32 reports whether a BigInt payload can be narrowed back to
// Int32 without loss (used after arithmetic that might de-promote, and
// by the BigInt "to-int32 with overflow flag" contract in spec §6).
func FitsInt32(b *big.Int) (int32, bool) {
	if b.IsInt64() {
		i64 := b.Int64()
		if i64 >= -(1<<31) && i64 <= (1<<31)-1 {
			return int32(i64), true
		}
	}
	return 0, false
}
