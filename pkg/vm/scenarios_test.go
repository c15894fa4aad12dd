package vm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// These exercise seven of the eight concrete end-to-end scenarios of
// spec §8 (scenario 5, the module import, is in module_test.go) by
// hand-assembling the bytecode a front end would compile each source
// snippet down to, since this core ships no lexer/parser/compiler
// (spec §1).

// 1. var s = 0; for var i = 1; i <= 10; i += 1 do s = s + i; s => Int32 55
func TestScenarioForLoopSum(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		sIdx := b.AddConstant(value.NewString("s"))
		iIdx := b.AddConstant(value.NewString("i"))
		tenIdx := b.AddConstant(value.NewInt32(10))
		oneIdx := b.AddConstant(value.NewInt32(1))

		b.EmitConstant(value.NewInt32(0))
		b.EmitDefineGlobal(sIdx, false)
		b.Emit0(bytecode.POP)

		b.Emit2(bytecode.PUSH_CONSTANT, oneIdx)
		b.EmitDefineGlobal(iIdx, false)
		b.Emit0(bytecode.POP)

		loopStart := b.Emit2(bytecode.GET_GLOBAL, iIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, tenIdx)
		b.Emit0(bytecode.LESS_EQUAL)
		exitJump := b.EmitJump(bytecode.JUMP_IF_FALSE)
		b.Emit0(bytecode.POP) // discard truthy condition

		b.Emit2(bytecode.GET_GLOBAL, sIdx)
		b.Emit2(bytecode.GET_GLOBAL, iIdx)
		b.Emit0(bytecode.ADD)
		b.Emit2(bytecode.SET_GLOBAL, sIdx)
		b.Emit0(bytecode.POP)

		b.Emit2(bytecode.GET_GLOBAL, iIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, oneIdx)
		b.Emit0(bytecode.ADD)
		b.Emit2(bytecode.SET_GLOBAL, iIdx)
		b.Emit0(bytecode.POP)
		b.EmitLoop(loopStart)

		b.PatchJump(exitJump)
		b.Emit0(bytecode.POP) // discard falsy condition
		b.Emit2(bytecode.GET_GLOBAL, sIdx)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int32, result.Tag())
	require.Equal(t, int32(55), result.Int32())
}

// 2. def fact(n) = if n <= 1 then 1 else n * fact(n-1); fact(5) => Int32 120
func TestScenarioRecursiveFactorial(t *testing.T) {
	factBuilder := bytecode.NewBuilder("fact", []string{"n"})
	oneIdx := factBuilder.AddConstant(value.NewInt32(1))
	factNameIdx := factBuilder.AddConstant(value.NewString("fact"))

	factBuilder.Emit1(bytecode.GET_LOCAL, 0)
	factBuilder.Emit2(bytecode.PUSH_CONSTANT, oneIdx)
	factBuilder.Emit0(bytecode.LESS_EQUAL)
	elseJump := factBuilder.EmitJump(bytecode.JUMP_IF_FALSE)
	factBuilder.Emit0(bytecode.POP)
	factBuilder.Emit2(bytecode.PUSH_CONSTANT, oneIdx)
	factBuilder.Emit0(bytecode.RETURN)

	factBuilder.PatchJump(elseJump)
	factBuilder.Emit0(bytecode.POP)
	factBuilder.Emit1(bytecode.GET_LOCAL, 0)
	factBuilder.Emit2(bytecode.GET_GLOBAL, factNameIdx)
	factBuilder.Emit1(bytecode.GET_LOCAL, 0)
	factBuilder.Emit2(bytecode.PUSH_CONSTANT, oneIdx)
	factBuilder.Emit0(bytecode.SUBTRACT)
	factBuilder.Emit1(bytecode.CALL, 1)
	factBuilder.Emit0(bytecode.MULTIPLY)
	factBuilder.Emit0(bytecode.RETURN)
	factFn := factBuilder.Function()

	fn := program(t, func(b *bytecode.Builder) {
		nameIdx := b.AddConstant(value.NewString("fact"))
		fnIdx := b.AddConstant(value.NewFunctionValue(factFn))
		fiveIdx := b.AddConstant(value.NewInt32(5))

		b.Emit2(bytecode.PUSH_CONSTANT, fnIdx)
		b.EmitDefineGlobal(nameIdx, true)
		b.Emit0(bytecode.POP)

		b.Emit2(bytecode.GET_GLOBAL, nameIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, fiveIdx)
		b.Emit1(bytecode.CALL, 1)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int32, result.Tag())
	require.Equal(t, int32(120), result.Int32())
}

// 3. match [1,2,3] case [1,2,3] do "eq" case _ do "ne" => String "eq"
//
// There is no MATCH opcode in spec §6's appendix, so a front end lowers
// a case arm's pattern test to an EQUAL comparison plus a conditional
// branch, same as it would for any other boolean test.
func TestScenarioMatchArrayPattern(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		eqIdx := b.AddConstant(value.NewString("eq"))
		neIdx := b.AddConstant(value.NewString("ne"))

		b.EmitConstant(value.NewInt32(1))
		b.EmitConstant(value.NewInt32(2))
		b.EmitConstant(value.NewInt32(3))
		b.Emit2(bytecode.BUILD_ARRAY, 3) // subject

		b.EmitConstant(value.NewInt32(1))
		b.EmitConstant(value.NewInt32(2))
		b.EmitConstant(value.NewInt32(3))
		b.Emit2(bytecode.BUILD_ARRAY, 3) // pattern [1,2,3]

		b.Emit0(bytecode.EQUAL)
		noMatch := b.EmitJump(bytecode.JUMP_IF_FALSE)
		b.Emit0(bytecode.POP)
		b.Emit2(bytecode.PUSH_CONSTANT, eqIdx)
		end := b.EmitJump(bytecode.JUMP)

		b.PatchJump(noMatch)
		b.Emit0(bytecode.POP)
		b.Emit2(bytecode.PUSH_CONSTANT, neIdx)

		b.PatchJump(end)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.String, result.Tag())
	require.Equal(t, "eq", result.String())
}

// 4. data Option\n case Some(v)\n case None\nSome(3) == Some(3) => true;
// Some(3) == Some(4) => false.
func TestScenarioADTStructuralEquality(t *testing.T) {
	v := New()
	someClass := v.Classes().DefineCase("Some", []string{"v"})

	build := func(arg int32) *value.FunctionVal {
		b := bytecode.NewBuilder("main", nil)
		someIdx := b.AddConstant(value.NewClassValue(someClass))
		argIdx := b.AddConstant(value.NewInt32(arg))
		b.Emit2(bytecode.PUSH_CONSTANT, someIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, argIdx)
		b.Emit1(bytecode.CALL, 1)
		b.Emit0(bytecode.HALT)
		return b.Function()
	}

	same1, err := v.Run(build(3), nil)
	require.NoError(t, err)
	same2, err := v.Run(build(3), nil)
	require.NoError(t, err)
	diff, err := v.Run(build(4), nil)
	require.NoError(t, err)

	eq1, err := v.Equal(same1, same2)
	require.NoError(t, err)
	require.True(t, eq1)

	eq2, err := v.Equal(same1, diff)
	require.NoError(t, err)
	require.False(t, eq2)
}

// 6. var x = null; x?.a?.b ?? 42 => Int32 42; var x = null; x.a => type error.
//
// There is no dedicated optional-chaining opcode; `?.` lowers to a
// DUP + JUMP_IF_FALSE guard around an ordinary GET_PROPERTY so that a
// null/undefined receiver short-circuits to Undefined instead of
// raising.
func emitOptionalGet(b *bytecode.Builder, propIdx uint16) {
	b.Emit0(bytecode.DUP)
	guard := b.EmitJump(bytecode.JUMP_IF_FALSE)
	b.Emit0(bytecode.POP) // discard the dup; real receiver stays
	b.Emit2(bytecode.GET_PROPERTY, propIdx)
	skip := b.EmitJump(bytecode.JUMP)

	b.PatchJump(guard)
	b.Emit0(bytecode.POP) // discard the dup
	b.Emit0(bytecode.POP) // discard the null/undefined receiver itself
	b.Emit0(bytecode.PUSH_UNDEFINED)

	b.PatchJump(skip)
}

func TestScenarioOptionalChainingOnNull(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		aIdx := b.AddConstant(value.NewString("a"))
		bIdx := b.AddConstant(value.NewString("b"))
		fortyTwoIdx := b.AddConstant(value.NewInt32(42))

		b.Emit0(bytecode.PUSH_NULL)
		emitOptionalGet(b, aIdx)
		emitOptionalGet(b, bIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, fortyTwoIdx)
		b.Emit0(bytecode.NULL_COALESCE)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int32, result.Tag())
	require.Equal(t, int32(42), result.Int32())
}

func TestScenarioPlainPropertyAccessOnNullErrors(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		aIdx := b.AddConstant(value.NewString("a"))
		b.Emit0(bytecode.PUSH_NULL)
		b.Emit2(bytecode.GET_PROPERTY, aIdx)
	})

	v := New()
	_, err := v.Run(fn, nil)
	require.Error(t, err)
}

// 7. (-16) >> 1 => Int32 -8; (-16) >>> 1 => Int32 2147483640.
func TestScenarioShiftSignBehavior(t *testing.T) {
	arithFn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(-16))
		b.EmitConstant(value.NewInt32(1))
		b.Emit0(bytecode.RIGHT_SHIFT)
	})
	logicalFn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(-16))
		b.EmitConstant(value.NewInt32(1))
		b.Emit0(bytecode.LOGICAL_RIGHT_SHIFT)
	})

	v := New()
	arith, err := v.Run(arithFn, nil)
	require.NoError(t, err)
	require.Equal(t, int32(-8), arith.Int32())

	v2 := New()
	logical, err := v2.Run(logicalFn, nil)
	require.NoError(t, err)
	require.Equal(t, int32(2147483640), logical.Int32())
}

// 8. 2_000_000_000 + 2_000_000_000 => BigInt 4000000000.
func TestScenarioInt32OverflowPromotesToBigInt(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(2000000000))
		b.EmitConstant(value.NewInt32(2000000000))
		b.Emit0(bytecode.ADD)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.BigInt, result.Tag())
	require.Equal(t, 0, result.BigInt().Cmp(big.NewInt(4000000000)))
}
