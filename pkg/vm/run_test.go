package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// program builds a zero-arity top-level function whose body is
// whatever the caller emits via b, then appends HALT.
func program(t *testing.T, build func(b *bytecode.Builder)) *value.FunctionVal {
	t.Helper()
	b := bytecode.NewBuilder("main", nil)
	build(b)
	b.Emit0(bytecode.HALT)
	return b.Function()
}

func TestRunAddLiterals(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(2))
		b.EmitConstant(value.NewInt32(3))
		b.Emit0(bytecode.ADD)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int32, result.Tag())
	require.Equal(t, int32(5), result.Int32())
}

func TestRunDivisionAlwaysFloat(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(7))
		b.EmitConstant(value.NewInt32(2))
		b.Emit0(bytecode.DIVIDE)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Float64, result.Tag())
	require.InDelta(t, 3.5, result.Float64(), 1e-9)
}

func TestRunDivisionByZeroErrors(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(1))
		b.EmitConstant(value.NewInt32(0))
		b.Emit0(bytecode.DIVIDE)
	})

	v := New()
	_, err := v.Run(fn, nil)
	require.Error(t, err)
}

func TestRunGlobalDefineAndGet(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		nameIdx := b.AddConstant(value.NewString("x"))
		b.EmitConstant(value.NewInt32(41))
		b.EmitDefineGlobal(nameIdx, false)
		b.Emit0(bytecode.POP)
		b.Emit2(bytecode.GET_GLOBAL, nameIdx)
		b.Emit0(bytecode.INCREMENT)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), result.Int32())
}

func TestRunArrayBuildAndLength(t *testing.T) {
	fn := program(t, func(b *bytecode.Builder) {
		b.EmitConstant(value.NewInt32(1))
		b.EmitConstant(value.NewInt32(2))
		b.EmitConstant(value.NewInt32(3))
		b.Emit2(bytecode.BUILD_ARRAY, 3)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Array, result.Tag())
	require.Equal(t, 3, result.ArrayLen())
}

func TestRunStackBalanceAcrossCall(t *testing.T) {
	calleeBuilder := bytecode.NewBuilder("addOne", []string{"n"})
	calleeBuilder.Emit1(bytecode.GET_LOCAL, 0)
	calleeBuilder.Emit0(bytecode.INCREMENT)
	calleeBuilder.Emit0(bytecode.RETURN)
	callee := calleeBuilder.Function()

	fn := program(t, func(b *bytecode.Builder) {
		idx := b.AddConstant(value.NewFunctionValue(callee))
		b.Emit2(bytecode.PUSH_CONSTANT, idx)
		b.EmitConstant(value.NewInt32(9))
		b.Emit1(bytecode.CALL, 1)
	})

	v := New()
	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int32(10), result.Int32())
	require.Equal(t, 0, v.sp)
}
