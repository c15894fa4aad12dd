package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// buildDoubleMethod returns a one-param ("self") Function reading a "n"
// field off its receiver and doubling it, the shared body for both the
// GET_PROPERTY/BoundMethod path and the CALL_METHOD direct-dispatch path.
func buildDoubleMethod() *value.FunctionVal {
	b := bytecode.NewBuilder("double", []string{"self"})
	twoIdx := b.AddConstant(value.NewInt32(2))
	nIdx := b.AddConstant(value.NewString("n"))
	b.Emit1(bytecode.GET_LOCAL, 0)
	b.Emit2(bytecode.GET_PROPERTY, nIdx)
	b.Emit2(bytecode.PUSH_CONSTANT, twoIdx)
	b.Emit0(bytecode.MULTIPLY)
	b.Emit0(bytecode.RETURN)
	return b.Function()
}

func newCounter(classes *Registry, n int32) (*value.ClassVal, value.Value) {
	counter := value.NewClass("Counter", nil)
	counter.Instance.Set("double", value.NewFunctionValue(buildDoubleMethod()))
	classes.RegisterNamed(counter)

	obj := value.NewObject().WithClass(counter)
	obj.ObjectSet("n", value.NewInt32(n))
	return counter, obj
}

// GET_PROPERTY on an instance method resolves it off the class chain and
// wraps it as a BoundMethod (spec §4.2); a plain CALL against that
// BoundMethod prepends the receiver as argument zero.
func TestPropertyAccessYieldsBoundMethod(t *testing.T) {
	v := New()
	_, obj := newCounter(v.Classes(), 21)

	fn := program(t, func(b *bytecode.Builder) {
		objIdx := b.AddConstant(obj)
		doubleIdx := b.AddConstant(value.NewString("double"))
		b.Emit2(bytecode.PUSH_CONSTANT, objIdx)
		b.Emit2(bytecode.GET_PROPERTY, doubleIdx)
		b.Emit1(bytecode.CALL, 0)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Int32, result.Tag())
	require.Equal(t, int32(42), result.Int32())
}

// CALL_METHOD resolves the selector against the receiver's class chain
// directly, without materializing an intermediate BoundMethod (spec
// §4.4 "performs the same dispatch as CALL").
func TestCallMethodDirectDispatch(t *testing.T) {
	v := New()
	_, obj := newCounter(v.Classes(), 21)

	fn := program(t, func(b *bytecode.Builder) {
		objIdx := b.AddConstant(obj)
		doubleIdx := b.AddConstant(value.NewString("double"))
		b.Emit2(bytecode.PUSH_CONSTANT, doubleIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, objIdx)
		b.Emit1(bytecode.CALL_METHOD, 0)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int32(42), result.Int32())
}

func TestCallMethodUnknownSelectorErrors(t *testing.T) {
	v := New()
	_, obj := newCounter(v.Classes(), 21)

	fn := program(t, func(b *bytecode.Builder) {
		objIdx := b.AddConstant(obj)
		missingIdx := b.AddConstant(value.NewString("triple"))
		b.Emit2(bytecode.PUSH_CONSTANT, missingIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, objIdx)
		b.Emit1(bytecode.CALL_METHOD, 0)
	})

	_, err := v.Run(fn, nil)
	require.Error(t, err)
}

// instanceof walks the receiver's class chain (spec §4.2); a parent
// class matches a child instance, but not the reverse.
func TestInstanceofWalksParentChain(t *testing.T) {
	v := New()
	animal := value.NewClass("Animal", nil)
	v.Classes().RegisterNamed(animal)
	dog := value.NewClass("Dog", animal)
	v.Classes().RegisterNamed(dog)

	rex := value.NewObject().WithClass(dog)

	fn := program(t, func(b *bytecode.Builder) {
		rexIdx := b.AddConstant(rex)
		animalIdx := b.AddConstant(value.NewClassValue(animal))
		b.Emit2(bytecode.PUSH_CONSTANT, rexIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, animalIdx)
		b.Emit0(bytecode.INSTANCEOF)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Bool, result.Tag())
	require.True(t, result.Bool())
}

func TestInstanceofFailsAgainstUnrelatedClass(t *testing.T) {
	v := New()
	animal := value.NewClass("Animal", nil)
	v.Classes().RegisterNamed(animal)
	vehicle := value.NewClass("Vehicle", nil)
	v.Classes().RegisterNamed(vehicle)
	rex := value.NewObject().WithClass(animal)

	fn := program(t, func(b *bytecode.Builder) {
		rexIdx := b.AddConstant(rex)
		vehicleIdx := b.AddConstant(value.NewClassValue(vehicle))
		b.Emit2(bytecode.PUSH_CONSTANT, rexIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, vehicleIdx)
		b.Emit0(bytecode.INSTANCEOF)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.False(t, result.Bool())
}
