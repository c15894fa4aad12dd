package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// DefineCase must give a case class a working Factory (spec §4.2): a
// data/case class invoked as a callable, e.g. `Some(3)`, materializes a
// value.NewCaseInstance, not an "has no factory" error.

func TestDefineCaseConstructorCaseFactory(t *testing.T) {
	v := New()
	someClass := v.Classes().DefineCase("Some", []string{"v"})
	require.NotNil(t, someClass.Factory)

	fn := program(t, func(b *bytecode.Builder) {
		classIdx := b.AddConstant(value.NewClassValue(someClass))
		argIdx := b.AddConstant(value.NewInt32(3))
		b.Emit2(bytecode.PUSH_CONSTANT, classIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, argIdx)
		b.Emit1(bytecode.CALL, 1)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Object, result.Tag())
	require.Same(t, someClass, result.Class())

	typ, ok := result.ObjectGet("__type")
	require.True(t, ok)
	require.Equal(t, "Some", typ.String())
	caseType, ok := result.ObjectGet("__case_type")
	require.True(t, ok)
	require.Equal(t, "constructor", caseType.String())
	field, ok := result.ObjectGet("v")
	require.True(t, ok)
	require.Equal(t, int32(3), field.Int32())
}

func TestDefineCaseSingletonFactory(t *testing.T) {
	v := New()
	noneClass := v.Classes().DefineCase("None", nil)
	require.NotNil(t, noneClass.Factory)

	fn := program(t, func(b *bytecode.Builder) {
		classIdx := b.AddConstant(value.NewClassValue(noneClass))
		b.Emit2(bytecode.PUSH_CONSTANT, classIdx)
		b.Emit1(bytecode.CALL, 0)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	require.Equal(t, value.Object, result.Tag())
	caseType, ok := result.ObjectGet("__case_type")
	require.True(t, ok)
	require.Equal(t, "singleton", caseType.String())

	str, err := v.Display(result, false)
	require.NoError(t, err)
	require.Equal(t, "None", str)
}

func TestDefineCaseFactoryArityError(t *testing.T) {
	v := New()
	someClass := v.Classes().DefineCase("Some", []string{"v"})

	fn := program(t, func(b *bytecode.Builder) {
		classIdx := b.AddConstant(value.NewClassValue(someClass))
		b.Emit2(bytecode.PUSH_CONSTANT, classIdx)
		b.Emit1(bytecode.CALL, 0)
	})

	_, err := v.Run(fn, nil)
	require.Error(t, err)
}

func TestDefineCaseToStringRendersConstructorForm(t *testing.T) {
	v := New()
	someClass := v.Classes().DefineCase("Some", []string{"v"})

	fn := program(t, func(b *bytecode.Builder) {
		classIdx := b.AddConstant(value.NewClassValue(someClass))
		argIdx := b.AddConstant(value.NewInt32(7))
		b.Emit2(bytecode.PUSH_CONSTANT, classIdx)
		b.Emit2(bytecode.PUSH_CONSTANT, argIdx)
		b.Emit1(bytecode.CALL, 1)
	})

	result, err := v.Run(fn, nil)
	require.NoError(t, err)
	str, err := v.Display(result, false)
	require.NoError(t, err)
	require.Equal(t, "Some(7)", str)
}
