package vm

import (
	"fmt"
	"strings"

	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/value"
)

// installGlobals wires the small set of always-available top-level
// natives (spec §6's "Native (vm, argc, argv) -> Value" contract),
// generalized from the teacher's primitives.go registration pattern
// (one Go closure per stdlib entry point, installed into the VM's
// global namespace rather than dispatched through SEND).
func installGlobals(v *VM) {
	def := func(name string, fn value.NativeFn) {
		v.DefineGlobal(name, value.NewNative(name, fn), true)
	}

	def("print", func(vmHandle any, args []value.Value) (value.Value, error) {
		vm := vmHandle.(*VM)
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := vm.Display(a, false)
			if err != nil {
				return value.Value{}, err
			}
			parts[i] = s
		}
		fmt.Print(strings.Join(parts, " "))
		return value.UndefinedValue, nil
	})

	def("println", func(vmHandle any, args []value.Value) (value.Value, error) {
		vm := vmHandle.(*VM)
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := vm.Display(a, false)
			if err != nil {
				return value.Value{}, err
			}
			parts[i] = s
		}
		fmt.Println(strings.Join(parts, " "))
		return value.UndefinedValue, nil
	})

	def("typeOf", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, vmerr.New(vmerr.Argument, nil, "typeOf expects 1 argument, got %d", len(args))
		}
		return value.NewString(args[0].Tag().String()), nil
	})

	def("assert", func(_ any, args []value.Value) (value.Value, error) {
		if len(args) == 0 || !value.Truthy(args[0]) {
			msg := "assertion failed"
			if len(args) > 1 && args[1].Tag() == value.String {
				msg = args[1].String()
			}
			return value.Value{}, vmerr.New(vmerr.Assert, nil, "%s", msg)
		}
		return value.UndefinedValue, nil
	})

	installCollectionMethods(v.classes)
}

// installCollectionMethods registers the small instance-method set
// backing Array/Object/String literals (spec §6), the same way the
// teacher wires Go-closure natives onto builtin behavior rather than
// implementing them in Smalltalk-level bytecode.
func installCollectionMethods(r *Registry) {
	arrayClass := r.ClassForTag(value.Array)
	arrayClass.Instance.Set("length", value.NewNative("length", func(_ any, args []value.Value) (value.Value, error) {
		return value.NewInt32(int32(args[0].ArrayLen())), nil
	}))
	arrayClass.Instance.Set("push", value.NewNative("push", func(_ any, args []value.Value) (value.Value, error) {
		args[0].ArrayPush(args[1])
		return args[0], nil
	}))
	arrayClass.Instance.Set("get", value.NewNative("get", func(_ any, args []value.Value) (value.Value, error) {
		idx := int(args[1].Int32())
		val, ok := args[0].ArrayGet(idx)
		if !ok {
			return value.Value{}, vmerr.New(vmerr.Range, nil, "index %d out of bounds", idx)
		}
		return value.Retain(val), nil
	}))

	objectClass := r.ClassForTag(value.Object)
	objectClass.Instance.Set("keys", value.NewNative("keys", func(_ any, args []value.Value) (value.Value, error) {
		keys := args[0].ObjectKeys()
		elems := make([]value.Value, len(keys))
		for i, k := range keys {
			elems[i] = value.NewString(k)
		}
		return value.NewArray(elems), nil
	}))
	objectClass.Instance.Set("has", value.NewNative("has", func(_ any, args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].ObjectHas(args[1].String())), nil
	}))

	stringClass := r.ClassForTag(value.String)
	stringClass.Instance.Set("length", value.NewNative("length", func(_ any, args []value.Value) (value.Value, error) {
		return value.NewInt32(int32(len(args[0].String()))), nil
	}))
	stringClass.Instance.Set("toUpperCase", value.NewNative("toUpperCase", func(_ any, args []value.Value) (value.Value, error) {
		return value.NewString(strings.ToUpper(args[0].String())), nil
	}))
	stringClass.Instance.Set("toLowerCase", value.NewNative("toLowerCase", func(_ any, args []value.Value) (value.Value, error) {
		return value.NewString(strings.ToLower(args[0].String())), nil
	}))
}

// DefineCase registers one ADT case class (spec §4.2's `data`/`case`
// declarations) and installs its generated toString/equals, which a
// compiler-facing front end would otherwise have to hand-write per
// case. Structural equality compares each declared parameter in order,
// per spec §4.2; toString renders "Name(p1, p2, ...)" or bare "Name"
// for a singleton case.
func (r *Registry) DefineCase(name string, params []string) *value.ClassVal {
	c := value.NewCase(name, params)
	installDataSupport(c)
	installCaseFactory(c, params)
	r.RegisterNamed(c)
	return c
}

// installCaseFactory gives a case class a Factory (spec §4.2: invoking
// the case as a callable, e.g. `Some(3)`, materializes an instance via
// value.NewCaseInstance) instead of leaving it un-callable. Arity is
// checked here since invoke's Class branch (pkg/vm/call.go) has no
// arity check of its own for factories.
func installCaseFactory(c *value.ClassVal, params []string) {
	c.Factory = value.NewNative(c.Name, func(_ any, args []value.Value) (value.Value, error) {
		if len(args) != len(params) {
			return value.Value{}, vmerr.New(vmerr.Argument, nil, "%s expects %d argument(s), got %d", c.Name, len(params), len(args))
		}
		return value.NewCaseInstance(c, args), nil
	}).Native()
}

func installDataSupport(c *value.ClassVal) {
	c.Instance.Set("toString", value.NewNative("toString", func(_ any, args []value.Value) (value.Value, error) {
		self := args[0]
		if c.IsSingleton {
			return value.NewString(c.Name), nil
		}
		parts := make([]string, len(c.CaseParams))
		for i, p := range c.CaseParams {
			val, _ := self.ObjectGet(p)
			parts[i] = value.RawDisplay(val, true)
		}
		return value.NewString(c.Name + "(" + strings.Join(parts, ", ") + ")"), nil
	}))

	c.Instance.Set("equals", value.NewNative("equals", func(vmHandle any, args []value.Value) (value.Value, error) {
		vm := vmHandle.(*VM)
		self, other := args[0], args[1]
		if other.Tag() != value.Object || other.Class() != c {
			return value.NewBool(false), nil
		}
		for _, p := range c.CaseParams {
			av, _ := self.ObjectGet(p)
			bv, _ := other.ObjectGet(p)
			eq, err := vm.Equal(av, bv)
			if err != nil {
				return value.Value{}, err
			}
			if !eq {
				return value.NewBool(false), nil
			}
		}
		return value.NewBool(true), nil
	}))
}
