package vm

import (
	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/value"
)

// getProperty implements GET_PROPERTY (spec §4.2): a Class receiver
// resolves against its own static chain; any other receiver first
// checks its own Object fields (an ADT instance's declared parameters,
// or a plain object literal's keys), then falls back to its class's
// instance chain. A Function/Closure/Native resolved off the instance
// chain is wrapped as a BoundMethod so a later CALL carries the
// receiver along. Null/undefined receivers are a Type error; a missing
// property on any other receiver yields Undefined rather than erroring,
// per spec §4.2 "a property absent from both the object and its class
// chain is Undefined, not an error".
func (v *VM) getProperty(recv value.Value, name string, loc *value.Location) (value.Value, error) {
	if recv.Tag() == value.Null || recv.Tag() == value.Undefined {
		return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot read property %q of %s", name, recv.Tag()).WithOpcode("GET_PROPERTY")
	}

	if recv.Tag() == value.Class {
		class := recv.AsClass()
		if val, ok := class.LookupStatic(name); ok {
			return value.Retain(val), nil
		}
		return value.UndefinedValue, nil
	}

	if recv.Tag() == value.Object && recv.ObjectHas(name) {
		val, _ := recv.ObjectGet(name)
		return value.Retain(val), nil
	}

	class := v.classes.ClassOf(recv)
	if class != nil {
		if val, ok := class.LookupInstance(name); ok {
			if isCallableTag(val.Tag()) {
				return value.NewBoundMethod(recv, val), nil
			}
			return value.Retain(val), nil
		}
	}
	return value.UndefinedValue, nil
}

func isCallableTag(t value.Tag) bool {
	switch t {
	case value.Function, value.Closure, value.Native:
		return true
	}
	return false
}

// resolveMethod implements CALL_METHOD's selector lookup (spec §4.4
// "performs the same dispatch as CALL, but first resolves selector
// against the receiver's class chain"): unlike getProperty it returns
// the bare callable, since CALL_METHOD re-lays the receiver itself as
// argument zero rather than constructing a BoundMethod only to unwrap
// it again.
func (v *VM) resolveMethod(recv value.Value, name string, loc *value.Location) (value.Value, error) {
	if recv.Tag() == value.Null || recv.Tag() == value.Undefined {
		return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot call %q on %s", name, recv.Tag()).WithOpcode("CALL_METHOD")
	}
	if recv.Tag() == value.Class {
		class := recv.AsClass()
		if val, ok := class.LookupStatic(name); ok && isCallableTag(val.Tag()) {
			return val, nil
		}
	}
	class := v.classes.ClassOf(recv)
	if class != nil {
		if val, ok := class.LookupInstance(name); ok && isCallableTag(val.Tag()) {
			return val, nil
		}
	}
	return value.Value{}, vmerr.New(vmerr.Reference, toErrLoc(loc), "no method %q on %s", name, recv.Tag()).WithOpcode("CALL_METHOD")
}

// opIn implements the `in` operator (DESIGN.md open-question decision;
// spec §6 lists IN among the opcodes but leaves its receiver-type
// behavior to be filled in): Array membership by Equal, Object key
// presence, Range numeric containment.
func (v *VM) opIn(needle, haystack value.Value, loc *value.Location) (bool, error) {
	switch haystack.Tag() {
	case value.Array:
		for _, e := range haystack.ArrayElems() {
			eq, err := v.Equal(needle, e)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case value.Object:
		if needle.Tag() != value.String {
			return false, nil
		}
		return haystack.ObjectHas(needle.String()), nil
	case value.Range:
		start, end, exclusive, _ := haystack.RangeParts()
		if !numericTag(needle.Tag()) {
			return false, nil
		}
		loCmp, ok1, err := value.Compare(needle, start)
		if err != nil {
			return false, err
		}
		hiCmp, ok2, err := value.Compare(needle, end)
		if err != nil {
			return false, err
		}
		if !ok1 || !ok2 {
			return false, nil
		}
		if exclusive {
			return loCmp >= 0 && hiCmp < 0, nil
		}
		return loCmp >= 0 && hiCmp <= 0, nil
	}
	return false, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot use 'in' on %s", haystack.Tag()).WithOpcode("IN")
}

// opInstanceof implements `instanceof` (spec §4.2): the right operand
// must be a Class; the left operand's class chain (via the registry)
// is walked for a match.
func (v *VM) opInstanceof(a, b value.Value, loc *value.Location) (bool, error) {
	if b.Tag() != value.Class {
		return false, vmerr.New(vmerr.Type, toErrLoc(loc), "right-hand side of instanceof must be a class, got %s", b.Tag()).WithOpcode("INSTANCEOF")
	}
	class := v.classes.ClassOf(a)
	if class == nil {
		return false, nil
	}
	return class.IsInstanceOf(b.AsClass()), nil
}
