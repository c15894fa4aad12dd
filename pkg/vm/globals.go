package vm

import (
	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/value"
)

// activeNamespace returns the namespace GET_GLOBAL/SET_GLOBAL/
// DEFINE_GLOBAL operate on: the top of the module-context stack, or the
// VM's own globals if no module is executing (spec §4.4 step 2).
func (v *VM) activeNamespace() *value.Namespace {
	if len(v.moduleContext) > 0 {
		return v.moduleContext[len(v.moduleContext)-1].Namespace
	}
	return v.globals
}

// paramSlot implements spec §4.4 step 1: "if executing inside a Function
// call, check whether the name equals one of the function's parameter
// names — if so, load/store the corresponding argument slot". Returns
// the absolute stack slot and ok=true on a match.
func (v *VM) paramSlot(name string) (int, bool) {
	frame := v.currentFrame()
	fn := frameFunction(frame.Closure)
	for i, p := range fn.Params {
		if p == name {
			return frame.Slots + i, true
		}
	}
	return 0, false
}

func frameFunction(closure value.Value) *value.FunctionVal {
	if closure.Tag() == value.Function {
		return closure.Function()
	}
	return closure.Closure().Fn
}

// getGlobal implements GET_GLOBAL's resolution order (spec §4.4).
func (v *VM) getGlobal(name string, loc *value.Location) (value.Value, error) {
	if slot, ok := v.paramSlot(name); ok {
		return v.stack[slot], nil
	}
	ns := v.activeNamespace()
	if val, ok := ns.Get(name); ok {
		return val, nil
	}
	if ns != v.globals {
		if val, ok := v.globals.Get(name); ok {
			return val, nil
		}
	}
	return value.Value{}, vmerr.New(vmerr.Reference, toErrLoc(loc), "undefined name: %s", name).WithOpcode("GET_GLOBAL")
}

// setGlobal implements SET_GLOBAL (and the write half shared with
// DEFINE_GLOBAL's first definition): Undefined is not storable, and
// writes to an immutable name are rejected.
func (v *VM) setGlobal(name string, val value.Value, loc *value.Location) error {
	if val.Tag() == value.Undefined {
		return vmerr.New(vmerr.Type, toErrLoc(loc), "cannot store undefined into %s", name).WithOpcode("SET_GLOBAL")
	}
	if slot, ok := v.paramSlot(name); ok {
		value.Release(v.stack[slot])
		v.stack[slot] = value.Retain(val)
		return nil
	}
	if v.immutable[name] {
		return vmerr.New(vmerr.State, toErrLoc(loc), "cannot assign to immutable name: %s", name).WithOpcode("SET_GLOBAL")
	}
	ns := v.activeNamespace()
	if old, ok := ns.Get(name); ok {
		value.Release(old)
	}
	ns.Set(name, value.Retain(val))
	return nil
}

// defineGlobal implements DEFINE_GLOBAL: a bind into the active
// namespace (used for `var`/`def`/`val` top-level declarations).
// immutable marks the name so a later SET_GLOBAL to it is rejected
// (spec §4.4: "writing to a name marked immutable is an error") — a
// `val` binding passes true, `var`/`def` pass false.
func (v *VM) defineGlobal(name string, val value.Value, immutable bool, loc *value.Location) error {
	if val.Tag() == value.Undefined {
		return vmerr.New(vmerr.Type, toErrLoc(loc), "cannot store undefined into %s", name).WithOpcode("DEFINE_GLOBAL")
	}
	v.activeNamespace().Set(name, value.Retain(val))
	if immutable {
		v.immutable[name] = true
	} else {
		delete(v.immutable, name)
	}
	return nil
}
