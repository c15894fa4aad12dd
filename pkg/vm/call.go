package vm

import (
	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/value"
)

// resolveCallee unwraps a BoundMethod to its underlying callable and
// receiver, so both CALL and CALL_METHOD share one dispatch tail (spec
// §4.4 "CALL_METHOD ... performs the same dispatch as CALL"). Plain
// callees report hasReceiver=false.
func resolveCallee(v value.Value) (callable value.Value, receiver value.Value, hasReceiver bool) {
	if v.Tag() == value.BoundMethod {
		bm := v.BoundMethod()
		return bm.Callable, bm.Receiver, true
	}
	return v, value.Value{}, false
}

// invoke dispatches a callable (Class factory, Native, Function, Closure
// or BoundMethod) against an argument window already laid out at
// stack[slotsBase:slotsBase+argc], per the CALL semantics of spec §4.4:
// "inspects the callee (either a Class with a factory ... a Native ...
// a Function/Closure — open a new frame); validates arity; sets slots to
// the argument base". For Natives and Class factories the call completes
// synchronously and the result replaces the argument window; for
// Function/Closure it pushes a new Active frame and returns
// enteredFrame=true so the caller (the main dispatch loop) knows not to
// touch the stack further.
func (v *VM) invoke(callee value.Value, slotsBase, argc int, loc *value.Location) (result value.Value, enteredFrame bool, err error) {
	if callable, receiver, has := resolveCallee(callee); has {
		// Re-lay the argument window as [receiver, arg0, ...] (spec §4.2
		// "calling a BoundMethod invokes the callable with the receiver
		// prepended as argument zero").
		if err := v.makeRoom(slotsBase, 1); err != nil {
			return value.Value{}, false, err
		}
		copy(v.stack[slotsBase+1:slotsBase+1+argc], v.stack[slotsBase:slotsBase+argc])
		v.stack[slotsBase] = receiver
		argc++
		callee = callable
	}

	switch callee.Tag() {
	case value.Class:
		class := callee.AsClass()
		if class.Factory == nil {
			return value.Value{}, false, vmerr.New(vmerr.Type, toErrLoc(loc), "class %s has no factory", class.Name).WithOpcode("CALL")
		}
		args := append([]value.Value(nil), v.stack[slotsBase:slotsBase+argc]...)
		res, err := class.Factory.Fn(v, args)
		if err != nil {
			return value.Value{}, false, err
		}
		v.sp = slotsBase
		return res, false, nil

	case value.Native:
		args := append([]value.Value(nil), v.stack[slotsBase:slotsBase+argc]...)
		res, err := callee.Native().Fn(v, args)
		if err != nil {
			return value.Value{}, false, err
		}
		v.sp = slotsBase
		return res, false, nil

	case value.Function, value.Closure:
		var fn *value.FunctionVal
		var mod *value.Module
		if callee.Tag() == value.Function {
			fn = callee.Function()
		} else {
			c := callee.Closure()
			fn = c.Fn
			mod = c.Module
		}
		if argc != fn.Arity {
			return value.Value{}, false, vmerr.New(vmerr.Argument, toErrLoc(loc), "%s expects %d argument(s), got %d", fn.Name, fn.Arity, argc).WithOpcode("CALL")
		}
		if v.frameCount >= len(v.frames) {
			return value.Value{}, false, vmerr.New(vmerr.State, toErrLoc(loc), "frame stack overflow").WithOpcode("CALL")
		}
		modulePush := false
		if mod != nil {
			v.moduleContext = append(v.moduleContext, mod)
			modulePush = true
		}
		v.frames[v.frameCount] = Frame{Closure: callee, IP: 0, Slots: slotsBase, modulePush: modulePush}
		v.frameCount++
		v.sp = slotsBase + argc
		return value.Value{}, true, nil

	default:
		return value.Value{}, false, vmerr.New(vmerr.Type, toErrLoc(loc), "%s is not callable", callee.Tag()).WithOpcode("CALL")
	}
}

// makeRoom checks that inserting `extra` slots at position idx fits in
// the configured stack size and returns a State error if it does not;
// it does not grow the stack.
func (v *VM) makeRoom(idx, extra int) error {
	if v.sp+extra > len(v.stack) {
		return vmerr.New(vmerr.State, nil, "stack overflow")
	}
	return nil
}

// callCallable is the synchronous re-entrant call path used by native
// methods and by Display/Equal's class-dispatch (toString/equals), which
// need to invoke user-level code from within a Go call rather than from
// the byte-code dispatch loop directly. It lays args out on the VM's own
// stack above the current stack-top, invokes, and (for Function/Closure)
// drives the shared dispatch loop down to the depth it just pushed,
// mirroring the single-threaded cooperative model of spec §4.4/§5: no
// opcode handler re-enters itself, but a native's synchronous call to
// user code is explicitly allowed ("native methods that need to perform
// I/O do so synchronously").
func (v *VM) callCallable(callee value.Value, args []value.Value) (value.Value, error) {
	slotsBase := v.sp
	if slotsBase+len(args) > len(v.stack) {
		return value.Value{}, vmerr.New(vmerr.State, nil, "stack overflow")
	}
	for i, a := range args {
		v.stack[slotsBase+i] = a
	}
	v.sp = slotsBase + len(args)
	floor := v.frameCount
	res, entered, err := v.invoke(callee, slotsBase, len(args), nil)
	if err != nil {
		v.sp = slotsBase
		return value.Value{}, err
	}
	if !entered {
		return res, nil
	}
	return v.runLoop(floor)
}
