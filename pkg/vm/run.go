package vm

import (
	"encoding/binary"

	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// Run executes fn as the VM's top-level program (spec §3.6, §4.4): it
// wraps fn in a bare Closure (no upvalues, no owning Module), lays out
// any caller-supplied arguments, and drives the dispatch loop to
// completion. This is the entry point a front end (cmd/slate) or test
// calls after compiling source, generalizing the teacher's
// vm.Run(*bytecode.Bytecode) the way this core generalizes smog's
// single-function program model to Slate's closures/modules.
func (v *VM) Run(fn *value.FunctionVal, args []value.Value) (value.Value, error) {
	v.sp = 0
	v.frameCount = 0
	closure := value.NewClosure(fn, nil, nil)
	slotsBase := 0
	for i, a := range args {
		v.stack[slotsBase+i] = a
	}
	v.sp = len(args)
	_, entered, err := v.invoke(closure, slotsBase, len(args), nil)
	if err != nil {
		return value.Value{}, err
	}
	if !entered {
		return v.result, nil
	}
	res, err := v.runLoop(0)
	if err != nil {
		return value.Value{}, err
	}
	v.result = res
	return res, nil
}

// runLoop drives opcode dispatch until the frame stack returns to depth
// floor (spec §4.4's Active/Suspended/Retiring frame state machine),
// returning the value the frame at that depth produced via RETURN. It is
// re-entered by callCallable for synchronous native-to-user-code calls,
// never by an opcode handler calling itself (spec §5 "an opcode never
// yields; a native call never re-enters its own pending invocation").
func (v *VM) runLoop(floor int) (value.Value, error) {
	for v.frameCount > floor {
		frame := v.currentFrame()
		fn := frameFunction(frame.Closure)
		code := fn.Code

		if v.debugger != nil && v.debugger.shouldPause(frame.IP) {
			if !v.debugger.prompt(v, fn, frame.IP) {
				return value.Value{}, vmerr.New(vmerr.State, nil, "debugging session terminated")
			}
		}

		op := bytecode.Opcode(code[frame.IP])
		loc := fn.LocationAt(frame.IP)
		ip := frame.IP

		switch op {
		case bytecode.PUSH_CONSTANT:
			idx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			if err := v.push(value.Retain(fn.Constants[idx])); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 3

		case bytecode.PUSH_NULL:
			v.push(value.NullValue)
			frame.IP = ip + 1
		case bytecode.PUSH_UNDEFINED:
			v.push(value.UndefinedValue)
			frame.IP = ip + 1
		case bytecode.PUSH_TRUE:
			v.push(value.NewBool(true))
			frame.IP = ip + 1
		case bytecode.PUSH_FALSE:
			v.push(value.NewBool(false))
			frame.IP = ip + 1

		case bytecode.POP:
			val, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			value.Release(val)
			frame.IP = ip + 1

		case bytecode.DUP:
			top := v.peek(0)
			if err := v.push(value.Retain(top)); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 1

		case bytecode.POP_N:
			n := int(code[ip+1])
			for i := 0; i < n; i++ {
				val, err := v.pop()
				if err != nil {
					return value.Value{}, err
				}
				value.Release(val)
			}
			frame.IP = ip + 2

		case bytecode.POP_N_PRESERVE_TOP:
			n := int(code[ip+1])
			top, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			for i := 0; i < n; i++ {
				val, err := v.pop()
				if err != nil {
					return value.Value{}, err
				}
				value.Release(val)
			}
			if err := v.push(top); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 2

		case bytecode.SET_RESULT:
			v.result = v.peek(0)
			frame.IP = ip + 1

		case bytecode.ADD, bytecode.SUBTRACT, bytecode.MULTIPLY, bytecode.DIVIDE, bytecode.MOD,
			bytecode.POWER, bytecode.FLOOR_DIV:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.binaryArith(op, a, b, loc)
			value.Release(a)
			value.Release(b)
			if err != nil {
				return value.Value{}, err
			}
			if err := v.push(res); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 1

		case bytecode.NEGATE:
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.opNegate(a, loc)
			value.Release(a)
			if err != nil {
				return value.Value{}, err
			}
			v.push(res)
			frame.IP = ip + 1

		case bytecode.INCREMENT, bytecode.DECREMENT:
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			delta := int64(1)
			if op == bytecode.DECREMENT {
				delta = -1
			}
			res, err := v.opIncDec(a, delta, loc)
			value.Release(a)
			if err != nil {
				return value.Value{}, err
			}
			v.push(res)
			frame.IP = ip + 1

		case bytecode.BITWISE_AND, bytecode.BITWISE_OR, bytecode.BITWISE_XOR,
			bytecode.LEFT_SHIFT, bytecode.RIGHT_SHIFT, bytecode.LOGICAL_RIGHT_SHIFT:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.binaryBitwise(op, a, b, loc)
			value.Release(a)
			value.Release(b)
			if err != nil {
				return value.Value{}, err
			}
			v.push(res)
			frame.IP = ip + 1

		case bytecode.BITWISE_NOT:
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			if !numericTag(a.Tag()) {
				return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "cannot complement %s", a.Tag()).WithOpcode("BITWISE_NOT")
			}
			res := value.NewInt32(^int32(toBig(a).Int64()))
			value.Release(a)
			v.push(res)
			frame.IP = ip + 1

		case bytecode.EQUAL, bytecode.NOT_EQUAL:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			eq, err := v.Equal(a, b)
			value.Release(a)
			value.Release(b)
			if err != nil {
				return value.Value{}, err
			}
			if op == bytecode.NOT_EQUAL {
				eq = !eq
			}
			v.push(value.NewBool(eq))
			frame.IP = ip + 1

		case bytecode.LESS, bytecode.GREATER, bytecode.LESS_EQUAL, bytecode.GREATER_EQUAL:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			cmp, ok, cerr := value.Compare(a, b)
			value.Release(a)
			value.Release(b)
			if cerr != nil {
				return value.Value{}, vmerr.New(vmerr.Type, toErrLoc(loc), "%v", cerr).WithOpcode(op.String())
			}
			var res bool
			if ok {
				switch op {
				case bytecode.LESS:
					res = cmp < 0
				case bytecode.GREATER:
					res = cmp > 0
				case bytecode.LESS_EQUAL:
					res = cmp <= 0
				case bytecode.GREATER_EQUAL:
					res = cmp >= 0
				}
			}
			v.push(value.NewBool(res))
			frame.IP = ip + 1

		case bytecode.AND, bytecode.OR:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			var res bool
			if op == bytecode.AND {
				res = value.Truthy(a) && value.Truthy(b)
			} else {
				res = value.Truthy(a) || value.Truthy(b)
			}
			value.Release(a)
			value.Release(b)
			v.push(value.NewBool(res))
			frame.IP = ip + 1

		case bytecode.NOT:
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res := !value.Truthy(a)
			value.Release(a)
			v.push(value.NewBool(res))
			frame.IP = ip + 1

		case bytecode.NULL_COALESCE:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			if a.Tag() == value.Null || a.Tag() == value.Undefined {
				value.Release(a)
				v.push(b)
			} else {
				value.Release(b)
				v.push(a)
			}
			frame.IP = ip + 1

		case bytecode.IN:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.opIn(a, b, loc)
			value.Release(a)
			value.Release(b)
			if err != nil {
				return value.Value{}, err
			}
			v.push(value.NewBool(res))
			frame.IP = ip + 1

		case bytecode.INSTANCEOF:
			b, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			a, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.opInstanceof(a, b, loc)
			value.Release(a)
			value.Release(b)
			if err != nil {
				return value.Value{}, err
			}
			v.push(value.NewBool(res))
			frame.IP = ip + 1

		case bytecode.GET_LOCAL:
			slot := int(code[ip+1])
			v.push(value.Retain(v.stack[frame.Slots+slot]))
			frame.IP = ip + 2

		case bytecode.SET_LOCAL:
			slot := int(code[ip+1])
			val := v.peek(0)
			old := v.stack[frame.Slots+slot]
			value.Release(old)
			v.stack[frame.Slots+slot] = value.Retain(val)
			frame.IP = ip + 2

		case bytecode.GET_GLOBAL:
			idx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			name := fn.Constants[idx].String()
			val, err := v.getGlobal(name, loc)
			if err != nil {
				return value.Value{}, err
			}
			v.push(value.Retain(val))
			frame.IP = ip + 3

		case bytecode.DEFINE_GLOBAL:
			raw := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			immutable := raw&bytecode.ImmutableBit != 0
			idx := raw &^ bytecode.ImmutableBit
			name := fn.Constants[idx].String()
			val := v.peek(0)
			if err := v.defineGlobal(name, val, immutable, loc); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 3

		case bytecode.SET_GLOBAL:
			idx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			name := fn.Constants[idx].String()
			val := v.peek(0)
			if err := v.setGlobal(name, val, loc); err != nil {
				return value.Value{}, err
			}
			frame.IP = ip + 3

		case bytecode.GET_PROPERTY:
			idx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			name := fn.Constants[idx].String()
			recv, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			res, err := v.getProperty(recv, name, loc)
			value.Release(recv)
			if err != nil {
				return value.Value{}, err
			}
			v.push(res)
			frame.IP = ip + 3

		case bytecode.CALL:
			argc := int(code[ip+1])
			slotsBase := v.sp - argc - 1
			callee := v.stack[slotsBase]
			copy(v.stack[slotsBase:v.sp-1], v.stack[slotsBase+1:v.sp])
			v.sp--
			frame.IP = ip + 2
			res, entered, err := v.invoke(callee, slotsBase, argc, loc)
			if err != nil {
				value.Release(callee)
				return value.Value{}, err
			}
			if !entered {
				// invoke's Native/Class-factory path already consumed the
				// argument window (including callee's former slot); the
				// callee itself is no longer reachable from the stack.
				value.Release(callee)
				if err := v.push(res); err != nil {
					return value.Value{}, err
				}
			}
			// entered: ownership of callee moved into the new Frame.

		case bytecode.CALL_METHOD:
			argc := int(code[ip+1])
			// stack: [..., selectorName, receiver, arg0, ..., argN-1]
			base := v.sp - argc - 2
			selector := v.stack[base]
			receiver := v.stack[base+1]
			name := selector.String()
			method, err := v.resolveMethod(receiver, name, loc)
			value.Release(selector)
			if err != nil {
				return value.Value{}, err
			}
			copy(v.stack[base:v.sp-1], v.stack[base+1:v.sp])
			v.sp--
			frame.IP = ip + 2
			res, entered, err := v.invoke(method, base, argc+1, loc)
			if err != nil {
				return value.Value{}, err
			}
			if !entered {
				if err := v.push(res); err != nil {
					return value.Value{}, err
				}
			}

		case bytecode.CLOSURE:
			idx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			inner := fn.Constants[idx].Function()
			upvalues := make([]value.Value, len(inner.Upvalues))
			for i, spec := range inner.Upvalues {
				if spec.FromLocal {
					upvalues[i] = v.stack[frame.Slots+spec.Index]
				} else if frame.Closure.Tag() == value.Closure {
					upvalues[i] = frame.Closure.Closure().Upvalues[spec.Index]
				} else {
					upvalues[i] = value.UndefinedValue
				}
			}
			var mod *value.Module
			if frame.Closure.Tag() == value.Closure {
				mod = frame.Closure.Closure().Module
			}
			v.push(value.NewClosure(inner, upvalues, mod))
			frame.IP = ip + 3

		case bytecode.BUILD_ARRAY:
			n := int(binary.BigEndian.Uint16(code[ip+1 : ip+3]))
			elems := make([]value.Value, n)
			copy(elems, v.stack[v.sp-n:v.sp])
			for i := 0; i < n; i++ {
				value.Release(v.stack[v.sp-n+i])
			}
			v.sp -= n
			v.push(value.NewArray(elems))
			frame.IP = ip + 3

		case bytecode.BUILD_OBJECT:
			n := int(binary.BigEndian.Uint16(code[ip+1 : ip+3]))
			obj := value.NewObject()
			base := v.sp - 2*n
			for i := 0; i < n; i++ {
				key := v.stack[base+2*i]
				val := v.stack[base+2*i+1]
				obj.ObjectSet(key.String(), val)
				value.Release(key)
				value.Release(val)
			}
			v.sp = base
			v.push(obj)
			frame.IP = ip + 3

		case bytecode.BUILD_RANGE:
			flags := code[ip+1]
			exclusive := flags&0x1 != 0
			hasStep := flags&0x2 != 0
			var step value.Value = value.NullValue
			if hasStep {
				var err error
				step, err = v.pop()
				if err != nil {
					return value.Value{}, err
				}
			}
			end, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			start, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			r := value.NewRange(start, end, exclusive, step)
			value.Release(start)
			value.Release(end)
			value.Release(step)
			v.push(r)
			frame.IP = ip + 2

		case bytecode.JUMP:
			dist := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			frame.IP = ip + 3 + int(dist)

		case bytecode.JUMP_IF_FALSE:
			dist := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			if !value.Truthy(v.peek(0)) {
				frame.IP = ip + 3 + int(dist)
			} else {
				frame.IP = ip + 3
			}

		case bytecode.LOOP:
			dist := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			frame.IP = ip + 3 - int(dist)

		case bytecode.RETURN:
			retVal, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			if frame.modulePush {
				v.moduleContext = v.moduleContext[:len(v.moduleContext)-1]
			}
			baseSlots := frame.Slots
			v.frameCount--
			for i := baseSlots; i < v.sp; i++ {
				value.Release(v.stack[i])
			}
			v.sp = baseSlots
			if v.frameCount > floor {
				if err := v.push(retVal); err != nil {
					return value.Value{}, err
				}
			} else {
				return retVal, nil
			}

		case bytecode.HALT:
			return v.pop()

		case bytecode.SET_DEBUG_LOCATION:
			frame.IP = ip + 7
		case bytecode.CLEAR_DEBUG_LOCATION:
			frame.IP = ip + 1

		case bytecode.IMPORT_MODULE:
			nextIP, err := v.doImport(fn, code, ip)
			if err != nil {
				return value.Value{}, err
			}
			frame.IP = nextIP

		case bytecode.GET_EXPORT:
			name, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			recv, err := v.pop()
			if err != nil {
				return value.Value{}, err
			}
			val, ok := recv.ObjectGet(name.String())
			value.Release(name)
			value.Release(recv)
			if !ok {
				return value.Value{}, vmerr.New(vmerr.Reference, toErrLoc(loc), "no such export: %s", name.String()).WithOpcode("GET_EXPORT")
			}
			v.push(value.Retain(val))
			frame.IP = ip + 1

		default:
			return value.Value{}, vmerr.New(vmerr.State, toErrLoc(loc), "unknown opcode: %d", op).WithOpcode(op.String())
		}
	}
	return v.result, nil
}

func (v *VM) binaryArith(op bytecode.Opcode, a, b value.Value, loc *value.Location) (value.Value, error) {
	switch op {
	case bytecode.ADD:
		return v.opAdd(a, b, loc)
	case bytecode.SUBTRACT:
		return v.opSub(a, b, loc)
	case bytecode.MULTIPLY:
		return v.opMul(a, b, loc)
	case bytecode.DIVIDE:
		return v.opDiv(a, b, loc)
	case bytecode.MOD:
		return v.opMod(a, b, loc)
	case bytecode.POWER:
		return v.opPow(a, b, loc)
	case bytecode.FLOOR_DIV:
		return v.opFloorDiv(a, b, loc)
	}
	return value.Value{}, vmerr.New(vmerr.State, toErrLoc(loc), "not an arithmetic opcode: %s", op)
}

func (v *VM) binaryBitwise(op bytecode.Opcode, a, b value.Value, loc *value.Location) (value.Value, error) {
	switch op {
	case bytecode.BITWISE_AND:
		return v.opBitwise("bitwise and", a, b, loc, func(x, y int64) int64 { return x & y })
	case bytecode.BITWISE_OR:
		return v.opBitwise("bitwise or", a, b, loc, func(x, y int64) int64 { return x | y })
	case bytecode.BITWISE_XOR:
		return v.opBitwise("bitwise xor", a, b, loc, func(x, y int64) int64 { return x ^ y })
	case bytecode.LEFT_SHIFT:
		return v.opLeftShift(a, b, loc)
	case bytecode.RIGHT_SHIFT:
		return v.opRightShift(a, b, loc)
	case bytecode.LOGICAL_RIGHT_SHIFT:
		return v.opLogicalRightShift(a, b, loc)
	}
	return value.Value{}, vmerr.New(vmerr.State, toErrLoc(loc), "not a bitwise opcode: %s", op)
}
