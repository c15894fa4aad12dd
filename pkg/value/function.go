package value

// UpvalueSpec describes how a Closure fills one captured free variable:
// either by copying a slot from the enclosing call frame at closure-
// creation time, or by chaining through the enclosing closure's own
// upvalue list. This mirrors spec §3.3 "closure-capture metadata".
type UpvalueSpec struct {
	FromLocal bool // true: capture enclosing frame's local slot Index
	Index     int  // local slot, or enclosing closure's upvalue index
}

// FunctionVal is the Function value described in spec §3.3: a bytecode
// buffer, constant pool, name, parameter names (for reflection and
// named-global lookup per spec §4.4), and capture metadata.
type FunctionVal struct {
	rc
	Name      string
	Code      []byte
	Constants []Value
	Params    []string
	Upvalues  []UpvalueSpec
	Lines     []LineEntry // sparse (ip, line, col, file) table for debug locations
	Arity     int
}

// LineEntry marks the debug location that applies starting at
// instruction offset IP, set/cleared by SET_DEBUG_LOCATION /
// CLEAR_DEBUG_LOCATION (spec §4.3).
type LineEntry struct {
	IP       int
	Location *Location
}

func (f *FunctionVal) children() []Value {
	out := make([]Value, 0, len(f.Constants))
	out = append(out, f.Constants...)
	return out
}

func NewFunction(name string, params []string) *FunctionVal {
	return &FunctionVal{Name: name, Params: params, Arity: len(params)}
}

func NewFunctionValue(f *FunctionVal) Value {
	return newValue(Function, f)
}

func (v Value) Function() *FunctionVal { return v.ptr.(*FunctionVal) }

// LocationAt finds the debug location active at instruction offset ip,
// scanning the sparse Lines table backward (last entry with IP <= ip).
func (f *FunctionVal) LocationAt(ip int) *Location {
	var cur *Location
	for _, e := range f.Lines {
		if e.IP > ip {
			break
		}
		cur = e.Location
	}
	return cur
}

// ClosureVal pairs a Function with its captured up-values, plus (if the
// closure was produced inside a Module) a non-owning module reference
// used to switch namespaces on call (spec §3.3, §9).
type ClosureVal struct {
	rc
	Fn       *FunctionVal
	Upvalues []Value
	Module   *Module // weak / non-owning, see spec §9
}

func (c *ClosureVal) children() []Value {
	out := make([]Value, 0, len(c.Upvalues)+1)
	out = append(out, c.Upvalues...)
	out = append(out, Value{tag: Function, ptr: c.Fn})
	return out
}

func NewClosure(fn *FunctionVal, upvalues []Value, mod *Module) Value {
	Retain(Value{tag: Function, ptr: fn})
	owned := make([]Value, len(upvalues))
	for i, u := range upvalues {
		owned[i] = Retain(u)
	}
	return newValue(Closure, &ClosureVal{Fn: fn, Upvalues: owned, Module: mod})
}

func (v Value) Closure() *ClosureVal { return v.ptr.(*ClosureVal) }

// NativeFn is a native method invoked as (vm, argc, argv) -> Value. The
// vm parameter is an opaque `any` here to avoid value importing vm;
// pkg/vm type-asserts it back to *vm.VM. This mirrors spec §6's
// "(vm, argc, argv) -> Value" native contract.
type NativeFn func(vmHandle any, args []Value) (Value, error)

type NativeVal struct {
	Name string
	Fn   NativeFn
}

// NewNative wraps a native function pointer. Native is immediate per
// spec §3.1 ("Ownership: immediate") — it is never refcounted, it simply
// carries its *NativeVal payload directly.
func NewNative(name string, fn NativeFn) Value {
	return Value{tag: Native, nativeFn: &NativeVal{Name: name, Fn: fn}}
}

func (v Value) Native() *NativeVal { return v.nativeFn }

// BoundMethodVal pairs a receiver with a callable (spec §3.1, §4.2).
type BoundMethodVal struct {
	rc
	Receiver Value
	Callable Value
}

func (b *BoundMethodVal) children() []Value { return []Value{b.Receiver, b.Callable} }

func NewBoundMethod(receiver, callable Value) Value {
	return newValue(BoundMethod, &BoundMethodVal{Receiver: Retain(receiver), Callable: Retain(callable)})
}

func (v Value) BoundMethod() *BoundMethodVal { return v.ptr.(*BoundMethodVal) }
