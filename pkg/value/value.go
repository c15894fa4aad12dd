package value

// Location is the optional source-location annotation carried by a
// Value (spec §3.1) and by RuntimeErrors (spec §4.5): the file, line and
// column the value (or the instruction that produced it) came from.
type Location struct {
	File   string
	Line   int
	Column int
}

// heapObject is implemented by every shared-variant payload. refcounting
// is bookkeeping layered on top of Go's garbage collector: it exists so
// the ownership discipline in spec §5 ("every locally-bound Value either
// ends consumed or is explicitly released") is mechanically checkable,
// not so that the payload is actually freed early — Go's GC still owns
// the memory once nothing references it.
type heapObject interface {
	refs() *int32
	// children returns the Values this payload directly owns, so Release
	// can cascade. Implementations that own no Values return nil.
	children() []Value
}

// Value is the tagged-union runtime representation described in spec
// §3.1. The zero Value is Null.
type Value struct {
	tag   Tag
	b     bool
	i32   int32
	num   float64 // Float32/Float64 payload (Float32 stored widened)
	ptr      heapObject
	nativeFn *NativeVal // payload for Tag==Native (immediate, never refcounted)
	class    *ClassVal  // weak back-reference, optional
	loc      *Location  // optional debug location
}

func (v Value) Tag() Tag { return v.tag }

// Class returns the value's class back-reference, or nil if unset.
func (v Value) Class() *ClassVal { return v.class }

// WithClass returns a copy of v carrying the given weak class reference.
func (v Value) WithClass(c *ClassVal) Value {
	v.class = c
	return v
}

// Location returns the value's debug location, or nil if unset.
func (v Value) Location() *Location { return v.loc }

// WithLocation returns a copy of v carrying the given debug location.
func (v Value) WithLocation(loc *Location) Value {
	v.loc = loc
	return v
}

var NullValue = Value{tag: Null}
var UndefinedValue = Value{tag: Undefined}

func NewBool(b bool) Value    { return Value{tag: Bool, b: b} }
func NewInt32(i int32) Value  { return Value{tag: Int32, i32: i} }
func NewFloat32(f float32) Value { return Value{tag: Float32, num: float64(f)} }
func NewFloat64(f float64) Value { return Value{tag: Float64, num: f} }

func (v Value) Bool() bool       { return v.b }
func (v Value) Int32() int32     { return v.i32 }
func (v Value) Float32() float32 { return float32(v.num) }
func (v Value) Float64() float64 { return v.num }

// Retain bumps the reference count of a shared-variant Value and returns
// it unchanged (cheap clone, spec §3.1 "every variant is cheaply
// clonable"). Immediate variants are no-ops.
func Retain(v Value) Value {
	if v.ptr != nil {
		r := v.ptr.refs()
		*r++
	}
	return v
}

// Release decrements the reference count of a shared-variant Value,
// cascading to owned children when the count reaches zero (spec §5
// "Dropping the last count releases children recursively"). Immediate
// variants are no-ops.
func Release(v Value) {
	if v.ptr == nil {
		return
	}
	r := v.ptr.refs()
	*r--
	if *r <= 0 {
		for _, child := range v.ptr.children() {
			Release(child)
		}
	}
}

// RefCount reports the current reference count of a shared-variant
// Value, or 0 for immediates. Exposed for tests verifying spec §8
// invariant 2 (reference-count closure).
func RefCount(v Value) int32 {
	if v.ptr == nil {
		return 0
	}
	return *v.ptr.refs()
}

// rc is embedded by every heap payload to supply the refs() half of
// heapObject; each payload type supplies its own children().
type rc struct{ count int32 }

func (h *rc) refs() *int32 { return &h.count }

func newValue(tag Tag, ptr heapObject) Value {
	if ptr != nil {
		*ptr.refs() = 1
	}
	return Value{tag: tag, ptr: ptr}
}
