package vm

import "github.com/edadma/slatevm/pkg/value"

// Registry is the per-type class/prototype table described in spec §2
// (C2): one Class per primitive type tag plus every user-declared class
// and ADT case, consulted for instance/static property dispatch and
// `instanceof` (spec §4.2).
type Registry struct {
	byTag   map[value.Tag]*value.ClassVal
	byName  map[string]*value.ClassVal
}

func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[value.Tag]*value.ClassVal),
		byName: make(map[string]*value.ClassVal),
	}
}

func (r *Registry) Register(tag value.Tag, c *value.ClassVal) {
	r.byTag[tag] = c
	r.byName[c.Name] = c
}

func (r *Registry) RegisterNamed(c *value.ClassVal) {
	r.byName[c.Name] = c
}

func (r *Registry) ClassForTag(tag value.Tag) *value.ClassVal {
	return r.byTag[tag]
}

func (r *Registry) ClassByName(name string) (*value.ClassVal, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// ClassOf returns the class associated with a Value: its own Class
// payload if Tag==Class is itself being introspected, its weak
// back-reference if one was attached (e.g. ADT instances), or the
// registry's primitive class for its tag.
func (r *Registry) ClassOf(v value.Value) *value.ClassVal {
	if c := v.Class(); c != nil {
		return c
	}
	return r.ClassForTag(v.Tag())
}

func installBuiltinClasses(r *Registry) {
	object := value.NewClass("Object", nil)
	r.Register(value.Object, object)

	prim := func(name string, tag value.Tag) *value.ClassVal {
		c := value.NewClass(name, nil)
		r.Register(tag, c)
		return c
	}
	prim("Null", value.Null)
	prim("Undefined", value.Undefined)
	prim("Boolean", value.Bool)
	prim("Int32", value.Int32)
	prim("BigInt", value.BigInt)
	prim("Float32", value.Float32)
	prim("Float64", value.Float64)
	prim("String", value.String)
	prim("StringBuilder", value.StringBuilder)
	prim("Array", value.Array)
	prim("Range", value.Range)
	prim("Iterator", value.Iterator)
	prim("Buffer", value.Buffer)
	prim("BufferBuilder", value.BufferBuilder)
	prim("BufferReader", value.BufferReader)
	prim("Function", value.Function)
	prim("Closure", value.Closure)
	prim("Native", value.Native)
	prim("Class", value.Class)
	prim("BoundMethod", value.BoundMethod)
	prim("LocalDate", value.LocalDate)
	prim("LocalTime", value.LocalTime)
	prim("LocalDateTime", value.LocalDateTime)
	prim("Instant", value.Instant)
	prim("Date", value.Date)
	prim("Zone", value.Zone)
	prim("Duration", value.Duration)
	prim("Period", value.Period)
}
