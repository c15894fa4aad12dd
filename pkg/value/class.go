package value

// ClassVal is the prototype described in spec §3.2: a name, an
// insertion-ordered instance-property map, an insertion-ordered
// static-property map, an optional factory Native invoked when the
// class is used as a callable, and an optional parent class. Classes are
// shared values but are retained by the global namespace and by any
// Value referencing them (spec §3.1 invariants) rather than by
// reference-counted cascade here — Functions/Closures/Classes never
// point back to the Values that reference them (no strong cycles,
// spec §9), so ClassVal itself does not need a heapObject cascade.
type ClassVal struct {
	Name     string
	Instance *Namespace
	Static   *Namespace
	Factory  *NativeVal
	Parent   *ClassVal

	// CaseParams/IsSingleton back the ADT support of spec §4.2: a
	// constructor-class's static __params__ and instance __case_type.
	CaseParams  []string
	IsSingleton bool
}

// NewClassValue wraps a *ClassVal as a first-class Value (Tag == Class).
// Classes are shared but not refcounted through heapObject (see the
// ClassVal doc comment); the same pointer slot used for a Value's weak
// class back-reference carries the payload here.
func NewClassValue(c *ClassVal) Value {
	return Value{tag: Class, class: c}
}

func (v Value) AsClass() *ClassVal { return v.class }

func NewClass(name string, parent *ClassVal) *ClassVal {
	return &ClassVal{
		Name:     name,
		Instance: NewNamespace(),
		Static:   NewNamespace(),
		Parent:   parent,
	}
}

// LookupInstance walks class → parent → … for an instance property,
// per spec §4.2.
func (c *ClassVal) LookupInstance(name string) (Value, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if v, ok := cur.Instance.Get(name); ok {
			return v, true
		}
	}
	return Value{}, false
}

// LookupStatic walks class → parent → … for a static property.
func (c *ClassVal) LookupStatic(name string) (Value, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if v, ok := cur.Static.Get(name); ok {
			return v, true
		}
	}
	return Value{}, false
}

// IsInstanceOf tests whether c's chain contains target, implementing
// the right-hand side of `instanceof` (spec §4.2).
func (c *ClassVal) IsInstanceOf(target *ClassVal) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur == target {
			return true
		}
	}
	return false
}

// NewCase builds one ADT case class (spec §4.2 "ADT support"): params
// nil/empty for a singleton case, non-empty for a constructor case.
func NewCase(name string, params []string) *ClassVal {
	c := NewClass(name, nil)
	c.CaseParams = params
	c.IsSingleton = len(params) == 0
	if len(params) > 0 {
		items := make([]Value, len(params))
		for i, p := range params {
			items[i] = NewString(p)
		}
		c.Static.Set("__params__", NewArray(items))
	}
	return c
}

// NewCaseInstance builds an Object instance for an ADT case: fields
// __type, __case_type, and one entry per declared parameter, per spec
// §3.2/§4.2.
func NewCaseInstance(c *ClassVal, args []Value) Value {
	obj := NewObject()
	obj = obj.WithClass(c)
	obj.ObjectSet("__type", NewString(c.Name))
	if c.IsSingleton {
		obj.ObjectSet("__case_type", NewString("singleton"))
	} else {
		obj.ObjectSet("__case_type", NewString("constructor"))
		for i, p := range c.CaseParams {
			if i < len(args) {
				obj.ObjectSet(p, args[i])
			}
		}
	}
	return obj
}
