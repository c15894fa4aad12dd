package value

// ObjectVal is the shared insertion-ordered mapping from string to Value
// named in spec §3.1 ("Object") and §6 ("Insertion-ordered string→blob
// mapping: set, get, has, iterate-in-insertion-order"). It is also the
// field map of each ADT instance (spec §4.2). A Module's exports and
// namespace and the VM's globals use Namespace (namespace.go) instead.
type ObjectVal struct {
	rc
	keys   []string
	values map[string]Value
}

func (o *ObjectVal) children() []Value {
	out := make([]Value, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.values[k])
	}
	return out
}

func NewObject() Value {
	return newValue(Object, &ObjectVal{values: make(map[string]Value)})
}

func (v Value) ObjectSet(key string, val Value) {
	o := v.ptr.(*ObjectVal)
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	} else {
		Release(o.values[key])
	}
	o.values[key] = Retain(val)
}

func (v Value) ObjectGet(key string) (Value, bool) {
	o := v.ptr.(*ObjectVal)
	val, ok := o.values[key]
	return val, ok
}

func (v Value) ObjectHas(key string) bool {
	o := v.ptr.(*ObjectVal)
	_, ok := o.values[key]
	return ok
}

// ObjectKeys returns keys in insertion order (spec round-trip law: object
// literal keys read back in insertion order).
func (v Value) ObjectKeys() []string {
	o := v.ptr.(*ObjectVal)
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (v Value) ObjectForEach(fn func(key string, val Value) bool) {
	o := v.ptr.(*ObjectVal)
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

func (v Value) ObjectLen() int { return len(v.ptr.(*ObjectVal).keys) }
