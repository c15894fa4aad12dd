package value

// Namespace is an insertion-ordered name→Value mapping (see GLOSSARY).
// It backs the VM's globals, a Module's own top-level scope, and a
// Module's exports (spec §3.5/§3.6). Unlike ObjectVal it is not itself a
// Value — it is VM/Module-owned storage, addressed by GET_GLOBAL /
// SET_GLOBAL / DEFINE_GLOBAL and by the module loader.
type Namespace struct {
	keys   []string
	values map[string]Value
}

func NewNamespace() *Namespace {
	return &Namespace{values: make(map[string]Value)}
}

func (n *Namespace) Get(name string) (Value, bool) {
	v, ok := n.values[name]
	return v, ok
}

func (n *Namespace) Has(name string) bool {
	_, ok := n.values[name]
	return ok
}

func (n *Namespace) Set(name string, val Value) {
	if _, ok := n.values[name]; !ok {
		n.keys = append(n.keys, name)
	}
	n.values[name] = val
}

func (n *Namespace) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

func (n *Namespace) ForEach(fn func(name string, val Value)) {
	for _, k := range n.keys {
		fn(k, n.values[k])
	}
}

func (n *Namespace) Len() int { return len(n.keys) }

// ModuleState is the loader state machine of spec §3.5/§4.6.
type ModuleState uint8

const (
	Unloaded ModuleState = iota
	Loading
	Loaded
)

// Module is the unit of compilation/namespace isolation described in
// spec §3.5. Closures created while a Module is executing hold a
// non-owning (*Module) back-reference (spec §9 "closure → module is a
// non-owning back-reference"); the Module owns its closures strongly
// only indirectly, through whatever Values its Namespace/Exports happen
// to retain — there is no Module → "all my closures" list, avoiding the
// strong cycle spec §9 forbids.
type Module struct {
	rc
	ID        string // diagnostic identity tag (uuid), not part of the spec's contract
	Name      string
	Path      string
	Exports   *Namespace
	Namespace *Namespace
	State     ModuleState
}

func NewModule(name, path, id string) *Module {
	return &Module{
		ID:        id,
		Name:      name,
		Path:      path,
		Exports:   NewNamespace(),
		Namespace: NewNamespace(),
		State:     Unloaded,
	}
}

func (m *Module) children() []Value {
	out := make([]Value, 0, m.Namespace.Len()+m.Exports.Len())
	m.Namespace.ForEach(func(_ string, v Value) { out = append(out, v) })
	m.Exports.ForEach(func(_ string, v Value) { out = append(out, v) })
	return out
}

// RetainModule/ReleaseModule mirror Retain/Release for Module, which is
// refcounted (spec §3.5) but is never itself wrapped as a Value.
func RetainModule(m *Module) *Module {
	if m != nil {
		m.count++
	}
	return m
}

func ReleaseModule(m *Module) {
	if m == nil {
		return
	}
	m.count--
	if m.count <= 0 {
		for _, child := range m.children() {
			Release(child)
		}
	}
}
