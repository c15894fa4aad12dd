package vm

import (
	"github.com/edadma/slatevm/pkg/value"
)

// Display resolves spec §9's "Open question": two printing designs are
// named there (one switch-based, one delegating entirely through
// toString) and the later, toString-delegating form is flagged as the
// intended one. This is that form: it consults the receiver's class
// chain (instance toString, then static, then parent — spec §4.1) and
// only falls back to value.RawDisplay's switch when no toString is
// found, rather than hand-rolling the rendering for every Tag here the
// way the teacher's fmt.Println(receiver) does for Go's native types.
func (v *VM) Display(val value.Value, quoted bool) (string, error) {
	for c := v.classes.ClassOf(val); c != nil; c = c.Parent {
		fn, ok := c.Instance.Get("toString")
		if !ok {
			fn, ok = c.Static.Get("toString")
		}
		if !ok {
			continue
		}
		result, err := v.callCallable(fn, []value.Value{val})
		if err != nil {
			return "", err
		}
		if result.Tag() == value.String {
			return result.String(), nil
		}
		break
	}
	return value.RawDisplay(val, quoted), nil
}

// Equal resolves equality the same way: an `equals` method on the
// receiver's class chain wins over the structural/reference fallback
// (spec §4.2 "Structural equality compares ... each declared parameter
// in order" for ADT cases is implemented by the generated `equals`
// installed on each case class — see natives.go's installDataSupport).
func (v *VM) Equal(a, b value.Value) (bool, error) {
	if numericTag(a.Tag()) && numericTag(b.Tag()) {
		return value.StructuralEqual(a, b), nil
	}
	class := v.classes.ClassOf(a)
	if class != nil {
		if fn, ok := class.LookupInstance("equals"); ok {
			result, err := v.callCallable(fn, []value.Value{a, b})
			if err != nil {
				return false, err
			}
			return value.Truthy(result), nil
		}
	}
	if value.StructuralEqual(a, b) {
		return true, nil
	}
	if a.Tag() == value.Array && b.Tag() == value.Array {
		ae, be := a.ArrayElems(), b.ArrayElems()
		if len(ae) != len(be) {
			return false, nil
		}
		for i := range ae {
			eq, err := v.Equal(ae[i], be[i])
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	}
	return false, nil
}
