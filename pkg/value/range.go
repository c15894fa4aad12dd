package value

// RangeVal is the shared {start, end, exclusive} range named in spec
// §3.1, extended with an optional Step (SPEC_FULL supplemented feature:
// `start..end step s`).
type RangeVal struct {
	rc
	Start     Value
	End       Value
	Exclusive bool
	Step      Value // NullValue if unset; no default step is applied here
}

func (r *RangeVal) children() []Value {
	return []Value{r.Start, r.End, r.Step}
}

func NewRange(start, end Value, exclusive bool, step Value) Value {
	return newValue(Range, &RangeVal{
		Start:     Retain(start),
		End:       Retain(end),
		Exclusive: exclusive,
		Step:      Retain(step),
	})
}

func (v Value) RangeParts() (start, end Value, exclusive bool, step Value) {
	r := v.ptr.(*RangeVal)
	return r.Start, r.End, r.Exclusive, r.Step
}

// IteratorKind distinguishes the two Iterator backing stores in spec
// §3.1 ("kind ∈ {Array, Range}").
type IteratorKind uint8

const (
	IterArray IteratorKind = iota
	IterRange
)

// IteratorVal is the shared {kind, state} iterator named in spec §3.1.
type IteratorVal struct {
	rc
	Kind  IteratorKind
	Src   Value // the Array or Range being iterated
	Index int   // for IterArray: next element index
	Cur   Value // for IterRange: current numeric position
	Done  bool
}

func (it *IteratorVal) children() []Value { return []Value{it.Src, it.Cur} }

func NewArrayIterator(src Value) Value {
	return newValue(Iterator, &IteratorVal{Kind: IterArray, Src: Retain(src)})
}

func NewRangeIterator(src, start Value) Value {
	return newValue(Iterator, &IteratorVal{Kind: IterRange, Src: Retain(src), Cur: Retain(start)})
}

func (v Value) Iterator() *IteratorVal { return v.ptr.(*IteratorVal) }
