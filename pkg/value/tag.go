// Package value implements the Slate tagged-value representation: the
// heap model, reference counting, numeric promotion, equality, ordering
// and display rules shared by every opcode handler in pkg/vm.
package value

// Tag identifies which variant a Value holds. Every variant is cheaply
// clonable: immediates copy by value, shared variants copy a pointer and
// bump a reference count (see Retain/Release).
type Tag uint8

const (
	Null Tag = iota
	Undefined
	Bool
	Int32
	BigInt
	Float32
	Float64
	String
	StringBuilder
	Array
	Object
	Range
	Iterator
	Buffer
	BufferBuilder
	BufferReader
	Function
	Closure
	Native
	Class
	BoundMethod
	LocalDate
	LocalTime
	LocalDateTime
	Instant
	Date
	Zone
	Duration
	Period
)

// String names a Tag for error messages and diagnostics, e.g.
// "Cannot multiply string and int32".
func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Undefined:
		return "undefined"
	case Bool:
		return "boolean"
	case Int32:
		return "int32"
	case BigInt:
		return "bigint"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case StringBuilder:
		return "stringbuilder"
	case Array:
		return "array"
	case Object:
		return "object"
	case Range:
		return "range"
	case Iterator:
		return "iterator"
	case Buffer:
		return "buffer"
	case BufferBuilder:
		return "bufferbuilder"
	case BufferReader:
		return "bufferreader"
	case Function:
		return "function"
	case Closure:
		return "closure"
	case Native:
		return "native"
	case Class:
		return "class"
	case BoundMethod:
		return "boundmethod"
	case LocalDate:
		return "localdate"
	case LocalTime:
		return "localtime"
	case LocalDateTime:
		return "localdatetime"
	case Instant:
		return "instant"
	case Date:
		return "date"
	case Zone:
		return "zone"
	case Duration:
		return "duration"
	case Period:
		return "period"
	default:
		return "unknown"
	}
}

// numeric reports whether the tag is one of the numeric variants that
// participate in the comparison/promotion rules of spec §4.1/§4.3.
func (t Tag) numeric() bool {
	switch t {
	case Int32, BigInt, Float32, Float64:
		return true
	default:
		return false
	}
}
