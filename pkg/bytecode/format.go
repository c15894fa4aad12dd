// Bytecode file format: an on-disk cache for compiled Functions,
// adapted from the teacher's .sg binary format (pkg/bytecode/format.go
// in kristofer/smog) to Slate's value model and byte-stream instruction
// encoding. The module loader in pkg/vm does not consult it:
// LoadModule always compiles a module from its source.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/edadma/slatevm/pkg/value"
)

const (
	magicNumber   uint32 = 0x534C4154 // "SLAT"
	formatVersion uint32 = 1
)

const (
	constNull byte = iota
	constUndefined
	constBool
	constInt32
	constBigInt
	constFloat64
	constString
	constFunction
)

// Encode writes fn (and, recursively, any nested Function constants it
// references via CLOSURE) to w in the on-disk bytecode format.
func Encode(fn *value.FunctionVal, w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, magicNumber); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, formatVersion); err != nil {
		return err
	}
	return encodeFunction(fn, w)
}

func encodeFunction(fn *value.FunctionVal, w io.Writer) error {
	if err := writeString(w, fn.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Params))); err != nil {
		return err
	}
	for _, p := range fn.Params {
		if err := writeString(w, p); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Constants))); err != nil {
		return err
	}
	for _, c := range fn.Constants {
		if err := encodeConstant(c, w); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Code))); err != nil {
		return err
	}
	_, err := w.Write(fn.Code)
	return err
}

func encodeConstant(v value.Value, w io.Writer) error {
	switch v.Tag() {
	case value.Null:
		_, err := w.Write([]byte{constNull})
		return err
	case value.Undefined:
		_, err := w.Write([]byte{constUndefined})
		return err
	case value.Bool:
		b := byte(0)
		if v.Bool() {
			b = 1
		}
		_, err := w.Write([]byte{constBool, b})
		return err
	case value.Int32:
		if _, err := w.Write([]byte{constInt32}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v.Int32())
	case value.BigInt:
		if _, err := w.Write([]byte{constBigInt}); err != nil {
			return err
		}
		return writeString(w, v.BigInt().String())
	case value.Float64:
		if _, err := w.Write([]byte{constFloat64}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v.Float64())
	case value.String:
		if _, err := w.Write([]byte{constString}); err != nil {
			return err
		}
		return writeString(w, v.String())
	case value.Function:
		if _, err := w.Write([]byte{constFunction}); err != nil {
			return err
		}
		return encodeFunction(v.Function(), w)
	default:
		return fmt.Errorf("bytecode: cannot serialize constant of type %s", v.Tag())
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// Decode reads a Function previously written by Encode.
func Decode(r io.Reader) (*value.FunctionVal, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, err
	}
	if magic != magicNumber {
		return nil, fmt.Errorf("bytecode: bad magic number 0x%08X", magic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", version)
	}
	return decodeFunction(r)
}

func decodeFunction(r io.Reader) (*value.FunctionVal, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	var arity, paramCount uint32
	if err := binary.Read(r, binary.BigEndian, &arity); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &paramCount); err != nil {
		return nil, err
	}
	params := make([]string, paramCount)
	for i := range params {
		if params[i], err = readString(r); err != nil {
			return nil, err
		}
	}
	fn := value.NewFunction(name, params)
	fn.Arity = int(arity)

	var constCount uint32
	if err := binary.Read(r, binary.BigEndian, &constCount); err != nil {
		return nil, err
	}
	fn.Constants = make([]value.Value, constCount)
	for i := range fn.Constants {
		if fn.Constants[i], err = decodeConstant(r); err != nil {
			return nil, err
		}
	}

	var codeLen uint32
	if err := binary.Read(r, binary.BigEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}
	fn.Code = code
	return fn, nil
}

func decodeConstant(r io.Reader) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return value.Value{}, err
	}
	switch tag[0] {
	case constNull:
		return value.NullValue, nil
	case constUndefined:
		return value.UndefinedValue, nil
	case constBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b[0] != 0), nil
	case constInt32:
		var i int32
		if err := binary.Read(r, binary.BigEndian, &i); err != nil {
			return value.Value{}, err
		}
		return value.NewInt32(i), nil
	case constBigInt:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		bi, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return value.Value{}, fmt.Errorf("bytecode: malformed bigint constant %q", s)
		}
		return value.NewBigInt(bi), nil
	case constFloat64:
		var f float64
		if err := binary.Read(r, binary.BigEndian, &f); err != nil {
			return value.Value{}, err
		}
		return value.NewFloat64(f), nil
	case constString:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(s), nil
	case constFunction:
		fn, err := decodeFunction(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFunctionValue(fn), nil
	default:
		return value.Value{}, fmt.Errorf("bytecode: unknown constant tag 0x%02X", tag[0])
	}
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
