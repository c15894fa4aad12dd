package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/edadma/slatevm/pkg/value"
)

// Disassemble renders a function's instruction stream as a human
// readable listing, in the spirit of the teacher's `smog disassemble`
// CLI command (cmd/smog/main.go) adapted to the byte-stream encoding of
// this package instead of smog's {Op,Operand} instruction slice.
func Disassemble(fn *value.FunctionVal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", fn.Name)
	code := fn.Code
	ip := 0
	for ip < len(code) {
		op := Opcode(code[ip])
		start := ip
		switch op {
		case PUSH_CONSTANT, GET_GLOBAL, SET_GLOBAL,
			GET_PROPERTY, CLOSURE, BUILD_ARRAY, BUILD_OBJECT, JUMP, JUMP_IF_FALSE, LOOP:
			operand := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			fmt.Fprintf(&b, "%04d %-20s %d\n", start, op, operand)
			ip += 3
		case DEFINE_GLOBAL:
			raw := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			fmt.Fprintf(&b, "%04d %-20s %d immutable=%t\n", start, op, raw&^ImmutableBit, raw&ImmutableBit != 0)
			ip += 3
		case GET_LOCAL, SET_LOCAL, CALL, CALL_METHOD, BUILD_RANGE, POP_N, POP_N_PRESERVE_TOP:
			fmt.Fprintf(&b, "%04d %-20s %d\n", start, op, code[ip+1])
			ip += 2
		case SET_DEBUG_LOCATION:
			fileIdx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			line := binary.BigEndian.Uint16(code[ip+3 : ip+5])
			col := binary.BigEndian.Uint16(code[ip+5 : ip+7])
			fmt.Fprintf(&b, "%04d %-20s file=%d line=%d col=%d\n", start, op, fileIdx, line, col)
			ip += 7
		case IMPORT_MODULE:
			pathIdx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
			flag := code[ip+3]
			switch flag {
			case ImportWildcard:
				fmt.Fprintf(&b, "%04d %-20s path=%d wildcard\n", start, op, pathIdx)
				ip += 4
			case ImportNamespace:
				localIdx := binary.BigEndian.Uint16(code[ip+4 : ip+6])
				fmt.Fprintf(&b, "%04d %-20s path=%d namespace local=%d\n", start, op, pathIdx, localIdx)
				ip += 6
			default:
				fmt.Fprintf(&b, "%04d %-20s path=%d specific(%d)", start, op, pathIdx, flag)
				pos := ip + 4
				for i := byte(0); i < flag; i++ {
					exportIdx := binary.BigEndian.Uint16(code[pos : pos+2])
					localIdx := binary.BigEndian.Uint16(code[pos+2 : pos+4])
					fmt.Fprintf(&b, " %d=>%d", exportIdx, localIdx)
					pos += 4
				}
				fmt.Fprintf(&b, "\n")
				ip = pos
			}
		default:
			fmt.Fprintf(&b, "%04d %-20s\n", start, op)
			ip++
		}
	}
	return b.String()
}
