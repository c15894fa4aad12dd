package bytecode

import (
	"encoding/binary"

	"github.com/edadma/slatevm/pkg/value"
)

// Builder assembles a value.FunctionVal's bytecode buffer and constant
// pool. It plays the role spec §1 assigns to "the code generator
// (assumed to emit valid bytecode and constant pools)" — an external
// collaborator this core does not implement a compiler for, but must
// still offer *some* way to construct a well-formed Function, both for
// this repo's own tests and for any future front-end. The shape is
// adapted from the teacher's compiler.go emit()/addConstant() helpers,
// generalized from smog's single-opcode-plus-int-operand instructions to
// Slate's variable-width byte-oriented encoding (spec §4.3).
type Builder struct {
	fn *value.FunctionVal
}

func NewBuilder(name string, params []string) *Builder {
	return &Builder{fn: value.NewFunction(name, params)}
}

func (b *Builder) Function() *value.FunctionVal { return b.fn }

func (b *Builder) offset() int { return len(b.fn.Code) }

// Emit0 writes an opcode with no operand bytes.
func (b *Builder) Emit0(op Opcode) int {
	pos := b.offset()
	b.fn.Code = append(b.fn.Code, byte(op))
	return pos
}

// Emit1 writes an opcode followed by one operand byte (local slots,
// argument counts, POP_N counts).
func (b *Builder) Emit1(op Opcode, operand byte) int {
	pos := b.offset()
	b.fn.Code = append(b.fn.Code, byte(op), operand)
	return pos
}

// Emit2 writes an opcode followed by a 16-bit big-endian operand
// (constant-pool indices, global-name indices, jump/loop distances).
func (b *Builder) Emit2(op Opcode, operand uint16) int {
	pos := b.offset()
	buf := make([]byte, 3)
	buf[0] = byte(op)
	binary.BigEndian.PutUint16(buf[1:], operand)
	b.fn.Code = append(b.fn.Code, buf...)
	return pos
}

// EmitJump writes a jump/loop opcode with a placeholder 16-bit operand
// and returns its position for PatchJump to backfill.
func (b *Builder) EmitJump(op Opcode) int {
	return b.Emit2(op, 0xFFFF)
}

// PatchJump backfills a forward jump's 16-bit distance to the current
// instruction offset (spec §4.3: "Jumps encode a 16-bit unsigned forward
// distance").
func (b *Builder) PatchJump(pos int) {
	dist := b.offset() - (pos + 3)
	binary.BigEndian.PutUint16(b.fn.Code[pos+1:pos+3], uint16(dist))
}

// EmitLoop writes a LOOP instruction whose backward distance returns
// execution to loopStart (spec §4.3: "loops encode a 16-bit unsigned
// backward distance").
func (b *Builder) EmitLoop(loopStart int) {
	pos := b.Emit2(LOOP, 0)
	dist := (pos + 3) - loopStart
	binary.BigEndian.PutUint16(b.fn.Code[pos+1:pos+3], uint16(dist))
}

// AddConstant appends a Value to the constant pool and returns its
// 16-bit index (spec §4.3: "Constant references are 16-bit indices").
func (b *Builder) AddConstant(v value.Value) uint16 {
	b.fn.Constants = append(b.fn.Constants, value.Retain(v))
	return uint16(len(b.fn.Constants) - 1)
}

// EmitConstant is the common case of PUSH_CONSTANT <idx-of(v)>.
func (b *Builder) EmitConstant(v value.Value) int {
	idx := b.AddConstant(v)
	return b.Emit2(PUSH_CONSTANT, idx)
}

// ImmutableBit is DEFINE_GLOBAL's packed-operand convention: spec §6's
// Appendix fixes DEFINE_GLOBAL at a single 2-byte operand, leaving no
// room for a separate immutability flag byte, so the flag is packed into
// the high bit of the 16-bit name-constant index instead (constant pools
// never need the 15 remaining bits' worth of entries). See
// EmitDefineGlobal and DESIGN.md's open-question entry for this opcode.
const ImmutableBit uint16 = 0x8000

// EmitDefineGlobal writes DEFINE_GLOBAL with nameIdx packed against
// ImmutableBit when immutable is true (spec §4.4: "writing to a name
// marked immutable is an error").
func (b *Builder) EmitDefineGlobal(nameIdx uint16, immutable bool) int {
	operand := nameIdx
	if immutable {
		operand |= ImmutableBit
	}
	return b.Emit2(DEFINE_GLOBAL, operand)
}

// EmitImportWildcard writes IMPORT_MODULE's wildcard form: `import p._`.
// ImportWildcard/ImportNamespace (opcodes.go) are the flag sentinels for
// IMPORT_MODULE's variable-width encoding (spec §4.6's three forms); see
// pkg/vm/module.go's doImport, which is authoritative for this wire
// format alongside these helpers.
func (b *Builder) EmitImportWildcard(pathIdx uint16) int {
	pos := b.offset()
	buf := make([]byte, 4)
	buf[0] = byte(IMPORT_MODULE)
	binary.BigEndian.PutUint16(buf[1:3], pathIdx)
	buf[3] = ImportWildcard
	b.fn.Code = append(b.fn.Code, buf...)
	return pos
}

// EmitImportNamespace writes IMPORT_MODULE's namespace form: `import p`,
// binding an Object mirroring p's exports under localIdx's name.
func (b *Builder) EmitImportNamespace(pathIdx, localIdx uint16) int {
	pos := b.offset()
	buf := make([]byte, 6)
	buf[0] = byte(IMPORT_MODULE)
	binary.BigEndian.PutUint16(buf[1:3], pathIdx)
	buf[3] = ImportNamespace
	binary.BigEndian.PutUint16(buf[4:6], localIdx)
	b.fn.Code = append(b.fn.Code, buf...)
	return pos
}

// ImportSpec is one (export name, local name) pair for
// EmitImportSpecific, backing `import p.{a, b => c}`.
type ImportSpec struct {
	ExportIdx uint16
	LocalIdx  uint16
}

// EmitImportSpecific writes IMPORT_MODULE's specific form: each spec
// binds one named export under a (possibly renamed) local name.
func (b *Builder) EmitImportSpecific(pathIdx uint16, specs []ImportSpec) int {
	pos := b.offset()
	buf := make([]byte, 4+4*len(specs))
	buf[0] = byte(IMPORT_MODULE)
	binary.BigEndian.PutUint16(buf[1:3], pathIdx)
	buf[3] = byte(len(specs))
	for i, s := range specs {
		off := 4 + 4*i
		binary.BigEndian.PutUint16(buf[off:off+2], s.ExportIdx)
		binary.BigEndian.PutUint16(buf[off+2:off+4], s.LocalIdx)
	}
	b.fn.Code = append(b.fn.Code, buf...)
	return pos
}

// SetDebugLocation emits SET_DEBUG_LOCATION with a 2-byte file-table
// index, 2-byte line, 2-byte column (6 operand bytes, per spec §6's
// opcode listing) and additionally records the location in the
// function's sparse Lines table (spec §4.3) for RuntimeError attribution.
func (b *Builder) SetDebugLocation(file string, fileIdx uint16, line, col uint16) {
	pos := b.offset()
	buf := make([]byte, 7)
	buf[0] = byte(SET_DEBUG_LOCATION)
	binary.BigEndian.PutUint16(buf[1:3], fileIdx)
	binary.BigEndian.PutUint16(buf[3:5], line)
	binary.BigEndian.PutUint16(buf[5:7], col)
	b.fn.Code = append(b.fn.Code, buf...)
	b.fn.Lines = append(b.fn.Lines, value.LineEntry{
		IP:       pos,
		Location: &value.Location{File: file, Line: int(line), Column: int(col)},
	})
}

func (b *Builder) ClearDebugLocation() {
	pos := b.offset()
	b.fn.Code = append(b.fn.Code, byte(CLEAR_DEBUG_LOCATION))
	b.fn.Lines = append(b.fn.Lines, value.LineEntry{IP: pos, Location: nil})
}
