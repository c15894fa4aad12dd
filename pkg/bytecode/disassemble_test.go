package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edadma/slatevm/pkg/value"
)

// DEFINE_GLOBAL's immutability bit must render in the disassembly and
// must not leak into the constant-pool index it's packed against.
func TestDisassembleDefineGlobalImmutableBit(t *testing.T) {
	b := NewBuilder("main", nil)
	nameIdx := b.AddConstant(value.NewString("x"))
	b.EmitDefineGlobal(nameIdx, true)
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	require.Contains(t, out, "DEFINE_GLOBAL")
	require.Contains(t, out, "immutable=true")
	require.Contains(t, out, " 0 immutable=true")
}

func TestDisassembleDefineGlobalMutable(t *testing.T) {
	b := NewBuilder("main", nil)
	nameIdx := b.AddConstant(value.NewString("x"))
	b.EmitDefineGlobal(nameIdx, false)
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	require.Contains(t, out, "immutable=false")
}

// IMPORT_MODULE's three variable-width forms must each disassemble to a
// single line consuming exactly their own encoded width, leaving the
// following HALT on the next line rather than desyncing mid-instruction.
func TestDisassembleImportWildcard(t *testing.T) {
	b := NewBuilder("main", nil)
	pathIdx := b.AddConstant(value.NewString("m"))
	b.EmitImportWildcard(pathIdx)
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3) // header + IMPORT_MODULE + HALT
	require.Contains(t, lines[1], "wildcard")
	require.Contains(t, lines[2], "HALT")
}

func TestDisassembleImportNamespace(t *testing.T) {
	b := NewBuilder("main", nil)
	pathIdx := b.AddConstant(value.NewString("m"))
	localIdx := b.AddConstant(value.NewString("m"))
	b.EmitImportNamespace(pathIdx, localIdx)
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "namespace")
	require.Contains(t, lines[2], "HALT")
}

func TestDisassembleImportSpecific(t *testing.T) {
	b := NewBuilder("main", nil)
	pathIdx := b.AddConstant(value.NewString("m"))
	exportIdx := b.AddConstant(value.NewString("a"))
	localIdx := b.AddConstant(value.NewString("a"))
	b.EmitImportSpecific(pathIdx, []ImportSpec{{ExportIdx: exportIdx, LocalIdx: localIdx}})
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "specific(1)")
	require.Contains(t, lines[2], "HALT")
}

// A jump distance must round-trip through PatchJump/Disassemble as the
// exact byte count between the jump's end and its target.
func TestDisassembleJumpDistance(t *testing.T) {
	b := NewBuilder("main", nil)
	b.Emit0(PUSH_TRUE)
	j := b.EmitJump(JUMP_IF_FALSE)
	b.Emit0(POP)
	b.PatchJump(j)
	b.Emit0(HALT)

	out := Disassemble(b.Function())
	require.Contains(t, out, "JUMP_IF_FALSE")
	require.Contains(t, out, "1\n") // one byte (POP) between jump end and target
}
