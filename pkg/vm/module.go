package vm

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/edadma/slatevm/internal/vmerr"
	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/value"
)

// CompileFunc compiles Slate source into a top-level Function. The
// lexer/parser/compiler are out of scope for this core (spec §1 treats
// them as an external collaborator); LoadModule calls whatever is
// installed via SetCompiler, the same seam the teacher's cmd/smog main.go
// wires lexer->parser->compiler together at, generalized to an injectable
// hook so this package has no import on a concrete front end.
type CompileFunc func(source, path string) (*value.FunctionVal, error)

// SetCompiler installs the source-to-bytecode collaborator used by
// LoadModule/IMPORT_MODULE.
func (v *VM) SetCompiler(c CompileFunc) { v.compiler = c }

// resolveModulePath implements spec §4.6's four-step search order for a
// dotted module path.
func (v *VM) resolveModulePath(dotted, relativeTo string) (string, error) {
	rel := filepath.Join(strings.Split(dotted, ".")...) + ".slate"
	candidates := []string{}
	if relativeTo != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(relativeTo), rel))
	}
	candidates = append(candidates, rel)
	candidates = append(candidates, filepath.Join("examples", rel))
	for _, sp := range v.searchPath {
		candidates = append(candidates, filepath.Join(sp, rel))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", vmerr.New(vmerr.Import, nil, "module not found: %s", dotted).WithOpcode("IMPORT_MODULE")
}

// LoadModule implements the cache/reentry/compile/execute/export pipeline
// of spec §4.6. relativeTo is the path of the importing module, or "" at
// the top level.
func (v *VM) LoadModule(dotted, relativeTo string) (*value.Module, error) {
	if cached, ok := v.moduleCache[dotted]; ok {
		return value.RetainModule(cached), nil
	}
	fsPath, err := v.resolveModulePath(dotted, relativeTo)
	if err != nil {
		return nil, err
	}
	mod := value.NewModule(dotted, fsPath, uuid.NewString())
	mod.State = value.Loading
	v.moduleCache[dotted] = mod

	fail := func(err error) (*value.Module, error) {
		mod.State = value.Unloaded
		delete(v.moduleCache, dotted)
		return nil, err
	}

	if v.compiler == nil {
		return fail(vmerr.New(vmerr.Import, nil, "no compiler installed to load module %s", dotted).WithOpcode("IMPORT_MODULE"))
	}
	src, err := os.ReadFile(fsPath)
	if err != nil {
		return fail(vmerr.New(vmerr.IO, nil, "cannot read module %s: %v", dotted, err).WithOpcode("IMPORT_MODULE"))
	}
	fn, err := v.compiler(string(src), fsPath)
	if err != nil {
		return fail(vmerr.New(vmerr.Syntax, nil, "cannot compile module %s: %v", dotted, err).WithOpcode("IMPORT_MODULE"))
	}

	closure := value.NewClosure(fn, nil, mod)
	if _, err := v.callCallable(closure, nil); err != nil {
		return fail(err)
	}

	copyNamespace(mod.Namespace, mod.Exports)
	mod.State = value.Loaded
	return value.RetainModule(mod), nil
}

func copyNamespace(from, to *value.Namespace) {
	from.ForEach(func(name string, v value.Value) {
		to.Set(name, value.Retain(v))
	})
}

// doImport implements IMPORT_MODULE's three bytecode-level forms (spec
// §4.6): the module path is read from the constant pool at pathIdx, the
// flag byte selects wildcard/namespace/specific, and the operand bytes
// after the flag are the namespace form's 2-byte local-name index, or,
// for the specific form, flag-many pairs of 2-byte (export, local)
// constant indices, as written by this core's Builder (see
// bytecode.Builder doc comment: this core assembles its own bytecode,
// there being no separate front-end compiler in scope, so this is also
// where the Builder/IMPORT_MODULE wire format is authoritative).
func (v *VM) doImport(fn *value.FunctionVal, code []byte, ip int) (nextIP int, err error) {
	pathIdx := binary.BigEndian.Uint16(code[ip+1 : ip+3])
	flag := code[ip+3]
	pos := ip + 4
	pathVal := fn.Constants[pathIdx]
	dotted := pathVal.String()

	relativeTo := ""
	if len(v.moduleContext) > 0 {
		relativeTo = v.moduleContext[len(v.moduleContext)-1].Path
	}

	switch flag {
	case bytecode.ImportWildcard:
		mod, err := v.LoadModule(dotted, relativeTo)
		if err != nil {
			return 0, err
		}
		copyNamespace(mod.Exports, v.activeNamespace())
		value.ReleaseModule(mod)
		return pos, nil

	case bytecode.ImportNamespace:
		localIdx := binary.BigEndian.Uint16(code[pos : pos+2])
		pos += 2
		local := fn.Constants[localIdx].String()
		mod, loadErr := v.LoadModule(dotted, relativeTo)
		if loadErr != nil {
			parts := strings.Split(dotted, ".")
			if len(parts) > 1 {
				parent := strings.Join(parts[:len(parts)-1], ".")
				item := parts[len(parts)-1]
				pmod, perr := v.LoadModule(parent, relativeTo)
				if perr != nil {
					return 0, loadErr
				}
				exp, ok := pmod.Exports.Get(item)
				value.ReleaseModule(pmod)
				if !ok {
					return 0, loadErr
				}
				v.activeNamespace().Set(local, value.Retain(exp))
				return pos, nil
			}
			return 0, loadErr
		}
		ns := value.NewObject()
		mod.Exports.ForEach(func(name string, val value.Value) { ns.ObjectSet(name, val) })
		value.ReleaseModule(mod)
		v.activeNamespace().Set(local, ns)
		return pos, nil

	default: // specific: flag == count of (export,local) pairs
		mod, loadErr := v.LoadModule(dotted, relativeTo)
		if loadErr != nil {
			return 0, loadErr
		}
		for i := byte(0); i < flag; i++ {
			exportIdx := binary.BigEndian.Uint16(code[pos : pos+2])
			localIdx := binary.BigEndian.Uint16(code[pos+2 : pos+4])
			pos += 4
			exportName := fn.Constants[exportIdx].String()
			localName := fn.Constants[localIdx].String()
			exp, ok := mod.Exports.Get(exportName)
			if !ok {
				value.ReleaseModule(mod)
				return 0, vmerr.New(vmerr.Import, nil, "module %s has no export %s", dotted, exportName).WithOpcode("IMPORT_MODULE")
			}
			v.activeNamespace().Set(localName, value.Retain(exp))
		}
		value.ReleaseModule(mod)
		return pos, nil
	}
}

