// Package vm implements the Slate bytecode interpreter: opcode dispatch,
// the operand stack, call frames, arithmetic/comparison semantics, the
// error system, and the module loader (spec §2 components C4–C6).
//
// Execution model:
//
//	Function (compiled elsewhere) -> vm.New().Run(fn, args) -> Value, error
//
// The VM is a stack machine, generalized from the teacher's
// (kristofer/smog) message-send interpreter to Slate's CALL/CALL_METHOD
// closure-and-class model: instead of every operation being a SEND
// message dispatch, arithmetic and comparison are dedicated opcodes
// (spec §4.3) and only property/method access goes through class
// lookup.
package vm

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/edadma/slatevm/pkg/value"
)

// Options configures a VM instance, generalizing the teacher's no-arg
// vm.New() the way ProbeChain-go-probe's probe/probeconfig.Config
// structures service defaults.
type Options struct {
	StackSize      int
	FrameStackSize int
	SearchPath     []string
	DebugMode      bool
}

// DefaultOptions replaces the teacher's hard-coded 1024-slot stack with a
// 4096-slot operand stack and a 256-entry frame stack.
func DefaultOptions() Options {
	return Options{
		StackSize:      4096,
		FrameStackSize: 256,
	}
}

// Frame is one call-frame stack entry (spec §3.4): the active Closure,
// the saved instruction pointer, and the operand-stack base where this
// frame's locals begin.
type Frame struct {
	Closure    value.Value // Tag == Closure or Function
	IP         int
	Slots      int  // stack_top position where locals start
	modulePush bool // true if this frame's CALL pushed a module context that RETURN must pop
}

// VM is a single Slate virtual machine (spec §3.6). Multiple VMs may
// exist in one process (spec §5); each owns its stacks, globals, module
// cache and search path exclusively.
type VM struct {
	ID string

	stack []value.Value
	sp    int

	frames     []Frame
	frameCount int

	globals     *value.Namespace
	immutable   map[string]bool
	classes     *Registry

	moduleCache   map[string]*value.Module
	searchPath    []string
	moduleContext []*value.Module

	result value.Value

	debugger *Debugger
	opts     Options
	compiler CompileFunc
}

// New creates a VM with default options and the built-in class registry
// and global natives installed (spec §3.6, §6).
func New() *VM {
	return NewWithOptions(DefaultOptions())
}

func NewWithOptions(opts Options) *VM {
	v := &VM{
		ID:          uuid.NewString(),
		stack:       make([]value.Value, opts.StackSize),
		frames:      make([]Frame, opts.FrameStackSize),
		globals:     value.NewNamespace(),
		immutable:   make(map[string]bool),
		moduleCache: make(map[string]*value.Module),
		searchPath:  append([]string(nil), opts.SearchPath...),
		opts:        opts,
	}
	v.classes = NewRegistry()
	installBuiltinClasses(v.classes)
	installGlobals(v)
	return v
}

// SetDebugger attaches an interactive debugger (pkg/vm/debugger.go),
// mirroring the teacher's vm.debugger hook.
func (v *VM) SetDebugger(d *Debugger) { v.debugger = d }

// AddSearchPath appends to the module search path consulted by the
// loader (spec §4.6 resolution order, step 4).
func (v *VM) AddSearchPath(path string) {
	v.searchPath = append(v.searchPath, path)
}

// Classes exposes the class/prototype registry (C2) for native methods
// and the module loader to register classes into.
func (v *VM) Classes() *Registry { return v.classes }

// Globals exposes the VM's top-level namespace (spec §3.6).
func (v *VM) Globals() *value.Namespace { return v.globals }

// DefineGlobal installs a global binding, optionally marked immutable
// (spec §3.6 "immutability map").
func (v *VM) DefineGlobal(name string, val value.Value, immutable bool) {
	v.globals.Set(name, value.Retain(val))
	if immutable {
		v.immutable[name] = true
	}
}

func (v *VM) push(val value.Value) error {
	if v.sp >= len(v.stack) {
		return fmt.Errorf("stack overflow")
	}
	v.stack[v.sp] = val
	v.sp++
	return nil
}

func (v *VM) pop() (value.Value, error) {
	if v.sp == 0 {
		return value.Value{}, fmt.Errorf("stack underflow")
	}
	v.sp--
	val := v.stack[v.sp]
	v.stack[v.sp] = value.Value{}
	return val, nil
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[v.sp-1-distance]
}

func (v *VM) currentFrame() *Frame {
	return &v.frames[v.frameCount-1]
}

// Result returns the VM's one-slot result register (spec §3.6), valid
// after a successful Run.
func (v *VM) Result() value.Value { return v.result }
