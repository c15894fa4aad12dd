package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/edadma/slatevm/pkg/value"
)

// Debugger provides the interactive, breakpoint/step-driven inspection
// the teacher's pkg/vm/debugger.go offers over its instruction-slice
// model, generalized here to this core's byte-stream instructions and
// Frame stack (spec §3.4/§4.4). Rather than printing raw Go %v/%T
// (the teacher's ShowStack/ShowLocals), values are rendered through
// value.RawDisplay so a paused session reads like Slate source, not Go
// internals.
type Debugger struct {
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger creates a debugger not yet attached to any VM; call
// (*VM).SetDebugger to wire it in.
func NewDebugger() *Debugger {
	return &Debugger{breakpoints: make(map[int]bool)}
}

func (d *Debugger) Enable()  { d.enabled = true }
func (d *Debugger) Disable() { d.enabled = false }

func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

func (d *Debugger) AddBreakpoint(ip int)    { d.breakpoints[ip] = true }
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }
func (d *Debugger) ClearBreakpoints()       { d.breakpoints = make(map[int]bool) }

func (d *Debugger) shouldPause(ip int) bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[ip]
}

// prompt pauses the run loop and drives an interactive session; it
// returns false if the user quit, which aborts execution with a State
// error (mirroring the teacher's InteractivePrompt false return).
func (d *Debugger) prompt(v *VM, fn *value.FunctionVal, ip int) bool {
	scanner := bufio.NewScanner(os.Stdin)
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Println(yellow("\n=== paused ==="))
	d.showInstruction(fn, ip)

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return true
		case "step", "s", "next", "n":
			d.SetStepMode(true)
			return true
		case "stack", "st":
			d.showStack(v)
		case "locals", "l":
			d.showLocals(v, fn)
		case "globals", "g":
			d.showNamespace(v.activeNamespace())
		case "callstack", "cs":
			d.showCallStack(v)
		case "instruction", "i":
			d.showInstruction(fn, ip)
		case "break", "b":
			if len(parts) < 2 {
				fmt.Println("usage: break <ip>")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.AddBreakpoint(n)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("usage: delete <ip>")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.RemoveBreakpoint(n)
		case "quit", "q":
			return false
		default:
			fmt.Printf("unknown command: %s (type 'help')\n", parts[0])
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("commands: help continue(c) step(s) stack(st) locals(l) globals(g) callstack(cs) instruction(i) break(b) <ip> delete(d) <ip> quit(q)")
}

func (d *Debugger) showInstruction(fn *value.FunctionVal, ip int) {
	if ip >= len(fn.Code) {
		fmt.Println("(at end of code)")
		return
	}
	red := color.New(color.FgRed).SprintFunc()
	fmt.Printf("  %s %4d: opcode %d\n", red("->"), ip, fn.Code[ip])
}

func (d *Debugger) showStack(v *VM) {
	fmt.Println("stack (top to bottom):")
	if v.sp == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := v.sp - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, value.RawDisplay(v.stack[i], true))
	}
}

func (d *Debugger) showLocals(v *VM, fn *value.FunctionVal) {
	frame := v.currentFrame()
	fmt.Println("locals:")
	for i, p := range fn.Params {
		fmt.Printf("  %s = %s\n", p, value.RawDisplay(v.stack[frame.Slots+i], true))
	}
}

func (d *Debugger) showNamespace(ns *value.Namespace) {
	fmt.Println("bindings:")
	if ns.Len() == 0 {
		fmt.Println("  (none)")
		return
	}
	ns.ForEach(func(name string, val value.Value) {
		fmt.Printf("  %s = %s\n", name, value.RawDisplay(val, true))
	})
}

func (d *Debugger) showCallStack(v *VM) {
	fmt.Println("call stack (top to bottom):")
	for i := v.frameCount - 1; i >= 0; i-- {
		frame := v.frames[i]
		fmt.Printf("  %s [ip=%d]\n", frameFunction(frame.Closure).Name, frame.IP)
	}
}
