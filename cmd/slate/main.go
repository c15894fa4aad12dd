// Command slate is the minimal run/disassemble/version front end for
// the VM core, generalized from the teacher's hand-rolled os.Args
// switch (cmd/smog/main.go) the way ProbeChain-go-probe's cmd/gprobe
// structures its command tree with gopkg.in/urfave/cli.v1 instead. The
// lexer/parser/compiler this front end needs to turn a .slate source
// file into a value.FunctionVal are out of this core's scope (spec §1);
// runCommand wires in a compiler via vm.SetCompiler only if one has
// been registered by an importing program, and otherwise reports that
// no compiler is installed.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/edadma/slatevm/pkg/bytecode"
	"github.com/edadma/slatevm/pkg/vm"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "slate"
	app.Usage = "the Slate bytecode VM"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "compile and execute a .slate source file",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "debug", Usage: "attach an interactive debugger"},
			},
			Action: runCommand,
		},
		{
			Name:      "disassemble",
			Aliases:   []string{"disasm"},
			Usage:     "print the compiled bytecode listing for a .slate source file",
			ArgsUsage: "<file>",
			Action:    disassembleCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("run: no file specified", 1)
	}
	path := c.Args().Get(0)
	src, err := os.ReadFile(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
	}

	machine := vm.New()
	if compiler != nil {
		machine.SetCompiler(compiler)
	}
	if c.Bool("debug") {
		d := vm.NewDebugger()
		d.Enable()
		machine.SetDebugger(d)
	}

	if compiler == nil {
		return cli.NewExitError("run: no compiler registered; slate's front end is a separate collaborator (see spec.md §1)", 1)
	}
	fn, err := compiler(string(src), path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("compile error: %v", err), 1)
	}
	if _, err := machine.Run(fn, nil); err != nil {
		return cli.NewExitError(fmt.Sprintf("runtime error: %v", err), 1)
	}
	return nil
}

func disassembleCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("disassemble: no file specified", 1)
	}
	path := c.Args().Get(0)
	src, err := os.ReadFile(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("disassemble: %v", err), 1)
	}
	if compiler == nil {
		return cli.NewExitError("disassemble: no compiler registered; slate's front end is a separate collaborator (see spec.md §1)", 1)
	}
	fn, err := compiler(string(src), path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("compile error: %v", err), 1)
	}
	fmt.Print(bytecode.Disassemble(fn))
	return nil
}

// compiler is the injectable source-to-bytecode hook (vm.CompileFunc).
// This core ships no lexer/parser/compiler of its own (spec §1); a
// front end embedding one registers it here before main runs, e.g. via
// an init() in a sibling build that imports a concrete compiler
// package. Left nil, `run`/`disassemble` report the missing collaborator
// instead of panicking.
var compiler vm.CompileFunc
