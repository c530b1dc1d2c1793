// Command qcc compiles a single C89-dialect translation unit to x86-64
// NASM assembly text, grounded on the teacher's cmd/main.go flag-driven
// shape, restated with urfave/cli to match the rest of the wired stack.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/qcc-project/qcc/internal/alloc"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/diag"
	"github.com/qcc-project/qcc/internal/emit"
	"github.com/qcc-project/qcc/internal/parser"
	"github.com/qcc-project/qcc/internal/trace"
)

func main() {
	app := cli.NewApp()
	app.Name = "qcc"
	app.Usage = "compile a C89-dialect source file to x86-64 NASM assembly"
	app.Version = "0.1.0"
	app.ArgsUsage = "<source.c>"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "verbose, v", Usage: "trace parsing, allocation, and emission"},
		cli.IntFlag{Name: "gpr", Value: config.Default().GprCount, Usage: "usable general-purpose register count"},
		cli.IntFlag{Name: "fpr", Value: config.Default().FprCount, Usage: "usable floating-point register count"},
		cli.StringFlag{Name: "out, o", Value: "", Usage: "output path (defaults to stdout)"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("exactly one source file is required", 2)
	}
	path := ctx.Args().First()

	source, err := os.ReadFile(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("cannot read %s: %s", path, err), 1)
	}

	cfg := config.Options{
		Verbose:  ctx.Bool("verbose"),
		GprCount: ctx.Int("gpr"),
		FprCount: ctx.Int("fpr"),
	}
	tr := trace.New(cfg.Verbose)
	defer tr.Sync()

	tree, err := parser.Parse(string(source), cfg, tr)
	if err != nil {
		return reportError(path, err)
	}

	allocator := alloc.New(cfg, tr)
	if err := allocator.Allocate(tree); err != nil {
		return reportError(path, err)
	}

	asm, err := emit.Emit(tree, allocator, tr)
	if err != nil {
		return reportError(path, err)
	}

	out := ctx.String("out")
	if out == "" {
		fmt.Print(asm)
		return nil
	}
	if err := os.WriteFile(out, []byte(asm), 0644); err != nil {
		return cli.NewExitError(fmt.Sprintf("cannot write %s: %s", out, err), 1)
	}
	return nil
}

// reportError renders a *diag.Error (category, message, and source
// snippet already combined by Error()) or falls back to the bare error
// text for anything else (an I/O failure bubbled up from the standard
// library, say).
func reportError(path string, err error) error {
	if d, ok := err.(*diag.Error); ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, d.Error())
		return cli.NewExitError("", 1)
	}
	return cli.NewExitError(err.Error(), 1)
}
