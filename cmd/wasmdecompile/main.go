package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	wasmerrors "github.com/wasmtools/wasmdecompile/errors"
	"github.com/wasmtools/wasmdecompile/lift"
	"github.com/wasmtools/wasmdecompile/render"
	"github.com/wasmtools/wasmdecompile/wasm"
)

func main() {
	var (
		funcName    = flag.String("func", "", "Print only this function (by name)")
		interactive = flag.Bool("i", false, "Interactive function browser")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wasmdecompile [-func name] [-i] <file.wasm>")
		os.Exit(1)
	}
	wasmFile := args[0]

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires an interactive terminal")
			os.Exit(1)
		}
		if err := runInteractive(wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(wasmFile, *funcName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName string) error {
	m, err := loadModule(wasmFile)
	if err != nil {
		return err
	}

	if funcName != "" {
		fn, err := findFunc(m, funcName)
		if err != nil {
			return err
		}
		lf, err := lift.Lift(m, fn)
		if err != nil {
			return err
		}
		fmt.Print(render.Function(lf))
		return nil
	}

	fmt.Print(render.ModuleHeader(m))
	for _, fn := range m.Functions() {
		lf, err := lift.Lift(m, fn)
		if err != nil {
			return err
		}
		fmt.Print(render.Function(lf))
	}
	return nil
}

func loadModule(wasmFile string) (*wasm.Module, error) {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return nil, wasmerrors.New(wasmerrors.PhaseCLI, wasmerrors.KindTruncated).
			Detail("read %s: %v", wasmFile, err).Cause(err).Build()
	}
	return wasm.ParseModuleValidate(data)
}

func findFunc(m *wasm.Module, name string) (wasm.Function, error) {
	for _, fn := range m.Functions() {
		if fn.Name == name {
			return fn, nil
		}
	}
	return wasm.Function{}, wasmerrors.New(wasmerrors.PhaseCLI, wasmerrors.KindBadIndex).
		Detail("no such function %q", name).Build()
}
