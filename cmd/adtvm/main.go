// Command adtvm reads one or more module files (or "-" for one module on
// stdin), links them, and runs the first module's MAIN. Grounded on
// wazero's cmd/wazero: a stdlib flag-based CLI whose entry point is
// split into a testable doMain(stdOut, stdErr io.Writer) so tests can
// drive it without touching the real process streams.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/adtvm/adtvm/internal/vmlog"
	"github.com/adtvm/adtvm/linker"
	"github.com/adtvm/adtvm/moduleio"
	"github.com/adtvm/adtvm/rawmodule"
	"github.com/adtvm/adtvm/vm"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Stdin, os.Args[1:]))
}

// doMain implements the "run" behavior described at spec.md §6.2:
// arguments are module file paths; a bare "-" reads one module from
// stdin; the first argument's module name becomes the entrypoint.
func doMain(stdOut, stdErr io.Writer, stdIn io.Reader, args []string) int {
	flags := flag.NewFlagSet("adtvm", flag.ContinueOnError)
	flags.SetOutput(stdErr)
	verbose := flags.Bool("v", false, "Print linker/VM diagnostics to stderr.")
	compactEvery := flags.Int("compact-every", 0, "Override the heap's fixed compaction interval (0 keeps the default).")

	if err := flags.Parse(args); err != nil {
		return 1
	}
	paths := flags.Args()
	if len(paths) == 0 {
		fmt.Fprintln(stdErr, "usage: adtvm [-v] [-compact-every N] <module-file>... | -")
		return 1
	}

	logger := vmlog.New(stdErr, *verbose)

	modules := make([]*rawmodule.Module, 0, len(paths))
	for _, path := range paths {
		m, err := loadModule(path, stdIn)
		if err != nil {
			fmt.Fprintf(stdErr, "adtvm: %s: %v\n", path, err)
			return 1
		}
		logger.Printf("loaded module %s from %s", m.Name.String(), path)
		modules = append(modules, m)
	}

	program, ctx, err := linker.Link(modules)
	if err != nil {
		fmt.Fprintf(stdErr, "adtvm: link error: %v\n", err)
		return 1
	}
	logger.Printf("linked %d module(s), %d function(s)", ctx.ModuleCount(), ctx.FunctionCount())

	cfg := vm.NewConfig().WithStdout(stdOut).WithStderr(stdErr)
	if *compactEvery != 0 {
		cfg = cfg.WithCompactEvery(*compactEvery)
	}
	machine := vm.NewMachine(program, ctx, cfg)

	entry := modules[0].Name
	if err := machine.Run(context.Background(), entry); err != nil {
		fmt.Fprintf(stdErr, "adtvm: runtime error: %v\n", err)
		return 1
	}
	return 0
}

func loadModule(path string, stdIn io.Reader) (*rawmodule.Module, error) {
	if path == "-" {
		return moduleio.Decode(stdIn)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return moduleio.Decode(f)
}
