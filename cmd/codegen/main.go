// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command codegen is the back end's CLI driver (spec.md §6.2): for
// each positional source path it decodes a compilation unit, lowers
// it via the driver package, and writes one `.class` file per
// produced class (the unit's own class plus any synthetic
// pointer/struct support classes it required) into the output
// directory. Grounded on go-ethereum's cmd/geth: a *cli.App with
// Commands/Flags, app.Writer swappable for tests
// (cmd/geth/netstatcmd_test.go).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"jvmgen/ast"
	"jvmgen/classfile"
	"jvmgen/codebuilder"
	"jvmgen/driver"
)

var (
	outFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Value:   ".",
		Usage:   "directory to write .class files into",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "trace constant-pool, code-builder and class-file-writer activity",
	}
)

func main() {
	app := &cli.App{
		Name:      "codegen",
		Usage:     "emit JVM class files from compiled units",
		ArgsUsage: "<source> [source2 ...]",
		Flags:     []cli.Flag{outFlag, verboseFlag},
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("codegen: at least one source path is required", 1)
	}
	if c.Bool(verboseFlag.Name) {
		classfile.SetDebugMode(true)
		codebuilder.SetDebugMode(true)
	}

	outDir := c.String(outFlag.Name)
	isTerminal := isatty.IsTerminal(os.Stdout.Fd())

	for _, path := range c.Args().Slice() {
		if err := compileOne(c, path, outDir, isTerminal); err != nil {
			return cli.Exit(err, 1)
		}
	}
	return nil
}

func compileOne(c *cli.Context, path, outDir string, isTerminal bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "codegen: opening %s", path)
	}
	defer f.Close()

	unit, err := ast.ParseUnit(f)
	if err != nil {
		return errors.Wrapf(err, "codegen: parsing %s", path)
	}

	result, err := driver.Compile(unit)
	if err != nil {
		return errors.Wrapf(err, "codegen: compiling %s", path)
	}

	if err := writeClass(outDir, result.Main); err != nil {
		return err
	}
	for _, s := range result.Structs {
		if err := writeClass(outDir, s); err != nil {
			return err
		}
	}
	for _, p := range result.Pointers {
		if err := writeClass(outDir, p); err != nil {
			return err
		}
	}

	printDiagnostic(c.App.Writer, result.Diagnostic, isTerminal)
	return nil
}

func writeClass(outDir string, cf *classfile.ClassFile) error {
	path := filepath.Join(outDir, cf.ThisClass+".class")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "codegen: creating %s", path)
	}
	defer f.Close()

	if _, err := cf.WriteTo(f); err != nil {
		return errors.Wrapf(err, "codegen: writing %s", path)
	}
	return nil
}

// printDiagnostic renders the per-unit soft-warning summary (spec.md
// §7: counted, not fatal), highlighted in red when any count is
// nonzero and stdout is a terminal.
func printDiagnostic(w io.Writer, d driver.Diagnostic, isTerminal bool) {
	nonEmpty := false
	for _, bd := range d.BuilderDiag {
		if !bd.Empty() {
			nonEmpty = true
			break
		}
	}

	prefix, suffix := "", ""
	if isTerminal && nonEmpty {
		prefix, suffix = "\x1b[31m", "\x1b[0m"
	}

	fmt.Fprintf(w, "%s: %d function(s), %d <clinit> split(s)\n", d.Unit, d.Functions, d.ClinitSplits)
	if nonEmpty {
		fmt.Fprintf(w, "%s", prefix)
		for i, bd := range d.BuilderDiag {
			if !bd.Empty() {
				fmt.Fprintf(w, "  function #%d: %s\n", i, bd.Summary())
			}
		}
		fmt.Fprintf(w, "%s", suffix)
	}
}
