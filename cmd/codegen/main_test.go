// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestRunCompilesUnitToClassFile mirrors
// cmd/geth/netstatcmd_test.go's shape: build an *cli.App carrying the
// real flags/action, point its Writer at io.Discard, and invoke it
// exactly as a user would from the shell.
func TestRunCompilesUnitToClassFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "unit.json")
	require.NoError(t, os.WriteFile(srcPath, []byte(addUnitJSON), 0o644))

	app := &cli.App{
		Name:   "codegen",
		Flags:  []cli.Flag{outFlag, verboseFlag},
		Action: run,
		Writer: io.Discard,
	}

	err := app.Run([]string{"codegen", "--out", dir, srcPath})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "Main.class"))
	require.NoError(t, statErr)
}

// TestRunFailsWithoutSourceArgs confirms the no-args case exits
// nonzero rather than silently succeeding.
func TestRunFailsWithoutSourceArgs(t *testing.T) {
	app := &cli.App{
		Name:   "codegen",
		Flags:  []cli.Flag{outFlag, verboseFlag},
		Action: run,
		Writer: io.Discard,
	}

	err := app.Run([]string{"codegen"})
	require.Error(t, err)
}

const addUnitJSON = `{
	"className": "Main",
	"functions": [{
		"name": "add",
		"isStatic": true,
		"params": [
			{"name": "a", "type": {"tag": "int"}},
			{"name": "b", "type": {"tag": "int"}}
		],
		"returnType": {"tag": "int"},
		"body": {
			"stmts": [{
				"kind": "return",
				"value": {
					"kind": "binary",
					"op": "add",
					"type": {"tag": "int"},
					"left": {"kind": "varRef", "name": "a", "type": {"tag": "int"}},
					"right": {"kind": "varRef", "name": "b", "type": {"tag": "int"}}
				}
			}]
		}
	}]
}`
