// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"jvmgen/ast"
)

// TestParseUnitAddFunction decodes a minimal `static int add(int a,
// int b) { return a + b; }` unit from the wire format the external
// front end would emit, confirming the Expr/Stmt envelope's
// kind-discriminated decoding round-trips into the right node shapes.
func TestParseUnitAddFunction(t *testing.T) {
	const src = `{
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

	u, err := ast.ParseUnit(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "Main", u.ClassName)
	require.Len(t, u.Functions, 1)

	fn := u.Functions[0]
	require.Equal(t, "add", fn.Name)
	require.True(t, fn.IsStatic)
	require.Len(t, fn.Params, 2)
	require.Len(t, fn.Body.Stmts, 1)

	ret, ok := fn.Body.Stmts[0].(ast.Return)
	require.True(t, ok)
	bin, ok := ret.Value.(ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, bin.Op)
	left, ok := bin.Left.(ast.VarRef)
	require.True(t, ok)
	require.Equal(t, "a", left.Name)
}

// TestParseUnitGlobalAndStruct covers an int global with an
// initialiser literal, plus a struct declaration.
func TestParseUnitGlobalAndStruct(t *testing.T) {
	const src = `{
		"className": "Main",
		"globals": [{
			"name": "counter",
			"type": {"tag": "int"},
			"init": {"kind": "intLit", "intValue": 42, "type": {"tag": "int"}}
		}],
		"structs": [{
			"name": "Point",
			"members": [
				{"name": "x", "type": {"tag": "int"}},
				{"name": "y", "type": {"tag": "int"}}
			]
		}]
	}`

	u, err := ast.ParseUnit(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, u.Globals, 1)
	require.Equal(t, "counter", u.Globals[0].Name)
	lit, ok := u.Globals[0].Init.(ast.IntLit)
	require.True(t, ok)
	require.Equal(t, int32(42), lit.Value)

	require.Len(t, u.Structs, 1)
	require.Equal(t, "Point", u.Structs[0].Name)
	require.Len(t, u.Structs[0].Members, 2)
}

// TestParseUnitRejectsUnknownKind confirms a malformed payload surfaces
// a decode error rather than panicking or silently producing a zero
// node.
func TestParseUnitRejectsUnknownKind(t *testing.T) {
	const src = `{
		"className": "Main",
		"functions": [{
			"name": "bad",
			"returnType": {"tag": "int"},
			"body": {"stmts": [{"kind": "frobnicate"}]}
		}]
	}`

	_, err := ast.ParseUnit(strings.NewReader(src))
	require.Error(t, err)
}
