// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jvmgen/ast"
)

// TestExprKindsAreDistinct is a narrow sanity check that every leaf
// node reports the Kind its constructor implies, since the driver
// switches on Kind() rather than using a type switch.
func TestExprKindsAreDistinct(t *testing.T) {
	var e ast.Expr = ast.IntLit{Value: 1}
	assert.Equal(t, ast.ExprIntLit, e.Kind())
	assert.Equal(t, ast.TypeInt, e.ExprType().Tag)

	e = ast.Binary{Op: ast.OpAdd, Left: ast.IntLit{Value: 1}, Right: ast.IntLit{Value: 2}, T: ast.Type{Tag: ast.TypeInt}}
	assert.Equal(t, ast.ExprBinary, e.Kind())

	e = ast.AddrOf{Operand: ast.VarRef{Name: "x", T: ast.Type{Tag: ast.TypeInt}}, T: ast.Type{Tag: ast.TypePointer}}
	assert.Equal(t, ast.ExprAddrOf, e.Kind())
}

// TestStmtKindsAreDistinct mirrors TestExprKindsAreDistinct for
// statements.
func TestStmtKindsAreDistinct(t *testing.T) {
	var s ast.Stmt = ast.If{Cond: ast.IntLit{Value: 1}, Then: ast.Block{}}
	assert.Equal(t, ast.StmtIf, s.Kind())

	s = ast.For{Body: ast.Block{}}
	assert.Equal(t, ast.StmtFor, s.Kind())

	s = ast.Break{}
	assert.Equal(t, ast.StmtBreak, s.Kind())
}

// TestSwitchCaseDefaultHasNoValues confirms the zero-values-means-
// default convention the driver relies on.
func TestSwitchCaseDefaultHasNoValues(t *testing.T) {
	sw := ast.Switch{
		Expr: ast.VarRef{Name: "x", T: ast.Type{Tag: ast.TypeInt}},
		Cases: []ast.SwitchCase{
			{Values: []int32{1, 2}},
			{Values: nil},
		},
	}
	assert.Empty(t, sw.Cases[1].Values)
	assert.Equal(t, ast.StmtSwitch, sw.Kind())
}

// TestFunctionAndUnitShape is a minimal end-to-end construction check:
// a Unit carrying one Function, confirming the nesting compiles and
// the fields round-trip.
func TestFunctionAndUnitShape(t *testing.T) {
	fn := ast.Function{
		Name:       "add",
		Params:     []ast.Param{{Name: "a", T: ast.Type{Tag: ast.TypeInt}}, {Name: "b", T: ast.Type{Tag: ast.TypeInt}}},
		ReturnType: ast.Type{Tag: ast.TypeInt},
		Body: &ast.Block{Stmts: []ast.Stmt{
			ast.Return{Value: ast.Binary{
				Op:    ast.OpAdd,
				Left:  ast.VarRef{Name: "a", T: ast.Type{Tag: ast.TypeInt}},
				Right: ast.VarRef{Name: "b", T: ast.Type{Tag: ast.TypeInt}},
				T:     ast.Type{Tag: ast.TypeInt},
			}},
		}},
	}
	u := ast.Unit{ClassName: "Main", Functions: []ast.Function{fn}}

	assert.Len(t, u.Functions, 1)
	assert.Len(t, u.Functions[0].Params, 2)
	assert.Equal(t, ast.StmtReturn, u.Functions[0].Body.Stmts[0].Kind())
}
