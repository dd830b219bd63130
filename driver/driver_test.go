// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/ast"
	"jvmgen/driver"
)

func intType() ast.Type { return ast.Type{Tag: ast.TypeInt} }

// TestCompileAddFunction builds `static int add(int a, int b) { return
// a + b; }` and confirms it produces one serialisable method.
func TestCompileAddFunction(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "add",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "a", T: intType()}, {Name: "b", T: intType()}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Return{Value: ast.Binary{
						Op:    ast.OpAdd,
						Left:  ast.VarRef{Name: "a", T: intType()},
						Right: ast.VarRef{Name: "b", T: intType()},
						T:     intType(),
					}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.NotNil(t, result.Main)
	require.Len(t, result.Main.Methods, 1)
	assert.Equal(t, "add", result.Main.Methods[0].Name)
	assert.Equal(t, "(II)I", result.Main.Methods[0].Descriptor)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.Bytes())
}

// TestCompileIfElseFunction covers a branching body: `if (a < b)
// return a; else return b;`, exercising BeginIf/BeginElse/EndIf end to
// end through Compile.
func TestCompileIfElseFunction(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "min",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "a", T: intType()}, {Name: "b", T: intType()}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.If{
						Cond: ast.Binary{
							Op:    ast.OpLT,
							Left:  ast.VarRef{Name: "a", T: intType()},
							Right: ast.VarRef{Name: "b", T: intType()},
							T:     intType(),
						},
						Then: ast.Return{Value: ast.VarRef{Name: "a", T: intType()}},
						Else: ast.Return{Value: ast.VarRef{Name: "b", T: intType()}},
					},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Main.Methods, 1)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
}

// TestCompileLoopFunction covers a while loop summing 0..n-1,
// exercising BeginWhile/WhileTestFailed/EndWhile plus local
// declarations.
func TestCompileLoopFunction(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "sum",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "n", T: intType()}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.VarDecl{Name: "total", T: intType(), Init: ast.IntLit{Value: 0}},
					ast.VarDecl{Name: "i", T: intType(), Init: ast.IntLit{Value: 0}},
					ast.While{
						Cond: ast.Binary{
							Op:    ast.OpLT,
							Left:  ast.VarRef{Name: "i", T: intType()},
							Right: ast.VarRef{Name: "n", T: intType()},
							T:     intType(),
						},
						Body: &ast.Block{Stmts: []ast.Stmt{
							ast.ExprStmt{E: ast.Assign{
								Target: ast.VarRef{Name: "total", T: intType()},
								Value: ast.Binary{
									Op:    ast.OpAdd,
									Left:  ast.VarRef{Name: "total", T: intType()},
									Right: ast.VarRef{Name: "i", T: intType()},
									T:     intType(),
								},
								T: intType(),
							}},
							ast.ExprStmt{E: ast.Assign{
								Target: ast.VarRef{Name: "i", T: intType()},
								Value: ast.Binary{
									Op:    ast.OpAdd,
									Left:  ast.VarRef{Name: "i", T: intType()},
									Right: ast.IntLit{Value: 1},
									T:     intType(),
								},
								T: intType(),
							}},
						}},
					},
					ast.Return{Value: ast.VarRef{Name: "total", T: intType()}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Main.Methods, 1)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
}

// TestCompileGlobalsProducesClinit confirms an initialised global
// produces a static field plus a <clinit> method.
func TestCompileGlobalsProducesClinit(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Globals: []ast.GlobalDecl{
			{Name: "counter", T: intType(), Init: ast.IntLit{Value: 42}},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Main.Fields, 1)
	assert.Equal(t, "counter", result.Main.Fields[0].Name)

	var names []string
	for _, m := range result.Main.Methods {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "<clinit>")
}

// TestCompileStructUsageProducesStructClass confirms a struct field
// access against a declared struct type causes its class to be
// generated alongside the unit's main class.
func TestCompileStructUsageProducesStructClass(t *testing.T) {
	pointType := ast.Type{Tag: ast.TypeStruct, ClassName: "Point"}
	unit := &ast.Unit{
		ClassName: "Main",
		Structs: []ast.StructDecl{
			{Name: "Point", Members: []ast.Param{{Name: "x", T: intType()}, {Name: "y", T: intType()}}},
		},
		Functions: []ast.Function{
			{
				Name:       "getX",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "p", T: pointType}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Return{Value: ast.FieldRef{
						Base:   ast.VarRef{Name: "p", T: pointType},
						Member: "x",
						T:      intType(),
					}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Structs, 1)
	assert.Equal(t, "Point", result.Structs[0].ThisClass)
}

// TestCompileAddressOfProducesPointerClass confirms `&arr[i]` marks
// the int pointer-wrapper flavour as used.
func TestCompileAddressOfProducesPointerClass(t *testing.T) {
	intArray := ast.Type{Tag: ast.TypeArray, ElemType: &ast.Type{Tag: ast.TypeInt}}
	ptrType := ast.Type{Tag: ast.TypePointer, ElemType: &ast.Type{Tag: ast.TypeInt}}
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "addrOfFirst",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "arr", T: intArray}},
				ReturnType: ptrType,
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Return{Value: ast.AddrOf{
						Operand: ast.ArrayIndex{
							Base:  ast.VarRef{Name: "arr", T: intArray},
							Index: ast.IntLit{Value: 0},
							T:     intType(),
						},
						T: ptrType,
					}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Pointers, 1)
	assert.Equal(t, "__intPtr", result.Pointers[0].ThisClass)
}

// TestCompileDerefProducesPointerClass confirms `*p` lowers cleanly
// end to end (dup/getfield/swap/getfield/array-load) without
// desyncing the builder's verification-type tracker — a mismatch
// there surfaces as a WriteTo or ResolvePendingJumps failure.
func TestCompileDerefProducesPointerClass(t *testing.T) {
	ptrType := ast.Type{Tag: ast.TypePointer, ElemType: &ast.Type{Tag: ast.TypeInt}}
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "load",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "p", T: ptrType}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Return{Value: ast.Deref{
						Operand: ast.VarRef{Name: "p", T: ptrType},
						T:       intType(),
					}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Pointers, 1)
	assert.Equal(t, "__intPtr", result.Pointers[0].ThisClass)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.Bytes())
}

// TestCompileSwitchDispatchesOnExpr covers a three-case (plus default)
// switch, which javac's cost model routes through emitTableSwitch.
// This exercises BeginSwitch's goto-dispatch end to end: cfg.Analyze
// runs inside compileFunction and would reject the class outright if
// the dispatch table were unreachable or a case fell through into its
// neighbour instead of being entered only via the dispatch.
func TestCompileSwitchDispatchesOnExpr(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "classify",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "x", T: intType()}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Switch{
						Expr: ast.VarRef{Name: "x", T: intType()},
						Cases: []ast.SwitchCase{
							{Values: []int32{1}, Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: 10}}}},
							{Values: []int32{2}, Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: 20}}}},
							{Values: []int32{3}, Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: 30}}}},
							{Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: -1}}}},
						},
					},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)
	require.Len(t, result.Main.Methods, 1)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
}

// TestCompileTwoCaseSwitchIfChainStack covers the n=2 if-chain
// dispatch strategy inside an otherwise shallow-stack method: if
// emitIfChain didn't model its iload/iconst depth, MaxStack would be
// computed too small here and WriteTo would emit an invalid
// max_stack, though only a verifier would actually catch that. The
// cfg.Analyze pass in compileFunction independently confirms the
// if-chain's jumps land on real instruction boundaries.
func TestCompileTwoCaseSwitchIfChainStack(t *testing.T) {
	unit := &ast.Unit{
		ClassName: "Main",
		Functions: []ast.Function{
			{
				Name:       "pick",
				IsStatic:   true,
				Params:     []ast.Param{{Name: "x", T: intType()}},
				ReturnType: intType(),
				Body: &ast.Block{Stmts: []ast.Stmt{
					ast.Switch{
						Expr: ast.VarRef{Name: "x", T: intType()},
						Cases: []ast.SwitchCase{
							{Values: []int32{1}, Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: 1}}}},
							{Values: []int32{2}, Body: []ast.Stmt{ast.Return{Value: ast.IntLit{Value: 2}}}},
						},
					},
					ast.Return{Value: ast.IntLit{Value: 0}},
				}},
			},
		},
	}

	result, err := driver.Compile(unit)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = result.Main.WriteTo(&buf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Main.Methods[0].Code.MaxStack, uint16(2))
}
