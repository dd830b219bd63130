// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseUnit decodes one compilation unit from the wire format the
// external front end hands this back end (spec.md §1: lexing,
// parsing and semantic analysis are external collaborators; this is
// the narrow exchange format their output crosses in on), grounded on
// go-ethereum's hand-written Transaction.UnmarshalJSON over its
// discriminated TxData interface — the same "tag field picks the
// concrete type" idiom applied here to Expr/Stmt.
func ParseUnit(r io.Reader) (*Unit, error) {
	var raw unitJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ast: decoding unit: %w", err)
	}
	return raw.toUnit()
}

type unitJSON struct {
	ClassName string         `json:"className"`
	Functions []functionJSON `json:"functions"`
	Structs   []structJSON   `json:"structs"`
	Globals   []globalJSON   `json:"globals"`
}

type typeJSON struct {
	Tag       string    `json:"tag"`
	ClassName string    `json:"className,omitempty"`
	ElemType  *typeJSON `json:"elemType,omitempty"`
}

var typeTagNames = map[string]TypeTag{
	"int": TypeInt, "long": TypeLong, "float": TypeFloat, "double": TypeDouble,
	"char": TypeChar, "bool": TypeBool, "struct": TypeStruct, "array": TypeArray,
	"pointer": TypePointer, "object": TypeObject, "void": TypeVoid,
}

func (t *typeJSON) toType() (Type, error) {
	if t == nil {
		return Type{}, nil
	}
	tag, ok := typeTagNames[t.Tag]
	if !ok {
		return Type{}, fmt.Errorf("ast: unknown type tag %q", t.Tag)
	}
	out := Type{Tag: tag, ClassName: t.ClassName}
	if t.ElemType != nil {
		elem, err := t.ElemType.toType()
		if err != nil {
			return Type{}, err
		}
		out.ElemType = &elem
	}
	return out, nil
}

type paramJSON struct {
	Name string   `json:"name"`
	T    typeJSON `json:"type"`
}

func (p paramJSON) toParam() (Param, error) {
	t, err := p.T.toType()
	if err != nil {
		return Param{}, err
	}
	return Param{Name: p.Name, T: t}, nil
}

type structJSON struct {
	Name    string      `json:"name"`
	Members []paramJSON `json:"members"`
}

func (s structJSON) toStructDecl() (StructDecl, error) {
	out := StructDecl{Name: s.Name}
	for _, m := range s.Members {
		p, err := m.toParam()
		if err != nil {
			return StructDecl{}, err
		}
		out.Members = append(out.Members, p)
	}
	return out, nil
}

type globalJSON struct {
	Name string    `json:"name"`
	T    typeJSON  `json:"type"`
	Init *exprJSON `json:"init,omitempty"`
}

func (g globalJSON) toGlobalDecl() (GlobalDecl, error) {
	t, err := g.T.toType()
	if err != nil {
		return GlobalDecl{}, err
	}
	init, err := g.Init.toExpr()
	if err != nil {
		return GlobalDecl{}, err
	}
	return GlobalDecl{Name: g.Name, T: t, Init: init}, nil
}

type functionJSON struct {
	Name       string      `json:"name"`
	Params     []paramJSON `json:"params"`
	ReturnType typeJSON    `json:"returnType"`
	Body       *blockJSON  `json:"body"`
	IsStatic   bool        `json:"isStatic"`
}

func (f functionJSON) toFunction() (Function, error) {
	ret, err := f.ReturnType.toType()
	if err != nil {
		return Function{}, err
	}
	out := Function{Name: f.Name, ReturnType: ret, IsStatic: f.IsStatic}
	for _, p := range f.Params {
		pp, err := p.toParam()
		if err != nil {
			return Function{}, err
		}
		out.Params = append(out.Params, pp)
	}
	body, err := f.Body.toBlock()
	if err != nil {
		return Function{}, err
	}
	out.Body = body
	return out, nil
}

func (u unitJSON) toUnit() (*Unit, error) {
	out := &Unit{ClassName: u.ClassName}
	for _, fn := range u.Functions {
		f, err := fn.toFunction()
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, f)
	}
	for _, s := range u.Structs {
		sd, err := s.toStructDecl()
		if err != nil {
			return nil, err
		}
		out.Structs = append(out.Structs, sd)
	}
	for _, g := range u.Globals {
		gd, err := g.toGlobalDecl()
		if err != nil {
			return nil, err
		}
		out.Globals = append(out.Globals, gd)
	}
	return out, nil
}

// exprJSON is a flat envelope wide enough to carry every Expr variant;
// only the fields relevant to Kind are populated by the encoder on
// the front-end side.
type exprJSON struct {
	Kind string `json:"kind"`

	IntValue    *int32   `json:"intValue,omitempty"`
	LongValue   *int64   `json:"longValue,omitempty"`
	FloatValue  *float32 `json:"floatValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
	StringValue *string  `json:"stringValue,omitempty"`

	Name string `json:"name,omitempty"`

	Base    *exprJSON  `json:"base,omitempty"`
	Member  string     `json:"member,omitempty"`
	Index   *exprJSON  `json:"index,omitempty"`
	Op      string     `json:"op,omitempty"`
	Operand *exprJSON  `json:"operand,omitempty"`
	Left    *exprJSON  `json:"left,omitempty"`
	Right   *exprJSON  `json:"right,omitempty"`
	Target  *exprJSON  `json:"target,omitempty"`
	Value   *exprJSON  `json:"value,omitempty"`
	Args    []exprJSON `json:"args,omitempty"`

	T typeJSON `json:"type"`
}

var unaryOpNames = map[string]UnaryOp{"neg": OpNeg, "not": OpNot, "bitnot": OpBitNot}

var binaryOpNames = map[string]BinaryOp{
	"add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv, "mod": OpMod,
	"and": OpAnd, "or": OpOr, "xor": OpXor, "shl": OpShl, "shr": OpShr,
	"lt": OpLT, "le": OpLE, "gt": OpGT, "ge": OpGE, "eq": OpEQ, "ne": OpNE,
	"logicaland": OpLogicalAnd, "logicalor": OpLogicalOr,
}

func (e *exprJSON) toExpr() (Expr, error) {
	if e == nil {
		return nil, nil
	}
	t, err := e.T.toType()
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case "intLit":
		return IntLit{Value: derefInt32(e.IntValue)}, nil
	case "longLit":
		return LongLit{Value: derefInt64(e.LongValue)}, nil
	case "floatLit":
		return FloatLit{Value: derefFloat32(e.FloatValue)}, nil
	case "doubleLit":
		return DoubleLit{Value: derefFloat64(e.DoubleValue)}, nil
	case "stringLit":
		return StringLit{Value: derefString(e.StringValue)}, nil
	case "varRef":
		return VarRef{Name: e.Name, T: t}, nil
	case "fieldRef":
		base, err := e.Base.toExpr()
		if err != nil {
			return nil, err
		}
		return FieldRef{Base: base, Member: e.Member, T: t}, nil
	case "arrayIndex":
		base, err := e.Base.toExpr()
		if err != nil {
			return nil, err
		}
		idx, err := e.Index.toExpr()
		if err != nil {
			return nil, err
		}
		return ArrayIndex{Base: base, Index: idx, T: t}, nil
	case "unary":
		op, ok := unaryOpNames[e.Op]
		if !ok {
			return nil, fmt.Errorf("ast: unknown unary op %q", e.Op)
		}
		operand, err := e.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Operand: operand, T: t}, nil
	case "binary":
		op, ok := binaryOpNames[e.Op]
		if !ok {
			return nil, fmt.Errorf("ast: unknown binary op %q", e.Op)
		}
		left, err := e.Left.toExpr()
		if err != nil {
			return nil, err
		}
		right, err := e.Right.toExpr()
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, Left: left, Right: right, T: t}, nil
	case "assign":
		target, err := e.Target.toExpr()
		if err != nil {
			return nil, err
		}
		value, err := e.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return Assign{Target: target, Value: value, T: t}, nil
	case "call":
		var args []Expr
		for i := range e.Args {
			a, err := e.Args[i].toExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return Call{Name: e.Name, Args: args, T: t}, nil
	case "cast":
		operand, err := e.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return Cast{Operand: operand, T: t}, nil
	case "addrOf":
		operand, err := e.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return AddrOf{Operand: operand, T: t}, nil
	case "deref":
		operand, err := e.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return Deref{Operand: operand, T: t}, nil
	default:
		return nil, fmt.Errorf("ast: unknown expr kind %q", e.Kind)
	}
}

// stmtJSON mirrors exprJSON for the Stmt hierarchy.
type stmtJSON struct {
	Kind string `json:"kind"`

	E     *exprJSON  `json:"e,omitempty"`
	Name  string     `json:"name,omitempty"`
	T     *typeJSON  `json:"type,omitempty"`
	Init  *exprJSON  `json:"init,omitempty"`
	Stmt  *stmtJSON  `json:"stmt,omitempty"` // Init of a For, which is itself a Stmt
	Stmts []stmtJSON `json:"stmts,omitempty"`

	Cond *exprJSON `json:"cond,omitempty"`
	Then *stmtJSON `json:"then,omitempty"`
	Else *stmtJSON `json:"else,omitempty"`
	Body *stmtJSON `json:"body,omitempty"`
	Post *exprJSON `json:"post,omitempty"`

	SwitchExpr *exprJSON        `json:"switchExpr,omitempty"`
	Cases      []switchCaseJSON `json:"cases,omitempty"`

	Value *exprJSON `json:"value,omitempty"`
}

type switchCaseJSON struct {
	Values []int32    `json:"values"`
	Body   []stmtJSON `json:"body"`
}

type blockJSON struct {
	Stmts []stmtJSON `json:"stmts"`
}

func (b *blockJSON) toBlock() (*Block, error) {
	if b == nil {
		return &Block{}, nil
	}
	out := &Block{}
	for i := range b.Stmts {
		s, err := b.Stmts[i].toStmt()
		if err != nil {
			return nil, err
		}
		out.Stmts = append(out.Stmts, s)
	}
	return out, nil
}

func (s *stmtJSON) toStmt() (Stmt, error) {
	if s == nil {
		return nil, nil
	}
	switch s.Kind {
	case "exprStmt":
		e, err := s.E.toExpr()
		if err != nil {
			return nil, err
		}
		return ExprStmt{E: e}, nil
	case "varDecl":
		t, err := s.T.toType()
		if err != nil {
			return nil, err
		}
		init, err := s.Init.toExpr()
		if err != nil {
			return nil, err
		}
		return VarDecl{Name: s.Name, T: t, Init: init}, nil
	case "block":
		out := Block{}
		for i := range s.Stmts {
			st, err := s.Stmts[i].toStmt()
			if err != nil {
				return nil, err
			}
			out.Stmts = append(out.Stmts, st)
		}
		return out, nil
	case "if":
		cond, err := s.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		then, err := s.Then.toStmt()
		if err != nil {
			return nil, err
		}
		els, err := s.Else.toStmt()
		if err != nil {
			return nil, err
		}
		return If{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := s.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		body, err := s.Body.toStmt()
		if err != nil {
			return nil, err
		}
		return While{Cond: cond, Body: body}, nil
	case "doWhile":
		cond, err := s.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		body, err := s.Body.toStmt()
		if err != nil {
			return nil, err
		}
		return DoWhile{Body: body, Cond: cond}, nil
	case "for":
		init, err := s.Stmt.toStmt()
		if err != nil {
			return nil, err
		}
		cond, err := s.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		post, err := s.Post.toExpr()
		if err != nil {
			return nil, err
		}
		body, err := s.Body.toStmt()
		if err != nil {
			return nil, err
		}
		return For{Init: init, Cond: cond, Post: post, Body: body}, nil
	case "switch":
		expr, err := s.SwitchExpr.toExpr()
		if err != nil {
			return nil, err
		}
		out := Switch{Expr: expr}
		for _, c := range s.Cases {
			sc := SwitchCase{Values: c.Values}
			for i := range c.Body {
				cs, err := c.Body[i].toStmt()
				if err != nil {
					return nil, err
				}
				sc.Body = append(sc.Body, cs)
			}
			out.Cases = append(out.Cases, sc)
		}
		return out, nil
	case "break":
		return Break{}, nil
	case "continue":
		return Continue{}, nil
	case "return":
		v, err := s.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return Return{Value: v}, nil
	default:
		return nil, fmt.Errorf("ast: unknown stmt kind %q", s.Kind)
	}
}

func derefInt32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat32(p *float32) float32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
