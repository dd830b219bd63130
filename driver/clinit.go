// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"

	"jvmgen/ast"
	"jvmgen/classfile"
	"jvmgen/codebuilder"
	"jvmgen/opcode"
	"jvmgen/stackmap"
	"jvmgen/verify"
)

// clinitSplitThreshold is the conservative per-method code-size limit
// past which a unit's static initialisers are split across helper
// methods rather than risk a single `<clinit>` body overflowing the
// Code attribute's u2 length field, grounded on
// `original_source/codegen.c`'s own split-point logic (it splits at
// field boundaries rather than mid-initialiser, which this mirrors by
// only ever checking the threshold between one global's initialiser
// and the next).
const clinitSplitThreshold = 60 * 1024

// buildClinit lowers every initialised ast.GlobalDecl into one or more
// `__clinit_partN` static helper methods plus a `<clinit>` that invokes
// them in order. The real `<clinit>` is kept trivial (a straight-line
// sequence of invokestatic calls) so splitting never has to reason
// about partial control flow.
func buildClinit(cp *classfile.Pool, d *unitDriver, globals []ast.GlobalDecl) ([]classfile.Method, int, error) {
	var initialised []ast.GlobalDecl
	for _, g := range globals {
		if g.Init != nil {
			initialised = append(initialised, g)
		}
	}
	if len(initialised) == 0 {
		return nil, 0, nil
	}

	newPart := func() *codebuilder.Builder {
		return codebuilder.New(cp, true, false, d.unit.ClassName, nil)
	}

	var parts []classfile.Method
	partIndex := 0
	current := newPart()
	currentInitial := current.Frame().Clone()
	e := &funcEmitter{d: d, b: current, retType: ast.Type{Tag: ast.TypeVoid}}

	finishPart := func(b *codebuilder.Builder, initial *verify.Frame, name string) (classfile.Method, error) {
		b.Em.Simple(opcode.Return)
		b.SetAlive(false)
		if err := b.ResolvePendingJumps(); err != nil {
			return classfile.Method{}, err
		}
		code := b.Buf.Bytes()
		var targets []stackmap.Target
		for _, bt := range b.BranchTargets() {
			targets = append(targets, stackmap.Target{PC: bt.PC, Frame: bt.Frame})
		}
		return classfile.Method{
			AccessFlags: classfile.MAccStatic,
			Name:        name,
			Descriptor:  "()V",
			Code: &classfile.CodeAttribute{
				MaxStack:  uint16(b.MaxStack()),
				MaxLocals: uint16(b.MaxLocals()),
				Code:      code,
				StackMap:  stackmap.Encode(targets, initial, len(code), cp),
			},
		}, nil
	}

	for _, g := range initialised {
		if current.CurrentPC() > clinitSplitThreshold {
			m, err := finishPart(current, currentInitial, fmt.Sprintf("__clinit_part%d", partIndex))
			if err != nil {
				return nil, 0, err
			}
			parts = append(parts, m)
			partIndex++
			current = newPart()
			currentInitial = current.Frame().Clone()
			e.b = current
		}

		e.emitExpr(g.Init)
		descriptor := d.descriptor(g.T)
		fieldIdx := cp.AddFieldref(d.unit.ClassName, g.Name, descriptor)
		current.PutStatic(fieldIdx, descriptor)
	}

	m, err := finishPart(current, currentInitial, fmt.Sprintf("__clinit_part%d", partIndex))
	if err != nil {
		return nil, 0, err
	}
	parts = append(parts, m)

	top := newPart()
	for _, p := range parts {
		methodIdx := cp.AddMethodref(d.unit.ClassName, p.Name, "()V")
		top.InvokeStatic(methodIdx, codebuilder.MethodSig{})
	}
	top.Em.Simple(opcode.Return)
	top.SetAlive(false)
	if err := top.ResolvePendingJumps(); err != nil {
		return nil, 0, err
	}

	clinit := classfile.Method{
		AccessFlags: classfile.MAccStatic,
		Name:        "<clinit>",
		Descriptor:  "()V",
		Code: &classfile.CodeAttribute{
			MaxStack:  uint16(top.MaxStack()),
			MaxLocals: uint16(top.MaxLocals()),
			Code:      top.Buf.Bytes(),
		},
	}

	splits := len(parts) - 1
	if splits < 0 {
		splits = 0
	}

	return append([]classfile.Method{clinit}, parts...), splits, nil
}
