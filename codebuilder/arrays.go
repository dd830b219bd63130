// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"jvmgen/opcode"
	"jvmgen/verify"
)

// arrayLoadStoreOps maps an element descriptor's leading byte to its
// (load, store) opcode pair (spec.md §4.4 "Array operations").
func arrayLoadStoreOps(elementDescriptor string) (load, store byte, elem verify.Type) {
	if len(elementDescriptor) == 0 {
		return opcode.Aaload, opcode.Aastore, verify.TObject("Ljava/lang/Object;")
	}
	switch elementDescriptor[0] {
	case 'I':
		return opcode.Iaload, opcode.Iastore, verify.TInteger()
	case 'J':
		return opcode.Laload, opcode.Lastore, verify.TLong()
	case 'F':
		return opcode.Faload, opcode.Fastore, verify.TFloat()
	case 'D':
		return opcode.Daload, opcode.Dastore, verify.TDouble()
	case 'B', 'Z':
		return opcode.Baload, opcode.Bastore, verify.TInteger()
	case 'C':
		return opcode.Caload, opcode.Castore, verify.TInteger()
	case 'S':
		return opcode.Saload, opcode.Sastore, verify.TInteger()
	default: // 'L' or '['
		return opcode.Aaload, opcode.Aastore, verify.TObject(elementDescriptor)
	}
}

// ArrayLoad pops the index and array reference, emits the opcode
// selected from elementDescriptor, and pushes the element type.
func (b *Builder) ArrayLoad(elementDescriptor string) {
	load, _, elem := arrayLoadStoreOps(elementDescriptor)
	b.Pop() // index
	b.Pop() // arrayref
	b.Em.Simple(load)
	b.Push(elem)
}

// ArrayStore pops the value, index and array reference, emitting the
// opcode selected from elementDescriptor.
func (b *Builder) ArrayStore(elementDescriptor string) {
	_, store, _ := arrayLoadStoreOps(elementDescriptor)
	b.Pop() // value
	b.Pop() // index
	b.Pop() // arrayref
	b.Em.Simple(store)
}

// ArrayLength pops the array reference, emits arraylength, and pushes
// an Integer.
func (b *Builder) ArrayLength() {
	b.Pop()
	b.Em.Simple(opcode.Arraylength)
	b.Push(verify.TInteger())
}

// NewArray emits newarray for a primitive element type tag, popping
// the length and pushing the array reference.
func (b *Builder) NewArray(elementTypeTag uint8, elementDescriptor string) {
	b.Pop() // length
	b.Em.U1Op(opcode.Newarray, elementTypeTag)
	b.Push(verify.TObject("[" + elementDescriptor))
}

// ANewArray emits anewarray for a reference element type, popping the
// length and pushing `[Ldesc;` or `[desc` if the element is itself an
// array (spec.md §4.4).
func (b *Builder) ANewArray(classIndex uint16, elementDescriptor string) {
	b.Pop() // length
	b.Em.U2Op(opcode.Anewarray, classIndex)

	pushed := elementDescriptor
	if len(pushed) == 0 || pushed[0] != '[' {
		pushed = FieldDescriptorForClass(elementDescriptor)
	}
	b.Push(verify.TObject("[" + pushed))
}
