// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"jvmgen/opcode"
	"jvmgen/verify"
)

// ParseFieldDescriptor converts a JVM field descriptor into its
// verification type: primitives collapse to the "computational"
// families (I/B/S/C/Z -> Integer), J -> Long, F -> Float, D -> Double,
// and L...;/[ descriptors -> Object(descriptor) (spec.md §3, §4.4
// "Field access").
func ParseFieldDescriptor(d string) verify.Type {
	if len(d) == 0 {
		return verify.TTop()
	}
	switch d[0] {
	case 'I', 'B', 'S', 'C', 'Z':
		return verify.TInteger()
	case 'J':
		return verify.TLong()
	case 'F':
		return verify.TFloat()
	case 'D':
		return verify.TDouble()
	case 'L', '[':
		return verify.TObject(d)
	default:
		return verify.TTop()
	}
}

// GetStatic emits getstatic and pushes the field's verification type.
func (b *Builder) GetStatic(fieldIndex uint16, descriptor string) {
	b.Em.U2Op(opcode.Getstatic, fieldIndex)
	b.Push(ParseFieldDescriptor(descriptor))
}

// PutStatic pops the value (two slots for wide types) and emits
// putstatic, warning if the popped type isn't assignable to the
// declared descriptor (spec.md §4.4, §7 "Soft verifier warnings").
func (b *Builder) PutStatic(fieldIndex uint16, descriptor string) {
	value := b.Pop()
	declared := ParseFieldDescriptor(descriptor)
	if !verify.Assignable(value, declared) {
		b.diag.TypeMismatches++
	}
	b.Em.U2Op(opcode.Putstatic, fieldIndex)
}

// GetField emits getfield, popping the receiver and pushing the
// field's verification type.
func (b *Builder) GetField(fieldIndex uint16, descriptor string) {
	b.Pop() // receiver
	b.Em.U2Op(opcode.Getfield, fieldIndex)
	b.Push(ParseFieldDescriptor(descriptor))
}

// PutField pops the value then the receiver, and emits putfield,
// warning on an assignment-incompatible value type.
func (b *Builder) PutField(fieldIndex uint16, descriptor string) {
	value := b.Pop()
	b.Pop() // receiver
	declared := ParseFieldDescriptor(descriptor)
	if !verify.Assignable(value, declared) {
		b.diag.TypeMismatches++
	}
	b.Em.U2Op(opcode.Putfield, fieldIndex)
}
