// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth

import (
	"jvmgen/classfile"
	"jvmgen/codebuilder"
	"jvmgen/opcode"
	"jvmgen/verify"
)

// MemberKind distinguishes the three shapes a struct member's default
// initialisation can take (spec.md §9: "Struct classes are
// materialised ... with a default `<init>` that allocates nested
// struct instances ... and fixed-size arrays").
type MemberKind int

const (
	MemberPrimitive MemberKind = iota // left at the JVM default zero value
	MemberStruct                      // allocates a nested struct instance
	MemberArray                       // allocates a fixed-size array
)

// Member is one field of a synthetic struct class.
type Member struct {
	Name       string
	Descriptor string
	Kind       MemberKind

	StructClass    string // internal class name, MemberStruct only
	ElemDescriptor string // array element descriptor, MemberArray only
	ArrayLength    int32  // fixed length, MemberArray only
}

// StructDef describes one C struct type to materialise as a class:
// one field per member, in declaration order.
type StructDef struct {
	ClassName string
	Members   []Member
}

// BuildStructClass generates def's class: one public field per member
// plus a default `<init>` that chains `Object.<init>` and then
// allocates every nested-struct and fixed-size-array member.
func BuildStructClass(def StructDef) *classfile.ClassFile {
	cf := classfile.NewClassFile(def.ClassName, "java/lang/Object")
	for _, m := range def.Members {
		cf.Fields = append(cf.Fields, classfile.Field{AccessFlags: classfile.AccPublic, Name: m.Name, Descriptor: m.Descriptor})
	}
	cf.Methods = append(cf.Methods, structConstructor(cf.CP, def))
	return cf
}

func structConstructor(cp *classfile.Pool, def StructDef) classfile.Method {
	objectCtor := cp.AddMethodref("java/lang/Object", "<init>", "()V")

	b := codebuilder.New(cp, false, true, def.ClassName, nil)
	b.Em.LoadLocal(opcode.Aload, 0)
	b.Push(verify.TUninitThis())
	b.InvokeSpecial(objectCtor, codebuilder.MethodSig{}, true, "java/lang/Object")

	for _, m := range def.Members {
		switch m.Kind {
		case MemberStruct:
			emitStructMember(b, cp, def.ClassName, m)
		case MemberArray:
			emitArrayMember(b, cp, def.ClassName, m)
		case MemberPrimitive:
			// No initialiser: the JVM zero-initialises every field.
		}
	}

	b.Em.Simple(opcode.Return)
	b.SetAlive(false)
	if err := b.ResolvePendingJumps(); err != nil {
		panic(err) // a straight-line constructor body never leaves a pending jump
	}

	return classfile.Method{
		AccessFlags: classfile.MAccPublic,
		Name:        "<init>",
		Descriptor:  "()V",
		Code: &classfile.CodeAttribute{
			MaxStack:  uint16(b.MaxStack()),
			MaxLocals: uint16(b.MaxLocals()),
			Code:      b.Buf.Bytes(),
		},
	}
}

// emitStructMember emits: aload_0; new StructClass; dup; invokespecial
// StructClass.<init>:()V; putfield this.member.
func emitStructMember(b *codebuilder.Builder, cp *classfile.Pool, thisClass string, m Member) {
	fieldIdx := cp.AddFieldref(thisClass, m.Name, m.Descriptor)
	classIdx := cp.AddClass(m.StructClass)
	ctorIdx := cp.AddMethodref(m.StructClass, "<init>", "()V")

	b.Em.LoadLocal(opcode.Aload, 0)
	b.Push(verify.TObject(codebuilder.FieldDescriptorForClass(thisClass)))
	b.New(classIdx)
	b.Dup()
	b.InvokeSpecial(ctorIdx, codebuilder.MethodSig{}, true, m.StructClass)
	b.PutField(fieldIdx, m.Descriptor)
}

// emitArrayMember emits: aload_0; <push the fixed length>; newarray or
// anewarray; putfield this.member.
func emitArrayMember(b *codebuilder.Builder, cp *classfile.Pool, thisClass string, m Member) {
	fieldIdx := cp.AddFieldref(thisClass, m.Name, m.Descriptor)

	b.Em.LoadLocal(opcode.Aload, 0)
	b.Push(verify.TObject(codebuilder.FieldDescriptorForClass(thisClass)))
	length := m.ArrayLength
	b.Em.Iconst(length, func() uint16 { return cp.AddInteger(length) })
	b.Push(verify.TInteger())

	if tag, ok := primitiveArrayTag(m.ElemDescriptor); ok {
		b.NewArray(tag, m.ElemDescriptor)
	} else {
		classIdx := cp.AddClass(internalClassName(m.ElemDescriptor))
		b.ANewArray(classIdx, m.ElemDescriptor)
	}
	b.PutField(fieldIdx, m.Descriptor)
}

// primitiveArrayTag maps a primitive element descriptor to its
// newarray type tag (opcode.ArrayType*); ok is false for a reference
// element, which anewarray handles instead.
func primitiveArrayTag(elemDescriptor string) (tag uint8, ok bool) {
	if len(elemDescriptor) == 0 {
		return 0, false
	}
	switch elemDescriptor[0] {
	case 'Z':
		return opcode.ArrayTypeBoolean, true
	case 'C':
		return opcode.ArrayTypeChar, true
	case 'F':
		return opcode.ArrayTypeFloat, true
	case 'D':
		return opcode.ArrayTypeDouble, true
	case 'B':
		return opcode.ArrayTypeByte, true
	case 'S':
		return opcode.ArrayTypeShort, true
	case 'I':
		return opcode.ArrayTypeInt, true
	case 'J':
		return opcode.ArrayTypeLong, true
	default:
		return 0, false
	}
}

// internalClassName converts a field descriptor to the name anewarray
// expects: array descriptors verbatim, plain object descriptors with
// their leading 'L' and trailing ';' stripped.
func internalClassName(descriptor string) string {
	if len(descriptor) > 0 && descriptor[0] == '[' {
		return descriptor
	}
	if len(descriptor) >= 2 && descriptor[0] == 'L' && descriptor[len(descriptor)-1] == ';' {
		return descriptor[1 : len(descriptor)-1]
	}
	return descriptor
}
