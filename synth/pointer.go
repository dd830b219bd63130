// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synth generates the synthetic runtime-support classes a
// C-dialect-to-JVM compilation needs but the source program never
// declares: one pointer-wrapper class per primitive/object pointer
// flavour the unit uses, and one class per C struct type
// (spec.md §9, SPEC_FULL.md §3). Grounded on
// `original_source/synthetic_codegen.c`.
package synth

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"jvmgen/classfile"
	"jvmgen/codebuilder"
	"jvmgen/opcode"
	"jvmgen/verify"
)

// PtrType indexes the eight pointer-wrapper flavours the C dialect's
// `&expr` can produce, mirroring synthetic_codegen.h's PtrTypeIndex.
type PtrType int

const (
	PtrChar PtrType = iota
	PtrBool
	PtrShort
	PtrInt
	PtrLong
	PtrFloat
	PtrDouble
	PtrObject
	ptrTypeCount
)

// ptrTypeInfo is the Go form of synthetic_codegen.c's PTR_TYPES table:
// the generated class's name, its `base` array field's descriptor, the
// array load/store/return opcodes used by the accessor methods a
// caller builds against it, and whether the pointed-to element is a
// wide (2-slot) type.
type ptrTypeInfo struct {
	ClassName string
	BaseDesc  string // descriptor of the `base` field, e.g. "[I"
	ElemDesc  string // descriptor of one element, e.g. "I"
	AloadOp   byte
	AstoreOp  byte
	ReturnOp  byte
	Wide      bool
}

var ptrTypes = [ptrTypeCount]ptrTypeInfo{
	PtrChar:   {"__charPtr", "[B", "B", opcode.Baload, opcode.Bastore, opcode.Ireturn, false},
	PtrBool:   {"__boolPtr", "[Z", "Z", opcode.Baload, opcode.Bastore, opcode.Ireturn, false},
	PtrShort:  {"__shortPtr", "[S", "S", opcode.Saload, opcode.Sastore, opcode.Ireturn, false},
	PtrInt:    {"__intPtr", "[I", "I", opcode.Iaload, opcode.Iastore, opcode.Ireturn, false},
	PtrLong:   {"__longPtr", "[J", "J", opcode.Laload, opcode.Lastore, opcode.Lreturn, true},
	PtrFloat:  {"__floatPtr", "[F", "F", opcode.Faload, opcode.Fastore, opcode.Freturn, false},
	PtrDouble: {"__doublePtr", "[D", "D", opcode.Daload, opcode.Dastore, opcode.Dreturn, true},
	PtrObject: {"__objectPtr", "[Ljava/lang/Object;", "Ljava/lang/Object;", opcode.Aaload, opcode.Aastore, opcode.Areturn, false},
}

// ClassName returns t's generated class's internal name (e.g.
// "__intPtr").
func (t PtrType) ClassName() string { return ptrTypes[t].ClassName }

// ClassDescriptor returns t's generated class's field descriptor (e.g.
// "L__intPtr;").
func (t PtrType) ClassDescriptor() string { return "L" + ptrTypes[t].ClassName + ";" }

// BaseDescriptor returns the descriptor of t's `base` array field.
func (t PtrType) BaseDescriptor() string { return ptrTypes[t].BaseDesc }

// ElemDescriptor returns the descriptor of one array element of t.
func (t PtrType) ElemDescriptor() string { return ptrTypes[t].ElemDesc }

// AloadOpcode, AstoreOpcode and ReturnOpcode return the array
// load/store and method-return opcodes a caller building an accessor
// against t's `base` field should use.
func (t PtrType) AloadOpcode() byte  { return ptrTypes[t].AloadOp }
func (t PtrType) AstoreOpcode() byte { return ptrTypes[t].AstoreOp }
func (t PtrType) ReturnOpcode() byte { return ptrTypes[t].ReturnOp }

// IsWide reports whether t's element occupies two local/stack slots
// (long, double).
func (t PtrType) IsWide() bool { return ptrTypes[t].Wide }

// PtrTypeFromTag converts a JVM base-type descriptor tag ('B','Z','S',
// 'I','J','F','D','L') to the PtrType wrapping a pointer to it,
// matching synthetic_codegen.c's ptr_type_index_from_jvm_tag.
func PtrTypeFromTag(tag byte) (PtrType, bool) {
	switch tag {
	case 'B':
		return PtrChar, true
	case 'Z':
		return PtrBool, true
	case 'S':
		return PtrShort, true
	case 'I':
		return PtrInt, true
	case 'J':
		return PtrLong, true
	case 'F':
		return PtrFloat, true
	case 'D':
		return PtrDouble, true
	case 'L':
		return PtrObject, true
	default:
		return 0, false
	}
}

// PtrUsage tracks, over one compilation unit, which pointer-wrapper
// flavours the source program uses (the driver marks one for every
// pointer type it writes a descriptor for, and for each `&expr` and
// `*expr` it compiles) —
// the "per-compilation mutable set held on a context object" of
// spec.md §9 — so only the classes actually needed are emitted
// (synthetic_codegen.c's generate_ptr_struct_classes_selective).
type PtrUsage struct {
	used mapset.Set[PtrType]
}

// NewPtrUsage returns an empty usage tracker.
func NewPtrUsage() *PtrUsage {
	return &PtrUsage{used: mapset.NewSet[PtrType]()}
}

// Mark records that t's pointer-wrapper class is needed.
func (u *PtrUsage) Mark(t PtrType) { u.used.Add(t) }

// Any reports whether any pointer flavour was marked.
func (u *PtrUsage) Any() bool { return u.used.Cardinality() > 0 }

// Used returns the marked flavours in a stable, deterministic order
// (ascending PtrType), for reproducible output across compiler runs.
func (u *PtrUsage) Used() []PtrType {
	out := u.used.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BuildPointerClasses generates one ClassFile per flavour marked in
// usage: a public `base` array field, a public `offset` int field, and
// a default constructor chaining java/lang/Object's.
func BuildPointerClasses(usage *PtrUsage) []*classfile.ClassFile {
	var out []*classfile.ClassFile
	for _, t := range usage.Used() {
		out = append(out, buildPointerClass(ptrTypes[t]))
	}
	return out
}

func buildPointerClass(info ptrTypeInfo) *classfile.ClassFile {
	cf := classfile.NewClassFile(info.ClassName, "java/lang/Object")
	cf.Fields = append(cf.Fields,
		classfile.Field{AccessFlags: classfile.AccPublic, Name: "base", Descriptor: info.BaseDesc},
		classfile.Field{AccessFlags: classfile.AccPublic, Name: "offset", Descriptor: "I"},
	)
	cf.Methods = append(cf.Methods, defaultConstructor(cf.CP, info.ClassName, "java/lang/Object"))
	return cf
}

// defaultConstructor builds the trivial `<init>` every synthetic class
// carries: aload_0; invokespecial superClass.<init>:()V; return
// (synthetic_codegen.c's init_code, built here through the Code
// Builder rather than hand-assembled bytes).
func defaultConstructor(cp *classfile.Pool, className, superClass string) classfile.Method {
	ctorIdx := cp.AddMethodref(superClass, "<init>", "()V")

	b := codebuilder.New(cp, false, true, className, nil)
	b.Em.LoadLocal(opcode.Aload, 0)
	b.Push(verify.TUninitThis())
	b.InvokeSpecial(ctorIdx, codebuilder.MethodSig{}, true, superClass)
	b.Em.Simple(opcode.Return)
	b.SetAlive(false)
	if err := b.ResolvePendingJumps(); err != nil {
		panic(err) // this fixed 3-instruction body never emits a jump
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
