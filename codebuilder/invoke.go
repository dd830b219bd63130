// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"jvmgen/opcode"
	"jvmgen/verify"
)

// MethodSig describes a method's argument and return verification
// types, derived externally from its descriptor (spec.md §3's "Static
// field / class field" note: the core treats descriptors as opaque
// strings produced by an external helper).
type MethodSig struct {
	Args   []verify.Type
	Return verify.Type // Tag == verify.Top (zero value) means void
}

// InvokeVirtual emits invokevirtual, popping the arguments and the
// receiver, then pushing the return value if non-void.
func (b *Builder) InvokeVirtual(methodIndex uint16, sig MethodSig) {
	b.invokeCommon(opcode.Invokevirtual, methodIndex, sig, true)
}

// InvokeStatic emits invokestatic, popping only the arguments.
func (b *Builder) InvokeStatic(methodIndex uint16, sig MethodSig) {
	b.invokeCommon(opcode.Invokestatic, methodIndex, sig, false)
}

// InvokeSpecial emits invokespecial, popping the arguments and the
// receiver. If isInit is set, every occurrence of the receiver's
// Uninitialized(pc) token — wherever it appears in the current frame's
// stack and locals — is replaced by Object of the class's field
// descriptor (internal name "Foo" becomes "LFoo;"), per spec.md §4.4's
// "Invocation and object construction".
func (b *Builder) InvokeSpecial(methodIndex uint16, sig MethodSig, isInit bool, internalClassName string) {
	var receiverSite verify.Type
	if isInit {
		// The receiver sits below the arguments; peek before popping.
		depth := 0
		for _, a := range sig.Args {
			depth += verify.Slots(a)
		}
		stack := b.frame.Stack
		if idx := len(stack) - depth - 1; idx >= 0 {
			receiverSite = stack[idx]
		}
	}

	b.invokeCommon(opcode.Invokespecial, methodIndex, sig, true)

	if isInit && receiverSite.Tag == verify.Uninitialized {
		b.substituteUninitialized(receiverSite.NewSitePC, verify.TObject(FieldDescriptorForClass(internalClassName)))
	}
}

// InvokeInterface emits invokeinterface.
func (b *Builder) InvokeInterface(methodIndex uint16, argCount uint8, sig MethodSig) {
	b.Em.Invokeinterface(methodIndex, argCount)
	b.popArgsAndReceiver(sig, true)
	b.pushReturn(sig)
}

func (b *Builder) invokeCommon(opc byte, methodIndex uint16, sig MethodSig, hasReceiver bool) {
	b.Em.U2Op(opc, methodIndex)
	b.popArgsAndReceiver(sig, hasReceiver)
	b.pushReturn(sig)
}

func (b *Builder) popArgsAndReceiver(sig MethodSig, hasReceiver bool) {
	for range sig.Args {
		b.Pop() // Frame.Pop already consumes a wide type's Top follower
	}
	if hasReceiver {
		b.Pop()
	}
}

func (b *Builder) pushReturn(sig MethodSig) {
	if sig.Return.Tag != verify.Top {
		b.Push(sig.Return)
	}
}

// substituteUninitialized replaces every Uninitialized(newSitePC) in
// the current frame's stack and locals with replacement (spec.md §4.4,
// §8 "Uninitialized tracking").
func (b *Builder) substituteUninitialized(newSitePC uint16, replacement verify.Type) {
	for i, t := range b.frame.Stack {
		if t.Tag == verify.Uninitialized && t.NewSitePC == newSitePC {
			b.frame.Stack[i] = replacement
		}
	}
	for i, t := range b.frame.Locals {
		if t.Tag == verify.Uninitialized && t.NewSitePC == newSitePC {
			b.frame.Locals[i] = replacement
		}
	}
	// Any other in-flight label frame that already captured this
	// Uninitialized token (e.g. a branch taken between `new` and
	// `<init>`) is outside this method's reachable-at-one-point model;
	// the source dialect never branches inside that window.
}

// New emits the `new` instruction and pushes Uninitialized(pc of new)
// (spec.md §4.4).
func (b *Builder) New(classIndex uint16) {
	pc := b.CurrentPC()
	b.Em.U2Op(opcode.New, classIndex)
	b.Push(verify.TUninitialized(uint16(pc)))
}

// Dup emits `dup`, duplicating the top single-width stack entry.
func (b *Builder) Dup() {
	top := b.Pop()
	b.Push(top)
	b.Push(top)
	b.Em.Simple(opcode.Dup)
}

// CheckCast emits checkcast, popping and pushing Object(descriptor)
// derived from the target class name: array classes keep descriptor
// form, plain classes are wrapped as `L...;` (spec.md §4.4).
func (b *Builder) CheckCast(classIndex uint16, internalClassName string) {
	b.Em.U2Op(opcode.Checkcast, classIndex)
	b.Pop()
	b.Push(verify.TObject(FieldDescriptorForClass(internalClassName)))
}

// FieldDescriptorForClass wraps an internal class name into field
// descriptor form, leaving already-array descriptors (starting with
// '[') untouched.
func FieldDescriptorForClass(internalClassName string) string {
	if len(internalClassName) > 0 && internalClassName[0] == '[' {
		return internalClassName
	}
	return "L" + internalClassName + ";"
}
