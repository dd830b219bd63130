// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackmap turns the Code Builder's recorded branch-target
// frames into a minimally-encoded StackMapTable (spec.md §4.5): it
// sorts and deduplicates targets by PC, selects the most compact frame
// form, computes offset_delta arithmetic, and remaps Object
// verification types into the method's final constant pool.
package stackmap

import (
	"sort"

	"jvmgen/classfile"
	"jvmgen/verify"
)

// Target is one recorded branch-target frame, the input this package
// consumes from codebuilder.BranchTarget (kept as a separate type so
// stackmap has no import-cycle dependency on codebuilder).
type Target struct {
	PC    int
	Frame *verify.Frame
}

// Encode produces the sorted, deduplicated, minimally-encoded sequence
// of StackMapFrame records for targets, given the method's initial
// frame (derived from its signature) and the final code size. Frames
// whose PC is >= codeSize are dropped (spec.md §4.5).
func Encode(targets []Target, initial *verify.Frame, codeSize int, cp *classfile.Pool) []classfile.StackMapFrame {
	sorted := dedupeByPC(targets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PC < sorted[j].PC })

	var out []classfile.StackMapFrame
	prevLocals := initial.Locals
	prevPC := -1
	first := true

	for _, t := range sorted {
		if t.PC >= codeSize {
			continue
		}
		var offsetDelta int
		if first {
			offsetDelta = t.PC
		} else {
			offsetDelta = t.PC - prevPC - 1
		}

		frame := selectForm(offsetDelta, prevLocals, t.Frame.Locals, t.Frame.Stack, cp)
		out = append(out, frame)

		prevLocals = t.Frame.Locals
		prevPC = t.PC
		first = false
	}
	return out
}

// dedupeByPC merges frames recorded at the same PC (spec.md §4.5's
// "sort/dedup") via the verification-type lattice merge, matching the
// minimum-locals-count-across-in-edges rule of spec.md §4.4.
func dedupeByPC(targets []Target) []Target {
	byPC := make(map[int]*verify.Frame)
	var order []int
	for _, t := range targets {
		if existing, ok := byPC[t.PC]; ok {
			existing.Merge(t.Frame)
			continue
		}
		clone := t.Frame.Clone()
		byPC[t.PC] = clone
		order = append(order, t.PC)
	}
	out := make([]Target, len(order))
	for i, pc := range order {
		out[i] = Target{PC: pc, Frame: byPC[pc]}
	}
	return out
}

// entryCount counts verification_type_info entries under the
// wide-type-collapsing rule: a Long/Double counts as one entry despite
// occupying two slots.
func entryCount(vs []verify.Type) int {
	n, i := 0, 0
	for i < len(vs) {
		n++
		if verify.Slots(vs[i]) == 2 {
			i += 2
		} else {
			i++
		}
	}
	return n
}

// sameEntries reports whether a and b, read under entry-collapsing,
// are pairwise equal.
func sameEntries(a, b []verify.Type) bool {
	ea, eb := verify.Entries(a), verify.Entries(b)
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if !verify.Equal(ea[i], eb[i]) {
			return false
		}
	}
	return true
}

// prefixUnchanged reports whether the first n entries (under
// entry-collapsing) of a and b are identical — the condition chop_frame
// and append_frame both require on their shared prefix.
func prefixUnchanged(a, b []verify.Type, n int) bool {
	ea, eb := verify.Entries(a), verify.Entries(b)
	if n > len(ea) || n > len(eb) {
		return false
	}
	for i := 0; i < n; i++ {
		if !verify.Equal(ea[i], eb[i]) {
			return false
		}
	}
	return true
}

func selectForm(offsetDelta int, prevLocals, curLocals []verify.Type, stack []verify.Type, cp *classfile.Pool) classfile.StackMapFrame {
	localsEqual := sameEntries(prevLocals, curLocals)
	stackEntries := verify.Entries(stack)

	switch {
	case len(stackEntries) == 0 && localsEqual:
		return sameFrame(offsetDelta)
	case len(stackEntries) == 1 && localsEqual:
		return sameLocals1StackItem(offsetDelta, stackEntries[0], cp)
	case len(stackEntries) == 0 && len(curLocals) < len(prevLocals) && isChop(prevLocals, curLocals):
		return chopFrame(offsetDelta, entryCount(prevLocals)-entryCount(curLocals))
	case len(stackEntries) == 0 && len(curLocals) > len(prevLocals) && isAppend(prevLocals, curLocals):
		return appendFrame(offsetDelta, prevLocals, curLocals, cp)
	default:
		return fullFrame(offsetDelta, curLocals, stack, cp)
	}
}

func isChop(prevLocals, curLocals []verify.Type) bool {
	n := entryCount(prevLocals) - entryCount(curLocals)
	if n < 1 || n > 3 {
		return false
	}
	return prefixUnchanged(prevLocals, curLocals, entryCount(curLocals))
}

func isAppend(prevLocals, curLocals []verify.Type) bool {
	n := entryCount(curLocals) - entryCount(prevLocals)
	if n < 1 || n > 3 {
		return false
	}
	return prefixUnchanged(curLocals, prevLocals, entryCount(prevLocals))
}

func sameFrame(offsetDelta int) classfile.StackMapFrame {
	if offsetDelta <= 63 {
		return classfile.StackMapFrame{FrameType: uint8(offsetDelta)}
	}
	return classfile.StackMapFrame{FrameType: 251, OffsetDelta: uint16(offsetDelta)}
}

func sameLocals1StackItem(offsetDelta int, item verify.Type, cp *classfile.Pool) classfile.StackMapFrame {
	vt := toVerifType(item, cp)
	if offsetDelta <= 63 {
		return classfile.StackMapFrame{FrameType: uint8(64 + offsetDelta), Stack: []classfile.VerifType{vt}}
	}
	return classfile.StackMapFrame{FrameType: 247, OffsetDelta: uint16(offsetDelta), Stack: []classfile.VerifType{vt}}
}

func chopFrame(offsetDelta, k int) classfile.StackMapFrame {
	return classfile.StackMapFrame{FrameType: uint8(251 - k), OffsetDelta: uint16(offsetDelta)}
}

func appendFrame(offsetDelta int, prevLocals, curLocals []verify.Type, cp *classfile.Pool) classfile.StackMapFrame {
	prevEntries := entryCount(prevLocals)
	allEntries := verify.Entries(curLocals)
	newOnes := allEntries[prevEntries:]
	locals := make([]classfile.VerifType, len(newOnes))
	for i, t := range newOnes {
		locals[i] = toVerifType(t, cp)
	}
	return classfile.StackMapFrame{FrameType: uint8(251 + len(newOnes)), OffsetDelta: uint16(offsetDelta), Locals: locals}
}

func fullFrame(offsetDelta int, curLocals []verify.Type, stack []verify.Type, cp *classfile.Pool) classfile.StackMapFrame {
	localEntries := verify.Entries(curLocals)
	locals := make([]classfile.VerifType, len(localEntries))
	for i, t := range localEntries {
		locals[i] = toVerifType(t, cp)
	}
	stackEntries := verify.Entries(stack)
	st := make([]classfile.VerifType, len(stackEntries))
	for i, t := range stackEntries {
		st[i] = toVerifType(t, cp)
	}
	return classfile.StackMapFrame{FrameType: 255, OffsetDelta: uint16(offsetDelta), Locals: locals, Stack: st}
}

// toVerifType remaps a verify.Type into the serialised
// verification_type_info form, interning an Object's class name into
// the method's constant pool (spec.md §4.5 step 5).
func toVerifType(t verify.Type, cp *classfile.Pool) classfile.VerifType {
	switch t.Tag {
	case verify.Top:
		return classfile.VerifType{Tag: classfile.ItemTop}
	case verify.Integer:
		return classfile.VerifType{Tag: classfile.ItemInteger}
	case verify.Float:
		return classfile.VerifType{Tag: classfile.ItemFloat}
	case verify.Long:
		return classfile.VerifType{Tag: classfile.ItemLong}
	case verify.Double:
		return classfile.VerifType{Tag: classfile.ItemDouble}
	case verify.Null:
		return classfile.VerifType{Tag: classfile.ItemNull}
	case verify.UninitializedThis:
		return classfile.VerifType{Tag: classfile.ItemUninitializedThis}
	case verify.Uninitialized:
		return classfile.VerifType{Tag: classfile.ItemUninitialized, Offset: t.NewSitePC}
	case verify.Object:
		return classfile.VerifType{Tag: classfile.ItemObject, CPIndex: cp.AddClass(internalClassName(t.Descriptor))}
	default:
		return classfile.VerifType{Tag: classfile.ItemTop}
	}
}

// internalClassName converts a field descriptor to the name a Class
// constant pool entry expects: array descriptors are used verbatim
// (the JVM names array classes by their full descriptor), plain object
// descriptors have their leading 'L' and trailing ';' stripped.
func internalClassName(descriptor string) string {
	if len(descriptor) > 0 && descriptor[0] == '[' {
		return descriptor
	}
	if len(descriptor) >= 2 && descriptor[0] == 'L' && descriptor[len(descriptor)-1] == ';' {
		return descriptor[1 : len(descriptor)-1]
	}
	return descriptor
}
