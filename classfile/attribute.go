// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

// ExceptionEntry describes one entry of a Code attribute's exception
// table.
type ExceptionEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means catch-all (finally)
}

// LineEntry is one (start_pc, line_number) pair of a LineNumberTable.
type LineEntry struct {
	StartPC uint16
	Line    uint16
}

// StackMapFrame is a single serialised entry of a StackMapTable
// attribute. Forms and byte layouts follow spec.md §6.1 exactly;
// Locals/Stack are already the final remapped verification_type_info
// descriptors (tag plus, for Object, a constant-pool class index).
type StackMapFrame struct {
	FrameType uint8 // 0-255, selects the serialised form

	OffsetDelta uint16 // used by same_locals_1_stack_item_extended, same_frame_extended, chop, append, full

	// Stack holds the (at most one, for same_locals_1_stack_item*)
	// verification types pushed on the operand stack at this frame.
	Stack []VerifType
	// Locals holds the locals for append_frame (the K new ones only)
	// and full_frame (the complete vector).
	Locals []VerifType
}

// VerifType is the serialised verification_type_info: a tag plus an
// optional payload (a constant-pool class index for Object, or a code
// offset for Uninitialized).
type VerifType struct {
	Tag     uint8
	CPIndex uint16 // Object
	Offset  uint16 // Uninitialized
}

// Verification type tags, per the JVM StackMapTable spec.
const (
	ItemTop               = 0
	ItemInteger           = 1
	ItemFloat             = 2
	ItemDouble            = 3
	ItemLong              = 4
	ItemNull              = 5
	ItemUninitializedThis = 6
	ItemObject            = 7
	ItemUninitialized     = 8
)

// CodeAttribute is the fully resolved payload of a method's "Code"
// attribute, ready for serialisation (spec.md §6.1).
type CodeAttribute struct {
	MaxStack  uint16
	MaxLocals uint16
	Code      []byte

	Exceptions []ExceptionEntry

	StackMap []StackMapFrame // may be empty: omit the attribute then
	Lines    []LineEntry     // may be empty: omit the attribute then
}

func encodeStackMapTable(frames []StackMapFrame, cp *Pool) []byte {
	nameIdx := cp.AddUtf8("StackMapTable")
	buf := newBufSink()
	buf.u2(uint16(len(frames)))
	for _, f := range frames {
		writeStackMapFrame(buf, f)
	}
	payload := buf.bytes_()

	out := newBufSink()
	out.u2(nameIdx)
	out.u4(uint32(len(payload)))
	out.bytes(payload)
	return out.bytes_()
}

func writeStackMapFrame(buf *bufSink, f StackMapFrame) {
	buf.u1(f.FrameType)
	switch {
	case f.FrameType <= 63: // same_frame
	case f.FrameType <= 127: // same_locals_1_stack_item_frame
		writeVerifType(buf, f.Stack[0])
	case f.FrameType == 247: // same_locals_1_stack_item_frame_extended
		buf.u2(f.OffsetDelta)
		writeVerifType(buf, f.Stack[0])
	case f.FrameType >= 248 && f.FrameType <= 250: // chop_frame
		buf.u2(f.OffsetDelta)
	case f.FrameType == 251: // same_frame_extended
		buf.u2(f.OffsetDelta)
	case f.FrameType >= 252 && f.FrameType <= 254: // append_frame
		buf.u2(f.OffsetDelta)
		for _, l := range f.Locals {
			writeVerifType(buf, l)
		}
	default: // full_frame (255)
		buf.u2(f.OffsetDelta)
		buf.u2(uint16(len(f.Locals)))
		for _, l := range f.Locals {
			writeVerifType(buf, l)
		}
		buf.u2(uint16(len(f.Stack)))
		for _, st := range f.Stack {
			writeVerifType(buf, st)
		}
	}
}

func writeVerifType(buf *bufSink, t VerifType) {
	buf.u1(t.Tag)
	switch t.Tag {
	case ItemObject:
		buf.u2(t.CPIndex)
	case ItemUninitialized:
		buf.u2(t.Offset)
	}
}

func encodeLineNumberTable(lines []LineEntry, cp *Pool) []byte {
	nameIdx := cp.AddUtf8("LineNumberTable")
	buf := newBufSink()
	buf.u2(uint16(len(lines)))
	for _, l := range lines {
		buf.u2(l.StartPC)
		buf.u2(l.Line)
	}
	payload := buf.bytes_()

	out := newBufSink()
	out.u2(nameIdx)
	out.u4(uint32(len(payload)))
	out.bytes(payload)
	return out.bytes_()
}

func encodeSourceFile(name string, cp *Pool) []byte {
	nameIdx := cp.AddUtf8("SourceFile")
	sfIdx := cp.AddUtf8(name)
	out := newBufSink()
	out.u2(nameIdx)
	out.u4(2)
	out.u2(sfIdx)
	return out.bytes_()
}
