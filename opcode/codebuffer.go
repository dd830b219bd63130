// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opcode implements the growable method code buffer and the
// per-instruction emit functions of a JVM bytecode emitter (spec.md
// §4.1, §4.2): compact/wide local-index selection, compact/wide
// constant loading, branch-offset handling including goto_w
// auto-promotion, and padded tableswitch/lookupswitch instructions.
package opcode

// LineEntry is one (start_pc, line_number) pair of a method's
// LineNumberTable.
type LineEntry struct {
	StartPC uint16
	Line    uint16
}

// Buffer is a byte-addressable, doubling-growth method code store with
// an auxiliary monotonically-increasing LineNumberTable (spec.md §4.2).
type Buffer struct {
	code  []byte
	lines []LineEntry
}

// NewBuffer returns an empty Buffer with the default initial capacity.
func NewBuffer() *Buffer {
	return &Buffer{code: make([]byte, 0, 64)}
}

// PC returns the current emit offset, i.e. the method code buffer
// size so far.
func (b *Buffer) PC() int { return len(b.code) }

// Bytes returns the accumulated code bytes.
func (b *Buffer) Bytes() []byte { return b.code }

// Lines returns the accumulated LineNumberTable entries.
func (b *Buffer) Lines() []LineEntry { return b.lines }

func (b *Buffer) U1(v uint8) { b.code = append(b.code, v) }

func (b *Buffer) U2(v uint16) {
	b.code = append(b.code, byte(v>>8), byte(v))
}

func (b *Buffer) U4(v uint32) {
	b.code = append(b.code, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteU2At overwrites the two bytes at an already-written absolute
// offset; callers guarantee offset+1 is inside the written range
// (spec.md §4.2's write_u2_at).
func (b *Buffer) WriteU2At(offset int, v uint16) {
	b.code[offset] = byte(v >> 8)
	b.code[offset+1] = byte(v)
}

// WriteU4At overwrites four bytes at an already-written absolute
// offset, used to patch goto_w's 32-bit operand.
func (b *Buffer) WriteU4At(offset int, v uint32) {
	b.code[offset] = byte(v >> 24)
	b.code[offset+1] = byte(v >> 16)
	b.code[offset+2] = byte(v >> 8)
	b.code[offset+3] = byte(v)
}

// Pad appends n zero bytes, used for switch-instruction alignment.
func (b *Buffer) Pad(n int) {
	for i := 0; i < n; i++ {
		b.code = append(b.code, 0)
	}
}

// AddLine appends (PC, line) to the LineNumberTable, suppressing the
// entry when it duplicates the previous PC or the previous line, and
// rejecting non-positive lines (spec.md §4.2).
func (b *Buffer) AddLine(line int) {
	if line <= 0 {
		return
	}
	pc := uint16(b.PC())
	if n := len(b.lines); n > 0 {
		prev := b.lines[n-1]
		if prev.StartPC == pc || int(prev.Line) == line {
			return
		}
	}
	b.lines = append(b.lines, LineEntry{StartPC: pc, Line: uint16(line)})
}
