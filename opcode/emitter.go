// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opcode

import "fmt"

// FatalError is a structural emission error (spec.md §7's "Fatal
// structural" kind): an out-of-range literal, an unresolved branch
// offset, or a malformed switch case list. Callers panic with it;
// exactly like exec.ErrOutOfBoundsMemoryAccess's sentinel-panic idiom,
// there is no recovery path inside the emitter itself.
type FatalError struct {
	Op  string
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("opcode: %s: %s", e.Op, e.Msg)
}

func fatalf(op, format string, args ...interface{}) *FatalError {
	return &FatalError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Emitter writes individual bytecode instructions to a Buffer. Its
// correctness obligation is encoding only: form selection, padding
// and offset arithmetic; type/stack-effect bookkeeping belongs to the
// layer above (spec.md §4.1).
type Emitter struct {
	Buf *Buffer
}

func NewEmitter(buf *Buffer) *Emitter { return &Emitter{Buf: buf} }

// --- local-indexed ops -----------------------------------------------

// LoadLocal emits the iload/lload/fload/dload/aload family, compact
// form for indices that fit u8 and the wide-prefixed form otherwise.
// base must be one of Iload, Lload, Fload, Dload, Aload.
func (e *Emitter) LoadLocal(base byte, index int) {
	e.localOp(base, index)
}

// StoreLocal emits the istore/lstore/fstore/dstore/astore family.
func (e *Emitter) StoreLocal(base byte, index int) {
	e.localOp(base, index)
}

func (e *Emitter) localOp(base byte, index int) {
	if index < 0 {
		panic(fatalf(Name(base), "negative local index %d", index))
	}
	if index <= 0xFF {
		e.Buf.U1(base)
		e.Buf.U1(uint8(index))
		return
	}
	if index > 0xFFFF {
		panic(fatalf(Name(base), "local index %d exceeds u16", index))
	}
	e.Buf.U1(Wide)
	e.Buf.U1(base)
	e.Buf.U2(uint16(index))
}

// --- small-constant ops ------------------------------------------------

// Iconst emits the shortest encoding of an int32 literal: the dedicated
// iconst_m1..iconst_5 forms, bipush, sipush, or ldc/ldc_w of an
// Integer constant-pool entry (spec.md §4.1).
func (e *Emitter) Iconst(v int32, ldcIndex func() uint16) {
	switch {
	case v >= -1 && v <= 5:
		e.Buf.U1(byte(IconstM1 + (v + 1)))
	case v >= -128 && v <= 127:
		e.Buf.U1(Bipush)
		e.Buf.U1(uint8(int8(v)))
	case v >= -32768 && v <= 32767:
		e.Buf.U1(Sipush)
		e.Buf.U2(uint16(int16(v)))
	default:
		e.ldcFor(ldcIndex())
	}
}

// Lconst emits lconst_0/lconst_1 or falls back to ldc2_w of a Long
// constant-pool entry.
func (e *Emitter) Lconst(v int64, poolIndex func() uint16) {
	switch v {
	case 0:
		e.Buf.U1(Lconst0)
	case 1:
		e.Buf.U1(Lconst1)
	default:
		e.Buf.U1(Ldc2W)
		e.Buf.U2(poolIndex())
	}
}

// Fconst emits fconst_0/1/2 or falls back to ldc/ldc_w of a Float entry.
func (e *Emitter) Fconst(v float32, ldcIndex func() uint16) {
	switch v {
	case 0:
		e.Buf.U1(Fconst0)
	case 1:
		e.Buf.U1(Fconst1)
	case 2:
		e.Buf.U1(Fconst2)
	default:
		e.ldcFor(ldcIndex())
	}
}

// Dconst emits dconst_0/1 or falls back to ldc2_w of a Double entry.
func (e *Emitter) Dconst(v float64, poolIndex func() uint16) {
	switch v {
	case 0:
		e.Buf.U1(Dconst0)
	case 1:
		e.Buf.U1(Dconst1)
	default:
		e.Buf.U1(Ldc2W)
		e.Buf.U2(poolIndex())
	}
}

// Ldc emits ldc for a pool index that fits u8, or ldc_w otherwise.
func (e *Emitter) Ldc(poolIndex uint16) { e.ldcFor(poolIndex) }

func (e *Emitter) ldcFor(poolIndex uint16) {
	if poolIndex <= 0xFF {
		e.Buf.U1(Ldc)
		e.Buf.U1(uint8(poolIndex))
		return
	}
	e.Buf.U1(LdcW)
	e.Buf.U2(poolIndex)
}

// Ldc2W emits ldc2_w directly, for Long/Double constants that did not
// match a dedicated short form.
func (e *Emitter) Ldc2W(poolIndex uint16) {
	e.Buf.U1(Ldc2W)
	e.Buf.U2(poolIndex)
}

// --- branches ------------------------------------------------------

// CondBranch emits a conditional branch opcode (if*, if_icmp*,
// if_acmp*, ifnull, ifnonnull) with a zero placeholder 16-bit offset,
// returning the PC of the opcode byte so the caller can register a
// pending jump for later patching.
func (e *Emitter) CondBranch(opc byte) int {
	pc := e.Buf.PC()
	e.Buf.U1(opc)
	e.Buf.U2(0)
	return pc
}

// PatchBranch writes the final signed offset into a previously emitted
// 2-byte branch operand at jumpPC+1. |offset| must fit in a signed
// 16-bit value; an offset outside that range is returned as an error
// and the branch is left unpatched.
func (e *Emitter) PatchBranch(jumpPC int, offset int32) error {
	if offset < -32768 || offset > 32767 {
		return fatalf("branch", "offset %d at pc %d out of signed 16-bit range", offset, jumpPC)
	}
	e.Buf.WriteU2At(jumpPC+1, uint16(int16(offset)))
	return nil
}

// Goto emits an unconditional branch, auto-promoting to goto_w when
// targetPC is already known and the offset does not fit a signed
// 16-bit value (spec.md §4.1). When targetPC < 0 the target is not yet
// known (forward reference): the compact goto form is emitted with a
// zero placeholder. A forward goto is never promoted to goto_w
// afterwards; if its final offset does not fit, patching it returns
// an error.
func (e *Emitter) Goto(currentPC, targetPC int) (pc int, wide bool) {
	pc = e.Buf.PC()
	if targetPC >= 0 {
		offset := int32(targetPC - currentPC)
		if offset < -32768 || offset > 32767 {
			e.Buf.U1(GotoW)
			e.Buf.U4(uint32(offset))
			return pc, true
		}
	}
	e.Buf.U1(Goto)
	e.Buf.U2(0)
	return pc, false
}

// PatchGoto patches a compact goto's offset, or returns an error if it
// does not fit in a signed 16-bit value; it is PatchBranch under a
// goto-specific name and does not rewrite the instruction to goto_w.
func (e *Emitter) PatchGoto(jumpPC int, offset int32) error {
	return e.PatchBranch(jumpPC, offset)
}

// --- switches --------------------------------------------------------

// TableSwitch emits a tableswitch instruction. offsets holds one
// signed 32-bit offset per key in [low, high], relative to opcodePC;
// defaultOffset is likewise relative to opcodePC.
func (e *Emitter) TableSwitch(low, high int32, defaultOffset int32, offsets []int32) {
	if len(offsets) != int(high-low+1) {
		panic(fatalf("tableswitch", "offsets length %d does not match high-low+1=%d", len(offsets), high-low+1))
	}
	opcodePC := e.Buf.PC()
	e.Buf.U1(Tableswitch)
	e.pad(opcodePC)
	e.Buf.U4(uint32(defaultOffset))
	e.Buf.U4(uint32(low))
	e.Buf.U4(uint32(high))
	for _, off := range offsets {
		e.Buf.U4(uint32(off))
	}
}

// LookupSwitch emits a lookupswitch instruction. keys must already be
// sorted ascending; offsets[i] corresponds to keys[i], both relative
// to opcodePC.
func (e *Emitter) LookupSwitch(defaultOffset int32, keys []int32, offsets []int32) {
	if len(keys) != len(offsets) {
		panic(fatalf("lookupswitch", "keys/offsets length mismatch"))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			panic(fatalf("lookupswitch", "keys not strictly ascending at index %d", i))
		}
	}
	opcodePC := e.Buf.PC()
	e.Buf.U1(Lookupswitch)
	e.pad(opcodePC)
	e.Buf.U4(uint32(defaultOffset))
	e.Buf.U4(uint32(len(keys)))
	for i, k := range keys {
		e.Buf.U4(uint32(k))
		e.Buf.U4(uint32(offsets[i]))
	}
}

// pad appends the zero bytes required so the first data word of a
// switch instruction begins at a 4-byte boundary relative to the start
// of method code (spec.md §6's "Switch padding" invariant): exactly
// (3 - opcodePC mod 4) bytes follow the opcode.
func (e *Emitter) pad(opcodePC int) {
	n := 3 - (opcodePC % 4)
	e.Buf.Pad(n)
}

// --- iinc ------------------------------------------------------------

// Iinc emits the compact (u8, s8) form, or the wide (u16, s16) form
// when the index or the increment doesn't fit the compact range.
func (e *Emitter) Iinc(index int, delta int) {
	if index >= 0 && index <= 0xFF && delta >= -128 && delta <= 127 {
		e.Buf.U1(Iinc)
		e.Buf.U1(uint8(index))
		e.Buf.U1(uint8(int8(delta)))
		return
	}
	if index < 0 || index > 0xFFFF {
		panic(fatalf("iinc", "local index %d exceeds u16", index))
	}
	if delta < -32768 || delta > 32767 {
		panic(fatalf("iinc", "delta %d exceeds s16", delta))
	}
	e.Buf.U1(Wide)
	e.Buf.U1(Iinc)
	e.Buf.U2(uint16(index))
	e.Buf.U2(uint16(int16(delta)))
}

// --- simple one-byte / fixed-operand ops -------------------------------

func (e *Emitter) Simple(opc byte) { e.Buf.U1(opc) }

func (e *Emitter) U1Op(opc byte, operand uint8) {
	e.Buf.U1(opc)
	e.Buf.U1(operand)
}

func (e *Emitter) U2Op(opc byte, operand uint16) {
	e.Buf.U1(opc)
	e.Buf.U2(operand)
}

// Invokeinterface carries an extra count byte plus a mandatory zero.
func (e *Emitter) Invokeinterface(methodIndex uint16, argCount uint8) {
	e.Buf.U1(Invokeinterface)
	e.Buf.U2(methodIndex)
	e.Buf.U1(argCount)
	e.Buf.U1(0)
}

// Multianewarray carries a class index and a dimension count.
func (e *Emitter) Multianewarray(classIndex uint16, dimensions uint8) {
	e.Buf.U1(Multianewarray)
	e.Buf.U2(classIndex)
	e.Buf.U1(dimensions)
}

// --- enumerated selectors ---------------------------------------------

// IfCond enumerates the `if*` single-operand comparisons against zero.
type IfCond int

const (
	IfEq IfCond = iota
	IfNe
	IfLt
	IfGe
	IfGt
	IfLe
)

// Opcode returns the concrete `if*` opcode for c.
func (c IfCond) Opcode() byte {
	return [...]byte{Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle}[c]
}

// IntCmpCond enumerates the `if_icmp*` two-operand int comparisons.
type IntCmpCond int

const (
	ICmpEq IntCmpCond = iota
	ICmpNe
	ICmpLt
	ICmpGe
	ICmpGt
	ICmpLe
)

func (c IntCmpCond) Opcode() byte {
	return [...]byte{IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple}[c]
}

// ACmpCond enumerates the `if_acmp*` reference comparisons.
type ACmpCond int

const (
	ACmpEq ACmpCond = iota
	ACmpNe
)

func (c ACmpCond) Opcode() byte {
	return [...]byte{IfAcmpeq, IfAcmpne}[c]
}

// NanBias selects which *cmp opcode of a float/double comparison pair
// treats NaN as greater (`g` forms) or less (`l` forms) than any
// value, matching javac's CMP_NAN_L/CMP_NAN_G selectors.
type NanBias int

const (
	NanLess NanBias = iota
	NanGreater
)

func (e *Emitter) Fcmp(bias NanBias) {
	if bias == NanLess {
		e.Buf.U1(Fcmpl)
	} else {
		e.Buf.U1(Fcmpg)
	}
}

func (e *Emitter) Dcmp(bias NanBias) {
	if bias == NanLess {
		e.Buf.U1(Dcmpl)
	} else {
		e.Buf.U1(Dcmpg)
	}
}
