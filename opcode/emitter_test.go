// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/opcode"
)

func TestLoadLocalCompactAndWide(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)

	e.LoadLocal(opcode.Iload, 3)
	assert.Equal(t, []byte{opcode.Iload, 3}, buf.Bytes())

	buf2 := opcode.NewBuffer()
	e2 := opcode.NewEmitter(buf2)
	e2.LoadLocal(opcode.Iload, 300)
	assert.Equal(t, []byte{opcode.Wide, opcode.Iload, 1, 44}, buf2.Bytes())
}

func TestIconstRangeSelection(t *testing.T) {
	ldc := func() uint16 { return 7 }

	tests := []struct {
		v    int32
		want []byte
	}{
		{-1, []byte{opcode.IconstM1}},
		{0, []byte{opcode.Iconst0}},
		{5, []byte{opcode.Iconst5}},
		{100, []byte{opcode.Bipush, 100}},
		{-100, []byte{opcode.Bipush, byte(int8(-100))}},
		{1000, []byte{opcode.Sipush, 0x03, 0xE8}},
		{100000, []byte{opcode.Ldc, 7}},
	}
	for _, tt := range tests {
		buf := opcode.NewBuffer()
		e := opcode.NewEmitter(buf)
		e.Iconst(tt.v, ldc)
		assert.Equal(t, tt.want, buf.Bytes(), "Iconst(%d)", tt.v)
	}
}

func TestLdcPromotesToLdcWPastU8(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)
	e.Ldc(300)
	assert.Equal(t, []byte{opcode.LdcW, 1, 44}, buf.Bytes())

	buf2 := opcode.NewBuffer()
	e2 := opcode.NewEmitter(buf2)
	e2.Ldc(200)
	assert.Equal(t, []byte{opcode.Ldc, 200}, buf2.Bytes())
}

func TestGotoAutoPromotesToGotoW(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)

	pc, wide := e.Goto(0, 40000)
	assert.Equal(t, 0, pc)
	assert.True(t, wide)
	assert.Equal(t, byte(opcode.GotoW), buf.Bytes()[0])

	buf2 := opcode.NewBuffer()
	e2 := opcode.NewEmitter(buf2)
	_, wide2 := e2.Goto(0, 100)
	assert.False(t, wide2)
	assert.Equal(t, byte(opcode.Goto), buf2.Bytes()[0])
}

func TestPatchBranchRejectsOutOfRange(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)
	pc := e.CondBranch(opcode.Ifeq)
	err := e.PatchBranch(pc, 40000)
	require.Error(t, err)

	err = e.PatchBranch(pc, 100)
	require.NoError(t, err)
}

func TestSwitchPadding(t *testing.T) {
	for opcodePC := 0; opcodePC < 8; opcodePC++ {
		buf := opcode.NewBuffer()
		buf.Pad(opcodePC) // push the opcode to a known PC
		e := opcode.NewEmitter(buf)
		e.TableSwitch(1, 3, 0, []int32{10, 20, 30})

		wantPad := 3 - (opcodePC % 4)
		// bytes: [...pad...][opcode 1][padN zeros][default u4][low u4][high u4][3 offsets u4]
		code := buf.Bytes()[opcodePC:]
		assert.Equal(t, byte(opcode.Tableswitch), code[0])
		for i := 0; i < wantPad; i++ {
			assert.Equal(t, byte(0), code[1+i], "padding byte %d at opcodePC=%d", i, opcodePC)
		}
		// first data word must start at a 4-byte boundary
		assert.Equal(t, 0, (opcodePC+1+wantPad)%4)
	}
}

func TestLookupSwitchRequiresAscendingKeys(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)
	assert.Panics(t, func() {
		e.LookupSwitch(0, []int32{5, 3}, []int32{0, 0})
	})
}

func TestLookupSwitchEncodesNpairs(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)
	e.LookupSwitch(99, []int32{1, 100, 10000}, []int32{10, 20, 30})

	code := buf.Bytes()
	assert.Equal(t, byte(opcode.Lookupswitch), code[0])
	// skip padding (opcodePC=0 -> 3 pad bytes), default(4), npairs(4)
	npairsOffset := 1 + 3 + 4
	npairs := uint32(code[npairsOffset])<<24 | uint32(code[npairsOffset+1])<<16 | uint32(code[npairsOffset+2])<<8 | uint32(code[npairsOffset+3])
	assert.Equal(t, uint32(3), npairs)
}

func TestIincCompactAndWide(t *testing.T) {
	buf := opcode.NewBuffer()
	e := opcode.NewEmitter(buf)
	e.Iinc(1, -1)
	assert.Equal(t, []byte{opcode.Iinc, 1, byte(int8(-1))}, buf.Bytes())

	buf2 := opcode.NewBuffer()
	e2 := opcode.NewEmitter(buf2)
	e2.Iinc(300, 1000)
	assert.Equal(t, byte(opcode.Wide), buf2.Bytes()[0])
	assert.Equal(t, byte(opcode.Iinc), buf2.Bytes()[1])
}

func TestCondSelectorsMapToConcreteOpcodes(t *testing.T) {
	assert.Equal(t, byte(opcode.Ifne), opcode.IfNe.Opcode())
	assert.Equal(t, byte(opcode.IfIcmplt), opcode.ICmpLt.Opcode())
	assert.Equal(t, byte(opcode.IfAcmpeq), opcode.ACmpEq.Opcode())
}

func TestLineNumberTableDedup(t *testing.T) {
	buf := opcode.NewBuffer()
	buf.AddLine(1)
	buf.AddLine(1) // same line, suppressed
	buf.U1(opcode.Nop)
	buf.AddLine(1) // new PC but same line as last entry, suppressed
	buf.U1(opcode.Nop)
	buf.AddLine(2)

	assert.Len(t, buf.Lines(), 2)
}

func TestBufferPCMonotonic(t *testing.T) {
	buf := opcode.NewBuffer()
	last := buf.PC()
	for i := 0; i < 10; i++ {
		buf.U1(opcode.Nop)
		require.GreaterOrEqual(t, buf.PC(), last)
		last = buf.PC()
	}
}
