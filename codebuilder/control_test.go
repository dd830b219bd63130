// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/classfile"
	"jvmgen/codebuilder"
	"jvmgen/opcode"
	"jvmgen/verify"
)

// TestSwitchStrategyCornerCases reproduces spec.md §4.4/§8's "for 0,
// 1, or 2 cases, emit an if/sub chain instead".
func TestSwitchStrategyCornerCases(t *testing.T) {
	assert.Equal(t, codebuilder.StrategyIfChain, codebuilder.ChooseSwitchStrategy(nil))
}

// TestDenseSwitchChoosesTableSwitch reproduces spec.md §8 scenario 4:
// case 1,2,3,default -> tableswitch with low=1, high=3.
func TestDenseSwitchChoosesTableSwitch(t *testing.T) {
	cp := classfile.NewPool()
	b := codebuilder.New(cp, true, false, "M", nil)

	x := b.AllocateLocal(verify.TInteger())
	b.BeginSwitch(x)

	for _, v := range []int32{1, 2, 3} {
		b.Case(v)
		b.Em.Simple(opcode.Nop)
		b.Break()
	}
	b.Default()
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.EndSwitch()

	require.NoError(t, b.ResolvePendingJumps())
	assert.True(t, bytes.Contains(b.Buf.Bytes(), []byte{opcode.Tableswitch}))
}

// TestSparseSwitchChoosesLookupSwitch reproduces spec.md §8 scenario
// 5: case 1, 100, 10000, default -> lookupswitch, npairs=3.
func TestSparseSwitchChoosesLookupSwitch(t *testing.T) {
	cp := classfile.NewPool()
	b := codebuilder.New(cp, true, false, "M", nil)

	x := b.AllocateLocal(verify.TInteger())
	b.BeginSwitch(x)

	for _, v := range []int32{1, 100, 10000} {
		b.Case(v)
		b.Em.Simple(opcode.Nop)
		b.Break()
	}
	b.Default()
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.EndSwitch()

	require.NoError(t, b.ResolvePendingJumps())
	assert.True(t, bytes.Contains(b.Buf.Bytes(), []byte{opcode.Lookupswitch}))
}

// TestBeginSwitchEmitsDispatchGoto confirms BeginSwitch no longer
// falls straight into the first case: a `goto` (opcode.Goto) must
// appear immediately after the switch expression is loaded, before
// any case body bytes.
func TestBeginSwitchEmitsDispatchGoto(t *testing.T) {
	cp := classfile.NewPool()
	b := codebuilder.New(cp, true, false, "M", nil)

	x := b.AllocateLocal(verify.TInteger())
	pcBefore := b.CurrentPC()
	b.BeginSwitch(x)
	pcAfter := b.CurrentPC()

	code := b.Buf.Bytes()
	require.Greater(t, pcAfter, pcBefore)
	assert.Equal(t, byte(opcode.Goto), code[pcBefore], "BeginSwitch must jump straight to the dispatch label")

	b.Case(1)
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.Default()
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.EndSwitch()
	require.NoError(t, b.ResolvePendingJumps())
}

// TestIfChainModelsStackDepth confirms emitIfChain's per-case
// iload/iconst pair is reflected in MaxStack even when nothing else in
// the method ever reaches depth 2.
func TestIfChainModelsStackDepth(t *testing.T) {
	cp := classfile.NewPool()
	b := codebuilder.New(cp, true, false, "M", nil)

	x := b.AllocateLocal(verify.TInteger())
	b.BeginSwitch(x)
	b.Case(1)
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.Default()
	b.Em.Simple(opcode.Nop)
	b.Break()
	b.EndSwitch()

	require.NoError(t, b.ResolvePendingJumps())
	assert.True(t, bytes.Contains(b.Buf.Bytes(), []byte{opcode.IfIcmpeq}), "a single case must dispatch via the if-chain, not table/lookup")
	assert.GreaterOrEqual(t, b.MaxStack(), 2)
}
