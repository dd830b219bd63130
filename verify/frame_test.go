// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/verify"
)

func TestFramePushPopWideType(t *testing.T) {
	f := verify.NewFrame(0)
	f.Push(verify.TLong())
	require.Len(t, f.Stack, 2, "Long occupies two stack slots")
	assert.Equal(t, verify.Top, f.Stack[1].Tag)

	v, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, verify.Long, v.Tag)
	assert.Empty(t, f.Stack)
}

func TestFramePopUnderflowReturnsTop(t *testing.T) {
	f := verify.NewFrame(0)
	v, ok := f.Pop()
	assert.False(t, ok)
	assert.Equal(t, verify.Top, v.Tag)
}

func TestFrameMaxStackTracks(t *testing.T) {
	f := verify.NewFrame(0)
	f.Push(verify.TInteger())
	f.Push(verify.TInteger())
	assert.Equal(t, 2, f.MaxStack)
	f.Pop()
	assert.Equal(t, 2, f.MaxStack, "max-stack never decreases on pop")
}

func TestFrameSetLocalWideFollower(t *testing.T) {
	f := verify.NewFrame(2)
	f.SetLocal(0, verify.TDouble())
	assert.Equal(t, verify.Double, f.Locals[0].Tag)
	assert.Equal(t, verify.Top, f.Locals[1].Tag)
}

func TestFrameClone(t *testing.T) {
	f := verify.NewFrame(1)
	f.Push(verify.TInteger())
	clone := f.Clone()
	clone.Push(verify.TInteger())
	assert.Len(t, f.Stack, 1, "original frame must not observe the clone's mutation")
	assert.Len(t, clone.Stack, 2)
}

func TestFrameMergeIdempotent(t *testing.T) {
	f := verify.NewFrame(1)
	f.SetLocal(0, verify.TInteger())
	f.Push(verify.TInteger())

	other := f.Clone()
	f.Merge(other)

	assert.Equal(t, verify.Integer, f.Locals[0].Tag)
	assert.Len(t, f.Stack, 1)
	assert.Equal(t, verify.Integer, f.Stack[0].Tag)
}

func TestFrameMergeTrimsTrailingTop(t *testing.T) {
	f := verify.NewFrame(3)
	f.SetLocal(0, verify.TInteger())
	other := verify.NewFrame(3)
	other.SetLocal(0, verify.TInteger())

	f.Merge(other)
	assert.Len(t, f.Locals, 1, "trailing Top locals are trimmed after merge")
}

func TestFrameMergeReducesStackDepthOnMismatch(t *testing.T) {
	f := verify.NewFrame(0)
	f.Push(verify.TInteger())
	f.Push(verify.TInteger())

	other := verify.NewFrame(0)
	other.Push(verify.TInteger())

	f.Merge(other)
	assert.Len(t, f.Stack, 1, "merge reduces to the smaller stack depth")
}

func TestEntriesCollapsesWideFollower(t *testing.T) {
	vs := []verify.Type{verify.TLong(), verify.TTop(), verify.TInteger()}
	entries := verify.Entries(vs)
	require.Len(t, entries, 2)
	assert.Equal(t, verify.Long, entries[0].Tag)
	assert.Equal(t, verify.Integer, entries[1].Tag)
}

func TestRestoreSafeKeepsMaxStack(t *testing.T) {
	f := verify.NewFrame(0)
	f.Push(verify.TInteger())
	f.Push(verify.TInteger())
	highWater := f.MaxStack

	saved := verify.NewFrame(0)
	saved.Push(verify.TInteger())

	f.RestoreSafe(saved)
	assert.Len(t, f.Stack, 1)
	assert.GreaterOrEqual(t, f.MaxStack, highWater)
}
