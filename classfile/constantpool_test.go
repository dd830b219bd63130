// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/classfile"
)

func TestPoolDedup(t *testing.T) {
	cp := classfile.NewPool()

	u1 := cp.AddUtf8("Foo")
	u2 := cp.AddUtf8("Foo")
	assert.Equal(t, u1, u2, "Utf8 entries for the same string must be deduplicated")

	c1 := cp.AddClass("pkg/Foo")
	c2 := cp.AddClass("pkg/Foo")
	assert.Equal(t, c1, c2, "Class entries must be deduplicated by internal name")

	n1 := cp.AddNameAndType("bar", "I")
	n2 := cp.AddNameAndType("bar", "I")
	assert.Equal(t, n1, n2)

	f1 := cp.AddFieldref("pkg/Foo", "bar", "I")
	f2 := cp.AddFieldref("pkg/Foo", "bar", "I")
	assert.Equal(t, f1, f2)

	m1 := cp.AddMethodref("pkg/Foo", "run", "()V")
	m2 := cp.AddMethodref("pkg/Foo", "run", "()V")
	assert.Equal(t, m1, m2)
}

func TestPoolIntegerNotDeduped(t *testing.T) {
	cp := classfile.NewPool()
	i1 := cp.AddInteger(42)
	i2 := cp.AddInteger(42)
	assert.NotEqual(t, i1, i2, "Integer constants are never deduplicated")
}

func TestPoolLongDoubleOccupyTwoSlots(t *testing.T) {
	cp := classfile.NewPool()
	before := cp.Count()
	idx := cp.AddLong(123456789012345)
	assert.Equal(t, before, int(idx), "Long index should be the next free slot")
	assert.Equal(t, before+2, cp.Count(), "Long must reserve an inert placeholder slot")

	before = cp.Count()
	idx = cp.AddDouble(3.14)
	assert.Equal(t, before, int(idx))
	assert.Equal(t, before+2, cp.Count(), "Double must reserve an inert placeholder slot")

	entries := cp.Entries()
	assert.True(t, entries[idx+1].Tag == classfile.TagDouble, "placeholder slot keeps the parent tag")
}

func TestPoolClassNameOf(t *testing.T) {
	cp := classfile.NewPool()
	idx := cp.AddClass("java/lang/Object")

	name, err := cp.ClassNameOf(idx)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", name)

	_, err = cp.ClassNameOf(0)
	assert.Error(t, err, "index 0 is the unused slot")

	utfIdx := cp.AddUtf8("not a class")
	_, err = cp.ClassNameOf(utfIdx)
	assert.Error(t, err, "a Utf8 entry is not a Class entry")
}

func TestPoolCountStartsAtOne(t *testing.T) {
	cp := classfile.NewPool()
	assert.Equal(t, 1, cp.Count(), "index 0 is reserved and unused")
}
