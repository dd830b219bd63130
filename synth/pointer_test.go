// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvmgen/synth"
)

func TestPtrUsageTracksMarkedFlavoursOnly(t *testing.T) {
	u := synth.NewPtrUsage()
	assert.False(t, u.Any())

	u.Mark(synth.PtrInt)
	assert.True(t, u.Any())
	assert.Equal(t, []synth.PtrType{synth.PtrInt}, u.Used())
}

func TestPtrUsageUsedIsSortedAndDeduplicated(t *testing.T) {
	u := synth.NewPtrUsage()
	u.Mark(synth.PtrLong)
	u.Mark(synth.PtrChar)
	u.Mark(synth.PtrLong)

	assert.Equal(t, []synth.PtrType{synth.PtrChar, synth.PtrLong}, u.Used())
}

func TestPtrTypeFromTag(t *testing.T) {
	tests := []struct {
		tag  byte
		want synth.PtrType
	}{
		{'B', synth.PtrChar}, {'Z', synth.PtrBool}, {'S', synth.PtrShort},
		{'I', synth.PtrInt}, {'J', synth.PtrLong}, {'F', synth.PtrFloat},
		{'D', synth.PtrDouble}, {'L', synth.PtrObject},
	}
	for _, tt := range tests {
		got, ok := synth.PtrTypeFromTag(tt.tag)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}

	_, ok := synth.PtrTypeFromTag('?')
	assert.False(t, ok)
}

// TestBuildPointerClassesOnlyEmitsMarkedFlavours confirms selective
// generation (synthetic_codegen.c's generate_ptr_struct_classes_selective).
func TestBuildPointerClassesOnlyEmitsMarkedFlavours(t *testing.T) {
	u := synth.NewPtrUsage()
	u.Mark(synth.PtrInt)
	u.Mark(synth.PtrDouble)

	classes := synth.BuildPointerClasses(u)
	require.Len(t, classes, 2)
	assert.Equal(t, "__intPtr", classes[0].ThisClass)
	assert.Equal(t, "__doublePtr", classes[1].ThisClass)
}

// TestBuildPointerClassHasBaseAndOffsetFields checks the two public
// fields every pointer-wrapper class carries.
func TestBuildPointerClassHasBaseAndOffsetFields(t *testing.T) {
	u := synth.NewPtrUsage()
	u.Mark(synth.PtrInt)
	cf := synth.BuildPointerClasses(u)[0]

	require.Len(t, cf.Fields, 2)
	assert.Equal(t, "base", cf.Fields[0].Name)
	assert.Equal(t, "[I", cf.Fields[0].Descriptor)
	assert.Equal(t, "offset", cf.Fields[1].Name)
	assert.Equal(t, "I", cf.Fields[1].Descriptor)
}

// TestBuildPointerClassConstructorChainsObjectInit checks the
// default constructor's three-instruction shape.
func TestBuildPointerClassConstructorChainsObjectInit(t *testing.T) {
	u := synth.NewPtrUsage()
	u.Mark(synth.PtrInt)
	cf := synth.BuildPointerClasses(u)[0]

	require.Len(t, cf.Methods, 1)
	m := cf.Methods[0]
	assert.Equal(t, "<init>", m.Name)
	assert.Equal(t, "()V", m.Descriptor)
	require.NotNil(t, m.Code)
	assert.Equal(t, uint16(1), m.Code.MaxStack)
	assert.Equal(t, uint16(1), m.Code.MaxLocals)
}
