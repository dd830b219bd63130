// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jvmgen/classfile"
)

// TestEncodeStackMapTableForms exercises each serialised frame form
// selected purely by FrameType, per spec.md §6.1's byte-exact rules.
func TestEncodeStackMapTableForms(t *testing.T) {
	cp := classfile.NewPool()

	tests := []struct {
		name  string
		frame classfile.StackMapFrame
		want  []byte // bytes of this one frame, after the 2-byte count prefix
	}{
		{
			name:  "same_frame",
			frame: classfile.StackMapFrame{FrameType: 10},
			want:  []byte{10},
		},
		{
			name: "same_locals_1_stack_item_frame",
			frame: classfile.StackMapFrame{
				FrameType: 64,
				Stack:     []classfile.VerifType{{Tag: classfile.ItemInteger}},
			},
			want: []byte{64, classfile.ItemInteger},
		},
		{
			name: "same_locals_1_stack_item_frame_extended",
			frame: classfile.StackMapFrame{
				FrameType:   247,
				OffsetDelta: 10,
				Stack:       []classfile.VerifType{{Tag: classfile.ItemInteger}},
			},
			want: []byte{247, 0, 10, classfile.ItemInteger},
		},
		{
			name:  "chop_frame",
			frame: classfile.StackMapFrame{FrameType: 249, OffsetDelta: 5},
			want:  []byte{249, 0, 5},
		},
		{
			name:  "same_frame_extended",
			frame: classfile.StackMapFrame{FrameType: 251, OffsetDelta: 300},
			want:  []byte{251, 1, 44},
		},
		{
			name: "append_frame",
			frame: classfile.StackMapFrame{
				FrameType:   252,
				OffsetDelta: 3,
				Locals:      []classfile.VerifType{{Tag: classfile.ItemInteger}},
			},
			want: []byte{252, 0, 3, classfile.ItemInteger},
		},
		{
			name: "full_frame",
			frame: classfile.StackMapFrame{
				FrameType:   255,
				OffsetDelta: 0,
				Locals:      []classfile.VerifType{{Tag: classfile.ItemInteger}},
				Stack:       []classfile.VerifType{{Tag: classfile.ItemObject, CPIndex: 7}},
			},
			want: []byte{255, 0, 0, 0, 1, classfile.ItemInteger, 0, 1, classfile.ItemObject, 0, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := classfile.EncodeStackMapTableForTest([]classfile.StackMapFrame{tt.frame}, cp)
			// raw is: name_index(2) attr_length(4) number_of_entries(2) <frame bytes>
			frameBytes := raw[8:]
			assert.Equal(t, tt.want, frameBytes)
		})
	}
}
