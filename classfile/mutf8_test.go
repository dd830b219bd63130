// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jvmgen/classfile"
)

func TestEncodeMUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"ascii", "Hello", []byte("Hello")},
		{"nul", "a\x00b", []byte{'a', 0xC0, 0x80, 'b'}},
		{"bmp", "café", []byte{'c', 'a', 'f', 0xC3, 0xA9}},
		{"astral", "\U0001F600", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classfile.EncodeMUTF8(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", "a\x00b", "café", "\U0001F600\U0001F601"} {
		enc := classfile.EncodeMUTF8(s)
		got := classfile.DecodeMUTF8(enc)
		assert.Equal(t, s, got, "round trip of %q", s)
	}
}
