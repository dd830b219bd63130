// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

// Field access flags (JVM-standard subset used by a generated C-dialect
// compiler: no modules, no annotations).
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020 // class-only
	AccSynthetic = 0x1000
)

// Field is one field_info record (spec.md §6.1).
type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
}

// writeBuf appends a field_info record to b. Called only after the
// surrounding class file has collected every field, so that the
// interned name/descriptor Utf8 entries are part of the final pool
// (see ClassFile.WriteTo).
func (f Field) writeBuf(b *bufSink, cp *Pool) {
	nameIdx := cp.AddUtf8(f.Name)
	descIdx := cp.AddUtf8(f.Descriptor)
	b.u2(f.AccessFlags)
	b.u2(nameIdx)
	b.u2(descIdx)
	b.u2(0) // attributes_count: generated fields carry none
}
