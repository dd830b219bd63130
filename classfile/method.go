// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

// Method access flags, JVM-standard subset.
const (
	MAccPublic       = 0x0001
	MAccPrivate      = 0x0002
	MAccProtected    = 0x0004
	MAccStatic       = 0x0008
	MAccFinal        = 0x0010
	MAccSynchronized = 0x0020
	MAccVarargs      = 0x0080
)

// Method is one method_info record with a finalised Code attribute
// (spec.md §6.1, §6.3 "per-method finalised records").
type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        *CodeAttribute // nil for abstract/native methods
}

func (m Method) writeBuf(b *bufSink, cp *Pool) {
	nameIdx := cp.AddUtf8(m.Name)
	descIdx := cp.AddUtf8(m.Descriptor)
	b.u2(m.AccessFlags)
	b.u2(nameIdx)
	b.u2(descIdx)

	if m.Code == nil {
		b.u2(0)
		return
	}
	b.u2(1)

	codeNameIdx := cp.AddUtf8("Code")
	body := newBufSink()
	body.u2(m.Code.MaxStack)
	body.u2(m.Code.MaxLocals)
	body.u4(uint32(len(m.Code.Code)))
	body.bytes(m.Code.Code)

	body.u2(uint16(len(m.Code.Exceptions)))
	for _, e := range m.Code.Exceptions {
		body.u2(e.StartPC)
		body.u2(e.EndPC)
		body.u2(e.HandlerPC)
		body.u2(e.CatchType)
	}

	var nested [][]byte
	if len(m.Code.StackMap) > 0 {
		nested = append(nested, encodeStackMapTable(m.Code.StackMap, cp))
	}
	if len(m.Code.Lines) > 0 {
		nested = append(nested, encodeLineNumberTable(m.Code.Lines, cp))
	}
	body.u2(uint16(len(nested)))
	for _, n := range nested {
		body.bytes(n)
	}

	payload := body.bytes_()
	b.u2(codeNameIdx)
	b.u4(uint32(len(payload)))
	b.bytes(payload)
}
