// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classfile writes JVM class files (format version 61, Java 17):
// the constant pool with its deduplication rules, MUTF-8 string
// encoding, and the Code/StackMapTable/LineNumberTable/SourceFile
// attributes (spec.md §6.1).
package classfile

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	Magic        uint32 = 0xCAFEBABE
	MinorVersion uint16 = 0
	MajorVersion uint16 = 61 // Java 17
)

// ClassFile is a fully populated, ready-to-serialise class. The
// constant pool is built incrementally by the code builder and driver
// as they resolve names/descriptors; by the time WriteTo is called
// every forward reference must already be an index into CP.
type ClassFile struct {
	CP *Pool

	AccessFlags uint16
	ThisClass   string // internal form, e.g. "Foo"
	SuperClass  string // internal form, e.g. "java/lang/Object"
	Interfaces  []string

	Fields  []Field
	Methods []Method

	SourceFile string // empty means omit the attribute
}

// NewClassFile starts a public-super class (the JVM default, spec.md
// §6.1) extending SuperClass.
func NewClassFile(thisClass, superClass string) *ClassFile {
	return &ClassFile{
		CP:          NewPool(),
		AccessFlags: AccPublic | AccSuper,
		ThisClass:   thisClass,
		SuperClass:  superClass,
	}
}

// WriteTo serialises the class file in the exact big-endian binary
// layout of spec.md §6.1. Fields, methods and the SourceFile attribute
// are rendered into scratch buffers first since each can still intern
// new constant-pool entries (names, descriptors, the "Code"/
// "SourceFile" Utf8 literals themselves); the pool is only serialised
// once every one of those has run, so constant_pool_count is correct.
func (c *ClassFile) WriteTo(w io.Writer) (int64, error) {
	thisIdx := c.CP.AddClass(c.ThisClass)
	superIdx := c.CP.AddClass(c.SuperClass)
	ifaceIdx := make([]uint16, len(c.Interfaces))
	for i, n := range c.Interfaces {
		ifaceIdx[i] = c.CP.AddClass(n)
	}

	fieldsBuf := newBufSink()
	fieldsBuf.u2(uint16(len(c.Fields)))
	for _, f := range c.Fields {
		f.writeBuf(fieldsBuf, c.CP)
	}

	methodsBuf := newBufSink()
	methodsBuf.u2(uint16(len(c.Methods)))
	for _, m := range c.Methods {
		m.writeBuf(methodsBuf, c.CP)
	}

	var sourceFileAttr []byte
	if c.SourceFile != "" {
		sourceFileAttr = encodeSourceFile(c.SourceFile, c.CP)
	}

	out := newBufSink()
	out.u4(Magic)
	out.u2(MinorVersion)
	out.u2(MajorVersion)
	writeConstantPool(out, c.CP)

	out.u2(c.AccessFlags)
	out.u2(thisIdx)
	out.u2(superIdx)

	out.u2(uint16(len(ifaceIdx)))
	for _, idx := range ifaceIdx {
		out.u2(idx)
	}

	out.bytes(fieldsBuf.bytes_())
	out.bytes(methodsBuf.bytes_())

	if sourceFileAttr != nil {
		out.u2(1)
		out.bytes(sourceFileAttr)
	} else {
		out.u2(0)
	}

	n, err := w.Write(out.bytes_())
	if err != nil {
		return int64(n), errors.Wrap(err, "classfile: write")
	}
	return int64(n), nil
}

func writeConstantPool(out *bufSink, cp *Pool) {
	out.u2(uint16(cp.Count()))
	entries := cp.Entries()
	for i := 1; i < len(entries); i++ {
		e := entries[i]
		if e.placeholder {
			continue // inert second slot of a Long/Double, never serialised
		}
		out.u1(uint8(e.Tag))
		switch e.Tag {
		case TagUtf8:
			out.u2(uint16(len(e.Utf8Bytes)))
			out.bytes(e.Utf8Bytes)
		case TagInteger:
			out.u4(uint32(e.Int32))
		case TagFloat:
			out.u4(math.Float32bits(e.Flt32))
		case TagLong:
			v := uint64(e.Int64)
			out.u4(uint32(v >> 32))
			out.u4(uint32(v))
		case TagDouble:
			v := math.Float64bits(e.Flt64)
			out.u4(uint32(v >> 32))
			out.u4(uint32(v))
		case TagClass, TagString:
			out.u2(e.NameIndex)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			out.u2(e.ClassIndex)
			out.u2(e.NatIndex)
		case TagNameAndType:
			out.u2(e.NameIndex)
			out.u2(e.DescIndex)
		case TagMethodHandle:
			out.u1(e.RefKind)
			out.u2(e.RefIndex)
		case TagMethodType:
			out.u2(e.DescIndex)
		case TagInvokeDynamic:
			out.u2(e.BootIndex)
			out.u2(e.NatIndex)
		}
	}
}
