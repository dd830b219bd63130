// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

// bufSink is a u1/u2/u4 big-endian byte accumulator. A class file's
// constant_pool_count must be written before the pool's own bytes, and
// the pool isn't finalised until every field, method and attribute has
// had a chance to intern a name or descriptor — so the whole file is
// rendered into bufSinks bottom-up and only concatenated (then handed
// to the caller's io.Writer) once every index is stable.
type bufSink struct {
	buf []byte
}

func newBufSink() *bufSink { return &bufSink{} }

func (b *bufSink) u1(v uint8)  { b.buf = append(b.buf, v) }
func (b *bufSink) u2(v uint16) { b.buf = append(b.buf, byte(v>>8), byte(v)) }
func (b *bufSink) u4(v uint32) {
	b.buf = append(b.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
func (b *bufSink) bytes(p []byte) { b.buf = append(b.buf, p...) }
func (b *bufSink) bytes_() []byte { return b.buf }
