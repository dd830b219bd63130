// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

// EncodeStackMapTableForTest exposes encodeStackMapTable to the
// external classfile_test package.
func EncodeStackMapTableForTest(frames []StackMapFrame, cp *Pool) []byte {
	return encodeStackMapTable(frames, cp)
}
