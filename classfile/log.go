// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

import (
	"io"
	"log"
	"os"
)

// PrintDebugInfo toggles verbose tracing of constant-pool and
// class-file-writer activity.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	var w io.Writer = io.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "", log.Lshortfile)
}

// SetDebugMode flips PrintDebugInfo and rebuilds the package logger.
func SetDebugMode(on bool) {
	PrintDebugInfo = on
	w := io.Writer(io.Discard)
	if on {
		w = os.Stderr
	}
	logger = log.New(w, "classfile: ", log.Lshortfile)
}
