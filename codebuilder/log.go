// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"io"
	"log"
	"os"
)

// PrintDebugInfo toggles verbose tracing of Code Builder activity:
// label placement, jump resolution, frame merges.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	var w io.Writer = io.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "", log.Lshortfile)
}

// SetDebugMode flips PrintDebugInfo and rebuilds the package logger,
// mirroring classfile.SetDebugMode.
func SetDebugMode(on bool) {
	PrintDebugInfo = on
	w := io.Writer(io.Discard)
	if on {
		w = os.Stderr
	}
	logger = log.New(w, "codebuilder: ", log.Lshortfile)
}
