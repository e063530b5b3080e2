// Copyright (c) 2017-2022 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

import (
	_ "embed"
)

// sampleBloomdConf is a string containing the commented example config for
// bloomd.
//
//go:embed sample-bloomd.conf
var sampleBloomdConf string

// sampleBloomctlConf is a string containing the commented example config for
// bloomctl.
//
//go:embed sample-bloomctl.conf
var sampleBloomctlConf string

// Bloomd returns a string containing the commented example config for bloomd.
func Bloomd() string {
	return sampleBloomdConf
}

// Bloomctl returns a string containing the commented example config for
// bloomctl.
func Bloomctl() string {
	return sampleBloomctlConf
}
