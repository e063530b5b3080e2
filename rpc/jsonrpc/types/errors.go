// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import "github.com/decred/dcrd/dcrjson/v4"

// Bloom filter server specific RPC error codes.  These are in addition to the
// general purpose codes the dcrjson package provides and are returned in the
// error field of responses to commands that operate on named filters.
const (
	// ErrRPCFilterNotFound indicates a command referenced a named filter
	// that does not exist in the store.
	ErrRPCFilterNotFound dcrjson.RPCErrorCode = -101

	// ErrRPCFilterExists indicates an attempt to create a named filter
	// that already exists in the store.
	ErrRPCFilterExists dcrjson.RPCErrorCode = -102

	// ErrRPCWrongType indicates a command referenced a key in the store
	// that holds a record other than a scalable bloom filter.
	ErrRPCWrongType dcrjson.RPCErrorCode = -103

	// ErrRPCFilterFixed indicates an attempt to add items to a filter that
	// was created with a fixed capacity.
	ErrRPCFilterFixed dcrjson.RPCErrorCode = -104
)
