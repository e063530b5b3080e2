// Copyright (c) 2019 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rpcserver provides the JSON-RPC server that exposes the filter store
over HTTP POST and websocket connections.

# Overview

This package contains the interfaces used to allow the various systems the
RPC server interacts with to be loosely coupled along with the server itself,
the websocket notification manager, and the cached help text for every
supported command.
*/
package rpcserver
