// Copyright (c) 2019 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"context"

	"github.com/decred/dcrd/crypto/blake256"

	"github.com/bloomdb/bloomd/rpc/jsonrpc/types"
	"github.com/bloomdb/bloomd/sbloom"
)

// FilterStore represents the persistent filter store for use with the RPC
// server.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type FilterStore interface {
	// CreateFilter creates a filter under the provided name sized for the
	// provided capacity and target false positive rate and seeds it with
	// the provided items.  A capacity of zero selects the default initial
	// capacity and an error rate of zero selects the store default rate.
	CreateFilter(name string, capacity uint64, errorRate float64, fixed bool, items [][]byte) error

	// AddItems adds the provided items to the named filter and returns a
	// slice that describes, for each item in order, whether the item was
	// newly added as opposed to already being present.  When the filter
	// does not exist it is either created with default parameters or the
	// addition is rejected depending on the create flag.
	AddItems(name string, create bool, items [][]byte) ([]bool, error)

	// ContainsItem returns whether the provided item is a member of the
	// named filter.
	ContainsItem(name string, item []byte) (bool, error)

	// FilterInfo returns a description of the named filter and every
	// filter in its chain.
	FilterInfo(name string) (sbloom.Info, error)

	// FilterHash returns the BLAKE-256 hash of the serialization of the
	// named filter.
	FilterHash(name string) ([blake256.Size]byte, error)

	// DropFilter removes the named filter from the store.
	DropFilter(name string) error

	// ListFilters returns the names of all stored filters in lexicographic
	// order.
	ListFilters() ([]string, error)
}

// LogManager represents a log manager for use with the RPC server.
//
// The interface contract does NOT require that these methods are safe for
// concurrent access.
type LogManager interface {
	// SupportedSubsystems returns a sorted slice of the supported subsystems for
	// logging purposes.
	SupportedSubsystems() []string

	// ParseAndSetDebugLevels attempts to parse the specified debug level and set
	// the levels accordingly.  An appropriate error must be returned if anything
	// is invalid.
	ParseAndSetDebugLevels(debugLevel string) error
}

// RPCHelpCacher represents a cacher that provides help and usage text for RPC
// server commands.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type RPCHelpCacher interface {
	// RPCMethodHelp returns an RPC help string for the provided method.
	RPCMethodHelp(method types.Method) (string, error)

	// RPCUsage returns one-line usage for all supported RPC commands.
	RPCUsage(includeWebsockets bool) (string, error)
}

// NtfnManager represents a websocket notification manager for use with the
// RPC server.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type NtfnManager interface {
	// NotifyFilterGrowth passes a filter whose chain has grown to the
	// manager for processing.
	NotifyFilterGrowth(fgd *FilterGrowthNtfnData)

	// NumClients returns the number of clients actively being served.
	NumClients() int

	// RegisterFilterGrowthUpdates requests filter growth update
	// notifications to the passed websocket client.
	RegisterFilterGrowthUpdates(wsc *wsClient)

	// UnregisterFilterGrowthUpdates removes filter growth update
	// notifications for the passed websocket client.
	UnregisterFilterGrowthUpdates(wsc *wsClient)

	// AddClient adds the passed websocket client to the notification manager.
	AddClient(wsc *wsClient)

	// RemoveClient removes the passed websocket client and all notifications
	// registered for it.
	RemoveClient(wsc *wsClient)

	// Run starts the goroutines required for the manager to queue and process
	// websocket client notifications. It blocks until the provided context is
	// cancelled.
	Run(ctx context.Context)
}
