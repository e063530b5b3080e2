// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// NOTE: This file is intended to house the RPC websocket notifications that are
// supported by a bloom filter server.

package types

import "github.com/decred/dcrd/dcrjson/v4"

const (
	// FilterGrowthNtfnMethod is the method used for notifications from the
	// bloom filter server that a scalable filter has grown a new filter in
	// its chain.
	FilterGrowthNtfnMethod Method = "filtergrowth"
)

// FilterGrowthNtfn defines the filtergrowth JSON-RPC notification.
type FilterGrowthNtfn struct {
	Name        string `json:"name"`
	Capacity    uint64 `json:"capacity"`
	FilterCount uint32 `json:"filtercount"`
}

// NewFilterGrowthNtfn returns a new instance which can be used to issue a
// filtergrowth JSON-RPC notification.
func NewFilterGrowthNtfn(name string, capacity uint64, filterCount uint32) *FilterGrowthNtfn {
	return &FilterGrowthNtfn{
		Name:        name,
		Capacity:    capacity,
		FilterCount: filterCount,
	}
}

func init() {
	// The commands in this file are only usable by websockets and are
	// notifications.
	flags := dcrjson.UFWebsocketOnly | dcrjson.UFNotification

	dcrjson.MustRegister(FilterGrowthNtfnMethod, (*FilterGrowthNtfn)(nil), flags)
}
