// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

// AddItemsResult models the data from the additems command.
type AddItemsResult struct {
	Added   []bool `json:"added"`
	Entries uint64 `json:"entries"`
}

// CreateFilterResult models the data from the createfilter command.
type CreateFilterResult struct {
	Name     string  `json:"name"`
	Capacity uint64  `json:"capacity"`
	FPRate   float64 `json:"fprate"`
	Fixed    bool    `json:"fixed"`
	Entries  uint64  `json:"entries"`
}

// FilterDetails models the data for a single filter in the chain of a
// scalable filter as returned by the filterinfo command.
type FilterDetails struct {
	Capacity  uint64 `json:"capacity"`
	HashFuncs uint32 `json:"hashfuncs"`
	SizeBits  uint64 `json:"sizebits"`
	SizeBytes uint64 `json:"sizebytes"`
	SetBits   uint64 `json:"setbits"`
}

// FilterInfoResult models the data from the filterinfo command.
//
// Filters describes every filter in the chain of the scalable filter ordered
// from the newest to the oldest, which is the same order membership tests
// consult them.
type FilterInfoResult struct {
	Name      string          `json:"name"`
	Capacity  uint64          `json:"capacity"`
	FPRate    float64         `json:"fprate"`
	Fixed     bool            `json:"fixed"`
	Entries   uint64          `json:"entries"`
	SizeBytes uint64          `json:"sizebytes"`
	Hash      string          `json:"hash"`
	Filters   []FilterDetails `json:"filters"`
}

// SessionResult models the data from the session command.
type SessionResult struct {
	SessionID uint64 `json:"sessionid"`
}

// VersionResult models objects included in the version response.  In the
// actual result, these objects are keyed by the program or API name.
type VersionResult struct {
	VersionString string `json:"versionstring"`
	Major         uint32 `json:"major"`
	Minor         uint32 `json:"minor"`
	Patch         uint32 `json:"patch"`
	Prerelease    string `json:"prerelease"`
	BuildMetadata string `json:"buildmetadata"`
}
