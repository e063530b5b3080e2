// Copyright (c) 2021-2023 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sbloom implements a scalable bloom filter that grows on demand to
// hold an unbounded number of items while maintaining a target false
// positive rate, along with a deterministic binary serialization format for
// snapshotting filters and reloading them in a later process.
//
// The filter maintains an ordered chain of fixed-capacity bloom filters.
// Items are only ever added to the newest filter in the chain.  Membership
// checks scan the chain from newest to oldest and short circuit on the first
// filter that reports a match, so items added at any point in the life of
// the chain are always found while the aggregate false positive rate remains
// bounded by the per-filter target applied to every filter.
//
// Once more than half of the bits of the newest filter are set, the next
// insertion creates a new filter with double the capacity at the same target
// rate and makes it the newest in the chain.  Older filters are never
// removed, merged, or rebalanced.  Growth by doubling keeps the number of
// filters in the chain logarithmic in the total number of items added.
//
// References:
//
//	[SBF] Scalable Bloom Filters
//	      (Almeida, Baquero, Preguiça, Hutchison)
package sbloom

import (
	"fmt"
	"math"

	"github.com/bloomdb/bloomd/container/bloom"
)

const (
	// FilterVersion is the only serialization format version produced and
	// understood by this package.  The version accompanies serialized
	// filters out-of-band rather than being part of the stream itself.
	FilterVersion = 0

	// minCapacity is the smallest capacity an individual filter in the
	// chain may be created with.  Requested capacities below this floor
	// are raised to it since very small filters grow the chain quickly
	// and make every membership check more expensive.
	minCapacity = 1000

	// maxFilterBytes is the maximum length in bytes accepted for a single
	// serialized bit buffer during decode.
	maxFilterBytes = 1 << 30
)

// chainedFilter is one link in the chain of a scalable filter.  It pairs a
// fixed-capacity filter with a running count of the bits that have been set
// in it by adds.
type chainedFilter struct {
	// filter is the fixed-capacity filter items were added to while this
	// link was the newest in the chain.
	filter *bloom.Filter

	// fill is the total number of bits set in the filter across all adds
	// performed against it.  It never exceeds the total number of bits in
	// the filter and is only reset when the link is created.
	fill uint64
}

// Filter implements a scalable bloom filter.  It embeds a chain of
// fixed-capacity bloom filters ordered oldest to newest and directs all
// insertions to the newest one, growing the chain as needed.
//
// Filters must be created with NewFilter, NewFixedFilter, or Decode.
//
// Filters are NOT safe for concurrent access.  Callers are responsible for
// serializing all access when a filter is shared between goroutines.
type Filter struct {
	// filters is the chain ordered oldest first.  The final entry is the
	// newest filter and is the only one items are added to.  The chain
	// always contains at least one entry.
	filters []chainedFilter

	// totalEntries is the number of distinct items successfully added
	// across the whole chain.  Adds of items that are already members do
	// not change it.
	totalEntries uint64

	// errorRate is the target false positive rate applied to every filter
	// in the chain.  It is set at creation and never changes.
	errorRate float64

	// fixed indicates the filter was created to reject all future adds.
	// The flag is advisory at this layer and enforced by storage layers
	// before they call Add.
	fixed bool
}

// newFilter creates a scalable filter with a single chained filter of the
// provided capacity and target false positive rate.
func newFilter(fn string, capacity uint64, errorRate float64, fixed bool) (*Filter, error) {
	if math.IsNaN(errorRate) || errorRate <= 0 || errorRate >= 1 {
		desc := fmt.Sprintf("error rate of %v is not in the valid "+
			"range (0, 1)", errorRate)
		return nil, makeError(fn, ErrInvalidErrorRate, desc)
	}
	if capacity < minCapacity {
		capacity = minCapacity
	}
	ef, err := bloom.NewFilter(capacity, errorRate)
	if err != nil {
		return nil, err
	}
	return &Filter{
		filters:   []chainedFilter{{filter: ef}},
		errorRate: errorRate,
		fixed:     fixed,
	}, nil
}

// NewFilter returns an empty scalable filter with a single chained filter
// sized for the provided initial capacity and target false positive rate.
// Capacities below the minimum floor of 1000 are raised to it.
//
// The rate must be strictly between 0 and 1 or the function returns an error
// with kind ErrInvalidErrorRate.
func NewFilter(capacity uint64, errorRate float64) (*Filter, error) {
	return newFilter("NewFilter", capacity, errorRate, false)
}

// NewFixedFilter returns an empty scalable filter marked as fixed.  The flag
// indicates the filter was created to hold a one-time population and reject
// all future adds.  It is reported by IsFixed and carried through
// serialization, but this package does not itself refuse adds on fixed
// filters so the initial population can be inserted after creation.  Storage
// layers enforce the flag for all later adds.
//
// Aside from the flag, the semantics are identical to NewFilter.
func NewFixedFilter(capacity uint64, errorRate float64) (*Filter, error) {
	return newFilter("NewFixedFilter", capacity, errorRate, true)
}

// Contains returns whether or not the provided data is likely a member of
// the filter.  The chain is scanned from the newest filter to the oldest and
// the scan short circuits on the first match.  A return of false guarantees
// the data was never added while a return of true is subject to the
// aggregate false positive rate of the chain.
func (f *Filter) Contains(data []byte) bool {
	for i := len(f.filters) - 1; i >= 0; i-- {
		if f.filters[i].filter.Contains(data) {
			return true
		}
	}
	return false
}

// Add adds the provided data to the filter and returns whether or not it was
// inserted as a new distinct item.  Items that are already members are not
// added again and return false, which makes repeated adds of the same item
// idempotent.
//
// When the newest filter in the chain is more than half saturated, a new
// filter with double its capacity is created at the same target rate and
// becomes the newest in the chain before the item is inserted.  The only
// error condition is a failure to create that filter, in which case the
// chain is unchanged and the item is not added.
func (f *Filter) Add(data []byte) (bool, error) {
	if f.Contains(data) {
		return false, nil
	}

	head := &f.filters[len(f.filters)-1]
	if head.fill*2 > head.filter.Bits() {
		ef, err := bloom.NewFilter(head.filter.Capacity()*2, f.errorRate)
		if err != nil {
			return false, err
		}
		f.filters = append(f.filters, chainedFilter{filter: ef})
		head = &f.filters[len(f.filters)-1]
	}

	newlySet := head.filter.Add(data)
	head.fill += uint64(newlySet)
	if newlySet == 0 {
		// Every bit the item maps to was already set by other items,
		// so the filter cannot distinguish it from a member.
		return false, nil
	}
	f.totalEntries++
	return true, nil
}

// TotalEntries returns the number of distinct items successfully added to
// the filter across its whole life, including items added before the most
// recent reload of a serialized filter.
func (f *Filter) TotalEntries() uint64 {
	return f.totalEntries
}

// ErrorRate returns the target false positive rate applied to every filter
// in the chain.
func (f *Filter) ErrorRate() float64 {
	return f.errorRate
}

// IsFixed returns whether or not the filter was created to reject all
// future adds.  The flag is advisory at this layer.  See NewFixedFilter.
func (f *Filter) IsFixed() bool {
	return f.fixed
}

// NumFilters returns the number of filters in the chain.
func (f *Filter) NumFilters() int {
	return len(f.filters)
}

// FilterStats describes a single filter in the chain of a scalable filter.
type FilterStats struct {
	// Capacity is the number of items the filter was sized for.
	Capacity uint64

	// HashCount is the number of probe indices derived for each item.
	HashCount uint32

	// BitsPerElement is the number of bits per element implied by the
	// target false positive rate.
	BitsPerElement float64

	// Bits is the total number of bits in the filter.
	Bits uint64

	// Bytes is the size of the bit buffer of the filter in bytes.
	Bytes uint64

	// Fill is the number of bits set in the filter by adds.
	Fill uint64
}

// Info describes a scalable filter and every filter in its chain.
type Info struct {
	// TotalEntries is the number of distinct items successfully added.
	TotalEntries uint64

	// ErrorRate is the target false positive rate applied to every filter
	// in the chain.
	ErrorRate float64

	// Fixed indicates the filter rejects all future adds.
	Fixed bool

	// Size is the number of bytes the filter serializes to.
	Size uint64

	// Filters describes each filter in the chain ordered newest first to
	// match the order membership checks scan them.
	Filters []FilterStats
}

// Info returns a description of the filter and every filter in its chain
// ordered newest first.
func (f *Filter) Info() Info {
	stats := make([]FilterStats, 0, len(f.filters))
	for i := len(f.filters) - 1; i >= 0; i-- {
		cf := &f.filters[i]
		stats = append(stats, FilterStats{
			Capacity:       cf.filter.Capacity(),
			HashCount:      cf.filter.HashCount(),
			BitsPerElement: cf.filter.BitsPerElement(),
			Bits:           cf.filter.Bits(),
			Bytes:          cf.filter.Size(),
			Fill:           cf.fill,
		})
	}
	return Info{
		TotalEntries: f.totalEntries,
		ErrorRate:    f.errorRate,
		Fixed:        f.fixed,
		Size:         uint64(f.SerializeSize()),
		Filters:      stats,
	}
}
