// Copyright (c) 2021-2023 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bloom implements a classic fixed-capacity bloom filter with a
// configurable false positive rate and support for reconstructing filters
// from previously serialized parameters.
//
// A bloom filter is a space-efficient probabilistic data structure for
// testing set membership.  Items may only be added, never removed, and
// queries either report that an item is definitely not a member or that it
// is a member with a configurable false positive probability.
//
// The sizing calculations follow the standard formulas for the optimal
// number of bits per element and hash functions given a target false
// positive rate.  The probe indices themselves are derived from a single
// 128-bit siphash of the item via enhanced double hashing, which provides
// equivalent behavior to independent hash functions with significantly less
// computation.  The siphash keys are fixed so that a filter reconstructed
// from its serialized parameters probes exactly the same bits as the filter
// that produced them.
//
// References:
//
//	[BLOOM] Space/Time Trade-offs in Hash Coding with Allowable Errors
//	        (Bloom)
//
//	[LHSP] Less Hashing, Same Performance: Building a Better Bloom Filter
//	       (Kirsch, Mitzenmacher)
//
//	[BFPV] Bloom Filters in Probabilistic Verification
//	       (Dillinger, Manolios)
package bloom

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/dchest/siphash"
	"github.com/jrick/bitset"
)

const (
	// key0 and key1 are the fixed keys for the siphash function used to
	// derive the probe indices for items.  They must never change since
	// filters are serialized and reloaded across process restarts and the
	// stored bit buffers are only meaningful under the keys that set them.
	key0 = 0x4a75737420612073
	key1 = 0x696d706c65206b65

	// ln2 is the natural logarithm of 2 and is the factor that relates the
	// number of bits per element to the optimal number of hash functions.
	ln2 = 0.6931471805599453

	// ln2Squared is the square of the natural logarithm of 2 and is the
	// divisor that relates a false positive rate to the optimal number of
	// bits per element.
	ln2Squared = 0.4804530139182014

	// maxFilterBits is the largest bit array a filter may be sized for.
	// It bounds the conversion of the capacity and bits per element
	// product to an integer bit count.
	maxFilterBits = 1 << 48
)

// derivedBits returns the total number of bits implied by the given capacity
// and bits per element along with the number of bytes needed to store them.
// The fractional part of the product is truncated.  The result is always at
// least one bit so a filter never ends up with an empty bit buffer.
func derivedBits(capacity uint64, bpe float64) (uint64, uint64) {
	numBits := uint64(float64(capacity) * bpe)
	if numBits == 0 {
		numBits = 1
	}
	return numBits, (numBits + 7) / 8
}

// fastReduce calculates a mapping that is more or less equivalent to x mod N.
//
// However, instead of using a mod operation that can lead to slowness on many
// processors when not using a power of two due to unnecessary division, this
// uses a "multiply-and-shift" trick that eliminates all divisions as described
// in a blog post by Daniel Lemire, titled "A fast alternative to the modulo
// reduction":
//
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction
//
// Since that link might disappear, the general idea is to multiply by N and
// shift right by log2(N).  Since N is a 64-bit integer in this case, it
// becomes:
//
//	(x * N) / 2^64 == (x * N) >> 64
//
// This is a fair map since it maps integers in the range [0,2^64) to multiples
// of N in [0, N*2^64) and then divides by 2^64 to map all multiples of N in
// [0,2^64) to 0, all multiples of N in [2^64, 2*2^64) to 1, etc.  This results
// in either ceil(2^64/N) or floor(2^64/N) multiples of N.
func fastReduce(x, N uint64) uint64 {
	hi, _ := bits.Mul64(x, N)
	return hi
}

// Filter implements a fixed-capacity bloom filter.  The capacity and false
// positive rate are set at creation time and determine the size of the bit
// buffer and the number of probe indices derived for each item.
//
// The filter does not count the items added to it and does not attempt to
// detect when its capacity has been exceeded.  Callers that need those
// semantics are expected to track the number of set bits reported by Add.
//
// Filters are NOT safe for concurrent access.  Callers are responsible for
// serializing all access when a filter is shared between goroutines.
type Filter struct {
	// capacity is the number of items the filter was sized for.
	capacity uint64

	// fpRate is the target false positive rate the filter was sized for
	// when filled to capacity.
	fpRate float64

	// hashes is the number of probe indices derived for each item.
	hashes uint32

	// bpe is the number of bits per element implied by the false positive
	// rate.  It is retained so the exact value used to size the filter can
	// be serialized and later used to reconstruct it.
	bpe float64

	// numBits is the total number of usable bits in the filter.
	numBits uint64

	// data houses the bit buffer.
	data bitset.Bytes
}

// NewFilter returns a bloom filter sized for the provided maximum number of
// items and target false positive rate.
//
// The rate must be strictly between 0 and 1 or the function returns an error
// with kind ErrInvalidFPRate.  A capacity of zero returns an error with kind
// ErrInvalidCapacity.
func NewFilter(capacity uint64, fpRate float64) (*Filter, error) {
	if capacity == 0 {
		desc := "filter capacity must not be zero"
		return nil, makeError(ErrInvalidCapacity, desc)
	}
	if math.IsNaN(fpRate) || fpRate <= 0 || fpRate >= 1 {
		desc := fmt.Sprintf("false positive rate of %v is not in the "+
			"valid range (0, 1)", fpRate)
		return nil, makeError(ErrInvalidFPRate, desc)
	}

	bpe := -math.Log(fpRate) / ln2Squared
	if float64(capacity)*bpe >= maxFilterBits {
		desc := fmt.Sprintf("capacity %d at a false positive rate of "+
			"%v requires more than the supported maximum of %d bits",
			capacity, fpRate, uint64(maxFilterBits))
		return nil, makeError(ErrFilterTooLarge, desc)
	}

	numBits, _ := derivedBits(capacity, bpe)
	hashes := uint32(math.Ceil(ln2 * bpe))
	if hashes == 0 {
		hashes = 1
	}
	return &Filter{
		capacity: capacity,
		fpRate:   fpRate,
		hashes:   hashes,
		bpe:      bpe,
		numBits:  numBits,
		data:     bitset.NewBytes(int(numBits)),
	}, nil
}

// NewFilterParams returns a bloom filter reconstructed from previously
// serialized parameters and the associated bit buffer.  It is intended for
// loading filters whose sizing was already performed by NewFilter in an
// earlier run and accepts the exact values reported by the accessors of that
// filter rather than recomputing them.
//
// The buffer length must match the number of bytes implied by the capacity
// and bits per element or the function returns an error with kind
// ErrBufferLength.  The buffer is used directly without copying.
func NewFilterParams(capacity uint64, fpRate float64, hashes uint32, bpe float64, buf []byte) (*Filter, error) {
	if capacity == 0 {
		desc := "filter capacity must not be zero"
		return nil, makeError(ErrInvalidCapacity, desc)
	}
	if hashes == 0 {
		desc := "filter hash count must not be zero"
		return nil, makeError(ErrInvalidHashCount, desc)
	}
	if math.IsNaN(bpe) || math.IsInf(bpe, 0) || bpe <= 0 {
		desc := fmt.Sprintf("bits per element of %v is not a positive "+
			"finite value", bpe)
		return nil, makeError(ErrInvalidFPRate, desc)
	}
	if float64(capacity)*bpe >= maxFilterBits {
		desc := fmt.Sprintf("capacity %d at %v bits per element "+
			"requires more than the supported maximum of %d bits",
			capacity, bpe, uint64(maxFilterBits))
		return nil, makeError(ErrFilterTooLarge, desc)
	}

	numBits, numBytes := derivedBits(capacity, bpe)
	if uint64(len(buf)) != numBytes {
		desc := fmt.Sprintf("bit buffer length of %d does not match "+
			"required length %d for capacity %d with %v bits per "+
			"element", len(buf), numBytes, capacity, bpe)
		return nil, makeError(ErrBufferLength, desc)
	}
	return &Filter{
		capacity: capacity,
		fpRate:   fpRate,
		hashes:   hashes,
		bpe:      bpe,
		numBits:  numBits,
		data:     bitset.Bytes(buf),
	}, nil
}

// Add adds the provided data to the filter and returns the number of probe
// bits that were not already set.  A return of zero means every bit the item
// maps to was already set, so either the item was added before or it collides
// with previously added items on all of its probe indices.
func (f *Filter) Add(data []byte) uint32 {
	var newlySet uint32
	hash1, hash2 := siphash.Hash128(key0, key1, data)
	derivedIdx, acc := hash1, hash2
	for i := uint32(0); i < f.hashes; i++ {
		bit := int(fastReduce(derivedIdx, f.numBits))
		if !f.data.Get(bit) {
			f.data.Set(bit)
			newlySet++
		}
		derivedIdx += acc
		acc += uint64(i + 1)
	}
	return newlySet
}

// Contains returns whether or not the provided data is likely a member of the
// filter.  A return of false guarantees the data was never added while a
// return of true is subject to the false positive rate of the filter.
func (f *Filter) Contains(data []byte) bool {
	hash1, hash2 := siphash.Hash128(key0, key1, data)
	derivedIdx, acc := hash1, hash2
	for i := uint32(0); i < f.hashes; i++ {
		bit := int(fastReduce(derivedIdx, f.numBits))
		if !f.data.Get(bit) {
			return false
		}
		derivedIdx += acc
		acc += uint64(i + 1)
	}
	return true
}

// Capacity returns the maximum number of items the filter was sized for.
func (f *Filter) Capacity() uint64 {
	return f.capacity
}

// FPRate returns the target false positive rate the filter was sized for.
func (f *Filter) FPRate() float64 {
	return f.fpRate
}

// HashCount returns the number of probe indices derived for each item.
func (f *Filter) HashCount() uint32 {
	return f.hashes
}

// BitsPerElement returns the number of bits per element implied by the false
// positive rate.  The total number of bits in the filter is the capacity
// multiplied by this value with the fractional part truncated.
func (f *Filter) BitsPerElement() float64 {
	return f.bpe
}

// Bits returns the total number of usable bits in the filter.
func (f *Filter) Bits() uint64 {
	return f.numBits
}

// Size returns the size of the bit buffer in bytes.
func (f *Filter) Size() uint64 {
	return uint64(len(f.data))
}

// Buffer returns the raw bit buffer of the filter.  The returned slice is the
// live backing store, not a copy, and must not be modified by the caller.  It
// is primarily intended for serialization.
func (f *Filter) Buffer() []byte {
	return []byte(f.data)
}
