// Copyright (c) 2021-2023 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// TestFilterSizing ensures filters are sized with the expected number of
// bits, bytes, and hash functions for a variety of capacities and false
// positive rates.
func TestFilterSizing(t *testing.T) {
	tests := []struct {
		name       string  // test description
		capacity   uint64  // filter capacity
		fpRate     float64 // target false positive rate
		wantBPE    float64 // expected bits per element
		wantBits   uint64  // expected total bits
		wantBytes  uint64  // expected bit buffer length
		wantHashes uint32  // expected number of hash functions
	}{{
		name:       "1000 items at 1%",
		capacity:   1000,
		fpRate:     0.01,
		wantBPE:    9.585058377367439,
		wantBits:   9585,
		wantBytes:  1199,
		wantHashes: 7,
	}, {
		name:       "2000 items at 1%",
		capacity:   2000,
		fpRate:     0.01,
		wantBPE:    9.585058377367439,
		wantBits:   19170,
		wantBytes:  2397,
		wantHashes: 7,
	}, {
		name:       "1000 items at 0.1%",
		capacity:   1000,
		fpRate:     0.001,
		wantBPE:    14.37758756605116,
		wantBits:   14377,
		wantBytes:  1798,
		wantHashes: 10,
	}, {
		name:       "100 items at 5%",
		capacity:   100,
		fpRate:     0.05,
		wantBPE:    6.235224229572683,
		wantBits:   623,
		wantBytes:  78,
		wantHashes: 5,
	}, {
		name:       "single item at 10%",
		capacity:   1,
		fpRate:     0.1,
		wantBPE:    4.792529188683719,
		wantBits:   4,
		wantBytes:  1,
		wantHashes: 4,
	}}

	t.Logf("Running %d tests", len(tests))
	for _, test := range tests {
		f, err := NewFilter(test.capacity, test.fpRate)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.name, err)
			continue
		}
		if f.Capacity() != test.capacity {
			t.Errorf("%q: unexpected capacity -- got %d, want %d",
				test.name, f.Capacity(), test.capacity)
			continue
		}
		if f.FPRate() != test.fpRate {
			t.Errorf("%q: unexpected false positive rate -- got %v, "+
				"want %v", test.name, f.FPRate(), test.fpRate)
			continue
		}
		if math.Abs(f.BitsPerElement()-test.wantBPE) > 1e-9 {
			t.Errorf("%q: unexpected bits per element -- got %v, "+
				"want %v", test.name, f.BitsPerElement(),
				test.wantBPE)
			continue
		}
		if f.Bits() != test.wantBits {
			t.Errorf("%q: unexpected bit count -- got %d, want %d",
				test.name, f.Bits(), test.wantBits)
			continue
		}
		if f.Size() != test.wantBytes {
			t.Errorf("%q: unexpected buffer size -- got %d, want %d",
				test.name, f.Size(), test.wantBytes)
			continue
		}
		if uint64(len(f.Buffer())) != test.wantBytes {
			t.Errorf("%q: unexpected buffer length -- got %d, want "+
				"%d", test.name, len(f.Buffer()), test.wantBytes)
			continue
		}
		if f.HashCount() != test.wantHashes {
			t.Errorf("%q: unexpected hash count -- got %d, want %d",
				test.name, f.HashCount(), test.wantHashes)
			continue
		}
	}
}

// TestNewFilterErrors ensures attempting to create filters with invalid
// parameters returns the expected errors.
func TestNewFilterErrors(t *testing.T) {
	tests := []struct {
		name     string  // test description
		capacity uint64  // filter capacity
		fpRate   float64 // target false positive rate
		err      error   // expected error kind
	}{{
		name:     "zero capacity",
		capacity: 0,
		fpRate:   0.01,
		err:      ErrInvalidCapacity,
	}, {
		name:     "zero rate",
		capacity: 1000,
		fpRate:   0,
		err:      ErrInvalidFPRate,
	}, {
		name:     "negative rate",
		capacity: 1000,
		fpRate:   -0.01,
		err:      ErrInvalidFPRate,
	}, {
		name:     "rate of exactly one",
		capacity: 1000,
		fpRate:   1,
		err:      ErrInvalidFPRate,
	}, {
		name:     "rate above one",
		capacity: 1000,
		fpRate:   1.5,
		err:      ErrInvalidFPRate,
	}, {
		name:     "NaN rate",
		capacity: 1000,
		fpRate:   math.NaN(),
		err:      ErrInvalidFPRate,
	}, {
		name:     "positive infinity rate",
		capacity: 1000,
		fpRate:   math.Inf(1),
		err:      ErrInvalidFPRate,
	}, {
		name:     "capacity requires too many bits",
		capacity: math.MaxUint64,
		fpRate:   0.01,
		err:      ErrFilterTooLarge,
	}}

	t.Logf("Running %d tests", len(tests))
	for _, test := range tests {
		_, err := NewFilter(test.capacity, test.fpRate)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: unexpected error -- got %v, want %v",
				test.name, err, test.err)
			continue
		}
	}
}

// TestFilterAddContains ensures that adding items to a filter results in all
// of them being reported as members and that the false positive rate for
// items that were never added remains within a reasonable bound of the
// target rate.
func TestFilterAddContains(t *testing.T) {
	const capacity = 1000
	const fpRate = 0.01
	f, err := NewFilter(capacity, fpRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Add items up to the capacity of the filter and ensure each of them is
	// immediately reported as a member.  Bloom filters never produce false
	// negatives, so every added item must be found.  Individual adds may
	// legitimately report zero newly set bits when an item collides with
	// previously added items on all of its probe indices, so only the range
	// of the result is checked.
	for i := 0; i < capacity; i++ {
		item := []byte(fmt.Sprintf("item %d", i))
		if n := f.Add(item); n > f.HashCount() {
			t.Fatalf("item %d: add set %d bits, want at most %d", i,
				n, f.HashCount())
		}
		if !f.Contains(item) {
			t.Fatalf("item %d: not a member after add", i)
		}
	}

	// Re-adding an existing item must report zero newly set bits since all
	// of its probe bits were set by the first add.
	if n := f.Add([]byte("item 0")); n != 0 {
		t.Fatalf("re-add of existing item set %d bits, want 0", n)
	}

	// Every previously added item must still be a member after the filter
	// is filled to capacity.
	for i := 0; i < capacity; i++ {
		item := []byte(fmt.Sprintf("item %d", i))
		if !f.Contains(item) {
			t.Fatalf("item %d: not a member after fill", i)
		}
	}

	// Query items that were never added and ensure the number of false
	// positives stays within a generous multiple of the target rate.  The
	// bound is intentionally loose so the test is not sensitive to the
	// specific hash outcomes.
	const numProbes = 10000
	const maxFalsePositives = 3 * fpRate * numProbes
	var falsePositives int
	for i := 0; i < numProbes; i++ {
		item := []byte(fmt.Sprintf("absent %d", i))
		if f.Contains(item) {
			falsePositives++
		}
	}
	if falsePositives > maxFalsePositives {
		t.Fatalf("too many false positives -- got %d, want at most %v",
			falsePositives, maxFalsePositives)
	}
}

// TestFilterNewlySet ensures the number of newly set bits reported by Add
// stays within the expected range and reaches zero once an item is fully
// present.
func TestFilterNewlySet(t *testing.T) {
	f, err := NewFilter(1000, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first add of an item to an empty filter sets one bit per distinct
	// probe index, so the result must be between 1 and the hash count.
	item := []byte("first item")
	n := f.Add(item)
	if n == 0 || n > f.HashCount() {
		t.Fatalf("first add set %d bits, want between 1 and %d", n,
			f.HashCount())
	}

	// Subsequent adds of the same item must not set any further bits.
	for i := 0; i < 3; i++ {
		if n := f.Add(item); n != 0 {
			t.Fatalf("repeated add set %d bits, want 0", n)
		}
	}
}

// TestFilterParams ensures filters reconstructed from serialized parameters
// share the membership of the original filter and that invalid parameters
// are rejected with the expected errors.
func TestFilterParams(t *testing.T) {
	const numItems = 100
	f, err := NewFilter(1000, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < numItems; i++ {
		f.Add([]byte(fmt.Sprintf("item %d", i)))
	}

	// Reconstruct a second filter from the parameters and bit buffer of the
	// first and ensure all parameters and memberships carry over.
	f2, err := NewFilterParams(f.Capacity(), f.FPRate(), f.HashCount(),
		f.BitsPerElement(), f.Buffer())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f2.Capacity() != f.Capacity() {
		t.Fatalf("unexpected capacity -- got %d, want %d", f2.Capacity(),
			f.Capacity())
	}
	if f2.HashCount() != f.HashCount() {
		t.Fatalf("unexpected hash count -- got %d, want %d",
			f2.HashCount(), f.HashCount())
	}
	if f2.Bits() != f.Bits() {
		t.Fatalf("unexpected bit count -- got %d, want %d", f2.Bits(),
			f.Bits())
	}
	for i := 0; i < numItems; i++ {
		item := []byte(fmt.Sprintf("item %d", i))
		if !f2.Contains(item) {
			t.Fatalf("item %d: not a member of reconstructed filter",
				i)
		}
	}

	// Ensure invalid reconstruction parameters produce the expected errors.
	buf := f.Buffer()
	tests := []struct {
		name     string  // test description
		capacity uint64  // filter capacity
		hashes   uint32  // number of hash functions
		bpe      float64 // bits per element
		buf      []byte  // bit buffer
		err      error   // expected error kind
	}{{
		name:     "zero capacity",
		capacity: 0,
		hashes:   7,
		bpe:      f.BitsPerElement(),
		buf:      buf,
		err:      ErrInvalidCapacity,
	}, {
		name:     "zero hash count",
		capacity: 1000,
		hashes:   0,
		bpe:      f.BitsPerElement(),
		buf:      buf,
		err:      ErrInvalidHashCount,
	}, {
		name:     "zero bits per element",
		capacity: 1000,
		hashes:   7,
		bpe:      0,
		buf:      buf,
		err:      ErrInvalidFPRate,
	}, {
		name:     "NaN bits per element",
		capacity: 1000,
		hashes:   7,
		bpe:      math.NaN(),
		buf:      buf,
		err:      ErrInvalidFPRate,
	}, {
		name:     "infinite bits per element",
		capacity: 1000,
		hashes:   7,
		bpe:      math.Inf(1),
		buf:      buf,
		err:      ErrInvalidFPRate,
	}, {
		name:     "short buffer",
		capacity: 1000,
		hashes:   7,
		bpe:      f.BitsPerElement(),
		buf:      buf[:len(buf)-1],
		err:      ErrBufferLength,
	}, {
		name:     "long buffer",
		capacity: 1000,
		hashes:   7,
		bpe:      f.BitsPerElement(),
		buf:      append([]byte{}, append(buf, 0x00)...),
		err:      ErrBufferLength,
	}, {
		name:     "buffer for smaller capacity",
		capacity: 500,
		hashes:   7,
		bpe:      f.BitsPerElement(),
		buf:      buf,
		err:      ErrBufferLength,
	}, {
		name:     "capacity requires too many bits",
		capacity: math.MaxUint64,
		hashes:   7,
		bpe:      f.BitsPerElement(),
		buf:      buf,
		err:      ErrFilterTooLarge,
	}}

	t.Logf("Running %d tests", len(tests))
	for _, test := range tests {
		_, err := NewFilterParams(test.capacity, 0.01, test.hashes,
			test.bpe, test.buf)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: unexpected error -- got %v, want %v",
				test.name, err, test.err)
			continue
		}
	}
}

// TestFilterDeterministicProbes ensures two independent filters with the same
// parameters probe identical bits for the same item.  The probe indices must
// be stable across instances since serialized filters are reloaded and
// queried by later processes.
func TestFilterDeterministicProbes(t *testing.T) {
	f1, err := NewFilter(1000, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f2, err := NewFilter(1000, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 100; i++ {
		item := []byte(fmt.Sprintf("item %d", i))
		f1.Add(item)
		f2.Add(item)
	}

	buf1, buf2 := f1.Buffer(), f2.Buffer()
	if len(buf1) != len(buf2) {
		t.Fatalf("mismatched buffer lengths -- got %d and %d",
			len(buf1), len(buf2))
	}
	for i := range buf1 {
		if buf1[i] != buf2[i] {
			t.Fatalf("mismatched buffers at byte %d -- got %#02x, "+
				"want %#02x", i, buf1[i], buf2[i])
		}
	}
}

// BenchmarkFilterAdd benchmarks adding items to a filter.
func BenchmarkFilterAdd(b *testing.B) {
	f, err := NewFilter(1000000, 0.01)
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	data := []byte("benchmark item")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Add(data)
	}
}

// BenchmarkFilterContains benchmarks querying a filter for membership.
func BenchmarkFilterContains(b *testing.B) {
	f, err := NewFilter(1000000, 0.01)
	if err != nil {
		b.Fatalf("unexpected error: %v", err)
	}
	data := []byte("benchmark item")
	f.Add(data)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Contains(data)
	}
}
