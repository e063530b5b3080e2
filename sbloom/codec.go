// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sbloom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/decred/dcrd/crypto/blake256"

	"github.com/bloomdb/bloomd/container/bloom"
	"github.com/bloomdb/bloomd/serial"
)

// The serialized format of a scalable filter consists of a header followed
// by every filter in the chain ordered oldest first and a terminator:
//
//	total entries    varint
//	error rate       8 bytes, IEEE 754 double, little endian
//	fixed mode flag  varint, 0 or 1
//
//	for each filter, oldest to newest:
//	  capacity          varint, never 0
//	  hash count        varint
//	  bits per element  8 bytes, IEEE 754 double, little endian
//	  bit buffer        varint length followed by the raw bytes
//	  fill              varint
//
//	terminator       varint 0 where a capacity would otherwise appear
//
// The total bit count of each filter is not serialized since it is always
// recomputable from the capacity and bits per element, and the error rate is
// not serialized per filter since every filter in a chain shares the one in
// the header.  All varints use the canonical encoding enforced by the serial
// package, so a given filter has exactly one serialization and decoding
// followed by encoding reproduces the original stream byte for byte.

// decodeError converts an error produced by the stream primitives while
// reading the named field into the error taxonomy of this package.  A stream
// that ends prematurely maps to ErrDecodeTruncated and a value the stream
// primitives reject maps to ErrDecodeCorrupt.  All other errors, such as
// failures from the underlying reader, pass through unchanged.
func decodeError(fn, field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		desc := fmt.Sprintf("stream ended while reading %s", field)
		return makeError(fn, ErrDecodeTruncated, desc)
	}
	var serialErr serial.Error
	if errors.As(err, &serialErr) {
		desc := fmt.Sprintf("invalid %s: %v", field, err)
		return makeError(fn, ErrDecodeCorrupt, desc)
	}
	return err
}

// SerializeSize returns the number of bytes it would take to serialize the
// filter.
func (f *Filter) SerializeSize() int {
	// Total entries + error rate + fixed mode flag.
	n := serial.VarIntSerializeSize(f.totalEntries) + 8 + 1

	// Chain terminator.
	n++

	for i := range f.filters {
		cf := &f.filters[i]
		n += serial.VarIntSerializeSize(cf.filter.Capacity())
		n += serial.VarIntSerializeSize(uint64(cf.filter.HashCount()))
		n += 8
		n += serial.VarIntSerializeSize(cf.filter.Size())
		n += int(cf.filter.Size())
		n += serial.VarIntSerializeSize(cf.fill)
	}
	return n
}

// Encode serializes the filter to w in the format described above.  The
// stream does not include the format version, which callers are expected to
// store alongside it and provide back to Decode.
func (f *Filter) Encode(w io.Writer) error {
	err := serial.WriteVarInt(w, f.totalEntries)
	if err != nil {
		return err
	}
	err = serial.WriteFloat64(w, f.errorRate)
	if err != nil {
		return err
	}
	var fixed uint64
	if f.fixed {
		fixed = 1
	}
	err = serial.WriteVarInt(w, fixed)
	if err != nil {
		return err
	}

	for i := range f.filters {
		cf := &f.filters[i]
		err = serial.WriteVarInt(w, cf.filter.Capacity())
		if err != nil {
			return err
		}
		err = serial.WriteVarInt(w, uint64(cf.filter.HashCount()))
		if err != nil {
			return err
		}
		err = serial.WriteFloat64(w, cf.filter.BitsPerElement())
		if err != nil {
			return err
		}
		err = serial.WriteVarBytes(w, cf.filter.Buffer())
		if err != nil {
			return err
		}
		err = serial.WriteVarInt(w, cf.fill)
		if err != nil {
			return err
		}
	}

	// Chain terminator.
	return serial.WriteVarInt(w, 0)
}

// Bytes returns the serialized filter.  See Encode for the format.
func (f *Filter) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, f.SerializeSize()))
	err := f.Encode(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the BLAKE-256 hash of the serialized filter.  Since the
// serialization is deterministic, the hash identifies the exact contents of
// the filter and changes whenever an item is inserted.
func (f *Filter) Hash() [blake256.Size]byte {
	hasher := blake256.NewHasher256()

	// Writes to the hasher never fail.
	_ = f.Encode(hasher)
	return hasher.Sum256()
}

// Decode decodes a serialized filter of the provided format version from r
// and returns it.  The version is the one that accompanied the stream when
// it was stored and must be FilterVersion, otherwise an error with kind
// ErrUnsupportedVersion is returned.
//
// An error with kind ErrDecodeTruncated is returned when the stream ends
// before the chain terminator and an error with kind ErrDecodeCorrupt is
// returned when the stream contains values no supported encoder produces.
// No partially decoded chain is ever returned.
func Decode(r io.Reader, version uint32) (*Filter, error) {
	const fn = "Decode"
	if version != FilterVersion {
		desc := fmt.Sprintf("serialization format version %d is not "+
			"supported", version)
		return nil, makeError(fn, ErrUnsupportedVersion, desc)
	}

	totalEntries, err := serial.ReadVarInt(r)
	if err != nil {
		return nil, decodeError(fn, "total entries", err)
	}
	errorRate, err := serial.ReadFloat64(r)
	if err != nil {
		return nil, decodeError(fn, "error rate", err)
	}
	if math.IsNaN(errorRate) || errorRate <= 0 || errorRate >= 1 {
		desc := fmt.Sprintf("error rate of %v is not in the valid "+
			"range (0, 1)", errorRate)
		return nil, makeError(fn, ErrDecodeCorrupt, desc)
	}
	fixedFlag, err := serial.ReadVarInt(r)
	if err != nil {
		return nil, decodeError(fn, "fixed mode flag", err)
	}
	if fixedFlag > 1 {
		desc := fmt.Sprintf("fixed mode flag of %d is not 0 or 1",
			fixedFlag)
		return nil, makeError(fn, ErrDecodeCorrupt, desc)
	}

	// Filters are serialized oldest first, so appending each decoded
	// filter yields the in-memory chain order with the newest filter in
	// the final position where adds are directed.
	var filters []chainedFilter
	for {
		capacity, err := serial.ReadVarInt(r)
		if err != nil {
			return nil, decodeError(fn, "filter capacity", err)
		}
		if capacity == 0 {
			// Chain terminator.
			break
		}
		hashCount, err := serial.ReadVarInt(r)
		if err != nil {
			return nil, decodeError(fn, "filter hash count", err)
		}
		if hashCount == 0 || hashCount > math.MaxUint32 {
			desc := fmt.Sprintf("filter hash count of %d is not in "+
				"the valid range [1, %d]", hashCount,
				uint64(math.MaxUint32))
			return nil, makeError(fn, ErrDecodeCorrupt, desc)
		}
		bpe, err := serial.ReadFloat64(r)
		if err != nil {
			return nil, decodeError(fn, "filter bits per element",
				err)
		}
		buf, err := serial.ReadVarBytes(r, maxFilterBytes,
			"filter bit buffer")
		if err != nil {
			return nil, decodeError(fn, "filter bit buffer", err)
		}
		fill, err := serial.ReadVarInt(r)
		if err != nil {
			return nil, decodeError(fn, "filter fill", err)
		}

		ef, err := bloom.NewFilterParams(capacity, errorRate,
			uint32(hashCount), bpe, buf)
		if err != nil {
			desc := fmt.Sprintf("invalid filter parameters: %v", err)
			return nil, makeError(fn, ErrDecodeCorrupt, desc)
		}
		if fill > ef.Bits() {
			desc := fmt.Sprintf("filter fill of %d exceeds the %d "+
				"total bits of the filter", fill, ef.Bits())
			return nil, makeError(fn, ErrDecodeCorrupt, desc)
		}
		filters = append(filters, chainedFilter{filter: ef, fill: fill})
	}
	if len(filters) == 0 {
		desc := "serialized filter does not contain any filters"
		return nil, makeError(fn, ErrDecodeCorrupt, desc)
	}

	return &Filter{
		filters:      filters,
		totalEntries: totalEntries,
		errorRate:    errorRate,
		fixed:        fixedFlag == 1,
	}, nil
}
