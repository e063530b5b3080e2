// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sbloom

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidErrorRate is returned when a filter is created with a
	// target false positive rate that is not a positive finite value
	// strictly less than one.
	ErrInvalidErrorRate = ErrorKind("ErrInvalidErrorRate")

	// ErrUnsupportedVersion is returned when a serialized filter declares
	// a format version this package does not support.
	ErrUnsupportedVersion = ErrorKind("ErrUnsupportedVersion")

	// ErrDecodeTruncated is returned when a serialized filter stream ends
	// before the chain terminator is read.
	ErrDecodeTruncated = ErrorKind("ErrDecodeTruncated")

	// ErrDecodeCorrupt is returned when a serialized filter stream is
	// well-formed enough to read but contains values that could not have
	// been produced by any supported encoder.
	ErrDecodeCorrupt = ErrorKind("ErrDecodeCorrupt")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a filter error.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.  The Func field identifies the function
// that produced the error.
type Error struct {
	Func        string
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(fn string, kind ErrorKind, desc string) Error {
	return Error{Func: fn, Err: kind, Description: desc}
}
