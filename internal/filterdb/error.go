// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package filterdb

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific store Error.
const (
	// ------------------------------------------
	// Errors related to the store itself.
	// ------------------------------------------

	// ErrInvalidOptions indicates the store was opened with invalid
	// options, such as a default error rate outside the valid range.
	ErrInvalidOptions = ErrorKind("ErrInvalidOptions")

	// ErrStoreClosed indicates an operation was performed against a store
	// that has already been closed.
	ErrStoreClosed = ErrorKind("ErrStoreClosed")

	// ErrStoreVersion indicates the version of an existing store does not
	// match the version supported by the running software.
	ErrStoreVersion = ErrorKind("ErrStoreVersion")

	// ErrStoreCorruption indicates a stored record could not be read back
	// in the format it was written.
	ErrStoreCorruption = ErrorKind("ErrStoreCorruption")

	// ErrStoreFailure indicates an error inside the underlying database
	// that is not covered by a more specific kind.
	ErrStoreFailure = ErrorKind("ErrStoreFailure")

	// ------------------------------------------
	// Errors related to filter operations.
	// ------------------------------------------

	// ErrFilterExists indicates an attempt to create a filter under a
	// name that already holds one.
	ErrFilterExists = ErrorKind("ErrFilterExists")

	// ErrFilterNotFound indicates an attempt to operate on a filter that
	// does not exist.
	ErrFilterNotFound = ErrorKind("ErrFilterNotFound")

	// ErrMismatchedType indicates the record under the requested name
	// does not hold a bloom filter.
	ErrMismatchedType = ErrorKind("ErrMismatchedType")

	// ErrFilterFixed indicates an attempt to add items to a filter that
	// was created in fixed mode.
	ErrFilterFixed = ErrorKind("ErrFilterFixed")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a store error.  It has full support for errors.Is and
// errors.As, so the caller can ascertain the specific reason for the error
// by checking the underlying error.
type Error struct {
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
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
