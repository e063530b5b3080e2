// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidCapacity is returned when a filter is created with a
	// capacity of zero.
	ErrInvalidCapacity = ErrorKind("ErrInvalidCapacity")

	// ErrInvalidFPRate is returned when a filter is created with a false
	// positive rate that is not strictly between 0 and 1 or is not finite.
	ErrInvalidFPRate = ErrorKind("ErrInvalidFPRate")

	// ErrInvalidHashCount is returned when a filter is reconstructed from
	// serialized parameters and the number of hash functions is zero.
	ErrInvalidHashCount = ErrorKind("ErrInvalidHashCount")

	// ErrBufferLength is returned when a filter is reconstructed from
	// serialized parameters and the provided bit buffer does not match the
	// length implied by those parameters.
	ErrBufferLength = ErrorKind("ErrBufferLength")

	// ErrFilterTooLarge is returned when the capacity and bits per element
	// of a filter imply a bit array beyond the supported maximum size.
	ErrFilterTooLarge = ErrorKind("ErrFilterTooLarge")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a filter construction error.  It has full support for
// errors.Is and errors.As, so the caller can ascertain the specific reason
// for the error by checking the underlying error.
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
