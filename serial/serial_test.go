// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package serial

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// TestVarIntSerial tests encode and decode for variable length integers.
func TestVarIntSerial(t *testing.T) {
	tests := []struct {
		in  uint64 // Value to encode
		out uint64 // Expected decoded value
		buf []byte // Serialized encoding
	}{
		// Single byte
		{0, 0, []byte{0x00}},
		// Max single byte
		{0xfc, 0xfc, []byte{0xfc}},
		// Min 2-byte
		{0xfd, 0xfd, []byte{0xfd, 0xfd, 0x00}},
		// Max 2-byte
		{0xffff, 0xffff, []byte{0xfd, 0xff, 0xff}},
		// Min 4-byte
		{0x10000, 0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		// Max 4-byte
		{0xffffffff, 0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		// Min 8-byte
		{
			0x100000000, 0x100000000,
			[]byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
		},
		// Max 8-byte
		{
			0xffffffffffffffff, 0xffffffffffffffff,
			[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to the serialized format.
		var buf bytes.Buffer
		err := WriteVarInt(&buf, test.in)
		if err != nil {
			t.Errorf("WriteVarInt #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("WriteVarInt #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		// Decode from the serialized format.
		rbuf := bytes.NewReader(test.buf)
		val, err := ReadVarInt(rbuf)
		if err != nil {
			t.Errorf("ReadVarInt #%d error %v", i, err)
			continue
		}
		if val != test.out {
			t.Errorf("ReadVarInt #%d\n got: %d want: %d", i,
				val, test.out)
			continue
		}
	}
}

// TestVarIntSerialErrors performs negative tests against encode and decode of
// variable length integers to confirm error paths work correctly.
func TestVarIntSerialErrors(t *testing.T) {
	tests := []struct {
		in       uint64 // Value to encode
		buf      []byte // Serialized encoding
		max      int    // Max size of fixed buffer to induce errors
		writeErr error  // Expected write error
		readErr  error  // Expected read error
	}{
		// Force errors on discriminant.
		{0, []byte{0x00}, 0, io.ErrShortWrite, io.EOF},
		// Force errors on 2-byte read/write.
		{0xfd, []byte{0xfd}, 2, io.ErrShortWrite, io.ErrUnexpectedEOF},
		// Force errors on 4-byte read/write.
		{0x10000, []byte{0xfe}, 2, io.ErrShortWrite, io.ErrUnexpectedEOF},
		// Force errors on 8-byte read/write.
		{0x100000000, []byte{0xff}, 2, io.ErrShortWrite, io.ErrUnexpectedEOF},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to the serialized format.
		w := newFixedWriter(test.max)
		err := WriteVarInt(w, test.in)
		if !errors.Is(err, test.writeErr) {
			t.Errorf("WriteVarInt #%d wrong error got: %v, want: %v",
				i, err, test.writeErr)
			continue
		}

		// Decode from the serialized format.
		r := newFixedReader(test.max, test.buf)
		_, err = ReadVarInt(r)
		if !errors.Is(err, test.readErr) {
			t.Errorf("ReadVarInt #%d wrong error got: %v, want: %v",
				i, err, test.readErr)
			continue
		}
	}
}

// TestVarIntNonCanonical ensures variable length integers that are not
// canonically encoded are detected.
func TestVarIntNonCanonical(t *testing.T) {
	tests := []struct {
		name string // Test name for easier identification
		in   []byte // Value to decode
	}{
		{
			"0 encoded with 3 bytes",
			[]byte{0xfd, 0x00, 0x00},
		},
		{
			"max single-byte value encoded with 3 bytes",
			[]byte{0xfd, 0xfc, 0x00},
		},
		{
			"0 encoded with 5 bytes",
			[]byte{0xfe, 0x00, 0x00, 0x00, 0x00},
		},
		{
			"max three-byte value encoded with 5 bytes",
			[]byte{0xfe, 0xff, 0xff, 0x00, 0x00},
		},
		{
			"0 encoded with 9 bytes",
			[]byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			"max five-byte value encoded with 9 bytes",
			[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00},
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Decode from the serialized format.
		rbuf := bytes.NewReader(test.in)
		val, err := ReadVarInt(rbuf)
		if !errors.Is(err, ErrNonCanonicalVarInt) {
			t.Errorf("ReadVarInt #%d (%s) unexpected error %v", i,
				test.name, err)
			continue
		}
		if val != 0 {
			t.Errorf("ReadVarInt #%d (%s)\n got: %d want: 0", i,
				test.name, val)
			continue
		}
	}
}

// TestVarIntSerializeSize tests the serialize size for variable length
// integers.
func TestVarIntSerializeSize(t *testing.T) {
	tests := []struct {
		val  uint64 // Value to get the serialized size for
		size int    // Expected serialized size
	}{
		// Single byte
		{0, 1},
		// Max single byte
		{0xfc, 1},
		// Min 2-byte
		{0xfd, 3},
		// Max 2-byte
		{0xffff, 3},
		// Min 4-byte
		{0x10000, 5},
		// Max 4-byte
		{0xffffffff, 5},
		// Min 8-byte
		{0x100000000, 9},
		// Max 8-byte
		{0xffffffffffffffff, 9},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		serializedSize := VarIntSerializeSize(test.val)
		if serializedSize != test.size {
			t.Errorf("VarIntSerializeSize #%d got: %d, want: %d", i,
				serializedSize, test.size)
			continue
		}
	}
}

// TestVarBytesSerial tests encode and decode for variable length byte arrays.
func TestVarBytesSerial(t *testing.T) {
	sizedBytes := func(size uint64, fill byte) []byte {
		b := make([]byte, size)
		for i := range b {
			b[i] = fill
		}
		return b
	}

	tests := []struct {
		in  []byte // Byte array to encode
		buf []byte // Serialized encoding
	}{
		// Empty byte array
		{[]byte{}, []byte{0x00}},
		// Single byte varint + byte
		{[]byte{0x01}, []byte{0x01, 0x01}},
		// 2-byte varint + byte array
		{
			sizedBytes(256, 0xab),
			append([]byte{0xfd, 0x00, 0x01}, sizedBytes(256, 0xab)...),
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to the serialized format.
		var buf bytes.Buffer
		err := WriteVarBytes(&buf, test.in)
		if err != nil {
			t.Errorf("WriteVarBytes #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("WriteVarBytes #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		// Decode from the serialized format.
		rbuf := bytes.NewReader(test.buf)
		val, err := ReadVarBytes(rbuf, maxTestPayload, "test payload")
		if err != nil {
			t.Errorf("ReadVarBytes #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(val, test.in) {
			t.Errorf("ReadVarBytes #%d\n got: %s want: %s", i,
				spew.Sdump(val), spew.Sdump(test.in))
			continue
		}
	}
}

// maxTestPayload is the maximum variable byte array length the tests allow.
const maxTestPayload = 1024 * 1024

// TestVarBytesSerialErrors performs negative tests against encode and decode
// of variable length byte arrays to confirm error paths work correctly.
func TestVarBytesSerialErrors(t *testing.T) {
	tests := []struct {
		in       []byte // Byte array to encode
		buf      []byte // Serialized encoding
		max      int    // Max size of fixed buffer to induce errors
		writeErr error  // Expected write error
		readErr  error  // Expected read error
	}{
		// Force errors on the byte array length.
		{[]byte{0x01}, []byte{0x01}, 0, io.ErrShortWrite, io.EOF},
		// Force errors on the byte array contents.
		{[]byte{0x01, 0x02}, []byte{0x02}, 2, io.ErrShortWrite, io.ErrUnexpectedEOF},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to the serialized format.
		w := newFixedWriter(test.max)
		err := WriteVarBytes(w, test.in)
		if !errors.Is(err, test.writeErr) {
			t.Errorf("WriteVarBytes #%d wrong error got: %v, want: %v",
				i, err, test.writeErr)
			continue
		}

		// Decode from the serialized format.
		r := newFixedReader(test.max, test.buf)
		_, err = ReadVarBytes(r, maxTestPayload, "test payload")
		if !errors.Is(err, test.readErr) {
			t.Errorf("ReadVarBytes #%d wrong error got: %v, want: %v",
				i, err, test.readErr)
			continue
		}
	}
}

// TestVarBytesOverflowErrors performs tests to ensure deserializing variable
// length byte arrays which are larger than the caller-provided maximum length
// are handled properly.  This could otherwise potentially be used as an attack
// vector.
func TestVarBytesOverflowErrors(t *testing.T) {
	tests := []struct {
		buf []byte // Serialized encoding
	}{
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{[]byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		rbuf := bytes.NewReader(test.buf)
		_, err := ReadVarBytes(rbuf, maxTestPayload, "test payload")
		if !errors.Is(err, ErrVarBytesTooLong) {
			t.Errorf("ReadVarBytes #%d wrong error got: %v, want: %v",
				i, err, ErrVarBytesTooLong)
			continue
		}
	}
}

// TestFloat64Serial tests encode and decode of IEEE 754 doubles, including
// that the bit patterns survive exactly.
func TestFloat64Serial(t *testing.T) {
	tests := []struct {
		in  float64 // Value to encode
		buf []byte  // Serialized encoding
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{1, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f}},
		{0.01, []byte{0x7b, 0x14, 0xae, 0x47, 0xe1, 0x7a, 0x84, 0x3f}},
		{-2, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc0}},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to the serialized format.
		var buf bytes.Buffer
		err := WriteFloat64(&buf, test.in)
		if err != nil {
			t.Errorf("WriteFloat64 #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("WriteFloat64 #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		// Decode from the serialized format.
		rbuf := bytes.NewReader(test.buf)
		val, err := ReadFloat64(rbuf)
		if err != nil {
			t.Errorf("ReadFloat64 #%d error %v", i, err)
			continue
		}
		if math.Float64bits(val) != math.Float64bits(test.in) {
			t.Errorf("ReadFloat64 #%d\n got: %v want: %v", i, val,
				test.in)
			continue
		}
	}

	// Ensure a NaN bit pattern round-trips exactly even though NaN does not
	// compare equal to itself.
	nan := math.Float64frombits(0x7ff8000000000001)
	var buf bytes.Buffer
	if err := WriteFloat64(&buf, nan); err != nil {
		t.Fatalf("WriteFloat64 NaN error %v", err)
	}
	got, err := ReadFloat64(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFloat64 NaN error %v", err)
	}
	if math.Float64bits(got) != math.Float64bits(nan) {
		t.Fatalf("NaN bit pattern mismatch -- got %x, want %x",
			math.Float64bits(got), math.Float64bits(nan))
	}
}

// TestUint64Serial tests encode and decode of fixed-width uint64 values.
func TestUint64Serial(t *testing.T) {
	tests := []struct {
		in  uint64 // Value to encode
		buf []byte // Serialized encoding
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{1, []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{
			0x1122334455667788,
			[]byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11},
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		var buf bytes.Buffer
		err := WriteUint64(&buf, test.in)
		if err != nil {
			t.Errorf("WriteUint64 #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("WriteUint64 #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		rbuf := bytes.NewReader(test.buf)
		val, err := ReadUint64(rbuf)
		if err != nil {
			t.Errorf("ReadUint64 #%d error %v", i, err)
			continue
		}
		if val != test.in {
			t.Errorf("ReadUint64 #%d\n got: %d want: %d", i, val,
				test.in)
			continue
		}
	}
}

// TestUint32Serial tests encode and decode of fixed-width uint32 values.
func TestUint32Serial(t *testing.T) {
	tests := []struct {
		in  uint32 // Value to encode
		buf []byte // Serialized encoding
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x00}},
		{1, []byte{0x01, 0x00, 0x00, 0x00}},
		{0x11223344, []byte{0x44, 0x33, 0x22, 0x11}},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		var buf bytes.Buffer
		err := WriteUint32(&buf, test.in)
		if err != nil {
			t.Errorf("WriteUint32 #%d error %v", i, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("WriteUint32 #%d\n got: %s want: %s", i,
				spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}

		rbuf := bytes.NewReader(test.buf)
		val, err := ReadUint32(rbuf)
		if err != nil {
			t.Errorf("ReadUint32 #%d error %v", i, err)
			continue
		}
		if val != test.in {
			t.Errorf("ReadUint32 #%d\n got: %d want: %d", i, val,
				test.in)
			continue
		}
	}
}

// TestShortReadsGenericReader ensures the short read optimizations work with
// reader types that do not have a special-cased fast path.
func TestShortReadsGenericReader(t *testing.T) {
	// strings.Reader is not one of the special-cased reader types, so this
	// exercises the freelist fallback path.
	r := strings.NewReader(string([]byte{0xfd, 0x34, 0x12}))
	val, err := ReadVarInt(r)
	if err != nil {
		t.Fatalf("ReadVarInt error %v", err)
	}
	if val != 0x1234 {
		t.Fatalf("ReadVarInt got %x, want %x", val, 0x1234)
	}

	// An exhausted generic reader must report io.EOF.
	_, err = ReadVarInt(strings.NewReader(""))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("ReadVarInt wrong error got: %v, want: %v", err, io.EOF)
	}
}
