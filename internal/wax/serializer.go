// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package wax

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrShortBuffer is returned when a decoder runs out of input.
var ErrShortBuffer = errors.New("unexpected end of serialized data")

// maxCollectionLength bounds vector/flat_map lengths read from untrusted input.
const maxCollectionLength = 1 << 16

// Encoder writes values in the Hive binary (fc::raw) layout.
// All integers are little-endian; lengths are unsigned LEB128 varints.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded data.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) Uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Int16(v int16) {
	e.Uint16(uint16(v)) // #nosec G115 - two's complement reinterpretation
}

func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Int64(v int64) {
	e.Uint64(uint64(v)) // #nosec G115 - two's complement reinterpretation
}

// Varint writes an unsigned LEB128 integer (fc::unsigned_int).
func (e *Encoder) Varint(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// Raw writes bytes without a length prefix.
func (e *Encoder) Raw(b []byte) {
	e.buf.Write(b)
}

// String writes a length-prefixed string.
func (e *Encoder) String(s string) {
	e.Varint(uint64(len(s)))
	e.buf.WriteString(s)
}

// Strings writes a vector or flat_set of strings. Callers are responsible for ordering.
func (e *Encoder) Strings(values []string) {
	e.Varint(uint64(len(values)))
	for _, s := range values {
		e.String(s)
	}
}

// Time writes a time_point_sec (seconds since epoch, uint32).
func (e *Encoder) Time(t Time) {
	e.Uint32(uint32(t.Unix())) // #nosec G115 - time_point_sec is 32-bit by protocol
}

// EmptyExtensions writes an empty extensions vector.
func (e *Encoder) EmptyExtensions() {
	e.Varint(0)
}

// Decoder reads values written by Encoder.
// The first error sticks; subsequent reads return zero values.
type Decoder struct {
	data []byte
	pos  int
	err  error
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// Fail records err unless an earlier error is already set.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.Remaining() < n {
		d.err = ErrShortBuffer
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Uint16() uint16 {
	b := d.read(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) Int16() int16 {
	return int16(d.Uint16()) // #nosec G115 - two's complement reinterpretation
}

func (d *Decoder) Uint32() uint32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.read(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Int64() int64 {
	return int64(d.Uint64()) // #nosec G115 - two's complement reinterpretation
}

// Varint reads an unsigned LEB128 integer.
func (d *Decoder) Varint() uint64 {
	var result uint64
	var shift uint
	for {
		b := d.read(1)
		if b == nil {
			return 0
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return result
		}
		shift += 7
		if shift >= 64 {
			d.Fail(fmt.Errorf("varint overflows 64 bits"))
			return 0
		}
	}
}

// Length reads a collection length and rejects values that cannot fit in the input.
func (d *Decoder) Length() int {
	n := d.Varint()
	if d.err != nil {
		return 0
	}
	if n > maxCollectionLength || n > uint64(d.Remaining()) {
		d.Fail(fmt.Errorf("collection length %d exceeds remaining input", n))
		return 0
	}
	return int(n) // #nosec G115 - bounded above
}

func (d *Decoder) Bool() bool {
	v := d.Uint8()
	if v > 1 {
		d.Fail(fmt.Errorf("invalid bool value %d", v))
	}
	return v == 1
}

// Raw reads n bytes without a length prefix.
func (d *Decoder) Raw(n int) []byte {
	b := d.read(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *Decoder) String() string {
	n := d.Length()
	b := d.read(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (d *Decoder) Strings() []string {
	n := d.Length()
	values := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		values = append(values, d.String())
	}
	return values
}

func (d *Decoder) Time() Time {
	return Time{time.Unix(int64(d.Uint32()), 0).UTC()}
}

// EmptyExtensions reads an extensions vector, which must be empty.
func (d *Decoder) EmptyExtensions() {
	if n := d.Varint(); n != 0 {
		d.Fail(fmt.Errorf("unsupported extensions (count %d)", n))
	}
}
