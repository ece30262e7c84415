// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Reader reads fields of arbitrary bit width from a byte source.
// A Reader is not safe for concurrent use.
type Reader struct {
	src       io.Reader
	byteOrder binary.ByteOrder
	bitOrder  BitOrder
	little    bool

	cur byte  // byte being consumed when off > 0
	off uint8 // bits of cur already consumed, always in [0,8)
	pos int   // bytes pulled from src

	capturing bool
	captured  []byte

	one [1]byte
}

// NewReader returns a Reader consuming src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	o := newOptions(opts)
	return &Reader{
		src:       src,
		byteOrder: o.byteOrder,
		bitOrder:  o.bitOrder,
		little:    littleEndian(o.byteOrder),
	}
}

// ByteOrder returns the byte order of multi-byte fields.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.byteOrder }

// BitOrder returns the packing of sub-byte fields.
func (r *Reader) BitOrder() BitOrder { return r.bitOrder }

// Aligned reports whether the cursor sits on a byte boundary.
func (r *Reader) Aligned() bool { return r.off == 0 }

// Align drops the unread bits of a partially consumed byte.
func (r *Reader) Align() { r.off = 0 }

// Pos returns the number of bytes pulled from the source, including a
// partially consumed byte.
func (r *Reader) Pos() int { return r.pos }

// Mark starts capturing the raw bytes pulled from the source.
func (r *Reader) Mark() {
	r.capturing = true
	r.captured = r.captured[:0]
}

// Captured stops capturing and returns a copy of the bytes pulled since Mark.
func (r *Reader) Captured() []byte {
	r.capturing = false
	out := make([]byte, len(r.captured))
	copy(out, r.captured)
	return out
}

func (r *Reader) nextByte() (byte, error) {
	var b byte
	if br, ok := r.src.(io.ByteReader); ok {
		c, err := br.ReadByte()
		if err != nil {
			return 0, r.sourceErr(err)
		}
		b = c
	} else {
		if _, err := io.ReadFull(r.src, r.one[:]); err != nil {
			return 0, r.sourceErr(err)
		}
		b = r.one[0]
	}
	r.pos++
	if r.capturing {
		r.captured = append(r.captured, b)
	}
	return b, nil
}

func (r *Reader) sourceErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return fmt.Errorf("wire: read failed: %w", err)
}

func (r *Reader) readBit() (uint64, error) {
	if r.off == 0 {
		b, err := r.nextByte()
		if err != nil {
			return 0, err
		}
		r.cur = b
	}
	var bit byte
	if r.bitOrder == MSBFirst {
		bit = r.cur >> (7 - r.off) & 1
	} else {
		bit = r.cur >> r.off & 1
	}
	r.off++
	if r.off == 8 {
		r.off = 0
	}
	return uint64(bit), nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	bit, err := r.readBit()
	return bit == 1, err
}

// ReadUint reads an unsigned field of width bits (1..64).
func (r *Reader) ReadUint(width uint8) (uint64, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}
	if r.off == 0 && width%8 == 0 {
		return r.readWhole(int(width / 8))
	}
	var v uint64
	for i := uint8(0); i < width; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if r.bitOrder == MSBFirst {
			v = v<<1 | bit
		} else {
			v |= bit << i
		}
	}
	return v, nil
}

func (r *Reader) readWhole(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := r.nextByte()
		if err != nil {
			return 0, err
		}
		if r.little {
			v |= uint64(b) << (8 * i)
		} else {
			v = v<<8 | uint64(b)
		}
	}
	return v, nil
}

// ReadInt reads a two's complement signed field of width bits.
func (r *Reader) ReadInt(width uint8) (int64, error) {
	v, err := r.ReadUint(width)
	if err != nil {
		return 0, err
	}
	shift := 64 - width
	return int64(v<<shift) >> shift, nil
}

func (r *Reader) aligned() error {
	if r.off != 0 {
		return ErrMisaligned
	}
	return nil
}

// ReadUint8 reads a byte-aligned 8-bit field.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.aligned(); err != nil {
		return 0, err
	}
	v, err := r.readWhole(1)
	return uint8(v), err
}

// ReadUint16 reads a byte-aligned 16-bit field.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.aligned(); err != nil {
		return 0, err
	}
	v, err := r.readWhole(2)
	return uint16(v), err
}

// ReadUint32 reads a byte-aligned 32-bit field.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.aligned(); err != nil {
		return 0, err
	}
	v, err := r.readWhole(4)
	return uint32(v), err
}

// ReadUint64 reads a byte-aligned 64-bit field.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.aligned(); err != nil {
		return 0, err
	}
	return r.readWhole(8)
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a byte-aligned IEEE 754 single precision value.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a byte-aligned IEEE 754 double precision value.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes reads n raw bytes. The cursor must be byte aligned. A zero
// count yields a nil slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.aligned(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("wire: negative byte count %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	got, err := io.ReadFull(r.src, out)
	r.pos += got
	if r.capturing {
		r.captured = append(r.captured, out[:got]...)
	}
	if err != nil {
		return nil, r.sourceErr(err)
	}
	return out, nil
}
