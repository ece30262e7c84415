// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer writes fields of arbitrary bit width to a byte sink.
// Completed bytes are handed to the sink as soon as they fill up; a partial
// byte is never padded. A Writer is not safe for concurrent use.
type Writer struct {
	dst       io.Writer
	byteOrder binary.ByteOrder
	bitOrder  BitOrder
	little    bool

	cur byte
	off uint8
	pos int

	buf [8]byte
}

// NewWriter returns a Writer producing into dst.
func NewWriter(dst io.Writer, opts ...Option) *Writer {
	o := newOptions(opts)
	return &Writer{
		dst:       dst,
		byteOrder: o.byteOrder,
		bitOrder:  o.bitOrder,
		little:    littleEndian(o.byteOrder),
	}
}

// Derive returns a new Writer into dst sharing w's byte and bit order.
func (w *Writer) Derive(dst io.Writer) *Writer {
	return NewWriter(dst, WithByteOrder(w.byteOrder), WithBitOrder(w.bitOrder))
}

// ByteOrder returns the byte order of multi-byte fields.
func (w *Writer) ByteOrder() binary.ByteOrder { return w.byteOrder }

// BitOrder returns the packing of sub-byte fields.
func (w *Writer) BitOrder() BitOrder { return w.bitOrder }

// Aligned reports whether the cursor sits on a byte boundary.
func (w *Writer) Aligned() bool { return w.off == 0 }

// Pos returns the number of bytes handed to the sink.
func (w *Writer) Pos() int { return w.pos }

func (w *Writer) emit(p []byte) error {
	n, err := w.dst.Write(p)
	w.pos += n
	if err != nil {
		return fmt.Errorf("wire: write failed: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("wire: write failed: %w", io.ErrShortWrite)
	}
	return nil
}

func (w *Writer) writeBit(bit uint64) error {
	if bit&1 == 1 {
		if w.bitOrder == MSBFirst {
			w.cur |= 1 << (7 - w.off)
		} else {
			w.cur |= 1 << w.off
		}
	}
	w.off++
	if w.off < 8 {
		return nil
	}
	w.buf[0] = w.cur
	w.cur, w.off = 0, 0
	return w.emit(w.buf[:1])
}

// WriteBit writes a single bit.
func (w *Writer) WriteBit(v bool) error {
	if v {
		return w.writeBit(1)
	}
	return w.writeBit(0)
}

// WriteUint writes the low width bits (1..64) of v.
func (w *Writer) WriteUint(v uint64, width uint8) error {
	if err := checkWidth(width); err != nil {
		return err
	}
	if width < 64 && v>>width != 0 {
		return fmt.Errorf("%w: %d in %d bits", ErrOverflow, v, width)
	}
	if w.off == 0 && width%8 == 0 {
		return w.writeWhole(v, int(width/8))
	}
	for i := uint8(0); i < width; i++ {
		var bit uint64
		if w.bitOrder == MSBFirst {
			bit = v >> (width - 1 - i)
		} else {
			bit = v >> i
		}
		if err := w.writeBit(bit); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeWhole(v uint64, n int) error {
	for i := 0; i < n; i++ {
		if w.little {
			w.buf[i] = byte(v >> (8 * i))
		} else {
			w.buf[i] = byte(v >> (8 * (n - 1 - i)))
		}
	}
	return w.emit(w.buf[:n])
}

// WriteInt writes v as a two's complement field of width bits.
func (w *Writer) WriteInt(v int64, width uint8) error {
	if err := checkWidth(width); err != nil {
		return err
	}
	if width < 64 {
		lo, hi := -int64(1)<<(width-1), int64(1)<<(width-1)-1
		if v < lo || v > hi {
			return fmt.Errorf("%w: %d in %d bits", ErrOverflow, v, width)
		}
		return w.WriteUint(uint64(v)&(1<<width-1), width)
	}
	return w.WriteUint(uint64(v), width)
}

func (w *Writer) aligned() error {
	if w.off != 0 {
		return ErrMisaligned
	}
	return nil
}

// WriteUint8 writes a byte-aligned 8-bit field.
func (w *Writer) WriteUint8(v uint8) error {
	if err := w.aligned(); err != nil {
		return err
	}
	return w.writeWhole(uint64(v), 1)
}

// WriteUint16 writes a byte-aligned 16-bit field.
func (w *Writer) WriteUint16(v uint16) error {
	if err := w.aligned(); err != nil {
		return err
	}
	return w.writeWhole(uint64(v), 2)
}

// WriteUint32 writes a byte-aligned 32-bit field.
func (w *Writer) WriteUint32(v uint32) error {
	if err := w.aligned(); err != nil {
		return err
	}
	return w.writeWhole(uint64(v), 4)
}

// WriteUint64 writes a byte-aligned 64-bit field.
func (w *Writer) WriteUint64(v uint64) error {
	if err := w.aligned(); err != nil {
		return err
	}
	return w.writeWhole(v, 8)
}

func (w *Writer) WriteInt8(v int8) error   { return w.WriteUint8(uint8(v)) }
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

// WriteFloat32 writes a byte-aligned IEEE 754 single precision value.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes a byte-aligned IEEE 754 double precision value.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteBytes writes p verbatim. The cursor must be byte aligned.
func (w *Writer) WriteBytes(p []byte) error {
	if err := w.aligned(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.emit(p)
}

// Flush reports ErrPartialByte when the fields written so far do not add up
// to a whole number of bytes. Complete bytes are already in the sink.
func (w *Writer) Flush() error {
	if w.off != 0 {
		return fmt.Errorf("%w: %d bits", ErrPartialByte, w.off)
	}
	return nil
}
