// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package wire implements bit-granular readers and writers over byte streams.
//
// Fields of any width from 1 to 64 bits can be laid end to end. Fields whose
// width is a multiple of 8 and which start on a byte boundary are transferred
// as whole bytes in the configured byte order; all other fields are
// transferred bit by bit in the configured bit order.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the source is exhausted before a field
	// is complete. More input may complete the field.
	ErrTruncated = errors.New("wire: truncated input")
	// ErrMisaligned is returned by the byte-granular accessors when the cursor
	// is in the middle of a byte.
	ErrMisaligned = errors.New("wire: cursor is not byte aligned")
	// ErrPartialByte is returned by Writer.Flush when bits are still pending.
	ErrPartialByte = errors.New("wire: partial byte pending")
	// ErrOverflow is returned when a value does not fit the requested width.
	ErrOverflow = errors.New("wire: value overflows field width")
)

// WidthError reports a field width outside 1..64.
type WidthError struct {
	Width uint8
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("wire: invalid field width %d", e.Width)
}

// BitOrder selects how sub-byte fields are packed into a byte.
type BitOrder uint8

const (
	// LSBFirst packs the first logical bit into bit 0 of the byte. A 1-bit
	// field followed by a 7-bit field yields flag | value<<1.
	LSBFirst BitOrder = iota
	// MSBFirst packs the first logical bit into bit 7 of the byte. A 1-bit
	// field followed by a 7-bit field yields flag<<7 | value.
	MSBFirst
)

func (o BitOrder) String() string {
	switch o {
	case LSBFirst:
		return "lsb-first"
	case MSBFirst:
		return "msb-first"
	}
	return fmt.Sprintf("BitOrder(%d)", uint8(o))
}

type options struct {
	byteOrder binary.ByteOrder
	bitOrder  BitOrder
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithByteOrder sets the order of whole-byte multi-byte fields.
// The default is binary.BigEndian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.byteOrder = order
		}
	}
}

// WithBitOrder sets the packing of sub-byte fields. The default is LSBFirst.
func WithBitOrder(order BitOrder) Option {
	return func(o *options) {
		o.bitOrder = order
	}
}

func newOptions(opts []Option) options {
	o := options{byteOrder: binary.BigEndian, bitOrder: LSBFirst}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// littleEndian reports whether order places the least significant byte first.
func littleEndian(order binary.ByteOrder) bool {
	return order.Uint16([]byte{1, 0}) == 1
}

func checkWidth(width uint8) error {
	if width == 0 || width > 64 {
		return &WidthError{Width: width}
	}
	return nil
}
