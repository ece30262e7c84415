// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ffutop/fieldbus-codec/wire"
)

// Codec converts frames to bytes and back with fixed channel options.
// The zero Codec is big-endian and LSB-first, like DefaultCodec.
// A Codec holds no state and is safe for concurrent use.
type Codec struct {
	ByteOrder binary.ByteOrder
	BitOrder  wire.BitOrder
	// OmitTCPLength drops the MBAP length field: transaction id, protocol
	// id and unit id are followed directly by the PDU.
	OmitTCPLength bool
}

// DefaultCodec packs the PDU discriminant with the error flag in bit 0.
func DefaultCodec() Codec {
	return Codec{ByteOrder: binary.BigEndian, BitOrder: wire.LSBFirst}
}

// StandardCodec produces the frames found on real Modbus networks, with
// the error flag in bit 7 of the function code byte.
func StandardCodec() Codec {
	return Codec{ByteOrder: binary.BigEndian, BitOrder: wire.MSBFirst}
}

func (c Codec) options() []wire.Option {
	return []wire.Option{wire.WithByteOrder(c.ByteOrder), wire.WithBitOrder(c.BitOrder)}
}

// NewReader returns a channel reading src with the codec options.
func (c Codec) NewReader(src io.Reader) *wire.Reader { return wire.NewReader(src, c.options()...) }

// NewWriter returns a channel writing dst with the codec options.
func (c Codec) NewWriter(dst io.Writer) *wire.Writer { return wire.NewWriter(dst, c.options()...) }

func (c Codec) context(ctx ADUContext) ADUContext {
	ctx.OmitTCPLength = ctx.OmitTCPLength || c.OmitTCPLength
	return ctx
}

// Encode serializes a frame.
func (c Codec) Encode(a ADU) ([]byte, error) {
	var buf bytes.Buffer
	w := c.NewWriter(&buf)
	if _, err := writeADU(w, a, c.OmitTCPLength); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes a frame to dst in a single Write call.
func (c Codec) Write(dst io.Writer, a ADU) (int, error) {
	b, err := c.Encode(a)
	if err != nil {
		return 0, err
	}
	return dst.Write(b)
}

// Decode parses data as exactly one complete frame. Serial frames have
// their checksum verified over all of data before the content is parsed,
// so any corruption of a complete frame reports ErrChecksumMismatch.
func (c Codec) Decode(data []byte, ctx ADUContext) (ADU, error) {
	ctx = c.context(ctx)
	switch ctx.Driver {
	case DriverRTU:
		return c.decodeSerial(data, ctx, 2, checkCRC)
	case DriverASCII:
		return c.decodeSerial(data, ctx, 1, checkLRC)
	}
	a, n, err := c.DecodePrefix(data, ctx)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &LengthMismatchError{Field: "frame", Declared: n, Actual: len(data)}
	}
	return a, nil
}

// DecodePrefix parses one frame from the start of data and reports how
// many bytes it used. ErrTruncated means data holds an incomplete frame.
func (c Codec) DecodePrefix(data []byte, ctx ADUContext) (ADU, int, error) {
	r := c.NewReader(bytes.NewReader(data))
	a, err := ReadADU(r, c.context(ctx))
	if err != nil {
		return nil, 0, err
	}
	return a, r.Pos(), nil
}

func (c Codec) decodeSerial(data []byte, ctx ADUContext, trailer int, check func(body, trailer []byte) error) (ADU, error) {
	if len(data) < 2+trailer {
		return nil, ErrTruncated
	}
	body := data[:len(data)-trailer]
	if err := check(body, data[len(data)-trailer:]); err != nil {
		return nil, err
	}
	r := c.NewReader(bytes.NewReader(body))
	address, pdu, err := readSerialBody(r, ctx.Response)
	if err != nil {
		return nil, err
	}
	if r.Pos() != len(body) {
		return nil, &LengthMismatchError{Field: "frame", Declared: r.Pos() + trailer, Actual: len(data)}
	}
	if ctx.Driver == DriverASCII {
		return &ASCIIADU{Address: address, PDU: pdu}, nil
	}
	return &RTUADU{Address: address, PDU: pdu}, nil
}

// EncodePDU serializes a bare PDU including its discriminant.
func (c Codec) EncodePDU(p PDU) ([]byte, error) {
	var buf bytes.Buffer
	w := c.NewWriter(&buf)
	if _, err := WritePDU(w, p); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePDU parses data as exactly one PDU.
func (c Codec) DecodePDU(data []byte, ctx PDUContext) (PDU, error) {
	r := c.NewReader(bytes.NewReader(data))
	p, err := ReadPDU(r, ctx)
	if err != nil {
		return nil, err
	}
	if r.Pos() != len(data) {
		return nil, &LengthMismatchError{Field: "pdu", Declared: r.Pos(), Actual: len(data)}
	}
	return p, nil
}
