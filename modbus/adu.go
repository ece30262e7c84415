// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ffutop/fieldbus-codec/modbus/crc"
	"github.com/ffutop/fieldbus-codec/modbus/lrc"
	"github.com/ffutop/fieldbus-codec/wire"
)

// Frame size limits in bytes.
const (
	TCPMaxSize   = 260
	RTUMaxSize   = 256
	ASCIIMaxSize = 255

	// RTUMinSize and ASCIIMinSize hold address, function code and checksum.
	RTUMinSize   = 4
	ASCIIMinSize = 3

	tcpProtocolID = 0x0000
)

var errNoPDU = errors.New("modbus: frame has no PDU")

// ADU is a frame: one PDU wrapped in driver specific fields.
type ADU interface {
	Message
	Driver() DriverType
	Payload() PDU
}

// ContextOf returns the context that decodes the encoding of a.
func ContextOf(a ADU) ADUContext {
	ctx := ADUContext{Driver: a.Driver()}
	if p := a.Payload(); p != nil {
		ctx.Response = p.Discriminant().Response
	}
	return ctx
}

// TCPADU is a Modbus TCP frame. Its MBAP header carries a protocol id that
// is always zero and a length covering the unit id and the PDU.
type TCPADU struct {
	TransactionID uint16
	UnitID        uint8
	PDU           PDU
}

func (a *TCPADU) Driver() DriverType { return DriverTCP }
func (a *TCPADU) Payload() PDU       { return a.PDU }

func (a *TCPADU) LengthInBits() uint32 {
	if a.PDU == nil {
		return 56
	}
	return 56 + PDULengthInBits(a.PDU)
}

func (a *TCPADU) Serialize(w *wire.Writer) (int, error) {
	return a.serialize(w, false)
}

func (a *TCPADU) serialize(w *wire.Writer, omitLength bool) (int, error) {
	if a.PDU == nil {
		return 0, errNoPDU
	}
	bits := PDULengthInBits(a.PDU)
	if bits%8 != 0 {
		return 0, fmt.Errorf("modbus: %s: %w", a.PDU.Discriminant(), wire.ErrPartialByte)
	}
	pduLen := int(bits / 8)
	size := 7 + pduLen
	if omitLength {
		size -= 2
	}
	if size > TCPMaxSize {
		return 0, &FrameTooLargeError{Driver: DriverTCP, Size: size, Max: TCPMaxSize}
	}
	start := w.Pos()
	if err := writeUint16s(w, a.TransactionID, tcpProtocolID); err != nil {
		return w.Pos() - start, err
	}
	if !omitLength {
		if err := w.WriteUint16(uint16(pduLen + 1)); err != nil {
			return w.Pos() - start, err
		}
	}
	if err := w.WriteUint8(a.UnitID); err != nil {
		return w.Pos() - start, err
	}
	_, err := WritePDU(w, a.PDU)
	return w.Pos() - start, err
}

// ParseTCPADU reads an MBAP header and the PDU it announces.
func ParseTCPADU(r *wire.Reader, ctx ADUContext) (*TCPADU, error) {
	a := new(TCPADU)
	var protocolID, length uint16
	if err := readUint16s(r, &a.TransactionID, &protocolID); err != nil {
		return nil, err
	}
	if protocolID != tcpProtocolID {
		return nil, &InvalidConstantError{Field: "TCPADU.protocolId", Expected: tcpProtocolID, Actual: uint64(protocolID)}
	}
	if ctx.OmitTCPLength {
		return parsed(a, readUnitAndPDU(r, a, ctx))
	}
	if err := readUint16s(r, &length); err != nil {
		return nil, err
	}

	win := &window{r: r, n: int(length)}
	inner := wire.NewReader(win, wire.WithByteOrder(r.ByteOrder()), wire.WithBitOrder(r.BitOrder()))
	if err := readUnitAndPDU(inner, a, ctx); err != nil {
		if win.exhausted && errors.Is(err, ErrTruncated) {
			return nil, &LengthMismatchError{Field: "TCPADU.length", Declared: int(length), Actual: inner.Pos() + 1}
		}
		return nil, err
	}
	if consumed := inner.Pos(); consumed != int(length) {
		return nil, &LengthMismatchError{Field: "TCPADU.length", Declared: int(length), Actual: consumed}
	}
	return a, nil
}

func readUnitAndPDU(r *wire.Reader, a *TCPADU, ctx ADUContext) error {
	var err error
	if a.UnitID, err = r.ReadUint8(); err != nil {
		return err
	}
	a.PDU, err = ReadPDU(r, PDUContext{Response: ctx.Response})
	return err
}

// window hands out at most n bytes of r. Reading past them sets exhausted,
// which tells a PDU overrunning the MBAP length from a short source.
type window struct {
	r         *wire.Reader
	n         int
	exhausted bool
}

func (w *window) ReadByte() (byte, error) {
	if w.n == 0 {
		w.exhausted = true
		return 0, io.EOF
	}
	b, err := w.r.ReadUint8()
	if err != nil {
		return 0, err
	}
	w.n--
	return b, nil
}

func (w *window) Read(p []byte) (int, error) {
	for i := range p {
		b, err := w.ReadByte()
		if err != nil {
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// RTUADU is a serial frame protected by a CRC-16 trailer, sent least
// significant byte first.
type RTUADU struct {
	Address uint8
	PDU     PDU
}

func (a *RTUADU) Driver() DriverType { return DriverRTU }
func (a *RTUADU) Payload() PDU       { return a.PDU }

func (a *RTUADU) LengthInBits() uint32 {
	if a.PDU == nil {
		return 24
	}
	return 24 + PDULengthInBits(a.PDU)
}

func (a *RTUADU) Serialize(w *wire.Writer) (int, error) {
	body, err := serialBody(w, DriverRTU, a.Address, a.PDU, 2, RTUMaxSize)
	if err != nil {
		return 0, err
	}
	sum := crc.Checksum(body)
	start := w.Pos()
	if err := w.WriteBytes(body); err != nil {
		return w.Pos() - start, err
	}
	err = w.WriteBytes([]byte{byte(sum), byte(sum >> 8)})
	return w.Pos() - start, err
}

// ParseRTUADU reads address and PDU, then verifies the CRC that follows.
func ParseRTUADU(r *wire.Reader, ctx ADUContext) (*RTUADU, error) {
	r.Mark()
	address, pdu, err := readSerialBody(r, ctx.Response)
	body := r.Captured()
	if err != nil {
		return nil, seekTrailer(r, body, err, rtuTrailer)
	}
	trailer, err := r.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if err := checkCRC(body, trailer); err != nil {
		return nil, err
	}
	return &RTUADU{Address: address, PDU: pdu}, nil
}

// ASCIIADU is the binary content of an ASCII frame: address, PDU and an
// LRC byte. See package ascii for the character encoding around it.
type ASCIIADU struct {
	Address uint8
	PDU     PDU
}

func (a *ASCIIADU) Driver() DriverType { return DriverASCII }
func (a *ASCIIADU) Payload() PDU       { return a.PDU }

func (a *ASCIIADU) LengthInBits() uint32 {
	if a.PDU == nil {
		return 16
	}
	return 16 + PDULengthInBits(a.PDU)
}

func (a *ASCIIADU) Serialize(w *wire.Writer) (int, error) {
	body, err := serialBody(w, DriverASCII, a.Address, a.PDU, 1, ASCIIMaxSize)
	if err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteBytes(body); err != nil {
		return w.Pos() - start, err
	}
	err = w.WriteUint8(lrc.Checksum(body))
	return w.Pos() - start, err
}

// ParseASCIIADU reads address and PDU, then verifies the LRC that follows.
func ParseASCIIADU(r *wire.Reader, ctx ADUContext) (*ASCIIADU, error) {
	r.Mark()
	address, pdu, err := readSerialBody(r, ctx.Response)
	body := r.Captured()
	if err != nil {
		return nil, seekTrailer(r, body, err, asciiTrailer)
	}
	trailer, err := r.ReadBytes(1)
	if err != nil {
		return nil, err
	}
	if err := checkLRC(body, trailer); err != nil {
		return nil, err
	}
	return &ASCIIADU{Address: address, PDU: pdu}, nil
}

// serialBody encodes address and PDU into a scratch buffer so the checksum
// can be computed before anything reaches w.
func serialBody(w *wire.Writer, driver DriverType, address uint8, p PDU, trailer, max int) ([]byte, error) {
	if p == nil {
		return nil, errNoPDU
	}
	var buf bytes.Buffer
	inner := w.Derive(&buf)
	if err := inner.WriteUint8(address); err != nil {
		return nil, err
	}
	if _, err := WritePDU(inner, p); err != nil {
		return nil, err
	}
	if err := inner.Flush(); err != nil {
		return nil, fmt.Errorf("modbus: %s: %w", p.Discriminant(), err)
	}
	if size := buf.Len() + trailer; size > max {
		return nil, &FrameTooLargeError{Driver: driver, Size: size, Max: max}
	}
	return buf.Bytes(), nil
}

func readSerialBody(r *wire.Reader, response bool) (uint8, PDU, error) {
	address, err := r.ReadUint8()
	if err != nil {
		return 0, nil, err
	}
	pdu, err := ReadPDU(r, PDUContext{Response: response})
	if err != nil {
		return 0, nil, err
	}
	return address, pdu, nil
}

// trailerKind describes the checksum closing a serial frame.
type trailerKind struct {
	driver   DriverType
	size     int
	min, max int
	check    func(body, trailer []byte) error
}

var (
	rtuTrailer   = trailerKind{DriverRTU, 2, RTUMinSize, RTUMaxSize, checkCRC}
	asciiTrailer = trailerKind{DriverASCII, 1, ASCIIMinSize, ASCIIMaxSize, checkLRC}
)

// seekTrailer handles content that failed to parse with cause before the
// checksum was reached. Without a parsed PDU the frame end is unknown, so
// every end up to the frame limit is tried against the bytes r still
// holds. cause is returned only when some end carries a matching checksum;
// otherwise the frame is reported as a checksum mismatch.
func seekTrailer(r *wire.Reader, data []byte, cause error, k trailerKind) error {
	if errors.Is(cause, ErrTruncated) {
		return cause
	}
	r.Align()
	for n := k.min; n <= k.max; n++ {
		for len(data) < n {
			b, err := r.ReadUint8()
			if errors.Is(err, ErrTruncated) {
				return unframed(data, cause, k)
			}
			if err != nil {
				return err
			}
			data = append(data, b)
		}
		if k.check(data[:n-k.size], data[n-k.size:n]) == nil {
			return cause
		}
	}
	return unframed(data, cause, k)
}

func unframed(data []byte, cause error, k trailerKind) error {
	e := &ChecksumError{Driver: k.driver, Cause: cause}
	if n := len(data); n >= k.min {
		var ce *ChecksumError
		if errors.As(k.check(data[:n-k.size], data[n-k.size:]), &ce) {
			e.Expected, e.Actual = ce.Expected, ce.Actual
		}
	}
	return e
}

func checkCRC(body, trailer []byte) error {
	computed := crc.Checksum(body)
	received := uint16(trailer[0]) | uint16(trailer[1])<<8
	if computed != received {
		return &ChecksumError{Driver: DriverRTU, Expected: computed, Actual: received}
	}
	return nil
}

func checkLRC(body, trailer []byte) error {
	computed := lrc.Checksum(body)
	if computed != trailer[0] {
		return &ChecksumError{Driver: DriverASCII, Expected: uint16(computed), Actual: uint16(trailer[0])}
	}
	return nil
}

type aduParser func(r *wire.Reader, ctx ADUContext) (ADU, error)

func aduParserOf[A ADU](parse func(*wire.Reader, ADUContext) (A, error)) aduParser {
	return func(r *wire.Reader, ctx ADUContext) (ADU, error) {
		a, err := parse(r, ctx)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

var (
	_ Parser[*TCPADU, ADUContext]   = ParseTCPADU
	_ Parser[*RTUADU, ADUContext]   = ParseRTUADU
	_ Parser[*ASCIIADU, ADUContext] = ParseASCIIADU
)

var aduParsers = map[DriverType]aduParser{
	DriverTCP:   aduParserOf(ParseTCPADU),
	DriverRTU:   aduParserOf(ParseRTUADU),
	DriverASCII: aduParserOf(ParseASCIIADU),
}

// ReadADU decodes one frame of the shape selected by ctx.Driver. Checksums
// are verified after the PDU has been parsed, so an incomplete stream
// reports ErrTruncated. Serial content that fails to parse is reported
// only once a matching checksum confirms the frame; until then the error
// is a ChecksumError whose Unframed method reports true.
func ReadADU(r *wire.Reader, ctx ADUContext) (ADU, error) {
	parse, ok := aduParsers[ctx.Driver]
	if !ok {
		return nil, &UnsupportedDriverTypeError{Driver: ctx.Driver}
	}
	return parse(r, ctx)
}

// WriteADU encodes a frame and returns the number of bytes written.
func WriteADU(w *wire.Writer, a ADU) (int, error) {
	return writeADU(w, a, false)
}

func writeADU(w *wire.Writer, a ADU, omitTCPLength bool) (int, error) {
	if _, ok := aduParsers[a.Driver()]; !ok {
		return 0, &UnsupportedDriverTypeError{Driver: a.Driver()}
	}
	if t, ok := a.(*TCPADU); ok {
		return t.serialize(w, omitTCPLength)
	}
	return a.Serialize(w)
}
