// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu assembles frames from byte streams that carry no length
// prefix, such as a serial line or RTU tunnelled over TCP.
package rtu

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ffutop/fieldbus-codec/modbus"
)

var ErrRequestTimedOut = errors.New("modbus: request timed out")

// UnexpectedResponseError reports a well formed frame that does not answer
// the request it was read for.
type UnexpectedResponseError struct {
	Request, Response modbus.Discriminant
	Address           uint8
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("modbus: response %s from 0x%02X does not answer %s", e.Response, e.Address, e.Request)
}

func maxSize(driver modbus.DriverType) int {
	switch driver {
	case modbus.DriverTCP:
		return modbus.TCPMaxSize
	case modbus.DriverASCII:
		return modbus.ASCIIMaxSize
	}
	return MaxSize
}

// ReadFrame reads r one byte at a time until the bytes gathered so far
// decode as a frame. It never consumes bytes past the end of that frame.
// Truncated input makes it wait for more, and so does content that fails
// to parse before any frame end with a matching checksum has arrived.
// Such a frame ends with ErrChecksumMismatch once the stream, the deadline
// or the frame limit runs out. The raw frame is returned alongside the ADU.
func ReadFrame(r io.Reader, c modbus.Codec, ctx modbus.ADUContext, deadline time.Time) (modbus.ADU, []byte, error) {
	return readFrame(r, c, ctx, deadline, nil)
}

func readFrame(r io.Reader, c modbus.Codec, ctx modbus.ADUContext, deadline time.Time, data []byte) (modbus.ADU, []byte, error) {
	if r == nil {
		return nil, nil, fmt.Errorf("reader is nil")
	}
	limit := maxSize(ctx.Driver)
	buf := make([]byte, 1)
	// unframed holds the checksum failure of content still waiting for its end
	var unframed error
	for {
		if len(data) > 0 {
			adu, n, err := c.DecodePrefix(data, ctx)
			var cerr *modbus.ChecksumError
			switch {
			case err == nil:
				return adu, data[:n], nil
			case errors.As(err, &cerr) && cerr.Unframed():
				unframed = err
			case !errors.Is(err, modbus.ErrTruncated):
				return nil, data, err
			}
		}
		if len(data) >= limit {
			if unframed != nil {
				return nil, data, unframed
			}
			return nil, data, &modbus.FrameTooLargeError{Driver: ctx.Driver, Size: len(data) + 1, Max: limit}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			if unframed != nil {
				return nil, data, unframed
			}
			return nil, data, ErrRequestTimedOut
		}
		if _, err := io.ReadAtLeast(r, buf, 1); err != nil {
			if errors.Is(err, io.EOF) && unframed != nil {
				return nil, data, unframed
			}
			if errors.Is(err, io.EOF) && len(data) > 0 {
				err = fmt.Errorf("modbus: stream ended after %d bytes: %w", len(data), modbus.ErrTruncated)
			}
			return nil, data, err
		}
		data = append(data, buf[0])
	}
}

// ReadResponse reads the answer to req from a serial stream. Bytes before
// the request's address are skipped, and a frame whose function code
// matches neither the request nor its exception is rejected.
func ReadResponse(r io.Reader, c modbus.Codec, req modbus.ADU, deadline time.Time) (modbus.ADU, []byte, error) {
	address, ok := serialAddress(req)
	if !ok {
		return nil, nil, &modbus.UnsupportedDriverTypeError{Driver: req.Driver()}
	}
	buf := make([]byte, 1)
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, nil, ErrRequestTimedOut
		}
		if _, err := io.ReadAtLeast(r, buf, 1); err != nil {
			return nil, nil, err
		}
		if buf[0] == address {
			break
		}
	}
	ctx := modbus.ADUContext{Driver: req.Driver(), Response: true}
	resp, frame, err := readFrame(r, c, ctx, deadline, []byte{address})
	if err != nil {
		return nil, frame, err
	}
	want, got := req.Payload().Discriminant(), resp.Payload().Discriminant()
	if got.FunctionCode != want.FunctionCode {
		return nil, frame, &UnexpectedResponseError{Request: want, Response: got, Address: address}
	}
	return resp, frame, nil
}

func serialAddress(a modbus.ADU) (uint8, bool) {
	switch a := a.(type) {
	case *modbus.RTUADU:
		return a.Address, true
	case *modbus.ASCIIADU:
		return a.Address, true
	}
	return 0, false
}

// CalculateDelay returns how long chars characters plus the inter-frame
// gap occupy the line at baudRate.
func CalculateDelay(baudRate, chars int) time.Duration {
	characterDelay, frameDelay := fastCharacterDelay, fastFrameDelay
	if baudRate > 0 && baudRate <= fastBaudRate {
		characterDelay = characterDelayScale / baudRate
		frameDelay = frameDelayScale / baudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}
