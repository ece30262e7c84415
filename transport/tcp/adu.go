// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ffutop/fieldbus-codec/modbus"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
)

const (
	mbapHeaderSize = 6
	tcpMinSize     = 8
)

// readFrame reads one TCP frame from r. With the length field present the
// MBAP header tells how much to read; the compact header is decoded as a
// stream instead.
func readFrame(r io.Reader, codec modbus.Codec, response bool, deadline time.Time) (*modbus.TCPADU, []byte, error) {
	ctx := modbus.ADUContext{Driver: modbus.DriverTCP, Response: response}
	if codec.OmitTCPLength {
		adu, raw, err := rtupacket.ReadFrame(r, codec, ctx, deadline)
		if err != nil {
			return nil, raw, err
		}
		return adu.(*modbus.TCPADU), raw, nil
	}

	header := make([]byte, mbapHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, err
	}
	length := int(binary.BigEndian.Uint16(header[4:]))
	if length < tcpMinSize-mbapHeaderSize || mbapHeaderSize+length > modbus.TCPMaxSize {
		return nil, header, fmt.Errorf("modbus: length in response header '%v' must not be zero or bigger than '%v': %w",
			length, modbus.TCPMaxSize-mbapHeaderSize, modbus.ErrLengthMismatch)
	}
	raw := make([]byte, mbapHeaderSize+length)
	copy(raw, header)
	if _, err := io.ReadFull(r, raw[mbapHeaderSize:]); err != nil {
		return nil, raw, err
	}
	adu, err := codec.Decode(raw, ctx)
	if err != nil {
		return nil, raw, err
	}
	return adu.(*modbus.TCPADU), raw, nil
}

// verify checks that resp answers req.
func verify(req, resp *modbus.TCPADU) error {
	if resp.TransactionID != req.TransactionID {
		return fmt.Errorf("modbus: response transaction id '%v' does not match request '%v'", resp.TransactionID, req.TransactionID)
	}
	if resp.UnitID != req.UnitID {
		return fmt.Errorf("modbus: response unit id '%v' does not match request '%v'", resp.UnitID, req.UnitID)
	}
	if got, want := resp.PDU.Discriminant().FunctionCode, req.PDU.Discriminant().FunctionCode; got != want {
		return fmt.Errorf("modbus: response function code '%v' does not match request '%v'", got, want)
	}
	return nil
}
