// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/modbus/ascii"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
	"github.com/ffutop/fieldbus-codec/transport"
)

// Client implements Downstream interface (Modbus serial master).
// Mode selects RTU or ASCII framing on the line.
type Client struct {
	serialPort

	Codec    modbus.Codec
	Mode     modbus.DriverType
	Recorder transport.Recorder
}

// NewClient allocates and initializes a serial Client.
func NewClient(cfg config.SerialConfig, mode modbus.DriverType) *Client {
	client := &Client{
		Codec: modbus.StandardCodec(),
		Mode:  mode,
	}
	client.serialPort.Config = serialConfig(cfg)
	client.IdleTimeout = serialIdleTimeout
	return client
}

// Send sends a PDU to the downstream slave and returns its answer.
// Exception responses are returned as the PDU, not as an error.
func (mb *Client) Send(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
	req, aduBytes, err := encodeSerial(mb.Codec, mb.Mode, unitID, pdu)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ADU: %w", err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if err = mb.connect(ctx); err != nil {
		return nil, err
	}
	mb.lastActivity = time.Now()
	mb.startCloseTimer()

	slog.Debug("send to modbus slave", "device", mb.Config.Address, "request", hex.EncodeToString(aduBytes))
	if _, err = mb.port.Write(aduBytes); err != nil {
		return nil, err
	}
	transport.Record(mb.Recorder, mb.Mode, false, aduBytes)

	if unitID == 0 {
		// Broadcast requests are never answered.
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(rtupacket.CalculateDelay(mb.BaudRate, len(aduBytes))):
	}

	deadline := time.Now().Add(mb.Config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	resp, raw, err := readResponse(mb.port, mb.Codec, req, deadline)
	if err != nil {
		return nil, err
	}
	slog.Debug("recv from modbus slave", "device", mb.Config.Address, "response", hex.EncodeToString(raw))
	transport.Record(mb.Recorder, mb.Mode, true, raw)
	return resp.Payload(), nil
}

// encodeSerial wraps pdu in a frame of the given mode. ASCII frames are
// returned as the text line sent on the wire.
func encodeSerial(c modbus.Codec, mode modbus.DriverType, address uint8, pdu modbus.PDU) (modbus.ADU, []byte, error) {
	switch mode {
	case modbus.DriverRTU:
		adu := &modbus.RTUADU{Address: address, PDU: pdu}
		raw, err := c.Encode(adu)
		return adu, raw, err
	case modbus.DriverASCII:
		adu := &modbus.ASCIIADU{Address: address, PDU: pdu}
		raw, err := ascii.EncodeADU(c, adu)
		return adu, raw, err
	}
	return nil, nil, &modbus.UnsupportedDriverTypeError{Driver: mode}
}

// readResponse reads the frame answering req. An ASCII answer is read one
// line at a time; its address and function code are checked against req.
func readResponse(r io.Reader, c modbus.Codec, req modbus.ADU, deadline time.Time) (modbus.ADU, []byte, error) {
	if _, ok := req.(*modbus.ASCIIADU); !ok {
		return rtupacket.ReadResponse(r, c, req, deadline)
	}
	sc := ascii.NewScanner(oneByteReader{r})
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, nil, rtupacket.ErrRequestTimedOut
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, io.EOF
		}
		line := sc.Bytes()
		resp, err := ascii.DecodeADU(c, line, true)
		if err != nil {
			return nil, line, err
		}
		want, got := req.Payload().Discriminant(), resp.Payload().Discriminant()
		if resp.Address != req.(*modbus.ASCIIADU).Address {
			slog.Debug("skipping ASCII frame for another address", "address", resp.Address)
			continue
		}
		if got.FunctionCode != want.FunctionCode {
			return nil, line, &rtupacket.UnexpectedResponseError{Request: want, Response: got, Address: resp.Address}
		}
		return resp, append([]byte(nil), line...), nil
	}
}

// oneByteReader keeps a scanner from consuming bytes past the line it
// returns.
type oneByteReader struct{ io.Reader }

func (r oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return r.Reader.Read(p)
}
