// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtuovertcp

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ffutop/fieldbus-codec/modbus"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
	"github.com/ffutop/fieldbus-codec/transport"
)

const (
	tcpTimeout = 10 * time.Second
)

// Client implements Downstream interface (Modbus RTU over TCP Client).
type Client struct {
	Address  string
	Timeout  time.Duration
	Codec    modbus.Codec
	Recorder transport.Recorder

	mu   sync.Mutex
	conn net.Conn
}

// NewClient allocates and initializes a TCP Client.
func NewClient(address string) *Client {
	return &Client{
		Address: address,
		Timeout: tcpTimeout,
		Codec:   modbus.StandardCodec(),
	}
}

// Send sends a PDU to a Slave (Downstream) and returns the response PDU.
// Exception responses are returned as the PDU, not as an error.
func (mb *Client) Send(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
	req := &modbus.RTUADU{Address: unitID, PDU: pdu}
	aduBytes, err := mb.Codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ADU: %w", err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	// Ensure connection is open
	if err := mb.connect(ctx); err != nil {
		return nil, fmt.Errorf("modbus: failed to connect to %s: %w", mb.Address, err)
	}

	deadline := time.Now().Add(mb.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = mb.conn.SetDeadline(deadline); err != nil {
		mb.close()
		return nil, err
	}

	slog.Debug("send to modbus rtu-over-tcp slave", "addr", mb.Address, "request", hex.EncodeToString(aduBytes))
	if _, err := mb.conn.Write(aduBytes); err != nil {
		mb.close() // Close connection on write failure to force reconnect next time
		return nil, fmt.Errorf("failed to write to connection: %w", err)
	}
	transport.Record(mb.Recorder, modbus.DriverRTU, false, aduBytes)

	if unitID == 0 {
		return nil, nil
	}

	// RTU over TCP carries plain RTU frames, so the serial framing applies.
	resp, raw, err := rtupacket.ReadResponse(mb.conn, mb.Codec, req, deadline)
	if err != nil {
		var unexpected *rtupacket.UnexpectedResponseError
		if !errors.As(err, &unexpected) {
			// the stream position is unknown after a broken frame
			mb.close()
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	slog.Debug("recv from modbus rtu-over-tcp slave", "addr", mb.Address, "response", hex.EncodeToString(raw))
	transport.Record(mb.Recorder, modbus.DriverRTU, true, raw)

	return resp.Payload(), nil
}

// Connect implements Connector interface.
func (mb *Client) Connect(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.connect(ctx)
}

// Close implements Connector interface.
func (mb *Client) Close() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.close()
	return nil
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (mb *Client) connect(ctx context.Context) error {
	if mb.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: mb.Timeout}
	conn, err := d.DialContext(ctx, "tcp", mb.Address)
	if err != nil {
		return err
	}
	mb.conn = conn
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (mb *Client) close() {
	if mb.conn != nil {
		mb.conn.Close()
		mb.conn = nil
	}
}
