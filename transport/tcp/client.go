// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/transport"
)

const (
	tcpTimeout = 10 * time.Second
)

// Client implements Downstream interface (Modbus TCP Client).
type Client struct {
	Address  string
	Timeout  time.Duration
	Codec    modbus.Codec
	Recorder transport.Recorder

	transactionID uint32 // Atomic counter
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
	req := &modbus.TCPADU{
		TransactionID: uint16(atomic.AddUint32(&mb.transactionID, 1)),
		UnitID:        unitID,
		PDU:           pdu,
	}
	aduBytes, err := mb.Codec.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ADU: %w", err)
	}

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, mb.Timeout)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "tcp", mb.Address)
	if err != nil {
		return nil, fmt.Errorf("modbus: failed to connect to %s: %w", mb.Address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(mb.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	slog.Debug("send to modbus tcp slave", "addr", mb.Address, "request", hex.EncodeToString(aduBytes))
	if _, err := conn.Write(aduBytes); err != nil {
		return nil, err
	}
	transport.Record(mb.Recorder, modbus.DriverTCP, false, aduBytes)

	resp, raw, err := readFrame(conn, mb.Codec, true, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response ADU: %w", err)
	}
	slog.Debug("recv from modbus tcp slave", "addr", mb.Address, "response", hex.EncodeToString(raw))
	transport.Record(mb.Recorder, modbus.DriverTCP, true, raw)

	if err := verify(req, resp); err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	return resp.PDU, nil
}

// Connect implements Connector interface.
func (mb *Client) Connect(ctx context.Context) error {
	// Check if address is valid
	_, err := net.ResolveTCPAddr("tcp", mb.Address)
	return err
}

// Close implements Connector interface.
func (mb *Client) Close() error {
	return nil
}
