// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package rtuovertcp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/fieldbus-codec/modbus"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
)

func startServer(t *testing.T, handler func(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error)) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close() // Free port

	s := NewServer(addr)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		if err := s.Start(ctx, handler); err != nil {
			t.Logf("Server stopped: %v", err)
		}
	}()

	// Wait for server start
	for i := 0; i < 20; i++ {
		if conn, err := net.Dial("tcp", addr); err == nil {
			conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return addr
}

func TestServer_RoundTrip(t *testing.T) {
	addr := startServer(t, func(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
		if unitID != 1 {
			t.Errorf("Handler expected unitID 1, got %d", unitID)
		}
		switch req := pdu.(type) {
		case *modbus.ReadHoldingRegistersRequest:
			return &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}}, nil
		case *modbus.ReadCoilsRequest:
			return nil, modbus.NewErrorPDU(req, modbus.ErrorCodeIllegalDataAddress)
		}
		return nil, context.DeadlineExceeded
	})

	client := NewClient(addr)
	client.Timeout = time.Second
	defer client.Close()

	tests := []struct {
		name string
		req  modbus.PDU
		want modbus.PDU
	}{
		{"ReadHoldingRegisters", &modbus.ReadHoldingRegistersRequest{Quantity: 1},
			&modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}}},
		{"Exception", &modbus.ReadCoilsRequest{Quantity: 8},
			&modbus.ErrorPDU{Function: modbus.FuncCodeReadCoils, Code: modbus.ErrorCodeIllegalDataAddress}},
		{"HandlerTimeout", &modbus.ReadDiscreteInputsRequest{Quantity: 8},
			&modbus.ErrorPDU{Function: modbus.FuncCodeReadDiscreteInputs, Code: modbus.ErrorCodeGatewayTargetDeviceFailedToRespond}},
	}
	// one connection serves every request in turn
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Send(context.Background(), 1, tt.req)
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	client := NewClient(l.Addr().String())
	client.Timeout = 200 * time.Millisecond
	defer client.Close()

	_, err = client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1})
	var netErr net.Error
	if !errors.As(err, &netErr) && !errors.Is(err, rtupacket.ErrRequestTimedOut) {
		t.Errorf("Send() error = %v, want timeout", err)
	}
	if client.conn != nil {
		t.Error("connection kept after a failed read")
	}
}

func TestServer_LifeCycle(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, func(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
			return pdu, nil
		})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v", err)
		}
	case <-time.After(time.Second):
		t.Error("server did not stop")
	}
}
