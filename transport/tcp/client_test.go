// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package tcp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/fieldbus-codec/modbus"
)

type frameLog struct {
	frames [][]byte
}

func (l *frameLog) Record(driver modbus.DriverType, response bool, frame []byte) error {
	l.frames = append(l.frames, append([]byte{}, frame...))
	return nil
}

// serveOnce accepts connections and answers the first request of each
// with reply before closing it. A nil reply keeps the connection silent
// until the client goes away.
func serveOnce(t *testing.T, reply func(req []byte) []byte) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				header := make([]byte, 6)
				if _, err := io.ReadFull(c, header); err != nil {
					return
				}
				body := make([]byte, binary.BigEndian.Uint16(header[4:]))
				if _, err := io.ReadFull(c, body); err != nil {
					return
				}
				resp := reply(append(header, body...))
				if resp == nil {
					io.Copy(io.Discard, c)
					return
				}
				c.Write(resp)
			}(conn)
		}
	}()
	return listener.Addr().String()
}

func TestClient_Send(t *testing.T) {
	addr := serveOnce(t, func(req []byte) []byte {
		// Echo TransactionID and UnitID, ReadHoldingRegisters -> AA BB
		resp := []byte{req[0], req[1], 0x00, 0x00, 0x00, 0x05, req[6], 0x03, 0x02, 0xAA, 0xBB}
		return resp
	})

	log := &frameLog{}
	client := NewClient(addr)
	client.Timeout = 1 * time.Second
	client.Recorder = log
	defer client.Close()

	req := &modbus.ReadHoldingRegistersRequest{StartingAddress: 1, Quantity: 1}
	for i := 1; i <= 2; i++ {
		resp, err := client.Send(context.Background(), 7, req)
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		want := &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}}
		if diff := cmp.Diff(modbus.PDU(want), resp); diff != "" {
			t.Errorf("response mismatch (-want +got):\n%s", diff)
		}
	}

	if len(log.frames) != 4 {
		t.Fatalf("recorded %d frames, want 4", len(log.frames))
	}
	wantReq := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x07, 0x03, 0x00, 0x01, 0x00, 0x01}
	if !bytes.Equal(log.frames[2], wantReq) {
		t.Errorf("second request = % X, want % X", log.frames[2], wantReq)
	}
}

func TestClient_Exception(t *testing.T) {
	addr := serveOnce(t, func(req []byte) []byte {
		return []byte{req[0], req[1], 0x00, 0x00, 0x00, 0x03, req[6], 0x81, 0x02}
	})
	client := NewClient(addr)
	client.Timeout = 1 * time.Second

	resp, err := client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	want := &modbus.ErrorPDU{Function: modbus.FuncCodeReadCoils, Code: modbus.ErrorCodeIllegalDataAddress}
	if diff := cmp.Diff(modbus.PDU(want), resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Timeout(t *testing.T) {
	// Read but never write back
	addr := serveOnce(t, func(req []byte) []byte { return nil })

	client := NewClient(addr)
	client.Timeout = 200 * time.Millisecond // Short timeout
	defer client.Close()

	_, err := client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1})
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	tests := []struct {
		name    string
		reply   func(req []byte) []byte
		wantErr error
	}{
		{"ProtocolID", func(req []byte) []byte {
			return []byte{req[0], req[1], 0x00, 0x01, 0x00, 0x03, req[6], 0x01, 0x00}
		}, modbus.ErrInvalidConstant},
		{"ZeroLength", func(req []byte) []byte {
			return []byte{req[0], req[1], 0x00, 0x00, 0x00, 0x00}
		}, modbus.ErrLengthMismatch},
		{"ShortBody", func(req []byte) []byte {
			return []byte{req[0], req[1], 0x00, 0x00, 0x00, 0x05, req[6], 0x01, 0x01}
		}, io.ErrUnexpectedEOF},
		{"UnknownFunction", func(req []byte) []byte {
			return []byte{req[0], req[1], 0x00, 0x00, 0x00, 0x02, req[6], 0x7E}
		}, modbus.ErrUnknownDiscriminant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// closing after the reply turns a short body into EOF
			addr := serveOnce(t, tt.reply)
			client := NewClient(addr)
			client.Timeout = 300 * time.Millisecond

			_, err := client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Verify(t *testing.T) {
	addr := serveOnce(t, func(req []byte) []byte {
		return []byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x03, req[6], 0x81, 0x02}
	})
	client := NewClient(addr)
	client.Timeout = 1 * time.Second

	if _, err := client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1}); err == nil {
		t.Error("Expected transaction id mismatch")
	}
}

func TestClient_CompactHeader(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req := make([]byte, 10)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		conn.Write([]byte{req[0], req[1], 0x00, 0x00, req[4], 0x05, 0x00, 0x01, 0xFF, 0x00})
	}()

	client := NewClient(listener.Addr().String())
	client.Codec = modbus.StandardCodec()
	client.Codec.OmitTCPLength = true
	client.Timeout = 1 * time.Second

	resp, err := client.Send(context.Background(), 3, &modbus.WriteSingleCoilRequest{Address: 1, Value: modbus.CoilOn})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	want := &modbus.WriteSingleCoilResponse{Address: 1, Value: modbus.CoilOn}
	if diff := cmp.Diff(modbus.PDU(want), resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}
