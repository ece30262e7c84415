// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package rtu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/modbus/ascii"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
)

var codec = modbus.StandardCodec()

type mockPort struct {
	io.Reader
	io.Writer
}

func (m *mockPort) Close() error { return nil }

func newMockClient(t *testing.T, mode modbus.DriverType, input []byte) (*Client, *bytes.Buffer) {
	t.Helper()
	writer := &bytes.Buffer{}
	client := NewClient(config.SerialConfig{}, mode)
	// a pre-set port keeps connect from opening a device
	client.port = &mockPort{Reader: bytes.NewReader(input), Writer: writer}
	client.Config.Timeout = 100 * time.Millisecond
	client.IdleTimeout = 0
	return client, writer
}

func encodeRTU(t *testing.T, address uint8, pdu modbus.PDU) []byte {
	t.Helper()
	b, err := codec.Encode(&modbus.RTUADU{Address: address, PDU: pdu})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return b
}

func encodeASCII(t *testing.T, address uint8, pdu modbus.PDU) []byte {
	t.Helper()
	b, err := ascii.EncodeADU(codec, &modbus.ASCIIADU{Address: address, PDU: pdu})
	if err != nil {
		t.Fatalf("EncodeADU() error = %v", err)
	}
	return b
}

func TestClient_Send(t *testing.T) {
	req := &modbus.ReadHoldingRegistersRequest{StartingAddress: 0, Quantity: 1}
	resp := &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}}
	exception := &modbus.ErrorPDU{Function: modbus.FuncCodeReadHoldingRegisters, Code: modbus.ErrorCodeIllegalDataAddress}

	tests := []struct {
		name    string
		mode    modbus.DriverType
		input   []byte
		wantReq []byte
		want    modbus.PDU
	}{
		{
			"RTU",
			modbus.DriverRTU,
			encodeRTU(t, 1, resp),
			[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A},
			resp,
		},
		{
			"RTUException",
			modbus.DriverRTU,
			encodeRTU(t, 1, exception),
			[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A},
			exception,
		},
		{
			"RTUNoiseBeforeAddress",
			modbus.DriverRTU,
			append([]byte{0xFF, 0x00}, encodeRTU(t, 1, resp)...),
			[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A},
			resp,
		},
		{
			"ASCII",
			modbus.DriverASCII,
			encodeASCII(t, 1, resp),
			[]byte(":010300000001FB\r\n"),
			resp,
		},
		{
			"ASCIIOtherAddressFirst",
			modbus.DriverASCII,
			append(append([]byte("noise"), encodeASCII(t, 9, resp)...), encodeASCII(t, 1, resp)...),
			[]byte(":010300000001FB\r\n"),
			resp,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, writer := newMockClient(t, tt.mode, tt.input)
			log := &frameLog{}
			client.Recorder = log

			got, err := client.Send(context.Background(), 1, req)
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if !bytes.Equal(writer.Bytes(), tt.wantReq) {
				t.Errorf("request = % X, want % X", writer.Bytes(), tt.wantReq)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
			if len(log.frames) != 2 {
				t.Errorf("recorded %d frames, want 2", len(log.frames))
			}
		})
	}
}

func TestClient_Broadcast(t *testing.T) {
	client, writer := newMockClient(t, modbus.DriverRTU, nil)

	got, err := client.Send(context.Background(), 0, &modbus.WriteSingleCoilRequest{Address: 1, Value: modbus.CoilOn})
	if err != nil || got != nil {
		t.Errorf("Send() = %v, %v, want no answer", got, err)
	}
	if writer.Len() == 0 {
		t.Error("broadcast request not written")
	}
}

func TestClient_Errors(t *testing.T) {
	req := &modbus.ReadHoldingRegistersRequest{Quantity: 1}
	badCRC := encodeRTU(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}})
	badCRC[len(badCRC)-1] ^= 0xFF
	badLRC := encodeASCII(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}})
	badLRC[len(badLRC)-3] = '0'
	if bytes.Equal(badLRC, encodeASCII(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0xAA, 0xBB}})) {
		badLRC[len(badLRC)-3] = '1'
	}

	var unexpected *rtupacket.UnexpectedResponseError
	tests := []struct {
		name  string
		mode  modbus.DriverType
		input []byte
		check func(error) bool
	}{
		{"CRC", modbus.DriverRTU, badCRC, func(err error) bool { return errors.Is(err, modbus.ErrChecksumMismatch) }},
		{"LRC", modbus.DriverASCII, badLRC, func(err error) bool { return errors.Is(err, modbus.ErrChecksumMismatch) }},
		{"WrongFunction", modbus.DriverRTU, encodeRTU(t, 1, &modbus.ReadCoilsResponse{Value: []byte{0x01}}),
			func(err error) bool { return errors.As(err, &unexpected) }},
		{"Silent", modbus.DriverRTU, nil, func(err error) bool { return errors.Is(err, io.EOF) }},
		{"UnterminatedLine", modbus.DriverASCII, []byte(":0103"), func(err error) bool { return errors.Is(err, ascii.ErrFrameEnd) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newMockClient(t, tt.mode, tt.input)
			if _, err := client.Send(context.Background(), 1, req); !tt.check(err) {
				t.Errorf("Send() error = %v", err)
			}
		})
	}
}

func TestClient_UnsupportedMode(t *testing.T) {
	client, _ := newMockClient(t, modbus.DriverTCP, nil)
	_, err := client.Send(context.Background(), 1, &modbus.ReadCoilsRequest{Quantity: 1})
	if !errors.Is(err, modbus.ErrUnsupportedDriverType) {
		t.Errorf("Send() error = %v, want %v", err, modbus.ErrUnsupportedDriverType)
	}
}

type frameLog struct {
	frames [][]byte
}

func (l *frameLog) Record(driver modbus.DriverType, response bool, frame []byte) error {
	l.frames = append(l.frames, append([]byte{}, frame...))
	return nil
}
