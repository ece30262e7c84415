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

	"github.com/grid-x/serial"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
)

func echoHandler(t *testing.T) func(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
	return func(ctx context.Context, unitID uint8, pdu modbus.PDU) (modbus.PDU, error) {
		switch req := pdu.(type) {
		case *modbus.ReadHoldingRegistersRequest:
			return &modbus.ReadHoldingRegistersResponse{Value: make([]byte, 2*req.Quantity)}, nil
		case *modbus.WriteSingleCoilRequest:
			return &modbus.WriteSingleCoilResponse{Address: req.Address, Value: req.Value}, nil
		case *modbus.WriteMultipleHoldingRegistersRequest:
			return &modbus.WriteMultipleHoldingRegistersResponse{StartingAddress: req.StartingAddress, Quantity: req.Quantity}, nil
		case *modbus.ReadCoilsRequest:
			return nil, modbus.NewErrorPDU(req, modbus.ErrorCodeIllegalDataAddress)
		}
		t.Errorf("unexpected request %T", pdu)
		return nil, errors.New("unexpected request")
	}
}

func TestServe(t *testing.T) {
	rhr := &modbus.ReadHoldingRegistersRequest{StartingAddress: 0, Quantity: 1}
	wsc := &modbus.WriteSingleCoilRequest{Address: 1, Value: modbus.CoilOn}
	wmr := &modbus.WriteMultipleHoldingRegistersRequest{StartingAddress: 1, Quantity: 2, Value: modbus.RegisterBytes(0x1122, 0x3344)}
	rc := &modbus.ReadCoilsRequest{Quantity: 8}
	unknown := []byte{0x01, 0x41, 0xC0, 0x10}

	tests := []struct {
		name  string
		mode  modbus.DriverType
		input []byte
		want  []byte
	}{
		{
			"RTUSequence",
			modbus.DriverRTU,
			bytes.Join([][]byte{encodeRTU(t, 1, rhr), encodeRTU(t, 2, wsc), encodeRTU(t, 3, wmr)}, nil),
			bytes.Join([][]byte{
				encodeRTU(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0x00, 0x00}}),
				encodeRTU(t, 2, &modbus.WriteSingleCoilResponse{Address: 1, Value: modbus.CoilOn}),
				encodeRTU(t, 3, &modbus.WriteMultipleHoldingRegistersResponse{StartingAddress: 1, Quantity: 2}),
			}, nil),
		},
		{
			"RTUException",
			modbus.DriverRTU,
			encodeRTU(t, 1, rc),
			[]byte{0x01, 0x81, 0x02, 0xC1, 0x91},
		},
		{
			"RTUBroadcastNotAnswered",
			modbus.DriverRTU,
			append(encodeRTU(t, 0, wsc), encodeRTU(t, 1, rhr)...),
			encodeRTU(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0x00, 0x00}}),
		},
		{
			"RTUUnknownFunction",
			modbus.DriverRTU,
			unknown,
			encodeRTU(t, 1, &modbus.ErrorPDU{Function: 0x41, Code: modbus.ErrorCodeIllegalFunction}),
		},
		{
			"ASCII",
			modbus.DriverASCII,
			append([]byte("garbage"), encodeASCII(t, 1, rhr)...),
			[]byte(":0103020000FA\r\n"),
		},
		{
			"ASCIIBadLRCDropped",
			modbus.DriverASCII,
			append([]byte(":010300000001FC\r\n"), encodeASCII(t, 2, wsc)...),
			encodeASCII(t, 2, &modbus.WriteSingleCoilResponse{Address: 1, Value: modbus.CoilOn}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &bytes.Buffer{}
			port := &mockPort{Reader: bytes.NewReader(tt.input), Writer: writer}
			log := &frameLog{}
			sess := Session{Codec: codec, Mode: tt.mode, Recorder: log}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := Serve(ctx, port, sess, echoHandler(t)); err != nil {
				t.Fatalf("Serve() error = %v", err)
			}
			if !bytes.Equal(writer.Bytes(), tt.want) {
				t.Errorf("responses = % X, want % X", writer.Bytes(), tt.want)
			}
			if len(log.frames) == 0 {
				t.Error("no frames recorded")
			}
		})
	}
}

func TestServe_StreamEnd(t *testing.T) {
	tests := []struct {
		name    string
		line    bool
		reader  io.Reader
		wantErr error
	}{
		{"TruncatedFrame", false, bytes.NewReader([]byte{0x01, 0x03, 0x00}), nil},
		{"ReadFailure", false, io.MultiReader(bytes.NewReader([]byte{0x01}), errReader{io.ErrClosedPipe}), io.ErrClosedPipe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &mockPort{Reader: tt.reader, Writer: io.Discard}
			sess := Session{Codec: codec, Mode: modbus.DriverRTU, Line: tt.line}
			err := Serve(context.Background(), port, sess, echoHandler(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Serve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServe_LineSurvivesReadErrors(t *testing.T) {
	rhr := encodeRTU(t, 1, &modbus.ReadHoldingRegistersRequest{Quantity: 1})
	reader := io.MultiReader(
		bytes.NewReader(rhr[:3]),
		&onceErr{err: errors.New("serial: timeout")},
		bytes.NewReader(rhr),
	)
	writer := &bytes.Buffer{}
	sess := Session{Codec: codec, Mode: modbus.DriverRTU, Line: true}
	if err := Serve(context.Background(), &mockPort{Reader: reader, Writer: writer}, sess, echoHandler(t)); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	want := encodeRTU(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0x00, 0x00}})
	if !bytes.HasPrefix(writer.Bytes(), want) {
		t.Errorf("responses = % X, want prefix % X", writer.Bytes(), want)
	}
}

func TestServe_CorruptedFrameNotAnswered(t *testing.T) {
	// function code 0x03 with bit 4 flipped, original CRC kept
	corrupt := []byte{0x01, 0x13, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}
	rhr := encodeRTU(t, 1, &modbus.ReadHoldingRegistersRequest{Quantity: 1})

	tests := []struct {
		name   string
		line   bool
		reader io.Reader
		want   []byte
	}{
		{"StreamEnd", false, bytes.NewReader(corrupt), nil},
		{"LineTimeout", true, io.MultiReader(
			bytes.NewReader(corrupt),
			&onceErr{err: errors.New("serial: timeout")},
			bytes.NewReader(rhr),
		), encodeRTU(t, 1, &modbus.ReadHoldingRegistersResponse{Value: []byte{0x00, 0x00}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &bytes.Buffer{}
			sess := Session{Codec: codec, Mode: modbus.DriverRTU, Line: tt.line}
			if err := Serve(context.Background(), &mockPort{Reader: tt.reader, Writer: writer}, sess, echoHandler(t)); err != nil {
				t.Fatalf("Serve() error = %v", err)
			}
			if !bytes.Equal(writer.Bytes(), tt.want) {
				t.Errorf("responses = % X, want % X", writer.Bytes(), tt.want)
			}
		})
	}
}

func TestServe_UnsupportedMode(t *testing.T) {
	sess := Session{Codec: codec, Mode: modbus.DriverTCP}
	err := Serve(context.Background(), &mockPort{Reader: bytes.NewReader(nil), Writer: io.Discard}, sess, echoHandler(t))
	if !errors.Is(err, modbus.ErrUnsupportedDriverType) {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestServer_Start(t *testing.T) {
	rhr := encodeRTU(t, 1, &modbus.ReadHoldingRegistersRequest{Quantity: 1})
	writer := &bytes.Buffer{}
	var opened *serial.Config
	restore := openPort
	openPort = func(c *serial.Config) (io.ReadWriteCloser, error) {
		opened = c
		return &mockPort{Reader: bytes.NewReader(rhr), Writer: writer}, nil
	}
	t.Cleanup(func() { openPort = restore })

	s := NewServer(config.SerialConfig{Device: "/dev/ttyTEST", BaudRate: 9600}, modbus.DriverRTU)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx, echoHandler(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if opened == nil || opened.Address != "/dev/ttyTEST" || opened.BaudRate != 9600 || opened.Timeout != serialTimeout {
		t.Errorf("opened %+v", opened)
	}
	if writer.Len() == 0 {
		t.Error("response not written")
	}
}

func TestServer_StartOpenFailure(t *testing.T) {
	restore := openPort
	openPort = func(c *serial.Config) (io.ReadWriteCloser, error) { return nil, io.ErrClosedPipe }
	t.Cleanup(func() { openPort = restore })

	s := NewServer(config.SerialConfig{Device: "/dev/ttyTEST"}, modbus.DriverRTU)
	if err := s.Start(context.Background(), echoHandler(t)); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Start() error = %v", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// onceErr fails its first read and reports EOF afterwards.
type onceErr struct {
	err  error
	done bool
}

func (r *onceErr) Read([]byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	return 0, r.err
}
