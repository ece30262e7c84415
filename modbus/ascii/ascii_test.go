// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package ascii

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/fieldbus-codec/modbus"
)

func TestEncode(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x00, 0x13, 0x00, 0x0a, 0xdf}
	got := string(Encode(frame))
	if want := ":01030013000ADF\r\n"; got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []byte
		wantErr error
	}{
		{"Upper", ":01030013000ADF\r\n", []byte{0x01, 0x03, 0x00, 0x13, 0x00, 0x0a, 0xdf}, nil},
		{"Lower", ":01030013000adf\r\n", []byte{0x01, 0x03, 0x00, 0x13, 0x00, 0x0a, 0xdf}, nil},
		{"NoStart", "01030013000ADF\r\n", nil, ErrFrameStart},
		{"Empty", "", nil, ErrFrameStart},
		{"NoCR", ":0103\n", nil, ErrFrameEnd},
		{"NoLF", ":0103\r", nil, ErrFrameEnd},
		{"OddDigits", ":010\r\n", nil, ErrHexDigit},
		{"BadDigit", ":01G3\r\n", nil, ErrHexDigit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.line))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanner(t *testing.T) {
	stream := "noise:0103\r\n:01:0204\r\n\x00\x00:05FB\r\n"
	s := NewScanner(strings.NewReader(stream))
	var got []string
	for s.Scan() {
		got = append(got, s.Text())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := []string{":0103\r\n", ":0204\r\n", ":05FB\r\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestScanner_UnterminatedTail(t *testing.T) {
	s := NewScanner(strings.NewReader(":0103\r\n:0104"))
	if !s.Scan() || s.Text() != ":0103\r\n" {
		t.Fatalf("first frame = %q", s.Text())
	}
	if s.Scan() {
		t.Fatalf("unexpected frame %q", s.Text())
	}
	if !errors.Is(s.Err(), ErrFrameEnd) {
		t.Fatalf("Err() = %v, want %v", s.Err(), ErrFrameEnd)
	}
}

func TestADU_RoundTrip(t *testing.T) {
	codec := modbus.StandardCodec()
	adu := &modbus.ASCIIADU{
		Address: 0x01,
		PDU:     &modbus.ReadHoldingRegistersRequest{StartingAddress: 0x13, Quantity: 0x0A},
	}
	line, err := EncodeADU(codec, adu)
	if err != nil {
		t.Fatalf("EncodeADU() error = %v", err)
	}
	if want := ":01030013000ADF\r\n"; string(line) != want {
		t.Fatalf("EncodeADU() = %q, want %q", line, want)
	}
	got, err := DecodeADU(codec, line, false)
	if err != nil {
		t.Fatalf("DecodeADU() error = %v", err)
	}
	if diff := cmp.Diff(adu, got); diff != "" {
		t.Errorf("DecodeADU() mismatch (-want +got):\n%s", diff)
	}

	line[len(line)-3] = 'E'
	if _, err := DecodeADU(codec, line, false); !errors.Is(err, modbus.ErrChecksumMismatch) {
		t.Fatalf("DecodeADU() corrupted error = %v, want %v", err, modbus.ErrChecksumMismatch)
	}
}
