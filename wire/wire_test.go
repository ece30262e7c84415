// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_FlagAndSevenBits(t *testing.T) {
	tests := []struct {
		name  string
		order BitOrder
		flag  bool
		value uint64
		want  byte
	}{
		{"LSBFirst_NoFlag", LSBFirst, false, 0x02, 0x04},
		{"LSBFirst_Flag", LSBFirst, true, 0x02, 0x05},
		{"MSBFirst_NoFlag", MSBFirst, false, 0x02, 0x02},
		{"MSBFirst_Flag", MSBFirst, true, 0x02, 0x82},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, WithBitOrder(tt.order))
			if err := w.WriteBit(tt.flag); err != nil {
				t.Fatal(err)
			}
			if buf.Len() != 0 {
				t.Fatalf("partial byte flushed early: %x", buf.Bytes())
			}
			if err := w.WriteUint(tt.value, 7); err != nil {
				t.Fatal(err)
			}
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
			if got := buf.Bytes(); len(got) != 1 || got[0] != tt.want {
				t.Fatalf("got %x, want %02x", got, tt.want)
			}

			r := NewReader(bytes.NewReader(buf.Bytes()), WithBitOrder(tt.order))
			flag, err := r.ReadBit()
			if err != nil {
				t.Fatal(err)
			}
			if r.Aligned() {
				t.Fatal("reader should be mid-byte after one bit")
			}
			value, err := r.ReadUint(7)
			if err != nil {
				t.Fatal(err)
			}
			if flag != tt.flag || value != tt.value {
				t.Errorf("read back (%v, %#x), want (%v, %#x)", flag, value, tt.flag, tt.value)
			}
			if !r.Aligned() {
				t.Error("reader should be aligned after 8 bits")
			}
		})
	}
}

func TestWriter_ByteOrder(t *testing.T) {
	tests := []struct {
		name  string
		order binary.ByteOrder
		want  []byte
	}{
		{"BigEndian", binary.BigEndian, []byte{0x12, 0x34, 0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}},
		{"LittleEndian", binary.LittleEndian, []byte{0x34, 0x12, 0xEF, 0xBE, 0xAD, 0xDE, 0x03, 0x02, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, WithByteOrder(tt.order))
			if err := w.WriteUint16(0x1234); err != nil {
				t.Fatal(err)
			}
			if err := w.WriteUint32(0xDEADBEEF); err != nil {
				t.Fatal(err)
			}
			if err := w.WriteUint(0x010203, 24); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, buf.Bytes()); diff != "" {
				t.Fatalf("bytes mismatch (-want +got):\n%s", diff)
			}

			r := NewReader(bytes.NewReader(buf.Bytes()), WithByteOrder(tt.order))
			u16, _ := r.ReadUint16()
			u32, _ := r.ReadUint32()
			u24, err := r.ReadUint(24)
			if err != nil {
				t.Fatal(err)
			}
			if u16 != 0x1234 || u32 != 0xDEADBEEF || u24 != 0x010203 {
				t.Errorf("read back %#x %#x %#x", u16, u32, u24)
			}
			if r.Pos() != 9 {
				t.Errorf("Pos() = %d, want 9", r.Pos())
			}
		})
	}
}

func TestRoundTrip_MixedWidths(t *testing.T) {
	type field struct {
		width uint8
		value uint64
	}
	fields := []field{
		{1, 1}, {3, 5}, {4, 9}, {16, 0xBEEF}, {5, 17}, {11, 1234}, {64, 0xFFFFFFFFFFFFFFFF}, {8, 0x7F},
	}

	for _, order := range []BitOrder{LSBFirst, MSBFirst} {
		t.Run(order.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, WithBitOrder(order))
			total := 0
			for _, f := range fields {
				if err := w.WriteUint(f.value, f.width); err != nil {
					t.Fatalf("WriteUint(%#x, %d): %v", f.value, f.width, err)
				}
				total += int(f.width)
			}
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
			if buf.Len()*8 != total {
				t.Fatalf("wrote %d bytes for %d bits", buf.Len(), total)
			}

			r := NewReader(bytes.NewReader(buf.Bytes()), WithBitOrder(order))
			for _, f := range fields {
				got, err := r.ReadUint(f.width)
				if err != nil {
					t.Fatal(err)
				}
				if got != f.value {
					t.Errorf("ReadUint(%d) = %#x, want %#x", f.width, got, f.value)
				}
			}
		})
	}
}

func TestSignedAndFloat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteInt(-3, 4); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt(5, 4); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInt16(-2); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat32(1.5); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFloat64(-0.25); err != nil {
		t.Fatal(err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	a, _ := r.ReadInt(4)
	b, _ := r.ReadInt(4)
	c, _ := r.ReadInt16()
	d, _ := r.ReadFloat32()
	e, err := r.ReadFloat64()
	if err != nil {
		t.Fatal(err)
	}
	if a != -3 || b != 5 || c != -2 || d != 1.5 || e != -0.25 {
		t.Errorf("got %d %d %d %v %v", a, b, c, d, e)
	}
}

func TestReader_ReadBytesZero(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	b, err := r.ReadBytes(0)
	if err != nil || b != nil {
		t.Errorf("ReadBytes(0) = %#v, %v, want nil, nil", b, err)
	}
}

func TestReader_Truncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01}))
	if _, err := r.ReadUint16(); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadUint16 on 1 byte: got %v, want ErrTruncated", err)
	}

	r = NewReader(bytes.NewReader([]byte{0x01, 0x02}))
	if _, err := r.ReadBytes(3); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadBytes(3) on 2 bytes: got %v, want ErrTruncated", err)
	}

	r = NewReader(bytes.NewReader(nil))
	if _, err := r.ReadBit(); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadBit on empty: got %v, want ErrTruncated", err)
	}
}

func TestAlignmentErrors(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBit(true); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("WriteUint16 mid-byte: got %v, want ErrMisaligned", err)
	}
	if err := w.WriteBytes([]byte{1}); !errors.Is(err, ErrMisaligned) {
		t.Errorf("WriteBytes mid-byte: got %v, want ErrMisaligned", err)
	}
	if err := w.Flush(); !errors.Is(err, ErrPartialByte) {
		t.Errorf("Flush mid-byte: got %v, want ErrPartialByte", err)
	}

	r := NewReader(bytes.NewReader([]byte{0xFF, 0xFF}))
	if _, err := r.ReadUint(3); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadUint8(); !errors.Is(err, ErrMisaligned) {
		t.Errorf("ReadUint8 mid-byte: got %v, want ErrMisaligned", err)
	}
	if _, err := r.ReadBytes(1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("ReadBytes mid-byte: got %v, want ErrMisaligned", err)
	}
}

func TestWidthAndOverflow(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	var werr *WidthError
	if err := w.WriteUint(0, 0); !errors.As(err, &werr) {
		t.Errorf("width 0: got %v", err)
	}
	if err := w.WriteUint(0, 65); !errors.As(err, &werr) {
		t.Errorf("width 65: got %v", err)
	}
	if err := w.WriteUint(0x80, 7); !errors.Is(err, ErrOverflow) {
		t.Errorf("0x80 in 7 bits: got %v", err)
	}
	if err := w.WriteInt(8, 4); !errors.Is(err, ErrOverflow) {
		t.Errorf("8 in signed 4 bits: got %v", err)
	}

	r := NewReader(bytes.NewReader([]byte{0}))
	if _, err := r.ReadUint(0); !errors.As(err, &werr) {
		t.Errorf("read width 0: got %v", err)
	}
}

func TestReader_MarkCaptured(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xAA, 0x01, 0x02, 0x03, 0x04}))
	if _, err := r.ReadUint8(); err != nil {
		t.Fatal(err)
	}
	r.Mark()
	if _, err := r.ReadUint16(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadBytes(1); err != nil {
		t.Fatal(err)
	}
	got := r.Captured()
	if diff := cmp.Diff([]byte{0x01, 0x02, 0x03}, got); diff != "" {
		t.Fatalf("captured mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.ReadUint8(); err != nil {
		t.Fatal(err)
	}
	if again := r.Captured(); len(again) != 3 {
		t.Errorf("capture continued after Captured(): %x", again)
	}
}

func TestReader_Align(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xA5, 0x3C}), WithBitOrder(MSBFirst))
	if _, err := r.ReadUint(3); err != nil {
		t.Fatal(err)
	}
	if r.Aligned() {
		t.Fatal("Aligned() after 3 bits")
	}
	r.Align()
	got, err := r.ReadUint8()
	if err != nil || got != 0x3C {
		t.Errorf("ReadUint8() after Align() = %#x, %v, want 0x3c", got, err)
	}
	if r.Pos() != 2 {
		t.Errorf("Pos() = %d, want 2", r.Pos())
	}
}

func TestWriter_Derive(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, WithByteOrder(binary.LittleEndian), WithBitOrder(MSBFirst))
	var buf bytes.Buffer
	d := w.Derive(&buf)
	if d.BitOrder() != MSBFirst || d.ByteOrder() != binary.LittleEndian {
		t.Fatalf("derived writer lost options: %v %v", d.ByteOrder(), d.BitOrder())
	}
	if err := d.WriteUint16(0x0102); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x02, 0x01}, buf.Bytes()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
