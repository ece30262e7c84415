// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"github.com/ffutop/fieldbus-codec/wire"
)

func writeUint16s(w *wire.Writer, vs ...uint16) error {
	for _, v := range vs {
		if err := w.WriteUint16(v); err != nil {
			return err
		}
	}
	return nil
}

func readUint16s(r *wire.Reader, ps ...*uint16) error {
	for _, p := range ps {
		v, err := r.ReadUint16()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// serializeUint16s writes a body made of 16-bit fields only.
func serializeUint16s(w *wire.Writer, vs ...uint16) (int, error) {
	start := w.Pos()
	err := writeUint16s(w, vs...)
	return w.Pos() - start, err
}

// checkCount fails when an implicit count of n does not fit in max.
func checkCount(field string, n, max int) error {
	if n > max {
		return &ValueOutOfRangeError{Field: field, Value: n, Max: max}
	}
	return nil
}

// writeCounted8 writes len(p) as a byte followed by p.
func writeCounted8(w *wire.Writer, field string, p []byte) error {
	if err := checkCount(field, len(p), 0xFF); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(p))); err != nil {
		return err
	}
	return w.WriteBytes(p)
}

// readCounted8 reads a byte count followed by that many bytes.
func readCounted8(r *wire.Reader) ([]byte, error) {
	n, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

func serializeCounted8(w *wire.Writer, field string, p []byte) (int, error) {
	start := w.Pos()
	err := writeCounted8(w, field, p)
	return w.Pos() - start, err
}

// parsed drops a partially decoded value when err is set.
func parsed[M any](m *M, err error) (*M, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// readItems parses items until exactly byteCount bytes are consumed.
func readItems[T any](r *wire.Reader, field string, byteCount int, read func(*wire.Reader) (T, error)) ([]T, error) {
	var items []T
	start := r.Pos()
	for r.Pos()-start < byteCount {
		item, err := read(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if consumed := r.Pos() - start; consumed != byteCount {
		return nil, &LengthMismatchError{Field: field, Declared: byteCount, Actual: consumed}
	}
	return items, nil
}
