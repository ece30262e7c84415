// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"

	"github.com/ffutop/fieldbus-codec/wire"
)

// FileRecordReferenceType is the only reference type defined for file records.
const FileRecordReferenceType uint8 = 0x06

// ReadFileRecordRequestItem addresses RecordLength registers of one record.
type ReadFileRecordRequestItem struct {
	ReferenceType uint8
	FileNumber    uint16
	RecordNumber  uint16
	RecordLength  uint16
}

func (it *ReadFileRecordRequestItem) LengthInBits() uint32 { return 56 }
func (it *ReadFileRecordRequestItem) Serialize(w *wire.Writer) (int, error) {
	start := w.Pos()
	if err := w.WriteUint8(it.ReferenceType); err != nil {
		return 0, err
	}
	err := writeUint16s(w, it.FileNumber, it.RecordNumber, it.RecordLength)
	return w.Pos() - start, err
}

func ParseReadFileRecordRequestItem(r *wire.Reader, _ NoContext) (*ReadFileRecordRequestItem, error) {
	it := new(ReadFileRecordRequestItem)
	var err error
	if it.ReferenceType, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	return parsed(it, readUint16s(r, &it.FileNumber, &it.RecordNumber, &it.RecordLength))
}

// ReadFileRecordResponseItem is encoded with a data length of len(Data)+1.
type ReadFileRecordResponseItem struct {
	ReferenceType uint8
	Data          []byte
}

func (it *ReadFileRecordResponseItem) LengthInBits() uint32 { return 16 + 8*uint32(len(it.Data)) }
func (it *ReadFileRecordResponseItem) Serialize(w *wire.Writer) (int, error) {
	if err := checkCount("ReadFileRecordResponseItem.data", len(it.Data), 0xFF-1); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteUint8(uint8(len(it.Data) + 1)); err != nil {
		return 0, err
	}
	if err := w.WriteUint8(it.ReferenceType); err != nil {
		return w.Pos() - start, err
	}
	err := w.WriteBytes(it.Data)
	return w.Pos() - start, err
}

func ParseReadFileRecordResponseItem(r *wire.Reader, _ NoContext) (*ReadFileRecordResponseItem, error) {
	dataLength, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if dataLength == 0 {
		return nil, &LengthMismatchError{Field: "ReadFileRecordResponseItem.dataLength", Declared: 0, Actual: 1}
	}
	it := new(ReadFileRecordResponseItem)
	if it.ReferenceType, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	it.Data, err = r.ReadBytes(int(dataLength) - 1)
	return parsed(it, err)
}

// WriteFileRecordItem carries whole registers, so RecordData must have an
// even length. The record length on the wire counts registers.
type WriteFileRecordItem struct {
	ReferenceType uint8
	FileNumber    uint16
	RecordNumber  uint16
	RecordData    []byte
}

func (it *WriteFileRecordItem) LengthInBits() uint32 { return 56 + 8*uint32(len(it.RecordData)) }
func (it *WriteFileRecordItem) Serialize(w *wire.Writer) (int, error) {
	if len(it.RecordData)%2 != 0 {
		return 0, fmt.Errorf("%w: odd record data length %d", ErrValueOutOfRange, len(it.RecordData))
	}
	if err := checkCount("WriteFileRecordItem.recordData", len(it.RecordData), 0xFF-7); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteUint8(it.ReferenceType); err != nil {
		return 0, err
	}
	if err := writeUint16s(w, it.FileNumber, it.RecordNumber, uint16(len(it.RecordData)/2)); err != nil {
		return w.Pos() - start, err
	}
	err := w.WriteBytes(it.RecordData)
	return w.Pos() - start, err
}

func ParseWriteFileRecordItem(r *wire.Reader, _ NoContext) (*WriteFileRecordItem, error) {
	it := new(WriteFileRecordItem)
	var err error
	if it.ReferenceType, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	var recordLength uint16
	if err := readUint16s(r, &it.FileNumber, &it.RecordNumber, &recordLength); err != nil {
		return nil, err
	}
	if recordLength > (0xFF-7)/2 {
		return nil, &LengthMismatchError{Field: "WriteFileRecordItem.recordLength", Declared: 2 * int(recordLength), Actual: 0xFF - 7}
	}
	it.RecordData, err = r.ReadBytes(2 * int(recordLength))
	return parsed(it, err)
}

// The request and response items of function 0x15 share one layout.
type (
	WriteFileRecordRequestItem  = WriteFileRecordItem
	WriteFileRecordResponseItem = WriteFileRecordItem
)

// serializeItems writes a byte count equal to the encoded size of items,
// followed by the items.
func serializeItems[T Message](w *wire.Writer, field string, items []T) (int, error) {
	var bits uint32
	for _, it := range items {
		bits += it.LengthInBits()
	}
	if err := checkCount(field, int(bits/8), 0xFF); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteUint8(uint8(bits / 8)); err != nil {
		return 0, err
	}
	for _, it := range items {
		if _, err := it.Serialize(w); err != nil {
			return w.Pos() - start, err
		}
	}
	return w.Pos() - start, nil
}

func parseItems[T any](r *wire.Reader, field string, parse func(*wire.Reader, NoContext) (*T, error)) ([]*T, error) {
	byteCount, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	return readItems(r, field, int(byteCount), func(r *wire.Reader) (*T, error) {
		return parse(r, NoContext{})
	})
}

func itemsLengthInBits[T Message](items []T) uint32 {
	bits := uint32(8)
	for _, it := range items {
		bits += it.LengthInBits()
	}
	return bits
}

type ReadFileRecordRequest struct {
	Items []*ReadFileRecordRequestItem
}

func (m *ReadFileRecordRequest) Discriminant() Discriminant { return request(FuncCodeReadFileRecord) }
func (m *ReadFileRecordRequest) LengthInBits() uint32       { return itemsLengthInBits(m.Items) }
func (m *ReadFileRecordRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeItems(w, "ReadFileRecordRequest.items", m.Items)
}

func ParseReadFileRecordRequest(r *wire.Reader, _ NoContext) (*ReadFileRecordRequest, error) {
	items, err := parseItems(r, "ReadFileRecordRequest.byteCount", ParseReadFileRecordRequestItem)
	return parsed(&ReadFileRecordRequest{Items: items}, err)
}

type ReadFileRecordResponse struct {
	Items []*ReadFileRecordResponseItem
}

func (m *ReadFileRecordResponse) Discriminant() Discriminant { return response(FuncCodeReadFileRecord) }
func (m *ReadFileRecordResponse) LengthInBits() uint32       { return itemsLengthInBits(m.Items) }
func (m *ReadFileRecordResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeItems(w, "ReadFileRecordResponse.items", m.Items)
}

func ParseReadFileRecordResponse(r *wire.Reader, _ NoContext) (*ReadFileRecordResponse, error) {
	items, err := parseItems(r, "ReadFileRecordResponse.byteCount", ParseReadFileRecordResponseItem)
	return parsed(&ReadFileRecordResponse{Items: items}, err)
}

type WriteFileRecordRequest struct {
	Items []*WriteFileRecordRequestItem
}

func (m *WriteFileRecordRequest) Discriminant() Discriminant { return request(FuncCodeWriteFileRecord) }
func (m *WriteFileRecordRequest) LengthInBits() uint32       { return itemsLengthInBits(m.Items) }
func (m *WriteFileRecordRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeItems(w, "WriteFileRecordRequest.items", m.Items)
}

func ParseWriteFileRecordRequest(r *wire.Reader, _ NoContext) (*WriteFileRecordRequest, error) {
	items, err := parseItems(r, "WriteFileRecordRequest.byteCount", ParseWriteFileRecordItem)
	return parsed(&WriteFileRecordRequest{Items: items}, err)
}

// WriteFileRecordResponse echoes the request items.
type WriteFileRecordResponse struct {
	Items []*WriteFileRecordResponseItem
}

func (m *WriteFileRecordResponse) Discriminant() Discriminant {
	return response(FuncCodeWriteFileRecord)
}
func (m *WriteFileRecordResponse) LengthInBits() uint32 { return itemsLengthInBits(m.Items) }
func (m *WriteFileRecordResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeItems(w, "WriteFileRecordResponse.items", m.Items)
}

func ParseWriteFileRecordResponse(r *wire.Reader, _ NoContext) (*WriteFileRecordResponse, error) {
	items, err := parseItems(r, "WriteFileRecordResponse.byteCount", ParseWriteFileRecordItem)
	return parsed(&WriteFileRecordResponse{Items: items}, err)
}
