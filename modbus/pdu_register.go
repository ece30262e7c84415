// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"

	"github.com/ffutop/fieldbus-codec/wire"
)

// Register access. Register values are carried as raw big-endian bytes,
// two per register. Use RegisterBytes and BytesRegisters to convert.

// RegisterBytes packs registers into their wire representation.
func RegisterBytes(regs ...uint16) []byte {
	out := make([]byte, 2*len(regs))
	for i, v := range regs {
		binary.BigEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// BytesRegisters unpacks wire bytes into registers. A trailing odd byte is ignored.
func BytesRegisters(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return out
}

type ReadHoldingRegistersRequest struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *ReadHoldingRegistersRequest) Discriminant() Discriminant {
	return request(FuncCodeReadHoldingRegisters)
}
func (m *ReadHoldingRegistersRequest) LengthInBits() uint32 { return 32 }
func (m *ReadHoldingRegistersRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseReadHoldingRegistersRequest(r *wire.Reader, _ NoContext) (*ReadHoldingRegistersRequest, error) {
	m := new(ReadHoldingRegistersRequest)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

type ReadHoldingRegistersResponse struct {
	Value []byte
}

func (m *ReadHoldingRegistersResponse) Discriminant() Discriminant {
	return response(FuncCodeReadHoldingRegisters)
}
func (m *ReadHoldingRegistersResponse) LengthInBits() uint32 { return 8 + 8*uint32(len(m.Value)) }
func (m *ReadHoldingRegistersResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReadHoldingRegistersResponse.value", m.Value)
}

func ParseReadHoldingRegistersResponse(r *wire.Reader, _ NoContext) (*ReadHoldingRegistersResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReadHoldingRegistersResponse{Value: v}, err)
}

type ReadInputRegistersRequest struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *ReadInputRegistersRequest) Discriminant() Discriminant {
	return request(FuncCodeReadInputRegisters)
}
func (m *ReadInputRegistersRequest) LengthInBits() uint32 { return 32 }
func (m *ReadInputRegistersRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseReadInputRegistersRequest(r *wire.Reader, _ NoContext) (*ReadInputRegistersRequest, error) {
	m := new(ReadInputRegistersRequest)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

type ReadInputRegistersResponse struct {
	Value []byte
}

func (m *ReadInputRegistersResponse) Discriminant() Discriminant {
	return response(FuncCodeReadInputRegisters)
}
func (m *ReadInputRegistersResponse) LengthInBits() uint32 { return 8 + 8*uint32(len(m.Value)) }
func (m *ReadInputRegistersResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReadInputRegistersResponse.value", m.Value)
}

func ParseReadInputRegistersResponse(r *wire.Reader, _ NoContext) (*ReadInputRegistersResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReadInputRegistersResponse{Value: v}, err)
}

type WriteSingleRegisterRequest struct {
	Address uint16
	Value   uint16
}

func (m *WriteSingleRegisterRequest) Discriminant() Discriminant {
	return request(FuncCodeWriteSingleRegister)
}
func (m *WriteSingleRegisterRequest) LengthInBits() uint32 { return 32 }
func (m *WriteSingleRegisterRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.Address, m.Value)
}

func ParseWriteSingleRegisterRequest(r *wire.Reader, _ NoContext) (*WriteSingleRegisterRequest, error) {
	m := new(WriteSingleRegisterRequest)
	return parsed(m, readUint16s(r, &m.Address, &m.Value))
}

type WriteSingleRegisterResponse struct {
	Address uint16
	Value   uint16
}

func (m *WriteSingleRegisterResponse) Discriminant() Discriminant {
	return response(FuncCodeWriteSingleRegister)
}
func (m *WriteSingleRegisterResponse) LengthInBits() uint32 { return 32 }
func (m *WriteSingleRegisterResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.Address, m.Value)
}

func ParseWriteSingleRegisterResponse(r *wire.Reader, _ NoContext) (*WriteSingleRegisterResponse, error) {
	m := new(WriteSingleRegisterResponse)
	return parsed(m, readUint16s(r, &m.Address, &m.Value))
}

type WriteMultipleHoldingRegistersRequest struct {
	StartingAddress uint16
	Quantity        uint16
	Value           []byte
}

func (m *WriteMultipleHoldingRegistersRequest) Discriminant() Discriminant {
	return request(FuncCodeWriteMultipleRegisters)
}
func (m *WriteMultipleHoldingRegistersRequest) LengthInBits() uint32 {
	return 40 + 8*uint32(len(m.Value))
}
func (m *WriteMultipleHoldingRegistersRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeWriteMultiple(w, "WriteMultipleHoldingRegistersRequest.value", m.StartingAddress, m.Quantity, m.Value)
}

func ParseWriteMultipleHoldingRegistersRequest(r *wire.Reader, _ NoContext) (*WriteMultipleHoldingRegistersRequest, error) {
	m := new(WriteMultipleHoldingRegistersRequest)
	if err := readUint16s(r, &m.StartingAddress, &m.Quantity); err != nil {
		return nil, err
	}
	v, err := readCounted8(r)
	m.Value = v
	return parsed(m, err)
}

type WriteMultipleHoldingRegistersResponse struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *WriteMultipleHoldingRegistersResponse) Discriminant() Discriminant {
	return response(FuncCodeWriteMultipleRegisters)
}
func (m *WriteMultipleHoldingRegistersResponse) LengthInBits() uint32 { return 32 }
func (m *WriteMultipleHoldingRegistersResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseWriteMultipleHoldingRegistersResponse(r *wire.Reader, _ NoContext) (*WriteMultipleHoldingRegistersResponse, error) {
	m := new(WriteMultipleHoldingRegistersResponse)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

type MaskWriteHoldingRegisterRequest struct {
	ReferenceAddress uint16
	AndMask          uint16
	OrMask           uint16
}

func (m *MaskWriteHoldingRegisterRequest) Discriminant() Discriminant {
	return request(FuncCodeMaskWriteRegister)
}
func (m *MaskWriteHoldingRegisterRequest) LengthInBits() uint32 { return 48 }
func (m *MaskWriteHoldingRegisterRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.ReferenceAddress, m.AndMask, m.OrMask)
}

func ParseMaskWriteHoldingRegisterRequest(r *wire.Reader, _ NoContext) (*MaskWriteHoldingRegisterRequest, error) {
	m := new(MaskWriteHoldingRegisterRequest)
	return parsed(m, readUint16s(r, &m.ReferenceAddress, &m.AndMask, &m.OrMask))
}

type MaskWriteHoldingRegisterResponse struct {
	ReferenceAddress uint16
	AndMask          uint16
	OrMask           uint16
}

func (m *MaskWriteHoldingRegisterResponse) Discriminant() Discriminant {
	return response(FuncCodeMaskWriteRegister)
}
func (m *MaskWriteHoldingRegisterResponse) LengthInBits() uint32 { return 48 }
func (m *MaskWriteHoldingRegisterResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.ReferenceAddress, m.AndMask, m.OrMask)
}

func ParseMaskWriteHoldingRegisterResponse(r *wire.Reader, _ NoContext) (*MaskWriteHoldingRegisterResponse, error) {
	m := new(MaskWriteHoldingRegisterResponse)
	return parsed(m, readUint16s(r, &m.ReferenceAddress, &m.AndMask, &m.OrMask))
}

type ReadWriteMultipleHoldingRegistersRequest struct {
	ReadStartingAddress  uint16
	ReadQuantity         uint16
	WriteStartingAddress uint16
	WriteQuantity        uint16
	Value                []byte
}

func (m *ReadWriteMultipleHoldingRegistersRequest) Discriminant() Discriminant {
	return request(FuncCodeReadWriteMultipleRegisters)
}
func (m *ReadWriteMultipleHoldingRegistersRequest) LengthInBits() uint32 {
	return 72 + 8*uint32(len(m.Value))
}
func (m *ReadWriteMultipleHoldingRegistersRequest) Serialize(w *wire.Writer) (int, error) {
	const field = "ReadWriteMultipleHoldingRegistersRequest.value"
	if err := checkCount(field, len(m.Value), 0xFF); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := writeUint16s(w, m.ReadStartingAddress, m.ReadQuantity, m.WriteStartingAddress, m.WriteQuantity); err != nil {
		return w.Pos() - start, err
	}
	err := writeCounted8(w, field, m.Value)
	return w.Pos() - start, err
}

func ParseReadWriteMultipleHoldingRegistersRequest(r *wire.Reader, _ NoContext) (*ReadWriteMultipleHoldingRegistersRequest, error) {
	m := new(ReadWriteMultipleHoldingRegistersRequest)
	err := readUint16s(r, &m.ReadStartingAddress, &m.ReadQuantity, &m.WriteStartingAddress, &m.WriteQuantity)
	if err != nil {
		return nil, err
	}
	v, err := readCounted8(r)
	m.Value = v
	return parsed(m, err)
}

type ReadWriteMultipleHoldingRegistersResponse struct {
	Value []byte
}

func (m *ReadWriteMultipleHoldingRegistersResponse) Discriminant() Discriminant {
	return response(FuncCodeReadWriteMultipleRegisters)
}
func (m *ReadWriteMultipleHoldingRegistersResponse) LengthInBits() uint32 {
	return 8 + 8*uint32(len(m.Value))
}
func (m *ReadWriteMultipleHoldingRegistersResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReadWriteMultipleHoldingRegistersResponse.value", m.Value)
}

func ParseReadWriteMultipleHoldingRegistersResponse(r *wire.Reader, _ NoContext) (*ReadWriteMultipleHoldingRegistersResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReadWriteMultipleHoldingRegistersResponse{Value: v}, err)
}

type ReadFIFOQueueRequest struct {
	FIFOPointerAddress uint16
}

func (m *ReadFIFOQueueRequest) Discriminant() Discriminant { return request(FuncCodeReadFIFOQueue) }
func (m *ReadFIFOQueueRequest) LengthInBits() uint32       { return 16 }
func (m *ReadFIFOQueueRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.FIFOPointerAddress)
}

func ParseReadFIFOQueueRequest(r *wire.Reader, _ NoContext) (*ReadFIFOQueueRequest, error) {
	m := new(ReadFIFOQueueRequest)
	return parsed(m, readUint16s(r, &m.FIFOPointerAddress))
}

// ReadFIFOQueueResponse encodes a byte count of 2n+2 and a FIFO count of n
// ahead of the n values.
type ReadFIFOQueueResponse struct {
	FIFOValue []uint16
}

// MaxFIFOCount is the largest queue a response may carry.
const MaxFIFOCount = 31

func (m *ReadFIFOQueueResponse) Discriminant() Discriminant { return response(FuncCodeReadFIFOQueue) }
func (m *ReadFIFOQueueResponse) LengthInBits() uint32 {
	return 32 + 16*uint32(len(m.FIFOValue))
}
func (m *ReadFIFOQueueResponse) Serialize(w *wire.Writer) (int, error) {
	n := len(m.FIFOValue)
	if err := checkCount("ReadFIFOQueueResponse.fifoValue", n, MaxFIFOCount); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := writeUint16s(w, uint16(2*n+2), uint16(n)); err != nil {
		return w.Pos() - start, err
	}
	err := writeUint16s(w, m.FIFOValue...)
	return w.Pos() - start, err
}

func ParseReadFIFOQueueResponse(r *wire.Reader, _ NoContext) (*ReadFIFOQueueResponse, error) {
	var byteCount, fifoCount uint16
	if err := readUint16s(r, &byteCount, &fifoCount); err != nil {
		return nil, err
	}
	if int(byteCount) != 2*int(fifoCount)+2 {
		return nil, &LengthMismatchError{
			Field:    "ReadFIFOQueueResponse.byteCount",
			Declared: int(byteCount),
			Actual:   2*int(fifoCount) + 2,
		}
	}
	if fifoCount > MaxFIFOCount {
		return nil, &LengthMismatchError{
			Field:    "ReadFIFOQueueResponse.byteCount",
			Declared: int(byteCount),
			Actual:   2*MaxFIFOCount + 2,
		}
	}
	m := new(ReadFIFOQueueResponse)
	for i := 0; i < int(fifoCount); i++ {
		v, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		m.FIFOValue = append(m.FIFOValue, v)
	}
	return m, nil
}
