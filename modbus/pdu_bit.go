// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "github.com/ffutop/fieldbus-codec/wire"

// Bit access: coils and discrete inputs. Packed bit values travel as raw
// bytes, least significant bit first, exactly as received.

type ReadCoilsRequest struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *ReadCoilsRequest) Discriminant() Discriminant { return request(FuncCodeReadCoils) }
func (m *ReadCoilsRequest) LengthInBits() uint32       { return 32 }
func (m *ReadCoilsRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseReadCoilsRequest(r *wire.Reader, _ NoContext) (*ReadCoilsRequest, error) {
	m := new(ReadCoilsRequest)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

type ReadCoilsResponse struct {
	Value []byte
}

func (m *ReadCoilsResponse) Discriminant() Discriminant { return response(FuncCodeReadCoils) }
func (m *ReadCoilsResponse) LengthInBits() uint32       { return 8 + 8*uint32(len(m.Value)) }
func (m *ReadCoilsResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReadCoilsResponse.value", m.Value)
}

func ParseReadCoilsResponse(r *wire.Reader, _ NoContext) (*ReadCoilsResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReadCoilsResponse{Value: v}, err)
}

type ReadDiscreteInputsRequest struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *ReadDiscreteInputsRequest) Discriminant() Discriminant {
	return request(FuncCodeReadDiscreteInputs)
}
func (m *ReadDiscreteInputsRequest) LengthInBits() uint32 { return 32 }
func (m *ReadDiscreteInputsRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseReadDiscreteInputsRequest(r *wire.Reader, _ NoContext) (*ReadDiscreteInputsRequest, error) {
	m := new(ReadDiscreteInputsRequest)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

type ReadDiscreteInputsResponse struct {
	Value []byte
}

func (m *ReadDiscreteInputsResponse) Discriminant() Discriminant {
	return response(FuncCodeReadDiscreteInputs)
}
func (m *ReadDiscreteInputsResponse) LengthInBits() uint32 { return 8 + 8*uint32(len(m.Value)) }
func (m *ReadDiscreteInputsResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReadDiscreteInputsResponse.value", m.Value)
}

func ParseReadDiscreteInputsResponse(r *wire.Reader, _ NoContext) (*ReadDiscreteInputsResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReadDiscreteInputsResponse{Value: v}, err)
}

// Coil values on the wire.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

type WriteSingleCoilRequest struct {
	Address uint16
	Value   uint16
}

func (m *WriteSingleCoilRequest) Discriminant() Discriminant { return request(FuncCodeWriteSingleCoil) }
func (m *WriteSingleCoilRequest) LengthInBits() uint32       { return 32 }
func (m *WriteSingleCoilRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.Address, m.Value)
}

func ParseWriteSingleCoilRequest(r *wire.Reader, _ NoContext) (*WriteSingleCoilRequest, error) {
	m := new(WriteSingleCoilRequest)
	return parsed(m, readUint16s(r, &m.Address, &m.Value))
}

type WriteSingleCoilResponse struct {
	Address uint16
	Value   uint16
}

func (m *WriteSingleCoilResponse) Discriminant() Discriminant {
	return response(FuncCodeWriteSingleCoil)
}
func (m *WriteSingleCoilResponse) LengthInBits() uint32 { return 32 }
func (m *WriteSingleCoilResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.Address, m.Value)
}

func ParseWriteSingleCoilResponse(r *wire.Reader, _ NoContext) (*WriteSingleCoilResponse, error) {
	m := new(WriteSingleCoilResponse)
	return parsed(m, readUint16s(r, &m.Address, &m.Value))
}

// WriteMultipleCoilsRequest carries both a declared coil quantity and the
// packed values; the byte count is derived from Value.
type WriteMultipleCoilsRequest struct {
	StartingAddress uint16
	Quantity        uint16
	Value           []byte
}

func (m *WriteMultipleCoilsRequest) Discriminant() Discriminant {
	return request(FuncCodeWriteMultipleCoils)
}
func (m *WriteMultipleCoilsRequest) LengthInBits() uint32 { return 40 + 8*uint32(len(m.Value)) }
func (m *WriteMultipleCoilsRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeWriteMultiple(w, "WriteMultipleCoilsRequest.value", m.StartingAddress, m.Quantity, m.Value)
}

func ParseWriteMultipleCoilsRequest(r *wire.Reader, _ NoContext) (*WriteMultipleCoilsRequest, error) {
	m := new(WriteMultipleCoilsRequest)
	if err := readUint16s(r, &m.StartingAddress, &m.Quantity); err != nil {
		return nil, err
	}
	v, err := readCounted8(r)
	m.Value = v
	return parsed(m, err)
}

type WriteMultipleCoilsResponse struct {
	StartingAddress uint16
	Quantity        uint16
}

func (m *WriteMultipleCoilsResponse) Discriminant() Discriminant {
	return response(FuncCodeWriteMultipleCoils)
}
func (m *WriteMultipleCoilsResponse) LengthInBits() uint32 { return 32 }
func (m *WriteMultipleCoilsResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.StartingAddress, m.Quantity)
}

func ParseWriteMultipleCoilsResponse(r *wire.Reader, _ NoContext) (*WriteMultipleCoilsResponse, error) {
	m := new(WriteMultipleCoilsResponse)
	return parsed(m, readUint16s(r, &m.StartingAddress, &m.Quantity))
}

func serializeWriteMultiple(w *wire.Writer, field string, address, quantity uint16, value []byte) (int, error) {
	if err := checkCount(field, len(value), 0xFF); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := writeUint16s(w, address, quantity); err != nil {
		return w.Pos() - start, err
	}
	err := writeCounted8(w, field, value)
	return w.Pos() - start, err
}
