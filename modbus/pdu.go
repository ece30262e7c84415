// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"

	"github.com/ffutop/fieldbus-codec/wire"
)

// Discriminant selects the PDU variant. ErrorFlag and FunctionCode share
// the leading byte on the wire; Response is supplied by the caller.
type Discriminant struct {
	ErrorFlag    bool
	FunctionCode uint8
	Response     bool
}

func (d Discriminant) String() string {
	dir := "request"
	if d.Response {
		dir = "response"
	}
	if d.ErrorFlag {
		dir = "error"
	}
	return fmt.Sprintf("%s(0x%02X) %s", FunctionCodes.String(d.FunctionCode), d.FunctionCode, dir)
}

func request(fc uint8) Discriminant  { return Discriminant{FunctionCode: fc} }
func response(fc uint8) Discriminant { return Discriminant{FunctionCode: fc, Response: true} }

// PDU is a Modbus protocol data unit. LengthInBits and Serialize cover the
// body only; the leading discriminant byte is handled by WritePDU.
type PDU interface {
	Message
	Discriminant() Discriminant
}

// PDULengthInBits returns the encoded size of p including its discriminant.
func PDULengthInBits(p PDU) uint32 {
	return 8 + p.LengthInBits()
}

type pduKey struct {
	fc       uint8
	response bool
}

type pduParser func(r *wire.Reader) (PDU, error)

var (
	_ Parser[*ReadCoilsRequest, NoContext]                 = ParseReadCoilsRequest
	_ Parser[*ReadDeviceIdentificationResponse, NoContext] = ParseReadDeviceIdentificationResponse
)

func parser[M PDU](parse func(*wire.Reader, NoContext) (M, error)) pduParser {
	return func(r *wire.Reader) (PDU, error) {
		m, err := parse(r, NoContext{})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

var pduParsers = map[pduKey]pduParser{
	{FuncCodeReadCoils, false}:                  parser(ParseReadCoilsRequest),
	{FuncCodeReadCoils, true}:                   parser(ParseReadCoilsResponse),
	{FuncCodeReadDiscreteInputs, false}:         parser(ParseReadDiscreteInputsRequest),
	{FuncCodeReadDiscreteInputs, true}:          parser(ParseReadDiscreteInputsResponse),
	{FuncCodeReadHoldingRegisters, false}:       parser(ParseReadHoldingRegistersRequest),
	{FuncCodeReadHoldingRegisters, true}:        parser(ParseReadHoldingRegistersResponse),
	{FuncCodeReadInputRegisters, false}:         parser(ParseReadInputRegistersRequest),
	{FuncCodeReadInputRegisters, true}:          parser(ParseReadInputRegistersResponse),
	{FuncCodeWriteSingleCoil, false}:            parser(ParseWriteSingleCoilRequest),
	{FuncCodeWriteSingleCoil, true}:             parser(ParseWriteSingleCoilResponse),
	{FuncCodeWriteSingleRegister, false}:        parser(ParseWriteSingleRegisterRequest),
	{FuncCodeWriteSingleRegister, true}:         parser(ParseWriteSingleRegisterResponse),
	{FuncCodeReadExceptionStatus, false}:        parser(ParseReadExceptionStatusRequest),
	{FuncCodeReadExceptionStatus, true}:         parser(ParseReadExceptionStatusResponse),
	{FuncCodeDiagnostic, false}:                 parser(ParseDiagnosticRequest),
	{FuncCodeDiagnostic, true}:                  parser(ParseDiagnosticResponse),
	{FuncCodeGetComEventCounter, false}:         parser(ParseGetComEventCounterRequest),
	{FuncCodeGetComEventCounter, true}:          parser(ParseGetComEventCounterResponse),
	{FuncCodeGetComEventLog, false}:             parser(ParseGetComEventLogRequest),
	{FuncCodeGetComEventLog, true}:              parser(ParseGetComEventLogResponse),
	{FuncCodeWriteMultipleCoils, false}:         parser(ParseWriteMultipleCoilsRequest),
	{FuncCodeWriteMultipleCoils, true}:          parser(ParseWriteMultipleCoilsResponse),
	{FuncCodeWriteMultipleRegisters, false}:     parser(ParseWriteMultipleHoldingRegistersRequest),
	{FuncCodeWriteMultipleRegisters, true}:      parser(ParseWriteMultipleHoldingRegistersResponse),
	{FuncCodeReportServerID, false}:             parser(ParseReportServerIDRequest),
	{FuncCodeReportServerID, true}:              parser(ParseReportServerIDResponse),
	{FuncCodeReadFileRecord, false}:             parser(ParseReadFileRecordRequest),
	{FuncCodeReadFileRecord, true}:              parser(ParseReadFileRecordResponse),
	{FuncCodeWriteFileRecord, false}:            parser(ParseWriteFileRecordRequest),
	{FuncCodeWriteFileRecord, true}:             parser(ParseWriteFileRecordResponse),
	{FuncCodeMaskWriteRegister, false}:          parser(ParseMaskWriteHoldingRegisterRequest),
	{FuncCodeMaskWriteRegister, true}:           parser(ParseMaskWriteHoldingRegisterResponse),
	{FuncCodeReadWriteMultipleRegisters, false}: parser(ParseReadWriteMultipleHoldingRegistersRequest),
	{FuncCodeReadWriteMultipleRegisters, true}:  parser(ParseReadWriteMultipleHoldingRegistersResponse),
	{FuncCodeReadFIFOQueue, false}:              parser(ParseReadFIFOQueueRequest),
	{FuncCodeReadFIFOQueue, true}:               parser(ParseReadFIFOQueueResponse),
	{FuncCodeReadDeviceIdentification, false}:   parser(ParseReadDeviceIdentificationRequest),
	{FuncCodeReadDeviceIdentification, true}:    parser(ParseReadDeviceIdentificationResponse),
}

// RegisterPDU adds a decoder for a function code not covered by this
// package. It must be called before any concurrent use of ReadPDU,
// typically from an init function.
func RegisterPDU[M PDU](functionCode uint8, response bool, parse func(*wire.Reader, NoContext) (M, error)) error {
	if functionCode > 0x7F {
		return &ValueOutOfRangeError{Field: "functionCode", Value: int(functionCode), Max: 0x7F}
	}
	key := pduKey{functionCode, response}
	if _, ok := pduParsers[key]; ok {
		return fmt.Errorf("modbus: decoder for %s already registered",
			Discriminant{FunctionCode: functionCode, Response: response})
	}
	pduParsers[key] = parser(parse)
	return nil
}

// ReadPDU decodes a PDU. Any PDU with the error flag set decodes as an
// *ErrorPDU whatever its direction.
func ReadPDU(r *wire.Reader, ctx PDUContext) (PDU, error) {
	errorFlag, err := r.ReadBit()
	if err != nil {
		return nil, err
	}
	fc, err := r.ReadUint(7)
	if err != nil {
		return nil, err
	}
	if errorFlag {
		return parseErrorPDU(r, uint8(fc))
	}
	parse, ok := pduParsers[pduKey{uint8(fc), ctx.Response}]
	if !ok {
		return nil, &UnknownDiscriminantError{
			Discriminant: Discriminant{FunctionCode: uint8(fc), Response: ctx.Response},
		}
	}
	return parse(r)
}

// WritePDU encodes p preceded by its discriminant and returns the number
// of bytes written.
func WritePDU(w *wire.Writer, p PDU) (int, error) {
	d := p.Discriminant()
	if d.FunctionCode > 0x7F {
		return 0, &ValueOutOfRangeError{Field: "functionCode", Value: int(d.FunctionCode), Max: 0x7F}
	}
	start := w.Pos()
	if err := w.WriteBit(d.ErrorFlag); err != nil {
		return w.Pos() - start, err
	}
	if err := w.WriteUint(uint64(d.FunctionCode), 7); err != nil {
		return w.Pos() - start, err
	}
	if _, err := p.Serialize(w); err != nil {
		return w.Pos() - start, err
	}
	return w.Pos() - start, nil
}
