// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "github.com/ffutop/fieldbus-codec/enum"

// Function codes. Only the low 7 bits are significant on the wire.
const (
	FuncCodeReadCoils              = 0x01
	FuncCodeReadDiscreteInputs     = 0x02
	FuncCodeReadHoldingRegisters   = 0x03
	FuncCodeReadInputRegisters     = 0x04
	FuncCodeWriteSingleCoil        = 0x05
	FuncCodeWriteSingleRegister    = 0x06
	FuncCodeReadExceptionStatus    = 0x07
	FuncCodeDiagnostic             = 0x08
	FuncCodeGetComEventCounter     = 0x0B
	FuncCodeGetComEventLog         = 0x0C
	FuncCodeWriteMultipleCoils     = 0x0F
	FuncCodeWriteMultipleRegisters = 0x10
	FuncCodeReportServerID         = 0x11
	FuncCodeReadFileRecord         = 0x14
	FuncCodeWriteFileRecord        = 0x15
	FuncCodeMaskWriteRegister      = 0x16

	FuncCodeReadWriteMultipleRegisters = 0x17
	FuncCodeReadFIFOQueue              = 0x18
	FuncCodeReadDeviceIdentification   = 0x2B
)

// FunctionCodes names the public function codes.
var FunctionCodes = enum.MustTable[uint8]("FunctionCode", 7,
	enum.Entry[uint8]{Value: FuncCodeReadCoils, Name: "READ_COILS"},
	enum.Entry[uint8]{Value: FuncCodeReadDiscreteInputs, Name: "READ_DISCRETE_INPUTS"},
	enum.Entry[uint8]{Value: FuncCodeReadHoldingRegisters, Name: "READ_HOLDING_REGISTERS"},
	enum.Entry[uint8]{Value: FuncCodeReadInputRegisters, Name: "READ_INPUT_REGISTERS"},
	enum.Entry[uint8]{Value: FuncCodeWriteSingleCoil, Name: "WRITE_SINGLE_COIL"},
	enum.Entry[uint8]{Value: FuncCodeWriteSingleRegister, Name: "WRITE_SINGLE_REGISTER"},
	enum.Entry[uint8]{Value: FuncCodeReadExceptionStatus, Name: "READ_EXCEPTION_STATUS"},
	enum.Entry[uint8]{Value: FuncCodeDiagnostic, Name: "DIAGNOSTIC"},
	enum.Entry[uint8]{Value: FuncCodeGetComEventCounter, Name: "GET_COM_EVENT_COUNTER"},
	enum.Entry[uint8]{Value: FuncCodeGetComEventLog, Name: "GET_COM_EVENT_LOG"},
	enum.Entry[uint8]{Value: FuncCodeWriteMultipleCoils, Name: "WRITE_MULTIPLE_COILS"},
	enum.Entry[uint8]{Value: FuncCodeWriteMultipleRegisters, Name: "WRITE_MULTIPLE_REGISTERS"},
	enum.Entry[uint8]{Value: FuncCodeReportServerID, Name: "REPORT_SERVER_ID"},
	enum.Entry[uint8]{Value: FuncCodeReadFileRecord, Name: "READ_FILE_RECORD"},
	enum.Entry[uint8]{Value: FuncCodeWriteFileRecord, Name: "WRITE_FILE_RECORD"},
	enum.Entry[uint8]{Value: FuncCodeMaskWriteRegister, Name: "MASK_WRITE_REGISTER"},
	enum.Entry[uint8]{Value: FuncCodeReadWriteMultipleRegisters, Name: "READ_WRITE_MULTIPLE_REGISTERS"},
	enum.Entry[uint8]{Value: FuncCodeReadFIFOQueue, Name: "READ_FIFO_QUEUE"},
	enum.Entry[uint8]{Value: FuncCodeReadDeviceIdentification, Name: "READ_DEVICE_IDENTIFICATION"},
)
