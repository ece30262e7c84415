// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"strings"

	"github.com/ffutop/fieldbus-codec/enum"
)

// ErrorCode is the exception code carried by an error PDU.
type ErrorCode uint8

const (
	ErrorCodeIllegalFunction                    ErrorCode = 0x01
	ErrorCodeIllegalDataAddress                 ErrorCode = 0x02
	ErrorCodeIllegalDataValue                   ErrorCode = 0x03
	ErrorCodeSlaveDeviceFailure                 ErrorCode = 0x04
	ErrorCodeAcknowledge                        ErrorCode = 0x05
	ErrorCodeSlaveDeviceBusy                    ErrorCode = 0x06
	ErrorCodeNegativeAcknowledge                ErrorCode = 0x07
	ErrorCodeMemoryParityError                  ErrorCode = 0x08
	ErrorCodeGatewayPathUnavailable             ErrorCode = 0x0A
	ErrorCodeGatewayTargetDeviceFailedToRespond ErrorCode = 0x0B
)

var ErrorCodes = enum.MustTable[ErrorCode]("ErrorCode", 8,
	enum.Entry[ErrorCode]{Value: ErrorCodeIllegalFunction, Name: "ILLEGAL_FUNCTION"},
	enum.Entry[ErrorCode]{Value: ErrorCodeIllegalDataAddress, Name: "ILLEGAL_DATA_ADDRESS"},
	enum.Entry[ErrorCode]{Value: ErrorCodeIllegalDataValue, Name: "ILLEGAL_DATA_VALUE"},
	enum.Entry[ErrorCode]{Value: ErrorCodeSlaveDeviceFailure, Name: "SLAVE_DEVICE_FAILURE"},
	enum.Entry[ErrorCode]{Value: ErrorCodeAcknowledge, Name: "ACKNOWLEDGE"},
	enum.Entry[ErrorCode]{Value: ErrorCodeSlaveDeviceBusy, Name: "SLAVE_DEVICE_BUSY"},
	enum.Entry[ErrorCode]{Value: ErrorCodeNegativeAcknowledge, Name: "NEGATIVE_ACKNOWLEDGE"},
	enum.Entry[ErrorCode]{Value: ErrorCodeMemoryParityError, Name: "MEMORY_PARITY_ERROR"},
	enum.Entry[ErrorCode]{Value: ErrorCodeGatewayPathUnavailable, Name: "GATEWAY_PATH_UNAVAILABLE"},
	enum.Entry[ErrorCode]{Value: ErrorCodeGatewayTargetDeviceFailedToRespond, Name: "GATEWAY_TARGET_DEVICE_FAILED_TO_RESPOND"},
)

func (c ErrorCode) String() string { return ErrorCodes.String(c) }

// DeviceInformationLevel is the read device id code of function 0x2B/0x0E.
type DeviceInformationLevel uint8

const (
	DeviceInformationLevelBasic      DeviceInformationLevel = 0x01
	DeviceInformationLevelRegular    DeviceInformationLevel = 0x02
	DeviceInformationLevelExtended   DeviceInformationLevel = 0x03
	DeviceInformationLevelIndividual DeviceInformationLevel = 0x04
)

var DeviceInformationLevels = enum.MustTable[DeviceInformationLevel]("DeviceInformationLevel", 8,
	enum.Entry[DeviceInformationLevel]{Value: DeviceInformationLevelBasic, Name: "BASIC"},
	enum.Entry[DeviceInformationLevel]{Value: DeviceInformationLevelRegular, Name: "REGULAR"},
	enum.Entry[DeviceInformationLevel]{Value: DeviceInformationLevelExtended, Name: "EXTENDED"},
	enum.Entry[DeviceInformationLevel]{Value: DeviceInformationLevelIndividual, Name: "INDIVIDUAL"},
)

func (l DeviceInformationLevel) String() string { return DeviceInformationLevels.String(l) }

// DeviceInformationConformityLevel occupies the low 7 bits of the
// conformity byte; the remaining bit flags individual access.
type DeviceInformationConformityLevel uint8

const (
	ConformityLevelBasicStreamOnly    DeviceInformationConformityLevel = 0x01
	ConformityLevelRegularStreamOnly  DeviceInformationConformityLevel = 0x02
	ConformityLevelExtendedStreamOnly DeviceInformationConformityLevel = 0x03
)

var ConformityLevels = enum.MustTable[DeviceInformationConformityLevel]("DeviceInformationConformityLevel", 7,
	enum.Entry[DeviceInformationConformityLevel]{Value: ConformityLevelBasicStreamOnly, Name: "BASIC_STREAM_ONLY"},
	enum.Entry[DeviceInformationConformityLevel]{Value: ConformityLevelRegularStreamOnly, Name: "REGULAR_STREAM_ONLY"},
	enum.Entry[DeviceInformationConformityLevel]{Value: ConformityLevelExtendedStreamOnly, Name: "EXTENDED_STREAM_ONLY"},
)

func (l DeviceInformationConformityLevel) String() string { return ConformityLevels.String(l) }

type DeviceInformationMoreFollows uint8

const (
	NoMoreObjectsAvailable DeviceInformationMoreFollows = 0x00
	MoreObjectsAvailable   DeviceInformationMoreFollows = 0xFF
)

var MoreFollowsValues = enum.MustTable[DeviceInformationMoreFollows]("DeviceInformationMoreFollows", 8,
	enum.Entry[DeviceInformationMoreFollows]{Value: NoMoreObjectsAvailable, Name: "NO_MORE_OBJECTS_AVAILABLE"},
	enum.Entry[DeviceInformationMoreFollows]{Value: MoreObjectsAvailable, Name: "MORE_OBJECTS_AVAILABLE"},
)

func (m DeviceInformationMoreFollows) String() string { return MoreFollowsValues.String(m) }

// DataType identifies how register contents are interpreted by a client.
type DataType uint8

const (
	DataTypeBool DataType = iota + 1
	DataTypeByte
	DataTypeWord
	DataTypeDWord
	DataTypeLWord
	DataTypeSInt
	DataTypeInt
	DataTypeDInt
	DataTypeLInt
	DataTypeUSInt
	DataTypeUInt
	DataTypeUDInt
	DataTypeULInt
	DataTypeReal
	DataTypeLReal
	DataTypeTime
	DataTypeLTime
	DataTypeDate
	DataTypeLDate
	DataTypeTimeOfDay
	DataTypeLTimeOfDay
	DataTypeDateAndTime
	DataTypeLDateAndTime
	DataTypeChar
	DataTypeWChar
	DataTypeString
	DataTypeWString
)

var DataTypes = enum.MustTable[DataType]("DataType", 8,
	enum.Entry[DataType]{Value: DataTypeBool, Name: "BOOL"},
	enum.Entry[DataType]{Value: DataTypeByte, Name: "BYTE"},
	enum.Entry[DataType]{Value: DataTypeWord, Name: "WORD"},
	enum.Entry[DataType]{Value: DataTypeDWord, Name: "DWORD"},
	enum.Entry[DataType]{Value: DataTypeLWord, Name: "LWORD"},
	enum.Entry[DataType]{Value: DataTypeSInt, Name: "SINT"},
	enum.Entry[DataType]{Value: DataTypeInt, Name: "INT"},
	enum.Entry[DataType]{Value: DataTypeDInt, Name: "DINT"},
	enum.Entry[DataType]{Value: DataTypeLInt, Name: "LINT"},
	enum.Entry[DataType]{Value: DataTypeUSInt, Name: "USINT"},
	enum.Entry[DataType]{Value: DataTypeUInt, Name: "UINT"},
	enum.Entry[DataType]{Value: DataTypeUDInt, Name: "UDINT"},
	enum.Entry[DataType]{Value: DataTypeULInt, Name: "ULINT"},
	enum.Entry[DataType]{Value: DataTypeReal, Name: "REAL"},
	enum.Entry[DataType]{Value: DataTypeLReal, Name: "LREAL"},
	enum.Entry[DataType]{Value: DataTypeTime, Name: "TIME"},
	enum.Entry[DataType]{Value: DataTypeLTime, Name: "LTIME"},
	enum.Entry[DataType]{Value: DataTypeDate, Name: "DATE"},
	enum.Entry[DataType]{Value: DataTypeLDate, Name: "LDATE"},
	enum.Entry[DataType]{Value: DataTypeTimeOfDay, Name: "TIME_OF_DAY"},
	enum.Entry[DataType]{Value: DataTypeLTimeOfDay, Name: "LTIME_OF_DAY"},
	enum.Entry[DataType]{Value: DataTypeDateAndTime, Name: "DATE_AND_TIME"},
	enum.Entry[DataType]{Value: DataTypeLDateAndTime, Name: "LDATE_AND_TIME"},
	enum.Entry[DataType]{Value: DataTypeChar, Name: "CHAR"},
	enum.Entry[DataType]{Value: DataTypeWChar, Name: "WCHAR"},
	enum.Entry[DataType]{Value: DataTypeString, Name: "STRING"},
	enum.Entry[DataType]{Value: DataTypeWString, Name: "WSTRING"},
)

// dataTypeSizes holds the number of bytes a value occupies in registers.
var dataTypeSizes = map[DataType]uint8{
	DataTypeBool: 2, DataTypeByte: 2, DataTypeWord: 2, DataTypeDWord: 4, DataTypeLWord: 8,
	DataTypeSInt: 2, DataTypeInt: 2, DataTypeDInt: 4, DataTypeLInt: 8,
	DataTypeUSInt: 2, DataTypeUInt: 2, DataTypeUDInt: 4, DataTypeULInt: 8,
	DataTypeReal: 4, DataTypeLReal: 8,
	DataTypeTime: 8, DataTypeLTime: 8, DataTypeDate: 8, DataTypeLDate: 8,
	DataTypeTimeOfDay: 8, DataTypeLTimeOfDay: 8, DataTypeDateAndTime: 8, DataTypeLDateAndTime: 8,
	DataTypeChar: 1, DataTypeWChar: 2, DataTypeString: 1, DataTypeWString: 2,
}

func (d DataType) String() string { return DataTypes.String(d) }

// Size returns the register footprint of d in bytes, or 0 when unmapped.
func (d DataType) Size() uint8 { return dataTypeSizes[d] }

// DriverType selects the frame shape around a PDU.
type DriverType uint8

const (
	DriverTCP   DriverType = 0x01
	DriverRTU   DriverType = 0x02
	DriverASCII DriverType = 0x03
)

var DriverTypes = enum.MustTable[DriverType]("DriverType", 8,
	enum.Entry[DriverType]{Value: DriverTCP, Name: "TCP"},
	enum.Entry[DriverType]{Value: DriverRTU, Name: "RTU"},
	enum.Entry[DriverType]{Value: DriverASCII, Name: "ASCII"},
)

func (d DriverType) String() string { return DriverTypes.String(d) }

// ParseDriverType maps a configuration name such as "rtu" to a DriverType.
func ParseDriverType(name string) (DriverType, bool) {
	for _, d := range DriverTypes.Values() {
		if strings.EqualFold(DriverTypes.String(d), name) {
			return d, true
		}
	}
	return 0, false
}
