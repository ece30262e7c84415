// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package s7 holds the lookup tables of the S7comm protocol, built on the
// same tagged enumerations as the Modbus codec.
package s7

import "github.com/ffutop/fieldbus-codec/enum"

// MemoryArea addresses a region of PLC memory.
type MemoryArea uint8

const (
	AreaCounters               MemoryArea = 0x1C
	AreaTimers                 MemoryArea = 0x1D
	AreaDirectPeripheralAccess MemoryArea = 0x80
	AreaInputs                 MemoryArea = 0x81
	AreaOutputs                MemoryArea = 0x82
	AreaFlagsMarkers           MemoryArea = 0x83
	AreaDataBlocks             MemoryArea = 0x84
	AreaInstanceDataBlocks     MemoryArea = 0x85
	AreaLocalData              MemoryArea = 0x86
)

var MemoryAreas = enum.MustTable[MemoryArea]("MemoryArea", 8,
	enum.Entry[MemoryArea]{Value: AreaCounters, Name: "COUNTERS"},
	enum.Entry[MemoryArea]{Value: AreaTimers, Name: "TIMERS"},
	enum.Entry[MemoryArea]{Value: AreaDirectPeripheralAccess, Name: "DIRECT_PERIPHERAL_ACCESS"},
	enum.Entry[MemoryArea]{Value: AreaInputs, Name: "INPUTS"},
	enum.Entry[MemoryArea]{Value: AreaOutputs, Name: "OUTPUTS"},
	enum.Entry[MemoryArea]{Value: AreaFlagsMarkers, Name: "FLAGS_MARKERS"},
	enum.Entry[MemoryArea]{Value: AreaDataBlocks, Name: "DATA_BLOCKS"},
	enum.Entry[MemoryArea]{Value: AreaInstanceDataBlocks, Name: "INSTANCE_DATA_BLOCKS"},
	enum.Entry[MemoryArea]{Value: AreaLocalData, Name: "LOCAL_DATA"},
)

var areaShortNames = map[MemoryArea]string{
	AreaCounters:               "C",
	AreaTimers:                 "T",
	AreaDirectPeripheralAccess: "D",
	AreaInputs:                 "I",
	AreaOutputs:                "Q",
	AreaFlagsMarkers:           "M",
	AreaDataBlocks:             "DB",
	AreaInstanceDataBlocks:     "DBI",
	AreaLocalData:              "LD",
}

func (a MemoryArea) String() string { return MemoryAreas.String(a) }

// ShortName is the prefix used in tag addresses, "DB" for data blocks.
func (a MemoryArea) ShortName() string { return areaShortNames[a] }

// AreaByShortName returns the area addressed by prefix.
func AreaByShortName(prefix string) (MemoryArea, bool) {
	for _, a := range MemoryAreas.Values() {
		if areaShortNames[a] == prefix {
			return a, true
		}
	}
	return 0, false
}

// DataTransportSize describes how item data is sized in a response.
type DataTransportSize uint8

const (
	DataTransportNull          DataTransportSize = 0x00
	DataTransportBit           DataTransportSize = 0x03
	DataTransportByteWordDWord DataTransportSize = 0x04
	DataTransportInteger       DataTransportSize = 0x05
	DataTransportDInteger      DataTransportSize = 0x06
	DataTransportReal          DataTransportSize = 0x07
	DataTransportOctetString   DataTransportSize = 0x09
)

var DataTransportSizes = enum.MustTable[DataTransportSize]("DataTransportSize", 8,
	enum.Entry[DataTransportSize]{Value: DataTransportNull, Name: "NULL"},
	enum.Entry[DataTransportSize]{Value: DataTransportBit, Name: "BIT"},
	enum.Entry[DataTransportSize]{Value: DataTransportByteWordDWord, Name: "BYTE_WORD_DWORD"},
	enum.Entry[DataTransportSize]{Value: DataTransportInteger, Name: "INTEGER"},
	enum.Entry[DataTransportSize]{Value: DataTransportDInteger, Name: "DINTEGER"},
	enum.Entry[DataTransportSize]{Value: DataTransportReal, Name: "REAL"},
	enum.Entry[DataTransportSize]{Value: DataTransportOctetString, Name: "OCTET_STRING"},
)

func (d DataTransportSize) String() string { return DataTransportSizes.String(d) }

// SizeInBits reports whether the item length field counts bits rather
// than bytes.
func (d DataTransportSize) SizeInBits() bool {
	switch d {
	case DataTransportBit, DataTransportByteWordDWord, DataTransportInteger:
		return true
	}
	return false
}

// ItemLength converts the length field of an item carried with d into a
// byte count.
func (d DataTransportSize) ItemLength(field uint16) int {
	if d.SizeInBits() {
		return (int(field) + 7) / 8
	}
	return int(field)
}
