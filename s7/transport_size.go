// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package s7

import (
	"github.com/ffutop/fieldbus-codec/enum"
	"github.com/ffutop/fieldbus-codec/wire"
)

// TransportSize is the data type of a variable in a read or write request.
type TransportSize uint8

const (
	TransportBool TransportSize = iota + 0x01
	TransportByte
	TransportWord
	TransportDWord
	TransportLWord
	TransportInt
	TransportUInt
	TransportSInt
	TransportUSInt
	TransportDInt
	TransportUDInt
	TransportLInt
	TransportULInt
	TransportReal
	TransportLReal
	TransportChar
	TransportWChar
	TransportString
	TransportWString
	TransportTime
	_
	TransportLTime
	TransportDate
	TransportTimeOfDay
	TransportTOD
	TransportDateAndTime
	TransportDT
)

// Family is a PLC product line.
type Family uint8

const (
	S7300 Family = 1 << iota
	S7400
	S71200
	S71500
	LOGO

	allFamilies = S7300 | S7400 | S71200 | S71500 | LOGO
	tiaFamilies = S71200 | S71500 | LOGO
)

type transportSizeInfo struct {
	name          string
	code          uint8
	shortName     byte
	sizeInBytes   uint8
	dataTransport DataTransportSize
	hasData       bool
	protocolID    string
	families      Family
}

func info(name string, code uint8, short byte, size uint8, dts DataTransportSize, hasData bool, families Family) transportSizeInfo {
	return transportSizeInfo{name, code, short, size, dts, hasData, "IEC61131_" + name, families}
}

// alias renames i while keeping the protocol id of the type it abbreviates.
func alias(name string, i transportSizeInfo) transportSizeInfo {
	i.name = name
	return i
}

var transportSizeInfos = map[TransportSize]transportSizeInfo{
	TransportBool:        info("BOOL", 0x01, 'X', 1, DataTransportBit, true, allFamilies),
	TransportByte:        info("BYTE", 0x02, 'B', 1, DataTransportByteWordDWord, true, allFamilies),
	TransportWord:        info("WORD", 0x04, 'W', 2, DataTransportByteWordDWord, true, allFamilies),
	TransportDWord:       info("DWORD", 0x06, 'D', 4, DataTransportByteWordDWord, true, allFamilies),
	TransportLWord:       info("LWORD", 0x00, 'X', 8, 0, false, S71500),
	TransportInt:         info("INT", 0x05, 'W', 2, DataTransportInteger, true, allFamilies),
	TransportUInt:        info("UINT", 0x05, 'W', 2, DataTransportInteger, true, tiaFamilies),
	TransportSInt:        info("SINT", 0x02, 'B', 1, DataTransportByteWordDWord, true, tiaFamilies),
	TransportUSInt:       info("USINT", 0x02, 'B', 1, DataTransportByteWordDWord, true, tiaFamilies),
	TransportDInt:        info("DINT", 0x07, 'D', 4, DataTransportInteger, true, allFamilies),
	TransportUDInt:       info("UDINT", 0x07, 'D', 4, DataTransportInteger, true, tiaFamilies),
	TransportLInt:        info("LINT", 0x00, 'X', 8, 0, false, S71500),
	TransportULInt:       info("ULINT", 0x00, 'X', 16, 0, false, S71500),
	TransportReal:        info("REAL", 0x08, 'D', 4, DataTransportReal, true, allFamilies),
	TransportLReal:       info("LREAL", 0x30, 'X', 8, 0, false, S71200|S71500),
	TransportChar:        info("CHAR", 0x03, 'B', 1, DataTransportByteWordDWord, true, allFamilies),
	TransportWChar:       info("WCHAR", 0x13, 'X', 2, 0, false, tiaFamilies),
	TransportString:      info("STRING", 0x03, 'X', 1, DataTransportByteWordDWord, true, allFamilies),
	TransportWString:     info("WSTRING", 0x00, 'X', 2, 0, false, tiaFamilies),
	TransportTime:        info("TIME", 0x0B, 'X', 4, 0, false, allFamilies),
	TransportLTime:       info("LTIME", 0x00, 'X', 8, 0, false, S71500),
	TransportDate:        info("DATE", 0x09, 'X', 2, DataTransportByteWordDWord, true, allFamilies),
	TransportTimeOfDay:   info("TIME_OF_DAY", 0x06, 'X', 4, DataTransportByteWordDWord, true, allFamilies),
	TransportTOD:         alias("TOD", info("TIME_OF_DAY", 0x06, 'X', 4, DataTransportByteWordDWord, true, allFamilies)),
	TransportDateAndTime: info("DATE_AND_TIME", 0x0F, 'X', 12, 0, false, S7300|S7400|S71500),
	TransportDT:          alias("DT", info("DATE_AND_TIME", 0x0F, 'X', 12, 0, false, S7300|S7400|S71500)),
}

// TransportSizes maps wire tags to transport sizes.
var TransportSizes = func() *enum.Table[TransportSize] {
	entries := make([]enum.Entry[TransportSize], 0, len(transportSizeInfos))
	for v := TransportBool; v <= TransportDT; v++ {
		if i, ok := transportSizeInfos[v]; ok {
			entries = append(entries, enum.Entry[TransportSize]{Value: v, Name: i.name})
		}
	}
	return enum.MustTable("TransportSize", 8, entries...)
}()

// BaseTypes is the derives-from relation among transport sizes.
var BaseTypes = enum.MustRelation(TransportSizes,
	enum.Derivation[TransportSize]{Value: TransportDWord, Base: TransportWord},
	enum.Derivation[TransportSize]{Value: TransportUInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportSInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportUSInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportDInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportUDInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportLInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportULInt, Base: TransportInt},
	enum.Derivation[TransportSize]{Value: TransportLReal, Base: TransportReal},
	enum.Derivation[TransportSize]{Value: TransportLTime, Base: TransportTime},
)

func (t TransportSize) String() string { return TransportSizes.String(t) }

// Code is the size code sent in item addresses. Types without a code on
// the wire report zero.
func (t TransportSize) Code() uint8 { return transportSizeInfos[t].code }

// ShortName is the size letter of tag addresses: X, B, W or D.
func (t TransportSize) ShortName() byte { return transportSizeInfos[t].shortName }

func (t TransportSize) SizeInBytes() uint8 { return transportSizeInfos[t].sizeInBytes }

// DataProtocolID names the IEC 61131 type carried by t.
func (t TransportSize) DataProtocolID() string { return transportSizeInfos[t].protocolID }

// DataTransportSize returns the size class used for t in responses.
func (t TransportSize) DataTransportSize() (DataTransportSize, bool) {
	i := transportSizeInfos[t]
	return i.dataTransport, i.hasData
}

// SupportedBy reports whether every family in f can address t.
func (t TransportSize) SupportedBy(f Family) bool {
	fs := transportSizeInfos[t].families
	return f != 0 && fs&f == f
}

// BaseType returns the type t derives from.
func (t TransportSize) BaseType() (TransportSize, bool) { return BaseTypes.Base(t) }

// Ancestors lists the derivation chain of t, nearest first.
func (t TransportSize) Ancestors() []TransportSize { return BaseTypes.Ancestors(t) }

// ReadTransportSize reads a transport size tag.
func ReadTransportSize(r *wire.Reader) (TransportSize, error) { return TransportSizes.Read(r) }

// WriteTransportSize writes the tag of t.
func WriteTransportSize(w *wire.Writer, t TransportSize) error { return TransportSizes.Write(w, t) }
