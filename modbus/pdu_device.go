// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "github.com/ffutop/fieldbus-codec/wire"

// MEIReadDeviceIdentification is the MEI type of function 0x2B this
// package understands.
const MEIReadDeviceIdentification uint8 = 0x0E

func readMEIType(r *wire.Reader, field string) error {
	mei, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if mei != MEIReadDeviceIdentification {
		return &InvalidConstantError{Field: field, Expected: uint64(MEIReadDeviceIdentification), Actual: uint64(mei)}
	}
	return nil
}

type ReadDeviceIdentificationRequest struct {
	Level    DeviceInformationLevel
	ObjectID uint8
}

func (m *ReadDeviceIdentificationRequest) Discriminant() Discriminant {
	return request(FuncCodeReadDeviceIdentification)
}
func (m *ReadDeviceIdentificationRequest) LengthInBits() uint32 { return 24 }
func (m *ReadDeviceIdentificationRequest) Serialize(w *wire.Writer) (int, error) {
	start := w.Pos()
	if err := w.WriteUint8(MEIReadDeviceIdentification); err != nil {
		return 0, err
	}
	if err := DeviceInformationLevels.Write(w, m.Level); err != nil {
		return w.Pos() - start, err
	}
	err := w.WriteUint8(m.ObjectID)
	return w.Pos() - start, err
}

func ParseReadDeviceIdentificationRequest(r *wire.Reader, _ NoContext) (*ReadDeviceIdentificationRequest, error) {
	if err := readMEIType(r, "ReadDeviceIdentificationRequest.meiType"); err != nil {
		return nil, err
	}
	m := new(ReadDeviceIdentificationRequest)
	var err error
	if m.Level, err = DeviceInformationLevels.Read(r); err != nil {
		return nil, err
	}
	m.ObjectID, err = r.ReadUint8()
	return parsed(m, err)
}

// DeviceInformationObject is one identification object, for example the
// vendor name (0x00) or product code (0x01).
type DeviceInformationObject struct {
	ObjectID uint8
	Data     []byte
}

func (o *DeviceInformationObject) LengthInBits() uint32 { return 16 + 8*uint32(len(o.Data)) }
func (o *DeviceInformationObject) Serialize(w *wire.Writer) (int, error) {
	if err := checkCount("DeviceInformationObject.data", len(o.Data), 0xFF); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteUint8(o.ObjectID); err != nil {
		return 0, err
	}
	err := writeCounted8(w, "DeviceInformationObject.data", o.Data)
	return w.Pos() - start, err
}

func ParseDeviceInformationObject(r *wire.Reader, _ NoContext) (*DeviceInformationObject, error) {
	o := new(DeviceInformationObject)
	var err error
	if o.ObjectID, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	o.Data, err = readCounted8(r)
	return parsed(o, err)
}

// ReadDeviceIdentificationResponse packs IndividualAccess and
// ConformityLevel into one byte; the object count is derived from Objects.
type ReadDeviceIdentificationResponse struct {
	Level            DeviceInformationLevel
	IndividualAccess bool
	ConformityLevel  DeviceInformationConformityLevel
	MoreFollows      DeviceInformationMoreFollows
	NextObjectID     uint8
	Objects          []*DeviceInformationObject
}

func (m *ReadDeviceIdentificationResponse) Discriminant() Discriminant {
	return response(FuncCodeReadDeviceIdentification)
}

func (m *ReadDeviceIdentificationResponse) LengthInBits() uint32 {
	bits := uint32(48)
	for _, o := range m.Objects {
		bits += o.LengthInBits()
	}
	return bits
}

func (m *ReadDeviceIdentificationResponse) Serialize(w *wire.Writer) (int, error) {
	if err := checkCount("ReadDeviceIdentificationResponse.objects", len(m.Objects), 0xFF); err != nil {
		return 0, err
	}
	start := w.Pos()
	steps := []func() error{
		func() error { return w.WriteUint8(MEIReadDeviceIdentification) },
		func() error { return DeviceInformationLevels.Write(w, m.Level) },
		func() error { return w.WriteBit(m.IndividualAccess) },
		func() error { return ConformityLevels.Write(w, m.ConformityLevel) },
		func() error { return MoreFollowsValues.Write(w, m.MoreFollows) },
		func() error { return w.WriteUint8(m.NextObjectID) },
		func() error { return w.WriteUint8(uint8(len(m.Objects))) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return w.Pos() - start, err
		}
	}
	for _, o := range m.Objects {
		if _, err := o.Serialize(w); err != nil {
			return w.Pos() - start, err
		}
	}
	return w.Pos() - start, nil
}

func ParseReadDeviceIdentificationResponse(r *wire.Reader, _ NoContext) (*ReadDeviceIdentificationResponse, error) {
	if err := readMEIType(r, "ReadDeviceIdentificationResponse.meiType"); err != nil {
		return nil, err
	}
	m := new(ReadDeviceIdentificationResponse)
	var err error
	if m.Level, err = DeviceInformationLevels.Read(r); err != nil {
		return nil, err
	}
	if m.IndividualAccess, err = r.ReadBit(); err != nil {
		return nil, err
	}
	if m.ConformityLevel, err = ConformityLevels.Read(r); err != nil {
		return nil, err
	}
	if m.MoreFollows, err = MoreFollowsValues.Read(r); err != nil {
		return nil, err
	}
	if m.NextObjectID, err = r.ReadUint8(); err != nil {
		return nil, err
	}
	n, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(n); i++ {
		o, err := ParseDeviceInformationObject(r, NoContext{})
		if err != nil {
			return nil, err
		}
		m.Objects = append(m.Objects, o)
	}
	return m, nil
}
