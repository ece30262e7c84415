// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "github.com/ffutop/fieldbus-codec/wire"

// Serial line diagnostics.

type ReadExceptionStatusRequest struct{}

func (m *ReadExceptionStatusRequest) Discriminant() Discriminant {
	return request(FuncCodeReadExceptionStatus)
}
func (m *ReadExceptionStatusRequest) LengthInBits() uint32                { return 0 }
func (m *ReadExceptionStatusRequest) Serialize(*wire.Writer) (int, error) { return 0, nil }

func ParseReadExceptionStatusRequest(*wire.Reader, NoContext) (*ReadExceptionStatusRequest, error) {
	return &ReadExceptionStatusRequest{}, nil
}

type ReadExceptionStatusResponse struct {
	Value uint8
}

func (m *ReadExceptionStatusResponse) Discriminant() Discriminant {
	return response(FuncCodeReadExceptionStatus)
}
func (m *ReadExceptionStatusResponse) LengthInBits() uint32 { return 8 }
func (m *ReadExceptionStatusResponse) Serialize(w *wire.Writer) (int, error) {
	if err := w.WriteUint8(m.Value); err != nil {
		return 0, err
	}
	return 1, nil
}

func ParseReadExceptionStatusResponse(r *wire.Reader, _ NoContext) (*ReadExceptionStatusResponse, error) {
	v, err := r.ReadUint8()
	return parsed(&ReadExceptionStatusResponse{Value: v}, err)
}

// Diagnostic sub-functions in common use.
const (
	DiagReturnQueryData          uint16 = 0x0000
	DiagRestartCommunications    uint16 = 0x0001
	DiagReturnDiagnosticRegister uint16 = 0x0002
	DiagForceListenOnlyMode      uint16 = 0x0004
	DiagClearCounters            uint16 = 0x000A
	DiagReturnBusMessageCount    uint16 = 0x000B
)

type DiagnosticRequest struct {
	SubFunction uint16
	Data        uint16
}

func (m *DiagnosticRequest) Discriminant() Discriminant { return request(FuncCodeDiagnostic) }
func (m *DiagnosticRequest) LengthInBits() uint32       { return 32 }
func (m *DiagnosticRequest) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.SubFunction, m.Data)
}

func ParseDiagnosticRequest(r *wire.Reader, _ NoContext) (*DiagnosticRequest, error) {
	m := new(DiagnosticRequest)
	return parsed(m, readUint16s(r, &m.SubFunction, &m.Data))
}

type DiagnosticResponse struct {
	SubFunction uint16
	Data        uint16
}

func (m *DiagnosticResponse) Discriminant() Discriminant { return response(FuncCodeDiagnostic) }
func (m *DiagnosticResponse) LengthInBits() uint32       { return 32 }
func (m *DiagnosticResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.SubFunction, m.Data)
}

func ParseDiagnosticResponse(r *wire.Reader, _ NoContext) (*DiagnosticResponse, error) {
	m := new(DiagnosticResponse)
	return parsed(m, readUint16s(r, &m.SubFunction, &m.Data))
}

type GetComEventCounterRequest struct{}

func (m *GetComEventCounterRequest) Discriminant() Discriminant {
	return request(FuncCodeGetComEventCounter)
}
func (m *GetComEventCounterRequest) LengthInBits() uint32                { return 0 }
func (m *GetComEventCounterRequest) Serialize(*wire.Writer) (int, error) { return 0, nil }

func ParseGetComEventCounterRequest(*wire.Reader, NoContext) (*GetComEventCounterRequest, error) {
	return &GetComEventCounterRequest{}, nil
}

type GetComEventCounterResponse struct {
	Status     uint16
	EventCount uint16
}

func (m *GetComEventCounterResponse) Discriminant() Discriminant {
	return response(FuncCodeGetComEventCounter)
}
func (m *GetComEventCounterResponse) LengthInBits() uint32 { return 32 }
func (m *GetComEventCounterResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeUint16s(w, m.Status, m.EventCount)
}

func ParseGetComEventCounterResponse(r *wire.Reader, _ NoContext) (*GetComEventCounterResponse, error) {
	m := new(GetComEventCounterResponse)
	return parsed(m, readUint16s(r, &m.Status, &m.EventCount))
}

type GetComEventLogRequest struct{}

func (m *GetComEventLogRequest) Discriminant() Discriminant { return request(FuncCodeGetComEventLog) }
func (m *GetComEventLogRequest) LengthInBits() uint32       { return 0 }
func (m *GetComEventLogRequest) Serialize(*wire.Writer) (int, error) {
	return 0, nil
}

func ParseGetComEventLogRequest(*wire.Reader, NoContext) (*GetComEventLogRequest, error) {
	return &GetComEventLogRequest{}, nil
}

// GetComEventLogResponse is preceded on the wire by a byte count of
// len(Events)+6.
type GetComEventLogResponse struct {
	Status       uint16
	EventCount   uint16
	MessageCount uint16
	Events       []byte
}

func (m *GetComEventLogResponse) Discriminant() Discriminant {
	return response(FuncCodeGetComEventLog)
}
func (m *GetComEventLogResponse) LengthInBits() uint32 { return 56 + 8*uint32(len(m.Events)) }
func (m *GetComEventLogResponse) Serialize(w *wire.Writer) (int, error) {
	if err := checkCount("GetComEventLogResponse.events", len(m.Events), 0xFF-6); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := w.WriteUint8(uint8(len(m.Events) + 6)); err != nil {
		return 0, err
	}
	if err := writeUint16s(w, m.Status, m.EventCount, m.MessageCount); err != nil {
		return w.Pos() - start, err
	}
	err := w.WriteBytes(m.Events)
	return w.Pos() - start, err
}

func ParseGetComEventLogResponse(r *wire.Reader, _ NoContext) (*GetComEventLogResponse, error) {
	byteCount, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if byteCount < 6 {
		return nil, &LengthMismatchError{Field: "GetComEventLogResponse.byteCount", Declared: int(byteCount), Actual: 6}
	}
	m := new(GetComEventLogResponse)
	if err := readUint16s(r, &m.Status, &m.EventCount, &m.MessageCount); err != nil {
		return nil, err
	}
	m.Events, err = r.ReadBytes(int(byteCount) - 6)
	return parsed(m, err)
}

type ReportServerIDRequest struct{}

func (m *ReportServerIDRequest) Discriminant() Discriminant { return request(FuncCodeReportServerID) }
func (m *ReportServerIDRequest) LengthInBits() uint32       { return 0 }
func (m *ReportServerIDRequest) Serialize(*wire.Writer) (int, error) {
	return 0, nil
}

func ParseReportServerIDRequest(*wire.Reader, NoContext) (*ReportServerIDRequest, error) {
	return &ReportServerIDRequest{}, nil
}

// ReportServerIDResponse holds the device specific server id, run
// indicator and additional data as one opaque byte string.
type ReportServerIDResponse struct {
	Value []byte
}

func (m *ReportServerIDResponse) Discriminant() Discriminant { return response(FuncCodeReportServerID) }
func (m *ReportServerIDResponse) LengthInBits() uint32       { return 8 + 8*uint32(len(m.Value)) }
func (m *ReportServerIDResponse) Serialize(w *wire.Writer) (int, error) {
	return serializeCounted8(w, "ReportServerIDResponse.value", m.Value)
}

func ParseReportServerIDResponse(r *wire.Reader, _ NoContext) (*ReportServerIDResponse, error) {
	v, err := readCounted8(r)
	return parsed(&ReportServerIDResponse{Value: v}, err)
}
