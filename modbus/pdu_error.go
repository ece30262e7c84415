// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"

	"github.com/ffutop/fieldbus-codec/wire"
)

// ErrorPDU is an exception response. Function is the function code of the
// failed request without the error flag.
type ErrorPDU struct {
	Function uint8
	Code     ErrorCode
}

// NewErrorPDU builds the exception answering req.
func NewErrorPDU(req PDU, code ErrorCode) *ErrorPDU {
	return &ErrorPDU{Function: req.Discriminant().FunctionCode, Code: code}
}

func (m *ErrorPDU) Discriminant() Discriminant {
	return Discriminant{ErrorFlag: true, FunctionCode: m.Function, Response: true}
}

func (m *ErrorPDU) LengthInBits() uint32 { return 8 }

func (m *ErrorPDU) Serialize(w *wire.Writer) (int, error) {
	if err := ErrorCodes.Write(w, m.Code); err != nil {
		return 0, err
	}
	return 1, nil
}

// Error makes an exception response usable as a Go error by clients.
func (m *ErrorPDU) Error() string {
	return fmt.Sprintf("modbus: exception '%v' (%s)", m.Code, FunctionCodes.String(m.Function))
}

func parseErrorPDU(r *wire.Reader, fc uint8) (*ErrorPDU, error) {
	code, err := ErrorCodes.Read(r)
	if err != nil {
		return nil, err
	}
	return &ErrorPDU{Function: fc, Code: code}, nil
}
