// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/ffutop/fieldbus-codec/modbus"
)

// RequestHandler answers a decoded request addressed to unitID.
//
// Upstreams strip their framing and hand over the typed PDU; the response
// PDU is framed again by the upstream. Returning a *modbus.ErrorPDU as the
// error sends that exception; any other error becomes an exception chosen
// by Respond.
type RequestHandler func(ctx context.Context, unitID uint8, req modbus.PDU) (modbus.PDU, error)

// Upstream represents a source of requests (A Modbus Master connected to us).
// It acts as a Server.
type Upstream interface {
	// Start starts the server and blocks. It should be called in a goroutine.
	Start(ctx context.Context, handler RequestHandler) error
	Close() error
}

// Downstream represents a destination for requests (A Modbus Slave we connect to).
// It acts as a Client.
type Downstream interface {
	// Send sends a PDU to a specific unit and returns the response PDU.
	Send(ctx context.Context, unitID uint8, req modbus.PDU) (modbus.PDU, error)
	Connect(ctx context.Context) error
	Close() error
}

// Recorder receives every frame a transport reads or writes.
type Recorder interface {
	Record(driver modbus.DriverType, response bool, frame []byte) error
}

// Record passes frame to rec when one is configured. Failures are logged
// and never interrupt the exchange.
func Record(rec Recorder, driver modbus.DriverType, response bool, frame []byte) {
	if rec == nil {
		return
	}
	if err := rec.Record(driver, response, frame); err != nil {
		slog.Warn("Failed to record frame", "driver", driver, "err", err)
	}
}

// Respond runs handler and returns the PDU to send back. A nil PDU with a
// nil error means the request is not answered, as for broadcasts. Handler
// errors become exception responses: an *modbus.ErrorPDU is sent as is,
// timeouts map to GatewayTargetDeviceFailedToRespond and everything else
// to SlaveDeviceFailure.
func Respond(ctx context.Context, handler RequestHandler, unitID uint8, req modbus.PDU) modbus.PDU {
	resp, err := handler(ctx, unitID, req)
	if err == nil {
		return resp
	}
	var exception *modbus.ErrorPDU
	if errors.As(err, &exception) {
		return exception
	}
	code := modbus.ErrorCodeSlaveDeviceFailure
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		code = modbus.ErrorCodeGatewayTargetDeviceFailedToRespond
	}
	slog.Error("Handler failed", "unitID", unitID, "request", req.Discriminant(), "err", err)
	return modbus.NewErrorPDU(req, code)
}

// Reject returns the exception answering a request that could not be
// decoded, or nil when the failure leaves nothing to answer.
func Reject(err error) modbus.PDU {
	var unknown *modbus.UnknownDiscriminantError
	if errors.As(err, &unknown) && !unknown.Discriminant.ErrorFlag {
		return &modbus.ErrorPDU{Function: unknown.Discriminant.FunctionCode, Code: modbus.ErrorCodeIllegalFunction}
	}
	return nil
}
