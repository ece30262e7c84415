// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus implements the Modbus application protocol wire format:
// typed PDUs for every public function code, TCP/RTU/ASCII frames around
// them and a Codec that turns frames into bytes and back.
//
// Decoding never panics. Malformed input is reported with the sentinel
// errors of this package, usually wrapped in a typed error carrying the
// offending values.
package modbus

import (
	"github.com/ffutop/fieldbus-codec/wire"
)

// Message is implemented by every value that has a wire encoding.
type Message interface {
	// LengthInBits returns the exact number of bits Serialize emits.
	LengthInBits() uint32
	// Serialize writes the message and returns the number of whole bytes
	// written. On error the writer is left in an undefined state.
	Serialize(w *wire.Writer) (int, error)
}

// Parser reads a message of type M given a decode context of type C.
type Parser[M Message, C any] func(r *wire.Reader, ctx C) (M, error)

// NoContext is the decode context of messages that need none.
type NoContext struct{}

// PDUContext is the decode context of a PDU. The direction is not encoded
// on the wire and must come from the caller.
type PDUContext struct {
	Response bool
}

// ADUContext is the decode context of a frame.
type ADUContext struct {
	Driver   DriverType
	Response bool
	// OmitTCPLength selects the compact MBAP header without the length field.
	OmitTCPLength bool
}

// LengthInBytes returns the encoded size of m rounded up to whole bytes.
func LengthInBytes(m Message) int {
	return int((m.LengthInBits() + 7) / 8)
}
