// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"

	"github.com/ffutop/fieldbus-codec/enum"
	"github.com/ffutop/fieldbus-codec/wire"
)

var (
	// ErrTruncated means the input ended before a frame was complete.
	// Retrying with more bytes may succeed.
	ErrTruncated = wire.ErrTruncated
	// ErrUnknownDiscriminant is matched by every error reporting a tag
	// with no mapped variant, including unmapped enumeration values.
	ErrUnknownDiscriminant = enum.ErrUnknownTag

	ErrInvalidConstant       = errors.New("modbus: invalid constant")
	ErrLengthMismatch        = errors.New("modbus: length mismatch")
	ErrChecksumMismatch      = errors.New("modbus: checksum mismatch")
	ErrUnsupportedDriverType = errors.New("modbus: unsupported driver type")
	ErrValueOutOfRange       = errors.New("modbus: value out of range")
	ErrFrameTooLarge         = errors.New("modbus: frame too large")
)

// UnknownEnumError reports an enumeration tag without a mapped value.
type UnknownEnumError = enum.UnknownError

// UnknownDiscriminantError reports a PDU discriminant with no registered variant.
type UnknownDiscriminantError struct {
	Discriminant Discriminant
}

func (e *UnknownDiscriminantError) Error() string {
	return fmt.Sprintf("modbus: no PDU for %s", e.Discriminant)
}

func (e *UnknownDiscriminantError) Is(target error) bool {
	return target == ErrUnknownDiscriminant
}

// InvalidConstantError reports a constant field carrying an unexpected value.
type InvalidConstantError struct {
	Field    string
	Expected uint64
	Actual   uint64
}

func (e *InvalidConstantError) Error() string {
	return fmt.Sprintf("modbus: %s must be 0x%02X, got 0x%02X", e.Field, e.Expected, e.Actual)
}

func (e *InvalidConstantError) Is(target error) bool { return target == ErrInvalidConstant }

// LengthMismatchError reports a declared length that disagrees with the
// number of bytes actually present.
type LengthMismatchError struct {
	Field    string
	Declared int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("modbus: %s declares %d bytes, found %d", e.Field, e.Declared, e.Actual)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// ChecksumError reports a frame whose trailer does not match its content.
//
// Cause is set when the content failed to parse before the checksum could
// be located and no candidate frame end carried a matching checksum. Cause
// describes unverified bytes and is not exposed through Unwrap.
type ChecksumError struct {
	Driver   DriverType
	Expected uint16
	Actual   uint16
	Cause    error
}

func (e *ChecksumError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("modbus: %s checksum mismatch: no frame end matches after %v", e.Driver, e.Cause)
	}
	return fmt.Sprintf("modbus: %s checksum mismatch: computed 0x%04X, received 0x%04X", e.Driver, e.Expected, e.Actual)
}

// Unframed reports whether more input could still complete the frame.
func (e *ChecksumError) Unframed() bool { return e.Cause != nil }

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksumMismatch }

// UnsupportedDriverTypeError reports a driver type with no frame shape.
type UnsupportedDriverTypeError struct {
	Driver DriverType
}

func (e *UnsupportedDriverTypeError) Error() string {
	return fmt.Sprintf("modbus: unsupported driver type %s", e.Driver)
}

func (e *UnsupportedDriverTypeError) Is(target error) bool {
	return target == ErrUnsupportedDriverType
}

// ValueOutOfRangeError reports a value that cannot be represented in its
// wire field, typically a collection too long for its implicit count.
type ValueOutOfRangeError struct {
	Field string
	Value int
	Max   int
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("modbus: %s is %d, maximum is %d", e.Field, e.Value, e.Max)
}

func (e *ValueOutOfRangeError) Is(target error) bool { return target == ErrValueOutOfRange }

// FrameTooLargeError reports an encoded frame above the driver's size limit.
type FrameTooLargeError struct {
	Driver DriverType
	Size   int
	Max    int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("modbus: %s frame of %d bytes exceeds %d", e.Driver, e.Size, e.Max)
}

func (e *FrameTooLargeError) Is(target error) bool { return target == ErrFrameTooLarge }
