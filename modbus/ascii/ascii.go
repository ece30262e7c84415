// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package ascii implements the character layer of Modbus ASCII: a frame
// starts with ':', carries the binary ADU as upper case hex digits and
// ends with CR LF.
package ascii

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ffutop/fieldbus-codec/modbus"
)

const (
	Start = ':'
	CR    = '\r'
	LF    = '\n'

	// MaxLineSize is the longest line carrying a frame of
	// modbus.ASCIIMaxSize bytes.
	MaxLineSize = 1 + 2*modbus.ASCIIMaxSize + 2
)

var (
	ErrFrameStart = errors.New("ascii: frame does not start with ':'")
	ErrFrameEnd   = errors.New("ascii: frame does not end with CR LF")
	ErrHexDigit   = errors.New("ascii: invalid hex payload")
)

// Encode wraps a binary frame in its character representation.
func Encode(frame []byte) []byte {
	line := make([]byte, 1+2*len(frame)+2)
	line[0] = Start
	hex.Encode(line[1:], frame)
	copy(line[1:], bytes.ToUpper(line[1:len(line)-2]))
	line[len(line)-2] = CR
	line[len(line)-1] = LF
	return line
}

// Decode returns the binary frame carried by line. Hex digits of either
// case are accepted.
func Decode(line []byte) ([]byte, error) {
	if len(line) == 0 || line[0] != Start {
		return nil, ErrFrameStart
	}
	if len(line) < 3 || line[len(line)-2] != CR || line[len(line)-1] != LF {
		return nil, ErrFrameEnd
	}
	payload := line[1 : len(line)-2]
	frame := make([]byte, hex.DecodedLen(len(payload)))
	if _, err := hex.Decode(frame, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexDigit, err)
	}
	return frame, nil
}

// ScanFrames is a bufio.SplitFunc returning one line per frame, start
// character and CR LF included. Bytes before a ':' are dropped, and a ':'
// inside an unterminated frame restarts the frame.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.IndexByte(data, Start)
	if start < 0 {
		if atEOF && len(data) > 0 {
			return len(data), nil, ErrFrameStart
		}
		return len(data), nil, nil
	}
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case Start:
			return i, nil, nil
		case LF:
			return i + 1, data[start : i+1], nil
		}
	}
	if atEOF {
		return len(data), nil, ErrFrameEnd
	}
	return start, nil, nil
}

// NewScanner returns a scanner yielding the frames of r.
func NewScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, MaxLineSize), MaxLineSize)
	s.Split(ScanFrames)
	return s
}

// EncodeADU serializes a with c and wraps it in a line.
func EncodeADU(c modbus.Codec, a *modbus.ASCIIADU) ([]byte, error) {
	frame, err := c.Encode(a)
	if err != nil {
		return nil, err
	}
	return Encode(frame), nil
}

// DecodeADU unwraps line and decodes the frame it carries.
func DecodeADU(c modbus.Codec, line []byte, response bool) (*modbus.ASCIIADU, error) {
	frame, err := Decode(line)
	if err != nil {
		return nil, err
	}
	a, err := c.Decode(frame, modbus.ADUContext{Driver: modbus.DriverASCII, Response: response})
	if err != nil {
		return nil, err
	}
	return a.(*modbus.ASCIIADU), nil
}
