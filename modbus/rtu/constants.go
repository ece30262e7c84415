// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "github.com/ffutop/fieldbus-codec/modbus"

// MaxSize is the largest RTU frame in bytes.
const MaxSize = modbus.RTUMaxSize

// Inter-frame timing in microseconds. Above 19200 baud the fixed values
// apply; below it the delays scale with the character time.
const (
	fastBaudRate        = 19200
	fastCharacterDelay  = 750
	fastFrameDelay      = 1750
	characterDelayScale = 15000000 // 1.5 characters of 10 bits, in us*baud
	frameDelayScale     = 35000000 // 3.5 characters
)
