// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc computes the CRC-16/MODBUS checksum of RTU frames.
package crc

import "github.com/sigurn/crc16"

var table = crc16.MakeTable(crc16.CRC16_MODBUS)

// CRC accumulates a checksum over several byte slices. Call Reset before use.
type CRC struct {
	sum uint16
}

func (c *CRC) Reset() *CRC {
	c.sum = crc16.Init(table)
	return c
}

func (c *CRC) PushBytes(b []byte) *CRC {
	c.sum = crc16.Update(c.sum, b, table)
	return c
}

func (c *CRC) Value() uint16 {
	return crc16.Complete(c.sum, table)
}

// Checksum returns the checksum of b. It is sent least significant byte first.
func Checksum(b []byte) uint16 {
	return crc16.Checksum(b, table)
}
