// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lrc computes the longitudinal redundancy check of ASCII frames:
// the two's complement of the byte sum, modulo 256.
package lrc

type LRC struct {
	sum uint8
}

func (l *LRC) Reset() *LRC {
	l.sum = 0
	return l
}

func (l *LRC) PushByte(b byte) *LRC {
	l.sum += b
	return l
}

func (l *LRC) PushBytes(data []byte) *LRC {
	for _, b := range data {
		l.sum += b
	}
	return l
}

func (l *LRC) Value() byte {
	return ^l.sum + 1
}

// Checksum returns the LRC of data.
func Checksum(data []byte) byte {
	var l LRC
	return l.PushBytes(data).Value()
}
