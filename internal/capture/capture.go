// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package capture keeps a log of raw frames in a memory-mapped file.
//
// Layout:
//   - Magic: 8 bytes "FBCAP\x00\x00\x01" (Offset 0)
//   - End of records: uint64 big-endian (Offset 8)
//   - Records from Offset 16, each [driver u8][response u8][length u16][frame]
//
// Multi-byte fields are big-endian so a log reads the same on any host.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/modbus/ascii"
)

const (
	headerSize = 16
	recordHead = 4
	// DefaultSize is the capacity used when none is given.
	DefaultSize = 16 << 20
)

var magic = [8]byte{'F', 'B', 'C', 'A', 'P', 0, 0, 1}

var (
	ErrFull    = errors.New("capture: log is full")
	ErrCorrupt = errors.New("capture: corrupt log")
)

// Record is one captured frame. ASCII frames are kept as the text line.
type Record struct {
	Driver   modbus.DriverType
	Response bool
	Frame    []byte
}

// Decode parses the frame with c.
func (r Record) Decode(c modbus.Codec) (modbus.ADU, error) {
	if r.Driver == modbus.DriverASCII {
		return ascii.DecodeADU(c, r.Frame, r.Response)
	}
	return c.Decode(r.Frame, modbus.ADUContext{Driver: r.Driver, Response: r.Response})
}

// Writer appends records to a capture file. It implements
// transport.Recorder and is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	data mmap.MMap
	end  int
}

// Create opens the capture file at path, creating it with size bytes of
// capacity when missing. Records already in the file are kept.
func Create(path string, size int64) (*Writer, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size < headerSize {
		return nil, fmt.Errorf("capture: size %d below header size", size)
	}
	// Open file, creating if necessary
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	fresh := fi.Size() == 0
	if fresh {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize capture file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	w := &Writer{file: f, data: data, end: headerSize}
	if fresh {
		copy(data, magic[:])
		binary.BigEndian.PutUint64(data[8:], headerSize)
		return w, nil
	}
	end, err := checkHeader(data)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.end = end
	return w, nil
}

// Record appends a frame. It fails with ErrFull when the file has no
// room left.
func (w *Writer) Record(driver modbus.DriverType, response bool, frame []byte) error {
	if len(frame) > 0xFFFF {
		return fmt.Errorf("capture: frame of %d bytes: %w", len(frame), modbus.ErrFrameTooLarge)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.data == nil {
		return os.ErrClosed
	}
	n := recordHead + len(frame)
	if w.end+n > len(w.data) {
		return ErrFull
	}
	rec := w.data[w.end:]
	rec[0] = byte(driver)
	if response {
		rec[1] = 1
	} else {
		rec[1] = 0
	}
	binary.BigEndian.PutUint16(rec[2:], uint16(len(frame)))
	copy(rec[recordHead:], frame)
	w.end += n
	// publish the record only once it is complete
	binary.BigEndian.PutUint64(w.data[8:], uint64(w.end))
	return nil
}

// Flush writes the mapped pages to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.data == nil {
		return os.ErrClosed
	}
	return w.data.Flush()
}

// Close flushes, unmaps and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.data != nil {
		if e := w.data.Flush(); e != nil {
			err = e
		}
		if e := w.data.Unmap(); e != nil {
			err = e
		}
		w.data = nil
	}
	if w.file != nil {
		if e := w.file.Close(); e != nil {
			err = e
		}
		w.file = nil
	}
	return err
}

func checkHeader(data []byte) (int, error) {
	if len(data) < headerSize || string(data[:8]) != string(magic[:]) {
		return 0, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	end := binary.BigEndian.Uint64(data[8:])
	if end < headerSize || end > uint64(len(data)) {
		return 0, fmt.Errorf("%w: end offset %d outside file of %d bytes", ErrCorrupt, end, len(data))
	}
	return int(end), nil
}

// Reader iterates the records of a capture file.
type Reader struct {
	file *os.File
	data mmap.MMap
	pos  int
	end  int
}

// Open maps the capture file at path read-only.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	r := &Reader{file: f, data: data, pos: headerSize}
	if r.end, err = checkHeader(data); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Next returns the next record. It returns io.EOF after the last one.
// The frame aliases the mapping and is valid until Close.
func (r *Reader) Next() (Record, error) {
	if r.pos == r.end {
		return Record{}, io.EOF
	}
	if r.end-r.pos < recordHead {
		return Record{}, fmt.Errorf("%w: record header at %d truncated", ErrCorrupt, r.pos)
	}
	head := r.data[r.pos : r.pos+recordHead]
	driver := modbus.DriverType(head[0])
	if !modbus.DriverTypes.Contains(driver) || head[1] > 1 {
		return Record{}, fmt.Errorf("%w: record at %d has driver 0x%02X, direction 0x%02X", ErrCorrupt, r.pos, head[0], head[1])
	}
	n := int(binary.BigEndian.Uint16(head[2:]))
	start := r.pos + recordHead
	if r.end-start < n {
		return Record{}, fmt.Errorf("%w: record at %d declares %d bytes, %d left", ErrCorrupt, r.pos, n, r.end-start)
	}
	r.pos = start + n
	return Record{Driver: driver, Response: head[1] == 1, Frame: r.data[start:r.pos:r.pos]}, nil
}

// Close unmaps and closes the file.
func (r *Reader) Close() error {
	var err error
	if r.data != nil {
		if e := r.data.Unmap(); e != nil {
			err = e
		}
		r.data = nil
	}
	if r.file != nil {
		if e := r.file.Close(); e != nil {
			err = e
		}
		r.file = nil
	}
	return err
}
