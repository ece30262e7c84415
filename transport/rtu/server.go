// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/modbus/ascii"
	rtupacket "github.com/ffutop/fieldbus-codec/modbus/rtu"
	"github.com/ffutop/fieldbus-codec/transport"
)

// Server implements a Modbus serial server (Upstream).
// It acts as a Slave on the serial bus, waiting for requests from an external Master.
type Server struct {
	Config   config.SerialConfig
	Codec    modbus.Codec
	Mode     modbus.DriverType
	Recorder transport.Recorder
}

// NewServer creates a new serial Server.
func NewServer(cfg config.SerialConfig, mode modbus.DriverType) *Server {
	return &Server{
		Config: cfg,
		Codec:  modbus.StandardCodec(),
		Mode:   mode,
	}
}

// Start opens the serial port and serves requests until ctx is done.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	c := serialConfig(s.Config)
	port, err := openPort(&c)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.Config.Device, err)
	}
	defer port.Close()
	slog.Info("Serial server listening", "device", s.Config.Device, "mode", s.Mode)

	// handle close
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return Serve(ctx, port, Session{Codec: s.Codec, Mode: s.Mode, Recorder: s.Recorder, Line: true}, handler)
}

func (s *Server) Close() error {
	return nil
}

// Session describes the framing of a serial byte stream.
type Session struct {
	Codec    modbus.Codec
	Mode     modbus.DriverType
	Recorder transport.Recorder
	// Line marks a physical line, where read errors other than EOF drop
	// the partial frame instead of ending the session.
	Line bool
}

// readRecorder remembers the last read error so I/O failures can be told
// apart from frames that fail to decode.
type readRecorder struct {
	r   io.Reader
	err error
}

func (r *readRecorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil {
		r.err = err
	}
	return n, err
}

// frameSource returns a function reading the next request of sess.Mode.
func frameSource(r io.Reader, sess Session) (func() (modbus.ADU, []byte, error), error) {
	switch sess.Mode {
	case modbus.DriverRTU:
		reqCtx := modbus.ADUContext{Driver: modbus.DriverRTU}
		return func() (modbus.ADU, []byte, error) {
			return rtupacket.ReadFrame(r, sess.Codec, reqCtx, time.Time{})
		}, nil
	case modbus.DriverASCII:
		sc := ascii.NewScanner(r)
		return func() (modbus.ADU, []byte, error) {
			if !sc.Scan() {
				err := sc.Err()
				// a scanner stops for good after an error
				sc = ascii.NewScanner(r)
				if err == nil {
					err = io.EOF
				}
				return nil, nil, err
			}
			line := sc.Bytes()
			adu, err := ascii.DecodeADU(sess.Codec, line, false)
			if err != nil {
				return nil, line, err
			}
			return adu, line, nil
		}, nil
	}
	return nil, &modbus.UnsupportedDriverTypeError{Driver: sess.Mode}
}

// Serve reads requests from rw and writes the answers back until ctx is
// done or rw fails. Frames that fail to decode are dropped, except that a
// request for an unknown function is answered with IllegalFunction.
// Broadcasts to address 0 are handled but never answered.
func Serve(ctx context.Context, rw io.ReadWriter, sess Session, handler transport.RequestHandler) error {
	src := &readRecorder{r: rw}
	next, err := frameSource(src, sess)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		req, raw, err := next()
		switch {
		case err == nil:
			transport.Record(sess.Recorder, sess.Mode, false, raw)
			address := serialAddress(req)
			req = reply(req, transport.Respond(ctx, handler, address, req.Payload()))
			if address == 0 {
				continue
			}
		case ctx.Err() != nil:
			return nil
		case src.err != nil:
			readErr := src.err
			src.err = nil
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if !sess.Line {
				return readErr
			}
			slog.Debug("Serial read failed, dropping partial frame", "frame", hex.EncodeToString(raw), "err", readErr)
			continue
		default:
			transport.Record(sess.Recorder, sess.Mode, false, raw)
			if req = rejected(sess.Mode, raw, err); req == nil {
				slog.Debug("Dropping serial frame", "frame", hex.EncodeToString(raw), "err", err)
				continue
			}
		}
		if req.Payload() == nil {
			continue
		}

		respRaw, err := encodeFrame(sess.Codec, req)
		if err != nil {
			slog.Error("Failed to encode serial response", "err", err)
			continue
		}
		if _, err := rw.Write(respRaw); err != nil {
			return err
		}
		transport.Record(sess.Recorder, sess.Mode, true, respRaw)
	}
}

func serialAddress(a modbus.ADU) uint8 {
	switch a := a.(type) {
	case *modbus.RTUADU:
		return a.Address
	case *modbus.ASCIIADU:
		return a.Address
	}
	return 0
}

// reply builds the frame carrying resp back to the sender of req.
func reply(req modbus.ADU, resp modbus.PDU) modbus.ADU {
	address := serialAddress(req)
	if req.Driver() == modbus.DriverASCII {
		return &modbus.ASCIIADU{Address: address, PDU: resp}
	}
	return &modbus.RTUADU{Address: address, PDU: resp}
}

// rejected answers an undecodable request when its failure names an
// unknown function.
func rejected(mode modbus.DriverType, raw []byte, err error) modbus.ADU {
	pdu := transport.Reject(err)
	if pdu == nil || len(raw) == 0 {
		return nil
	}
	if mode == modbus.DriverASCII {
		frame, derr := ascii.Decode(raw)
		if derr != nil || len(frame) == 0 || frame[0] == 0 {
			return nil
		}
		return &modbus.ASCIIADU{Address: frame[0], PDU: pdu}
	}
	if raw[0] == 0 {
		return nil
	}
	return &modbus.RTUADU{Address: raw[0], PDU: pdu}
}

func encodeFrame(c modbus.Codec, a modbus.ADU) ([]byte, error) {
	if a, ok := a.(*modbus.ASCIIADU); ok {
		return ascii.EncodeADU(c, a)
	}
	return c.Encode(a)
}
