// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/transport"
)

// Server implements a Modbus TCP Server.
type Server struct {
	Address  string
	Codec    modbus.Codec
	Recorder transport.Recorder
	Handler  transport.RequestHandler

	listener net.Listener
}

// NewServer creates a new TCP Server.
func NewServer(address string) *Server {
	return &Server{
		Address: address,
		Codec:   modbus.StandardCodec(),
	}
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	s.Handler = handler
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	slog.Info("Modbus TCP server listening", "addr", s.Address)

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if closed
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("Failed to accept connection", "err", err)
				continue
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	slog.Info("New TCP client connected", "addr", conn.RemoteAddr())

	for {
		// Check context
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, raw, err := readFrame(conn, s.Codec, false, time.Time{})
		var resp *modbus.TCPADU
		switch {
		case errors.Is(err, io.EOF):
			slog.Info("TCP client disconnected gracefully", "addr", conn.RemoteAddr())
			return
		case err != nil && s.streamLost(raw, err):
			slog.Error("Failed to read from connection", "addr", conn.RemoteAddr(), "err", err)
			return
		case err != nil:
			slog.Warn("Failed to decode TCP request", "addr", conn.RemoteAddr(), "frame", hex.EncodeToString(raw), "err", err)
			transport.Record(s.Recorder, modbus.DriverTCP, false, raw)
			if resp = rejected(raw, err); resp == nil {
				continue
			}
		default:
			transport.Record(s.Recorder, modbus.DriverTCP, false, raw)
			if s.Handler == nil {
				slog.Error("No handler defined for TCP server")
				return
			}
			resp = &modbus.TCPADU{
				TransactionID: req.TransactionID,
				UnitID:        req.UnitID,
				PDU:           transport.Respond(ctx, s.Handler, req.UnitID, req.PDU),
			}
			if resp.PDU == nil {
				continue
			}
		}

		respRaw, err := s.Codec.Encode(resp)
		if err != nil {
			slog.Error("Failed to encode TCP response", "err", err)
			continue
		}
		transport.Record(s.Recorder, modbus.DriverTCP, true, respRaw)

		if _, err = conn.Write(respRaw); err != nil {
			slog.Error("Failed to write response to connection", "err", err)
			return
		}
	}
}

// streamLost reports whether err leaves the connection at an unknown
// position in the byte stream.
func (s *Server) streamLost(raw []byte, err error) bool {
	var netErr net.Error
	return s.Codec.OmitTCPLength || len(raw) <= mbapHeaderSize ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &netErr)
}

// rejected builds the exception answering an undecodable request, reusing
// the header fields of the raw frame.
func rejected(raw []byte, err error) *modbus.TCPADU {
	pdu := transport.Reject(err)
	if pdu == nil || len(raw) < tcpMinSize {
		return nil
	}
	return &modbus.TCPADU{
		TransactionID: binary.BigEndian.Uint16(raw),
		UnitID:        raw[mbapHeaderSize],
		PDU:           pdu,
	}
}
