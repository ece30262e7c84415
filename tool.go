// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ffutop/fieldbus-codec/internal/capture"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/modbus/ascii"
)

func parseDriver(name string) (modbus.DriverType, error) {
	d, ok := modbus.ParseDriverType(name)
	if !ok {
		return 0, fmt.Errorf("unknown driver %q", name)
	}
	return d, nil
}

// parseHex accepts hex digits with optional whitespace and 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func runDecode(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	driverName := fs.StringP("driver", "d", "tcp", "frame driver (tcp, rtu, ascii)")
	response := fs.BoolP("response", "r", false, "decode as a response")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec.Codec()
	if err != nil {
		return err
	}
	driver, err := parseDriver(*driverName)
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no frames given")
	}

	for _, arg := range fs.Args() {
		rec := capture.Record{Driver: driver, Response: *response}
		if driver == modbus.DriverASCII {
			rec.Frame = []byte(strings.TrimRight(arg, "\r\n") + "\r\n")
		} else if rec.Frame, err = parseHex(arg); err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		adu, err := rec.Decode(codec)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
		fmt.Fprintln(out, describe(adu))
	}
	return nil
}

func runEncode(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	driverName := fs.StringP("driver", "d", "rtu", "frame driver (tcp, rtu, ascii)")
	response := fs.BoolP("response", "r", false, "the PDU is a response")
	unit := fs.Uint8P("unit", "u", 1, "unit id or serial address")
	transaction := fs.Uint16P("transaction", "t", 1, "TCP transaction id")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec.Codec()
	if err != nil {
		return err
	}
	driver, err := parseDriver(*driverName)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one hex PDU")
	}
	raw, err := parseHex(fs.Arg(0))
	if err != nil {
		return err
	}
	pdu, err := codec.DecodePDU(raw, modbus.PDUContext{Response: *response})
	if err != nil {
		return err
	}

	var frame []byte
	switch driver {
	case modbus.DriverTCP:
		frame, err = codec.Encode(&modbus.TCPADU{TransactionID: *transaction, UnitID: *unit, PDU: pdu})
	case modbus.DriverRTU:
		frame, err = codec.Encode(&modbus.RTUADU{Address: *unit, PDU: pdu})
	case modbus.DriverASCII:
		var line []byte
		if line, err = ascii.EncodeADU(codec, &modbus.ASCIIADU{Address: *unit, PDU: pdu}); err == nil {
			_, err = fmt.Fprint(out, string(line))
			return err
		}
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "% X\n", frame)
	return err
}

func runReplay(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec.Codec()
	if err != nil {
		return err
	}
	path := cfg.Capture.Path
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		return errors.New("no capture file given")
	}

	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	var total, failed int
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		total++
		adu, err := rec.Decode(codec)
		if err != nil {
			failed++
			slog.Warn("Failed to decode captured frame", "index", total, "driver", rec.Driver, "frame", hex.EncodeToString(rec.Frame), "err", err)
			continue
		}
		fmt.Fprintf(out, "%d %s\n", total, describe(adu))
	}
	slog.Info("Replay finished", "records", total, "failed", failed)
	return nil
}

// describe renders a frame as its header fields followed by the PDU.
func describe(adu modbus.ADU) string {
	var head string
	switch a := adu.(type) {
	case *modbus.TCPADU:
		head = fmt.Sprintf("TCP tid=%d unit=%d", a.TransactionID, a.UnitID)
	case *modbus.RTUADU:
		head = fmt.Sprintf("RTU address=%d", a.Address)
	case *modbus.ASCIIADU:
		head = fmt.Sprintf("ASCII address=%d", a.Address)
	}
	pdu := adu.Payload()
	if e, ok := pdu.(*modbus.ErrorPDU); ok {
		return fmt.Sprintf("%s %s code=%s", head, pdu.Discriminant(), e.Code)
	}
	return fmt.Sprintf("%s %s %s", head, pdu.Discriminant(), strings.TrimPrefix(fmt.Sprintf("%+v", pdu), "&"))
}
