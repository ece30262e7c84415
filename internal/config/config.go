// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/wire"
)

// Endpoint types accepted for upstreams and downstreams.
const (
	TypeTCP        = "tcp"
	TypeRTU        = "rtu"
	TypeASCII      = "ascii"
	TypeRTUOverTCP = "rtu-over-tcp"
)

// Config defines the global configuration structure
type Config struct {
	Gateways []GatewayConfig `mapstructure:"gateways"`
	Log      LogConfig       `mapstructure:"log"`
	Codec    CodecConfig     `mapstructure:"codec"`
	Capture  CaptureConfig   `mapstructure:"capture"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// CodecConfig selects the byte and bit order used on the wire.
type CodecConfig struct {
	ByteOrder     string `mapstructure:"byte_order"` // "big", "little"
	BitOrder      string `mapstructure:"bit_order"`  // "lsb", "msb"
	OmitTCPLength bool   `mapstructure:"omit_tcp_length"`
}

// CaptureConfig enables the frame capture log.
type CaptureConfig struct {
	Path string `mapstructure:"path"` // Empty disables capture
	Size int64  `mapstructure:"size"` // Capacity in bytes
}

// GatewayConfig defines a single gateway instance
type GatewayConfig struct {
	Name        string             `mapstructure:"name"`
	Upstreams   []UpstreamConfig   `mapstructure:"upstreams"`
	Downstreams []DownstreamConfig `mapstructure:"downstreams"`
}

// UpstreamConfig defines a master connecting to the gateway
type UpstreamConfig struct {
	Type   string       `mapstructure:"type"`   // "tcp", "rtu", "ascii", "rtu-over-tcp"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp" or "rtu-over-tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "rtu" or "ascii"
}

// DownstreamConfig defines the slave the gateway connects to
type DownstreamConfig struct {
	Name    string       `mapstructure:"name"`     // Optional name for logging
	Type    string       `mapstructure:"type"`     // "tcp", "rtu", "ascii", "rtu-over-tcp"
	UnitIDs string       `mapstructure:"unit_ids"` // Routing rules: "1", "1,2", "1-10"
	Tcp     TcpConfig    `mapstructure:"tcp"`
	Serial  SerialConfig `mapstructure:"serial"`
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string        `mapstructure:"address"` // e.g. "0.0.0.0:502" or "192.168.1.100:502"
	Timeout time.Duration `mapstructure:"timeout"`
}

// SerialConfig defines RTU and ASCII line settings
type SerialConfig struct {
	Device    string        `mapstructure:"device"`
	BaudRate  int           `mapstructure:"baud_rate"`
	DataBits  int           `mapstructure:"data_bits"`
	Parity    string        `mapstructure:"parity"`
	StopBits  int           `mapstructure:"stop_bits"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RqstPause time.Duration `mapstructure:"rqst_pause"` // Pause between requests

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// Flags registers the command line overrides understood by LoadConfig.
func Flags(fs *pflag.FlagSet) {
	fs.String("log.level", "info", "log level (debug, info, warn, error)")
	fs.String("log.file", "", "log file path, stdout if empty")
	fs.String("codec.byte_order", "big", "wire byte order (big, little)")
	fs.String("codec.bit_order", "msb", "wire bit order (lsb, msb)")
	fs.Bool("codec.omit_tcp_length", false, "omit the MBAP length field")
	fs.String("capture.path", "", "frame capture file")
}

// LoadConfig loads configuration from file. Flags set on fs take
// precedence over the file; fs may be nil.
func LoadConfig(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/fieldbus-codec/")
		v.AddConfigPath("$HOME/.fieldbus-codec")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("codec.byte_order", "big")
	v.SetDefault("codec.bit_order", "msb")
	v.SetDefault("capture.size", 16<<20)

	v.SetEnvPrefix("FIELDBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := config.Codec.Codec(); err != nil {
		return nil, err
	}

	// Validate / Fixups
	for i := range config.Gateways {
		gw := &config.Gateways[i]

		for j := range gw.Downstreams {
			ds := &gw.Downstreams[j]
			if err := checkType(ds.Type); err != nil {
				return nil, fmt.Errorf("gateway %q downstream %d: %w", gw.Name, j, err)
			}
			fixupSerial(&ds.Serial)
		}

		for j := range gw.Upstreams {
			us := &gw.Upstreams[j]
			if err := checkType(us.Type); err != nil {
				return nil, fmt.Errorf("gateway %q upstream %d: %w", gw.Name, j, err)
			}
			fixupSerial(&us.Serial)
		}
	}

	return &config, nil
}

func checkType(t string) error {
	switch t {
	case TypeTCP, TypeRTU, TypeASCII, TypeRTUOverTCP:
		return nil
	}
	return fmt.Errorf("unknown endpoint type %q", t)
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
	if s.RqstPause == 0 {
		s.RqstPause = 100 * time.Millisecond
	}
}

// Codec builds the wire codec described by c.
func (c CodecConfig) Codec() (modbus.Codec, error) {
	codec := modbus.StandardCodec()
	switch strings.ToLower(c.ByteOrder) {
	case "", "big":
		codec.ByteOrder = binary.BigEndian
	case "little":
		codec.ByteOrder = binary.LittleEndian
	default:
		return modbus.Codec{}, fmt.Errorf("unknown byte order %q", c.ByteOrder)
	}
	switch strings.ToLower(c.BitOrder) {
	case "", "msb":
		codec.BitOrder = wire.MSBFirst
	case "lsb":
		codec.BitOrder = wire.LSBFirst
	default:
		return modbus.Codec{}, fmt.Errorf("unknown bit order %q", c.BitOrder)
	}
	codec.OmitTCPLength = c.OmitTCPLength
	return codec, nil
}

// Driver maps an endpoint type onto the frame format it carries.
func Driver(t string) modbus.DriverType {
	switch t {
	case TypeTCP:
		return modbus.DriverTCP
	case TypeASCII:
		return modbus.DriverASCII
	}
	return modbus.DriverRTU
}
