// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ffutop/fieldbus-codec/internal/capture"
	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/internal/gateway"
	"github.com/ffutop/fieldbus-codec/transport"
)

const usage = `Usage: fieldbus-codec <command> [flags] [args]

Commands:
  serve    run the gateways described by the configuration
  decode   decode hex frames and print their fields
  encode   wrap a hex PDU in a frame
  replay   decode the frames of a capture log
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(args)
	case "decode":
		err = runDecode(args, os.Stdout)
	case "encode":
		err = runEncode(args, os.Stdout)
	case "replay":
		err = runReplay(args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// loadConfig parses the common flags of fs and loads the configuration.
func loadConfig(fs *pflag.FlagSet, args []string) (*config.Config, error) {
	configFile := fs.StringP("config", "c", "", "Path to config file")
	config.Flags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(*configFile, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

func runServe(args []string) error {
	cfg, err := loadConfig(pflag.NewFlagSet("serve", pflag.ExitOnError), args)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec.Codec()
	if err != nil {
		return err
	}

	slog.Info("Starting Modbus Gateway...", "codec_bit_order", codec.BitOrder, "omit_tcp_length", codec.OmitTCPLength)

	var rec transport.Recorder
	if cfg.Capture.Path != "" {
		w, err := capture.Create(cfg.Capture.Path, cfg.Capture.Size)
		if err != nil {
			return err
		}
		defer w.Close()
		rec = w
		slog.Info("Capturing frames", "path", cfg.Capture.Path)
	}

	// Create Gateways
	var gateways []*gateway.Gateway
	for _, gwCfg := range cfg.Gateways {
		gw, err := gateway.Build(gwCfg, codec, rec)
		if err != nil {
			slog.Error("Skipping gateway", "gateway", gwCfg.Name, "err", err)
			continue
		}
		gateways = append(gateways, gw)
	}

	if len(gateways) == 0 {
		return fmt.Errorf("no valid gateways configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start Gateways
	var wg sync.WaitGroup
	for _, gw := range gateways {
		wg.Add(1)
		go func(g *gateway.Gateway) {
			defer wg.Done()
			if err := g.Start(ctx); err != nil {
				slog.Error("Gateway stopped with error", "name", g.Name, "err", err)
			}
		}(gw)
	}

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()
	wg.Wait()
	slog.Info("Goodbye.")
	return nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
		} else {
			out = f
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, opts)))
}
