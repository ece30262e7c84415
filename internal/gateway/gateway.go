// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/transport"
	"github.com/ffutop/fieldbus-codec/transport/rtu"
	rtuovertcp "github.com/ffutop/fieldbus-codec/transport/rtu-over-tcp"
	"github.com/ffutop/fieldbus-codec/transport/tcp"
)

// DefaultTimeout bounds a forwarded request when the upstream sets no deadline.
const DefaultTimeout = 2 * time.Second

// Gateway represents a single gateway instance.
// It bridges multiple Upstreams (Masters) to multiple Downstreams (Slaves) using routing.
type Gateway struct {
	Name         string
	Upstreams    []transport.Upstream
	Routes       map[uint8]transport.Downstream
	DefaultRoute transport.Downstream
	Timeout      time.Duration
}

// NewGateway creates a new Gateway instance
func NewGateway(name string, upstreams []transport.Upstream, routes map[uint8]transport.Downstream, defaultRoute transport.Downstream) *Gateway {
	return &Gateway{
		Name:         name,
		Upstreams:    upstreams,
		Routes:       routes,
		DefaultRoute: defaultRoute,
		Timeout:      DefaultTimeout,
	}
}

// Build wires the endpoints named by cfg. A downstream without unit ids
// becomes the default route.
func Build(cfg config.GatewayConfig, codec modbus.Codec, rec transport.Recorder) (*Gateway, error) {
	routes := make(map[uint8]transport.Downstream)
	var defaultRoute transport.Downstream
	for i, dsCfg := range cfg.Downstreams {
		ds, err := newDownstream(dsCfg, codec, rec)
		if err != nil {
			return nil, fmt.Errorf("gateway %q downstream %d: %w", cfg.Name, i, err)
		}
		if strings.TrimSpace(dsCfg.UnitIDs) == "" {
			defaultRoute = ds
			continue
		}
		ids, err := ParseUnitIDs(dsCfg.UnitIDs)
		if err != nil {
			return nil, fmt.Errorf("gateway %q downstream %d: %w", cfg.Name, i, err)
		}
		for _, id := range ids {
			routes[id] = ds
		}
	}

	var upstreams []transport.Upstream
	for i, usCfg := range cfg.Upstreams {
		us, err := newUpstream(usCfg, codec, rec)
		if err != nil {
			return nil, fmt.Errorf("gateway %q upstream %d: %w", cfg.Name, i, err)
		}
		upstreams = append(upstreams, us)
	}
	return NewGateway(cfg.Name, upstreams, routes, defaultRoute), nil
}

func newDownstream(cfg config.DownstreamConfig, codec modbus.Codec, rec transport.Recorder) (transport.Downstream, error) {
	switch cfg.Type {
	case config.TypeTCP:
		c := tcp.NewClient(cfg.Tcp.Address)
		c.Codec, c.Recorder = codec, rec
		if cfg.Tcp.Timeout > 0 {
			c.Timeout = cfg.Tcp.Timeout
		}
		return c, nil
	case config.TypeRTUOverTCP:
		c := rtuovertcp.NewClient(cfg.Tcp.Address)
		c.Codec, c.Recorder = codec, rec
		if cfg.Tcp.Timeout > 0 {
			c.Timeout = cfg.Tcp.Timeout
		}
		return c, nil
	case config.TypeRTU, config.TypeASCII:
		c := rtu.NewClient(cfg.Serial, config.Driver(cfg.Type))
		c.Codec, c.Recorder = codec, rec
		return c, nil
	}
	return nil, fmt.Errorf("unknown downstream type %q", cfg.Type)
}

func newUpstream(cfg config.UpstreamConfig, codec modbus.Codec, rec transport.Recorder) (transport.Upstream, error) {
	switch cfg.Type {
	case config.TypeTCP:
		s := tcp.NewServer(cfg.Tcp.Address)
		s.Codec, s.Recorder = codec, rec
		return s, nil
	case config.TypeRTUOverTCP:
		s := rtuovertcp.NewServer(cfg.Tcp.Address)
		s.Codec, s.Recorder = codec, rec
		return s, nil
	case config.TypeRTU, config.TypeASCII:
		s := rtu.NewServer(cfg.Serial, config.Driver(cfg.Type))
		s.Codec, s.Recorder = codec, rec
		return s, nil
	}
	return nil, fmt.Errorf("unknown upstream type %q", cfg.Type)
}

// ParseUnitIDs parses a string of unit IDs (e.g. "1,2,5-10") into a slice of bytes.
func ParseUnitIDs(input string) ([]uint8, error) {
	var ids []uint8
	parts := strings.Split(input, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			// Range
			ranges := strings.Split(part, "-")
			if len(ranges) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, err := parseUnitID(ranges[0])
			if err != nil {
				return nil, fmt.Errorf("invalid start of range: %w", err)
			}
			end, err := parseUnitID(ranges[1])
			if err != nil {
				return nil, fmt.Errorf("invalid end of range: %w", err)
			}
			if start > end {
				return nil, fmt.Errorf("start of range %d is greater than end %d", start, end)
			}
			for i := int(start); i <= int(end); i++ {
				ids = append(ids, uint8(i))
			}
		} else {
			// Single
			id, err := parseUnitID(part)
			if err != nil {
				return nil, fmt.Errorf("invalid id: %w", err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseUnitID(s string) (uint8, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(id), nil
}

// Start starts all upstream servers and the downstream connection
func (g *Gateway) Start(ctx context.Context) error {
	// Connect Downstreams (Unique instances)
	uniqueDownstreams := make(map[transport.Downstream]struct{})
	for _, ds := range g.Routes {
		uniqueDownstreams[ds] = struct{}{}
	}
	if g.DefaultRoute != nil {
		uniqueDownstreams[g.DefaultRoute] = struct{}{}
	}

	for ds := range uniqueDownstreams {
		if err := ds.Connect(ctx); err != nil {
			// a downstream may come up later
			slog.Error("Failed to connect downstream", "gateway", g.Name, "err", err)
		}
	}

	// Start Upstreams
	var wg sync.WaitGroup
	for i, us := range g.Upstreams {
		wg.Add(1)
		go func(ups transport.Upstream, idx int) {
			defer wg.Done()
			slog.Info("Starting upstream", "gateway", g.Name, "index", idx)
			if err := ups.Start(ctx, g.HandleRequest); err != nil {
				slog.Error("Upstream stopped with error", "gateway", g.Name, "index", idx, "err", err)
			}
		}(us, i)
	}

	<-ctx.Done()

	// Graceful shutdown
	for _, us := range g.Upstreams {
		us.Close()
	}
	for ds := range uniqueDownstreams {
		ds.Close()
	}

	wg.Wait()
	return nil
}

// HandleRequest forwards req to the downstream routed for unitID. With no
// route the request is answered with GatewayPathUnavailable, and a failed
// exchange with GatewayTargetDeviceFailedToRespond.
func (g *Gateway) HandleRequest(ctx context.Context, unitID uint8, req modbus.PDU) (modbus.PDU, error) {
	target, ok := g.Routes[unitID]
	if !ok {
		target = g.DefaultRoute
	}
	if target == nil {
		slog.Warn("No route found for unit ID", "gateway", g.Name, "unitID", unitID)
		return nil, modbus.NewErrorPDU(req, modbus.ErrorCodeGatewayPathUnavailable)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := target.Send(ctx, unitID, req)
	if err != nil {
		slog.Error("Downstream request failed", "gateway", g.Name, "unitID", unitID, "request", req.Discriminant(), "err", err)
		return nil, modbus.NewErrorPDU(req, modbus.ErrorCodeGatewayTargetDeviceFailedToRespond)
	}
	return resp, nil
}
