// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ffutop/fieldbus-codec/internal/config"
	"github.com/ffutop/fieldbus-codec/modbus"
	"github.com/ffutop/fieldbus-codec/transport"
	"github.com/ffutop/fieldbus-codec/transport/rtu"
	rtuovertcp "github.com/ffutop/fieldbus-codec/transport/rtu-over-tcp"
	"github.com/ffutop/fieldbus-codec/transport/tcp"
)

type fakeDownstream struct {
	name     string
	resp     modbus.PDU
	err      error
	units    []uint8
	deadline bool
}

func (d *fakeDownstream) Send(ctx context.Context, unitID uint8, req modbus.PDU) (modbus.PDU, error) {
	d.units = append(d.units, unitID)
	_, d.deadline = ctx.Deadline()
	return d.resp, d.err
}

func (d *fakeDownstream) Connect(ctx context.Context) error { return nil }
func (d *fakeDownstream) Close() error                      { return nil }

func TestParseUnitIDs(t *testing.T) {
	tests := []struct {
		input   string
		want    []uint8
		wantErr bool
	}{
		{"1", []uint8{1}, false},
		{"1, 2 ,7", []uint8{1, 2, 7}, false},
		{"5-8", []uint8{5, 6, 7, 8}, false},
		{"0,250-255", []uint8{0, 250, 251, 252, 253, 254, 255}, false},
		{"", nil, false},
		{"8-5", nil, true},
		{"256", nil, true},
		{"1-2-3", nil, true},
		{"a", nil, true},
		{"-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnitIDs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUnitIDs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseUnitIDs(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestHandleRequest(t *testing.T) {
	rhr := &modbus.ReadHoldingRegistersRequest{Quantity: 1}
	ok := &modbus.ReadHoldingRegistersResponse{Value: []byte{0x00, 0x2A}}
	routed := &fakeDownstream{name: "routed", resp: ok}
	fallback := &fakeDownstream{name: "fallback", resp: ok}
	failing := &fakeDownstream{name: "failing", err: errors.New("serial: timeout")}

	g := NewGateway("test", nil, map[uint8]transport.Downstream{1: routed, 9: failing}, fallback)
	tests := []struct {
		name    string
		gw      *Gateway
		unitID  uint8
		want    modbus.PDU
		wantErr *modbus.ErrorPDU
	}{
		{"Routed", g, 1, ok, nil},
		{"Default", g, 2, ok, nil},
		{"DownstreamFailure", g, 9, nil, &modbus.ErrorPDU{
			Function: modbus.FuncCodeReadHoldingRegisters, Code: modbus.ErrorCodeGatewayTargetDeviceFailedToRespond,
		}},
		{"NoRoute", NewGateway("empty", nil, nil, nil), 3, nil, &modbus.ErrorPDU{
			Function: modbus.FuncCodeReadHoldingRegisters, Code: modbus.ErrorCodeGatewayPathUnavailable,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.gw.HandleRequest(context.Background(), tt.unitID, rhr)
			if tt.wantErr != nil {
				var exception *modbus.ErrorPDU
				if !errors.As(err, &exception) {
					t.Fatalf("HandleRequest() error = %v, want exception", err)
				}
				if diff := cmp.Diff(tt.wantErr, exception); diff != "" {
					t.Errorf("exception mismatch (-want +got):\n%s", diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if diff := cmp.Diff([]uint8{1}, routed.units); diff != "" {
		t.Errorf("routed units mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint8{2}, fallback.units); diff != "" {
		t.Errorf("fallback units mismatch (-want +got):\n%s", diff)
	}
	if !routed.deadline {
		t.Error("forwarded request carries no deadline")
	}
}

func TestHandleRequest_ThroughRespond(t *testing.T) {
	g := NewGateway("test", nil, nil, nil)
	req := &modbus.WriteSingleCoilRequest{Address: 1, Value: modbus.CoilOn}
	got := transport.Respond(context.Background(), g.HandleRequest, 4, req)
	want := &modbus.ErrorPDU{Function: modbus.FuncCodeWriteSingleCoil, Code: modbus.ErrorCodeGatewayPathUnavailable}
	if diff := cmp.Diff(modbus.PDU(want), got); diff != "" {
		t.Errorf("Respond() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	cfg := config.GatewayConfig{
		Name: "plant",
		Upstreams: []config.UpstreamConfig{
			{Type: config.TypeTCP, Tcp: config.TcpConfig{Address: "127.0.0.1:0"}},
			{Type: config.TypeRTUOverTCP, Tcp: config.TcpConfig{Address: "127.0.0.1:0"}},
			{Type: config.TypeASCII, Serial: config.SerialConfig{Device: "/dev/ttyS1"}},
		},
		Downstreams: []config.DownstreamConfig{
			{Type: config.TypeTCP, UnitIDs: "1-3", Tcp: config.TcpConfig{Address: "10.0.0.2:502", Timeout: time.Second}},
			{Type: config.TypeRTU, UnitIDs: "4", Serial: config.SerialConfig{Device: "/dev/ttyS0"}},
			{Type: config.TypeRTUOverTCP, Tcp: config.TcpConfig{Address: "10.0.0.3:4001"}},
		},
	}
	codec := modbus.StandardCodec()
	codec.OmitTCPLength = true

	g, err := Build(cfg, codec, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Upstreams) != 3 || len(g.Routes) != 4 {
		t.Fatalf("Build() = %d upstreams, %d routes", len(g.Upstreams), len(g.Routes))
	}
	tc, ok := g.Routes[2].(*tcp.Client)
	if !ok || tc.Address != "10.0.0.2:502" || tc.Timeout != time.Second || !tc.Codec.OmitTCPLength {
		t.Errorf("route 2 = %#v", g.Routes[2])
	}
	if sc, ok := g.Routes[4].(*rtu.Client); !ok || sc.Mode != modbus.DriverRTU {
		t.Errorf("route 4 = %#v", g.Routes[4])
	}
	if _, ok := g.DefaultRoute.(*rtuovertcp.Client); !ok {
		t.Errorf("default route = %#v", g.DefaultRoute)
	}
	if s, ok := g.Upstreams[2].(*rtu.Server); !ok || s.Mode != modbus.DriverASCII {
		t.Errorf("upstream 2 = %#v", g.Upstreams[2])
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GatewayConfig
	}{
		{"UnknownDownstream", config.GatewayConfig{Downstreams: []config.DownstreamConfig{{Type: "local"}}}},
		{"UnknownUpstream", config.GatewayConfig{Upstreams: []config.UpstreamConfig{{Type: "udp"}}}},
		{"BadUnitIDs", config.GatewayConfig{Downstreams: []config.DownstreamConfig{{Type: config.TypeTCP, UnitIDs: "9-1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.cfg, modbus.StandardCodec(), nil); err == nil {
				t.Error("Build() succeeded")
			}
		})
	}
}
