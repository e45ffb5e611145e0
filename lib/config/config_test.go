// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/d4l3k/messagediff"
)

func TestDefaultValues(t *testing.T) {
	expected := Configuration{
		Device: DeviceConfiguration{
			Name: "beatlink",
			Kind: KindPlayer,
		},
		Network: NetworkConfiguration{
			ListenAddress: "0.0.0.0",
			DiscoveryPort: 50000,
			BeatPort:      50001,
			StatusPort:    50002,
			BroadcastMode: BroadcastLimited,
		},
		Options: OptionsConfiguration{
			KeepaliveIntervalMs: 1500,
			DeviceTimeoutMs:     3000,
			SweepIntervalMs:     3000,
			ClaimIntervalMs:     300,
			StatusCacheSize:     64,
		},
	}

	cfg := New()
	if diff, equal := messagediff.PrettyDiff(expected, cfg); !equal {
		t.Errorf("Default config differs. Diff:\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Error("defaults do not validate:", err)
	}
	if cfg.Options.ClaimInterval() != 300*time.Millisecond {
		t.Error("claim interval", cfg.Options.ClaimInterval())
	}
	if cfg.Network.ParsedListenAddress() != nil {
		t.Error("unspecified listen address should parse as nil")
	}
}

func TestReadYAML(t *testing.T) {
	const doc = `
device:
  name: studio
  kind: mixer
  mac: "02:00:00:00:00:01"
  ip: 192.168.1.50
  blacklist: [1, 2]
network:
  broadcastMode: subnet
options:
  claimIntervalMs: 50
  conflictDetection: true
`
	cfg, err := ReadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	expected := New()
	expected.Device = DeviceConfiguration{
		Name:      "studio",
		Kind:      KindMixer,
		MAC:       "02:00:00:00:00:01",
		IP:        "192.168.1.50",
		Blacklist: []int{1, 2},
	}
	expected.Network.BroadcastMode = BroadcastSubnet
	expected.Options.ClaimIntervalMs = 50
	expected.Options.ConflictDetection = true

	if diff, equal := messagediff.PrettyDiff(expected, cfg); !equal {
		t.Errorf("Read config differs. Diff:\n%s", diff)
	}
	if cfg.Device.ParsedMAC().String() != "02:00:00:00:00:01" {
		t.Error("MAC", cfg.Device.ParsedMAC())
	}
	if len(cfg.Device.ParsedIP()) != 4 {
		t.Error("IP", cfg.Device.ParsedIP())
	}
}

func TestInvalidConfigurations(t *testing.T) {
	cases := []string{
		"device: {kind: turntable}",
		"device: {mac: 'not a mac'}",
		"device: {mac: '00:00:5e:00:53:00:00:01'}",
		"device: {ip: '::1'}",
		"network: {listenAddress: 'somewhere'}",
		"network: {broadcastMode: multicast}",
		"network: {beatPort: 70000}",
		"options: {claimIntervalMs: 0}",
		"options: {keepaliveIntervalMs: -5}",
		"unknownSetting: true",
	}
	for _, doc := range cases {
		if _, err := ReadYAML(strings.NewReader(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%q: got %v, want ErrInvalid", doc, err)
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := New()
	cfg.Device.Blacklist = []int{4}
	cfg.Options.MetricsListen = "127.0.0.1:9100"

	var buf bytes.Buffer
	if err := cfg.WriteYAML(&buf); err != nil {
		t.Fatal(err)
	}
	read, err := ReadYAML(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff, equal := messagediff.PrettyDiff(cfg, read); !equal {
		t.Errorf("Round trip differs. Diff:\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Name != "beatlink" {
		t.Error("missing file should give defaults")
	}

	path := filepath.Join(dir, "beatlink.yaml")
	if err := os.WriteFile(path, []byte("device:\n  name: booth\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Name != "booth" || cfg.Network.BeatPort != 50001 {
		t.Errorf("unexpected %+v", cfg)
	}
}
