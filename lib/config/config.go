// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config implements reading and writing of the beatlink
// configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"reflect"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/beatlink/beatlink/lib/protocol"
)

var ErrInvalid = errors.New("invalid configuration")

type Configuration struct {
	Device  DeviceConfiguration  `json:"device"`
	Network NetworkConfiguration `json:"network"`
	Options OptionsConfiguration `json:"options"`
}

type DeviceConfiguration struct {
	Name string `json:"name" default:"beatlink"`
	Kind Kind   `json:"kind" default:"player"`
	// Empty means taken from the network interface.
	MAC string `json:"mac"`
	IP  string `json:"ip"`
	// Device numbers never to claim
	Blacklist []int `json:"blacklist"`
}

type NetworkConfiguration struct {
	ListenAddress string        `json:"listenAddress" default:"0.0.0.0"`
	DiscoveryPort int           `json:"discoveryPort" default:"50000"`
	BeatPort      int           `json:"beatPort" default:"50001"`
	StatusPort    int           `json:"statusPort" default:"50002"`
	BroadcastMode BroadcastMode `json:"broadcastMode" default:"limited"`
}

type OptionsConfiguration struct {
	KeepaliveIntervalMs int    `json:"keepaliveIntervalMs" default:"1500"`
	DeviceTimeoutMs     int    `json:"deviceTimeoutMs" default:"3000"`
	SweepIntervalMs     int    `json:"sweepIntervalMs" default:"3000"`
	ClaimIntervalMs     int    `json:"claimIntervalMs" default:"300"`
	ConflictDetection   bool   `json:"conflictDetection" default:"false"`
	StatusCacheSize     int    `json:"statusCacheSize" default:"64"`
	MetricsListen       string `json:"metricsListen"`
}

// Kind is the device kind as written in the configuration.
type Kind string

const (
	KindPlayer Kind = "player"
	KindMixer  Kind = "mixer"
)

func (k Kind) DeviceKind() (protocol.DeviceKind, error) {
	switch k {
	case KindPlayer:
		return protocol.KindPlayer, nil
	case KindMixer:
		return protocol.KindMixer, nil
	default:
		return 0, fmt.Errorf("%w: unknown device kind %q", ErrInvalid, string(k))
	}
}

// BroadcastMode selects where broadcasts are sent: the limited broadcast
// address 255.255.255.255, or the directed broadcast address of the
// interface's subnet.
type BroadcastMode string

const (
	BroadcastLimited BroadcastMode = "limited"
	BroadcastSubnet  BroadcastMode = "subnet"
)

// New returns a configuration with every default set.
func New() Configuration {
	var cfg Configuration
	setDefaults(&cfg.Device)
	setDefaults(&cfg.Network)
	setDefaults(&cfg.Options)
	return cfg
}

// ReadYAML reads a configuration. Settings missing from r keep their
// defaults; unknown settings are an error.
func ReadYAML(r io.Reader) (Configuration, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return Configuration{}, err
	}
	cfg := New()
	if err := yaml.UnmarshalStrict(bs, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string) (Configuration, error) {
	fd, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	} else if err != nil {
		return Configuration{}, err
	}
	defer fd.Close()
	cfg, err := ReadYAML(fd)
	if err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (cfg Configuration) WriteYAML(w io.Writer) error {
	bs, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}

func (cfg Configuration) Validate() error {
	if _, err := cfg.Device.Kind.DeviceKind(); err != nil {
		return err
	}
	if cfg.Device.MAC != "" {
		mac, err := net.ParseMAC(cfg.Device.MAC)
		if err != nil {
			return fmt.Errorf("%w: device MAC: %w", ErrInvalid, err)
		}
		if err := protocol.ValidateMAC(mac); err != nil {
			return fmt.Errorf("%w: device MAC: %w", ErrInvalid, err)
		}
	}
	if cfg.Device.IP != "" {
		if err := protocol.ValidateIPv4(net.ParseIP(cfg.Device.IP)); err != nil {
			return fmt.Errorf("%w: device IP: %w", ErrInvalid, err)
		}
	}
	if net.ParseIP(cfg.Network.ListenAddress).To4() == nil {
		return fmt.Errorf("%w: listen address %q is not an IPv4 address", ErrInvalid, cfg.Network.ListenAddress)
	}
	for name, port := range map[string]int{"discovery": cfg.Network.DiscoveryPort, "beat": cfg.Network.BeatPort, "status": cfg.Network.StatusPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: %s port %d out of range", ErrInvalid, name, port)
		}
	}
	switch cfg.Network.BroadcastMode {
	case BroadcastLimited, BroadcastSubnet:
	default:
		return fmt.Errorf("%w: unknown broadcast mode %q", ErrInvalid, string(cfg.Network.BroadcastMode))
	}
	for name, ms := range map[string]int{
		"keepalive interval": cfg.Options.KeepaliveIntervalMs,
		"device timeout":     cfg.Options.DeviceTimeoutMs,
		"sweep interval":     cfg.Options.SweepIntervalMs,
		"claim interval":     cfg.Options.ClaimIntervalMs,
	} {
		if ms <= 0 {
			return fmt.Errorf("%w: %s must be positive, not %d ms", ErrInvalid, name, ms)
		}
	}
	return nil
}

// ParsedMAC returns the configured MAC, or nil if it is to be taken from
// the interface.
func (c DeviceConfiguration) ParsedMAC() net.HardwareAddr {
	mac, _ := net.ParseMAC(c.MAC)
	return mac
}

// ParsedIP returns the configured IP, or nil if it is to be taken from the
// interface.
func (c DeviceConfiguration) ParsedIP() net.IP {
	return net.ParseIP(c.IP).To4()
}

func (c NetworkConfiguration) ParsedListenAddress() net.IP {
	ip := net.ParseIP(c.ListenAddress).To4()
	if ip.Equal(net.IPv4zero) {
		return nil
	}
	return ip
}

func (o OptionsConfiguration) KeepaliveInterval() time.Duration {
	return time.Duration(o.KeepaliveIntervalMs) * time.Millisecond
}

func (o OptionsConfiguration) DeviceTimeout() time.Duration {
	return time.Duration(o.DeviceTimeoutMs) * time.Millisecond
}

func (o OptionsConfiguration) SweepInterval() time.Duration {
	return time.Duration(o.SweepIntervalMs) * time.Millisecond
}

func (o OptionsConfiguration) ClaimInterval() time.Duration {
	return time.Duration(o.ClaimIntervalMs) * time.Millisecond
}

// setDefaults sets every field carrying a default tag.
func setDefaults(data interface{}) {
	s := reflect.ValueOf(data).Elem()
	t := s.Type()

	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		tag := t.Field(i).Tag

		v := tag.Get("default")
		if len(v) == 0 {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(v)

		case reflect.Int:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				panic(fmt.Sprintf("bad default %q for %s", v, t.Field(i).Name))
			}
			f.SetInt(n)

		case reflect.Bool:
			f.SetBool(v == "true")

		default:
			panic(f.Type())
		}
	}
}
