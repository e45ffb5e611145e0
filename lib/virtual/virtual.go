// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package virtual implements the local participant: a device that claims a
// number and then broadcasts keepalives while powered on.
package virtual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/claim"
	"github.com/beatlink/beatlink/lib/device"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/svcutil"
)

const DefaultKeepaliveInterval = 1500 * time.Millisecond

type Options struct {
	Name              string
	Kind              protocol.DeviceKind
	MAC               net.HardwareAddr
	IP                net.IP
	KeepaliveInterval time.Duration
	// Destination of keepalives; the limited broadcast address on the
	// discovery port if nil.
	Destination *net.UDPAddr
}

type sender interface {
	Send(data []byte, dst *net.UDPAddr) error
}

type claimer interface {
	Claim(ctx context.Context, claimant device.Device, blacklist []int) (int, error)
}

// Device is the local virtual device. It is safe for concurrent use.
type Device struct {
	sock     sender
	evLogger events.Logger
	interval time.Duration
	dst      *net.UDPAddr

	mut         sync.Mutex
	dev         *device.Device
	powered     bool
	negotiating bool
}

// New returns a powered down device without a number. The MAC and IP must
// be valid.
func New(opts Options, sock sender, evLogger events.Logger) (*Device, error) {
	if opts.Name == "" {
		opts.Name = protocol.DefaultDeviceName
	}
	if opts.Kind == 0 {
		opts.Kind = protocol.KindPlayer
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if opts.Destination == nil {
		opts.Destination = &net.UDPAddr{IP: net.IPv4bcast, Port: protocol.DiscoveryPort}
	}

	dev, err := device.New(opts.Kind, opts.Name, opts.MAC)
	if err != nil {
		return nil, err
	}
	if err := dev.SetIPAddress(opts.IP); err != nil {
		return nil, err
	}

	return &Device{
		sock:     sock,
		evLogger: evLogger,
		interval: opts.KeepaliveInterval,
		dst:      opts.Destination,
		dev:      dev,
	}, nil
}

// Negotiate claims a device number and assigns it on success. On failure
// the device is left without a number. ClaimCompleted or ClaimFailed is
// published either way. A call made while another is running returns
// claim.ErrClaimInProgress and leaves the device untouched.
func (d *Device) Negotiate(ctx context.Context, c claimer, blacklist []int) (int, error) {
	d.mut.Lock()
	if d.negotiating {
		d.mut.Unlock()
		return 0, claim.ErrClaimInProgress
	}
	d.negotiating = true
	snap := d.dev.Snapshot()
	d.mut.Unlock()

	number, err := c.Claim(ctx, snap, blacklist)

	d.mut.Lock()
	d.negotiating = false
	if errors.Is(err, claim.ErrClaimInProgress) {
		// Someone else is claiming for this MAC.
		d.mut.Unlock()
		return 0, err
	}
	if err != nil {
		d.dev.SetDeviceNumber(0)
	} else {
		d.dev.SetDeviceNumber(byte(number))
	}
	d.mut.Unlock()

	data := events.ClaimData{MAC: snap.MAC(), Number: number, Blacklist: blacklist, Err: err}
	if err != nil {
		slog.Warn("Failed to claim a device number", "name", snap.Name, slogutil.Error(err))
		d.evLogger.Log(events.ClaimFailed, data)
		return 0, err
	}
	d.evLogger.Log(events.ClaimCompleted, data)
	return number, nil
}

func (d *Device) PowerUp() {
	d.mut.Lock()
	d.powered = true
	d.mut.Unlock()
	slog.Debug("Powered up")
}

func (d *Device) PowerDown() {
	d.mut.Lock()
	d.powered = false
	d.mut.Unlock()
	slog.Debug("Powered down")
}

func (d *Device) Powered() bool {
	d.mut.Lock()
	defer d.mut.Unlock()
	return d.powered
}

// Number returns the claimed device number, or zero.
func (d *Device) Number() int {
	d.mut.Lock()
	defer d.mut.Unlock()
	return int(d.dev.Number)
}

func (d *Device) Snapshot() device.Device {
	d.mut.Lock()
	defer d.mut.Unlock()
	return d.dev.Snapshot()
}

// Serve broadcasts a keepalive every interval while the device is powered
// on and holds a number. It stops when ctx is cancelled.
func (d *Device) Serve(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.SendKeepAlive(); err != nil && !errors.Is(err, errNotActive) {
				// The socket is closed on any transport error
				return svcutil.NoRestartErr(fmt.Errorf("keepalive: %w", err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

var errNotActive = errors.New("powered down or no device number")

// SendKeepAlive broadcasts one keepalive now.
func (d *Device) SendKeepAlive() error {
	d.mut.Lock()
	if !d.powered || !d.dev.HasNumber() {
		d.mut.Unlock()
		return errNotActive
	}
	pkt := &protocol.KeepAlive{
		Name:   d.dev.Name,
		Kind:   d.dev.Kind,
		Number: d.dev.Number,
		MAC:    d.dev.MAC(),
		IP:     d.dev.IP(),
	}
	d.mut.Unlock()

	bs, err := pkt.MarshalBinary()
	if err != nil {
		return err
	}
	return d.sock.Send(bs, d.dst)
}

func (d *Device) String() string {
	d.mut.Lock()
	defer d.mut.Unlock()
	return fmt.Sprintf("virtual.Device@%s", d.dev.Key())
}
