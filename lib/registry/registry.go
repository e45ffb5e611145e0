// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package registry keeps track of which devices are present on the network,
// based on the keepalives they broadcast.
package registry

import (
	"cmp"
	"context"
	"log/slog"
	"net"
	"slices"
	"sync/atomic"
	"time"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/device"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
)

const (
	DefaultTimeout       = 3000 * time.Millisecond
	DefaultSweepInterval = 3000 * time.Millisecond
)

type clock interface {
	Now() time.Time
}

type defaultClock struct{}

func (defaultClock) Now() time.Time {
	return time.Now()
}

// Registry is a service tracking device presence. A device is present from
// its first keepalive until no keepalive has been seen for longer than the
// timeout. DeviceConnected and DeviceDisconnected are published on the
// transitions.
//
// The device map is only touched by the Serve goroutine. Readers get an
// immutable copy published after every change.
type Registry struct {
	evLogger      events.Logger
	timeout       time.Duration
	sweepInterval time.Duration
	clock         clock

	devices map[string]*device.Device
	view    atomic.Pointer[[]device.Device]
}

func New(evLogger events.Logger, timeout, sweepInterval time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	r := &Registry{
		evLogger:      evLogger,
		timeout:       timeout,
		sweepInterval: sweepInterval,
		clock:         defaultClock{},
		devices:       make(map[string]*device.Device),
	}
	r.publish()
	return r
}

func (r *Registry) Serve(ctx context.Context) error {
	sub := r.evLogger.Subscribe(events.KeepAliveReceived)
	defer sub.Unsubscribe()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			data, ok := ev.Data.(events.PacketData)
			if !ok {
				continue
			}
			if ka, ok := data.Packet.(*protocol.KeepAlive); ok {
				r.handleKeepAlive(ka)
			}

		case <-ticker.C:
			r.sweep()

		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Registry) handleKeepAlive(ka *protocol.KeepAlive) {
	now := r.clock.Now()

	if dev, ok := r.devices[ka.MAC.String()]; ok {
		dev.LastSeen = now
		return
	}

	dev, err := device.New(ka.Kind, ka.Name, ka.MAC)
	if err == nil {
		err = dev.SetIPAddress(ka.IP)
	}
	if err != nil {
		metricRejected.Inc()
		slog.Warn("Ignoring keepalive", "name", ka.Name, slogutil.Error(err))
		return
	}
	dev.SetDeviceNumber(ka.Number)
	dev.LastSeen = now

	r.devices[dev.Key()] = dev
	r.publish()

	metricConnected.WithLabelValues(dev.Kind.String()).Inc()
	slog.Info("Device connected", "name", dev.Name, "number", dev.Number, "kind", dev.Kind, slogutil.MAC(ka.MAC), "ip", dev.IP())
	r.evLogger.Log(events.DeviceConnected, events.DeviceData{Device: dev.Snapshot()})
}

func (r *Registry) sweep() {
	now := r.clock.Now()

	var gone []*device.Device
	for key, dev := range r.devices {
		if now.Sub(dev.LastSeen) > r.timeout {
			delete(r.devices, key)
			gone = append(gone, dev)
		}
	}
	if len(gone) == 0 {
		return
	}
	r.publish()

	// Stable order for subscribers
	slices.SortFunc(gone, func(a, b *device.Device) int { return int(a.Number) - int(b.Number) })
	for _, dev := range gone {
		metricDisconnected.WithLabelValues(dev.Kind.String()).Inc()
		slog.Info("Device disconnected", "name", dev.Name, "number", dev.Number, slogutil.MAC(dev.MAC()), "lastSeen", dev.LastSeen)
		r.evLogger.Log(events.DeviceDisconnected, events.DeviceData{Device: dev.Snapshot()})
	}
}

func (r *Registry) publish() {
	view := make([]device.Device, 0, len(r.devices))
	for _, dev := range r.devices {
		view = append(view, dev.Snapshot())
	}
	slices.SortFunc(view, func(a, b device.Device) int {
		if a.Number != b.Number {
			return int(a.Number) - int(b.Number)
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	r.view.Store(&view)
	metricDevices.Set(float64(len(view)))
}

// Devices returns the devices currently present, ordered by device number.
func (r *Registry) Devices() []device.Device {
	view := *r.view.Load()
	res := make([]device.Device, len(view))
	for i := range view {
		res[i] = view[i].Snapshot()
	}
	return res
}

// Device returns the device with the given MAC, if present.
func (r *Registry) Device(mac net.HardwareAddr) (device.Device, bool) {
	key := mac.String()
	for _, dev := range *r.view.Load() {
		if dev.Key() == key {
			return dev.Snapshot(), true
		}
	}
	return device.Device{}, false
}

// NumbersInUse returns the device numbers held by present devices other
// than except, in ascending order.
func (r *Registry) NumbersInUse(except net.HardwareAddr) []int {
	var res []int
	for _, dev := range *r.view.Load() {
		if dev.HasNumber() && dev.Key() != except.String() {
			res = append(res, int(dev.Number))
		}
	}
	return slices.Compact(res)
}

func (r *Registry) Len() int {
	return len(*r.view.Load())
}

func (*Registry) String() string {
	return "registry.Registry"
}
