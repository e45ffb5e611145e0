// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package device holds the record kept for every participant on the
// network, local or remote.
package device

import (
	"fmt"
	"net"
	"time"

	"github.com/beatlink/beatlink/lib/protocol"
)

// Device is a participant on the network. The MAC is fixed at construction
// and identifies the device. A Device is not safe for concurrent use; hand
// out Snapshots instead.
type Device struct {
	Kind     protocol.DeviceKind
	Name     string
	Number   byte // zero until assigned
	LastSeen time.Time

	mac net.HardwareAddr
	ip  net.IP
}

// New returns a device with the given MAC, or an error wrapping
// protocol.ErrInvalidAddress if the MAC is malformed.
func New(kind protocol.DeviceKind, name string, mac net.HardwareAddr) (*Device, error) {
	if err := protocol.ValidateMAC(mac); err != nil {
		return nil, err
	}
	return &Device{
		Kind: kind,
		Name: name,
		mac:  append(net.HardwareAddr(nil), mac...),
	}, nil
}

// MAC returns the device's hardware address.
func (d *Device) MAC() net.HardwareAddr {
	return append(net.HardwareAddr(nil), d.mac...)
}

// Key returns the canonical string form of the MAC, used to key maps.
func (d *Device) Key() string {
	return d.mac.String()
}

// IP returns the device's address, or nil if none has been set.
func (d *Device) IP() net.IP {
	if d.ip == nil {
		return nil
	}
	return append(net.IP(nil), d.ip...)
}

func (d *Device) SetIPAddress(ip net.IP) error {
	if err := protocol.ValidateIPv4(ip); err != nil {
		return err
	}
	d.ip = append(net.IP(nil), ip.To4()...)
	return nil
}

// SetDeviceNumber sets the device number. Zero clears it. Mixers use
// numbers outside the range players claim from, so any value is accepted.
func (d *Device) SetDeviceNumber(n byte) {
	d.Number = n
}

func (d *Device) HasNumber() bool {
	return d.Number != 0
}

// Snapshot returns a deep copy.
func (d *Device) Snapshot() Device {
	c := *d
	c.mac = d.MAC()
	c.ip = d.IP()
	return c
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %q (%s, number %d, %v)", d.Kind, d.Name, d.mac, d.Number, d.ip)
}
