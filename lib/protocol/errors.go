// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrShortPacket    = errors.New("packet too short")
	ErrBadMagic       = errors.New("bad magic")
)

// ValidateMAC returns an error wrapping ErrInvalidAddress unless mac is a
// six byte hardware address.
func ValidateMAC(mac net.HardwareAddr) error {
	if len(mac) != 6 {
		return fmt.Errorf("%w: MAC address %q is %d bytes, want 6", ErrInvalidAddress, mac, len(mac))
	}
	return nil
}

// ValidateIPv4 returns an error wrapping ErrInvalidAddress unless ip is an
// IPv4 address.
func ValidateIPv4(ip net.IP) error {
	if ip.To4() == nil {
		return fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidAddress, ip)
	}
	return nil
}

func shortPacket(family string, have, want int) error {
	return fmt.Errorf("%w: %s is %d bytes, want at least %d", ErrShortPacket, family, have, want)
}
