// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package netutil finds the local network interface a device participates
// through.
package netutil

import (
	"errors"
	"fmt"
	"net"
)

var ErrNoInterface = errors.New("no matching network interface")

// Interface is a local network interface with one of its IPv4 networks.
type Interface struct {
	Name  string
	Index int
	MAC   net.HardwareAddr
	IPNet *net.IPNet
}

// IP returns the interface's IPv4 address.
func (i *Interface) IP() net.IP {
	return i.IPNet.IP.To4()
}

// Broadcast returns the broadcast address of the interface's network.
func (i *Interface) Broadcast() net.IP {
	return BroadcastAddr(i.IPNet).IP.To4()
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.MAC, i.IPNet)
}

// InterfaceForIP returns the interface holding ip.
func InterfaceForIP(ip net.IP) (*Interface, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("%w: %v is not an IPv4 address", ErrNoInterface, ip)
	}
	return findInterface(func(intf net.Interface, ipnet *net.IPNet) bool {
		return ipnet.IP.Equal(ip4)
	})
}

// FirstIPv4Interface returns the first interface that is up, is not a
// loopback, has a hardware address and has an IPv4 address.
func FirstIPv4Interface() (*Interface, error) {
	return findInterface(func(intf net.Interface, ipnet *net.IPNet) bool {
		return intf.Flags&net.FlagUp != 0 &&
			intf.Flags&net.FlagLoopback == 0 &&
			len(intf.HardwareAddr) == 6 &&
			ipnet.IP.IsGlobalUnicast()
	})
}

func findInterface(match func(net.Interface, *net.IPNet) bool) (*Interface, error) {
	intfs, err := interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	for _, intf := range intfs {
		addrs, err := interfaceAddrs(&intf)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			ipnet = &net.IPNet{IP: ipnet.IP.To4(), Mask: ipnet.Mask[len(ipnet.Mask)-net.IPv4len:]}
			if match(intf, ipnet) {
				return &Interface{
					Name:  intf.Name,
					Index: intf.Index,
					MAC:   intf.HardwareAddr,
					IPNet: ipnet,
				}, nil
			}
		}
	}
	return nil, ErrNoInterface
}

// BroadcastAddr returns the broadcast address of the network, with the
// network's mask.
func BroadcastAddr(ip *net.IPNet) *net.IPNet {
	var bc = &net.IPNet{}
	bc.IP = make([]byte, len(ip.IP))
	copy(bc.IP, ip.IP)
	bc.Mask = ip.Mask

	offset := len(bc.IP) - len(bc.Mask)
	for i := range bc.IP {
		if i-offset >= 0 {
			bc.IP[i] = ip.IP[i] | ^ip.Mask[i-offset]
		}
	}
	return bc
}
