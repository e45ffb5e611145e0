// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package netutil

import (
	"net"
	"testing"
)

var addrToBcast = []struct {
	addr, bcast string
}{
	{"172.16.32.33/25", "172.16.32.127/25"},
	{"172.16.32.129/25", "172.16.32.255/25"},
	{"172.16.32.33/24", "172.16.32.255/24"},
	{"172.16.32.33/22", "172.16.35.255/22"},
	{"172.16.32.33/0", "255.255.255.255/0"},
	{"172.16.32.33/32", "172.16.32.33/32"},
	{"169.254.12.1/16", "169.254.255.255/16"},
}

func TestBroadcastAddr(t *testing.T) {
	for _, tc := range addrToBcast {
		_, net, err := net.ParseCIDR(tc.addr)
		if err != nil {
			t.Fatal(err)
		}
		bc := BroadcastAddr(net).String()
		if bc != tc.bcast {
			t.Errorf("%q != %q", bc, tc.bcast)
		}
	}
}

func TestInterfaceForIPLoopback(t *testing.T) {
	intf, err := InterfaceForIP(net.IPv4(127, 0, 0, 1))
	if err != nil {
		t.Skip("no loopback interface:", err)
	}
	if !intf.IP().Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("wrong address %v", intf.IP())
	}
	if ones, bits := intf.IPNet.Mask.Size(); bits != 32 || ones == 0 {
		t.Errorf("unexpected mask %v", intf.IPNet.Mask)
	}
}

func TestInterfaceForIPRejectsIPv6(t *testing.T) {
	if _, err := InterfaceForIP(net.IPv6loopback); err == nil {
		t.Error("IPv6 address accepted")
	}
}
