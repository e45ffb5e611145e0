// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build android

package netutil

import (
	"net"

	"github.com/wlynxg/anet"
)

// The standard library cannot enumerate interfaces on recent Android
// versions.

func interfaces() ([]net.Interface, error) {
	return anet.Interfaces()
}

func interfaceAddrs(intf *net.Interface) ([]net.Addr, error) {
	return anet.InterfaceAddrsByInterface(intf)
}
