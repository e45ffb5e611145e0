// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !solaris && !windows

package beacon

import (
	"net"
	"testing"
)

func TestPortCanBeShared(t *testing.T) {
	a := listenLoopback(t)
	port := a.LocalAddr().(*net.UDPAddr).Port

	b, err := Listen(loopback, port)
	if err != nil {
		t.Fatalf("second bind of port %d: %v", port, err)
	}
	b.Close()
}
