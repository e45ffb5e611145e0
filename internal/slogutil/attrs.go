// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"log/slog"
	"net"
)

// Error returns an attribute for the given error, using the "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Address returns an attribute for a network address.
func Address(addr net.Addr) slog.Attr {
	if addr == nil {
		return slog.String("address", "<nil>")
	}
	return slog.String("address", addr.String())
}

// MAC returns an attribute for a hardware address.
func MAC(mac net.HardwareAddr) slog.Attr {
	return slog.String("mac", mac.String())
}
