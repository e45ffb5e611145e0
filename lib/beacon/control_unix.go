// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !solaris && !windows

package beacon

import (
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/beatlink/beatlink/internal/slogutil"
)

var SupportsReusePort = false

func init() {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_IP)
	if err != nil {
		slog.Debug("Failed to create a socket", slogutil.Error(err))
		return
	}
	defer func() { _ = unix.Close(fd) }()

	err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	switch {
	case err == unix.ENOPROTOOPT || err == unix.EINVAL:
		slog.Debug("SO_REUSEPORT not supported")
	case err != nil:
		slog.Debug("Unknown error when determining SO_REUSEPORT support", slogutil.Error(err))
	default:
		SupportsReusePort = true
	}
}

// reuseControl lets several programs on the host bind the same DJ-Link
// port; each receives every broadcast.
func reuseControl(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if opErr == nil && SupportsReusePort {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
