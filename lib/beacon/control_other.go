// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build solaris || windows

package beacon

import "syscall"

var SupportsReusePort = false

func reuseControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
