// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"encoding/hex"
	"log/slog"
)

// Expensive wraps a log value that is expensive to compute and should only
// be called if the log line is actually emitted.
func Expensive(fn func() any) expensive {
	return expensive{fn}
}

type expensive struct {
	fn func() any
}

func (e expensive) LogValue() slog.Value {
	return slog.AnyValue(e.fn())
}

// HexDump returns an attribute carrying a hex dump of the given datagram,
// computed only when the line is emitted.
func HexDump(bs []byte) slog.Attr {
	return slog.Any("data", Expensive(func() any { return hex.EncodeToString(bs) }))
}
