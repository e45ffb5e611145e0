// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// A Line is a single formatted log line.
type Line struct {
	When    time.Time
	Message string
	Level   slog.Level
}

func (l *Line) Write(w io.Writer, f LineFormat) (int64, error) {
	var prefix string
	if f.TimestampFormat != "" {
		prefix = l.When.Format(f.TimestampFormat) + " "
	}
	if f.LevelString {
		prefix += l.levelStr() + " "
	}
	n, err := fmt.Fprintf(w, "%s%s\n", prefix, l.Message)
	return int64(n), err
}

func (l *Line) levelStr() string {
	switch {
	case l.Level < slog.LevelInfo:
		return "DBG"
	case l.Level < slog.LevelWarn:
		return "INF"
	case l.Level < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}
