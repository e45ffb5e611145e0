// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const modulePrefix = "github.com/beatlink/beatlink/"

type LineFormat struct {
	TimestampFormat string
	LevelString     bool
	// Compact puts the package in front of the message, drops source
	// locations and leaves the attributes unparenthesized, for following
	// packet traffic.
	Compact bool
}

var DefaultLineFormat = LineFormat{
	TimestampFormat: "2006-01-02 15:04:05",
	LevelString:     true,
}

// CompactLineFormat has millisecond timestamps, fine enough to tell the
// datagrams of one beat apart.
var CompactLineFormat = LineFormat{
	TimestampFormat: "15:04:05.000",
	Compact:         true,
}

type formattingOptions struct {
	LineFormat

	mut          sync.Mutex
	out          io.Writer
	timeOverride time.Time
}

type formattingHandler struct {
	attrs  []slog.Attr
	groups []string
	opts   *formattingOptions
}

func SetLineFormat(f LineFormat) {
	globalFormatter.mut.Lock()
	globalFormatter.LineFormat = f
	globalFormatter.mut.Unlock()
}

// SetOutput redirects the default logger output.
func SetOutput(w io.Writer) {
	globalFormatter.mut.Lock()
	globalFormatter.out = w
	globalFormatter.mut.Unlock()
}

var _ slog.Handler = (*formattingHandler)(nil)

func (h *formattingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// origin is where a record was logged from.
type origin struct {
	pkg, typ string
	file     string
	line     int
}

func recordOrigin(rec slog.Record) (origin, bool) {
	fr := runtime.CallersFrames([]uintptr{rec.PC})
	fram, _ := fr.Next()
	if fram.Function == "" {
		return origin{}, false
	}
	pkg, typ := funcNameToPkg(fram.Function)
	return origin{pkg: pkg, typ: typ, file: path.Base(fram.File), line: fram.Line}, true
}

func (h *formattingHandler) Handle(_ context.Context, rec slog.Record) error {
	h.opts.mut.Lock()
	format := h.opts.LineFormat
	h.opts.mut.Unlock()

	org, known := recordOrigin(rec)
	var logAttrs []any
	if known {
		lvl := globalLevels.Get(org.pkg)
		if lvl > rec.Level {
			return nil
		}
		if !format.Compact {
			logAttrs = append(logAttrs, slog.String("pkg", org.pkg))
			if lvl <= slog.LevelDebug {
				if org.typ != "" {
					logAttrs = append(logAttrs, slog.String("type", org.typ))
				}
				logAttrs = append(logAttrs, slog.Group("src", slog.String("file", org.file), slog.Int("line", org.line)))
			}
		}
	}

	var sb strings.Builder
	if format.Compact && known {
		sb.WriteString("[" + org.pkg + "] ")
	}
	sb.WriteString(rec.Message)

	var prefix string
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	attrs := make([]slog.Attr, 0, rec.NumAttrs()+len(h.attrs)+1)
	rec.Attrs(func(attr slog.Attr) bool {
		attr.Key = prefix + attr.Key
		attrs = append(attrs, attr)
		return true
	})
	attrs = append(attrs, h.attrs...)
	if len(logAttrs) > 0 {
		attrs = append(attrs, slog.Group("log", logAttrs...))
	}

	var attrCount int
	for _, attr := range attrs {
		for _, attr := range expandAttrs("", attr) {
			if attr.Key == "" {
				continue
			}
			appendAttr(&sb, attr, attrCount, !format.Compact)
			attrCount++
		}
	}
	if attrCount > 0 && !format.Compact {
		sb.WriteRune(')')
	}

	line := Line{
		When:    cmp.Or(h.opts.timeOverride, rec.Time),
		Message: sb.String(),
		Level:   rec.Level,
	}
	h.opts.mut.Lock()
	defer h.opts.mut.Unlock()
	if h.opts.out != nil {
		_, _ = line.Write(h.opts.out, format)
	}
	return nil
}

func expandAttrs(prefix string, a slog.Attr) []slog.Attr {
	if prefix != "" {
		a.Key = prefix + "." + a.Key
	}
	val := a.Value.Resolve()
	if val.Kind() != slog.KindGroup {
		return []slog.Attr{a}
	}
	var attrs []slog.Attr
	for _, attr := range val.Group() {
		attrs = append(attrs, expandAttrs(a.Key, attr)...)
	}
	return attrs
}

func appendAttr(sb *strings.Builder, a slog.Attr, index int, parens bool) {
	const confusables = ` "()[]{},`
	sb.WriteRune(' ')
	if index == 0 && parens {
		sb.WriteRune('(')
	}
	sb.WriteString(a.Key)
	sb.WriteRune('=')
	v := a.Value.Resolve().String()
	if v == "" || strings.ContainsAny(v, confusables) {
		v = strconv.Quote(v)
	}
	sb.WriteString(v)
}

func (h *formattingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(h.groups) > 0 {
		prefix := strings.Join(h.groups, ".") + "."
		for i := range attrs {
			attrs[i].Key = prefix + attrs[i].Key
		}
	}
	return &formattingHandler{
		attrs:  append(h.attrs, attrs...),
		groups: h.groups,
		opts:   h.opts,
	}
}

func (h *formattingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &formattingHandler{
		attrs:  h.attrs,
		groups: append([]string{name}, h.groups...),
		opts:   h.opts,
	}
}

func funcNameToPkg(fn string) (string, string) {
	fn = strings.ToLower(fn)
	fn = strings.TrimPrefix(fn, modulePrefix+"lib/")
	fn = strings.TrimPrefix(fn, modulePrefix+"internal/")
	fn = strings.TrimPrefix(fn, modulePrefix+"cmd/")

	pkgTypFn := strings.Split(fn, ".") // [package, type, method] or [package, function]
	if len(pkgTypFn) <= 2 {
		return pkgTypFn[0], ""
	}

	pkg := pkgTypFn[0]
	// Remove parenthesis and asterisk from the type name
	typ := strings.TrimLeft(strings.TrimRight(pkgTypFn[1], ")"), "(*")
	// Skip certain type names that add no value
	typ = strings.TrimSuffix(typ, "service")
	switch typ {
	case pkg, "":
		return pkg, ""
	default:
		return pkg, typ
	}
}
