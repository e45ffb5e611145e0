// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package slogutil

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// BLTRACE selects per package log levels. A bare name means DEBUG, a name
// followed by a colon takes an explicit level, and a group name stands for
// all its packages:
//
//	BLTRACE="discover,claim"         # both at DEBUG
//	BLTRACE="packets,registry:WARN"  # every per datagram logger at DEBUG
var packageGroups = map[string][]string{
	"packets":  {"beacon", "discover", "beat", "status"},
	"presence": {"discover", "registry"},
	"claiming": {"claim", "virtual"},
}

// RegisterPackage records a human readable description for the package
// logging under the given name.
func RegisterPackage(pkg, descr string) {
	globalLevels.describe(pkg, descr)
}

// PackageInfo is a registered package and the level it logs at.
type PackageInfo struct {
	Name  string
	Descr string
	Level slog.Level
}

// Packages returns the registered packages sorted by name.
func Packages() []PackageInfo {
	return globalLevels.packages()
}

// PackageGroups returns the group names accepted in BLTRACE and the packages
// they expand to.
func PackageGroups() map[string][]string {
	res := make(map[string][]string, len(packageGroups))
	for g, pkgs := range packageGroups {
		res[g] = slices.Clone(pkgs)
	}
	return res
}

func SetDefaultLevel(level slog.Level) {
	globalLevels.setDefault(level)
}

func SetLevelOverrides(trace string) {
	for _, entry := range strings.Split(trace, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, levelStr, explicit := strings.Cut(entry, ":")
		level := slog.LevelDebug
		if explicit {
			if err := level.UnmarshalText([]byte(levelStr)); err != nil {
				slog.Warn("Bad log level requested in BLTRACE", slog.String("pkg", name), slog.String("level", levelStr), Error(err))
				continue
			}
		}
		pkgs, ok := packageGroups[name]
		if !ok {
			pkgs = []string{name}
		}
		for _, pkg := range pkgs {
			globalLevels.set(pkg, level)
		}
	}
}

type pkgLevel struct {
	descr string
	level slog.Level
	set   bool // level overrides the default
}

type levelTracker struct {
	mut      sync.RWMutex
	defLevel slog.Level
	pkgs     map[string]*pkgLevel
}

func (t *levelTracker) Get(pkg string) slog.Level {
	t.mut.RLock()
	defer t.mut.RUnlock()
	if p, ok := t.pkgs[pkg]; ok && p.set {
		return p.level
	}
	return t.defLevel
}

func (t *levelTracker) entry(pkg string) *pkgLevel {
	p, ok := t.pkgs[pkg]
	if !ok {
		p = &pkgLevel{}
		t.pkgs[pkg] = p
	}
	return p
}

func (t *levelTracker) set(pkg string, level slog.Level) {
	t.mut.Lock()
	p := t.entry(pkg)
	changed := !p.set || p.level != level
	p.level, p.set = level, true
	t.mut.Unlock()
	if changed {
		slog.Info("Changed package log level", "package", pkg, "level", level)
	}
}

func (t *levelTracker) setDefault(level slog.Level) {
	t.mut.Lock()
	changed := t.defLevel != level
	t.defLevel = level
	t.mut.Unlock()
	if changed {
		slog.Info("Changed default log level", "level", level)
	}
}

func (t *levelTracker) describe(pkg, descr string) {
	t.mut.Lock()
	t.entry(pkg).descr = descr
	t.mut.Unlock()
}

// packages lists the described packages; levels set for names nothing
// registered are left out.
func (t *levelTracker) packages() []PackageInfo {
	t.mut.RLock()
	defer t.mut.RUnlock()
	res := make([]PackageInfo, 0, len(t.pkgs))
	for name, p := range t.pkgs {
		if p.descr == "" {
			continue
		}
		level := t.defLevel
		if p.set {
			level = p.level
		}
		res = append(res, PackageInfo{Name: name, Descr: p.descr, Level: level})
	}
	slices.SortFunc(res, func(a, b PackageInfo) int { return strings.Compare(a.Name, b.Name) })
	return res
}
