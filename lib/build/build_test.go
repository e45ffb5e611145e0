// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package build

import (
	"strings"
	"testing"
)

func TestAllowedVersions(t *testing.T) {
	testcases := []struct {
		ver     string
		allowed bool
	}{
		{"v0.13.0", true},
		{"v0.12.11+22-gabcdef0", true},
		{"v0.13.0-beta0", true},
		{"v0.13.0-beta47+1-gabcdef0", true},
		{"v0.13.0-beta.47", true},
		{"v0.13.0-some-weird-but-allowed-tag", true},
		{"v0.13.0+not.allowed.to.do.this", false},
		{"v1.0.0+45", true},
		{"1.0.0", false},
	}

	for i, c := range testcases {
		if allowed := AllowedVersionExp.MatchString(c.ver); allowed != c.allowed {
			t.Errorf("%d: incorrect result %v != %v for %q", i, allowed, c.allowed, c.ver)
		}
	}
}

func TestReleaseDetection(t *testing.T) {
	defer func(v string) {
		Version = v
		setBuildData()
	}(Version)

	cases := []struct {
		ver     string
		release bool
		beta    bool
	}{
		{"v1.2.3", true, false},
		{"v1.2.3-rc.1", true, true},
		{"v1.2.3+4-gabcdef0", false, true},
		{"unknown-dev", false, true},
	}
	for _, c := range cases {
		Version = c.ver
		setBuildData()
		if IsRelease != c.release || IsBeta != c.beta {
			t.Errorf("%q: release %v beta %v, want %v %v", c.ver, IsRelease, IsBeta, c.release, c.beta)
		}
		if !strings.HasPrefix(LongVersion, "beatlink "+c.ver+" (") {
			t.Errorf("%q: long version %q", c.ver, LongVersion)
		}
	}
}
