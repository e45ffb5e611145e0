// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package registry

import "github.com/beatlink/beatlink/internal/slogutil"

func init() { slogutil.RegisterPackage("registry", "Device presence tracking") }
