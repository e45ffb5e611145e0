// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package discover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "discover",
		Name:      "packets_received_total",
		Help:      "Total number of discovery packets received, per packet family",
	}, []string{"family"})
	metricDecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "discover",
		Name:      "decode_failures_total",
		Help:      "Total number of datagrams on the discovery channel that could not be decoded",
	})
)
