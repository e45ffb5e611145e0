// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "status",
		Name:      "packets_received_total",
		Help:      "Total number of status packets received, per packet family",
	}, []string{"family"})
	metricTempoMaster = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beatlink",
		Subsystem: "status",
		Name:      "tempo_master",
		Help:      "Device number of the current tempo master, or zero if none is known",
	})
)
