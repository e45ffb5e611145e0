// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBeats = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beat",
		Name:      "beats_received_total",
		Help:      "Total number of beat packets received, per device number",
	}, []string{"device"})
	metricTempo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "beatlink",
		Subsystem: "beat",
		Name:      "effective_bpm",
		Help:      "Effective tempo at the last beat, per device number",
	}, []string{"device"})
	metricUnknown = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beat",
		Name:      "unknown_packets_total",
		Help:      "Total number of packets on the beat channel that were not beats",
	})
)
