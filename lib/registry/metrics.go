// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDevices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "beatlink",
		Subsystem: "registry",
		Name:      "devices",
		Help:      "Number of devices currently present on the network",
	})
	metricConnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "registry",
		Name:      "connected_total",
		Help:      "Total number of devices that appeared, per device kind",
	}, []string{"kind"})
	metricDisconnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "registry",
		Name:      "disconnected_total",
		Help:      "Total number of devices that timed out, per device kind",
	}, []string{"kind"})
	metricRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "registry",
		Name:      "rejected_keepalives_total",
		Help:      "Total number of keepalives dropped for carrying an invalid address",
	})
)
