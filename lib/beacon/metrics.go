// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beacon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRecvBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "recv_bytes_total",
		Help:      "Total amount of data received",
	}, []string{"port"})
	metricRecvDatagrams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "recv_datagrams_total",
		Help:      "Total number of datagrams received",
	}, []string{"port"})
	metricSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "sent_bytes_total",
		Help:      "Total amount of data sent",
	}, []string{"port"})
	metricSentDatagrams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "sent_datagrams_total",
		Help:      "Total number of datagrams sent",
	}, []string{"port"})
	metricFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "filtered_datagrams_total",
		Help:      "Total number of datagrams dropped for arriving on another interface",
	}, []string{"port"})
	metricErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "beacon",
		Name:      "errors_total",
		Help:      "Total number of transport errors, after which the socket is closed",
	}, []string{"port"})
)
