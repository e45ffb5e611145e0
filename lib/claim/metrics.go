// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package claim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "claim",
		Name:      "candidates_total",
		Help:      "Total number of device numbers a claim was attempted for",
	})
	metricConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "claim",
		Name:      "conflicts_total",
		Help:      "Total number of candidate numbers abandoned because another device held or claimed them",
	})
	metricClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beatlink",
		Subsystem: "claim",
		Name:      "claims_total",
		Help:      "Total number of claims, per outcome",
	}, []string{"outcome"})
)

const (
	metricOutcomeAccepted  = "accepted"
	metricOutcomeExhausted = "exhausted"
	metricOutcomeFailed    = "failed"
)
