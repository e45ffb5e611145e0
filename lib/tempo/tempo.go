// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tempo contains tempo arithmetic shared by the trackers.
package tempo

// RealBPM returns the effective tempo of a track playing at bpm with the
// given pitch adjustment in percent.
func RealBPM(bpm, pitch float64) float64 {
	// The explicit conversion forces rounding of the product and prevents
	// a fused multiply-add, which would change the last bits.
	return bpm + float64(bpm*(pitch/100))
}

// BeatPeriodMillis returns the length of one beat in milliseconds at the
// given effective tempo, or zero for a non positive tempo.
func BeatPeriodMillis(realBPM float64) float64 {
	if realBPM <= 0 {
		return 0
	}
	return 60000 / realBPM
}
