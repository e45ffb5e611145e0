// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import "math"

// pitchZero is the wire value for a pitch adjustment of 0%. -100% is 0 and
// +100% is twice this.
const pitchZero = 0x100000

// PitchToWire converts a pitch adjustment in percent to its four byte wire
// value. Values outside the representable range are clamped.
func PitchToWire(pct float64) uint32 {
	v := math.Round((pct/100)*pitchZero + pitchZero)
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// PitchFromWire converts a four byte wire pitch to percent.
func PitchFromWire(v uint32) float64 {
	return ((float64(v) - pitchZero) / pitchZero) * 100
}

// BPMToWire converts a tempo to the wire's hundredths of a beat per minute.
func BPMToWire(bpm float64) uint16 {
	v := math.Round(bpm * 100)
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}

func BPMFromWire(v uint16) float64 {
	return float64(v) / 100
}
