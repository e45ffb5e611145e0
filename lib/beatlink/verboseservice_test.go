// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beatlink

import (
	"net"
	"testing"

	"github.com/beatlink/beatlink/lib/claim"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
)

func TestVerboseFormatEvent(t *testing.T) {
	from := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 50001}
	cases := []struct {
		ev   events.Event
		want string
	}{
		{
			events.Event{Type: events.KeepAliveReceived, Data: events.PacketData{}},
			"",
		},
		{
			events.Event{Type: events.StartupComplete},
			"Startup complete",
		},
		{
			events.Event{Type: events.BeatReceived, Data: events.BeatData{
				Beat:    &protocol.Beat{Name: "CDJ-2000", Number: 2, BeatInBar: 3},
				RealBPM:          137.3872,
				BeatPeriodMillis: 436.72,
				From:             from,
			}},
			`Beat from "CDJ-2000" (#2): 137.39 BPM (436.7 ms), beat 3 of bar`,
		},
		{
			events.Event{Type: events.UnknownPacketReceived, Data: events.UnknownPacketData{
				Channel: "beat",
				From:    from,
				Err:     protocol.ErrShortPacket,
			}},
			"Undecodable packet on beat channel from 10.0.0.2:50001: " + protocol.ErrShortPacket.Error(),
		},
		{
			events.Event{Type: events.ClaimCompleted, Data: events.ClaimData{Number: 3}},
			"Claimed device number 3",
		},
		{
			events.Event{Type: events.ClaimFailed, Data: events.ClaimData{Blacklist: []int{1, 2, 3, 4}, Err: claim.ErrClaimExhausted}},
			"Failed to claim a device number (blacklist [1 2 3 4]): no device number available",
		},
	}

	s := newVerboseService(events.NoopLogger)
	for _, tc := range cases {
		if got := s.formatEvent(tc.ev); got != tc.want {
			t.Errorf("%v: got %q, want %q", tc.ev.Type, got, tc.want)
		}
	}

	// Anything unrecognized is still printed.
	if got := s.formatEvent(events.Event{Type: events.EventType(1 << 40)}); got == "" {
		t.Error("unexpected empty format for unknown event")
	}
}
