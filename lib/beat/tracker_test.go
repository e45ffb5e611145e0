// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beat

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"

	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/testutil"
)

var from = &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 50001}

func setup(t *testing.T) (*Tracker, *testutil.FakeSocket, events.Subscription, <-chan error) {
	t.Helper()
	evLogger := testutil.RunLogger(t)
	sub := evLogger.Subscribe(events.BeatReceived | events.UnknownPacketReceived)
	t.Cleanup(sub.Unsubscribe)

	sock := testutil.NewFakeSocket()
	testutil.RunService(t, sock)
	tr := NewTracker(sock, evLogger)
	res := testutil.RunService(t, tr)
	return tr, sock, sub, res
}

func TestBeatWithEffectiveTempo(t *testing.T) {
	tr, sock, sub, _ := setup(t)

	cases := []struct {
		pitch, real, period float64
	}{
		{0, 136, 441.18},
		{-50, 68, 882.35},
		{50, 204, 294.12},
	}

	for _, tc := range cases {
		bs, err := (&protocol.Beat{Name: "CDJ-2000", Number: 2, BPM: 136, Pitch: tc.pitch, BeatInBar: 1, NextBeat: 441}).MarshalBinary()
		require.NoError(t, err)
		sock.Inject(bs, from)

		ev := testutil.NextEvent(t, sub)
		require.Equal(t, events.BeatReceived, ev.Type)
		data := ev.Data.(events.BeatData)
		assert.Equal(t, tc.real, data.RealBPM)
		assert.InDelta(t, tc.period, data.BeatPeriodMillis, 0.01)
		assert.Equal(t, byte(2), data.Beat.Number)
		assert.Equal(t, uint32(441), data.Beat.NextBeat)
		assert.Equal(t, from, data.From)
	}

	latest, ok := tr.Latest(2)
	require.True(t, ok)
	assert.Equal(t, 204.0, latest.RealBPM)
	_, ok = tr.Latest(3)
	assert.False(t, ok)
}

func TestNonBeatPacketsAreUnknown(t *testing.T) {
	_, sock, sub, _ := setup(t)

	bs, err := (&protocol.MixerStatus{Name: "DJM", Number: 33}).MarshalBinary()
	require.NoError(t, err)
	sock.Inject(bs, from)

	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.UnknownPacketReceived, ev.Type)
	data := ev.Data.(events.UnknownPacketData)
	assert.Equal(t, ChannelName, data.Channel)
	require.NotNil(t, data.Packet)
	assert.Equal(t, protocol.TypeMixerStatus, data.Packet.Type())

	sock.Inject(bs[:20], from)
	ev = testutil.NextEvent(t, sub)
	require.Equal(t, events.UnknownPacketReceived, ev.Type)
	assert.ErrorIs(t, ev.Data.(events.UnknownPacketData).Err, protocol.ErrShortPacket)
}

func TestTransportErrorIsTerminal(t *testing.T) {
	_, sock, _, res := setup(t)
	sock.Fail(errors.New("network is down"))

	select {
	case err := <-res:
		assert.ErrorIs(t, err, suture.ErrDoNotRestart)
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not stop")
	}
}
