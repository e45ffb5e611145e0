// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package status

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/testutil"
)

var from = &net.UDPAddr{IP: net.IPv4(10, 0, 0, 3), Port: 50002}

func setup(t *testing.T, cacheSize int) (*Tracker, *testutil.FakeSocket, events.Subscription) {
	t.Helper()
	evLogger := testutil.RunLogger(t)
	sub := evLogger.Subscribe(events.StatusReceived | events.UnknownPacketReceived)
	t.Cleanup(sub.Unsubscribe)

	sock := testutil.NewFakeSocket()
	testutil.RunService(t, sock)
	tr, err := NewTracker(sock, evLogger, cacheSize)
	require.NoError(t, err)
	testutil.RunService(t, tr)
	return tr, sock, sub
}

func inject(t *testing.T, sock *testutil.FakeSocket, p protocol.Packet) {
	t.Helper()
	bs, err := p.MarshalBinary()
	require.NoError(t, err)
	sock.Inject(bs, from)
}

func TestMixerStatusAndTempoMaster(t *testing.T) {
	tr, sock, sub := setup(t, 0)

	_, ok := tr.TempoMaster()
	assert.False(t, ok)

	inject(t, sock, &protocol.MixerStatus{Name: "DJM-900", Number: 33, TempoMaster: true, BPM: 128, BeatInBar: 1})
	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.StatusReceived, ev.Type)
	ms := ev.Data.(events.PacketData).Packet.(*protocol.MixerStatus)
	assert.True(t, ms.TempoMaster)
	assert.Equal(t, 128.0, ms.BPM)

	master, ok := tr.TempoMaster()
	require.True(t, ok)
	assert.Equal(t, 33, master)

	inject(t, sock, &protocol.MixerStatus{Name: "DJM-900", Number: 33, BPM: 128, BeatInBar: 2})
	testutil.NextEvent(t, sub)
	_, ok = tr.TempoMaster()
	assert.False(t, ok)

	latest, ok := tr.Latest(33)
	require.True(t, ok)
	assert.Equal(t, byte(2), latest.Packet.(*protocol.MixerStatus).BeatInBar)
}

func TestPlayerStatusKeptVerbatim(t *testing.T) {
	tr, sock, sub := setup(t, 0)

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	inject(t, sock, &protocol.PlayerStatus{Name: "CDJ-2000", Number: 2, Payload: payload})

	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.StatusReceived, ev.Type)
	ps := ev.Data.(events.PacketData).Packet.(*protocol.PlayerStatus)
	assert.Equal(t, payload, ps.Payload)

	_, ok := tr.Latest(2)
	assert.True(t, ok)
}

func TestLatestIsBounded(t *testing.T) {
	tr, sock, sub := setup(t, 2)

	for _, n := range []byte{1, 2, 3} {
		inject(t, sock, &protocol.PlayerStatus{Name: "CDJ", Number: n})
		testutil.NextEvent(t, sub)
	}

	_, ok := tr.Latest(1)
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = tr.Latest(3)
	assert.True(t, ok)
}

func TestUnknownStatusPacket(t *testing.T) {
	_, sock, sub := setup(t, 0)

	inject(t, sock, &protocol.Beat{Name: "CDJ", Number: 1})
	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.UnknownPacketReceived, ev.Type)
	data := ev.Data.(events.UnknownPacketData)
	assert.Equal(t, ChannelName, data.Channel)
	assert.Equal(t, protocol.TypeBeat, data.Packet.Type())
}
