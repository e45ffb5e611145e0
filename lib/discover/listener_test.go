// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package discover

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/testutil"
	"github.com/thejerf/suture/v4"
)

var (
	testMAC  = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testIP   = net.IPv4(10, 0, 0, 2).To4()
	testFrom = &net.UDPAddr{IP: testIP, Port: 50000}
)

func setup(t *testing.T) (*testutil.FakeSocket, events.Subscription, <-chan error) {
	t.Helper()
	evLogger := testutil.RunLogger(t)
	sub := evLogger.Subscribe(events.AllEvents)
	t.Cleanup(sub.Unsubscribe)

	sock := testutil.NewFakeSocket()
	testutil.RunService(t, sock)
	res := testutil.RunService(t, NewListener(sock, evLogger))
	return sock, sub, res
}

func marshal(t *testing.T, p protocol.Packet) []byte {
	t.Helper()
	bs, err := p.MarshalBinary()
	testutil.FatalErr(t, err)
	return bs
}

func TestPacketEvents(t *testing.T) {
	sock, sub, _ := setup(t)

	cases := []struct {
		pkt protocol.Packet
		ev  events.EventType
	}{
		{&protocol.Announce{Name: "CDJ-2000", Kind: protocol.KindPlayer}, events.AnnounceReceived},
		{&protocol.ClaimFirst{Name: "CDJ-2000", Kind: protocol.KindPlayer, Count: 1, MAC: testMAC}, events.ClaimFirstReceived},
		{&protocol.ClaimSecond{Name: "CDJ-2000", Kind: protocol.KindPlayer, Count: 2, MAC: testMAC, IP: testIP, Number: 2, Mode: protocol.ModeClaimSpecific}, events.ClaimSecondReceived},
		{&protocol.ClaimFinal{Name: "CDJ-2000", Number: 2, Count: 1}, events.ClaimFinalReceived},
		{&protocol.KeepAlive{Name: "CDJ-2000", Kind: protocol.KindPlayer, Number: 2, MAC: testMAC, IP: testIP}, events.KeepAliveReceived},
	}

	for _, tc := range cases {
		sock.Inject(marshal(t, tc.pkt), testFrom)
		ev := testutil.NextEvent(t, sub)
		if ev.Type != tc.ev {
			t.Fatalf("got %v, want %v", ev.Type, tc.ev)
		}
		data := ev.Data.(events.PacketData)
		if data.From != testFrom {
			t.Errorf("source %v", data.From)
		}
		if protocol.Family(data.Packet) != protocol.Family(tc.pkt) {
			t.Errorf("got %T, want %T", data.Packet, tc.pkt)
		}
	}
}

func TestUnknownAndMalformedArePublished(t *testing.T) {
	sock, sub, _ := setup(t)

	bs := marshal(t, &protocol.Announce{Name: "mystery"})
	bs[0x0a] = 0x77
	sock.Inject(bs, testFrom)

	ev := testutil.NextEvent(t, sub)
	if ev.Type != events.UnknownPacketReceived {
		t.Fatalf("got %v", ev.Type)
	}
	data := ev.Data.(events.UnknownPacketData)
	if data.Packet == nil || data.Packet.Type() != 0x77 || data.Err != nil {
		t.Errorf("unexpected %+v", data)
	}

	sock.Inject([]byte("not a DJ-Link packet"), testFrom)
	ev = testutil.NextEvent(t, sub)
	if ev.Type != events.UnknownPacketReceived {
		t.Fatalf("got %v", ev.Type)
	}
	data = ev.Data.(events.UnknownPacketData)
	if !errors.Is(data.Err, protocol.ErrBadMagic) || data.Channel != ChannelName {
		t.Errorf("unexpected %+v", data)
	}

	// A keepalive cut short
	sock.Inject(marshal(t, &protocol.KeepAlive{MAC: testMAC, IP: testIP})[:0x30], testFrom)
	ev = testutil.NextEvent(t, sub)
	if data := ev.Data.(events.UnknownPacketData); !errors.Is(data.Err, protocol.ErrShortPacket) {
		t.Errorf("unexpected %+v", data)
	}
}

func TestTransportErrorIsTerminal(t *testing.T) {
	sock, _, res := setup(t)

	sock.Fail(errors.New("network is down"))

	select {
	case err := <-res:
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("got %v, want a no-restart error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
