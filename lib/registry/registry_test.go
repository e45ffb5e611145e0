// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package registry

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/testutil"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

var (
	macA = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x01}
	macB = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x02}
)

func keepAlive(name string, number byte, mac net.HardwareAddr) *protocol.KeepAlive {
	return &protocol.KeepAlive{
		Name:   name,
		Kind:   protocol.KindPlayer,
		Number: number,
		MAC:    mac,
		IP:     net.IPv4(10, 0, 0, number).To4(),
	}
}

func setup(t *testing.T) (*Registry, *fakeClock, events.Subscription) {
	t.Helper()
	evLogger := testutil.RunLogger(t)
	sub := evLogger.Subscribe(events.DeviceConnected | events.DeviceDisconnected)
	t.Cleanup(sub.Unsubscribe)

	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := New(evLogger, 3*time.Second, 3*time.Second)
	r.clock = clk
	return r, clk, sub
}

func TestFirstKeepAliveConnects(t *testing.T) {
	r, clk, sub := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))

	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.DeviceConnected, ev.Type)
	dev := ev.Data.(events.DeviceData).Device
	assert.Equal(t, "CDJ-2000", dev.Name)
	assert.Equal(t, byte(2), dev.Number)
	assert.Equal(t, protocol.KindPlayer, dev.Kind)
	assert.Equal(t, macA.String(), dev.MAC().String())
	assert.True(t, dev.IP().Equal(net.IPv4(10, 0, 0, 2)))
	assert.Equal(t, clk.now, dev.LastSeen)

	assert.Equal(t, 1, r.Len())
	got, ok := r.Device(macA)
	require.True(t, ok)
	assert.Equal(t, "CDJ-2000", got.Name)
}

func TestRepeatedKeepAliveOnlyUpdatesLastSeen(t *testing.T) {
	r, clk, sub := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	testutil.NextEvent(t, sub)

	clk.advance(time.Second)
	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	testutil.NoEvent(t, sub, 50*time.Millisecond)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, clk.now, r.devices[macA.String()].LastSeen)
}

func TestSweepEvictsAfterTimeout(t *testing.T) {
	r, clk, sub := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	testutil.NextEvent(t, sub)

	// Exactly at the timeout is still present
	clk.advance(3 * time.Second)
	r.sweep()
	testutil.NoEvent(t, sub, 50*time.Millisecond)
	assert.Equal(t, 1, r.Len())

	clk.advance(time.Millisecond)
	r.sweep()
	ev := testutil.NextEvent(t, sub)
	require.Equal(t, events.DeviceDisconnected, ev.Type)
	assert.Equal(t, "CDJ-2000", ev.Data.(events.DeviceData).Device.Name)
	assert.Equal(t, 0, r.Len())
	_, ok := r.Device(macA)
	assert.False(t, ok)
}

func TestKeepAliveRefreshesPresence(t *testing.T) {
	r, clk, sub := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	testutil.NextEvent(t, sub)

	for i := 0; i < 5; i++ {
		clk.advance(2 * time.Second)
		r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
		r.sweep()
	}
	testutil.NoEvent(t, sub, 50*time.Millisecond)
	assert.Equal(t, 1, r.Len())
}

func TestReconnectAfterEviction(t *testing.T) {
	r, clk, sub := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	testutil.NextEvent(t, sub)
	clk.advance(4 * time.Second)
	r.sweep()
	require.Equal(t, events.DeviceDisconnected, testutil.NextEvent(t, sub).Type)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	require.Equal(t, events.DeviceConnected, testutil.NextEvent(t, sub).Type)
}

func TestInvalidAddressesAreDropped(t *testing.T) {
	r, _, sub := setup(t)

	bad := keepAlive("bad MAC", 1, net.HardwareAddr{1, 2, 3})
	r.handleKeepAlive(bad)
	bad = keepAlive("bad IP", 1, macA)
	bad.IP = nil
	r.handleKeepAlive(bad)

	testutil.NoEvent(t, sub, 50*time.Millisecond)
	assert.Equal(t, 0, r.Len())
}

func TestNumbersInUse(t *testing.T) {
	r, _, _ := setup(t)

	r.handleKeepAlive(keepAlive("CDJ-2000", 2, macA))
	r.handleKeepAlive(keepAlive("CDJ-900", 1, macB))
	mixer := keepAlive("DJM-900", 33, net.HardwareAddr{0, 0, 0, 0, 0, 3})
	mixer.Kind = protocol.KindMixer
	r.handleKeepAlive(mixer)

	assert.Equal(t, []int{1, 2, 33}, r.NumbersInUse(nil))
	assert.Equal(t, []int{2, 33}, r.NumbersInUse(macB))

	devs := r.Devices()
	require.Len(t, devs, 3)
	assert.Equal(t, "CDJ-900", devs[0].Name)
}

func TestServeTracksKeepAliveEvents(t *testing.T) {
	evLogger := testutil.RunLogger(t)
	sub := evLogger.Subscribe(events.DeviceConnected | events.DeviceDisconnected)
	defer sub.Unsubscribe()

	r := New(evLogger, 100*time.Millisecond, 20*time.Millisecond)
	testutil.RunService(t, r)

	// The registry subscribes when it starts; wait for that before
	// publishing.
	var ev events.Event
	for i := 0; i < 100; i++ {
		evLogger.Log(events.KeepAliveReceived, events.PacketData{Packet: keepAlive("CDJ-2000", 3, macA)})
		var err error
		if ev, err = sub.Poll(20 * time.Millisecond); err == nil {
			break
		}
	}
	require.Equal(t, events.DeviceConnected, ev.Type)

	ev = testutil.NextEvent(t, sub)
	assert.Equal(t, events.DeviceDisconnected, ev.Type)
	assert.Equal(t, 0, r.Len())
}
