// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package events

import (
	"net"

	"github.com/beatlink/beatlink/lib/device"
	"github.com/beatlink/beatlink/lib/protocol"
)

// PacketData is the payload of the per-family packet events.
type PacketData struct {
	Packet protocol.Packet
	From   net.Addr
}

// UnknownPacketData is published for datagrams with an unrecognized type
// tag and for datagrams that could not be decoded at all, in which case
// Packet is nil and Err is set.
type UnknownPacketData struct {
	Channel string
	From    net.Addr
	Packet  *protocol.Unknown
	Raw     []byte
	Err     error
}

// DeviceData is the payload of DeviceConnected and DeviceDisconnected.
type DeviceData struct {
	Device device.Device
}

// BeatData is the payload of BeatReceived.
type BeatData struct {
	Beat    *protocol.Beat
	RealBPM float64
	// Length of one beat at RealBPM; zero when stopped.
	BeatPeriodMillis float64
	From             net.Addr
}

// ClaimData is the payload of ClaimCompleted and ClaimFailed.
type ClaimData struct {
	MAC       net.HardwareAddr
	Number    int
	Blacklist []int
	Err       error
}
