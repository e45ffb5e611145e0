// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package protocol implements the DJ-Link wire format: the packets exchanged
// between players and mixers on the discovery, beat and status channels.
package protocol

import "fmt"

// UDP ports for the three channels.
const (
	DiscoveryPort = 50000
	BeatPort      = 50001
	StatusPort    = 50002
)

// DefaultDeviceName is used when a packet is built without a name.
const DefaultDeviceName = "beatlink"

// The lowest and highest device numbers a player can claim.
const (
	MinDeviceNumber = 1
	MaxDeviceNumber = 4
)

// PacketType is the tag at offset 0x0a. The same value may mean different
// things on different channels.
type PacketType byte

const (
	// Discovery channel (port 50000)
	TypeClaimFirst  PacketType = 0x00
	TypeClaimSecond PacketType = 0x02
	TypeClaimFinal  PacketType = 0x04
	TypeKeepAlive   PacketType = 0x06
	TypeAnnounce    PacketType = 0x0a

	// Beat channel (port 50001)
	TypeBeat PacketType = 0x28

	// Status channel (port 50002)
	TypePlayerStatus PacketType = 0x0a
	TypeMixerStatus  PacketType = 0x29
)

func (t PacketType) String() string {
	return fmt.Sprintf("0x%02x", byte(t))
}

// DeviceKind identifies the kind of hardware behind a device.
type DeviceKind byte

const (
	KindPlayer DeviceKind = 0x01 // CDJ/XDJ
	KindMixer  DeviceKind = 0x02
)

func (k DeviceKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMixer:
		return "mixer"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// Packet is implemented by every decoded packet family.
type Packet interface {
	Type() PacketType
	DeviceName() string
	MarshalBinary() ([]byte, error)
}

// Family returns a short, stable name for the packet's family, suitable for
// log lines and metric labels.
func Family(p Packet) string {
	switch p.(type) {
	case *Announce:
		return "announce"
	case *ClaimFirst:
		return "claim_first"
	case *ClaimSecond:
		return "claim_second"
	case *ClaimFinal:
		return "claim_final"
	case *KeepAlive:
		return "keepalive"
	case *Beat:
		return "beat"
	case *MixerStatus:
		return "mixer_status"
	case *PlayerStatus:
		return "player_status"
	default:
		return "unknown"
	}
}
