// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import "encoding/binary"

const (
	mixerMasterFlag    = 0xf0
	mixerNotMasterFlag = 0xd0
)

// MixerStatus is the mixer's periodic state report on the status channel.
type MixerStatus struct {
	Name        string
	Number      byte
	TempoMaster bool
	Pitch       float64 // percent
	BPM         float64
	BeatInBar   byte
}

func (*MixerStatus) Type() PacketType { return TypeMixerStatus }
func (p *MixerStatus) DeviceName() string { return p.Name }

func (p *MixerStatus) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MixerStatusLength)
	putChannelHeader(buf, TypeMixerStatus, p.Name, p.Number)
	buf[0x24] = p.Number
	if p.TempoMaster {
		buf[0x27] = mixerMasterFlag
	} else {
		buf[0x27] = mixerNotMasterFlag
	}
	pitch := PitchToWire(p.Pitch)
	binary.BigEndian.PutUint32(buf[0x28:], pitch)
	buf[0x2c] = 0x80
	binary.BigEndian.PutUint16(buf[0x2e:], BPMToWire(p.BPM))
	binary.BigEndian.PutUint32(buf[0x30:], pitch)
	buf[0x35] = 0x09
	buf[0x37] = p.BeatInBar
	return buf, nil
}

func (p *MixerStatus) unmarshal(buf []byte) {
	p.Number = buf[0x24]
	p.TempoMaster = buf[0x27] == mixerMasterFlag
	p.Pitch = PitchFromWire(binary.BigEndian.Uint32(buf[0x28:]))
	p.BPM = BPMFromWire(binary.BigEndian.Uint16(buf[0x2e:]))
	p.BeatInBar = buf[0x37]
}

// PlayerStatus is a player's status report. Only the header is
// interpreted; the payload after it is kept as received.
type PlayerStatus struct {
	Name    string
	Number  byte
	Payload []byte
}

func (*PlayerStatus) Type() PacketType { return TypePlayerStatus }
func (p *PlayerStatus) DeviceName() string { return p.Name }

func (p *PlayerStatus) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderLength+len(p.Payload))
	putChannelHeader(buf, TypePlayerStatus, p.Name, p.Number)
	copy(buf[HeaderLength:], p.Payload)
	return buf, nil
}

// Unknown is any packet with a type tag this package does not know on the
// channel it arrived on. Raw holds the complete datagram.
type Unknown struct {
	PacketType PacketType
	Name       string
	Number     byte // zero on the discovery channel
	Raw        []byte
}

func (p *Unknown) Type() PacketType { return p.PacketType }
func (p *Unknown) DeviceName() string { return p.Name }

func (p *Unknown) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), p.Raw...), nil
}
