// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"
	"encoding/binary"
)

const (
	BeatLength        = 0x60
	MixerStatusLength = 0x38
)

// Beat is broadcast by a player on every beat. Times are milliseconds from
// this beat until the named future beat at the current tempo.
type Beat struct {
	Name       string
	Number     byte
	NextBeat   uint32
	SecondBeat uint32
	NextBar    uint32
	FourthBeat uint32
	SecondBar  uint32
	EighthBeat uint32
	Pitch      float64 // percent
	BPM        float64 // track tempo, before pitch
	BeatInBar  byte    // 1..4
}

func (*Beat) Type() PacketType { return TypeBeat }
func (p *Beat) DeviceName() string { return p.Name }

var beatFiller = bytes.Repeat([]byte{0xff}, 24)

func (p *Beat) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BeatLength)
	putChannelHeader(buf, TypeBeat, p.Name, p.Number)
	binary.BigEndian.PutUint32(buf[0x24:], p.NextBeat)
	binary.BigEndian.PutUint32(buf[0x28:], p.SecondBeat)
	binary.BigEndian.PutUint32(buf[0x2c:], p.NextBar)
	binary.BigEndian.PutUint32(buf[0x30:], p.FourthBeat)
	binary.BigEndian.PutUint32(buf[0x34:], p.SecondBar)
	binary.BigEndian.PutUint32(buf[0x38:], p.EighthBeat)
	copy(buf[0x3c:0x54], beatFiller)
	binary.BigEndian.PutUint32(buf[0x54:], PitchToWire(p.Pitch))
	binary.BigEndian.PutUint16(buf[0x5a:], BPMToWire(p.BPM))
	buf[0x5c] = p.BeatInBar
	buf[0x5f] = p.Number
	return buf, nil
}

func (p *Beat) unmarshal(buf []byte) {
	p.NextBeat = binary.BigEndian.Uint32(buf[0x24:])
	p.SecondBeat = binary.BigEndian.Uint32(buf[0x28:])
	p.NextBar = binary.BigEndian.Uint32(buf[0x2c:])
	p.FourthBeat = binary.BigEndian.Uint32(buf[0x30:])
	p.SecondBar = binary.BigEndian.Uint32(buf[0x34:])
	p.EighthBeat = binary.BigEndian.Uint32(buf[0x38:])
	p.Pitch = PitchFromWire(binary.BigEndian.Uint32(buf[0x54:]))
	p.BPM = BPMFromWire(binary.BigEndian.Uint16(buf[0x5a:]))
	p.BeatInBar = buf[0x5c]
	p.Number = buf[0x5f]
}
