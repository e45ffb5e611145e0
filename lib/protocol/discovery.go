// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import "net"

// Discovery packet lengths.
const (
	AnnounceLength    = 0x25
	ClaimFirstLength  = 0x2c
	ClaimSecondLength = 0x32
	ClaimFinalLength  = 0x26
	KeepAliveLength   = 0x36
)

// Announce is the first thing a device broadcasts when joining the network.
type Announce struct {
	Name string
	Kind DeviceKind
}

func (*Announce) Type() PacketType { return TypeAnnounce }
func (p *Announce) DeviceName() string { return p.Name }

func (p *Announce) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AnnounceLength)
	putDiscoveryHeader(buf, TypeAnnounce, p.Name)
	buf[0x24] = byte(p.Kind)
	return buf, nil
}

func (p *Announce) unmarshal(buf []byte) {
	p.Kind = DeviceKind(buf[0x24])
}

// ClaimFirst is the first claim stage, identifying the claimant by MAC.
type ClaimFirst struct {
	Name  string
	Kind  DeviceKind
	Count byte // 1..3
	MAC   net.HardwareAddr
}

func (*ClaimFirst) Type() PacketType { return TypeClaimFirst }
func (p *ClaimFirst) DeviceName() string { return p.Name }

func (p *ClaimFirst) MarshalBinary() ([]byte, error) {
	if err := ValidateMAC(p.MAC); err != nil {
		return nil, err
	}
	buf := make([]byte, ClaimFirstLength)
	putDiscoveryHeader(buf, TypeClaimFirst, p.Name)
	buf[0x24] = p.Count
	buf[0x25] = byte(p.Kind)
	copy(buf[0x26:0x2c], p.MAC)
	return buf, nil
}

func (p *ClaimFirst) unmarshal(buf []byte) {
	p.Count = buf[0x24]
	p.Kind = DeviceKind(buf[0x25])
	p.MAC = readMAC(buf, 0x26)
}

// ClaimMode is the assignment mode carried by the second claim stage.
type ClaimMode byte

const (
	ModeAutoAssign    ClaimMode = 0x01
	ModeClaimSpecific ClaimMode = 0x02
)

// ClaimSecond is the second claim stage, naming the wanted device number.
type ClaimSecond struct {
	Name   string
	Kind   DeviceKind
	Count  byte // 1..3
	MAC    net.HardwareAddr
	IP     net.IP
	Number byte
	Mode   ClaimMode
}

func (*ClaimSecond) Type() PacketType { return TypeClaimSecond }
func (p *ClaimSecond) DeviceName() string { return p.Name }

func (p *ClaimSecond) MarshalBinary() ([]byte, error) {
	if err := ValidateIPv4(p.IP); err != nil {
		return nil, err
	}
	if err := ValidateMAC(p.MAC); err != nil {
		return nil, err
	}
	buf := make([]byte, ClaimSecondLength)
	putDiscoveryHeader(buf, TypeClaimSecond, p.Name)
	copy(buf[0x24:0x28], p.IP.To4())
	copy(buf[0x28:0x2e], p.MAC)
	buf[0x2e] = p.Number
	buf[0x2f] = p.Count
	buf[0x30] = byte(p.Kind)
	buf[0x31] = byte(p.Mode)
	return buf, nil
}

func (p *ClaimSecond) unmarshal(buf []byte) {
	p.IP = readIP(buf, 0x24)
	p.MAC = readMAC(buf, 0x28)
	p.Number = buf[0x2e]
	p.Count = buf[0x2f]
	p.Kind = DeviceKind(buf[0x30])
	p.Mode = ClaimMode(buf[0x31])
}

// ClaimFinal completes a claim for Number.
type ClaimFinal struct {
	Name   string
	Number byte
	Count  byte
}

func (*ClaimFinal) Type() PacketType { return TypeClaimFinal }
func (p *ClaimFinal) DeviceName() string { return p.Name }

func (p *ClaimFinal) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ClaimFinalLength)
	putDiscoveryHeader(buf, TypeClaimFinal, p.Name)
	buf[0x24] = p.Number
	buf[0x25] = p.Count
	return buf, nil
}

func (p *ClaimFinal) unmarshal(buf []byte) {
	p.Number = buf[0x24]
	p.Count = buf[0x25]
}

// KeepAlive is broadcast periodically by every device holding a number.
type KeepAlive struct {
	Name   string
	Kind   DeviceKind
	Number byte
	MAC    net.HardwareAddr
	IP     net.IP
}

func (*KeepAlive) Type() PacketType { return TypeKeepAlive }
func (p *KeepAlive) DeviceName() string { return p.Name }

func (p *KeepAlive) MarshalBinary() ([]byte, error) {
	if err := ValidateMAC(p.MAC); err != nil {
		return nil, err
	}
	if err := ValidateIPv4(p.IP); err != nil {
		return nil, err
	}
	buf := make([]byte, KeepAliveLength)
	putDiscoveryHeader(buf, TypeKeepAlive, p.Name)
	buf[0x24] = p.Number
	buf[0x25] = byte(p.Kind)
	copy(buf[0x26:0x2c], p.MAC)
	copy(buf[0x2c:0x30], p.IP.To4())
	buf[0x30] = 0x01
	buf[0x34] = byte(p.Kind)
	return buf, nil
}

func (p *KeepAlive) unmarshal(buf []byte) {
	p.Number = buf[0x24]
	p.Kind = DeviceKind(buf[0x25])
	p.MAC = readMAC(buf, 0x26)
	p.IP = readIP(buf, 0x2c)
}

// readMAC and readIP copy out of buf so decoded packets never alias the
// receive buffer.

func readMAC(buf []byte, offset int) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	copy(mac, buf[offset:offset+6])
	return mac
}

func readIP(buf []byte, offset int) net.IP {
	return net.IPv4(buf[offset], buf[offset+1], buf[offset+2], buf[offset+3]).To4()
}
