// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

// DecodeDiscovery decodes a datagram received on the discovery channel.
// Unrecognized type tags yield an *Unknown and no error.
func DecodeDiscovery(buf []byte) (Packet, error) {
	hdr, err := readDiscoveryHeader(buf)
	if err != nil {
		return nil, err
	}

	var (
		pkt interface {
			Packet
			unmarshal([]byte)
		}
		want int
	)
	switch hdr.typ {
	case TypeAnnounce:
		pkt, want = &Announce{Name: hdr.name}, AnnounceLength
	case TypeClaimFirst:
		pkt, want = &ClaimFirst{Name: hdr.name}, ClaimFirstLength
	case TypeClaimSecond:
		pkt, want = &ClaimSecond{Name: hdr.name}, ClaimSecondLength
	case TypeClaimFinal:
		pkt, want = &ClaimFinal{Name: hdr.name}, ClaimFinalLength
	case TypeKeepAlive:
		pkt, want = &KeepAlive{Name: hdr.name}, KeepAliveLength
	default:
		return unknown(hdr.typ, hdr.name, 0, buf), nil
	}

	if len(buf) < want {
		return nil, shortPacket(Family(pkt), len(buf), want)
	}
	if hdr.declared < want {
		return nil, shortPacket(Family(pkt)+" (declared)", hdr.declared, want)
	}
	pkt.unmarshal(buf)
	return pkt, nil
}

// DecodeBeat decodes a datagram received on the beat channel.
func DecodeBeat(buf []byte) (Packet, error) {
	hdr, err := readChannelHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.typ != TypeBeat {
		return unknown(hdr.typ, hdr.name, hdr.number, buf), nil
	}
	if err := checkChannelLength("beat", buf, hdr, BeatLength); err != nil {
		return nil, err
	}
	p := &Beat{Name: hdr.name}
	p.unmarshal(buf)
	return p, nil
}

// DecodeStatus decodes a datagram received on the status channel.
func DecodeStatus(buf []byte) (Packet, error) {
	hdr, err := readChannelHeader(buf)
	if err != nil {
		return nil, err
	}
	switch hdr.typ {
	case TypeMixerStatus:
		if err := checkChannelLength("mixer_status", buf, hdr, MixerStatusLength); err != nil {
			return nil, err
		}
		p := &MixerStatus{Name: hdr.name}
		p.unmarshal(buf)
		return p, nil

	case TypePlayerStatus:
		if err := checkChannelLength("player_status", buf, hdr, HeaderLength); err != nil {
			return nil, err
		}
		if end := HeaderLength + hdr.declared; len(buf) < end {
			return nil, shortPacket("player_status", len(buf), end)
		}
		return &PlayerStatus{
			Name:    hdr.name,
			Number:  hdr.number,
			Payload: append([]byte(nil), buf[HeaderLength:HeaderLength+hdr.declared]...),
		}, nil

	default:
		return unknown(hdr.typ, hdr.name, hdr.number, buf), nil
	}
}

func checkChannelLength(family string, buf []byte, hdr channelHeader, want int) error {
	if len(buf) < want {
		return shortPacket(family, len(buf), want)
	}
	if HeaderLength+hdr.declared < want {
		return shortPacket(family+" (declared)", HeaderLength+hdr.declared, want)
	}
	return nil
}

func unknown(t PacketType, name string, number byte, buf []byte) *Unknown {
	return &Unknown{
		PacketType: t,
		Name:       name,
		Number:     number,
		Raw:        append([]byte(nil), buf...),
	}
}
