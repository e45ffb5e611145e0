// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// Magic starts every packet on every channel.
var Magic = [10]byte{0x51, 0x73, 0x70, 0x74, 0x31, 0x57, 0x6d, 0x4a, 0x4f, 0x4c}

const (
	typeOffset   = 0x0a
	nameLength   = 0x14
	lengthOffset = 0x22
	// HeaderLength is the length of the common part of both dialects,
	// up to and including the length field.
	HeaderLength = 0x24

	// Discovery dialect: magic, type, a reserved zero byte, the name, the
	// structure bytes 01 02 and the total packet length.
	discoveryNameOffset = 0x0c
	discoveryStructure  = 0x20

	// Beat and status dialect: magic, type, the name, 01, a sub type,
	// the device number and the length of the payload after the header.
	channelNameOffset   = 0x0b
	channelStructure    = 0x1f
	channelSubType      = 0x20
	channelNumberOffset = 0x21
)

// The two dialects share the magic, the type tag and the position of the
// length field, but nothing else. Hardware depends on the exact layout per
// channel so they are kept apart.

func putDiscoveryHeader(buf []byte, t PacketType, name string) {
	copy(buf, Magic[:])
	buf[typeOffset] = byte(t)
	buf[typeOffset+1] = 0x00
	putName(buf[discoveryNameOffset:discoveryNameOffset+nameLength], name)
	buf[discoveryStructure] = 0x01
	buf[discoveryStructure+1] = 0x02
	binary.BigEndian.PutUint16(buf[lengthOffset:], uint16(len(buf)))
}

func putChannelHeader(buf []byte, t PacketType, name string, number byte) {
	copy(buf, Magic[:])
	buf[typeOffset] = byte(t)
	putName(buf[channelNameOffset:channelNameOffset+nameLength], name)
	buf[channelStructure] = 0x01
	buf[channelSubType] = 0x00
	buf[channelNumberOffset] = number
	binary.BigEndian.PutUint16(buf[lengthOffset:], uint16(len(buf)-HeaderLength))
}

type discoveryHeader struct {
	typ      PacketType
	name     string
	declared int // total length according to the packet
}

func readDiscoveryHeader(buf []byte) (discoveryHeader, error) {
	if err := checkMagic(buf); err != nil {
		return discoveryHeader{}, err
	}
	h := discoveryHeader{
		typ:  PacketType(buf[typeOffset]),
		name: readName(buf, discoveryNameOffset),
	}
	if len(buf) >= HeaderLength {
		h.declared = int(binary.BigEndian.Uint16(buf[lengthOffset:]))
	}
	return h, nil
}

type channelHeader struct {
	typ      PacketType
	name     string
	number   byte
	declared int // payload length according to the packet
}

func readChannelHeader(buf []byte) (channelHeader, error) {
	if err := checkMagic(buf); err != nil {
		return channelHeader{}, err
	}
	h := channelHeader{
		typ:  PacketType(buf[typeOffset]),
		name: readName(buf, channelNameOffset),
	}
	if len(buf) > channelNumberOffset {
		h.number = buf[channelNumberOffset]
	}
	if len(buf) >= HeaderLength {
		h.declared = int(binary.BigEndian.Uint16(buf[lengthOffset:]))
	}
	return h, nil
}

func checkMagic(buf []byte) error {
	if len(buf) <= typeOffset {
		return shortPacket("header", len(buf), typeOffset+1)
	}
	if !bytes.Equal(buf[:len(Magic)], Magic[:]) {
		return ErrBadMagic
	}
	return nil
}

// putName writes the name into the fixed size field, truncated on a rune
// boundary. The remainder of the field is left zeroed.
func putName(field []byte, name string) {
	for len(name) > len(field) {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	copy(field, name)
}

// readName returns the name field starting at offset, up to the first null
// byte. A truncated buffer yields whatever part of the name is present.
func readName(buf []byte, offset int) string {
	if offset >= len(buf) {
		return ""
	}
	field := buf[offset:min(offset+nameLength, len(buf))]
	if i := bytes.IndexByte(field, 0x00); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
