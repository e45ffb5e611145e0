// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/protocol"
)

func datagram(t *testing.T, pkt protocol.Packet, from string) beacon.Datagram {
	t.Helper()
	bs, err := pkt.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	addr, err := net.ResolveUDPAddr("udp4", from)
	if err != nil {
		t.Fatal(err)
	}
	return beacon.Datagram{Data: bs, From: addr}
}

func printAll(p *printer, channel string, ds ...beacon.Datagram) {
	for _, d := range ds {
		pkt, err := protocol.DecodeDiscovery(d.Data)
		p.print(channel, d, pkt, err)
	}
}

func TestPrinterFirstOnly(t *testing.T) {
	buf := new(bytes.Buffer)
	p := newPrinter(buf, false, false)

	ann := &protocol.Announce{Name: "CDJ-2000", Kind: protocol.KindPlayer}
	printAll(p, "discovery",
		datagram(t, ann, "10.0.0.2:50000"),
		datagram(t, ann, "10.0.0.2:50000"),
		datagram(t, ann, "10.0.0.3:50000"),
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf)
	}
	if !strings.HasPrefix(lines[0], "discovery announce from 10.0.0.2:50000: ") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.Contains(lines[0], "CDJ-2000") {
		t.Errorf("name missing from %q", lines[0])
	}
}

func TestPrinterAllWithHex(t *testing.T) {
	buf := new(bytes.Buffer)
	p := newPrinter(buf, true, true)

	ann := &protocol.Announce{Name: "CDJ-2000", Kind: protocol.KindPlayer}
	d := datagram(t, ann, "10.0.0.2:50000")
	printAll(p, "discovery", d, d)

	if n := strings.Count(buf.String(), "discovery announce from"); n != 2 {
		t.Errorf("printed %d times, want 2", n)
	}
	if !strings.Contains(buf.String(), "51 73 70 74 31 57 6d 4a  4f 4c") {
		t.Errorf("hex dump missing:\n%s", buf)
	}
}

func TestPrinterDecodeError(t *testing.T) {
	buf := new(bytes.Buffer)
	p := newPrinter(buf, false, false)

	d := beacon.Datagram{Data: []byte{0x51, 0x73}, From: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 50000}}
	printAll(p, "discovery", d)

	out := buf.String()
	if !strings.Contains(out, "discovery from 10.0.0.2:50000: 2 bytes:") || !strings.Contains(out, protocol.ErrShortPacket.Error()) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPrinterShowsReceivingInterface(t *testing.T) {
	buf := new(bytes.Buffer)
	p := newPrinter(buf, false, false)

	d := datagram(t, &protocol.Announce{Name: "CDJ-2000"}, "10.0.0.2:50000")
	d.Dst = net.IPv4bcast
	d.IfIndex = 1 << 20
	printAll(p, "discovery", d)

	want := "discovery announce from 10.0.0.2:50000 to 255.255.255.255 on if#1048576: "
	if !strings.HasPrefix(buf.String(), want) {
		t.Errorf("got %q, want prefix %q", buf, want)
	}
}
