// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command prolinkdump prints the DJ-Link packets seen on the discovery,
// beat and status ports.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/build"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/svcutil"
)

type CLI struct {
	Version kong.VersionFlag `help:"Show version and exit"`

	Listen    string `default:"0.0.0.0" placeholder:"IP" help:"Address to bind the sockets to"`
	Interface string `placeholder:"NAME" help:"Only print packets received on this network interface"`
	All       bool   `help:"Print all packets, not only the first of each type from each source"`
	Hex       bool   `help:"Also print a hex dump of every printed packet"`
	Announce  bool   `help:"Broadcast announcements to lure out other devices faster"`
	Name      string `default:"prolinkdump" help:"Device name used in announcements"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Prints DJ-Link packets"),
		kong.Vars{"version": build.LongVersion},
	)

	ip := net.ParseIP(cli.Listen).To4()
	if ip == nil {
		slog.Error("Listen address is not an IPv4 address", "address", cli.Listen)
		os.Exit(svcutil.ExitError.AsInt())
	}
	if ip.Equal(net.IPv4zero) {
		ip = nil
	}

	var ifindex int
	if cli.Interface != "" {
		intf, err := net.InterfaceByName(cli.Interface)
		if err != nil {
			slog.Error("Unknown interface", "interface", cli.Interface, slogutil.Error(err))
			os.Exit(svcutil.ExitError.AsInt())
		}
		ifindex = intf.Index
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sup := suture.New("main", svcutil.SpecWithInfoLogger())
	p := newPrinter(os.Stdout, cli.All, cli.Hex)

	channels := []struct {
		name   string
		port   int
		decode func([]byte) (protocol.Packet, error)
	}{
		{"discovery", protocol.DiscoveryPort, protocol.DecodeDiscovery},
		{"beat", protocol.BeatPort, protocol.DecodeBeat},
		{"status", protocol.StatusPort, protocol.DecodeStatus},
	}
	for _, ch := range channels {
		sock, err := beacon.Listen(ip, ch.port)
		if err != nil {
			slog.Error("Failed to listen", "port", ch.port, slogutil.Error(err))
			os.Exit(svcutil.ExitTransportFailed.AsInt())
		}
		sock.SetInterface(ifindex)
		sup.Add(sock)
		sup.Add(svcutil.AsService(recv(sock, ch.name, ch.decode, p), ch.name))
		if cli.Announce && ch.port == protocol.DiscoveryPort {
			sup.Add(svcutil.AsService(announce(sock, cli.Name), "announce"))
		}
	}

	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Stopped", slogutil.Error(err))
		os.Exit(svcutil.ExitTransportFailed.AsInt())
	}
}

// recv prints every datagram received on sock.
func recv(sock beacon.Interface, channel string, decode func([]byte) (protocol.Packet, error), p *printer) func(context.Context) error {
	return func(ctx context.Context) error {
		for {
			select {
			case d, ok := <-sock.C():
				if !ok {
					return svcutil.NoRestartErr(sock.Error())
				}
				pkt, err := decode(d.Data)
				p.print(channel, d, pkt, err)
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// announce broadcasts an announcement every second.
func announce(sock beacon.Interface, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		bs, err := (&protocol.Announce{Name: name, Kind: protocol.KindPlayer}).MarshalBinary()
		if err != nil {
			return svcutil.NoRestartErr(err)
		}
		dst := &net.UDPAddr{IP: net.IPv4bcast, Port: protocol.DiscoveryPort}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			if err := sock.Send(bs, dst); err != nil {
				return svcutil.NoRestartErr(err)
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

type printer struct {
	w    io.Writer
	all  bool
	dump bool
	mut  sync.Mutex
	seen map[string]bool
}

func newPrinter(w io.Writer, all, dump bool) *printer {
	return &printer{
		w:    w,
		all:  all,
		dump: dump,
		seen: make(map[string]bool),
	}
}

// print writes the packet, unless the same type from the same source was
// already printed and all packets were not asked for.
func (p *printer) print(channel string, d beacon.Datagram, pkt protocol.Packet, err error) {
	p.mut.Lock()
	defer p.mut.Unlock()

	var line string
	var key string
	switch {
	case err != nil:
		key = fmt.Sprintf("%s/%v/error", channel, d.From)
		line = fmt.Sprintf("%s from %v%s: %d bytes: %v", channel, d.From, via(d), len(d.Data), err)
	default:
		key = fmt.Sprintf("%s/%v/%v", channel, d.From, pkt.Type())
		line = fmt.Sprintf("%s %s from %v%s: %+v", channel, protocol.Family(pkt), d.From, via(d), pkt)
	}

	if !p.all && p.seen[key] {
		return
	}
	p.seen[key] = true

	fmt.Fprintln(p.w, line)
	if p.dump {
		fmt.Fprint(p.w, hex.Dump(d.Data))
	}
}

// via describes where a datagram was received, when the socket reported it.
func via(d beacon.Datagram) string {
	var res string
	if d.Dst != nil {
		res += " to " + d.Dst.String()
	}
	if d.IfIndex != 0 {
		name := fmt.Sprintf("if#%d", d.IfIndex)
		if intf, err := net.InterfaceByIndex(d.IfIndex); err == nil {
			name = intf.Name
		}
		res += " on " + name
	}
	return res
}
