// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package discover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/svcutil"
)

// ChannelName identifies the discovery channel in events.
const ChannelName = "discovery"

// Listener turns datagrams on the discovery channel into events. Exactly
// one event is published per datagram.
type Listener struct {
	sock     beacon.Interface
	evLogger events.Logger
	// Unknown and malformed packets are always published, but only
	// logged at this rate.
	logLimiter *rate.Limiter
}

func NewListener(sock beacon.Interface, evLogger events.Logger) *Listener {
	return &Listener{
		sock:       sock,
		evLogger:   evLogger,
		logLimiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

// Serve runs until ctx is cancelled or the socket fails. A failed socket
// is not recovered from.
func (l *Listener) Serve(ctx context.Context) error {
	slog.Debug("Discovery listener starting", slogutil.Address(l.sock.LocalAddr()))
	defer slog.Debug("Discovery listener stopping")

	for {
		select {
		case d, ok := <-l.sock.C():
			if !ok {
				return svcutil.NoRestartErr(l.sock.Error())
			}
			l.handle(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Listener) handle(d beacon.Datagram) {
	pkt, err := protocol.DecodeDiscovery(d.Data)
	if err != nil {
		metricDecodeFailures.Inc()
		if l.logLimiter.Allow() {
			slog.Info("Malformed packet on discovery channel", slogutil.Address(d.From), slogutil.Error(err))
		}
		l.evLogger.Log(events.UnknownPacketReceived, events.UnknownPacketData{
			Channel: ChannelName,
			From:    d.From,
			Raw:     d.Data,
			Err:     err,
		})
		return
	}

	family := protocol.Family(pkt)
	metricPacketsReceived.WithLabelValues(family).Inc()
	slog.Debug("Received packet", "family", family, "name", pkt.DeviceName(), slogutil.Address(d.From), slogutil.HexDump(d.Data))

	if u, ok := pkt.(*protocol.Unknown); ok {
		if l.logLimiter.Allow() {
			slog.Info("Unknown packet type on discovery channel", "type", u.Type(), "name", u.Name, slogutil.Address(d.From))
		}
		l.evLogger.Log(events.UnknownPacketReceived, events.UnknownPacketData{
			Channel: ChannelName,
			From:    d.From,
			Packet:  u,
			Raw:     u.Raw,
		})
		return
	}

	l.evLogger.Log(EventType(pkt), events.PacketData{Packet: pkt, From: d.From})
}

// EventType returns the event published for a decoded discovery packet.
func EventType(pkt protocol.Packet) events.EventType {
	switch pkt.(type) {
	case *protocol.Announce:
		return events.AnnounceReceived
	case *protocol.ClaimFirst:
		return events.ClaimFirstReceived
	case *protocol.ClaimSecond:
		return events.ClaimSecondReceived
	case *protocol.ClaimFinal:
		return events.ClaimFinalReceived
	case *protocol.KeepAlive:
		return events.KeepAliveReceived
	default:
		return events.UnknownPacketReceived
	}
}

func (l *Listener) String() string {
	return fmt.Sprintf("discover.Listener@%v", l.sock.LocalAddr())
}
