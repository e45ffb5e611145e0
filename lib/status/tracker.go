// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package status tracks the status channel, keeping the most recent status
// of every device and following the tempo master.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/svcutil"
)

const (
	ChannelName = "status"

	// Enough for every player and mixer number seen in practice.
	DefaultCacheSize = 64
)

type Tracker struct {
	sock       beacon.Interface
	evLogger   events.Logger
	latest     *lru.Cache[byte, events.PacketData]
	logLimiter *rate.Limiter

	mut    sync.Mutex
	master byte // zero when unknown
}

func NewTracker(sock beacon.Interface, evLogger events.Logger, cacheSize int) (*Tracker, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[byte, events.PacketData](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("status cache: %w", err)
	}
	return &Tracker{
		sock:       sock,
		evLogger:   evLogger,
		latest:     cache,
		logLimiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}, nil
}

func (t *Tracker) Serve(ctx context.Context) error {
	slog.Debug("Status tracker starting", slogutil.Address(t.sock.LocalAddr()))
	defer slog.Debug("Status tracker stopping")

	for {
		select {
		case d, ok := <-t.sock.C():
			if !ok {
				return svcutil.NoRestartErr(t.sock.Error())
			}
			t.handle(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *Tracker) handle(d beacon.Datagram) {
	pkt, err := protocol.DecodeStatus(d.Data)
	if err != nil {
		t.unknown(d, nil, err)
		return
	}

	var number byte
	switch p := pkt.(type) {
	case *protocol.MixerStatus:
		number = p.Number
		t.trackMaster(p)
	case *protocol.PlayerStatus:
		number = p.Number
	default:
		u, _ := pkt.(*protocol.Unknown)
		t.unknown(d, u, nil)
		return
	}

	family := protocol.Family(pkt)
	metricStatus.WithLabelValues(family).Inc()
	slog.Debug("Status", "family", family, "device", number, "name", pkt.DeviceName())

	data := events.PacketData{Packet: pkt, From: d.From}
	t.latest.Add(number, data)
	t.evLogger.Log(events.StatusReceived, data)
}

func (t *Tracker) trackMaster(p *protocol.MixerStatus) {
	t.mut.Lock()
	defer t.mut.Unlock()

	switch {
	case p.TempoMaster && t.master != p.Number:
		slog.Info("New tempo master", "device", p.Number, "name", p.Name, "bpm", p.BPM)
		t.master = p.Number
	case !p.TempoMaster && t.master == p.Number:
		t.master = 0
	default:
		return
	}
	metricTempoMaster.Set(float64(t.master))
}

func (t *Tracker) unknown(d beacon.Datagram, u *protocol.Unknown, err error) {
	metricStatus.WithLabelValues("unknown").Inc()
	if t.logLimiter.Allow() {
		slog.Info("Unexpected packet on status channel", slogutil.Address(d.From), slogutil.Error(err), slogutil.HexDump(d.Data))
	}
	t.evLogger.Log(events.UnknownPacketReceived, events.UnknownPacketData{
		Channel: ChannelName,
		From:    d.From,
		Packet:  u,
		Raw:     d.Data,
		Err:     err,
	})
}

// Latest returns the most recent status received from the given device
// number.
func (t *Tracker) Latest(number int) (events.PacketData, bool) {
	if number < 0 || number > 0xff {
		return events.PacketData{}, false
	}
	return t.latest.Get(byte(number))
}

// TempoMaster returns the device number of the tempo master, if known.
func (t *Tracker) TempoMaster() (int, bool) {
	t.mut.Lock()
	defer t.mut.Unlock()
	return int(t.master), t.master != 0
}

func (t *Tracker) String() string {
	return fmt.Sprintf("status.Tracker@%v", t.sock.LocalAddr())
}
