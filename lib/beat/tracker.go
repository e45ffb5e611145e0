// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package beat tracks the beat channel, publishing every beat with the
// effective tempo of the track playing.
package beat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
	"github.com/beatlink/beatlink/lib/svcutil"
	"github.com/beatlink/beatlink/lib/tempo"
)

const ChannelName = "beat"

type Tracker struct {
	sock       beacon.Interface
	evLogger   events.Logger
	latest     *xsync.MapOf[byte, events.BeatData]
	logLimiter *rate.Limiter
}

func NewTracker(sock beacon.Interface, evLogger events.Logger) *Tracker {
	return &Tracker{
		sock:       sock,
		evLogger:   evLogger,
		latest:     xsync.NewMapOf[byte, events.BeatData](),
		logLimiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

func (t *Tracker) Serve(ctx context.Context) error {
	slog.Debug("Beat tracker starting", slogutil.Address(t.sock.LocalAddr()))
	defer slog.Debug("Beat tracker stopping")

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
	pkt, err := protocol.DecodeBeat(d.Data)
	if err != nil {
		t.unknown(d, nil, err)
		return
	}

	b, ok := pkt.(*protocol.Beat)
	if !ok {
		u, _ := pkt.(*protocol.Unknown)
		t.unknown(d, u, nil)
		return
	}

	data := events.BeatData{
		Beat:    b,
		RealBPM: tempo.RealBPM(b.BPM, b.Pitch),
		From:    d.From,
	}
	data.BeatPeriodMillis = tempo.BeatPeriodMillis(data.RealBPM)
	t.latest.Store(b.Number, data)

	dev := strconv.Itoa(int(b.Number))
	metricBeats.WithLabelValues(dev).Inc()
	metricTempo.WithLabelValues(dev).Set(data.RealBPM)
	slog.Debug("Beat", "device", b.Number, "beat", b.BeatInBar, "bpm", b.BPM, "pitch", b.Pitch, "realBPM", data.RealBPM)

	t.evLogger.Log(events.BeatReceived, data)
}

func (t *Tracker) unknown(d beacon.Datagram, u *protocol.Unknown, err error) {
	metricUnknown.Inc()
	if t.logLimiter.Allow() {
		slog.Info("Unexpected packet on beat channel", slogutil.Address(d.From), slogutil.Error(err), slogutil.HexDump(d.Data))
	}
	t.evLogger.Log(events.UnknownPacketReceived, events.UnknownPacketData{
		Channel: ChannelName,
		From:    d.From,
		Packet:  u,
		Raw:     d.Data,
		Err:     err,
	})
}

// Latest returns the last beat received from the given device number.
func (t *Tracker) Latest(number int) (events.BeatData, bool) {
	if number < 0 || number > 0xff {
		return events.BeatData{}, false
	}
	return t.latest.Load(byte(number))
}

func (t *Tracker) String() string {
	return fmt.Sprintf("beat.Tracker@%v", t.sock.LocalAddr())
}
