// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beatlink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/beatlink/beatlink/lib/events"
)

// The verbose logging service subscribes to events and prints these in
// verbose format to the console using INFO level.
type verboseService struct {
	evLogger events.Logger
}

func newVerboseService(evLogger events.Logger) *verboseService {
	return &verboseService{
		evLogger: evLogger,
	}
}

// serve runs the verbose logging service.
func (s *verboseService) Serve(ctx context.Context) error {
	sub := s.evLogger.Subscribe(events.AllEvents)
	defer sub.Unsubscribe()
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			formatted := s.formatEvent(ev)
			if formatted != "" {
				slog.Info(formatted)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *verboseService) formatEvent(ev events.Event) string {
	switch ev.Type {
	case events.AnnounceReceived, events.ClaimFirstReceived, events.ClaimSecondReceived,
		events.ClaimFinalReceived, events.KeepAliveReceived, events.StatusReceived:
		// Skip, several per second per device
		return ""

	case events.Starting:
		data := ev.Data.(map[string]string)
		return fmt.Sprintf("Starting up as %q (listening on %s)", data["name"], data["listen"])

	case events.StartupComplete:
		return "Startup complete"

	case events.DeviceConnected:
		data := ev.Data.(events.DeviceData)
		return fmt.Sprintf("Device connected: %v", &data.Device)

	case events.DeviceDisconnected:
		data := ev.Data.(events.DeviceData)
		return fmt.Sprintf("Device disconnected: %v", &data.Device)

	case events.BeatReceived:
		data := ev.Data.(events.BeatData)
		return fmt.Sprintf("Beat from %q (#%d): %.2f BPM (%.1f ms), beat %d of bar", data.Beat.Name, data.Beat.Number, data.RealBPM, data.BeatPeriodMillis, data.Beat.BeatInBar)

	case events.UnknownPacketReceived:
		data := ev.Data.(events.UnknownPacketData)
		if data.Err != nil {
			return fmt.Sprintf("Undecodable packet on %s channel from %v: %v", data.Channel, data.From, data.Err)
		}
		return fmt.Sprintf("Unknown packet type %v on %s channel from %v", data.Packet.PacketType, data.Channel, data.From)

	case events.ClaimCompleted:
		data := ev.Data.(events.ClaimData)
		return fmt.Sprintf("Claimed device number %d", data.Number)

	case events.ClaimFailed:
		data := ev.Data.(events.ClaimData)
		return fmt.Sprintf("Failed to claim a device number (blacklist %v): %v", data.Blacklist, data.Err)
	}

	return fmt.Sprintf("%s %#v", ev.Type, ev)
}

func (s *verboseService) String() string {
	return fmt.Sprintf("verboseService@%p", s)
}
