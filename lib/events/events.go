// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package events provides event subscription and polling functionality.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thejerf/suture/v4"
)

type EventType uint64

const (
	Starting EventType = 1 << iota
	StartupComplete
	DeviceConnected
	DeviceDisconnected
	AnnounceReceived
	ClaimFirstReceived
	ClaimSecondReceived
	ClaimFinalReceived
	KeepAliveReceived
	BeatReceived
	StatusReceived
	UnknownPacketReceived
	ClaimCompleted
	ClaimFailed

	AllEvents = (1 << iota) - 1

	// DiscoveryEvents are the packet events published by the discovery
	// listener.
	DiscoveryEvents = AnnounceReceived | ClaimFirstReceived | ClaimSecondReceived | ClaimFinalReceived | KeepAliveReceived
)

var (
	// BufferSize is the number of events a subscription can hold before
	// delivery starts waiting on it.
	BufferSize = 64
	// DeliveryTimeout is how long delivery waits on a full subscription
	// before giving up on that event for that subscriber.
	DeliveryTimeout = 15 * time.Millisecond
)

func (t EventType) String() string {
	switch t {
	case Starting:
		return "Starting"
	case StartupComplete:
		return "StartupComplete"
	case DeviceConnected:
		return "DeviceConnected"
	case DeviceDisconnected:
		return "DeviceDisconnected"
	case AnnounceReceived:
		return "AnnounceReceived"
	case ClaimFirstReceived:
		return "ClaimFirstReceived"
	case ClaimSecondReceived:
		return "ClaimSecondReceived"
	case ClaimFinalReceived:
		return "ClaimFinalReceived"
	case KeepAliveReceived:
		return "KeepAliveReceived"
	case BeatReceived:
		return "BeatReceived"
	case StatusReceived:
		return "StatusReceived"
	case UnknownPacketReceived:
		return "UnknownPacketReceived"
	case ClaimCompleted:
		return "ClaimCompleted"
	case ClaimFailed:
		return "ClaimFailed"
	default:
		return "Unknown"
	}
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(bs []byte) error {
	*t = UnmarshalEventType(string(bs))
	return nil
}

// UnmarshalEventType returns the event type with the given name, or zero.
func UnmarshalEventType(s string) EventType {
	for t := EventType(1); t < AllEvents; t <<= 1 {
		if t.String() == s {
			return t
		}
	}
	return 0
}

// ParseMask parses a comma separated list of event type names into a mask.
// An empty string means all events.
func ParseMask(s string) (EventType, error) {
	if strings.TrimSpace(s) == "" {
		return AllEvents, nil
	}
	var mask EventType
	for _, name := range strings.Split(s, ",") {
		t := UnmarshalEventType(strings.TrimSpace(name))
		if t == 0 {
			return 0, fmt.Errorf("unknown event type %q", name)
		}
		mask |= t
	}
	return mask, nil
}

type Event struct {
	// Per-subscription sequential event ID.
	SubscriptionID int `json:"id"`
	// Global ID of the event across all subscriptions
	GlobalID int       `json:"globalID"`
	Time     time.Time `json:"time"`
	Type     EventType `json:"type"`
	Data     any       `json:"data"`
}

var (
	ErrTimeout = errors.New("timeout")
	ErrClosed  = errors.New("closed")
)

type Logger interface {
	suture.Service
	Log(t EventType, data any)
	Subscribe(mask EventType) Subscription
}

type Subscription interface {
	C() <-chan Event
	Poll(timeout time.Duration) (Event, error)
	Mask() EventType
	Unsubscribe()
}

type logger struct {
	subs                []*subscription
	nextSubscriptionIDs []int
	nextGlobalID        int
	timeout             *time.Timer
	events              chan Event
	funcs               chan func(context.Context)
	toUnsubscribe       chan *subscription
	stop                chan struct{}
}

func NewLogger() Logger {
	l := &logger{
		timeout:       time.NewTimer(time.Second),
		events:        make(chan Event, BufferSize),
		funcs:         make(chan func(context.Context)),
		toUnsubscribe: make(chan *subscription),
		stop:          make(chan struct{}),
	}
	// Make sure the timer is in the stopped state and hasn't fired anything
	// into the channel.
	if !l.timeout.Stop() {
		<-l.timeout.C
	}
	return l
}

func (l *logger) Serve(ctx context.Context) error {
	defer close(l.stop)

loop:
	for {
		select {
		case e := <-l.events:
			// Incoming events get sent
			l.sendEvent(e)
			metricEvents.WithLabelValues(e.Type.String(), metricEventStateCreated).Inc()

		case fn := <-l.funcs:
			// Subscriptions are handled here.
			fn(ctx)

		case s := <-l.toUnsubscribe:
			l.unsubscribe(s)

		case <-ctx.Done():
			break loop
		}
	}

	// Closing the event channels corresponds to what happens when a
	// subscription is unsubscribed; this stops any BufferedSubscription,
	// makes Poll() return ErrClosed, etc.
	for _, s := range l.subs {
		close(s.events)
	}

	return nil
}

// Log publishes an event. It returns without doing anything once the logger
// has stopped.
func (l *logger) Log(t EventType, data any) {
	select {
	case l.events <- Event{Time: time.Now(), Type: t, Data: data}:
	case <-l.stop:
	}
}

func (l *logger) sendEvent(e Event) {
	l.nextGlobalID++
	slog.Debug("Log event", "id", l.nextGlobalID, "type", e.Type)

	e.GlobalID = l.nextGlobalID

	for i, s := range l.subs {
		if s.mask&e.Type == 0 {
			continue
		}
		e.SubscriptionID = l.nextSubscriptionIDs[i]
		l.nextSubscriptionIDs[i]++

		l.timeout.Reset(DeliveryTimeout)
		timedOut := false

		select {
		case s.events <- e:
			metricEvents.WithLabelValues(e.Type.String(), metricEventStateDelivered).Inc()
		case <-l.timeout.C:
			// if s.events is not ready, drop the event
			timedOut = true
			metricEvents.WithLabelValues(e.Type.String(), metricEventStateDropped).Inc()
			slog.Warn("Dropping event for slow subscriber", "type", e.Type, "id", e.GlobalID, "mask", s.mask)
		}

		// If stop returns false it already sent something to the
		// channel. If we didn't already read it above we must do so now
		// or we get a spurious timeout on the next loop.
		if !l.timeout.Stop() && !timedOut {
			<-l.timeout.C
		}
	}
}

// Subscribe returns a subscription for the events in mask. The logger must
// be running.
func (l *logger) Subscribe(mask EventType) Subscription {
	res := make(chan Subscription)
	fn := func(context.Context) {
		slog.Debug("Subscribe", "mask", mask)

		s := &subscription{
			mask:          mask,
			events:        make(chan Event, BufferSize),
			toUnsubscribe: l.toUnsubscribe,
			stop:          l.stop,
			timeout:       time.NewTimer(0),
		}

		// We need to create the timeout timer in the stopped, non-fired state so
		// that Subscription.Poll() can safely reset it and select on the timeout
		// channel. This ensures the timer is stopped and the channel drained.
		if !s.timeout.Stop() {
			<-s.timeout.C
		}

		l.subs = append(l.subs, s)
		l.nextSubscriptionIDs = append(l.nextSubscriptionIDs, 1)
		res <- s
	}

	select {
	case l.funcs <- fn:
		return <-res
	case <-l.stop:
		return closedSubscription(mask)
	}
}

func (l *logger) unsubscribe(s *subscription) {
	slog.Debug("Unsubscribe", "mask", s.mask)
	for i, ss := range l.subs {
		if s == ss {
			last := len(l.subs) - 1

			l.subs[i] = l.subs[last]
			l.subs[last] = nil
			l.subs = l.subs[:last]

			l.nextSubscriptionIDs[i] = l.nextSubscriptionIDs[last]
			l.nextSubscriptionIDs[last] = 0
			l.nextSubscriptionIDs = l.nextSubscriptionIDs[:last]

			close(s.events)
			return
		}
	}
}

func (*logger) String() string {
	return "events.Logger"
}

// A subscription is a channel of events matching its mask. Events arrive
// in the order they were logged.
type subscription struct {
	mask          EventType
	events        chan Event
	toUnsubscribe chan *subscription
	stop          chan struct{}
	timeout       *time.Timer
}

// Poll returns an event from the subscription or an error if the poll times
// out or the event channel is closed. Poll should not be called concurrently
// from multiple goroutines for a single subscription.
func (s *subscription) Poll(timeout time.Duration) (Event, error) {
	s.timeout.Reset(timeout)

	select {
	case e, ok := <-s.events:
		if !ok {
			return e, ErrClosed
		}
		if !s.timeout.Stop() {
			// The timeout must be stopped and possibly drained to be ready
			// for reuse in the next call.
			<-s.timeout.C
		}
		return e, nil
	case <-s.timeout.C:
		return Event{}, ErrTimeout
	}
}

func (s *subscription) C() <-chan Event {
	return s.events
}

func (s *subscription) Mask() EventType {
	return s.mask
}

func (s *subscription) Unsubscribe() {
	select {
	case s.toUnsubscribe <- s:
	case <-s.stop:
	}
}

func closedSubscription(mask EventType) *subscription {
	s := &subscription{
		mask:    mask,
		events:  make(chan Event),
		timeout: time.NewTimer(0),
		stop:    make(chan struct{}),
	}
	if !s.timeout.Stop() {
		<-s.timeout.C
	}
	close(s.events)
	close(s.stop)
	return s
}

// NoopLogger discards events. Subscriptions on it are closed.
var NoopLogger Logger = &noopLogger{}

type noopLogger struct{}

func (*noopLogger) Serve(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (*noopLogger) Log(EventType, any) {}

func (*noopLogger) Subscribe(mask EventType) Subscription {
	return closedSubscription(mask)
}
