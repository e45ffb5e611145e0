// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package testutil contains fakes shared by the package tests.
package testutil

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/svcutil"
)

// Sent is a datagram written to a FakeSocket.
type Sent struct {
	Data []byte
	Dst  *net.UDPAddr
	At   time.Time
}

// FakeSocket is an in-memory beacon.Interface. Datagrams passed to Inject
// appear on C unless filtered by SetInterface; datagrams passed to Send are
// recorded.
type FakeSocket struct {
	beacon.InterfaceFilter
	Addr *net.UDPAddr

	mut     sync.Mutex
	sent    []Sent
	sendErr error
	err     error
	in      chan beacon.Datagram
	out     chan beacon.Datagram
	closed  chan struct{}
	once    sync.Once
	onSend  func([]byte)
}

var _ beacon.Interface = (*FakeSocket)(nil)

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{
		Addr:   &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 50000},
		in:     make(chan beacon.Datagram),
		out:    make(chan beacon.Datagram),
		closed: make(chan struct{}),
	}
}

func (s *FakeSocket) Serve(ctx context.Context) error {
	defer close(s.out)
	for {
		select {
		case d := <-s.in:
			if !s.Accepts(d) {
				continue
			}
			select {
			case s.out <- d:
			case <-ctx.Done():
				return nil
			}
		case <-s.closed:
			return svcutil.NoRestartErr(s.Error())
		case <-ctx.Done():
			return nil
		}
	}
}

// Inject delivers a datagram as if it had been received from from.
func (s *FakeSocket) Inject(data []byte, from net.Addr) {
	s.in <- beacon.Datagram{Data: data, From: from}
}

// InjectDatagram delivers d as received.
func (s *FakeSocket) InjectDatagram(d beacon.Datagram) {
	s.in <- d
}

// Fail makes the socket fail with err, as a transport error would.
func (s *FakeSocket) Fail(err error) {
	s.mut.Lock()
	s.err = err
	s.mut.Unlock()
	s.Close()
}

// FailSends makes every following Send return err.
func (s *FakeSocket) FailSends(err error) {
	s.mut.Lock()
	s.sendErr = err
	s.mut.Unlock()
}

// OnSend registers a function called with every datagram sent.
func (s *FakeSocket) OnSend(fn func([]byte)) {
	s.mut.Lock()
	s.onSend = fn
	s.mut.Unlock()
}

func (s *FakeSocket) Send(data []byte, dst *net.UDPAddr) error {
	s.mut.Lock()
	if s.sendErr != nil {
		err := s.sendErr
		s.mut.Unlock()
		return err
	}
	s.sent = append(s.sent, Sent{Data: append([]byte(nil), data...), Dst: dst, At: time.Now()})
	fn := s.onSend
	s.mut.Unlock()
	if fn != nil {
		fn(data)
	}
	return nil
}

// Sent returns a copy of everything sent so far.
func (s *FakeSocket) Sent() []Sent {
	s.mut.Lock()
	defer s.mut.Unlock()
	return append([]Sent(nil), s.sent...)
}

func (s *FakeSocket) C() <-chan beacon.Datagram {
	return s.out
}

func (s *FakeSocket) LocalAddr() net.Addr {
	return s.Addr
}

func (s *FakeSocket) Error() error {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.err
}

func (s *FakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// RunLogger starts an event logger that is stopped when the test ends.
func RunLogger(t testing.TB) events.Logger {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := events.NewLogger()
	done := make(chan struct{})
	go func() {
		l.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

// RunService starts svc and stops it when the test ends. The returned
// channel receives Serve's return value.
func RunService(t testing.TB, svc interface{ Serve(context.Context) error }) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() { res <- svc.Serve(ctx) }()
	t.Cleanup(cancel)
	return res
}

// NextEvent returns the next event on sub, failing the test if none
// arrives within a few seconds.
func NextEvent(t testing.TB, sub events.Subscription) events.Event {
	t.Helper()
	ev, err := sub.Poll(5 * time.Second)
	if err != nil {
		t.Fatal("waiting for event:", err)
	}
	return ev
}

// NoEvent fails the test if an event arrives on sub within d.
func NoEvent(t testing.TB, sub events.Subscription, d time.Duration) {
	t.Helper()
	if ev, err := sub.Poll(d); err == nil {
		t.Fatalf("unexpected event %v: %+v", ev.Type, ev.Data)
	}
}

func FatalErr(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
