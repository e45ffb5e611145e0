// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package beacon provides the UDP sockets the DJ-Link channels are spoken
// over.
package beacon

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/thejerf/suture/v4"
)

var ErrClosed = errors.New("socket closed")

// A Datagram is one received packet. Dst and IfIndex are filled in when
// the platform reports them.
type Datagram struct {
	Data    []byte
	From    net.Addr
	Dst     net.IP
	IfIndex int
}

// Interface is a bound UDP socket. Serve reads datagrams into C until the
// socket is closed or fails; any failure is terminal.
type Interface interface {
	suture.Service
	Send(data []byte, dst *net.UDPAddr) error
	C() <-chan Datagram
	LocalAddr() net.Addr
	Error() error
	Close() error
	// SetInterface restricts C to datagrams received on the interface with
	// the given index. Zero removes the restriction.
	SetInterface(index int)
}

// InterfaceFilter selects datagrams by the interface they arrived on. The
// zero value accepts everything.
type InterfaceFilter struct {
	index atomic.Int64
}

func (f *InterfaceFilter) SetInterface(index int) {
	f.index.Store(int64(index))
}

// Accepts reports whether d arrived on the selected interface. A datagram
// whose interface the platform did not report is accepted.
func (f *InterfaceFilter) Accepts(d Datagram) bool {
	want := f.index.Load()
	return want == 0 || d.IfIndex == 0 || int64(d.IfIndex) == want
}

type errorHolder struct {
	err error
	mut sync.Mutex // uses stdlib sync as I want this to be trivially embeddable, and there is no risk of blocking
}

func (e *errorHolder) setError(err error) {
	e.mut.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mut.Unlock()
}

func (e *errorHolder) Error() error {
	e.mut.Lock()
	err := e.err
	e.mut.Unlock()
	return err
}
