// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package claim negotiates a device number for the local participant.
//
// A claim walks the candidate numbers in ascending order. For each it
// broadcasts three announcements, three first stage claims, three second
// stage claims naming the candidate and one final claim, with a fixed delay
// between consecutive packets. When the final claim has been sent the
// candidate is taken.
//
// Without conflict detection the handshake is optimistic: nothing heard on
// the network can stop it. With conflict detection a candidate is abandoned
// when another device sends a keepalive using it, a final claim for it, or
// a second stage claim for it from a lower MAC address.
package claim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/device"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/protocol"
)

var (
	ErrClaimExhausted  = errors.New("no device number available")
	ErrClaimInProgress = errors.New("claim already in progress")
)

const (
	DefaultInterval = 300 * time.Millisecond

	announceCount    = 3
	firstStageCount  = 3
	secondStageCount = 3
)

// DefaultDestination is the limited broadcast address on the discovery
// port.
var DefaultDestination = &net.UDPAddr{IP: net.IPv4bcast, Port: protocol.DiscoveryPort}

type sender interface {
	Send(data []byte, dst *net.UDPAddr) error
}

type Negotiator struct {
	sock     sender
	dst      *net.UDPAddr
	interval time.Duration
	evLogger events.Logger // nil disables conflict detection
	inFlight *xsync.MapOf[string, struct{}]
}

type Option func(*Negotiator)

// WithInterval sets the delay between consecutive broadcasts.
func WithInterval(d time.Duration) Option {
	return func(n *Negotiator) {
		n.interval = d
	}
}

// WithDestination sets where claim packets are sent.
func WithDestination(dst *net.UDPAddr) Option {
	return func(n *Negotiator) {
		n.dst = dst
	}
}

// WithConflictDetection makes the negotiator watch discovery events for
// other devices using or claiming the candidate number.
func WithConflictDetection(evLogger events.Logger) Option {
	return func(n *Negotiator) {
		n.evLogger = evLogger
	}
}

func NewNegotiator(sock sender, opts ...Option) *Negotiator {
	n := &Negotiator{
		sock:     sock,
		dst:      DefaultDestination,
		interval: DefaultInterval,
		inFlight: xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Candidates returns the numbers a claim tries, in order.
func Candidates(blacklist []int) []int {
	var res []int
	for n := protocol.MinDeviceNumber; n <= protocol.MaxDeviceNumber; n++ {
		if !slices.Contains(blacklist, n) {
			res = append(res, n)
		}
	}
	return res
}

// Claim negotiates a device number for claimant, skipping the numbers in
// blacklist. It returns the number obtained, ErrClaimExhausted if every
// candidate was rejected or blacklisted, ErrClaimInProgress if another
// claim for the same device is running, or an error wrapping
// protocol.ErrInvalidAddress if the claimant's address is unusable, in
// which case nothing is sent. The claimant itself is not modified.
func (n *Negotiator) Claim(ctx context.Context, claimant device.Device, blacklist []int) (int, error) {
	if err := protocol.ValidateIPv4(claimant.IP()); err != nil {
		metricClaims.WithLabelValues(metricOutcomeFailed).Inc()
		return 0, err
	}
	mac := claimant.MAC()
	if err := protocol.ValidateMAC(mac); err != nil {
		metricClaims.WithLabelValues(metricOutcomeFailed).Inc()
		return 0, err
	}

	if _, loaded := n.inFlight.LoadOrStore(mac.String(), struct{}{}); loaded {
		return 0, ErrClaimInProgress
	}
	defer n.inFlight.Delete(mac.String())

	c := &claim{
		Negotiator: n,
		claimant:   claimant,
		mac:        mac,
		ip:         claimant.IP().To4(),
	}
	if n.evLogger != nil {
		sub := n.evLogger.Subscribe(events.KeepAliveReceived | events.ClaimSecondReceived | events.ClaimFinalReceived)
		defer sub.Unsubscribe()
		c.sub = sub.C()
	}

	for _, candidate := range Candidates(blacklist) {
		metricCandidates.Inc()
		slog.Debug("Trying device number", "number", candidate, "name", claimant.Name)

		err := c.tryCandidate(ctx, candidate)
		var conflict *conflictError
		switch {
		case err == nil:
			metricClaims.WithLabelValues(metricOutcomeAccepted).Inc()
			slog.Info("Claimed device number", "number", candidate, "name", claimant.Name, slogutil.MAC(mac))
			return candidate, nil
		case errors.As(err, &conflict):
			metricConflicts.Inc()
			slog.Info("Device number taken, trying next", "number", candidate, "reason", conflict.reason, slogutil.Address(conflict.from))
		default:
			metricClaims.WithLabelValues(metricOutcomeFailed).Inc()
			return 0, err
		}
	}

	metricClaims.WithLabelValues(metricOutcomeExhausted).Inc()
	return 0, fmt.Errorf("%w (blacklist %v)", ErrClaimExhausted, blacklist)
}

type conflictError struct {
	number int
	reason string
	from   net.Addr
}

func (e *conflictError) Error() string {
	return fmt.Sprintf("device number %d in use: %s", e.number, e.reason)
}

// claim is the state of one running Claim call.
type claim struct {
	*Negotiator
	claimant device.Device
	mac      net.HardwareAddr
	ip       net.IP
	sub      <-chan events.Event // nil without conflict detection
	sent     int
}

func (c *claim) tryCandidate(ctx context.Context, candidate int) error {
	name := c.claimant.Name
	kind := c.claimant.Kind

	for i := 1; i <= announceCount; i++ {
		if err := c.send(ctx, candidate, &protocol.Announce{Name: name, Kind: kind}); err != nil {
			return err
		}
	}
	for i := 1; i <= firstStageCount; i++ {
		pkt := &protocol.ClaimFirst{Name: name, Kind: kind, Count: byte(i), MAC: c.mac}
		if err := c.send(ctx, candidate, pkt); err != nil {
			return err
		}
	}
	for i := 1; i <= secondStageCount; i++ {
		pkt := &protocol.ClaimSecond{
			Name:   name,
			Kind:   kind,
			Count:  byte(i),
			MAC:    c.mac,
			IP:     c.ip,
			Number: byte(candidate),
			Mode:   protocol.ModeClaimSpecific,
		}
		if err := c.send(ctx, candidate, pkt); err != nil {
			return err
		}
	}
	return c.send(ctx, candidate, &protocol.ClaimFinal{Name: name, Number: byte(candidate), Count: 1})
}

// send waits out the interval since the previous packet, then broadcasts
// pkt.
func (c *claim) send(ctx context.Context, candidate int, pkt protocol.Packet) error {
	if c.sent > 0 {
		if err := c.wait(ctx, candidate); err != nil {
			return err
		}
	}

	bs, err := pkt.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.sock.Send(bs, c.dst); err != nil {
		return fmt.Errorf("sending %s: %w", protocol.Family(pkt), err)
	}
	c.sent++
	slog.Debug("Sent claim packet", "family", protocol.Family(pkt), "number", candidate)
	return nil
}

func (c *claim) wait(ctx context.Context, candidate int) error {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.sub:
			if !ok {
				c.sub = nil
				continue
			}
			if err := c.conflict(ev, candidate); err != nil {
				return err
			}
		}
	}
}

func (c *claim) conflict(ev events.Event, candidate int) error {
	data, ok := ev.Data.(events.PacketData)
	if !ok {
		return nil
	}
	fail := func(reason string) error {
		return &conflictError{number: candidate, reason: reason, from: data.From}
	}

	switch pkt := data.Packet.(type) {
	case *protocol.KeepAlive:
		if int(pkt.Number) == candidate && !bytes.Equal(pkt.MAC, c.mac) {
			return fail("keepalive from " + pkt.MAC.String())
		}
	case *protocol.ClaimSecond:
		if int(pkt.Number) == candidate && bytes.Compare(pkt.MAC, c.mac) < 0 {
			return fail("claimed by " + pkt.MAC.String())
		}
	case *protocol.ClaimFinal:
		// Final claims carry no MAC; our own come back from our address.
		if int(pkt.Number) == candidate && data.From != nil && !c.fromSelf(data.From) {
			return fail("final claim by " + pkt.Name)
		}
	}
	return nil
}

func (c *claim) fromSelf(addr net.Addr) bool {
	udp, ok := addr.(*net.UDPAddr)
	return ok && udp.IP.Equal(c.ip)
}
