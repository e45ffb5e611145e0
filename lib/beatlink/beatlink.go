// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package beatlink wires the sockets, listeners, trackers and the virtual
// device into one supervised application.
package beatlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beacon"
	"github.com/beatlink/beatlink/lib/beat"
	"github.com/beatlink/beatlink/lib/claim"
	"github.com/beatlink/beatlink/lib/config"
	"github.com/beatlink/beatlink/lib/discover"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/netutil"
	"github.com/beatlink/beatlink/lib/registry"
	"github.com/beatlink/beatlink/lib/status"
	"github.com/beatlink/beatlink/lib/svcutil"
	"github.com/beatlink/beatlink/lib/virtual"
)

type Options struct {
	// Claim a device number and announce a virtual device.
	Participate bool
	// How long to listen for other devices before claiming. Zero means the
	// configured device timeout.
	ClaimDelay  time.Duration
	AuditWriter io.Writer
	Verbose     bool
	// Opens the socket for a port; beacon.Listen if nil.
	Listen func(ip net.IP, port int) (beacon.Interface, error)
}

// App is a running DJ-Link participant. The event logger passed to New is
// served by the App and must not be served elsewhere.
type App struct {
	cfg      config.Configuration
	evLogger events.Logger
	opts     Options

	mainService       *suture.Supervisor
	mainServiceCancel context.CancelFunc
	exitStatus        svcutil.ExitStatus
	err               error
	stopOnce          sync.Once
	stopped           chan struct{}

	sockets    []beacon.Interface
	registry   *registry.Registry
	beats      *beat.Tracker
	status     *status.Tracker
	virtual    *virtual.Device
	negotiator *claim.Negotiator
}

func New(cfg config.Configuration, evLogger events.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Listen == nil {
		opts.Listen = func(ip net.IP, port int) (beacon.Interface, error) {
			return beacon.Listen(ip, port)
		}
	}
	if opts.ClaimDelay <= 0 {
		opts.ClaimDelay = cfg.Options.DeviceTimeout()
	}

	a := &App{
		cfg:      cfg,
		evLogger: evLogger,
		opts:     opts,
		stopped:  make(chan struct{}),
	}
	close(a.stopped) // Hasn't been started, so shouldn't block on Wait.
	return a, nil
}

// Start opens the sockets and starts every service. It returns once they
// are all running; claiming a number continues in the background. Must be
// called once only.
func (a *App) Start() error {
	a.mainService = suture.New("main", svcutil.SpecWithDebugLogger())

	a.stopped = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	a.mainServiceCancel = cancel
	errChan := a.mainService.ServeBackground(ctx)
	go a.wait(errChan)

	if err := a.startup(); err != nil {
		a.stopWithErr(svcutil.ExitError, err)
		return err
	}
	return nil
}

func (a *App) startup() error {
	a.mainService.Add(a.evLogger)

	if a.opts.AuditWriter != nil {
		a.mainService.Add(newAuditService(a.opts.AuditWriter, a.evLogger))
	}
	if a.opts.Verbose {
		a.mainService.Add(newVerboseService(a.evLogger))
	}

	a.evLogger.Log(events.Starting, map[string]string{
		"name":   a.cfg.Device.Name,
		"listen": a.cfg.Network.ListenAddress,
	})

	listenIP := a.cfg.Network.ParsedListenAddress()
	var socks [3]beacon.Interface
	for i, port := range []int{a.cfg.Network.DiscoveryPort, a.cfg.Network.BeatPort, a.cfg.Network.StatusPort} {
		sock, err := a.opts.Listen(listenIP, port)
		if err != nil {
			return fmt.Errorf("listening on port %d: %w", port, err)
		}
		a.sockets = append(a.sockets, sock)
		a.mainService.Add(sock)
		socks[i] = sock
	}
	discoverySock, beatSock, statusSock := socks[0], socks[1], socks[2]

	a.mainService.Add(discover.NewListener(discoverySock, a.evLogger))

	a.registry = registry.New(a.evLogger, a.cfg.Options.DeviceTimeout(), a.cfg.Options.SweepInterval())
	a.mainService.Add(a.registry)

	a.beats = beat.NewTracker(beatSock, a.evLogger)
	a.mainService.Add(a.beats)

	st, err := status.NewTracker(statusSock, a.evLogger, a.cfg.Options.StatusCacheSize)
	if err != nil {
		return err
	}
	a.status = st
	a.mainService.Add(a.status)

	if a.opts.Participate {
		if err := a.setupVirtual(discoverySock); err != nil {
			return err
		}
	}

	a.evLogger.Log(events.StartupComplete, map[string]string{
		"name": a.cfg.Device.Name,
	})
	return nil
}

func (a *App) setupVirtual(sock beacon.Interface) error {
	id, err := resolveIdentity(a.cfg)
	if err != nil {
		return err
	}
	kind, err := a.cfg.Device.Kind.DeviceKind()
	if err != nil {
		return err
	}
	dst := &net.UDPAddr{IP: id.broadcast, Port: a.cfg.Network.DiscoveryPort}
	if id.ifindex != 0 {
		// Only the network we participate in counts.
		for _, s := range a.sockets {
			s.SetInterface(id.ifindex)
		}
	}

	a.virtual, err = virtual.New(virtual.Options{
		Name:              a.cfg.Device.Name,
		Kind:              kind,
		MAC:               id.mac,
		IP:                id.ip,
		KeepaliveInterval: a.cfg.Options.KeepaliveInterval(),
		Destination:       dst,
	}, sock, a.evLogger)
	if err != nil {
		return err
	}

	claimOpts := []claim.Option{
		claim.WithInterval(a.cfg.Options.ClaimInterval()),
		claim.WithDestination(dst),
	}
	if a.cfg.Options.ConflictDetection {
		claimOpts = append(claimOpts, claim.WithConflictDetection(a.evLogger))
	}
	a.negotiator = claim.NewNegotiator(sock, claimOpts...)

	slog.Info("Participating as virtual device", "name", a.cfg.Device.Name, slogutil.MAC(id.mac), "ip", id.ip, "broadcast", dst, "ifindex", id.ifindex)

	a.mainService.Add(a.virtual)
	a.mainService.Add(svcutil.AsService(a.claimNumber, a.String()))
	return nil
}

// claimNumber waits for the network to settle, claims a number and powers
// the virtual device up. Failing to claim stops the App.
func (a *App) claimNumber(ctx context.Context) error {
	select {
	case <-time.After(a.opts.ClaimDelay):
	case <-ctx.Done():
		return nil
	}

	blacklist := a.blacklist()
	number, err := a.virtual.Negotiate(ctx, a.negotiator, blacklist)
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, claim.ErrClaimExhausted) {
		return svcutil.AsFatalErr(err, svcutil.ExitClaimExhausted)
	} else if err != nil {
		return svcutil.AsFatalErr(err, svcutil.ExitTransportFailed)
	}

	a.virtual.PowerUp()
	slog.Debug("Virtual device active", "number", number)
	return svcutil.NoRestartErr(nil)
}

// blacklist is the configured blacklist plus every number currently used
// by another device.
func (a *App) blacklist() []int {
	var self net.HardwareAddr
	if a.virtual != nil {
		snap := a.virtual.Snapshot()
		self = snap.MAC()
	}
	res := append(slices.Clone(a.cfg.Device.Blacklist), a.registry.NumbersInUse(self)...)
	slices.Sort(res)
	return slices.Compact(res)
}

func (a *App) wait(errChan <-chan error) {
	err := <-errChan
	a.handleMainServiceError(err)

	if a.virtual != nil {
		a.virtual.PowerDown()
	}
	for _, sock := range a.sockets {
		sock.Close()
	}

	slog.Info("Exiting")

	close(a.stopped)
}

func (a *App) handleMainServiceError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	var fatalErr *svcutil.FatalErr
	if errors.As(err, &fatalErr) {
		a.exitStatus = fatalErr.Status
		a.err = fatalErr.Err
		return
	}
	a.err = err
	a.exitStatus = svcutil.ExitError
}

// Wait blocks until the app stops running. Also returns if the app hasn't been
// started yet.
func (a *App) Wait() svcutil.ExitStatus {
	<-a.stopped
	return a.exitStatus
}

// Error returns an error if one occurred while running the app. It does not wait
// for the app to stop before returning.
func (a *App) Error() error {
	select {
	case <-a.stopped:
		return a.err
	default:
	}
	return nil
}

// Stop powers the virtual device down, stops every service and closes the
// sockets, and sets the exit status to the given reason unless the app was
// already stopped before. In any case it returns the effective exit status.
func (a *App) Stop(stopReason svcutil.ExitStatus) svcutil.ExitStatus {
	return a.stopWithErr(stopReason, nil)
}

func (a *App) stopWithErr(stopReason svcutil.ExitStatus, err error) svcutil.ExitStatus {
	a.stopOnce.Do(func() {
		a.exitStatus = stopReason
		a.err = err
		if a.virtual != nil {
			a.virtual.PowerDown()
		}
		a.mainServiceCancel()
	})
	<-a.stopped
	return a.exitStatus
}

// Registry returns the device registry. Valid after Start.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) Beats() *beat.Tracker {
	return a.beats
}

func (a *App) Status() *status.Tracker {
	return a.status
}

// Virtual returns the local virtual device, or nil when not participating.
func (a *App) Virtual() *virtual.Device {
	return a.virtual
}

func (a *App) String() string {
	return fmt.Sprintf("beatlink.App@%p", a)
}

type identity struct {
	mac       net.HardwareAddr
	ip        net.IP
	broadcast net.IP
	ifindex   int // zero when the interface is unknown
}

// resolveIdentity returns the MAC and IP the virtual device uses, where it
// broadcasts and the interface it participates through. Configured values
// take precedence over the interface's.
func resolveIdentity(cfg config.Configuration) (identity, error) {
	id := identity{
		mac:       cfg.Device.ParsedMAC(),
		ip:        cfg.Device.ParsedIP(),
		broadcast: net.IPv4bcast,
	}
	if id.ip == nil {
		id.ip = cfg.Network.ParsedListenAddress()
	}
	subnet := cfg.Network.BroadcastMode == config.BroadcastSubnet
	configured := id.mac != nil && id.ip != nil && !subnet

	var intf *netutil.Interface
	var err error
	if id.ip != nil {
		intf, err = netutil.InterfaceForIP(id.ip)
	} else {
		intf, err = netutil.FirstIPv4Interface()
	}
	if err != nil {
		if configured {
			slog.Debug("No local interface for configured address", "ip", id.ip, slogutil.Error(err))
			return id, nil
		}
		return identity{}, fmt.Errorf("finding network interface: %w", err)
	}
	slog.Debug("Using network interface", "interface", intf)

	id.ifindex = intf.Index
	if id.mac == nil {
		id.mac = intf.MAC
	}
	if id.ip == nil {
		id.ip = intf.IP()
	}
	if subnet {
		id.broadcast = intf.Broadcast()
	}
	return id, nil
}
