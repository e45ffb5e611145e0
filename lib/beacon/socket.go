// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package beacon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/svcutil"
)

const (
	maxDatagramSize = 65536
	writeTimeout    = 10 * time.Second
	recvBuffer      = 16
)

// Socket is a UDP socket bound to one of the DJ-Link ports. Broadcast
// sending is enabled by the runtime on every UDP socket.
type Socket struct {
	errorHolder
	InterfaceFilter
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	port  string
	out   chan Datagram
	once  sync.Once
	close chan struct{}
}

var _ Interface = (*Socket)(nil)

// Listen binds a UDP socket on ip and port. A nil ip binds all addresses,
// which is required to receive broadcasts on most platforms. Where the
// platform allows it the port may be shared with other programs.
func Listen(ip net.IP, port int) (*Socket, error) {
	host := ""
	if ip != nil {
		host = ip.String()
	}
	lc := net.ListenConfig{Control: reuseControl}
	pconn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	conn := pconn.(*net.UDPConn)

	s := &Socket{
		conn:  conn,
		pc:    ipv4.NewPacketConn(conn),
		port:  strconv.Itoa(conn.LocalAddr().(*net.UDPAddr).Port),
		out:   make(chan Datagram, recvBuffer),
		close: make(chan struct{}),
	}
	if err := s.pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		// Not supported everywhere; datagrams then arrive without Dst.
		slog.Debug("Control messages unavailable", "port", s.port, slogutil.Error(err))
	}
	return s, nil
}

// Serve reads datagrams until ctx is cancelled or the socket fails. A
// failure closes the socket and is returned as a no-restart error; the
// socket is not reopened. C is closed when Serve returns.
func (s *Socket) Serve(ctx context.Context) error {
	slog.Debug("Socket reader starting", "port", s.port)
	defer slog.Debug("Socket reader stopping", "port", s.port)
	defer close(s.out)

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.close:
		}
	}()

	bs := make([]byte, maxDatagramSize)
	for {
		n, cm, src, err := s.pc.ReadFrom(bs)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if s.isClosed() && s.Error() == nil {
				// Closed by us
				return svcutil.NoRestartErr(nil)
			}
			return svcutil.NoRestartErr(s.fail("read", err))
		}

		metricRecvBytes.WithLabelValues(s.port).Add(float64(n))
		metricRecvDatagrams.WithLabelValues(s.port).Inc()
		slog.Debug("Received datagram", "port", s.port, "length", n, slogutil.Address(src))

		d := Datagram{
			Data: append([]byte(nil), bs[:n]...),
			From: src,
		}
		if cm != nil {
			d.Dst = cm.Dst
			d.IfIndex = cm.IfIndex
		}
		if !s.Accepts(d) {
			metricFiltered.WithLabelValues(s.port).Inc()
			slog.Debug("Ignoring datagram from another interface", "port", s.port, "ifindex", d.IfIndex, slogutil.Address(src))
			continue
		}

		select {
		case s.out <- d:
		case <-ctx.Done():
			return nil
		}
	}
}

// Send writes data to dst. An error closes the socket.
func (s *Socket) Send(data []byte, dst *net.UDPAddr) error {
	if s.isClosed() {
		if err := s.Error(); err != nil {
			return fmt.Errorf("%w: %w", ErrClosed, err)
		}
		return ErrClosed
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	n, err := s.conn.WriteToUDP(data, dst)
	if err != nil {
		return s.fail("write", err)
	}

	metricSentBytes.WithLabelValues(s.port).Add(float64(n))
	metricSentDatagrams.WithLabelValues(s.port).Inc()
	slog.Debug("Sent datagram", "port", s.port, "length", n, slogutil.Address(dst))
	return nil
}

func (s *Socket) C() <-chan Datagram {
	return s.out
}

func (s *Socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		close(s.close)
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) isClosed() bool {
	select {
	case <-s.close:
		return true
	default:
		return false
	}
}

func (s *Socket) fail(op string, err error) error {
	if errors.Is(err, net.ErrClosed) && s.isClosed() && s.Error() != nil {
		return s.Error()
	}
	err = fmt.Errorf("%s on port %s: %w", op, s.port, err)
	s.setError(err)
	metricErrors.WithLabelValues(s.port).Inc()
	slog.Warn("Socket failed, closing", "port", s.port, slogutil.Error(err))
	s.Close()
	return err
}

func (s *Socket) String() string {
	return fmt.Sprintf("beacon.Socket@%s", s.conn.LocalAddr())
}
