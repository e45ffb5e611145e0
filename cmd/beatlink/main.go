// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command beatlink joins a DJ-Link network as a virtual player, follows the
// other devices and reports beats and tempo.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/willabides/kongplete"

	"github.com/beatlink/beatlink/internal/slogutil"
	"github.com/beatlink/beatlink/lib/beatlink"
	"github.com/beatlink/beatlink/lib/build"
	"github.com/beatlink/beatlink/lib/config"
	"github.com/beatlink/beatlink/lib/events"
	"github.com/beatlink/beatlink/lib/svcutil"
)

type CLI struct {
	Version kong.VersionFlag `help:"Show version and exit"`

	Run                runCmd                       `cmd:"" default:"withargs" help:"Join the network (default)"`
	DefaultConfig      defaultConfigCmd             `cmd:"" help:"Print the default configuration and exit"`
	LogPackages        logPackagesCmd               `cmd:"" help:"List the package and group names accepted in BLTRACE"`
	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Print commands to install shell completions"`
}

type runCmd struct {
	Config        string      `short:"c" placeholder:"PATH" env:"BEATLINK_CONFIG" default:"beatlink.yaml" help:"Configuration file; defaults are used if it does not exist"`
	Name          string      `env:"BEATLINK_NAME" help:"Device name"`
	Kind          config.Kind `env:"BEATLINK_KIND" help:"Device kind (player, mixer)"`
	MAC           string      `name:"mac" env:"BEATLINK_MAC" help:"MAC address to announce instead of the interface's"`
	IP            string      `name:"ip" env:"BEATLINK_IP" help:"IP address to announce instead of the interface's"`
	Listen        string      `env:"BEATLINK_LISTEN" placeholder:"IP" help:"Address to bind the sockets to"`
	Blacklist     []int       `env:"BEATLINK_BLACKLIST" help:"Device numbers never to claim"`
	Subnet        bool        `env:"BEATLINK_SUBNET_BROADCAST" help:"Broadcast to the interface's subnet instead of 255.255.255.255"`
	Conflicts     bool        `name:"detect-conflicts" env:"BEATLINK_DETECT_CONFLICTS" help:"Abandon a device number when another device is heard using it"`
	Passive       bool        `env:"BEATLINK_PASSIVE" help:"Only listen; do not claim a device number"`
	MetricsListen string      `env:"BEATLINK_METRICS_LISTEN" placeholder:"ADDR" help:"Serve Prometheus metrics on this address"`
	Audit         string      `placeholder:"PATH" env:"BEATLINK_AUDIT" help:"Append every event as JSON to this file"`
	Verbose       bool        `short:"v" env:"BEATLINK_VERBOSE" help:"Print events to the console"`
	LogLevel      string      `enum:"debug,info,warn,error" default:"info" env:"BEATLINK_LOG_LEVEL" help:"Default log level; BLTRACE overrides it per package"`
	LogFormat     string      `enum:"default,compact" default:"default" env:"BEATLINK_LOG_FORMAT" help:"Log line format; compact suits packet tracing"`
}

type defaultConfigCmd struct{}

type logPackagesCmd struct{}

// exitError carries the exit status of a run that did not end cleanly.
type exitError struct {
	status svcutil.ExitStatus
	err    error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("beatlink"),
		kong.Description("DJ-Link network participant"),
		kong.Vars{"version": build.LongVersion},
	)
	if err != nil {
		panic(err)
	}
	kongplete.Complete(parser)
	kongCtx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = kongCtx.Run()
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		slog.Error("Stopped", slogutil.Error(exitErr.err))
		os.Exit(exitErr.status.AsInt())
	}
	kongCtx.FatalIfErrorf(err)
}

func (*defaultConfigCmd) Run() error {
	return config.New().WriteYAML(os.Stdout)
}

func (c *runCmd) Run() error {
	if err := c.setupLogging(); err != nil {
		return err
	}

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.applyOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Options.MetricsListen != "" {
		go serveMetrics(cfg.Options.MetricsListen)
	}

	opts := beatlink.Options{
		Participate: !c.Passive,
		Verbose:     c.Verbose,
	}
	if c.Audit != "" {
		fd, err := os.OpenFile(c.Audit, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening audit file: %w", err)
		}
		defer fd.Close()
		opts.AuditWriter = fd
	}

	slog.Info(build.LongVersion)

	app, err := beatlink.New(cfg, events.NewLogger(), opts)
	if err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		return &exitError{status: app.Wait(), err: err}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("Shutting down", "signal", sig)
		app.Stop(svcutil.ExitSuccess)
	}()

	status := app.Wait()
	if status != svcutil.ExitSuccess {
		err := app.Error()
		if err == nil {
			err = fmt.Errorf("exit status %d", status)
		}
		return &exitError{status: status, err: err}
	}
	return nil
}

func (c *runCmd) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	slogutil.SetDefaultLevel(level)
	slogutil.SetLineFormat(c.lineFormat())
	return nil
}

func (c *runCmd) lineFormat() slogutil.LineFormat {
	if c.LogFormat == "compact" {
		return slogutil.CompactLineFormat
	}
	return slogutil.DefaultLineFormat
}

func (*logPackagesCmd) Run() error {
	return printLogPackages(os.Stdout)
}

func printLogPackages(w io.Writer) error {
	for _, p := range slogutil.Packages() {
		if _, err := fmt.Fprintf(w, "%-10s %-5s %s\n", p.Name, p.Level, p.Descr); err != nil {
			return err
		}
	}
	groups := slogutil.PackageGroups()
	names := slices.Sorted(maps.Keys(groups))
	for _, g := range names {
		if _, err := fmt.Fprintf(w, "%-10s group: %s\n", g, strings.Join(groups[g], ", ")); err != nil {
			return err
		}
	}
	return nil
}

// applyOverrides applies the flags and environment on top of the file.
func (c *runCmd) applyOverrides(cfg *config.Configuration) {
	if c.Name != "" {
		cfg.Device.Name = c.Name
	}
	if c.Kind != "" {
		cfg.Device.Kind = c.Kind
	}
	if c.MAC != "" {
		cfg.Device.MAC = c.MAC
	}
	if c.IP != "" {
		cfg.Device.IP = c.IP
	}
	if c.Listen != "" {
		cfg.Network.ListenAddress = c.Listen
	}
	if len(c.Blacklist) > 0 {
		cfg.Device.Blacklist = c.Blacklist
	}
	if c.Subnet {
		cfg.Network.BroadcastMode = config.BroadcastSubnet
	}
	if c.Conflicts {
		cfg.Options.ConflictDetection = true
	}
	if c.MetricsListen != "" {
		cfg.Options.MetricsListen = c.MetricsListen
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Serving metrics", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("Metrics server stopped", slogutil.Error(err))
	}
}
