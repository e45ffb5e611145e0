// Copyright (C) 2026 The Beatlink Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package svcutil

import (
	"context"
	"errors"
	"testing"

	"github.com/thejerf/suture/v4"
)

func TestNoRestartErr(t *testing.T) {
	base := errors.New("socket closed")
	err := NoRestartErr(base)
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Error("wrapped error should be ErrDoNotRestart")
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to the original")
	}
	if !errors.Is(NoRestartErr(nil), suture.ErrDoNotRestart) {
		t.Error("nil should become ErrDoNotRestart")
	}
}

func TestAsFatalErr(t *testing.T) {
	base := errors.New("bind failed")
	ferr := AsFatalErr(base, ExitTransportFailed)
	if ferr.Status != ExitTransportFailed {
		t.Errorf("status = %v, want %v", ferr.Status, ExitTransportFailed)
	}
	if again := AsFatalErr(ferr, ExitError); again != ferr {
		t.Error("an existing FatalErr should not be wrapped again")
	}
	if !errors.Is(ferr, suture.ErrTerminateSupervisorTree) {
		t.Error("fatal errors should terminate the supervisor tree")
	}
}

func TestAsServiceRecordsError(t *testing.T) {
	base := errors.New("boom")
	svc := AsService(func(context.Context) error { return base }, "test")
	if err := svc.Serve(context.Background()); err != base {
		t.Fatalf("Serve returned %v", err)
	}
	if svc.Error() != base {
		t.Errorf("Error() = %v, want %v", svc.Error(), base)
	}
}
