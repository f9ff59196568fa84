// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package start provides the two concurrency-join primitives onefile and
// cmd/onestat build on: Start wraps a single long-running operation with
// Ctrl-C cancellation (a large binary-to-ASCII conversion in
// cmd/onestat's main), and RunAll joins a fixed set of independent
// goroutines and propagates the first error (onefile.ParallelWriter's
// sibling close/read-back fan-out).
package start

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ConvertFunc is one cancellable unit of work: a container conversion or
// report that should stop promptly on Ctrl-C or on stopTimeout elapsing
// after the first interrupt.
type ConvertFunc func(ctx context.Context) error

// Start runs fn under a context that is cancelled on the first SIGINT,
// then waits up to stopTimeout for fn to return before giving up and
// returning anyway. Used by cmd/onestat's main to let a conversion of a
// large container file stop cleanly mid-read instead of being killed
// outright.
func Start(ctx context.Context, stopTimeout time.Duration, fn ConvertFunc) error {
	notify := make(chan os.Signal, 3)
	signal.Notify(notify, os.Interrupt)
	defer signal.Stop(notify)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	once := &sync.Once{}
	fin := make(chan bool)
	unlockOnce := func() {
		once.Do(func() { close(fin) })
	}
	runErr := atomic.Value{}
	go func() {
		if err := fn(ctx); err != nil {
			runErr.Store(err)
		}
		unlockOnce()
	}()
	select {
	case <-notify:
	case <-fin:
	}
	cancel()
	go func() {
		<-time.After(stopTimeout)
		unlockOnce()
	}()
	<-fin
	if err, ok := runErr.Load().(error); ok {
		return err
	}
	return nil
}

// RunAll runs every fn concurrently and waits for all to finish,
// returning the first error (if any) and cancelling the shared context
// for the rest once one fails. ParallelWriter.Close uses this for both
// of its fan-out phases: closing sibling Writer handles, and reading
// their finished temp files back, before the single-threaded
// concatenation-and-footer pass.
func RunAll(ctx context.Context, fns ...func(ctx context.Context) error) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		group.Go(func() error { return fn(ctx) })
	}
	return group.Wait()
}
