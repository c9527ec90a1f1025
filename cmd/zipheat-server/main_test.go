package main

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestReloadLoopSerializesLoads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hup := make(chan os.Signal, 1)

	var running, overlaps, calls atomic.Int32
	loaded := make(chan struct{}, 8)
	reload := func() {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		calls.Add(1)
		loaded <- struct{}{}
	}

	exited := make(chan struct{})
	go func() {
		reloadLoop(ctx, zerolog.Nop(), hup, reload)
		close(exited)
	}()

	// Signals sent while the first load runs queue behind it.
	hup <- syscall.SIGHUP
	for range 2 {
		<-loaded
	}
	hup <- syscall.SIGHUP
	<-loaded

	cancel()
	<-exited
	if n := calls.Load(); n != 3 {
		t.Fatalf("reloads = %d, want 3", n)
	}
	if n := overlaps.Load(); n != 0 {
		t.Fatalf("%d reloads overlapped", n)
	}
}
