// Copyright © Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package monitor

import (
	"bytes"
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// Note: WatchSignals' double-SIGINT path ends in os.Exit(130), which
// would tear down the test binary itself, so it is covered by
// inspection only rather than by actually sending a second SIGINT
// in-process here. pipeline.Run wires escalate to worker.Pool.KillAll,
// and the worker package's registry tests drive KillAll directly.

func TestWatchSignalsCancelsOnceOnFirstSigint(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelCalls int32
	var escalateCalls int32
	done := make(chan struct{})
	go func() {
		WatchSignals(ctx, out, func() {
			atomic.AddInt32(&cancelCalls, 1)
			cancel()
		}, func() {
			atomic.AddInt32(&escalateCalls, 1)
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond) // let signal.Notify register before we signal
	a.NoError(unix.Kill(os.Getpid(), unix.SIGINT))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchSignals did not return after ctx was cancelled")
	}

	a.EqualValues(1, atomic.LoadInt32(&cancelCalls))
	a.Zero(atomic.LoadInt32(&escalateCalls))
	a.Contains(out.String(), "cancelling...")
}

func TestWatchSignalsCancelsOnceOnSigterm(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelCalls int32
	done := make(chan struct{})
	go func() {
		WatchSignals(ctx, out, func() {
			atomic.AddInt32(&cancelCalls, 1)
			cancel()
		}, func() {
			t.Error("escalate must not run for a single signal")
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	a.NoError(unix.Kill(os.Getpid(), unix.SIGTERM))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WatchSignals did not return after ctx was cancelled")
	}

	a.EqualValues(1, atomic.LoadInt32(&cancelCalls))
}
