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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// doubleSignalWindow is how long after the first SIGINT a second one
// escalates to an immediate, unconditional exit rather than a
// cooperative cancellation.
const doubleSignalWindow = 2 * time.Second

// WatchSignals installs a SIGINT/SIGTERM handler that cancels cancel on
// first receipt (printing a one-line notice to out) and calls
// escalate - expected to SIGKILL every running child - if a second
// SIGINT arrives within doubleSignalWindow. It runs until ctx is done
// and returns only then, so the caller must cancel ctx once the run is
// over; an errgroup that waits on it would otherwise never finish.
func WatchSignals(ctx context.Context, out io.Writer, cancel context.CancelFunc, escalate func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var once sync.Once
	var firstSigint time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			once.Do(func() {
				fmt.Fprintln(out, "\ncancelling...")
				cancel()
			})
			if sig == syscall.SIGINT {
				now := time.Now()
				if firstSigint.IsZero() {
					firstSigint = now
				} else if now.Sub(firstSigint) <= doubleSignalWindow {
					escalate()
					os.Exit(130)
				}
			}
		}
	}
}
