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

// Package pipeline wires the crawler, partitioner, worker pool, and
// monitor into one run. There is no background job manager to hand off
// to, so Run owns the whole lifecycle of one invocation from first
// directory read to final summary line.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bucketsync/bucketsync/common"
	"github.com/bucketsync/bucketsync/crawl"
	"github.com/bucketsync/bucketsync/monitor"
	"github.com/bucketsync/bucketsync/partition"
	"github.com/bucketsync/bucketsync/worker"
)

// Exit codes, per the CLI contract: 0 clean, 1 one or more buckets
// failed, 2 invalid configuration or unreachable source, 130 cancelled
// by signal.
const (
	ExitOK            = 0
	ExitBucketFailure = 1
	ExitBadConfig     = 2
	ExitCancelled     = 130
)

// Run drives one end-to-end bucketsync invocation: crawl cfg.Source,
// partition it into buckets, fan them out across cfg.Parallelism rsync
// children, and print progress and a final summary to stdout, with
// lifecycle log records going through logger. It returns the process
// exit code to use and any error worth logging above and beyond what
// the summary already printed.
func Run(ctx context.Context, cfg common.Config, logger common.ILogger) (int, error) {
	if logger == nil {
		logger = common.NopLogger()
	}
	if common.IsRemotePath(cfg.Source) || common.IsRemotePath(cfg.Destination) {
		return ExitBadConfig, common.NewError(common.EErrorKind.Config(), "remote endpoints are not supported: %s -> %s", cfg.Source, cfg.Destination)
	}
	if err := os.MkdirAll(cfg.Destination, 0o755); err != nil {
		return ExitBadConfig, common.WrapError(common.EErrorKind.Config(), err, "create destination %q", cfg.Destination)
	}

	runID := common.NewRunID()
	common.Logf(logger, common.ELogLevel.Info(), "run %s starting: %s -> %s", runID, cfg.Source, cfg.Destination)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelledBySignal int32
	mon := monitor.New(os.Stdout, cfg.Progress, logger)

	group, gctx := errgroup.WithContext(runCtx)

	buckets := make(chan common.Bucket, cfg.Parallelism)
	results := make(chan common.BucketResult, cfg.Parallelism)

	// pool is built before the signal watcher so escalate has something
	// to reach into: a second SIGINT needs to SIGKILL every live rsync
	// child, not just cancel gctx and hope workers notice in time.
	pool := worker.NewPool(cfg, cfg.Parallelism, results)

	// The signal watcher runs outside the errgroup on its own context: it
	// keeps watching after its first-signal cancel so a second SIGINT can
	// still escalate, and the group can finish without waiting for it.
	sigCtx, stopSignals := context.WithCancel(ctx)
	defer stopSignals()
	go func() {
		monitor.WatchSignals(sigCtx, os.Stderr, func() {
			atomic.StoreInt32(&cancelledBySignal, 1)
			cancel()
		}, func() {
			atomic.StoreInt32(&cancelledBySignal, 1)
			pool.KillAll()
		})
	}()

	group.Go(func() error {
		defer close(buckets)
		emitter := &bucketEmitter{ch: buckets, mon: mon}
		parter := partition.New(cfg.EntriesPerBucket, cfg.BytesPerBucket, emitter)

		warn := func(path string, err error) {
			common.Logf(logger, common.ELogLevel.Warn(), "crawl warning at %q: %v", path, err)
		}

		reader := crawl.NewDirReader()
		if err := crawl.Walk(gctx, cfg.Source, reader, parter, warn); err != nil {
			return err
		}
		if err := parter.Flush(gctx); err != nil {
			return err
		}
		mon.NoteCrawlComplete()
		return nil
	})

	group.Go(func() error {
		defer close(results)
		return pool.Start(gctx, buckets, cfg.KeepGoing)
	})

	started := time.Now()
	summaryCh := make(chan monitor.Summary, 1)
	go func() {
		summaryCh <- mon.Run(results, started)
	}()

	groupErr := group.Wait()
	summary := <-summaryCh

	common.Logf(logger, common.ELogLevel.Info(), "run %s finished: %d ok, %d partial, %d failed, %d cancelled", runID, summary.OK, summary.Partial, summary.Failed, summary.Cancelled)

	if atomic.LoadInt32(&cancelledBySignal) == 1 {
		return ExitCancelled, nil
	}
	if groupErr != nil && common.KindOf(groupErr) == common.EErrorKind.Config() {
		return ExitBadConfig, groupErr
	}
	if groupErr != nil && summary.Failed == 0 {
		// a producer/config-level failure that never reached the monitor as a bucket result
		return ExitBucketFailure, groupErr
	}
	return summary.ExitCode(), nil
}

// bucketEmitter adapts partition.Emitter onto the bounded bucket channel
// shared with the worker pool, recording each sealed bucket's size with
// the monitor before (not after) the worker that actually runs it could
// possibly finish.
type bucketEmitter struct {
	ch  chan<- common.Bucket
	mon *monitor.Monitor
}

func (e *bucketEmitter) Emit(ctx context.Context, b common.Bucket) error {
	e.mon.NoteBucketSealed(b)
	select {
	case e.ch <- b:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("emit bucket %d: %w", b.ID, ctx.Err())
	}
}
