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

package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bucketsync/bucketsync/common"
)

// Pool runs P workers, each draining buckets off a shared intake channel
// and spawning one rsync child per bucket. P is sized by the caller's
// parallelism flag rather than a package-level concurrency tunable.
type Pool struct {
	cfg      common.Config
	parallel int
	results  chan common.BucketResult
	reg      *Registry
}

// NewPool builds a Pool that will run parallel workers once Start is
// called, each configured with cfg for its rsync invocations.
func NewPool(cfg common.Config, parallel int, results chan common.BucketResult) *Pool {
	if parallel < 1 {
		parallel = 1
	}
	return &Pool{cfg: cfg, parallel: parallel, results: results, reg: NewRegistry()}
}

// KillAll sends SIGKILL to every rsync child currently in flight across
// the pool's workers. It's the pool's half of a double-SIGINT
// escalation: the caller still relies on ctx cancellation to stop
// workers from picking up new buckets.
func (p *Pool) KillAll() {
	p.reg.KillAll()
}

// Start drains buckets from intake until it is closed or ctx is done,
// running up to p.parallel rsync children concurrently, and publishes
// one BucketResult per bucket to p.results. It returns when every worker
// has exited; it does not close p.results (the caller, which also knows
// about the monitor's consumption, owns that).
//
// If keepGoing is false, the first Failed bucket result cancels the
// group, which in turn stops new buckets from being picked up. Children
// of buckets already in flight are sent SIGTERM (then SIGKILL after
// killGrace) and reaped rather than abandoned. Partial results do not
// cancel the group.
func (p *Pool) Start(ctx context.Context, intake <-chan common.Bucket, keepGoing bool) error {
	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < p.parallel; i++ {
		group.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case bucket, ok := <-intake:
					if !ok {
						return nil
					}
					result := p.runOne(gctx, bucket)
					p.results <- result
					if !keepGoing && result.Kind == common.EResultKind.Failed() {
						return common.NewError(common.EErrorKind.ChildNonzero(), "bucket %d failed: exit %d", bucket.ID, result.ExitCode)
					}
				}
			}
		})
	}

	return group.Wait()
}

func (p *Pool) runOne(ctx context.Context, bucket common.Bucket) common.BucketResult {
	start := time.Now()
	res := Run(ctx, p.cfg, bucket, p.reg)
	elapsed := time.Since(start)

	out := common.BucketResult{
		BucketID:         bucket.ID,
		ExitCode:         res.ExitCode,
		WallTime:         elapsed,
		EntriesAttempted: bucket.Count(),
		BytesAttempted:   bucket.Bytes,
		StderrTail:       res.StderrTail,
	}

	switch {
	case res.SpawnErr != nil:
		out.Kind = common.EResultKind.Failed()
		out.Err = res.SpawnErr
	case ctx.Err() != nil && res.ExitCode != 0:
		out.Kind = common.EResultKind.Cancelled()
		out.Err = common.WrapError(common.EErrorKind.Cancelled(), ctx.Err(), "bucket %d cancelled", bucket.ID)
	case res.ExitCode == 0:
		out.Kind = common.EResultKind.OK()
	case res.ExitCode == 23 || res.ExitCode == 24:
		// rsync's own "partial transfer" codes: some files vanished or
		// couldn't be transferred, but the run otherwise completed.
		out.Kind = common.EResultKind.Partial()
		out.Err = common.NewError(common.EErrorKind.ChildNonzero(), "bucket %d partial: rsync exit %d", bucket.ID, res.ExitCode)
	default:
		out.Kind = common.EResultKind.Failed()
		out.Err = common.NewError(common.EErrorKind.ChildNonzero(), "bucket %d failed: rsync exit %d", bucket.ID, res.ExitCode)
	}

	return out
}
