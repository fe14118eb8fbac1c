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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bucketsync/bucketsync/common"
)

func collectResults(ch <-chan common.BucketResult) []common.BucketResult {
	var out []common.BucketResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestPoolRunsAllBucketsToCompletion(t *testing.T) {
	a := assert.New(t)
	cfg := common.Config{
		Source:      t.TempDir(),
		Destination: t.TempDir(),
		RsyncPath:   fakeRsync(t, 0),
	}

	results := make(chan common.BucketResult, 8)
	pool := NewPool(cfg, 2, results)

	intake := make(chan common.Bucket, 8)
	for i := 1; i <= 5; i++ {
		intake <- common.Bucket{ID: i}
	}
	close(intake)

	err := pool.Start(context.Background(), intake, true)
	close(results)
	a.NoError(err)

	got := collectResults(results)
	a.Len(got, 5)
	for _, r := range got {
		a.Equal(common.EResultKind.OK(), r.Kind)
	}
}

func TestPoolStopsOnFirstFailureWhenNotKeepGoing(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	cfg := common.Config{
		Source:      t.TempDir(),
		Destination: dir,
		RsyncPath:   fakeRsync(t, 1),
	}

	results := make(chan common.BucketResult, 8)
	pool := NewPool(cfg, 1, results)

	intake := make(chan common.Bucket, 8)
	for i := 1; i <= 5; i++ {
		intake <- common.Bucket{ID: i}
	}
	close(intake)

	err := pool.Start(context.Background(), intake, false)
	close(results)
	a.Error(err)

	got := collectResults(results)
	// with a single worker and keepGoing=false, the group is cancelled
	// right after the first failing bucket - later buckets are never
	// dequeued, so fewer than 5 results are published.
	a.Less(len(got), 5)
	a.Equal(common.EResultKind.Failed(), got[0].Kind)
}
