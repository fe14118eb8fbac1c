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

// Package partition folds a stream of common.Entry into sealed
// common.Bucket values bounded by entry count and aggregate byte size.
package partition

import (
	"context"

	"github.com/bucketsync/bucketsync/common"
)

// Emitter receives sealed buckets. The worker pool's intake channel
// satisfies this interface via a small adapter in package pipeline.
type Emitter interface {
	Emit(ctx context.Context, b common.Bucket) error
}

// Partitioner is a streaming fold of entries into size- and count-bounded
// buckets. It is not safe for concurrent use - it is driven by the
// single crawl goroutine.
type Partitioner struct {
	maxEntries int
	maxBytes   int64

	emitter Emitter
	nextID  int

	open      common.Bucket
	openBytes int64
}

// New builds a Partitioner that seals buckets no larger than maxEntries
// entries or maxBytes aggregate bytes (whichever comes first) and sends
// them to emitter.
func New(maxEntries int, maxBytes int64, emitter Emitter) *Partitioner {
	return &Partitioner{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		emitter:    emitter,
		nextID:     1,
	}
}

// Add folds one Entry into the open bucket, sealing and emitting the
// current bucket first if adding e would violate either limit and the
// open bucket is non-empty. An Entry whose own size exceeds maxBytes is
// always appended - the next Entry (or Flush) will seal it into a
// singleton bucket.
func (p *Partitioner) Add(ctx context.Context, e common.Entry) error {
	size := int64(0)
	if e.IsRegular() {
		size = e.Size
	}

	wouldExceedCount := len(p.open.Entries)+1 > p.maxEntries
	wouldExceedBytes := p.openBytes+size > p.maxBytes

	if (wouldExceedCount || wouldExceedBytes) && len(p.open.Entries) > 0 {
		if err := p.seal(ctx); err != nil {
			return err
		}
	}

	p.open.Entries = append(p.open.Entries, e)
	p.openBytes += size
	return nil
}

// Flush seals and emits the open bucket if it is non-empty. Call once,
// after the crawl completes.
func (p *Partitioner) Flush(ctx context.Context) error {
	if len(p.open.Entries) == 0 {
		return nil
	}
	return p.seal(ctx)
}

func (p *Partitioner) seal(ctx context.Context) error {
	p.open.ID = p.nextID
	p.open.Bytes = p.openBytes
	p.open.Sealed = true

	b := p.open
	p.nextID++
	p.open = common.Bucket{}
	p.openBytes = 0

	return p.emitter.Emit(ctx, b)
}
