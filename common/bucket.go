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

package common

import (
	"reflect"
	"time"

	"github.com/JeffreyRichter/enum/enum"
)

// Bucket is a sealed, ordered, non-empty list of Entries handed to one
// rsync child as a unit. Entries is owned by the bucket from the moment
// the partitioner accepts them until the worker that dequeues the bucket
// publishes its BucketResult.
type Bucket struct {
	ID      int
	Entries []Entry
	Bytes   int64 // sum of regular-file sizes
	Sealed  bool
}

// Count is the number of entries in the bucket.
func (b *Bucket) Count() int {
	return len(b.Entries)
}

var EResultKind = ResultKind(0)

// ResultKind classifies the outcome of running one bucket through rsync.
type ResultKind uint8

func (ResultKind) OK() ResultKind        { return ResultKind(0) }
func (ResultKind) Partial() ResultKind   { return ResultKind(1) } // rsync exit 23/24
func (ResultKind) Failed() ResultKind    { return ResultKind(2) }
func (ResultKind) Cancelled() ResultKind { return ResultKind(3) }

func (k ResultKind) String() string {
	return enum.StringInt(k, reflect.TypeOf(k))
}

// BucketResult is produced by a worker exactly once per sealed bucket.
type BucketResult struct {
	BucketID         int
	Kind             ResultKind
	ExitCode         int // -1 if the child never started (spawn failure)
	WallTime         time.Duration
	EntriesAttempted int
	BytesAttempted   int64
	StderrTail       []string // bounded, see worker.ring
	Err              error    // non-nil for Failed/spawn-failure results
}
