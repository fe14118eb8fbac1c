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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bucketsync/bucketsync/common"
)

func TestNewDetectsNonTerminalWriter(t *testing.T) {
	a := assert.New(t)
	m := New(&bytes.Buffer{}, true, nil)
	a.False(m.isTerminal) // a *bytes.Buffer is never a terminal
}

func TestRunAggregatesCountsAndTotals(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	m := New(out, false, nil)

	m.NoteBucketSealed(common.Bucket{ID: 1, Entries: make([]common.Entry, 3), Bytes: 300})
	m.NoteBucketSealed(common.Bucket{ID: 2, Entries: make([]common.Entry, 2), Bytes: 200})
	m.NoteCrawlComplete()

	results := make(chan common.BucketResult, 2)
	results <- common.BucketResult{BucketID: 1, Kind: common.EResultKind.OK(), EntriesAttempted: 3, BytesAttempted: 300}
	results <- common.BucketResult{BucketID: 2, Kind: common.EResultKind.Failed(), EntriesAttempted: 2, BytesAttempted: 200, StderrTail: []string{"boom"}}
	close(results)

	summary := m.Run(results, time.Now())

	a.Equal(2, summary.TotalBuckets)
	a.Equal(1, summary.OK)
	a.Equal(1, summary.Failed)
	a.Equal(5, summary.TotalEntries)
	a.EqualValues(500, summary.TotalBytes)
	a.Equal(1, summary.ExitCode())
	a.Contains(summary.FailedTails, 2)
	a.Equal([]string{"boom"}, summary.FailedTails[2])

	// progress was never requested, so nothing but the warning and final
	// summary lines should have been written - no \r-redrawn progress line.
	a.NotContains(out.String(), "\r")
	a.Contains(out.String(), "bucket 2:")
	a.Contains(out.String(), "completed 2 buckets")
}

func TestRunNeverRedrawsWhenNotATerminal(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	// progress requested, but out is a *bytes.Buffer - never a terminal.
	m := New(out, true, nil)

	results := make(chan common.BucketResult, 1)
	results <- common.BucketResult{BucketID: 1, Kind: common.EResultKind.OK(), EntriesAttempted: 1, BytesAttempted: 10}
	close(results)

	m.Run(results, time.Now())

	a.NotContains(out.String(), "\r")
	a.NotContains(out.String(), "buckets:")
}

func TestRedrawShowsKnownTotalsWithPlusBeforeCrawlComplete(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	m := New(out, true, nil)
	m.isTerminal = true // force the gate open without a real terminal fd

	m.NoteBucketSealed(common.Bucket{ID: 1, Entries: make([]common.Entry, 4), Bytes: 400})

	summary := Summary{TotalBuckets: 1, OK: 1}
	m.mu.Lock()
	m.doneEntries = 4
	m.doneBytes = 400
	m.mu.Unlock()

	m.redraw(summary)
	line := out.String()

	a.Contains(line, "buckets: 1/1+ done")
	a.Contains(line, "entries: 4/4+")
	a.Contains(line, "bytes:")
	a.Contains(line, "+")
	a.NotContains(line, "eta") // totals aren't final yet, so no ETA
}

func TestRedrawShowsEtaOnceCrawlComplete(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	m := New(out, true, nil)
	m.isTerminal = true

	m.NoteBucketSealed(common.Bucket{ID: 1, Entries: make([]common.Entry, 4), Bytes: 1 << 20})
	m.NoteCrawlComplete()

	past := time.Now().Add(-1 * time.Second)
	m.mu.Lock()
	m.samples = []throughputSample{{at: past, bytes: 0}}
	m.doneBytes = 1 << 19 // half done, one second in - a stable, nonzero rate
	m.mu.Unlock()

	m.redraw(Summary{TotalBuckets: 1})
	line := out.String()

	a.Contains(line, "eta")
	a.NotContains(strings.TrimPrefix(line, "\r"), "+ done") // crawl is complete, no trailing "+" on buckets
}

func TestRedrawBlanksLeftoverCharactersFromLongerPriorLine(t *testing.T) {
	a := assert.New(t)
	out := &bytes.Buffer{}
	m := New(out, true, nil)
	m.isTerminal = true

	// a wide summary produces a long line...
	m.redraw(Summary{TotalBuckets: 1000000, OK: 999999, Cancelled: 999999})
	longLen := len(out.String())

	// ...and a much narrower one afterwards must still clear every
	// leftover character, so the raw bytes written are no shorter than
	// the previous line.
	out.Reset()
	m.redraw(Summary{TotalBuckets: 1})
	a.Equal(longLen, len(out.String()))
}
