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

// Package monitor is the single owner of a run's aggregate counters and
// user-visible output: a redraw-by-carriage-return progress line with
// leftover-character blanking, warnings as they arrive, and a final
// summary.
package monitor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/bucketsync/bucketsync/common"
)

// refreshInterval bounds how often the progress line is redrawn, so a
// fast pipeline doesn't spend more time formatting output than copying
// files.
const refreshInterval = 250 * time.Millisecond

// throughputWindow is how far back the instantaneous-throughput figure
// in the progress line looks.
const throughputWindow = 5 * time.Second

// Summary is the final report produced once every bucket result has
// been observed.
type Summary struct {
	TotalBuckets int
	OK           int
	Partial      int
	Failed       int
	Cancelled    int
	TotalEntries int
	TotalBytes   int64
	Elapsed      time.Duration
	FailedTails  map[int][]string // bucket ID -> captured stderr tail
}

// ExitCode maps a Summary to the process exit-code taxonomy: 0 when
// every bucket is ok or partial, 1 when any bucket failed, and 2 is
// reserved for configuration errors raised before a Monitor ever runs.
// Cancellation's exit code (130) is decided by the caller from whether
// the run's context was cancelled by a signal, not from the Summary
// alone - see pipeline.Run.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// throughputSample is one (time, cumulative bytes done) point kept long
// enough to compute an instantaneous rate over throughputWindow.
type throughputSample struct {
	at    time.Time
	bytes int64
}

// Monitor is the single consumer of common.BucketResult events. Run
// must be called from one goroutine only; NoteBucketSealed and
// NoteCrawlComplete may be called from another goroutine while Run is
// draining, since the counters they share with Run are guarded by mu.
type Monitor struct {
	out        io.Writer
	progress   bool
	isTerminal bool
	logger     common.ILogger

	mu            sync.Mutex
	prevLineLen   int
	totalBuckets  int // sealed so far, not necessarily finished
	totalEntries  int
	totalBytes    int64
	crawlComplete bool
	doneEntries   int
	doneBytes     int64
	samples       []throughputSample
}

// New builds a Monitor that writes its progress line and summary to out
// and routes structured lifecycle records through logger. The progress
// line only ever redraws when progress is requested AND out is a
// terminal - piping output to a file or log should never see raw
// carriage-return-redrawn lines.
func New(out io.Writer, progress bool, logger common.ILogger) *Monitor {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Monitor{out: out, progress: progress, isTerminal: isTerminalWriter(out), logger: logger}
}

// isTerminalWriter reports whether out is a file descriptor attached to
// a terminal. Non-*os.File writers (buffers, pipes used by tests) are
// never terminals.
func isTerminalWriter(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NoteBucketSealed records a bucket's size for the running totals shown
// in the progress line, independent of when (or whether) that bucket
// has finished running.
func (m *Monitor) NoteBucketSealed(b common.Bucket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalBuckets++
	m.totalEntries += b.Count()
	m.totalBytes += b.Bytes
}

// NoteCrawlComplete marks the running totals as final: every bucket
// that will ever exist has already been sealed, so the progress line
// can stop marking totals with a trailing "+" and start showing an ETA.
func (m *Monitor) NoteCrawlComplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crawlComplete = true
}

// Run drains results until the channel is closed, redrawing the
// progress line at most once per refreshInterval, and returns the final
// Summary. started is the time the pipeline began, used to compute
// elapsed wall time.
func (m *Monitor) Run(results <-chan common.BucketResult, started time.Time) Summary {
	summary := Summary{FailedTails: map[int][]string{}}
	lastRefresh := time.Time{}
	showProgress := m.progress && m.isTerminal

	for res := range results {
		summary.TotalBuckets++
		switch res.Kind {
		case common.EResultKind.OK():
			summary.OK++
		case common.EResultKind.Partial():
			summary.Partial++
		case common.EResultKind.Cancelled():
			summary.Cancelled++
		default:
			summary.Failed++
		}

		m.mu.Lock()
		m.doneEntries += res.EntriesAttempted
		m.doneBytes += res.BytesAttempted
		m.mu.Unlock()

		if res.Kind != common.EResultKind.OK() && res.Kind != common.EResultKind.Partial() {
			summary.FailedTails[res.BucketID] = res.StderrTail
			m.printWarning(res)
		}
		m.logger.Log(common.ELogLevel.Info(), fmt.Sprintf("bucket %d finished: %s (exit %d, %s)", res.BucketID, res.Kind, res.ExitCode, res.WallTime))

		if showProgress && time.Since(lastRefresh) >= refreshInterval {
			m.redraw(summary)
			lastRefresh = time.Now()
		}
	}

	if showProgress {
		m.redraw(summary)
		fmt.Fprintln(m.out)
	}

	m.mu.Lock()
	summary.TotalEntries = m.totalEntries
	summary.TotalBytes = m.totalBytes
	m.mu.Unlock()
	summary.Elapsed = time.Since(started)

	m.printFinal(summary)
	return summary
}

// redraw renders one progress line covering buckets done/total-known,
// entries and bytes processed, instantaneous throughput over the last
// throughputWindow, and (once the crawl is complete) an ETA. Totals
// carry a trailing "+" until the crawl finishes, since they're still
// growing.
func (m *Monitor) redraw(s Summary) {
	m.mu.Lock()
	m.samples = append(m.samples, throughputSample{at: time.Now(), bytes: m.doneBytes})
	cutoff := time.Now().Add(-throughputWindow)
	i := 0
	for i < len(m.samples) && m.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = m.samples[i:]
	}

	var rate float64
	if len(m.samples) >= 2 {
		first, last := m.samples[0], m.samples[len(m.samples)-1]
		if secs := last.at.Sub(first.at).Seconds(); secs > 0 {
			rate = float64(last.bytes-first.bytes) / secs
		}
	}

	plus := "+"
	if m.crawlComplete {
		plus = ""
	}
	totalBuckets, totalEntries, totalBytes, crawlComplete := m.totalBuckets, m.totalEntries, m.totalBytes, m.crawlComplete
	doneEntries, doneBytes := m.doneEntries, m.doneBytes
	m.mu.Unlock()

	line := fmt.Sprintf("buckets: %d/%d%s done (%d ok, %d partial, %d failed, %d cancelled) | entries: %d/%d%s | bytes: %s/%s%s | %s/s",
		s.TotalBuckets, totalBuckets, plus, s.OK, s.Partial, s.Failed, s.Cancelled,
		doneEntries, totalEntries, plus,
		common.ByteSizeToString(doneBytes), common.ByteSizeToString(totalBytes), plus,
		common.ByteSizeToString(int64(rate)))

	if crawlComplete && rate > 0 {
		remaining := totalBytes - doneBytes
		if remaining > 0 {
			eta := time.Duration(float64(remaining) / rate * float64(time.Second))
			line += fmt.Sprintf(" | eta %s", eta.Round(time.Second))
		}
	}

	m.mu.Lock()
	pad := ""
	if m.prevLineLen > len(line) {
		pad = strings.Repeat(" ", m.prevLineLen-len(line))
	}
	m.prevLineLen = len(line)
	m.mu.Unlock()
	fmt.Fprintf(m.out, "\r%s%s", line, pad)
}

func (m *Monitor) printWarning(res common.BucketResult) {
	fmt.Fprintf(m.out, "\nbucket %d: %s\n", res.BucketID, res.Kind)
}

func (m *Monitor) printFinal(s Summary) {
	fmt.Fprintf(m.out, "completed %d buckets (%d ok, %d partial, %d failed, %d cancelled) - %d entries, %d bytes, %s\n",
		s.TotalBuckets, s.OK, s.Partial, s.Failed, s.Cancelled, s.TotalEntries, s.TotalBytes, s.Elapsed.Round(time.Millisecond))
	for id, tail := range s.FailedTails {
		if len(tail) == 0 {
			continue
		}
		fmt.Fprintf(m.out, "--- bucket %d stderr tail ---\n", id)
		for _, line := range tail {
			fmt.Fprintln(m.out, line)
		}
	}
}
