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
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	DefaultEntriesPerBucket = 1000
	DefaultBytesPerBucket   = 1 << 30 // 1 GiB
	DefaultRsyncPath        = "rsync"
)

// BaseRsyncArgs are prepended to every child invocation. -H (hardlinks) is
// deliberately absent: preserving hardlinks across bucket boundaries would
// require cross-bucket bookkeeping this tool does not do, so hardlinked
// files are duplicated. -S (sparse) stays on by default to match existing
// behaviour; pass --rsync-options=--no-sparse to override it for
// destinations (e.g. tmpfs) where sparse detection is undesirable.
var BaseRsyncArgs = []string{"-aS", "--numeric-ids"}

// Config is the immutable, validated configuration for one run.
type Config struct {
	Source      string
	Destination string

	Parallelism     int
	EntriesPerBucket int
	BytesPerBucket  int64

	Progress bool
	KeepGoing bool

	RsyncPath      string
	ExtraRsyncArgs []string
}

// ComputeParallelism returns the configured worker count: the
// BUCKETSYNC_CONCURRENCY environment variable if set and valid, otherwise
// numCPU.
func ComputeParallelism(numCPU int) int {
	if override := os.Getenv("BUCKETSYNC_CONCURRENCY"); override != "" {
		if val, err := strconv.Atoi(override); err == nil && val > 0 {
			return val
		}
	}
	if numCPU < 1 {
		return 1
	}
	return numCPU
}

// DefaultRsyncExecutable consults the RSYNC environment variable, falling
// back to "rsync" resolved via PATH.
func DefaultRsyncExecutable() string {
	if v := os.Getenv("RSYNC"); v != "" {
		return v
	}
	return DefaultRsyncPath
}

// ParseByteSize parses a size string with an optional K/M/G suffix,
// base-1024 (e.g. "512", "64K", "4M", "1G"). It is the mirror image of
// byte-to-string rendering: where a renderer picks the largest unit that
// keeps the number readable, this picks the multiplier named by the
// trailing letter.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, NewError(EErrorKind.Config(), "empty size value")
	}

	multiplier := int64(1)
	unit := s[len(s)-1]
	numPart := s
	switch unit {
	case 'k', 'K':
		multiplier = 1 << 10
		numPart = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1 << 20
		numPart = s[:len(s)-1]
	case 'g', 'G':
		multiplier = 1 << 30
		numPart = s[:len(s)-1]
	}

	val, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, WrapError(EErrorKind.Config(), err, "invalid size %q", s)
	}
	if val < 0 {
		return 0, NewError(EErrorKind.Config(), "size %q must not be negative", s)
	}
	return int64(val * float64(multiplier)), nil
}

// IsRemotePath reports whether p looks like a remote (host:path) rsync
// endpoint rather than a local path. Windows drive letters ("C:\...")
// are not remote specs, so a single-letter prefix before the colon is
// excluded.
func IsRemotePath(p string) bool {
	idx := strings.IndexByte(p, ':')
	if idx <= 0 {
		return false
	}
	// "C:" or "C:\..." - a Windows drive letter, not a remote host.
	if idx == 1 && isAsciiLetter(p[0]) {
		return false
	}
	return true
}

func isAsciiLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// DefaultParallelism is a convenience wrapper around ComputeParallelism
// using the live CPU count.
func DefaultParallelism() int {
	return ComputeParallelism(runtime.NumCPU())
}
