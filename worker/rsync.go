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

// Package worker runs one rsync child per bucket and classifies its
// outcome. The spawn-and-reap choreography (StdinPipe -> Start -> a
// background stderr drain -> Wait) is the standard way to run a CLI
// child process end to end and capture its output without risking a
// deadlock on a full pipe.
package worker

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bucketsync/bucketsync/common"
)

// killGrace is how long a cancelled child is given to exit cleanly after
// SIGTERM before being sent SIGKILL.
const killGrace = 5 * time.Second

// BuildArgs synthesizes the argument vector for one bucket's rsync
// invocation. The trailing slash on the source is load-bearing: it tells
// rsync to copy the directory's *contents*, not nest a same-named
// directory under the destination, which is what lets many buckets'
// writes compose into one coherent destination tree. --files-from=-,
// --from0, and the trailing-slash source/destination pair are the
// rsync-level contract this tool relies on; callers must not let
// --rsync-options override any of them.
func BuildArgs(cfg common.Config) []string {
	args := make([]string, 0, len(common.BaseRsyncArgs)+len(cfg.ExtraRsyncArgs)+4)
	args = append(args, common.BaseRsyncArgs...)
	args = append(args, cfg.ExtraRsyncArgs...)
	args = append(args, "--files-from=-", "--from0")
	args = append(args, ensureTrailingSlash(cfg.Source), cfg.Destination)
	return args
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// Result bundles what Run observed about one bucket's child process.
type Result struct {
	ExitCode   int
	StderrTail []string
	SpawnErr   error
}

// Run spawns one rsync child for bucket, feeds it bucket's relative
// paths over stdin (NUL-separated, matching --from0), waits for it, and
// reports the outcome. ctx cancellation is honoured between writing
// stdin lines and while waiting: the child is sent SIGTERM, given
// killGrace to exit, then SIGKILL. If reg is non-nil, the child is
// registered with it for the duration of the call so a concurrent
// Registry.KillAll (a double-SIGINT escalation) can reach it directly,
// independent of ctx. reg may be nil, in which case no such registration
// happens.
func Run(ctx context.Context, cfg common.Config, bucket common.Bucket, reg *Registry) Result {
	rsyncPath := cfg.RsyncPath
	if rsyncPath == "" {
		rsyncPath = common.DefaultRsyncExecutable()
	}

	cmd := exec.Command(rsyncPath, BuildArgs(cfg)...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return Result{ExitCode: -1, SpawnErr: common.WrapError(common.EErrorKind.SpawnFailure(), err, "create stdin pipe for bucket %d", bucket.ID)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1, SpawnErr: common.WrapError(common.EErrorKind.SpawnFailure(), err, "create stderr pipe for bucket %d", bucket.ID)}
	}
	cmd.Stdout = io.Discard // rsync's stdout carries no information we need without -v

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, SpawnErr: common.WrapError(common.EErrorKind.SpawnFailure(), err, "spawn rsync for bucket %d", bucket.ID)}
	}
	reg.add(cmd)
	defer reg.remove(cmd)

	ring := newLineRing(stderrRingSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		drainLines(bufio.NewScanner(stderrPipe), ring)
	}()

	writeErr := feedFileList(ctx, stdinPipe, bucket)
	_ = stdinPipe.Close()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-ctx.Done():
		waitErr = killWithGrace(cmd, waitDone)
	}
	<-done // make sure stderr is fully drained before reading the ring

	if writeErr != nil && waitErr == nil {
		waitErr = writeErr
	}

	return Result{ExitCode: exitCodeOf(waitErr), StderrTail: ring.tail()}
}

// feedFileList writes bucket's relative paths to w, NUL-terminated to
// match --from0, checking ctx between lines so a cancelled run doesn't
// keep writing to a child that's about to be killed.
func feedFileList(ctx context.Context, w interface{ Write([]byte) (int, error) }, bucket common.Bucket) error {
	for _, e := range bucket.Entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.Write([]byte(filepath.ToSlash(e.RelPath))); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

func killWithGrace(cmd *exec.Cmd, waitDone <-chan error) error {
	signalChild(cmd, unix.SIGTERM)
	select {
	case err := <-waitDone:
		return err
	case <-time.After(killGrace):
	}
	signalChild(cmd, unix.SIGKILL)
	return <-waitDone
}

// signalChild delivers sig directly via unix.Kill rather than
// (*os.Process).Signal, keeping signal delivery on the same
// golang.org/x/sys/unix surface used elsewhere for OS-specific process
// control.
func signalChild(cmd *exec.Cmd, sig unix.Signal) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Kill(cmd.Process.Pid, sig)
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
