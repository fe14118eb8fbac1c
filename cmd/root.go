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

// Package cmd is the thin CLI shell: it parses flags, cooks them into a
// common.Config, and hands off to pipeline.Run. It never touches a
// bucket, a child process, or the event stream directly.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bucketsync/bucketsync/common"
	"github.com/bucketsync/bucketsync/pipeline"
)

// rawFlags holds the unvalidated command-line input: the split between
// what pflag can parse directly and what needs cross-field validation
// afterwards.
type rawFlags struct {
	processes     int
	files         int
	size          string
	progress      bool
	rsyncPath     string
	rsyncOptions  string
	keepGoing     bool
	logLevel      string
	logFile       string
	selftest      bool
	bench         bool
	benchEntries  int
	benchDirWidth int
}

var flags rawFlags

// Execute builds and runs the root command against the process's real
// argv; it is the only function main calls.
func Execute() int {
	return newRootCmd().run()
}

type rootCmd struct {
	cobra *cobra.Command
	code  int
}

func newRootCmd() *rootCmd {
	rc := &rootCmd{code: pipeline.ExitOK}

	c := &cobra.Command{
		Use:   "bucketsync SOURCE DESTINATION",
		Short: "Accelerate local directory replication with concurrent rsync children",
		Long: "bucketsync partitions a local source tree into size- and count-bounded\n" +
			"buckets and dispatches one rsync child per bucket in parallel, reporting\n" +
			"unified progress back to the invoker. Neither endpoint may be remote.\n" +
			"Hardlinks are not preserved across bucket boundaries (no -H).",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.selftest {
				rc.code = RunSelftest(cmd.OutOrStdout())
				return nil
			}
			if flags.bench {
				rc.code = RunBench(cmd.OutOrStdout(), args[0], args[1])
				return nil
			}

			cfg, err := cook(args[0], args[1])
			if err != nil {
				rc.code = pipeline.ExitBadConfig
				return err
			}

			logger := buildLogger()
			code, err := pipeline.Run(context.Background(), cfg, logger)
			rc.code = code
			return err
		},
	}

	c.Flags().IntVarP(&flags.processes, "processes", "p", common.DefaultParallelism(), "worker parallelism")
	c.Flags().IntVarP(&flags.files, "files", "f", common.DefaultEntriesPerBucket, "max entries per bucket")
	c.Flags().StringVarP(&flags.size, "size", "s", "1G", "max aggregate bytes per bucket (K/M/G suffix)")
	c.Flags().BoolVarP(&flags.progress, "progress", "P", false, "enable the live progress line")
	c.Flags().StringVarP(&flags.rsyncPath, "rsync", "r", "", "path to the rsync executable (default: $RSYNC or PATH lookup)")
	c.Flags().StringVar(&flags.rsyncOptions, "rsync-options", "", "extra arguments appended verbatim to every rsync invocation")
	c.Flags().BoolVarP(&flags.keepGoing, "keep-going", "k", false, "continue after a bucket fails instead of cancelling the run")
	c.Flags().StringVar(&flags.logLevel, "log-level", "warn", "log verbosity: error, warn, info, debug")
	c.Flags().StringVar(&flags.logFile, "log-file", "", "write structured log records here instead of stderr")
	c.Flags().BoolVar(&flags.selftest, "selftest", false, "run the self-test harness instead of a sync")
	c.Flags().BoolVar(&flags.bench, "bench", false, "run the synthetic-tree benchmark instead of a sync")
	c.Flags().IntVar(&flags.benchEntries, "bench-entries", 50000, "synthetic entry count for --bench")
	c.Flags().IntVar(&flags.benchDirWidth, "bench-dir-width", 100, "synthetic directory fan-out for --bench")

	rc.cobra = c
	return rc
}

func (rc *rootCmd) run() int {
	if err := rc.cobra.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bucketsync:", err)
		if rc.code == pipeline.ExitOK {
			rc.code = pipeline.ExitBadConfig
		}
	}
	return rc.code
}

// cook validates the raw flags and positional arguments into an
// immutable common.Config.
func cook(source, destination string) (common.Config, error) {
	if common.IsRemotePath(source) || common.IsRemotePath(destination) {
		return common.Config{}, errors.New("bucketsync is local-to-local only; neither endpoint may be remote")
	}
	info, err := os.Stat(source)
	if err != nil {
		return common.Config{}, errors.Wrapf(err, "source %q is not reachable", source)
	}
	if !info.IsDir() {
		return common.Config{}, errors.Errorf("source %q is not a directory", source)
	}

	if flags.processes < 1 {
		return common.Config{}, errors.Errorf("--processes must be >= 1, got %d", flags.processes)
	}
	if flags.files < 1 {
		return common.Config{}, errors.Errorf("--files must be >= 1, got %d", flags.files)
	}
	bytesPerBucket, err := common.ParseByteSize(flags.size)
	if err != nil {
		return common.Config{}, errors.Wrap(err, "--size")
	}
	if bytesPerBucket < 1 {
		return common.Config{}, errors.Errorf("--size must be >= 1 byte, got %q", flags.size)
	}

	var extra []string
	if strings.TrimSpace(flags.rsyncOptions) != "" {
		extra = strings.Fields(flags.rsyncOptions)
	}

	return common.Config{
		Source:           source,
		Destination:      destination,
		Parallelism:      flags.processes,
		EntriesPerBucket: flags.files,
		BytesPerBucket:   bytesPerBucket,
		Progress:         flags.progress,
		KeepGoing:        flags.keepGoing,
		RsyncPath:        flags.rsyncPath,
		ExtraRsyncArgs:   extra,
	}, nil
}

func buildLogger() common.ILogger {
	level := parseLogLevel(flags.logLevel)
	w := os.Stderr
	if flags.logFile != "" {
		if f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			return common.NewLogger(f, level)
		}
	}
	return common.NewLogger(w, level)
}

func parseLogLevel(s string) common.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return common.ELogLevel.Error()
	case "info":
		return common.ELogLevel.Info()
	case "debug":
		return common.ELogLevel.Debug()
	default:
		return common.ELogLevel.Warn()
	}
}
