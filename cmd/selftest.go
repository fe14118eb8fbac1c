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

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bucketsync/bucketsync/common"
	"github.com/bucketsync/bucketsync/pipeline"
)

// RunSelftest drives a handful of small synthetic syncs through a real
// temporary source and destination tree and reports pass/fail. It
// drives the core the same way any external caller would: through
// pipeline.Run's documented config-in/exit-code-out interface, never
// by reaching into crawler/partitioner/worker internals.
func RunSelftest(out io.Writer) int {
	cases := []struct {
		name    string
		build   func(root string) error
		entries int
	}{
		{"empty-tree", func(string) error { return nil }, 0},
		{"flat-files", buildFlatFiles, 5},
		{"nested-dirs", buildNestedDirs, 12},
	}

	failed := 0
	for _, tc := range cases {
		if err := runSelftestCase(tc.name, tc.build); err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", tc.name, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "PASS %s\n", tc.name)
	}

	if failed > 0 {
		fmt.Fprintf(out, "%d/%d cases failed\n", failed, len(cases))
		return pipeline.ExitBucketFailure
	}
	fmt.Fprintln(out, "all selftest cases passed")
	return pipeline.ExitOK
}

func runSelftestCase(name string, build func(root string) error) error {
	root, err := os.MkdirTemp("", "bucketsync-selftest-"+name+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(root)

	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0o755); err != nil {
		return err
	}
	if err := build(src); err != nil {
		return err
	}

	cfg := common.Config{
		Source:           src,
		Destination:      dst,
		Parallelism:      2,
		EntriesPerBucket: 4,
		BytesPerBucket:   common.DefaultBytesPerBucket,
		RsyncPath:        common.DefaultRsyncExecutable(),
	}

	code, err := pipeline.Run(context.Background(), cfg, common.NopLogger())
	if err != nil {
		return err
	}
	if code != pipeline.ExitOK {
		return fmt.Errorf("pipeline exited %d", code)
	}
	return nil
}

func buildFlatFiles(root string) error {
	for i := 0; i < 5; i++ {
		name := filepath.Join(root, fmt.Sprintf("file-%d.txt", i))
		if err := os.WriteFile(name, []byte("selftest content\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func buildNestedDirs(root string) error {
	for i := 0; i < 3; i++ {
		sub := filepath.Join(root, fmt.Sprintf("dir-%d", i))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return err
		}
		for j := 0; j < 3; j++ {
			name := filepath.Join(sub, fmt.Sprintf("file-%d.txt", j))
			if err := os.WriteFile(name, []byte("nested\n"), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
