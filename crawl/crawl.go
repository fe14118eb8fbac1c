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

// Package crawl performs the single depth-first walk of a source tree.
//
// There is no destination traversal to race against - rsync itself owns
// that comparison - so a single goroutine with an explicit LIFO of
// pending directories is enough. It is fused directly with the
// partitioner fold so there is no intermediate channel between "stat a
// child" and "it lands in a bucket".
package crawl

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/bucketsync/bucketsync/common"
)

// Sink receives Entries in crawl (pre-)order. The partitioner implements
// this interface; tests can substitute a slice-collecting fake.
type Sink interface {
	Add(ctx context.Context, e common.Entry) error
}

// Warner is notified of a recoverable crawl error: an unreadable
// directory or a failed per-child stat. The subtree is skipped, the run
// continues.
type Warner func(path string, err error)

// pendingDir is a directory discovered during the walk but not yet
// expanded. relPath is "" for the source root itself.
type pendingDir struct {
	relPath string
	absPath string
}

// Walk performs one single-pass, pre-order traversal of root, feeding
// every discovered Entry to sink in crawl order, and returns after the
// walk completes, is cancelled, or the root itself cannot be read.
//
// The root itself is emitted first, as an Entry with RelPath ".", before
// any of its children - the root is "." relative to itself, the same
// way rsync's own --files-from accepts it, and every other Entry's
// RelPath is relative to that same root. Directories are otherwise fed
// to sink before their children (their Entry is produced when the
// parent directory is listed, before the directory itself is ever
// expanded) so that a partitioner can place an empty-directory marker
// into whichever bucket needs it. Symlinks are recorded as their own
// Entry and never traversed into.
func Walk(ctx context.Context, root string, reader DirReader, sink Sink, warn Warner) error {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return common.WrapError(common.EErrorKind.Config(), err, "source root %q is not reachable", root)
	}
	if !rootInfo.IsDir() {
		return common.NewError(common.EErrorKind.Config(), "source root %q is not a directory", root)
	}

	if err := sink.Add(ctx, common.Entry{RelPath: ".", Kind: common.EEntryKind.Directory()}); err != nil {
		return common.WrapError(common.EErrorKind.Internal(), err, "bucketing root %q", root)
	}

	stack := []pendingDir{{relPath: "", absPath: root}}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return common.WrapError(common.EErrorKind.Cancelled(), ctx.Err(), "crawl cancelled")
		}

		// pop from the end: depth-first, matching the filesystem's own
		// traversal order rather than an artificially sorted one.
		last := len(stack) - 1
		dir := stack[last]
		stack = stack[:last]

		children, err := listDir(dir.absPath, reader)
		if err != nil {
			warn(dir.relPath, err)
			continue // subtree skipped, run continues
		}

		for _, info := range children {
			childRel := filepath.Join(dir.relPath, info.Name())
			childAbs := filepath.Join(dir.absPath, info.Name())

			entry := common.Entry{RelPath: childRel}
			switch {
			case info.Mode()&os.ModeSymlink != 0:
				entry.Kind = common.EEntryKind.Symlink()
			case info.IsDir():
				entry.Kind = common.EEntryKind.Directory()
			case info.Mode().IsRegular():
				entry.Kind = common.EEntryKind.Regular()
				entry.Size = info.Size()
			default:
				entry.Kind = common.EEntryKind.Other()
			}

			if err := sink.Add(ctx, entry); err != nil {
				return common.WrapError(common.EErrorKind.Internal(), err, "bucketing %q", childRel)
			}

			// symlinks are recorded but never traversed into
			if entry.Kind == common.EEntryKind.Directory() {
				stack = append(stack, pendingDir{relPath: childRel, absPath: childAbs})
			}
		}
	}

	return nil
}

func listDir(absPath string, reader DirReader) ([]os.FileInfo, error) {
	d, err := os.Open(absPath)
	if err != nil {
		return nil, common.WrapError(common.EErrorKind.CrawlWarning(), err, "open %q", absPath)
	}
	defer d.Close()

	var all []os.FileInfo
	for {
		batch, err := reader.Readdir(d, dirReadChunk)
		all = append(all, batch...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.WrapError(common.EErrorKind.CrawlWarning(), err, "readdir %q", absPath)
		}
		if len(batch) == 0 {
			break
		}
	}
	return all, nil
}
