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

	"github.com/JeffreyRichter/enum/enum"
)

var EEntryKind = EntryKind(0)

// EntryKind classifies what the crawler found at a given path.
type EntryKind uint8

func (EntryKind) Regular() EntryKind   { return EntryKind(0) }
func (EntryKind) Directory() EntryKind { return EntryKind(1) }
func (EntryKind) Symlink() EntryKind   { return EntryKind(2) }
func (EntryKind) Other() EntryKind     { return EntryKind(3) }

func (k EntryKind) String() string {
	return enum.StringInt(k, reflect.TypeOf(k))
}

// Entry is an immutable record describing one filesystem object discovered
// by the crawl. Its path is relative to the source root, byte-exact as
// returned by the filesystem (no normalisation).
type Entry struct {
	RelPath string
	Size    int64 // 0 for non-regular entries
	Kind    EntryKind
}

// IsRegular reports whether this entry counts toward a bucket's byte total.
func (e Entry) IsRegular() bool {
	return e.Kind == EEntryKind.Regular()
}
