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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseByteSize(t *testing.T) {
	a := assert.New(t)

	v, err := ParseByteSize("512")
	a.NoError(err)
	a.EqualValues(512, v)

	v, err = ParseByteSize("64K")
	a.NoError(err)
	a.EqualValues(64*1024, v)

	v, err = ParseByteSize("4M")
	a.NoError(err)
	a.EqualValues(4*1024*1024, v)

	v, err = ParseByteSize("1G")
	a.NoError(err)
	a.EqualValues(1*1024*1024*1024, v)

	v, err = ParseByteSize("1.5K")
	a.NoError(err)
	a.EqualValues(1536, v)

	_, err = ParseByteSize("")
	a.Error(err)

	_, err = ParseByteSize("-1")
	a.Error(err)

	_, err = ParseByteSize("nope")
	a.Error(err)
}

func TestIsRemotePath(t *testing.T) {
	a := assert.New(t)

	a.False(IsRemotePath("/home/user/data"))
	a.False(IsRemotePath("relative/path"))
	a.False(IsRemotePath(`C:\Users\data`))
	a.True(IsRemotePath("host:path/to/dir"))
	a.True(IsRemotePath("user@host:/var/data"))
}

func TestComputeParallelism(t *testing.T) {
	a := assert.New(t)

	t.Setenv("BUCKETSYNC_CONCURRENCY", "7")
	a.Equal(7, ComputeParallelism(4))

	t.Setenv("BUCKETSYNC_CONCURRENCY", "")
	a.Equal(4, ComputeParallelism(4))
	a.Equal(1, ComputeParallelism(0))
}

func TestKindOfWrapsTaggedError(t *testing.T) {
	a := assert.New(t)

	err := NewError(EErrorKind.Config(), "bad config")
	a.Equal(EErrorKind.Config(), KindOf(err))

	wrapped := WrapError(EErrorKind.SpawnFailure(), err, "while spawning")
	a.Equal(EErrorKind.SpawnFailure(), KindOf(wrapped))

	a.Equal(EErrorKind.Internal(), KindOf(assert.AnError))
}
