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

package partition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bucketsync/bucketsync/common"
)

type fakeEmitter struct {
	buckets []common.Bucket
}

func (f *fakeEmitter) Emit(_ context.Context, b common.Bucket) error {
	f.buckets = append(f.buckets, b)
	return nil
}

func regularEntry(name string, size int64) common.Entry {
	return common.Entry{RelPath: name, Size: size, Kind: common.EEntryKind.Regular()}
}

func TestPartitionerSealsOnEntryCount(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	emitter := &fakeEmitter{}
	p := New(2, 1<<30, emitter)

	a.NoError(p.Add(ctx, regularEntry("a", 10)))
	a.NoError(p.Add(ctx, regularEntry("b", 10)))
	a.NoError(p.Add(ctx, regularEntry("c", 10))) // exceeds count, seals first bucket

	a.NoError(p.Flush(ctx))

	if a.Len(emitter.buckets, 2) {
		a.Equal(2, emitter.buckets[0].Count())
		a.Equal(1, emitter.buckets[1].Count())
		a.Equal(1, emitter.buckets[0].ID)
		a.Equal(2, emitter.buckets[1].ID)
		a.True(emitter.buckets[0].Sealed)
	}
}

func TestPartitionerSealsOnByteSize(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	emitter := &fakeEmitter{}
	p := New(1000, 100, emitter)

	a.NoError(p.Add(ctx, regularEntry("a", 60)))
	a.NoError(p.Add(ctx, regularEntry("b", 60))) // 120 > 100, seals first

	a.NoError(p.Flush(ctx))

	if a.Len(emitter.buckets, 2) {
		a.EqualValues(60, emitter.buckets[0].Bytes)
		a.EqualValues(60, emitter.buckets[1].Bytes)
	}
}

func TestPartitionerOversizeSingleton(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	emitter := &fakeEmitter{}
	p := New(1000, 100, emitter)

	a.NoError(p.Add(ctx, regularEntry("huge", 500))) // exceeds max alone, still accepted
	a.NoError(p.Add(ctx, regularEntry("next", 10)))  // forces the oversize entry to seal alone

	a.NoError(p.Flush(ctx))

	if a.Len(emitter.buckets, 2) {
		a.Equal(1, emitter.buckets[0].Count())
		a.EqualValues(500, emitter.buckets[0].Bytes)
	}
}

func TestPartitionerDirectoriesContributeZeroBytes(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	emitter := &fakeEmitter{}
	p := New(1000, 100, emitter)

	dir := common.Entry{RelPath: "sub", Kind: common.EEntryKind.Directory()}
	a.NoError(p.Add(ctx, dir))
	a.NoError(p.Flush(ctx))

	if a.Len(emitter.buckets, 1) {
		a.Equal(1, emitter.buckets[0].Count())
		a.EqualValues(0, emitter.buckets[0].Bytes)
	}
}

func TestPartitionerFlushOnEmptyIsNoop(t *testing.T) {
	a := assert.New(t)
	emitter := &fakeEmitter{}
	p := New(10, 100, emitter)

	a.NoError(p.Flush(context.Background()))
	a.Empty(emitter.buckets)
}
