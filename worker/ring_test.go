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

package worker

import (
	"bufio"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRingUnderCapacity(t *testing.T) {
	a := assert.New(t)
	r := newLineRing(4)
	r.push("a")
	r.push("b")
	a.Equal([]string{"a", "b"}, r.tail())
}

func TestLineRingWrapsAtCapacity(t *testing.T) {
	a := assert.New(t)
	r := newLineRing(3)
	for i := 0; i < 5; i++ {
		r.push(fmt.Sprintf("line-%d", i))
	}
	a.Equal([]string{"line-2", "line-3", "line-4"}, r.tail())
}

func TestDrainLinesFeedsRing(t *testing.T) {
	a := assert.New(t)
	r := newLineRing(10)
	scanner := bufio.NewScanner(strings.NewReader("one\ntwo\nthree\n"))
	drainLines(scanner, r)
	a.Equal([]string{"one", "two", "three"}, r.tail())
}
