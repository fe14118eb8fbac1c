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
	"errors"
	"reflect"

	"github.com/JeffreyRichter/enum/enum"
	pkgerrors "github.com/pkg/errors"
)

var EErrorKind = ErrorKind(0)

// ErrorKind is the run-level error taxonomy: config problems, recoverable
// crawl warnings, child spawn failures, nonzero child exits, cancellation,
// and internal invariant violations.
type ErrorKind uint8

func (ErrorKind) Config() ErrorKind       { return ErrorKind(0) }
func (ErrorKind) CrawlWarning() ErrorKind { return ErrorKind(1) }
func (ErrorKind) SpawnFailure() ErrorKind { return ErrorKind(2) }
func (ErrorKind) ChildNonzero() ErrorKind { return ErrorKind(3) }
func (ErrorKind) Cancelled() ErrorKind    { return ErrorKind(4) }
func (ErrorKind) Internal() ErrorKind     { return ErrorKind(5) }

func (k ErrorKind) String() string {
	return enum.StringInt(k, reflect.TypeOf(k))
}

// TaggedError attaches an ErrorKind to an underlying, possibly wrapped, error.
type TaggedError struct {
	Kind ErrorKind
	err  error
}

func (e *TaggedError) Error() string { return e.err.Error() }
func (e *TaggedError) Unwrap() error { return e.err }
func (e *TaggedError) Cause() error  { return pkgerrors.Cause(e.err) }

// NewError tags a freshly-formatted error with a Kind.
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	return &TaggedError{Kind: kind, err: pkgerrors.Errorf(format, args...)}
}

// WrapError tags err (attaching context via format/args) with a Kind,
// preserving err as the underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &TaggedError{Kind: kind, err: pkgerrors.Wrapf(err, format, args...)}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is
// a *TaggedError, defaulting to Internal when no tag is present.
func KindOf(err error) ErrorKind {
	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return EErrorKind.Internal()
}
