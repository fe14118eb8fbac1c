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
	"fmt"
	"io"
	"log"
	"reflect"
	"sync"

	"github.com/JeffreyRichter/enum/enum"
)

var ELogLevel = LogLevel(0)

// LogLevel orders log severities; lower is more severe, so a
// "ShouldLog" comparison reads naturally ("level <= ELogLevel.Warn()").
type LogLevel uint8

func (LogLevel) Error() LogLevel { return LogLevel(0) }
func (LogLevel) Warn() LogLevel  { return LogLevel(1) }
func (LogLevel) Info() LogLevel  { return LogLevel(2) }
func (LogLevel) Debug() LogLevel { return LogLevel(3) }

func (l LogLevel) String() string {
	return enum.StringInt(l, reflect.TypeOf(l))
}

// ILogger is the logging seam used by the pipeline. Only pipeline.Run
// and the Monitor hold one; neither ever calls log.Fatal or os.Exit.
type ILogger interface {
	ShouldLog(level LogLevel) bool
	Log(level LogLevel, msg string)
}

// NewLogger builds a leveled logger writing to w.
func NewLogger(w io.Writer, minLevel LogLevel) ILogger {
	return &stdLogger{
		minLevel: minLevel,
		inner:    log.New(w, "", log.LstdFlags),
	}
}

type stdLogger struct {
	mu       sync.Mutex
	minLevel LogLevel
	inner    *log.Logger
}

func (l *stdLogger) ShouldLog(level LogLevel) bool {
	return level <= l.minLevel
}

func (l *stdLogger) Log(level LogLevel, msg string) {
	if !l.ShouldLog(level) {
		return
	}
	prefix := ""
	if level <= ELogLevel.Warn() {
		prefix = fmt.Sprintf("%s: ", level) // so warnings/errors stand out, info stays uncluttered
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Print(prefix + msg)
}

// Logf is a convenience formatting helper over ILogger.Log.
func Logf(logger ILogger, level LogLevel, format string, args ...interface{}) {
	if logger == nil || !logger.ShouldLog(level) {
		return
	}
	logger.Log(level, fmt.Sprintf(format, args...))
}

// NopLogger discards everything; used by tests that don't care about logs.
func NopLogger() ILogger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) ShouldLog(LogLevel) bool { return false }
func (nopLogger) Log(LogLevel, string)    {}
