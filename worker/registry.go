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
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// Registry tracks every rsync child currently in flight across a Pool's
// workers, independent of the per-bucket context cancellation that Run
// already honours on its own. A Pool holds exactly one: it's what a
// double-SIGINT escalation reaches into when it needs to reap children
// that haven't noticed their own context yet.
type Registry struct {
	mu    sync.Mutex
	procs map[*exec.Cmd]struct{}
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{procs: map[*exec.Cmd]struct{}{}}
}

func (r *Registry) add(cmd *exec.Cmd) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[cmd] = struct{}{}
}

func (r *Registry) remove(cmd *exec.Cmd) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, cmd)
}

// KillAll sends SIGKILL directly to every process currently registered.
// Best effort: a child that has already exited and been removed is
// simply absent, and unix.Kill on one that has exited but is not yet
// removed is a harmless ESRCH. The lock is held for the whole sweep.
func (r *Registry) KillAll() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for cmd := range r.procs {
		signalChild(cmd, unix.SIGKILL)
	}
}
