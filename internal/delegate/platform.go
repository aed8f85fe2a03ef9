// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delegate

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"

	"github.com/rdbg/rgdbserver/internal/host"
	"github.com/rdbg/rgdbserver/internal/localsock"
	"github.com/rdbg/rgdbserver/internal/rdbgerr"
	"github.com/rdbg/rgdbserver/internal/rlog"
	"github.com/rdbg/rgdbserver/internal/session"
	"go.uber.org/zap"
)

// PlatformSessionImpl is the Delegate a platform-mode server (run mode 'p'
// of spec.md component #10) uses: it owns no Target::Process, only host
// process listing, remote shell execution, and the ability to launch a
// per-debug-session gdbserver child on request.
type PlatformSessionImpl struct {
	session.UnsupportedDelegate

	log           *zap.SugaredLogger
	lister        host.ProcessLister
	gdbserverPath string
	sessionSeq    atomic.Uint64
}

// NewPlatformSessionImpl returns a Delegate serving platform-mode queries.
// gdbserverPath is the path to re-exec for qLaunchGDBServer (typically the
// running binary itself, in its 'g' run mode).
func NewPlatformSessionImpl(lister host.ProcessLister, gdbserverPath string) *PlatformSessionImpl {
	localsock.CollectGarbage()
	return &PlatformSessionImpl{
		log:           rlog.Named("platform"),
		lister:        lister,
		gdbserverPath: gdbserverPath,
	}
}

func (p *PlatformSessionImpl) ListProcesses() ([]session.ProcessSummary, error) {
	return p.lister.List()
}

func (p *PlatformSessionImpl) RemoteShell(command string) (string, error) {
	return host.Shell(command)
}

// LaunchGDBServer starts a child gdbserver bound to addr and returns its
// pid. If addr is empty, rather than asking the kernel for an ephemeral TCP
// port (whose number the child would have no way to report back without a
// rendezvous pipe), the child is given a UID/session-scoped Unix socket path
// from localsock, which this process already knows before the child even
// starts.
func (p *PlatformSessionImpl) LaunchGDBServer(addr string) (int, int, error) {
	if addr == "" {
		seq := p.sessionSeq.Add(1)
		path := localsock.SessionSocketPath(os.Getpid(), seq)
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return 0, 0, rdbgerr.New("qLaunchGDBServer", rdbgerr.KUnknown, err)
		}
		os.Remove(path)
		addr = "unix://" + path
	}
	cmd := exec.Command(p.gdbserverPath, "g", addr)
	if err := cmd.Start(); err != nil {
		return 0, 0, rdbgerr.New("qLaunchGDBServer", rdbgerr.KUnknown, err)
	}
	go cmd.Wait()
	return cmd.Process.Pid, 0, nil
}
