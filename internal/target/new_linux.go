// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import "github.com/rdbg/rgdbserver/arch"

// NewLinuxProcess wraps pid in a Process driven by the real ptrace
// backend, the only constructor callers outside this package need: the
// backend interface itself stays unexported since nothing outside target
// should implement it.
func NewLinuxProcess(pid int, a *arch.Architecture) *Process {
	return NewProcess(pid, a, newLinuxBackend())
}
