// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LinkMap lists the loaded objects by enumerating the distinct backing files
// in /proc/<pid>/maps, each with the start of its first mapping as LoadBase
// and the file /proc/<pid>/exe points at marked as the main executable, per
// spec.md §4.6. It does not locate the ELF dynamic section or walk the
// dynamic linker's DT_DEBUG -> r_debug.r_map chain.
//
// Returns a KBusy-classified error (via the caller in process.go) if no
// backing files are mapped yet, matching spec.md §7's "link-map not yet
// populated" local-recovery case.
func (b *linuxBackend) LinkMap(pid int) ([]SharedLibrary, error) {
	regions, err := b.MemoryRegions(pid)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var libs []SharedLibrary
	exePath, _ := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))

	for _, r := range regions {
		if r.BackingFile == "" || strings.HasPrefix(r.BackingFile, "[") {
			continue
		}
		if seen[r.BackingFile] {
			continue
		}
		seen[r.BackingFile] = true
		libs = append(libs, SharedLibrary{
			Name:             r.BackingFile,
			LoadBase:         r.Start,
			IsMainExecutable: exePath != "" && filepath.Clean(r.BackingFile) == filepath.Clean(exePath),
		})
	}
	if len(libs) == 0 {
		return nil, fmt.Errorf("link-map not yet populated")
	}
	return libs, nil
}
