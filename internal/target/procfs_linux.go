// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package target

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AuxiliaryVector reads /proc/<pid>/auxv, the key/value pairs spec.md §3/§4.6
// and the GLOSSARY describe.
func (b *linuxBackend) AuxiliaryVector(pid int) (map[uint64]uint64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/auxv", pid))
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]uint64)
	for i := 0; i+16 <= len(data); i += 16 {
		key := binary.LittleEndian.Uint64(data[i:])
		val := binary.LittleEndian.Uint64(data[i+8:])
		if key == 0 { // AT_NULL terminator
			break
		}
		out[key] = val
	}
	return out, nil
}

// MemoryRegions parses /proc/<pid>/maps into spec.md §4.6's region list.
func (b *linuxBackend) MemoryRegions(pid int) ([]MemoryRegion, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var regions []MemoryRegion
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		r, ok := parseMapsLine(sc.Text())
		if ok {
			regions = append(regions, r)
		}
	}
	return regions, sc.Err()
}

// parseMapsLine parses one /proc/<pid>/maps line:
// "start-end perms offset dev inode [path]".
func parseMapsLine(line string) (MemoryRegion, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MemoryRegion{}, false
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return MemoryRegion{}, false
	}
	start, err1 := strconv.ParseUint(addrs[0], 16, 64)
	end, err2 := strconv.ParseUint(addrs[1], 16, 64)
	if err1 != nil || err2 != nil {
		return MemoryRegion{}, false
	}
	perms := fields[1]
	offset, _ := strconv.ParseUint(fields[2], 16, 64)
	inode, _ := strconv.ParseUint(fields[4], 10, 64)

	r := MemoryRegion{
		Start:  start,
		Length: end - start,
		Read:   strings.Contains(perms, "r"),
		Write:  strings.Contains(perms, "w"),
		Exec:   strings.Contains(perms, "x"),
		Offset: offset,
		Inode:  inode,
	}
	if len(fields) >= 6 {
		r.BackingFile = fields[5]
	}
	return r, true
}
