// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rsp

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Address is a 64-bit target address with a Valid flag distinguishing
// "unset" from the value 0, per spec.md §3.
type Address struct {
	Value uint64
	Valid bool
}

// FormatBigEndian renders addr as big-endian hex with leading zeros,
// padded to byteWidth bytes (2*byteWidth hex digits) — used by handlers
// that the wire documents as big-endian, per spec.md §3 and §4.4.
func FormatBigEndian(addr uint64, byteWidth int) string {
	return fmt.Sprintf("%0*x", byteWidth*2, addr)
}

// FormatNativeEndian renders addr in the process's native byte order, with
// pointerSize bytes (2*pointerSize hex nibbles), per spec.md §3.
func FormatNativeEndian(addr uint64, pointerSize int, order binary.ByteOrder) string {
	buf := make([]byte, pointerSize)
	switch pointerSize {
	case 4:
		order.PutUint32(buf, uint32(addr))
	case 8:
		order.PutUint64(buf, addr)
	default:
		panic("unsupported pointer size")
	}
	out := make([]byte, 0, pointerSize*2)
	for _, b := range buf {
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}

// ParseAddress parses a big-endian (or plain, leading-zero-stripped) hex
// address as used by most RSP handlers (e.g. "m<addr>,<len>").
func ParseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return v, nil
}
