// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rdbgerr defines the closed set of error kinds the debug server can
// report to a remote client, and the wire-level mapping from a Kind to the
// two hex digits of an "E<hh>" reply.
package rdbgerr

import "fmt"

// Kind is one of the error kinds the wire protocol can represent.
type Kind int

const (
	KSuccess Kind = iota
	KNoPermission
	KNotFound
	KProcessNotFound
	KInterrupted
	KInvalidHandle
	KNoMemory
	KAccessDenied
	KInvalidAddress
	KBusy
	KAlreadyExist
	KNoDevice
	KNotDirectory
	KIsDirectory
	KInvalidArgument
	KTooManySystemFiles
	KTooManyFiles
	KFileTooBig
	KNoSpace
	KInvalidSeek
	KNotWriteable
	KNameTooLong
	KUnknown
	KUnsupported
)

var kindNames = [...]string{
	"Success", "NoPermission", "NotFound", "ProcessNotFound", "Interrupted",
	"InvalidHandle", "NoMemory", "AccessDenied", "InvalidAddress", "Busy",
	"AlreadyExist", "NoDevice", "NotDirectory", "IsDirectory",
	"InvalidArgument", "TooManySystemFiles", "TooManyFiles", "FileTooBig",
	"NoSpace", "InvalidSeek", "NotWriteable", "NameTooLong", "Unknown",
	"Unsupported",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Error wraps an underlying cause with a Kind that determines the wire reply.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for op with the given kind, optionally wrapping err.
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind carried by err, defaulting to KUnknown for a
// plain error and KSuccess for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KSuccess
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KUnknown
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
