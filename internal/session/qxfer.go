// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"strconv"
	"strings"

	"github.com/rdbg/rgdbserver/internal/rdbgerr"
)

// handleQXfer implements "qXfer:<object>:read:<annex>:<off>,<len>" per
// spec.md §4.4: a chunked, restartable read of one of features/auxv/
// libraries/libraries-svr4/threads. The reply is "m<chunk>" if more data
// remains, "l<chunk>" for the final piece — paging is this handler's
// responsibility, not the delegate's.
func (s *Session) handleQXfer(_ string, args string) string {
	fields := strings.SplitN(args, ":", 4)
	if len(fields) != 4 || fields[1] != "read" {
		return ""
	}
	object, annex, rangeStr := fields[0], fields[2], fields[3]
	offStr, lenStr, ok := strings.Cut(rangeStr, ",")
	if !ok {
		return s.errReply(rdbgerr.New("qXfer", rdbgerr.KInvalidArgument, nil))
	}
	off, err1 := strconv.ParseInt(offStr, 16, 64)
	length, err2 := strconv.ParseInt(lenStr, 16, 64)
	if err1 != nil || err2 != nil {
		return s.errReply(rdbgerr.New("qXfer", rdbgerr.KInvalidArgument, nil))
	}

	var data []byte
	var err error
	switch object {
	case "features":
		data, err = s.delegate.ReadFeaturesXML()
	case "auxv":
		data, err = s.delegate.ReadAuxiliaryVector()
	case "libraries":
		data, err = s.delegate.ReadLibraries()
	case "libraries-svr4":
		data, err = s.delegate.ReadLibrariesSVR4()
	case "threads":
		data, err = s.readThreadsXML()
	default:
		return ""
	}
	if err != nil {
		return s.errReply(err)
	}
	_ = annex // most objects ignore the annex; kept for handlers that need it

	return pageXferChunk(data, off, length)
}

func pageXferChunk(data []byte, off, length int64) string {
	if off >= int64(len(data)) {
		return "l"
	}
	end := off + length
	more := end < int64(len(data))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	prefix := "l"
	if more {
		prefix = "m"
	}
	return prefix + string(data[off:end])
}

func (s *Session) readThreadsXML() ([]byte, error) {
	tids, err := s.delegate.ListThreads()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("<threads>")
	for _, t := range tids {
		b.WriteString("<thread id=\"")
		b.WriteString(t.Format(s.mode()))
		b.WriteString("\"/>")
	}
	b.WriteString("</threads>")
	return []byte(b.String()), nil
}

// handleQSupported implements "qSupported[:<client-features>]", per
// spec.md §4.4: negotiates PacketSize, no-ack mode, qXfer:features, and
// upgrades compatMode to GDBMultiprocess when the client offers
// "multiprocess+".
func (s *Session) handleQSupported(_ string, args string) string {
	if strings.Contains(args, "multiprocess+") {
		s.upgradeToMultiprocess()
	}
	features := []string{
		"PacketSize=3fff",
		"QStartNoAckMode+",
		"qXfer:features:read+",
		"qXfer:libraries:read+",
		"qXfer:libraries-svr4:read+",
		"qXfer:auxv:read+",
		"qXfer:threads:read+",
		"QListThreadsInStopReply+",
		"QThreadSuffixSupported+",
		"QPassSignals+",
		"multiprocess+",
	}
	return strings.Join(features, ";")
}

func (s *Session) handleStartNoAckMode(string, string) string {
	s.disableAck()
	return "OK"
}
