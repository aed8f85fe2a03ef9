// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delegate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rdbg/rgdbserver/internal/session"
)

// ReadFeaturesXML renders a minimal target-description document for
// qXfer:features:read:target.xml, naming the architecture's pointer width
// so a client can size register payloads; the register table itself
// stays out of scope per spec.md §1.
func (d *DebugSessionImpl) ReadFeaturesXML() ([]byte, error) {
	doc := fmt.Sprintf(
		`<?xml version="1.0"?><target version="1.0"><architecture>%s</architecture></target>`,
		archName(d.arch.PointerSize))
	return []byte(doc), nil
}

func archName(pointerSize int) string {
	if pointerSize == 8 {
		return "i386:x86-64"
	}
	return "i386"
}

func (d *DebugSessionImpl) ReadAuxiliaryVector() ([]byte, error) {
	p, err := d.process()
	if err != nil {
		return nil, err
	}
	av, err := p.AuxiliaryVector()
	if err != nil {
		return nil, err
	}
	keys := make([]uint64, 0, len(av))
	for k := range av {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buf := make([]byte, 0, len(av)*16)
	for _, k := range keys {
		buf = append(buf, encodeLE64(k)...)
		buf = append(buf, encodeLE64(av[k])...)
	}
	return buf, nil
}

func encodeLE64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func (d *DebugSessionImpl) librariesXML(svr4 bool) ([]byte, error) {
	p, err := d.process()
	if err != nil {
		return nil, err
	}
	libs, err := p.SharedLibraries()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	root := "library-list"
	if svr4 {
		root = "library-list-svr4"
	}
	fmt.Fprintf(&b, "<%s>", root)
	for _, l := range libs {
		fmt.Fprintf(&b, `<library name=%q><section address="0x%x"/></library>`, l.Name, l.LoadBase)
	}
	fmt.Fprintf(&b, "</%s>", root)
	return []byte(b.String()), nil
}

func (d *DebugSessionImpl) ReadLibraries() ([]byte, error)     { return d.librariesXML(false) }
func (d *DebugSessionImpl) ReadLibrariesSVR4() ([]byte, error) { return d.librariesXML(true) }

// Offsets reports the load-bias offsets for qOffsets. Computing the true
// ELF-relocation bias requires parsing the target's own ELF headers
// (a capability left to the delegate's symbol layer, out of scope per
// spec.md §1 for internal/target); until that lands this reports a
// zero bias, which is correct for non-PIE executables.
func (d *DebugSessionImpl) Offsets() (uint64, uint64, uint64, error) {
	return 0, 0, 0, nil
}

// Supported merges the client's feature offers with the server's fixed
// qSupported response; session.handleQSupported already emits the fixed
// string, so this hook exists for delegate-specific extensions and
// currently has none to add.
func (d *DebugSessionImpl) Supported(client []session.Feature) ([]session.Feature, error) {
	return client, nil
}
