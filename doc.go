// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package camac provides access to CAMAC instrumentation crates through
// the N-A-F (station, subaddress, function) addressing scheme.
package camac // import "github.com/go-lpc/camac"

import (
	"runtime/debug"
)

const root = "github.com/go-lpc/camac"

// Version returns the version of camac and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if r := m.Replace; r != nil {
			switch {
			case r.Path != "" && r.Version != "":
				return r.Path + " " + r.Version, r.Sum
			case r.Version != "":
				return r.Version, r.Sum
			case r.Path != "":
				return r.Path, r.Sum
			}
			return m.Version + "*", ""
		}
		return m.Version, m.Sum
	}
	return "", ""
}
