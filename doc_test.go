// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package camac

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name    string
		info    *debug.BuildInfo
		version string
		sum     string
	}{
		{name: "nil-info"},
		{name: "no-dep", info: &debug.BuildInfo{}},
		{
			name: "dep",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.1.0", Sum: "h1:deadbeef"},
			}},
			version: "v0.1.0",
			sum:     "h1:deadbeef",
		},
		{
			name: "replace",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.1.0", Replace: &debug.Module{
					Path: "example.org/camac", Version: "v0.2.0", Sum: "h1:cafe",
				}},
			}},
			version: "example.org/camac v0.2.0",
			sum:     "h1:cafe",
		},
		{
			name: "replace-dir",
			info: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.1.0", Replace: &debug.Module{
					Path: "../camac",
				}},
			}},
			version: "../camac",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			version, sum := versionOf(tc.info)
			if got, want := version, tc.version; got != want {
				t.Fatalf("invalid version: got=%q, want=%q", got, want)
			}
			if got, want := sum, tc.sum; got != want {
				t.Fatalf("invalid sum: got=%q, want=%q", got, want)
			}
		})
	}
}
