// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "modules.cfg")
	err := os.WriteFile(fname, []byte("QVT 1 1 2\nGATE 1 1 9 ; gate module\n"), 0644)
	if err != nil {
		t.Fatalf("could not write module map: %+v", err)
	}
	return fname
}

func TestRunList(t *testing.T) {
	fname := writeConfig(t)

	out := new(strings.Builder)
	err := run(out, []string{"list"}, fname, "", true, "", "", 0)
	if err != nil {
		t.Fatalf("could not list modules: %+v", err)
	}

	got := out.String()
	for _, mod := range []string{"QVT", "GATE", "B1/C1/N2/A0", "B1/C1/N9/A0"} {
		if !strings.Contains(got, mod) {
			t.Fatalf("missing %q in listing:\n%s", mod, got)
		}
	}
}

func TestRunRead(t *testing.T) {
	fname := writeConfig(t)

	out := new(strings.Builder)
	err := run(out, []string{"read", "qvt", "0", "0"}, fname, "", true, "", "", 0)
	if err != nil {
		t.Fatalf("could not read module: %+v", err)
	}
	if got, want := out.String(), "qvt A0 F0: data=0x010200 Q=true X=true\n"; got != want {
		t.Fatalf("invalid read output:\ngot= %q\nwant=%q", got, want)
	}
}

func TestRunWrite(t *testing.T) {
	fname := writeConfig(t)

	out := new(strings.Builder)
	err := run(out, []string{"write", "gate", "0", "16", "0x1234"}, fname, "", true, "", "", 0)
	if err != nil {
		t.Fatalf("could not write module: %+v", err)
	}
	if got, want := out.String(), "gate A0 F16: data=0x001234 Q=true X=true\n"; got != want {
		t.Fatalf("invalid write output:\ngot= %q\nwant=%q", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	fname := writeConfig(t)

	for _, tc := range []struct {
		name string
		args []string
	}{
		{"no-command", nil},
		{"unknown-command", []string{"frobnicate"}},
		{"read-no-module", []string{"read"}},
		{"read-unknown-module", []string{"read", "scaler"}},
		{"write-too-few-args", []string{"write", "qvt", "0", "16"}},
		{"write-bad-data", []string{"write", "qvt", "0", "16", "xyzzy"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := run(out, tc.args, fname, "", true, "", "", 0)
			if err == nil {
				t.Fatalf("expected an error for args=%v", tc.args)
			}
		})
	}
}
