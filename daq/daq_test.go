// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/cfg"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "modules.cfg")
	err := os.WriteFile(fname, []byte(text), 0644)
	if err != nil {
		t.Fatalf("could not write configuration file: %+v", err)
	}
	return fname
}

const testConfig = `QVT 1 1 2
GATE 1 1 9 ; gate module
`

func TestSystem(t *testing.T) {
	sys := New(camac.NewSim())
	err := sys.LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}

	if got, want := len(sys.Modules()), 2; got != want {
		t.Fatalf("invalid number of modules: got=%d, want=%d", got, want)
	}

	res, err := sys.Read("qvt", 0, 0)
	if err != nil {
		t.Fatalf("could not read qvt: %+v", err)
	}
	if !res.Q || !res.X {
		t.Fatalf("invalid qvt status: Q=%v, X=%v", res.Q, res.X)
	}
	ext := camac.NewExt(1, 1, 2, 0)
	if got, want := res.Data, uint32(ext)&0xffffff; got != want {
		t.Fatalf("invalid qvt data: got=0x%x, want=0x%x", got, want)
	}

	res, err = sys.Write("GATE", 0, 16, 0x1234)
	if err != nil {
		t.Fatalf("could not write gate: %+v", err)
	}
	if got, want := res.Data, uint32(0x1234); got != want {
		t.Fatalf("invalid gate write echo: got=0x%x, want=0x%x", got, want)
	}

	_, err = sys.Read("scaler", 0, 0)
	if err == nil {
		t.Fatalf("expected an error for an unknown module")
	}
	if !errors.Is(err, cfg.ErrUnknownModule) {
		t.Fatalf("invalid unknown-module error: %+v", err)
	}

	_, err = sys.Read("qvt", 0, 42)
	if !errors.Is(err, camac.ErrFuncRange) {
		t.Fatalf("invalid out-of-range function error: %+v", err)
	}
}

func TestSystemReload(t *testing.T) {
	sys := New(camac.NewSim())
	err := sys.LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatalf("could not load configuration: %+v", err)
	}

	err = sys.LoadConfig(strings.NewReader("ADC 1 1 5\n"))
	if err != nil {
		t.Fatalf("could not reload configuration: %+v", err)
	}

	if got, want := len(sys.Modules()), 1; got != want {
		t.Fatalf("invalid number of modules after reload: got=%d, want=%d", got, want)
	}

	_, err = sys.Read("qvt", 0, 0)
	if !errors.Is(err, cfg.ErrUnknownModule) {
		t.Fatalf("expected qvt to be gone after reload: %+v", err)
	}

	if _, err := sys.Read("adc", 0, 2); err != nil {
		t.Fatalf("could not read adc: %+v", err)
	}
}

func TestSystemLoadConfigFile(t *testing.T) {
	fname := writeConfig(t, testConfig)

	sys := New(camac.NewSim())
	err := sys.LoadConfigFile(fname)
	if err != nil {
		t.Fatalf("could not load configuration file: %+v", err)
	}
	if got, want := len(sys.Modules()), 2; got != want {
		t.Fatalf("invalid number of modules: got=%d, want=%d", got, want)
	}

	err = sys.LoadConfigFile(fname + ".not-there")
	if err == nil {
		t.Fatalf("expected an error for a missing configuration file")
	}
}
