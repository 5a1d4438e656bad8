// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daq binds a CAMAC module registry to a cycle backend and
// exposes name-based read/write operations.
package daq // import "github.com/go-lpc/camac/daq"

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/cfg"
)

// System is the front door of a CAMAC data acquisition: module names
// in, cycles out.
//
// A System drives a single backend and inherits its sharing policy:
// one in-flight operation at a time.
type System struct {
	msg *log.Logger
	reg *cfg.Registry
	bkd camac.Backend
}

// New returns a DAQ system running cycles through the given backend.
func New(bkd camac.Backend) *System {
	return &System{
		msg: log.New(os.Stdout, "daq: ", 0),
		reg: cfg.NewRegistry(),
		bkd: bkd,
	}
}

// LoadConfig replaces the module registry with the configuration
// read from r.
func (sys *System) LoadConfig(r io.Reader) error {
	err := sys.reg.LoadFrom(r)
	if err != nil {
		return fmt.Errorf("daq: could not load configuration: %w", err)
	}
	sys.msg.Printf("loaded %d modules", len(sys.reg.Modules()))
	return nil
}

// LoadConfigFile replaces the module registry with the configuration
// read from the named file.
func (sys *System) LoadConfigFile(fname string) error {
	entries, err := cfg.ParseFile(fname)
	if err != nil {
		return fmt.Errorf("daq: could not load configuration: %w", err)
	}
	sys.reg.Load(entries)
	sys.msg.Printf("loaded %d modules from %q", len(entries), fname)
	return nil
}

// Registry returns the module registry of the system.
func (sys *System) Registry() *cfg.Registry { return sys.reg }

// Modules returns the configured modules in configuration order.
func (sys *System) Modules() []cfg.Entry { return sys.reg.Modules() }

// SetDebug adjusts the verbosity of the underlying backend.
func (sys *System) SetDebug(lvl int) { sys.bkd.SetDebug(lvl) }

// Read runs the read-class function f on the named module at
// subaddress a. Operators wanting the conventional F0 read pass f=0.
func (sys *System) Read(name string, a, f int) (camac.Result, error) {
	ext, err := sys.reg.Resolve(name, a)
	if err != nil {
		return camac.Result{}, err
	}
	return sys.bkd.Cycle(f, ext, 0)
}

// Write runs the write- or control-class function f on the named
// module at subaddress a with the given data word. The class is not
// enforced here: raw instrumentation access is the operator's call.
func (sys *System) Write(name string, a, f int, data uint32) (camac.Result, error) {
	ext, err := sys.reg.Resolve(name, a)
	if err != nil {
		return camac.Result{}, err
	}
	return sys.bkd.Cycle(f, ext, data)
}
