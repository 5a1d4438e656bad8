// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package camac

import (
	"log"
	"os"
)

// Sim is a deterministic, hardware-free CAMAC backend.
//
// Read cycles return (ext & 0xFFFFFF) ^ (f << 12), write cycles echo
// the data word, control cycles return zero; Q and X are always set.
// Identical inputs always yield identical results, so higher layers
// and tests can run without a crate.
type Sim struct {
	msg *log.Logger
	dbg int
}

var _ Backend = (*Sim)(nil)

// NewSim returns a new simulated backend.
func NewSim() *Sim {
	return &Sim{
		msg: log.New(os.Stdout, "camac: ", 0),
	}
}

// SetDebug implements Backend.
func (sim *Sim) SetDebug(lvl int) { sim.dbg = lvl }

// Cycle implements Backend.
func (sim *Sim) Cycle(f int, ext Ext, data uint32) (Result, error) {
	class, err := Classify(f)
	if err != nil {
		return Result{}, err
	}

	if sim.dbg > 0 {
		sim.msg.Printf("cycle F%d %v data=0x%06x", f, ext, data)
	}

	res := Result{Q: true, X: true}
	switch class {
	case FuncRead:
		res.Data = (uint32(ext) & 0xffffff) ^ uint32(f)<<12
	case FuncWrite:
		res.Data = data
	}
	return res, nil
}
