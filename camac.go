// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package camac

import (
	"errors"
	"fmt"
)

// Ext is the packed address of a CAMAC cycle target:
// branch<<24 | crate<<16 | station<<8 | subaddress, each field
// masked to 8 bits.
type Ext uint32

// NewExt packs the (branch, crate, station, subaddress) tuple into an
// Ext handle. Fields are masked to 8 bits, never rejected: probing
// sweeps pass raw loop indices and expect a usable handle back.
func NewExt(branch, crate, station, addr int) Ext {
	return Ext(uint32(branch&0xff)<<24 |
		uint32(crate&0xff)<<16 |
		uint32(station&0xff)<<8 |
		uint32(addr&0xff))
}

// Branch returns the branch field of the handle.
func (ext Ext) Branch() int { return int(ext>>24) & 0xff }

// Crate returns the crate field of the handle.
func (ext Ext) Crate() int { return int(ext>>16) & 0xff }

// Station returns the station (N) field of the handle.
func (ext Ext) Station() int { return int(ext>>8) & 0xff }

// Addr returns the subaddress (A) field of the handle.
func (ext Ext) Addr() int { return int(ext) & 0xff }

func (ext Ext) String() string {
	return fmt.Sprintf("B%d/C%d/N%d/A%d",
		ext.Branch(), ext.Crate(), ext.Station(), ext.Addr(),
	)
}

// ErrFuncRange is returned when a function code lies outside [0, 31].
var ErrFuncRange = errors.New("camac: function code out of range")

// FuncClass describes the kind of CAMAC cycle a function code triggers.
type FuncClass int

const (
	FuncRead  FuncClass = iota // F0-F7
	FuncWrite                  // F16-F23
	FuncCtrl                   // F8-F15, F24-F31
)

func (fc FuncClass) String() string {
	switch fc {
	case FuncRead:
		return "read"
	case FuncWrite:
		return "write"
	case FuncCtrl:
		return "control"
	}
	return fmt.Sprintf("FuncClass(%d)", int(fc))
}

// Classify returns the class of the function code f.
// Codes outside [0, 31] are invalid and reported with ErrFuncRange.
func Classify(f int) (FuncClass, error) {
	switch {
	case f < 0 || f > 31:
		return 0, fmt.Errorf("%w: F%d", ErrFuncRange, f)
	case f <= 7:
		return FuncRead, nil
	case f >= 16 && f <= 23:
		return FuncWrite, nil
	default:
		return FuncCtrl, nil
	}
}

// Result holds the outcome of a single CAMAC cycle.
type Result struct {
	Data uint32 // 24-bit data word (0 for control cycles)
	Q    bool   // command accepted
	X    bool   // module responded
}

// Backend executes single-word CAMAC cycles.
//
// A Backend value supports exactly one in-flight Cycle call at a time:
// the underlying transport or native handle is not safe for concurrent
// use. Callers running cycles from more than one goroutine must either
// dedicate a single owning goroutine or serialize calls with a lock of
// their own.
type Backend interface {
	// Cycle performs one N-A-F cycle. The data word is only
	// meaningful for write cycles and is ignored otherwise.
	Cycle(f int, ext Ext, data uint32) (Result, error)

	// SetDebug adjusts the diagnostic verbosity of the backend.
	SetDebug(lvl int)
}
