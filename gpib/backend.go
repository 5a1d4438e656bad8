// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpib drives CAMAC crates through byte-oriented controllers
// (GPIB-LAN bridges, USB controllers) whose wire encoding is not
// known in advance.
//
// The backend probes a fixed, ordered set of candidate encodings on
// the first cycles and locks onto the first one that produces a
// well-formed answer. A crate that answers with no encoding is
// reported through the Q/X flags, never as an error: polling loops
// must keep running unattended against absent hardware.
package gpib // import "github.com/go-lpc/camac/gpib"

import (
	"log"
	"os"
	"time"

	"golang.org/x/xerrors"

	"github.com/go-lpc/camac"
)

const (
	defaultTimeout = 2 * time.Second
	defaultWidth   = 3 // data word width in bytes (24-bit cycles)

	ctrlStation = 30 // station of the crate controller itself
)

// Backend executes CAMAC cycles over a byte-oriented controller.
//
// A Backend supports exactly one in-flight Cycle at a time; see
// camac.Backend for the sharing policy.
type Backend struct {
	msg  *log.Logger
	dbg  int
	conn Conn

	timeout time.Duration
	width   int  // data word width in bytes
	qbit    uint // status byte bit holding Q
	xbit    uint // status byte bit holding X

	encs   []encoding
	enc    *encoding // locked encoding; nil while still probing
	status map[int]bool
}

var _ camac.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithTimeout sets the per-operation transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(bkd *Backend) { bkd.timeout = d }
}

// WithDataWidth sets the data word width in bytes (default 3).
func WithDataWidth(n int) Option {
	return func(bkd *Backend) { bkd.width = n }
}

// WithStatusBits sets which bits of the status byte carry Q and X.
// The default (Q=bit 0, X=bit 1) is a heuristic, not a verified
// controller fact; override it when the hardware manual says
// otherwise.
func WithStatusBits(q, x uint) Option {
	return func(bkd *Backend) {
		bkd.qbit = q
		bkd.xbit = x
	}
}

// Open dials the GPIB-LAN bridge at addr and returns a backend
// driving it.
func Open(addr string, opts ...Option) (*Backend, error) {
	bkd := newBackend(opts...)
	conn, err := gpibDial(addr, bkd.timeout)
	if err != nil {
		return nil, xerrors.Errorf("gpib: could not open %q: %w", addr, err)
	}
	bkd.conn = conn
	return bkd, nil
}

// NewBackend returns a backend driving an already-open connection.
func NewBackend(conn Conn, opts ...Option) *Backend {
	bkd := newBackend(opts...)
	bkd.conn = conn
	_ = conn.SetTimeout(bkd.timeout)
	return bkd
}

func newBackend(opts ...Option) *Backend {
	bkd := &Backend{
		msg:     log.New(os.Stdout, "gpib: ", 0),
		timeout: defaultTimeout,
		width:   defaultWidth,
		qbit:    0,
		xbit:    1,
		encs:    encodings(),
		status:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(bkd)
	}
	return bkd
}

// Close closes the underlying connection.
func (bkd *Backend) Close() error { return bkd.conn.Close() }

// SetDebug implements camac.Backend.
func (bkd *Backend) SetDebug(lvl int) { bkd.dbg = lvl }

// StatusOnly marks function codes as status-only: cycles with these
// codes never attempt a data-phase read, whatever their numeric
// range. Crate control operations that would otherwise block on a
// read that never comes are registered here.
func (bkd *Backend) StatusOnly(fs ...int) {
	for _, f := range fs {
		bkd.status[f] = true
	}
}

// Cycle implements camac.Backend.
//
// While no encoding is locked, Cycle tries each candidate in priority
// order and locks the first that yields a well-formed answer. When
// every candidate fails, Cycle returns a zero result with Q and X
// cleared and a nil error. Once locked, later failures do not
// re-probe: a transient fault must not trade a known-good encoding
// for a wrong one.
func (bkd *Backend) Cycle(f int, ext camac.Ext, data uint32) (camac.Result, error) {
	class, err := camac.Classify(f)
	if err != nil {
		return camac.Result{}, err
	}

	var (
		n    = ext.Station()
		a    = ext.Addr()
		read = class == camac.FuncRead && !bkd.status[f]
	)

	if bkd.enc != nil {
		res, err := bkd.cycle(*bkd.enc, n, a, f, data, class, read)
		if err != nil {
			if bkd.dbg > 0 {
				bkd.msg.Printf("locked encoding %s failed F%d %v: %+v", bkd.enc.name, f, ext, err)
			}
			return camac.Result{}, nil
		}
		return res, nil
	}

	for i := range bkd.encs {
		enc := bkd.encs[i]
		res, err := bkd.cycle(enc, n, a, f, data, class, read)
		if err != nil {
			if bkd.dbg > 0 {
				bkd.msg.Printf("encoding %s failed F%d %v: %+v", enc.name, f, ext, err)
			}
			continue
		}
		bkd.enc = &bkd.encs[i]
		if bkd.dbg > 0 {
			bkd.msg.Printf("locked encoding %s", enc.name)
		}
		return res, nil
	}

	bkd.msg.Printf("no usable encoding for F%d %v (crate absent or unknown protocol)", f, ext)
	return camac.Result{}, nil
}

// cycle runs one N-A-F exchange with the given candidate encoding.
// Any transport-level failure is returned to the caller, which treats
// it as "this candidate does not work", not as a fatal condition.
func (bkd *Backend) cycle(enc encoding, n, a, f int, data uint32, class camac.FuncClass, read bool) (camac.Result, error) {
	cmd := enc.enc(n, a, f, data, read)
	if class == camac.FuncWrite && !enc.hasData {
		cmd = append(cmd, beBytes(data, bkd.width)...)
	}

	if bkd.dbg > 1 {
		bkd.msg.Printf("-> [%s] % x", enc.name, cmd)
	}
	_, err := bkd.conn.Write(cmd)
	if err != nil {
		return camac.Result{}, xerrors.Errorf("could not write %s command: %w", enc.name, err)
	}

	var res camac.Result
	if read {
		buf := make([]byte, bkd.width)
		nn, _ := bkd.conn.Read(buf)
		if nn < bkd.width {
			// short answer: one more chance before giving up
			// on this candidate.
			m, _ := bkd.conn.Read(buf[nn:])
			nn += m
		}
		if nn < bkd.width {
			return camac.Result{}, xerrors.Errorf("no %d-byte data word from %s encoding (got %d bytes)",
				bkd.width, enc.name, nn,
			)
		}
		res.Data = beUint(buf)
		if bkd.dbg > 1 {
			bkd.msg.Printf("<- [%s] % x", enc.name, buf)
		}
	} else if class == camac.FuncWrite {
		res.Data = data
	}

	// best-effort status byte: absence is not an error.
	var st [1]byte
	if m, err := bkd.conn.Read(st[:]); err == nil && m == 1 {
		res.Q = st[0]>>bkd.qbit&1 == 1
		res.X = st[0]>>bkd.xbit&1 == 1
		if bkd.dbg > 1 {
			bkd.msg.Printf("<- [%s] status 0x%02x", enc.name, st[0])
		}
	}

	return res, nil
}

// Locked returns the name of the wire encoding the backend locked
// onto, or "" while still probing.
func (bkd *Backend) Locked() string {
	if bkd.enc == nil {
		return ""
	}
	return bkd.enc.name
}

// CrateInit performs a crate Initialize (Z) dataway cycle.
func (bkd *Backend) CrateInit() (camac.Result, error) {
	return bkd.Cycle(8, camac.NewExt(0, 0, ctrlStation, 0), 0)
}

// CrateClear performs a crate Clear (C) dataway cycle.
func (bkd *Backend) CrateClear() (camac.Result, error) {
	return bkd.Cycle(9, camac.NewExt(0, 0, ctrlStation, 0), 0)
}

// SetInhibit sets or clears the crate Inhibit (I) line.
func (bkd *Backend) SetInhibit(on bool) (camac.Result, error) {
	f := 16
	if on {
		f = 17
	}
	return bkd.Cycle(f, camac.NewExt(0, 0, ctrlStation, 0), 0)
}

// TestLAM tests the LAM of station n (F8 A0) and reports Q.
func (bkd *Backend) TestLAM(n int) (bool, error) {
	res, err := bkd.Cycle(8, camac.NewExt(0, 0, n, 0), 0)
	if err != nil {
		return false, err
	}
	return res.Q, nil
}

// ClearLAM clears the LAM of station n (F10 A0).
func (bkd *Backend) ClearLAM(n int) (camac.Result, error) {
	return bkd.Cycle(10, camac.NewExt(0, 0, n, 0), 0)
}
