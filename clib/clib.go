// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clib drives CAMAC crates through a pre-built native control
// library exposing the classic cdreg/cfsa entry points.
package clib // import "github.com/go-lpc/camac/clib"

//#cgo LDFLAGS: -ldl
//
//#include <dlfcn.h>
//#include <stdlib.h>
//
//typedef void (*camac_cdset_f)(int, int);
//typedef void (*camac_cdreg_f)(int*, int, int, int, int);
//typedef int  (*camac_cfsa_f)(int, int, int*, int*);
//typedef void (*camac_debug_f)(int);
//
//static void camac_cdset(void *fct, int a, int b) {
//	((camac_cdset_f)fct)(a, b);
//}
//
//static void camac_cdreg(void *fct, int *ext, int b, int c, int n, int a) {
//	((camac_cdreg_f)fct)(ext, b, c, n, a);
//}
//
//static int camac_cfsa(void *fct, int f, int ext, int *data, int *q) {
//	return ((camac_cfsa_f)fct)(f, ext, data, q);
//}
//
//static void camac_debug(void *fct, int lvl) {
//	((camac_debug_f)fct)(lvl);
//}
import "C"

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"unsafe"

	"github.com/go-lpc/camac"
)

var (
	// ErrNoDriver is returned when no native CAMAC library could be
	// loaded.
	ErrNoDriver = errors.New("clib: could not load CAMAC driver library")

	// ErrCycle is returned when the native cycle routine reports a
	// nonzero error code.
	ErrCycle = errors.New("clib: CAMAC cycle failed")
)

// Backend delegates CAMAC cycles to a native control library loaded
// with dlopen.
type Backend struct {
	msg *log.Logger
	dbg int

	lib unsafe.Pointer
	fct struct {
		cdset unsafe.Pointer
		cdreg unsafe.Pointer
		cfsa  unsafe.Pointer
		debug unsafe.Pointer // optional setCamacDebug
	}
}

var _ camac.Backend = (*Backend)(nil)

// libNames returns the platform-conventional library names tried when
// no explicit path is given.
func libNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libcamac_gpib.dylib", "libcamac.dylib"}
	default:
		return []string{"libcamac_gpib.so", "libcamac.so"}
	}
}

// candidates returns the ordered list of library paths to try:
// the explicit path, then $CAMAC_LIB, then the platform defaults.
func candidates(path string) []string {
	if path != "" {
		return []string{path}
	}
	if env := os.Getenv("CAMAC_LIB"); env != "" {
		return []string{env}
	}
	return libNames()
}

// Open loads the native CAMAC library at path, or, when path is
// empty, the first of the platform-conventional names that loads.
func Open(path string) (*Backend, error) {
	var (
		tried []string
		last  string
		lib   unsafe.Pointer
	)
	for _, name := range candidates(path) {
		tried = append(tried, name)
		cname := C.CString(name)
		lib = C.dlopen(cname, C.RTLD_NOW)
		C.free(unsafe.Pointer(cname))
		if lib != nil {
			break
		}
		if e := C.dlerror(); e != nil {
			last = C.GoString(e)
		}
	}
	if lib == nil {
		return nil, fmt.Errorf("%w (tried %v): %s", ErrNoDriver, tried, last)
	}

	bkd := &Backend{
		msg: log.New(os.Stdout, "clib: ", 0),
		lib: lib,
	}

	var err error
	bkd.fct.cdreg, err = symbol(lib, "cdreg")
	if err != nil {
		_ = bkd.Close()
		return nil, err
	}
	bkd.fct.cfsa, err = symbol(lib, "cfsa")
	if err != nil {
		_ = bkd.Close()
		return nil, err
	}
	bkd.fct.cdset, err = symbol(lib, "cdset")
	if err != nil {
		_ = bkd.Close()
		return nil, err
	}
	// optional debug hook.
	bkd.fct.debug, _ = symbol(lib, "setCamacDebug")

	return bkd, nil
}

func symbol(lib unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any stale error
	sym := C.dlsym(lib, cname)
	if sym == nil {
		var detail string
		if e := C.dlerror(); e != nil {
			detail = ": " + C.GoString(e)
		}
		return nil, fmt.Errorf("clib: could not resolve symbol %q%s", name, detail)
	}
	return sym, nil
}

// Close unloads the native library.
func (bkd *Backend) Close() error {
	if bkd.lib == nil {
		return nil
	}
	C.dlclose(bkd.lib)
	bkd.lib = nil
	return nil
}

// SetDebug implements camac.Backend. The level is forwarded to the
// native library when it exposes setCamacDebug; otherwise only the Go
// side verbosity changes.
func (bkd *Backend) SetDebug(lvl int) {
	bkd.dbg = lvl
	if bkd.fct.debug != nil {
		C.camac_debug(bkd.fct.debug, C.int(lvl))
	}
}

// Set forwards the cdset branch-setup call to the native library.
func (bkd *Backend) Set(a, b int) {
	C.camac_cdset(bkd.fct.cdset, C.int(a), C.int(b))
}

// Reg asks the native library to register the (branch, crate,
// station, subaddress) tuple and returns the resulting handle.
func (bkd *Backend) Reg(branch, crate, station, addr int) camac.Ext {
	var ext C.int
	C.camac_cdreg(bkd.fct.cdreg, &ext, C.int(branch), C.int(crate), C.int(station), C.int(addr))
	if bkd.dbg > 0 {
		bkd.msg.Printf("cdreg b=%d c=%d n=%d a=%d -> 0x%08x", branch, crate, station, addr, uint32(ext))
	}
	return camac.Ext(uint32(ext))
}

// Cycle implements camac.Backend. The native routine reports a single
// status flag, mapped to both Q and X.
func (bkd *Backend) Cycle(f int, ext camac.Ext, data uint32) (camac.Result, error) {
	_, err := camac.Classify(f)
	if err != nil {
		return camac.Result{}, err
	}

	var (
		cd = C.int(data)
		cq C.int
	)
	rc := C.camac_cfsa(bkd.fct.cfsa, C.int(f), C.int(uint32(ext)), &cd, &cq)
	if rc != 0 {
		return camac.Result{}, fmt.Errorf("%w: cfsa F%d %v returned %d", ErrCycle, f, ext, int(rc))
	}

	res := camac.Result{
		Data: uint32(cd) & 0xffffff,
		Q:    cq != 0,
		X:    cq != 0,
	}
	if bkd.dbg > 0 {
		bkd.msg.Printf("cfsa F%d %v -> data=0x%06x q=%v", f, ext, res.Data, res.Q)
	}
	return res, nil
}
