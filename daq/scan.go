// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/cfg"
)

// Hit records a probed (module, subaddress, function) combination
// that showed activity: Q, X or nonzero data.
type Hit struct {
	Module cfg.Entry
	A, F   int
	Res    camac.Result
}

// Scan sweeps the given subaddresses and function codes over every
// module and reports the combinations with activity.
//
// The sweep is sequential (a backend supports one in-flight cycle)
// and never aborts: cycle errors, including invalid function codes in
// the requested range, skip that combination and move on. Repeated
// hits of the same (module, A, F) are reported once, from the first
// active cycle; distinct modules always report independently, even
// when they share a station number across crates.
func Scan(bkd camac.Backend, modules []cfg.Entry, as, fs []int, repeats int) []Hit {
	if repeats < 1 {
		repeats = 1
	}

	var hits []Hit
	for _, mod := range modules {
		for _, a := range as {
			ext := camac.NewExt(mod.Branch, mod.Crate, mod.Station, a)
			for _, f := range fs {
				for r := 0; r < repeats; r++ {
					res, err := bkd.Cycle(f, ext, 0)
					if err != nil {
						continue
					}
					if !res.Q && !res.X && res.Data == 0 {
						continue
					}
					hits = append(hits, Hit{Module: mod, A: a, F: f, Res: res})
					break
				}
			}
		}
	}
	return hits
}

// Span returns the inclusive range [lo, hi] clamped to [min, max].
func Span(lo, hi, min, max int) []int {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < min {
		lo = min
	}
	if hi > max {
		hi = max
	}
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}
