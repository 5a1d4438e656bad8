// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command camac-probe sweeps subaddresses and function codes over the
// configured modules and reports the combinations showing activity.
package main // import "github.com/go-lpc/camac/cmd/camac-probe"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/clib"
	"github.com/go-lpc/camac/daq"
	"github.com/go-lpc/camac/gpib"
)

func main() {
	var (
		cfgFile = flag.String("cfg", "modules.cfg", "module map file")
		aRange  = flag.String("a", "0:0", "subaddress range to sweep (lo:hi)")
		fRange  = flag.String("f", "0:7", "function code range to sweep (lo:hi)")
		repeats = flag.Int("n", 1, "number of cycles per combination")
		sim     = flag.Bool("sim", false, "use the simulated backend")
		lib     = flag.String("lib", "", "native CAMAC library to load")
		addr    = flag.String("addr", "", "address of the crate controller to dial")
		dbg     = flag.Int("dbg", 0, "debug verbosity level")
	)

	log.SetPrefix("camac-probe: ")
	log.SetFlags(0)

	flag.Parse()

	err := run(os.Stdout, *cfgFile, *aRange, *fRange, *repeats, *sim, *lib, *addr, *dbg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, cfgFile, aRange, fRange string, repeats int, sim bool, lib, addr string, dbg int) error {
	alo, ahi, err := parseRange(aRange)
	if err != nil {
		return fmt.Errorf("invalid subaddress range: %w", err)
	}
	flo, fhi, err := parseRange(fRange)
	if err != nil {
		return fmt.Errorf("invalid function range: %w", err)
	}

	bkd, closer, err := newBackend(sim, lib, addr)
	if err != nil {
		return err
	}
	defer closer()
	bkd.SetDebug(dbg)

	sys := daq.New(bkd)
	err = sys.LoadConfigFile(cfgFile)
	if err != nil {
		return err
	}

	var (
		as = daq.Span(alo, ahi, 0, 15)
		fs = daq.Span(flo, fhi, 0, 31)
	)
	hits := daq.Scan(bkd, sys.Modules(), as, fs, repeats)
	for _, hit := range hits {
		fmt.Fprintf(w, "%-8s N%-2d A%-2d F%-2d data=0x%06x Q=%v X=%v\n",
			hit.Module.Name, hit.Module.Station, hit.A, hit.F,
			hit.Res.Data, hit.Res.Q, hit.Res.X,
		)
	}
	fmt.Fprintf(w, "probed %d modules, %d hits\n", len(sys.Modules()), len(hits))
	return nil
}

func newBackend(sim bool, lib, addr string) (camac.Backend, func() error, error) {
	switch {
	case sim:
		return camac.NewSim(), func() error { return nil }, nil
	case addr != "":
		bkd, err := gpib.Open(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("could not dial crate controller: %w", err)
		}
		return bkd, bkd.Close, nil
	default:
		bkd, err := clib.Open(lib)
		if err != nil {
			return nil, nil, fmt.Errorf("could not load CAMAC library: %w", err)
		}
		return bkd, bkd.Close, nil
	}
}

// parseRange parses "lo:hi" (or a single "v") into its bounds.
func parseRange(s string) (lo, hi int, err error) {
	switch i := strings.Index(s, ":"); i {
	case -1:
		lo, err = strconv.Atoi(s)
		return lo, lo, err
	default:
		lo, err = strconv.Atoi(s[:i])
		if err != nil {
			return 0, 0, err
		}
		hi, err = strconv.Atoi(s[i+1:])
		return lo, hi, err
	}
}
