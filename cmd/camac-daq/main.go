// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command camac-daq runs CAMAC cycles on configured modules from the
// command line.
//
// Usage:
//
//	camac-daq [options] list
//	camac-daq [options] read  MODULE [A [F]]
//	camac-daq [options] write MODULE A F DATA
package main // import "github.com/go-lpc/camac/cmd/camac-daq"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/clib"
	"github.com/go-lpc/camac/conddb"
	"github.com/go-lpc/camac/daq"
	"github.com/go-lpc/camac/gpib"
)

func main() {
	var (
		cfgFile = flag.String("cfg", "modules.cfg", "module map file")
		dbname  = flag.String("db", "", "conditions database to load the module map from (overrides -cfg)")
		sim     = flag.Bool("sim", false, "use the simulated backend")
		lib     = flag.String("lib", "", "native CAMAC library to load")
		addr    = flag.String("addr", "", "address of the crate controller to dial")
		dbg     = flag.Int("dbg", 0, "debug verbosity level")
	)

	log.SetPrefix("camac-daq: ")
	log.SetFlags(0)

	flag.Parse()

	err := run(os.Stdout, flag.Args(), *cfgFile, *dbname, *sim, *lib, *addr, *dbg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, args []string, cfgFile, dbname string, sim bool, lib, addr string, dbg int) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (list, read or write)")
	}

	bkd, closer, err := newBackend(sim, lib, addr)
	if err != nil {
		return err
	}
	defer closer()

	sys := daq.New(bkd)
	sys.SetDebug(dbg)

	switch {
	case dbname != "":
		err = loadFromDB(sys, dbname)
	default:
		err = sys.LoadConfigFile(cfgFile)
	}
	if err != nil {
		return err
	}

	switch cmd := args[0]; cmd {
	case "list":
		for _, mod := range sys.Modules() {
			ext, _ := sys.Registry().Resolve(mod.Name, 0)
			fmt.Fprintf(w, "%-8s %v %s\n", mod.Name, ext, mod.Comment)
		}
		return nil

	case "read":
		if len(args) < 2 {
			return fmt.Errorf("missing module name")
		}
		a := atoi(args, 2, 0)
		f := atoi(args, 3, 0)
		res, err := sys.Read(args[1], a, f)
		if err != nil {
			return fmt.Errorf("could not read %s A%d F%d: %w", args[1], a, f, err)
		}
		fmt.Fprintf(w, "%s A%d F%d: data=0x%06x Q=%v X=%v\n", args[1], a, f, res.Data, res.Q, res.X)
		return nil

	case "write":
		if len(args) < 5 {
			return fmt.Errorf("usage: write MODULE A F DATA")
		}
		var (
			a = atoi(args, 2, 0)
			f = atoi(args, 3, 16)
		)
		data, err := strconv.ParseUint(args[4], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid data word %q: %w", args[4], err)
		}
		res, err := sys.Write(args[1], a, f, uint32(data))
		if err != nil {
			return fmt.Errorf("could not write %s A%d F%d: %w", args[1], a, f, err)
		}
		fmt.Fprintf(w, "%s A%d F%d: data=0x%06x Q=%v X=%v\n", args[1], a, f, res.Data, res.Q, res.X)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
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

func loadFromDB(sys *daq.System, dbname string) error {
	db, err := conddb.Open(dbname)
	if err != nil {
		return fmt.Errorf("could not open conditions db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name, err := db.LastModuleMap(ctx)
	if err != nil {
		return fmt.Errorf("could not get last module map: %w", err)
	}
	log.Printf("module map: %q", name)

	mods, err := db.Modules(ctx, name)
	if err != nil {
		return fmt.Errorf("could not get modules for map %q: %w", name, err)
	}
	sys.Registry().Load(mods)
	return nil
}

func atoi(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return v
}
