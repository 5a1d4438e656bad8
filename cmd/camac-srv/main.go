// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command camac-srv exposes a CAMAC crate as a TDAQ task.
//
// Usage:
//
//	camac-srv [tdaq-flags] MODULE-MAP [CONTROLLER-ADDR]
//
// Without a controller address the server runs on the simulated
// backend.
package main // import "github.com/go-lpc/camac/cmd/camac-srv"

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-lpc/camac"
	"github.com/go-lpc/camac/daq"
	"github.com/go-lpc/camac/gpib"
)

func main() {
	cmd := flags.New()

	log.SetPrefix("camac-srv: ")
	log.SetFlags(0)

	if len(cmd.Args) == 0 {
		log.Fatalf("missing module map file")
	}

	var (
		bkd camac.Backend
		err error
	)
	switch {
	case len(cmd.Args) > 1:
		bkd, err = gpib.Open(cmd.Args[1])
		if err != nil {
			log.Fatalf("could not dial crate controller %q: %+v", cmd.Args[1], err)
		}
	default:
		bkd = camac.NewSim()
	}

	dev := daq.NewServer(bkd, cmd.Args[0], 100*time.Millisecond)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/camac", dev.Cycles)

	srv.RunHandle(dev.Loop)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
