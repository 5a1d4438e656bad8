// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-daq/tdaq"

	"github.com/go-lpc/camac"
)

// crater is implemented by backends that can run crate dataway
// control cycles (Z and C).
type crater interface {
	CrateInit() (camac.Result, error)
	CrateClear() (camac.Result, error)
}

// recSize is the wire size of one published cycle record:
// ext (4), function (4), data (4), Q|X flags (4).
const recSize = 16

// Server exposes a CAMAC crate as a TDAQ task: /config loads the
// module map, /init initializes the crate, and the run loop polls
// every configured module, publishing cycle records on its output
// channel.
type Server struct {
	sys     *System
	cfgFile string
	cadence time.Duration

	n    int
	data chan []byte
}

// NewServer returns a TDAQ server polling the modules of cfgFile
// through the given backend at the given cadence.
func NewServer(bkd camac.Backend, cfgFile string, cadence time.Duration) *Server {
	return &Server{
		sys:     New(bkd),
		cfgFile: cfgFile,
		cadence: cadence,
	}
}

// System returns the underlying DAQ system.
func (srv *Server) System() *System { return srv.sys }

// OnConfig handles the /config command: it (re)loads the module map.
func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := srv.sys.LoadConfigFile(srv.cfgFile)
	if err != nil {
		ctx.Msg.Errorf("could not load module map: %+v", err)
		return fmt.Errorf("could not load module map %q: %w", srv.cfgFile, err)
	}
	ctx.Msg.Infof("loaded %d modules from %q", len(srv.sys.Modules()), srv.cfgFile)
	return nil
}

// OnInit handles the /init command: it initializes and clears the
// crate when the backend knows how to, and resets the output queue.
func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	srv.data = make(chan []byte, 1024)
	srv.n = 0

	if c, ok := srv.sys.bkd.(crater); ok {
		if res, err := c.CrateInit(); err != nil {
			return fmt.Errorf("could not initialize crate: %w", err)
		} else if !res.Q {
			ctx.Msg.Warnf("crate initialize returned Q=0")
		}
		if _, err := c.CrateClear(); err != nil {
			return fmt.Errorf("could not clear crate: %w", err)
		}
	}
	return nil
}

// OnReset handles the /reset command.
func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.data = make(chan []byte, 1024)
	srv.n = 0
	return nil
}

// OnStart handles the /start command.
func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	return nil
}

// OnStop handles the /stop command.
func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command... -> n=%d", srv.n)
	return nil
}

// OnQuit handles the /quit command.
func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

// Cycles is the output handler publishing cycle records.
func (srv *Server) Cycles(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Loop is the run handler: it polls every configured module at the
// server cadence. Cycles run strictly sequentially: the backend
// supports a single in-flight operation.
func (srv *Server) Loop(ctx tdaq.Context) error {
	tick := time.NewTicker(srv.cadence)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tick.C:
			srv.poll(ctx)
		}
	}
}

func (srv *Server) poll(ctx tdaq.Context) {
	for _, mod := range srv.sys.Modules() {
		res, err := srv.sys.Read(mod.Name, 0, 0)
		if err != nil {
			ctx.Msg.Debugf("could not read %s: %+v", mod.Name, err)
			continue
		}

		ext, _ := srv.sys.Registry().Resolve(mod.Name, 0)
		rec := make([]byte, recSize)
		binary.BigEndian.PutUint32(rec[0:4], uint32(ext))
		binary.BigEndian.PutUint32(rec[4:8], 0) // function code
		binary.BigEndian.PutUint32(rec[8:12], res.Data)
		var flags uint32
		if res.Q {
			flags |= 1
		}
		if res.X {
			flags |= 2
		}
		binary.BigEndian.PutUint32(rec[12:16], flags)

		select {
		case srv.data <- rec:
			srv.n++
		default:
			// slow consumer: drop on the floor rather than stall
			// the polling cadence.
		}
	}
}
