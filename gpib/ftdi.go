// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpib

import (
	"fmt"
	"io"
	"time"

	"github.com/ziutek/ftdi"
)

// ftdiDevice is the view of an FTDI channel a USB crate controller
// needs.
type ftdiDevice interface {
	Reset() error

	SetBitmode(iomask byte, mode ftdi.Mode) error
	SetFlowControl(flowctrl ftdi.FlowCtrl) error
	SetLatencyTimer(lt int) error
	SetWriteChunkSize(cs int) error
	SetReadChunkSize(cs int) error
	PurgeBuffers() error

	io.Writer
	io.Reader
	io.Closer
}

var ftdiOpen = ftdiOpenImpl

func ftdiOpenImpl(vid, pid uint16) (ftdiDevice, error) {
	dev, err := ftdi.OpenFirst(int(vid), int(pid), ftdi.ChannelAny)
	return dev, err
}

// DialFTDI opens a USB crate controller sitting behind an FTDI
// channel and returns it as a Conn.
func DialFTDI(vid, pid uint16, timeout time.Duration) (Conn, error) {
	ft, err := ftdiOpen(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("gpib: could not open FTDI device (vid=0x%x, pid=0x%x): %w", vid, pid, err)
	}

	c := &ftdiConn{ft: ft, timeout: timeout}
	err = c.init()
	if err != nil {
		_ = ft.Close()
		return nil, fmt.Errorf("gpib: could not initialize FTDI device (vid=0x%x, pid=0x%x): %w", vid, pid, err)
	}
	return c, nil
}

type ftdiConn struct {
	ft      ftdiDevice
	timeout time.Duration
}

var _ Conn = (*ftdiConn)(nil)

func (c *ftdiConn) init() error {
	var err error

	err = c.ft.Reset()
	if err != nil {
		return fmt.Errorf("could not reset USB: %w", err)
	}

	err = c.ft.SetBitmode(0, ftdi.ModeReset)
	if err != nil {
		return fmt.Errorf("could not reset bit mode: %w", err)
	}

	err = c.ft.SetFlowControl(ftdi.FlowCtrlDisable)
	if err != nil {
		return fmt.Errorf("could not disable flow control: %w", err)
	}

	err = c.ft.SetLatencyTimer(2)
	if err != nil {
		return fmt.Errorf("could not set latency timer to 2: %w", err)
	}

	err = c.ft.SetWriteChunkSize(0xffff)
	if err != nil {
		return fmt.Errorf("could not set write chunk-size to 0xffff: %w", err)
	}

	err = c.ft.SetReadChunkSize(0xffff)
	if err != nil {
		return fmt.Errorf("could not set read chunk-size to 0xffff: %w", err)
	}

	err = c.ft.PurgeBuffers()
	if err != nil {
		return fmt.Errorf("could not purge buffers: %w", err)
	}

	return nil
}

func (c *ftdiConn) Write(p []byte) (int, error) { return c.ft.Write(p) }

// Read polls the FTDI channel until data shows up or the timeout
// elapses. libftdi reads return immediately with whatever the chip
// buffered, so the deadline is enforced here.
func (c *ftdiConn) Read(p []byte) (int, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		n, err := c.ft.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("gpib: FTDI read timeout after %v", c.timeout)
		}
		time.Sleep(1 * time.Millisecond)
	}
}

func (c *ftdiConn) SetTimeout(d time.Duration) error {
	c.timeout = d
	return nil
}

func (c *ftdiConn) Close() error { return c.ft.Close() }
