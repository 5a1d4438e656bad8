// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpib

import (
	"fmt"
	"net"
	"time"
)

// Conn is a raw byte-oriented connection to a crate controller.
// No text framing or terminators are used: all exchanges are binary.
type Conn interface {
	// Write sends the whole of p to the controller.
	Write(p []byte) (int, error)

	// Read reads up to len(p) bytes, waiting at most the configured
	// timeout for the first byte. Short reads are valid: a probing
	// caller decides what an incomplete answer means.
	Read(p []byte) (int, error)

	// SetTimeout adjusts the per-operation timeout.
	SetTimeout(d time.Duration) error

	Close() error
}

var gpibDial = gpibDialImpl

func gpibDialImpl(addr string, timeout time.Duration) (Conn, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("gpib: could not dial %q: %w", addr, err)
	}
	return &tcpConn{conn: c, timeout: timeout}, nil
}

// tcpConn drives a GPIB-LAN bridge over a plain TCP stream.
type tcpConn struct {
	conn    net.Conn
	timeout time.Duration
}

var _ Conn = (*tcpConn)(nil)

func (c *tcpConn) Write(p []byte) (int, error) {
	err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err != nil {
		return 0, fmt.Errorf("gpib: could not set write deadline: %w", err)
	}
	return c.conn.Write(p)
}

func (c *tcpConn) Read(p []byte) (int, error) {
	err := c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	if err != nil {
		return 0, fmt.Errorf("gpib: could not set read deadline: %w", err)
	}
	return c.conn.Read(p)
}

func (c *tcpConn) SetTimeout(d time.Duration) error {
	c.timeout = d
	return nil
}

func (c *tcpConn) Close() error { return c.conn.Close() }
