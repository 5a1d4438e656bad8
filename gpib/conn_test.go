// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpib

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestTCPConn(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not listen: %+v", err)
	}
	defer lis.Close()

	go func() {
		srv, err := lis.Accept()
		if err != nil {
			return
		}
		defer srv.Close()
		buf := make([]byte, 3)
		for {
			_, err := srv.Read(buf)
			if err != nil {
				return
			}
			// echo the command back, like a loopback controller.
			_, err = srv.Write(buf)
			if err != nil {
				return
			}
		}
	}()

	conn, err := gpibDialImpl(lis.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("could not dial: %+v", err)
	}
	defer conn.Close()

	cmd := []byte{0x02, 0x01, 0x00}
	_, err = conn.Write(cmd)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	buf := make([]byte, 3)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if !bytes.Equal(buf[:n], cmd) {
		t.Fatalf("invalid echo: got=% x, want=% x", buf[:n], cmd)
	}

	// a silent controller must time out, not hang.
	err = conn.SetTimeout(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("could not set timeout: %+v", err)
	}
	start := time.Now()
	_, err = conn.Read(buf)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if d := time.Since(start); d > 1*time.Second {
		t.Fatalf("read did not honor the timeout: %v", d)
	}
}

func TestOpenNoController(t *testing.T) {
	_, err := Open("127.0.0.1:1", WithTimeout(10*time.Millisecond))
	if err == nil {
		t.Fatalf("expected a dial error")
	}
}
