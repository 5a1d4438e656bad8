// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmds func() []*exec.Cmd
		mon  bool
		stop bool
	}{
		{
			name: "simple",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command("sleep", "1"),
					exec.Command("sleep", "1"),
				}
			},
		},
		{
			name: "simple-pmon",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command("sleep", "2"),
					exec.Command("sleep", "2"),
				}
			},
			mon: true,
		},
		{
			name: "simple-stop",
			cmds: func() []*exec.Cmd {
				return []*exec.Cmd{
					exec.Command("sleep", "30"),
					exec.Command("sleep", "30"),
				}
			},
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(1 * time.Second)
					stop <- os.Interrupt
				}()
			}
			err := run(tc.mon, 500*time.Millisecond, tc.cmds(), dir, stop)
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}
		})
	}
}

func TestRunBadLogDir(t *testing.T) {
	cmds := []*exec.Cmd{exec.Command("sleep", "1")}
	stop := make(chan os.Signal, 1)
	err := run(false, time.Second, cmds, "/dev/null/not-a-dir", stop)
	if err == nil {
		t.Fatalf("expected an error for an unusable log directory")
	}
}
