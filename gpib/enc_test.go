// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpib

import (
	"bytes"
	"testing"
)

func TestEncodings(t *testing.T) {
	encs := encodings()
	want := []string{"packed-be", "packed-le", "naf-raw", "hdr-31"}
	if got := len(encs); got != len(want) {
		t.Fatalf("invalid number of candidates: got=%d, want=%d", got, len(want))
	}
	for i, enc := range encs {
		if got := enc.name; got != want[i] {
			t.Fatalf("candidate %d: invalid name: got=%q, want=%q", i, got, want[i])
		}
		if enc.hasData {
			t.Fatalf("candidate %q: unexpected embedded payload", enc.name)
		}
	}
}

func TestEncBytes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		enc     func(n, a, f int, data uint32, read bool) []byte
		n, a, f int
		want    []byte
	}{
		// [N(5)|A(4)|F(6)|0] for N=2 A=1 F=0 is 0x001080.
		{name: "packed-be", enc: encPackedBE, n: 2, a: 1, f: 0, want: []byte{0x00, 0x10, 0x80}},
		{name: "packed-le", enc: encPackedLE, n: 2, a: 1, f: 0, want: []byte{0x80, 0x10, 0x00}},
		{name: "naf-raw", enc: encNAFRaw, n: 2, a: 1, f: 0, want: []byte{0x02, 0x01, 0x00}},
		{name: "hdr-31", enc: encHeader31, n: 2, a: 1, f: 0, want: []byte{0x31, 0x00, 0x10, 0x80}},
		{name: "naf-raw-ctrl", enc: encNAFRaw, n: 30, a: 0, f: 9, want: []byte{0x1e, 0x00, 0x09}},
		// fields are masked to their bit widths.
		{name: "naf-raw-mask", enc: encNAFRaw, n: 255, a: 255, f: 255, want: []byte{0x1f, 0x1f, 0x1f}},
	} {
		got := tc.enc(tc.n, tc.a, tc.f, 0, true)
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("%s: invalid command: got=% x, want=% x", tc.name, got, tc.want)
		}
	}
}

func TestBEBytes(t *testing.T) {
	for _, tc := range []struct {
		v     uint32
		width int
		want  []byte
	}{
		{v: 0xabcdef, width: 3, want: []byte{0xab, 0xcd, 0xef}},
		{v: 0x1234, width: 2, want: []byte{0x12, 0x34}},
		{v: 0xff, width: 1, want: []byte{0xff}},
		{v: 0xffffffff, width: 3, want: []byte{0xff, 0xff, 0xff}},
	} {
		got := beBytes(tc.v, tc.width)
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("beBytes(0x%x, %d): got=% x, want=% x", tc.v, tc.width, got, tc.want)
		}
		if dec := beUint(got); dec != beUint(tc.want) {
			t.Fatalf("beUint(0x%x): got=0x%x", tc.v, dec)
		}
	}

	if got, want := beUint([]byte{0x01, 0x02, 0x03}), uint32(0x010203); got != want {
		t.Fatalf("invalid beUint: got=0x%x, want=0x%x", got, want)
	}
}
