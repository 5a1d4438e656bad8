// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpib

// encoding is one candidate wire layout for an N-A-F command.
//
// Candidates are pure and immutable; the order of the encodings slice
// defines probing priority.
type encoding struct {
	name string
	enc  func(n, a, f int, data uint32, read bool) []byte

	// hasData reports whether the command sequence already embeds
	// the write payload. When false, the backend appends the data
	// word as a separate big-endian sequence.
	hasData bool
}

// encodings returns the candidates in probing priority order.
func encodings() []encoding {
	return []encoding{
		{name: "packed-be", enc: encPackedBE},
		{name: "packed-le", enc: encPackedLE},
		{name: "naf-raw", enc: encNAFRaw},
		{name: "hdr-31", enc: encHeader31},
	}
}

// encPackedBE packs N-A-F into a 24-bit command word,
// [N(5)|A(4)|F(6)|0], sent as 3 bytes MSB first.
func encPackedBE(n, a, f int, data uint32, read bool) []byte {
	cmd := uint32(n&0x1f)<<11 | uint32(a&0x0f)<<7 | uint32(f&0x3f)<<1
	return []byte{byte(cmd >> 16), byte(cmd >> 8), byte(cmd)}
}

// encPackedLE is the same bit layout as encPackedBE with the 3 bytes
// sent LSB first.
func encPackedLE(n, a, f int, data uint32, read bool) []byte {
	cmd := uint32(n&0x1f)<<11 | uint32(a&0x0f)<<7 | uint32(f&0x3f)<<1
	return []byte{byte(cmd), byte(cmd >> 8), byte(cmd >> 16)}
}

// encNAFRaw sends N, A and F as 3 raw bytes, the layout of the
// KineticSystems 3988 controller.
func encNAFRaw(n, a, f int, data uint32, read bool) []byte {
	return []byte{byte(n & 0x1f), byte(a & 0x1f), byte(f & 0x1f)}
}

// encHeader31 prefixes the packed command with a 0x31 mode byte, seen
// on controllers that expect a transfer-mode selector first.
func encHeader31(n, a, f int, data uint32, read bool) []byte {
	return append([]byte{0x31}, encPackedBE(n, a, f, data, read)...)
}

// beBytes encodes the low width bytes of v MSB first.
func beBytes(v uint32, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// beUint decodes buf MSB first.
func beUint(buf []byte) uint32 {
	var v uint32
	for _, b := range buf {
		v = v<<8 | uint32(b)
	}
	return v
}
