// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cfg parses CAMAC module configuration files and resolves
// module names into packed cycle addresses.
//
// The configuration format is line oriented, one module per line:
//
//	NAME BRANCH CRATE STATION [COMMENT]
//
// Fields are separated by runs of whitespace or commas; the trailing
// comment is kept verbatim. Blank lines and lines starting with '#',
// '*', '!' or ';' are ignored.
package cfg // import "github.com/go-lpc/camac/cfg"

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-lpc/camac"
)

// ErrUnknownModule is returned when a module name is not in the registry.
var ErrUnknownModule = errors.New("cfg: unknown module")

// Entry describes one named module slot in a crate.
type Entry struct {
	Name    string // upper-cased module name
	Branch  int
	Crate   int
	Station int
	Comment string // optional free-form comment
}

// Parse reads a module configuration from r.
//
// Malformed lines (too few fields, non-integer branch/crate/station)
// are skipped, they do not abort the parse. A later line reusing a
// name overrides the earlier one.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		index   = make(map[string]int)
		sc      = bufio.NewScanner(r)
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch line[0] {
		case '#', '*', '!', ';':
			continue
		}

		toks := split(line, 5)
		if len(toks) < 4 {
			continue
		}

		branch, err := strconv.Atoi(toks[1])
		if err != nil {
			continue
		}
		crate, err := strconv.Atoi(toks[2])
		if err != nil {
			continue
		}
		station, err := strconv.Atoi(toks[3])
		if err != nil {
			continue
		}

		e := Entry{
			Name:    strings.ToUpper(toks[0]),
			Branch:  branch,
			Crate:   crate,
			Station: station,
		}
		if len(toks) == 5 {
			e.Comment = toks[4]
		}

		if i, dup := index[e.Name]; dup {
			entries[i] = e
			continue
		}
		index[e.Name] = len(entries)
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cfg: could not scan configuration: %w", err)
	}
	return entries, nil
}

// ParseFile reads a module configuration from the named file.
func ParseFile(fname string) ([]Entry, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("cfg: could not open %q: %w", fname, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("cfg: could not parse %q: %w", fname, err)
	}
	return entries, nil
}

// split cuts s into at most n fields on runs of whitespace or commas.
// The n-th field holds the unsplit remainder of the line, commas and
// all: separators only matter up to the last address field.
func split(s string, n int) []string {
	sep := func(r rune) bool { return r == ',' || unicode.IsSpace(r) }

	var toks []string
	s = strings.TrimLeftFunc(s, sep)
	for s != "" && len(toks) < n-1 {
		i := strings.IndexFunc(s, sep)
		if i < 0 {
			break
		}
		toks = append(toks, s[:i])
		s = strings.TrimLeftFunc(s[i:], sep)
	}
	if s != "" {
		toks = append(toks, s)
	}
	return toks
}

// Registry maps module names to crate addresses.
//
// A Registry is replaced wholesale by each Load call; it performs no
// incremental mutation and is not safe for concurrent use.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Load replaces the registry content with the given entries.
func (reg *Registry) Load(entries []Entry) {
	reg.entries = make([]Entry, len(entries))
	copy(reg.entries, entries)
	reg.index = make(map[string]int, len(entries))
	for i, e := range reg.entries {
		reg.index[e.Name] = i
	}
}

// LoadFrom parses a configuration from r and replaces the registry
// content with it.
func (reg *Registry) LoadFrom(r io.Reader) error {
	entries, err := Parse(r)
	if err != nil {
		return err
	}
	reg.Load(entries)
	return nil
}

// Resolve returns the packed address of the named module (case
// insensitive) at the given subaddress.
func (reg *Registry) Resolve(name string, addr int) (camac.Ext, error) {
	i, ok := reg.index[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownModule, name)
	}
	e := reg.entries[i]
	return camac.NewExt(e.Branch, e.Crate, e.Station, addr), nil
}

// Get returns the entry for the named module (case insensitive).
func (reg *Registry) Get(name string) (Entry, bool) {
	i, ok := reg.index[strings.ToUpper(name)]
	if !ok {
		return Entry{}, false
	}
	return reg.entries[i], true
}

// Modules returns the registry entries in configuration order.
func (reg *Registry) Modules() []Entry {
	entries := make([]Entry, len(reg.entries))
	copy(entries, reg.entries)
	return entries
}
