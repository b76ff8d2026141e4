// Copyright 2026 The arm9 Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package layout describes the memory picture the runtime boots into: the
// named regions from the external linker configuration, and the per-mode
// stack ranges carved out of the RAM region.
//
// The configuration is authored outside this module (it is the same
// memory.x file the linker consumes); this package only parses the subset
// the runtime needs and checks it for the mistakes that must be caught
// before an image is produced, because there is no way to report them at
// run time.
package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a named memory region with an origin address and a length.
type Region struct {
	Name   string
	Origin uint32
	Length uint32
}

// End returns the first address past the region.
func (r Region) End() uint32 {
	return r.Origin + r.Length
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uint32) bool {
	return addr >= r.Origin && n <= r.Length && addr-r.Origin <= r.Length-n
}

func (r Region) String() string {
	return fmt.Sprintf("%s: ORIGIN=0x%08x LENGTH=%d", r.Name, r.Origin, r.Length)
}

// Memory is the parsed linker memory configuration.
type Memory struct {
	// Regions holds the declared regions in declaration order.
	Regions []Region

	// StackStart is the configured initial stack top, or zero when the
	// configuration leaves it at the default (the end of the RAM region).
	StackStart uint32

	// VectorBase is the configured vector table placement, or zero when
	// the table sits at the hardware default address 0.
	VectorBase uint32
}

// Region looks a region up by name.
func (m *Memory) Region(name string) (Region, error) {
	for _, r := range m.Regions {
		if r.Name == name {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("no region named %q", name)
}

// ParseMemoryX parses the supported subset of a memory.x linker
// configuration:
//
//	MEMORY
//	{
//	  SRAM : ORIGIN = 0x00000000, LENGTH = 40K
//	}
//	_stack_start = ORIGIN(SRAM) + LENGTH(SRAM);
//	PROVIDE(__vector_base = 0x00000000);
//
// Unknown statements are errors: a typo in a file this load-bearing should
// fail the build, not be skipped.
func ParseMemoryX(data []byte) (*Memory, error) {
	m := &Memory{}
	inMemory := false

	for n, raw := range strings.Split(stripComments(string(data)), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lineNo := n + 1

		switch {
		case !inMemory && line == "MEMORY":
			inMemory = true
		case inMemory && line == "{":
			// Opening brace of the MEMORY block.
		case inMemory && line == "}":
			inMemory = false
		case inMemory:
			r, err := parseRegionLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if _, dup := m.Region(r.Name); dup == nil {
				return nil, fmt.Errorf("line %d: duplicate region %q", lineNo, r.Name)
			}
			m.Regions = append(m.Regions, r)
		case strings.HasPrefix(line, "_stack_start"):
			v, err := parseAssignment(line, "_stack_start", m)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			m.StackStart = v
		case strings.HasPrefix(line, "PROVIDE(") && strings.HasSuffix(line, ");"):
			inner := strings.TrimSuffix(strings.TrimPrefix(line, "PROVIDE("), ");")
			v, err := parseAssignment(inner+";", "__vector_base", m)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			m.VectorBase = v
		default:
			return nil, fmt.Errorf("line %d: unsupported statement %q", lineNo, line)
		}
	}
	if inMemory {
		return nil, fmt.Errorf("unterminated MEMORY block")
	}
	if len(m.Regions) == 0 {
		return nil, fmt.Errorf("no regions declared")
	}
	return m, nil
}

// stripComments removes /* ... */ block comments.
func stripComments(s string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "/*")
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:open])
		rest := s[open+2:]
		end := strings.Index(rest, "*/")
		if end < 0 {
			// Unterminated comment swallows the remainder; the parser
			// will complain about whatever statement got truncated.
			return b.String()
		}
		s = rest[end+2:]
	}
}

// parseRegionLine parses `NAME : ORIGIN = <value>, LENGTH = <value>`.
func parseRegionLine(line string) (Region, error) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Region{}, fmt.Errorf("malformed region %q", line)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Region{}, fmt.Errorf("region with empty name: %q", line)
	}
	originPart, lengthPart, ok := strings.Cut(rest, ",")
	if !ok {
		return Region{}, fmt.Errorf("region %q: want `ORIGIN = ..., LENGTH = ...`", name)
	}
	origin, err := parseKeyValue(originPart, "ORIGIN")
	if err != nil {
		return Region{}, fmt.Errorf("region %q: %w", name, err)
	}
	length, err := parseKeyValue(lengthPart, "LENGTH")
	if err != nil {
		return Region{}, fmt.Errorf("region %q: %w", name, err)
	}
	if length == 0 {
		return Region{}, fmt.Errorf("region %q has zero length", name)
	}
	if origin+length < origin {
		return Region{}, fmt.Errorf("region %q wraps the address space", name)
	}
	return Region{Name: name, Origin: origin, Length: length}, nil
}

func parseKeyValue(s, key string) (uint32, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) != key {
		return 0, fmt.Errorf("want `%s = <value>`, got %q", key, strings.TrimSpace(s))
	}
	return parseValue(strings.TrimSpace(v))
}

// parseAssignment parses `<symbol> = <expr>;` where expr is a numeric value
// or `ORIGIN(NAME) + LENGTH(NAME)`.
func parseAssignment(line, symbol string, m *Memory) (uint32, error) {
	body := strings.TrimSuffix(strings.TrimSpace(line), ";")
	k, v, ok := strings.Cut(body, "=")
	if !ok || strings.TrimSpace(k) != symbol {
		return 0, fmt.Errorf("want `%s = <value>;`, got %q", symbol, line)
	}
	expr := strings.TrimSpace(v)

	if lhs, rhs, ok := strings.Cut(expr, "+"); ok {
		origin, err := parseRegionFunc(strings.TrimSpace(lhs), "ORIGIN", m)
		if err != nil {
			return 0, err
		}
		length, err := parseRegionFunc(strings.TrimSpace(rhs), "LENGTH", m)
		if err != nil {
			return 0, err
		}
		return origin + length, nil
	}
	return parseValue(expr)
}

func parseRegionFunc(s, fn string, m *Memory) (uint32, error) {
	if !strings.HasPrefix(s, fn+"(") || !strings.HasSuffix(s, ")") {
		return 0, fmt.Errorf("want `%s(NAME)`, got %q", fn, s)
	}
	r, err := m.Region(s[len(fn)+1 : len(s)-1])
	if err != nil {
		return 0, err
	}
	if fn == "ORIGIN" {
		return r.Origin, nil
	}
	return r.Length, nil
}

// parseValue parses 0x-prefixed hex or decimal with an optional K or M
// suffix.
func parseValue(s string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1024, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1024*1024, strings.TrimSuffix(s, "M")
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", s, err)
	}
	v *= mult
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("value %q does not fit a 32-bit address", s)
	}
	return uint32(v), nil
}
