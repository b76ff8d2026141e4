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

package machine

import (
	"encoding/binary"
	"fmt"
)

// Memory is the flat SRAM bus of the simulated device: a single region
// with an origin address, little-endian like the core. Accesses outside
// the region fail with an error the way a real bus access faults; the CPU
// layer turns those into data aborts.
type Memory struct {
	origin uint32
	data   []byte
}

// NewMemory allocates a zeroed region of the given origin and length.
func NewMemory(origin, length uint32) *Memory {
	return &Memory{origin: origin, data: make([]byte, length)}
}

// Origin returns the bus address of the first byte.
func (m *Memory) Origin() uint32 {
	return m.origin
}

// Size returns the region length in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *Memory) index(addr, n uint32) (int, error) {
	if addr < m.origin || addr-m.origin > m.Size() || m.Size()-(addr-m.origin) < n {
		return 0, fmt.Errorf("access of %d bytes at 0x%08x outside [0x%08x, 0x%08x)", n, addr, m.origin, m.origin+m.Size())
	}
	return int(addr - m.origin), nil
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) (byte, error) {
	i, err := m.index(addr, 1)
	if err != nil {
		return 0, err
	}
	return m.data[i], nil
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, v byte) error {
	i, err := m.index(addr, 1)
	if err != nil {
		return err
	}
	m.data[i] = v
	return nil
}

// Read32 reads a little-endian word. The ARM926 takes unaligned word
// accesses as rotated reads; this model forbids them outright.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, fmt.Errorf("unaligned word read at 0x%08x", addr)
	}
	i, err := m.index(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[i:]), nil
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, v uint32) error {
	if addr%4 != 0 {
		return fmt.Errorf("unaligned word write at 0x%08x", addr)
	}
	i, err := m.index(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[i:], v)
	return nil
}

// ReadRange copies n bytes starting at addr.
func (m *Memory) ReadRange(addr, n uint32) ([]byte, error) {
	i, err := m.index(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.data[i:])
	return out, nil
}

// WriteRange copies b into memory starting at addr.
func (m *Memory) WriteRange(addr uint32, b []byte) error {
	i, err := m.index(addr, uint32(len(b)))
	if err != nil {
		return err
	}
	copy(m.data[i:], b)
	return nil
}

// ReadCString reads bytes from addr up to (not including) the first NUL,
// bounded by the end of the region.
func (m *Memory) ReadCString(addr uint32) (string, error) {
	i, err := m.index(addr, 0)
	if err != nil {
		return "", err
	}
	for j := i; j < len(m.data); j++ {
		if m.data[j] == 0 {
			return string(m.data[i:j]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at 0x%08x", addr)
}
