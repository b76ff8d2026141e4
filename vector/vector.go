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

// Package vector materializes the ARMv5 exception vector table: eight
// contiguous branch slots at a fixed base address, each loading the PC from
// a literal pool word immediately after the slots. Slot 5 ("Address Exceeds
// 26-bit") is reserved on the ARM926EJ-S and encodes a NOP with a zero
// literal.
package vector

import (
	"encoding/binary"
	"fmt"

	"github.com/apeng2012/arm9/api"
)

const (
	// NumSlots counts the vector slots including the reserved one.
	NumSlots = 8

	// Size is the encoded table size: eight instructions plus the eight
	// literal pool words they load from.
	Size = NumSlots * 8

	// BaseAlign is the required alignment of the table base.
	BaseAlign = 32

	// ldrPCLiteral is `ldr pc, [pc, #24]`: with the ARM pipeline's PC+8
	// read-ahead, slot n loads the literal word at base + 32 + 4n.
	ldrPCLiteral = 0xE59FF018

	// nop is `mov r0, r0`, filling the reserved slot.
	nop = 0xE1A00000
)

// Table is a vector table under construction: a base address and a branch
// target per slot.
type Table struct {
	base    uint32
	targets [NumSlots]uint32
}

// New returns an empty table at the given base address, which must be
// 32-byte aligned because the hardware fetches vectors from fixed offsets
// off it.
func New(base uint32) (*Table, error) {
	if base%BaseAlign != 0 {
		return nil, fmt.Errorf("vector base 0x%08x is not %d-byte aligned", base, BaseAlign)
	}
	return &Table{base: base}, nil
}

// Base returns the table base address.
func (t *Table) Base() uint32 {
	return t.base
}

// SetTarget points exception e's slot at addr.
func (t *Table) SetTarget(e api.Exception, addr uint32) error {
	if !e.Valid() {
		return fmt.Errorf("invalid exception %v", e)
	}
	if addr == 0 {
		return fmt.Errorf("%v target must not be zero", e)
	}
	t.targets[e.Offset()/4] = addr
	return nil
}

// Target returns the branch target of exception e's slot.
func (t *Table) Target(e api.Exception) uint32 {
	return t.targets[e.Offset()/4]
}

// Complete checks that every live slot resolves to a branch target. A zero
// slot would send the core to address zero on that exception, which is the
// reset vector, i.e. silent state corruption; this is the build-time guard
// against it.
func (t *Table) Complete() error {
	for _, e := range api.Exceptions {
		if t.targets[e.Offset()/4] == 0 {
			return fmt.Errorf("%v slot has no target", e)
		}
	}
	return nil
}

// Encode emits the table bytes: eight slot instructions followed by the
// literal pool. It refuses to encode an incomplete table.
func (t *Table) Encode() ([]byte, error) {
	if err := t.Complete(); err != nil {
		return nil, err
	}
	out := make([]byte, Size)
	for slot := 0; slot < NumSlots; slot++ {
		insn := uint32(ldrPCLiteral)
		if uint32(slot*4) == api.ReservedOffset {
			insn = nop
		}
		binary.LittleEndian.PutUint32(out[slot*4:], insn)
		binary.LittleEndian.PutUint32(out[NumSlots*4+slot*4:], t.targets[slot])
	}
	return out, nil
}
