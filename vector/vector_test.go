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

// Package vector_test holds blackbox tests for the vector package.
package vector_test

import (
	"encoding/binary"
	"testing"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/vector"
)

func fullTable(t *testing.T, base uint32) *vector.Table {
	t.Helper()
	tbl, err := vector.New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, e := range api.Exceptions {
		if err := tbl.SetTarget(e, 0x1000+uint32(i)*0x20); err != nil {
			t.Fatalf("SetTarget(%v): %v", e, err)
		}
	}
	return tbl
}

func TestNewRejectsUnalignedBase(t *testing.T) {
	if _, err := vector.New(0x10); err == nil {
		t.Fatal("New accepted an unaligned base")
	}
}

func TestCompleteness(t *testing.T) {
	tbl, err := vector.New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tbl.Complete(); err == nil {
		t.Fatal("empty table passed the completeness check")
	}
	if _, err := tbl.Encode(); err == nil {
		t.Fatal("Encode emitted an incomplete table")
	}

	// Filling all but one slot must still fail.
	for _, e := range api.Exceptions[:len(api.Exceptions)-1] {
		if err := tbl.SetTarget(e, 0x2000); err != nil {
			t.Fatalf("SetTarget(%v): %v", e, err)
		}
	}
	if err := tbl.Complete(); err == nil {
		t.Fatal("table with an empty FIQ slot passed the completeness check")
	}
	if err := tbl.SetTarget(api.FIQ, 0x2000); err != nil {
		t.Fatalf("SetTarget(FIQ): %v", err)
	}
	if err := tbl.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestSetTargetRejectsZero(t *testing.T) {
	tbl, err := vector.New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tbl.SetTarget(api.IRQ, 0); err == nil {
		t.Fatal("SetTarget accepted a zero target")
	}
}

func TestEncode(t *testing.T) {
	tbl := fullTable(t, 0)
	b, err := tbl.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(b) != vector.Size {
		t.Fatalf("encoded %d bytes, want %d", len(b), vector.Size)
	}

	for slot := 0; slot < vector.NumSlots; slot++ {
		insn := binary.LittleEndian.Uint32(b[slot*4:])
		lit := binary.LittleEndian.Uint32(b[32+slot*4:])
		if uint32(slot*4) == api.ReservedOffset {
			if insn != 0xE1A00000 {
				t.Errorf("reserved slot holds 0x%08x, want NOP", insn)
			}
			if lit != 0 {
				t.Errorf("reserved literal = 0x%08x, want 0", lit)
			}
			continue
		}
		// `ldr pc, [pc, #24]`: pc reads as slot+8, so the load hits the
		// literal pool word for this slot.
		if insn != 0xE59FF018 {
			t.Errorf("slot %d holds 0x%08x, want 0xE59FF018", slot, insn)
		}
		if lit == 0 {
			t.Errorf("slot %d literal is zero", slot)
		}
	}

	for i, e := range api.Exceptions {
		lit := binary.LittleEndian.Uint32(b[32+e.Offset():])
		want := 0x1000 + uint32(i)*0x20
		if lit != want {
			t.Errorf("%v literal = 0x%08x, want 0x%08x", e, lit, want)
		}
	}
}
