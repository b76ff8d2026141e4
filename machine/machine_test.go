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

// Package machine_test holds blackbox tests for the machine package.
package machine_test

import (
	"testing"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/machine"
	"github.com/apeng2012/arm9/vector"
)

// install binds a full vector table with the given handlers; exceptions
// without an entry in handlers trap by default here.
func install(t *testing.T, c *machine.CPU, handlers map[api.Exception]machine.Handler) {
	t.Helper()
	tbl, err := vector.New(0)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}
	for i, e := range api.Exceptions {
		if err := tbl.SetTarget(e, 0x100+uint32(i)*0x20); err != nil {
			t.Fatalf("SetTarget(%v): %v", e, err)
		}
	}
	if err := c.Install(tbl, handlers); err != nil {
		t.Fatalf("Install: %v", err)
	}
}

func TestMemoryBounds(t *testing.T) {
	m := machine.NewMemory(0x1000, 64)
	if err := m.Write32(0x1000, 0xDEADBEEF); err != nil {
		t.Fatalf("Write32: %v", err)
	}
	v, err := m.Read32(0x1000)
	if err != nil || v != 0xDEADBEEF {
		t.Fatalf("Read32 = 0x%x, %v; want 0xDEADBEEF", v, err)
	}
	if b, err := m.Read8(0x1003); err != nil || b != 0xDE {
		t.Fatalf("Read8 = 0x%x, %v; little-endian layout broken", b, err)
	}
	for _, test := range []struct {
		desc string
		fn   func() error
	}{
		{desc: "below origin", fn: func() error { _, err := m.Read8(0xFFF); return err }},
		{desc: "past end", fn: func() error { return m.Write8(0x1040, 1) }},
		{desc: "word straddles end", fn: func() error { _, err := m.Read32(0x103E); return err }},
		{desc: "unaligned word", fn: func() error { _, err := m.Read32(0x1002); return err }},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if test.fn() == nil {
				t.Fatal("access outside the region succeeded")
			}
		})
	}
}

func TestResetState(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	m, err := c.Regs.CPSR.Mode()
	if err != nil || m != api.ModeSupervisor {
		t.Fatalf("reset mode = %v, %v; want Supervisor", m, err)
	}
	if !c.Regs.CPSR.IRQMasked() || !c.Regs.CPSR.FIQMasked() {
		t.Fatalf("reset CPSR %v must mask both interrupt classes", c.Regs.CPSR)
	}
	if !c.Running() {
		t.Fatal("fresh core not running")
	}
}

func TestEnterModeBanksStackPointers(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	tops := map[api.Mode]uint32{}
	for i, m := range api.StackedModes {
		prev, err := c.EnterMode(m)
		if err != nil {
			t.Fatalf("EnterMode(%v): %v", m, err)
		}
		if i == 0 && prev != api.ModeSupervisor {
			t.Fatalf("first switch came from %v, want Supervisor", prev)
		}
		top := 0x1000 - uint32(i)*0x100
		c.Regs.SetSP(top)
		tops[m] = top
	}
	if _, err := c.EnterMode(api.ModeSupervisor); err != nil {
		t.Fatalf("EnterMode(Supervisor): %v", err)
	}
	for m, want := range tops {
		if got := c.Regs.SPFor(m); got != want {
			t.Errorf("%v SP = 0x%x, want 0x%x", m, got, want)
		}
	}
	// User observes the System bank.
	if got := c.Regs.SPFor(api.ModeUser); got != tops[api.ModeSystem] {
		t.Errorf("User SP = 0x%x, want System's 0x%x", got, tops[api.ModeSystem])
	}
}

func TestRaiseSWIReturnsToNextInstruction(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	var sawMode api.Mode
	var frame api.Frame
	install(t, c, map[api.Exception]machine.Handler{
		api.SoftwareInterrupt: func(c *machine.CPU, f *api.Frame) {
			sawMode, _ = c.Regs.CPSR.Mode()
			frame = *f
			f.R0 = 99
		},
	})

	c.Regs.R[0] = 7
	c.Regs.PC = 0x200
	before := c.Regs.CPSR
	c.Raise(api.SoftwareInterrupt)

	if sawMode != api.ModeSupervisor {
		t.Errorf("handler ran in %v, want Supervisor", sawMode)
	}
	if frame.R0 != 7 {
		t.Errorf("frame r0 = %d, want 7", frame.R0)
	}
	if frame.PC != 0x204 {
		t.Errorf("frame resume pc = 0x%x, want 0x204", frame.PC)
	}
	if c.Regs.PC != 0x204 {
		t.Errorf("pc after return = 0x%x, want 0x204", c.Regs.PC)
	}
	if c.Regs.R[0] != 99 {
		t.Errorf("r0 after return = %d, want 99 (handler result)", c.Regs.R[0])
	}
	if c.Regs.CPSR != before {
		t.Errorf("CPSR after return = %v, want %v", c.Regs.CPSR, before)
	}
}

func TestUnhandledDataAbortTrapsForever(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	install(t, c, nil)

	c.Regs.PC = 0x300
	c.Raise(api.DataAbort)

	if !c.Trapped() {
		t.Fatal("unhandled data abort did not trap")
	}
	trapPC := c.Regs.PC
	for i := 0; i < 1000; i++ {
		c.Step()
	}
	if c.Regs.PC != trapPC {
		t.Fatalf("pc advanced from trap: 0x%x -> 0x%x", trapPC, c.Regs.PC)
	}
	m, _ := c.Regs.CPSR.Mode()
	if m != api.ModeAbort {
		t.Errorf("trapped core in %v, want Abort (state preserved for inspection)", m)
	}
}

func TestMaskedIRQStaysPending(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	fired := 0
	install(t, c, map[api.Exception]machine.Handler{
		api.IRQ: func(c *machine.CPU, f *api.Frame) { fired++ },
	})

	// Reset state masks IRQ: nothing may be delivered.
	c.Raise(api.IRQ)
	for i := 0; i < 10; i++ {
		c.Step()
	}
	if fired != 0 {
		t.Fatalf("masked IRQ fired %d times", fired)
	}

	c.Regs.CPSR = c.Regs.CPSR.WithIRQMasked(false)
	c.Step()
	if fired != 1 {
		t.Fatalf("unmasking delivered %d IRQs, want 1", fired)
	}
}

func TestIRQEntryMasksSameKind(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	var maskedDuringHandler bool
	install(t, c, map[api.Exception]machine.Handler{
		api.IRQ: func(c *machine.CPU, f *api.Frame) {
			maskedDuringHandler = c.Regs.CPSR.IRQMasked()
		},
	})
	c.Regs.CPSR = c.Regs.CPSR.WithIRQMasked(false)
	c.Raise(api.IRQ)
	if !maskedDuringHandler {
		t.Fatal("IRQ entry did not mask IRQ for the handler's duration")
	}
	if c.Regs.CPSR.IRQMasked() {
		t.Fatal("returning from the handler did not restore the clear mask")
	}
}

func TestFIQBeatsIRQ(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	var order []api.Exception
	install(t, c, map[api.Exception]machine.Handler{
		api.IRQ: func(c *machine.CPU, f *api.Frame) { order = append(order, api.IRQ) },
		api.FIQ: func(c *machine.CPU, f *api.Frame) { order = append(order, api.FIQ) },
	})
	if err := c.Signal(api.IRQ); err != nil {
		t.Fatalf("Signal(IRQ): %v", err)
	}
	if err := c.Signal(api.FIQ); err != nil {
		t.Fatalf("Signal(FIQ): %v", err)
	}
	if err := c.Signal(api.DataAbort); err == nil {
		t.Fatal("Signal accepted a synchronous exception")
	}
	c.Regs.CPSR = c.Regs.CPSR.WithIRQMasked(false).WithFIQMasked(false)
	c.Step()
	c.Step()
	if len(order) != 2 || order[0] != api.FIQ || order[1] != api.IRQ {
		t.Fatalf("delivery order %v, want [FIQ IRQ]", order)
	}
}

func TestEnterModeFromUserRejected(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	if _, err := c.EnterMode(api.ModeUser); err != nil {
		t.Fatalf("EnterMode(User): %v", err)
	}
	if _, err := c.EnterMode(api.ModeSupervisor); err == nil {
		t.Fatal("mode switch from User succeeded")
	}
}

func TestAbortHandlerMayFixUpAndResume(t *testing.T) {
	c := machine.New(machine.NewMemory(0, 4096))
	install(t, c, map[api.Exception]machine.Handler{
		api.DataAbort: func(c *machine.CPU, f *api.Frame) {
			// Skip the faulting instruction instead of retrying it.
			f.PC += 4
		},
	})
	c.Regs.PC = 0x400
	c.Raise(api.DataAbort)
	if c.Trapped() {
		t.Fatal("handled abort trapped")
	}
	if c.Regs.PC != 0x404 {
		t.Fatalf("pc = 0x%x, want 0x404 (skipped faulting instruction)", c.Regs.PC)
	}
}
