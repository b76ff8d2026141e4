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

// Package machine simulates the ARM926EJ-S processor state the runtime
// manages: the banked register file, the interrupt masks, and the
// architectural exception entry and return sequences. It does not
// interpret instructions; exception handlers are Go functions bound
// through the vector table, and only the state transitions around them are
// modeled. The main instruction stream between exceptions is abstracted to
// "the PC advances".
package machine

import (
	"fmt"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/vector"
)

// Handler services one exception on the CPU it fires on. The frame is the
// dispatcher's minimal-restore contract: its contents are written back to
// the register file if and when the handler returns.
type Handler func(*CPU, *api.Frame)

// CPU is one simulated ARM926EJ-S core attached to a Memory.
type CPU struct {
	Mem  *Memory
	Regs RegisterFile

	targets  [vector.NumSlots]uint32
	handlers map[api.Exception]Handler

	pendingIRQ bool
	pendingFIQ bool

	trapped bool
	halted  bool
}

// New returns a core in its architectural reset state: Supervisor mode,
// IRQ and FIQ masked, PC at the reset vector.
func New(mem *Memory) *CPU {
	return &CPU{
		Mem: mem,
		Regs: RegisterFile{
			CPSR: api.NewCPSR(api.ModeSupervisor, true, true),
		},
	}
}

// Install binds the vector table and its handlers to the core. It is the
// first effect of reset: nothing is dispatchable before it, everything
// after it re-enters through the table.
func (c *CPU) Install(t *vector.Table, handlers map[api.Exception]Handler) error {
	if err := t.Complete(); err != nil {
		return fmt.Errorf("refusing to install vector table: %w", err)
	}
	for _, e := range api.Exceptions {
		c.targets[e.Offset()/4] = t.Target(e)
	}
	c.handlers = make(map[api.Exception]Handler, len(handlers))
	for e, h := range handlers {
		c.handlers[e] = h
	}
	return nil
}

// EnterMode switches the core into mode m and returns the mode it was in.
// It is the privileged status-register write the startup sequencer uses to
// reach each banked stack pointer; User code cannot perform it.
func (c *CPU) EnterMode(m api.Mode) (api.Mode, error) {
	cur, err := c.Regs.CPSR.Mode()
	if err != nil {
		return 0, err
	}
	if !cur.Privileged() {
		return 0, fmt.Errorf("mode switch attempted from User")
	}
	if !m.Valid() {
		return 0, fmt.Errorf("invalid target mode %v", m)
	}
	c.Regs.CPSR = c.Regs.CPSR.WithMode(m)
	return cur, nil
}

// DisableInterrupts masks IRQ and FIQ, returning the previous CPSR for a
// later RestoreInterrupts. It is the only critical-section primitive this
// layer has.
func (c *CPU) DisableInterrupts() api.CPSR {
	prev := c.Regs.CPSR
	c.Regs.CPSR = prev.WithIRQMasked(true).WithFIQMasked(true)
	return prev
}

// RestoreInterrupts restores only the two mask bits from a CPSR previously
// returned by DisableInterrupts.
func (c *CPU) RestoreInterrupts(prev api.CPSR) {
	c.Regs.CPSR = c.Regs.CPSR.
		WithIRQMasked(prev.IRQMasked()).
		WithFIQMasked(prev.FIQMasked())
}

// Signal marks an asynchronous interrupt pending. It is delivered at the
// next Step boundary where its mask bit is clear; the hardware, not the
// interrupted code, picks that boundary.
func (c *CPU) Signal(e api.Exception) error {
	switch e {
	case api.IRQ:
		c.pendingIRQ = true
	case api.FIQ:
		c.pendingFIQ = true
	default:
		return fmt.Errorf("%v cannot be signalled; synchronous exceptions are raised, not pended", e)
	}
	return nil
}

// Raise takes exception e immediately: banks the return state, forces the
// entry mode and masks, vectors the PC, and runs the bound handler. When
// the handler returns normally the per-kind return sequence restores the
// frame; a missing handler parks the core in the trap state.
//
// Raising a masked IRQ/FIQ leaves it pending instead, as the core would.
func (c *CPU) Raise(e api.Exception) {
	if !e.Valid() {
		panic(fmt.Sprintf("raise of invalid exception %v", e))
	}
	if e == api.IRQ && c.Regs.CPSR.IRQMasked() || e == api.FIQ && c.Regs.CPSR.FIQMasked() {
		// Delivery is blocked; keep it pending.
		c.Signal(e)
		return
	}

	prev := c.Regs.CPSR
	mode := e.EntryMode()
	ret := c.Regs.PC + e.LinkOffset()

	c.Regs.setSPSRFor(mode, prev)
	c.Regs.setLRFor(mode, ret)
	c.Regs.CPSR = prev.WithMode(mode).WithIRQMasked(true)
	if e.MasksFIQ() {
		c.Regs.CPSR = c.Regs.CPSR.WithFIQMasked(true)
	}
	c.Regs.PC = c.targets[e.Offset()/4]

	h := c.handlers[e]
	if h == nil {
		c.Trap()
		return
	}

	f := api.Frame{
		R0: c.Regs.R[0], R1: c.Regs.R[1], R2: c.Regs.R[2], R3: c.Regs.R[3],
		R12:  c.Regs.R[12],
		LR:   ret,
		PC:   ret - resumeBack(e),
		CPSR: prev,
	}
	h(c, &f)

	// Reset diverges into the startup sequence; a trap or halt inside any
	// handler is terminal. Everything else returns through the frame.
	if e == api.Reset || c.trapped || c.halted {
		return
	}
	c.returnFrom(f)
}

// resumeBack is the per-kind adjustment from the banked link register to
// the default resume address: `subs pc, lr, #n` in the real return
// sequence. SWI and undefined-instruction handlers resume after the trap;
// IRQ/FIQ resume the instruction the interrupt displaced; the aborts
// retry the faulting instruction.
func resumeBack(e api.Exception) uint32 {
	switch e {
	case api.SoftwareInterrupt, api.UndefinedInstruction:
		return 0
	case api.DataAbort:
		return 8
	default:
		return 4
	}
}

// returnFrom restores exactly the frame register set. This is the whole of
// the restore contract: a handler that touched anything beyond the frame
// must have saved and restored it itself.
func (c *CPU) returnFrom(f api.Frame) {
	c.Regs.R[0], c.Regs.R[1], c.Regs.R[2], c.Regs.R[3] = f.R0, f.R1, f.R2, f.R3
	c.Regs.R[12] = f.R12
	c.Regs.PC = f.PC
	c.Regs.CPSR = f.CPSR
}

// Trap parks the core: the PC stays where the vector branch left it and
// never advances again. Processor state is deliberately left intact for an
// attached debugger; recovery is application-specific and not guessed at
// here.
func (c *CPU) Trap() {
	c.trapped = true
}

// Trapped reports whether the core sits in a trap loop.
func (c *CPU) Trapped() bool {
	return c.trapped
}

// Halt stops the core without the trap connotation; the startup sequencer
// uses it when a diverging function returns anyway.
func (c *CPU) Halt() {
	c.halted = true
}

// Halted reports whether the core has been halted.
func (c *CPU) Halted() bool {
	return c.halted
}

// Running reports whether the core is neither trapped nor halted.
func (c *CPU) Running() bool {
	return !c.trapped && !c.halted
}

// Step advances simulated time by one instruction boundary: pending
// unmasked interrupts are delivered (FIQ beats IRQ), otherwise the PC
// moves past one instruction of the abstracted main stream. A trapped or
// halted core does not move at all.
func (c *CPU) Step() {
	if !c.Running() {
		return
	}
	if c.pendingFIQ && !c.Regs.CPSR.FIQMasked() {
		c.pendingFIQ = false
		c.Raise(api.FIQ)
		return
	}
	if c.pendingIRQ && !c.Regs.CPSR.IRQMasked() {
		c.pendingIRQ = false
		c.Raise(api.IRQ)
		return
	}
	c.Regs.PC += 4
}
