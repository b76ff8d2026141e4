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

package rt

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/machine"
)

// Stage is a state of the startup sequence. The machine is linear with no
// transition back: each stage's postcondition is a precondition the next
// stage and everything after it relies on.
type Stage int

const (
	// StageReset is the pre-sequencer state.
	StageReset Stage = iota
	// StageModesInitialized: every banked stack pointer holds its
	// planned top.
	StageModesInitialized
	// StageBssZeroed: every byte of the BSS section reads as zero.
	StageBssZeroed
	// StageDataCopied: the data section matches its load image byte for
	// byte.
	StageDataCopied
	// StagePreInitHooksRun: all registered hooks have run, in order.
	StagePreInitHooksRun
	// StageEntryInvoked is terminal; there is no successor transition.
	StageEntryInvoked
)

func (s Stage) String() string {
	switch s {
	case StageReset:
		return "Reset"
	case StageModesInitialized:
		return "ModesInitialized"
	case StageBssZeroed:
		return "BssZeroed"
	case StageDataCopied:
		return "DataCopied"
	case StagePreInitHooksRun:
		return "PreInitHooksRun"
	case StageEntryInvoked:
		return "EntryInvoked"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Sequencer drives one core from reset to the entry point. It runs once;
// it is bound to the Reset vector by Attach and is not reentrant.
type Sequencer struct {
	prog  *Linked
	cpu   *machine.CPU
	stage Stage
	ran   bool
}

func newSequencer(l *Linked, c *machine.CPU) *Sequencer {
	return &Sequencer{prog: l, cpu: c}
}

// Stage returns the last completed stage.
func (s *Sequencer) Stage() Stage {
	return s.stage
}

// run executes the startup sequence. Interrupts stay masked for the whole
// of it, so no exception can observe a partially initialized image; the
// entry point inherits the masks and owns the decision to lift them.
//
// Every stage is infallible by construction: the link step bounded and
// checked every region this touches, and there is no channel to report an
// error on this side of the entry point. A failure here is a bug in the
// link checks, so it panics the simulation rather than limping on.
func (s *Sequencer) run() {
	if s.ran {
		panic("startup sequencer re-entered")
	}
	s.ran = true

	s.cpu.DisableInterrupts()

	s.initModeStacks()
	s.advance(StageModesInitialized)

	s.zeroBSS()
	s.advance(StageBssZeroed)

	s.copyData()
	s.advance(StageDataCopied)

	for _, hook := range s.prog.preInit {
		hook(s.cpu)
	}
	s.advance(StagePreInitHooksRun)

	s.advance(StageEntryInvoked)
	s.prog.entry(s.cpu)

	// The entry point must diverge. If it returns, park the core the way
	// the hand-written reset code ends in `b .`.
	s.cpu.Halt()
}

func (s *Sequencer) advance(next Stage) {
	glog.V(1).Infof("startup: %v -> %v", s.stage, next)
	s.stage = next
}

// initModeStacks visits each stacked mode, writes its banked stack pointer,
// and ends back in Supervisor, the mode the rest of the sequence and the
// entry point run in. It must precede BSS/data initialization (those are
// free to use a stack) and runs entirely under masked interrupts: switching
// into IRQ or FIQ mode with delivery live would let an exception ride an
// uninitialized stack pointer.
func (s *Sequencer) initModeStacks() {
	for _, m := range api.StackedModes {
		if _, err := s.cpu.EnterMode(m); err != nil {
			panic(fmt.Sprintf("mode switch to %v: %v", m, err))
		}
		s.cpu.Regs.SetSP(s.prog.Stacks.Top(m))
	}
	if _, err := s.cpu.EnterMode(api.ModeSupervisor); err != nil {
		panic(fmt.Sprintf("mode switch to Supervisor: %v", err))
	}
}

// zeroBSS clears the zero-initialized section: whole words first, then the
// tail bytes of a section whose size is not a word multiple.
func (s *Sequencer) zeroBSS() {
	bss := s.prog.cfg.BSS
	addr := bss.Start
	end := bss.End()
	for ; addr < end && addr%4 != 0; addr++ {
		s.must(s.cpu.Mem.Write8(addr, 0))
	}
	for ; addr+4 <= end; addr += 4 {
		s.must(s.cpu.Mem.Write32(addr, 0))
	}
	for ; addr < end; addr++ {
		s.must(s.cpu.Mem.Write8(addr, 0))
	}
}

// copyData moves the initialized-data image from its load address to its
// run address. The runs-in-place boot path hands in identical addresses;
// that case must be benign, so it short-circuits instead of relying on
// copy semantics.
func (s *Sequencer) copyData() {
	cfg := s.prog.cfg
	if cfg.Data.Size == 0 || cfg.DataLoad == cfg.Data.Start {
		return
	}
	src := cfg.DataLoad
	dst := cfg.Data.Start
	end := cfg.Data.End()
	if src%4 == 0 && dst%4 == 0 {
		for ; dst+4 <= end; src, dst = src+4, dst+4 {
			w, err := s.cpu.Mem.Read32(src)
			s.must(err)
			s.must(s.cpu.Mem.Write32(dst, w))
		}
	}
	for ; dst < end; src, dst = src+1, dst+1 {
		b, err := s.cpu.Mem.Read8(src)
		s.must(err)
		s.must(s.cpu.Mem.Write8(dst, b))
	}
}

func (s *Sequencer) must(err error) {
	if err != nil {
		panic(fmt.Sprintf("startup touched memory the link checks should have rejected: %v", err))
	}
}
