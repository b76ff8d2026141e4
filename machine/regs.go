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
	"fmt"

	"github.com/apeng2012/arm9/api"
)

// bankIndex maps a mode to its SP/LR bank. User and System share bank 0;
// hardware aliases those registers, this model aliases the index.
func bankIndex(m api.Mode) int {
	switch m.StackBank() {
	case api.ModeSystem:
		return 0
	case api.ModeFIQ:
		return 1
	case api.ModeIRQ:
		return 2
	case api.ModeSupervisor:
		return 3
	case api.ModeAbort:
		return 4
	case api.ModeUndefined:
		return 5
	}
	panic(fmt.Sprintf("no register bank for %v", m))
}

// RegisterFile models the ARM926EJ-S integer register state with the
// mode-banked registers represented as explicit per-bank storage rather
// than hardware aliasing. FIQ's additional r8-r12 bank is not modeled:
// handlers here are Go functions, so that bank is never observable.
type RegisterFile struct {
	// R holds r0 through r12.
	R [13]uint32
	// PC is r15.
	PC uint32
	// CPSR is the live status register.
	CPSR api.CPSR

	sp   [6]uint32
	lr   [6]uint32
	spsr [6]api.CPSR
}

// mode returns the current mode; the CPSR mode field is only ever written
// through EnterMode and exception entry, so it cannot be invalid.
func (r *RegisterFile) mode() api.Mode {
	m, err := r.CPSR.Mode()
	if err != nil {
		panic(fmt.Sprintf("corrupt CPSR %v: %v", r.CPSR, err))
	}
	return m
}

// SP returns the banked stack pointer of the current mode.
func (r *RegisterFile) SP() uint32 {
	return r.sp[bankIndex(r.mode())]
}

// SetSP writes the banked stack pointer of the current mode.
func (r *RegisterFile) SetSP(v uint32) {
	r.sp[bankIndex(r.mode())] = v
}

// SPFor returns the banked stack pointer of mode m.
func (r *RegisterFile) SPFor(m api.Mode) uint32 {
	return r.sp[bankIndex(m)]
}

// LR returns the banked link register of the current mode.
func (r *RegisterFile) LR() uint32 {
	return r.lr[bankIndex(r.mode())]
}

// SetLR writes the banked link register of the current mode.
func (r *RegisterFile) SetLR(v uint32) {
	r.lr[bankIndex(r.mode())] = v
}

// LRFor returns the banked link register of mode m.
func (r *RegisterFile) LRFor(m api.Mode) uint32 {
	return r.lr[bankIndex(m)]
}

// SPSR returns the saved status register of the current mode. It is only
// meaningful in the exception modes; System/User have no SPSR, and reading
// bank 0 returns the zero value just as the hardware returns UNPREDICTABLE.
func (r *RegisterFile) SPSR() api.CPSR {
	return r.spsr[bankIndex(r.mode())]
}

func (r *RegisterFile) setSPSRFor(m api.Mode, v api.CPSR) {
	r.spsr[bankIndex(m)] = v
}

func (r *RegisterFile) setLRFor(m api.Mode, v uint32) {
	r.lr[bankIndex(m)] = v
}
