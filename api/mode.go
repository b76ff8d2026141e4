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

// Package api holds the core data model for the ARM926EJ-S boot and
// exception runtime: processor modes, exception kinds, the program status
// register and the register frame preserved across an exception.
package api

import "fmt"

// Mode is an ARM926EJ-S processor mode, identified by the M[4:0] bits of
// the CPSR. These values are architectural, not an invention of this
// package; they are what the mode field of the status register holds.
type Mode uint8

const (
	// ModeUser is the unprivileged mode application code runs in.
	ModeUser Mode = 0b10000
	// ModeFIQ is entered on a fast interrupt.
	ModeFIQ Mode = 0b10001
	// ModeIRQ is entered on a normal interrupt.
	ModeIRQ Mode = 0b10010
	// ModeSupervisor is entered on reset and software interrupt.
	ModeSupervisor Mode = 0b10011
	// ModeAbort is entered on prefetch and data aborts.
	ModeAbort Mode = 0b10111
	// ModeUndefined is entered on an undefined instruction.
	ModeUndefined Mode = 0b11011
	// ModeSystem is privileged but shares the User register bank.
	ModeSystem Mode = 0b11111
)

// StackedModes lists the modes owning a banked stack pointer, in the order
// the reset sequence initializes them. User is absent because it shares the
// System bank.
var StackedModes = [6]Mode{ModeFIQ, ModeIRQ, ModeAbort, ModeUndefined, ModeSupervisor, ModeSystem}

// ModeFromBits decodes the M[4:0] field of a status register value.
func ModeFromBits(bits uint8) (Mode, error) {
	m := Mode(bits & 0x1F)
	if !m.Valid() {
		return 0, fmt.Errorf("invalid mode bits 0b%05b", bits&0x1F)
	}
	return m, nil
}

// Valid reports whether m is one of the seven architectural modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem:
		return true
	}
	return false
}

// Privileged reports whether m may write the CPSR control bits.
func (m Mode) Privileged() bool {
	return m != ModeUser
}

// StackBank returns the mode whose banked stack pointer m uses. Only User
// differs from its own bank: it shares System's.
func (m Mode) StackBank() Mode {
	if m == ModeUser {
		return ModeSystem
	}
	return m
}

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "User"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSupervisor:
		return "Supervisor"
	case ModeAbort:
		return "Abort"
	case ModeUndefined:
		return "Undefined"
	case ModeSystem:
		return "System"
	}
	return fmt.Sprintf("Mode(0b%05b)", uint8(m))
}
