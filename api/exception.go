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

package api

import "fmt"

// Exception is one of the seven ARMv5 exception kinds. Slot 5 of the vector
// table ("Address Exceeds 26-bit") is reserved and unused on this core, so
// it has no Exception value.
type Exception int

const (
	// Reset is raised on power-on; it diverges into the startup sequence
	// and never returns.
	Reset Exception = iota
	// UndefinedInstruction is raised on an instruction the core cannot
	// decode.
	UndefinedInstruction
	// SoftwareInterrupt is raised by the SWI instruction; it is the slot
	// the semihosting collaborator occupies.
	SoftwareInterrupt
	// PrefetchAbort is raised on an instruction fetch fault.
	PrefetchAbort
	// DataAbort is raised on a data access fault.
	DataAbort
	// IRQ is the normal asynchronous interrupt.
	IRQ
	// FIQ is the fast asynchronous interrupt.
	FIQ

	numExceptions
)

// ReservedOffset is the vector table offset of the unused slot.
const ReservedOffset uint32 = 0x14

// Exceptions lists every exception kind in vector table order.
var Exceptions = [7]Exception{Reset, UndefinedInstruction, SoftwareInterrupt, PrefetchAbort, DataAbort, IRQ, FIQ}

// Valid reports whether e is one of the seven exception kinds.
func (e Exception) Valid() bool {
	return e >= Reset && e < numExceptions
}

// Offset returns the fixed vector table offset hardware dispatches to for e.
func (e Exception) Offset() uint32 {
	switch e {
	case Reset:
		return 0x00
	case UndefinedInstruction:
		return 0x04
	case SoftwareInterrupt:
		return 0x08
	case PrefetchAbort:
		return 0x0C
	case DataAbort:
		return 0x10
	case IRQ:
		return 0x18
	case FIQ:
		return 0x1C
	}
	panic(fmt.Sprintf("no vector offset for %v", e))
}

// EntryMode returns the processor mode the core is forced into when e is
// taken.
func (e Exception) EntryMode() Mode {
	switch e {
	case Reset, SoftwareInterrupt:
		return ModeSupervisor
	case UndefinedInstruction:
		return ModeUndefined
	case PrefetchAbort, DataAbort:
		return ModeAbort
	case IRQ:
		return ModeIRQ
	case FIQ:
		return ModeFIQ
	}
	panic(fmt.Sprintf("no entry mode for %v", e))
}

// MasksFIQ reports whether taking e sets the F bit in addition to the I bit.
// Only Reset and FIQ entry mask fast interrupts.
func (e Exception) MasksFIQ() bool {
	return e == Reset || e == FIQ
}

// Synchronous reports whether e occurs precisely at a faulting or trapping
// instruction, as opposed to an instruction boundary of the hardware's
// choosing.
func (e Exception) Synchronous() bool {
	return e != IRQ && e != FIQ
}

// LinkOffset is the number of bytes the core adds to the address of the
// faulting (or next-to-execute) instruction when it banks the return
// address into the entry mode's link register.
func (e Exception) LinkOffset() uint32 {
	switch e {
	case Reset:
		return 0
	case DataAbort:
		return 8
	default:
		return 4
	}
}

func (e Exception) String() string {
	switch e {
	case Reset:
		return "Reset"
	case UndefinedInstruction:
		return "UndefinedInstruction"
	case SoftwareInterrupt:
		return "SoftwareInterrupt"
	case PrefetchAbort:
		return "PrefetchAbort"
	case DataAbort:
		return "DataAbort"
	case IRQ:
		return "IRQ"
	case FIQ:
		return "FIQ"
	}
	return fmt.Sprintf("Exception(%d)", int(e))
}
