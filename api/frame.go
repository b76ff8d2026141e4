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

// Frame is the register set saved on exception entry and restored when a
// handler returns. It is the minimal-restore contract of the dispatcher: a
// handler that wants to resume the interrupted code may rely on exactly
// these registers being written back, and must itself preserve anything
// else it touches.
type Frame struct {
	// R0 through R3 and R12 are the caller-saved general purpose
	// registers of the AAPCS; asynchronous handlers may clobber them
	// freely because the dispatcher restores them.
	R0, R1, R2, R3, R12 uint32

	// LR is the banked link register of the entry mode, holding the
	// exception return address before the per-kind adjustment.
	LR uint32

	// PC is the address execution resumes at if the handler returns
	// normally. The dispatcher primes it per exception kind (next
	// instruction after a SoftwareInterrupt, the interrupted instruction
	// for IRQ/FIQ, the faulting instruction for the aborts); a handler
	// choosing to resume elsewhere rewrites it.
	PC uint32

	// CPSR is the pre-exception status register, restored on return.
	CPSR CPSR
}

func (f Frame) String() string {
	return fmt.Sprintf("r0=0x%08x r1=0x%08x r2=0x%08x r3=0x%08x r12=0x%08x lr=0x%08x pc=0x%08x cpsr=%v",
		f.R0, f.R1, f.R2, f.R3, f.R12, f.LR, f.PC, f.CPSR)
}
