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

// Package semihosting carries debug-host calls issued through the software
// interrupt vector.
//
// The wire contract is the ARM semihosting protocol and is consumed, not
// designed, here: a trapping SWI whose immediate is the semihosting comment
// value, the operation number in r0, the parameter block address (or an
// immediate parameter) in r1, and the host's result returned in r0. This
// package routes that contract between the software-interrupt handler and a
// Host implementation; it relays results and failures without interpreting
// them.
package semihosting

import (
	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/machine"
)

// Op is a semihosting operation number.
type Op uint32

// The operation numbers of the host-debug protocol this runtime forwards.
const (
	SysOpen   Op = 0x01
	SysClose  Op = 0x02
	SysWriteC Op = 0x03
	SysWrite0 Op = 0x04
	SysWrite  Op = 0x05
	SysRead   Op = 0x06
	SysClock  Op = 0x10
	SysTime   Op = 0x11
	SysErrno  Op = 0x13
	SysExit   Op = 0x18
)

// SWIComment is the SWI immediate that marks a software interrupt as a
// semihosting request in ARM (32-bit) state.
const SWIComment = 0x123456

// ADP stop reason codes passed as the SysExit parameter.
const (
	ADPStoppedBreakpoint      = 0x20020
	ADPStoppedApplicationExit = 0x20026
	ADPStoppedRunTimeError    = 0x20023
)

// HostResultError is the r0 value relayed to the caller when the host
// itself fails; the protocol has no side channel, so failure is an
// ordinary return value.
const HostResultError = 0xFFFFFFFF

// Host is the collaborator boundary: one request, one result. param is the
// raw r1 value, a parameter block address for most operations and an
// immediate for the few that take none. Implementations that need the
// block contents capture the machine memory at construction.
type Host interface {
	Call(op Op, param uint32) (uint32, error)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(op Op, param uint32) (uint32, error)

// Call implements Host.
func (f HostFunc) Call(op Op, param uint32) (uint32, error) {
	return f(op, param)
}

// Handler returns the software-interrupt handler that services semihosting
// requests against h. It extracts the caller's operation number from r0 and
// the parameter from r1, relays them to the host unmodified, and places the
// host's result (or HostResultError on host failure) in the caller's r0
// before returning to the instruction after the trap.
func Handler(h Host) machine.Handler {
	return func(c *machine.CPU, f *api.Frame) {
		// When the trapping instruction is visible in simulated memory,
		// require it to carry the semihosting comment; an SWI with any
		// other immediate is not ours and traps like an unhandled fault.
		if insn, err := c.Mem.Read32(f.PC - 4); err == nil && insn&0x0F000000 == 0x0F000000 {
			if insn&0x00FFFFFF != SWIComment {
				c.Trap()
				return
			}
		}

		ret, err := h.Call(Op(f.R0), f.R1)
		if err != nil {
			f.R0 = HostResultError
			return
		}
		f.R0 = ret
	}
}
