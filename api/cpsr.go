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

// CPSR bit assignments. Raw patterns stay inside this package; everything
// above it speaks Mode values and the accessors below.
const (
	cpsrModeMask = 0x0000001F
	cpsrFIQMask  = 1 << 6
	cpsrIRQMask  = 1 << 7
)

// CPSR is a value of the Current Program Status Register. The condition
// flag bits are carried verbatim but not interpreted here; the runtime only
// ever reasons about the mode field and the two interrupt mask bits.
type CPSR uint32

// NewCPSR builds a status register value for mode m with the given
// interrupt masks and all other bits clear.
func NewCPSR(m Mode, irqMasked, fiqMasked bool) CPSR {
	c := CPSR(m)
	if irqMasked {
		c |= cpsrIRQMask
	}
	if fiqMasked {
		c |= cpsrFIQMask
	}
	return c
}

// Mode decodes the M[4:0] field.
func (c CPSR) Mode() (Mode, error) {
	return ModeFromBits(uint8(c & cpsrModeMask))
}

// IRQMasked reports the I bit: normal interrupts disabled.
func (c CPSR) IRQMasked() bool {
	return c&cpsrIRQMask != 0
}

// FIQMasked reports the F bit: fast interrupts disabled.
func (c CPSR) FIQMasked() bool {
	return c&cpsrFIQMask != 0
}

// WithMode returns c with the mode field replaced.
func (c CPSR) WithMode(m Mode) CPSR {
	return (c &^ cpsrModeMask) | CPSR(m)
}

// WithIRQMasked returns c with the I bit set or cleared.
func (c CPSR) WithIRQMasked(masked bool) CPSR {
	if masked {
		return c | cpsrIRQMask
	}
	return c &^ cpsrIRQMask
}

// WithFIQMasked returns c with the F bit set or cleared.
func (c CPSR) WithFIQMasked(masked bool) CPSR {
	if masked {
		return c | cpsrFIQMask
	}
	return c &^ cpsrFIQMask
}

func (c CPSR) String() string {
	m, err := c.Mode()
	mode := "invalid"
	if err == nil {
		mode = m.String()
	}
	i, f := ".", "."
	if c.IRQMasked() {
		i = "I"
	}
	if c.FIQMasked() {
		f = "F"
	}
	return fmt.Sprintf("0x%08x [%s %s%s]", uint32(c), mode, i, f)
}
