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

package layout

import (
	"fmt"

	"github.com/apeng2012/arm9/api"
	"gopkg.in/yaml.v2"
)

// StackSizes is the per-mode stack budget in bytes. A zero field means
// "use the default for that mode"; sizes must be word multiples.
type StackSizes struct {
	FIQ        uint32 `yaml:"fiq"`
	IRQ        uint32 `yaml:"irq"`
	Abort      uint32 `yaml:"abort"`
	Undefined  uint32 `yaml:"undefined"`
	Supervisor uint32 `yaml:"supervisor"`
	System     uint32 `yaml:"system"`
}

// DefaultStackSizes returns the budget used when no configuration is
// supplied. System gets the lion's share because it is the mode the entry
// point and everything it calls run in; the fault modes only ever host a
// handler frame.
func DefaultStackSizes() StackSizes {
	return StackSizes{
		FIQ:        512,
		IRQ:        512,
		Abort:      256,
		Undefined:  256,
		Supervisor: 1024,
		System:     4096,
	}
}

// ParseStackSizes reads a YAML stack budget, filling unset modes from the
// defaults. Unknown keys are errors.
func ParseStackSizes(data []byte) (StackSizes, error) {
	s := StackSizes{}
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return StackSizes{}, fmt.Errorf("failed to unmarshal stack config: %w", err)
	}
	d := DefaultStackSizes()
	fill := func(v *uint32, def uint32) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&s.FIQ, d.FIQ)
	fill(&s.IRQ, d.IRQ)
	fill(&s.Abort, d.Abort)
	fill(&s.Undefined, d.Undefined)
	fill(&s.Supervisor, d.Supervisor)
	fill(&s.System, d.System)
	return s, nil
}

// Of returns the configured size for mode m's stack bank.
func (s StackSizes) Of(m api.Mode) uint32 {
	switch m.StackBank() {
	case api.ModeFIQ:
		return s.FIQ
	case api.ModeIRQ:
		return s.IRQ
	case api.ModeAbort:
		return s.Abort
	case api.ModeUndefined:
		return s.Undefined
	case api.ModeSupervisor:
		return s.Supervisor
	case api.ModeSystem:
		return s.System
	}
	return 0
}

// StackRange is one mode's stack: the full-descending range
// [Bottom, Top), with Top being the initial stack pointer value.
type StackRange struct {
	Mode   api.Mode
	Bottom uint32
	Top    uint32
}

// Overlaps reports whether two ranges share any byte.
func (r StackRange) Overlaps(o StackRange) bool {
	return r.Bottom < o.Top && o.Bottom < r.Top
}

func (r StackRange) String() string {
	return fmt.Sprintf("%v: [0x%08x, 0x%08x)", r.Mode, r.Bottom, r.Top)
}

// StackPlan is the resolved placement of all six mode stacks.
type StackPlan struct {
	ranges [6]StackRange
}

// PlanStacks carves the six mode stacks downward from stackTop inside ram.
// The System (main) stack sits on top, then the exception-mode stacks below
// it in the order FIQ, IRQ, Abort, Undefined, Supervisor. stackTop of zero
// means the end of ram.
//
// Every violation it reports is a build-time configuration error: there is
// no runtime allocator to fail gracefully once the image boots.
func PlanStacks(ram Region, stackTop uint32, sizes StackSizes) (*StackPlan, error) {
	if stackTop == 0 {
		stackTop = ram.End()
	}
	if stackTop%8 != 0 {
		return nil, fmt.Errorf("stack top 0x%08x is not 8-byte aligned", stackTop)
	}
	if stackTop > ram.End() || stackTop <= ram.Origin {
		return nil, fmt.Errorf("stack top 0x%08x outside RAM region %v", stackTop, ram)
	}

	var total uint64
	order := [6]api.Mode{api.ModeSystem, api.ModeFIQ, api.ModeIRQ, api.ModeAbort, api.ModeUndefined, api.ModeSupervisor}
	p := &StackPlan{}
	top := stackTop
	for i, m := range order {
		size := sizes.Of(m)
		if size == 0 {
			return nil, fmt.Errorf("%v stack has zero size", m)
		}
		if size%4 != 0 {
			return nil, fmt.Errorf("%v stack size %d is not a word multiple", m, size)
		}
		total += uint64(size)
		if total > uint64(stackTop-ram.Origin) {
			return nil, fmt.Errorf("stack budget %d bytes exceeds the %d bytes below the stack top in %v", total, stackTop-ram.Origin, ram)
		}
		p.ranges[i] = StackRange{Mode: m, Bottom: top - size, Top: top}
		top -= size
	}

	// Disjointness holds by construction above; keep the check anyway so a
	// refactor of the carving loop cannot silently break the invariant.
	for i := range p.ranges {
		for j := i + 1; j < len(p.ranges); j++ {
			if p.ranges[i].Overlaps(p.ranges[j]) {
				return nil, fmt.Errorf("stack ranges overlap: %v and %v", p.ranges[i], p.ranges[j])
			}
		}
	}
	return p, nil
}

// Top returns the initial stack pointer for mode m.
func (p *StackPlan) Top(m api.Mode) uint32 {
	return p.Range(m).Top
}

// Range returns the stack range serving mode m.
func (p *StackPlan) Range(m api.Mode) StackRange {
	bank := m.StackBank()
	for _, r := range p.ranges {
		if r.Mode == bank {
			return r
		}
	}
	// All six banks are always planned; reaching here means m is not a
	// valid mode.
	panic(fmt.Sprintf("no stack range for %v", m))
}

// Ranges returns all six planned ranges, topmost first.
func (p *StackPlan) Ranges() []StackRange {
	out := make([]StackRange, len(p.ranges))
	copy(out, p.ranges[:])
	return out
}

// Bottom returns the lowest address any stack may touch; data and BSS must
// stay below it.
func (p *StackPlan) Bottom() uint32 {
	return p.ranges[len(p.ranges)-1].Bottom
}
