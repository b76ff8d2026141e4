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

// Package layout_test holds blackbox tests for the layout package.
package layout_test

import (
	"strings"
	"testing"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/layout"
	"github.com/google/go-cmp/cmp"
)

const f1c100sMemoryX = `
/* Allwinner F1C100S boot SRAM */
MEMORY
{
  SRAM : ORIGIN = 0x00000000, LENGTH = 40K
  DRAM : ORIGIN = 0x80000000, LENGTH = 32M
}

_stack_start = ORIGIN(SRAM) + LENGTH(SRAM);
PROVIDE(__vector_base = 0x00000000);
`

func TestParseMemoryX(t *testing.T) {
	m, err := layout.ParseMemoryX([]byte(f1c100sMemoryX))
	if err != nil {
		t.Fatalf("ParseMemoryX: %v", err)
	}
	want := []layout.Region{
		{Name: "SRAM", Origin: 0x0, Length: 40 * 1024},
		{Name: "DRAM", Origin: 0x80000000, Length: 32 * 1024 * 1024},
	}
	if d := cmp.Diff(want, m.Regions); d != "" {
		t.Errorf("regions diff:\n%s", d)
	}
	if m.StackStart != 40*1024 {
		t.Errorf("StackStart = 0x%x, want 0x%x", m.StackStart, 40*1024)
	}
	if m.VectorBase != 0 {
		t.Errorf("VectorBase = 0x%x, want 0", m.VectorBase)
	}
}

func TestParseMemoryXErrors(t *testing.T) {
	for _, test := range []struct {
		desc string
		in   string
	}{
		{desc: "empty", in: ""},
		{desc: "no regions", in: "MEMORY\n{\n}\n"},
		{desc: "unterminated block", in: "MEMORY\n{\n SRAM : ORIGIN = 0, LENGTH = 1K\n"},
		{desc: "garbage statement", in: "MEMORY\n{\n SRAM : ORIGIN = 0, LENGTH = 1K\n}\nSECTIONS { }\n"},
		{desc: "missing length", in: "MEMORY\n{\n SRAM : ORIGIN = 0\n}\n"},
		{desc: "zero length region", in: "MEMORY\n{\n SRAM : ORIGIN = 0, LENGTH = 0\n}\n"},
		{desc: "duplicate region", in: "MEMORY\n{\n SRAM : ORIGIN = 0, LENGTH = 1K\n SRAM : ORIGIN = 0x1000, LENGTH = 1K\n}\n"},
		{desc: "address wrap", in: "MEMORY\n{\n SRAM : ORIGIN = 0xFFFFF000, LENGTH = 8K\n}\n"},
		{desc: "unknown stack region", in: "MEMORY\n{\n SRAM : ORIGIN = 0, LENGTH = 1K\n}\n_stack_start = ORIGIN(DRAM) + LENGTH(DRAM);\n"},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if _, err := layout.ParseMemoryX([]byte(test.in)); err == nil {
				t.Fatal("ParseMemoryX accepted invalid input")
			}
		})
	}
}

func TestParseStackSizes(t *testing.T) {
	got, err := layout.ParseStackSizes([]byte("irq: 1024\nsystem: 8192\n"))
	if err != nil {
		t.Fatalf("ParseStackSizes: %v", err)
	}
	want := layout.DefaultStackSizes()
	want.IRQ = 1024
	want.System = 8192
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("sizes diff:\n%s", d)
	}

	if _, err := layout.ParseStackSizes([]byte("irq: 1024\nbanana: 1\n")); err == nil {
		t.Fatal("ParseStackSizes accepted an unknown key")
	}
}

func TestPlanStacksDisjointAndInsideRAM(t *testing.T) {
	ram := layout.Region{Name: "SRAM", Origin: 0, Length: 40 * 1024}
	p, err := layout.PlanStacks(ram, 0, layout.DefaultStackSizes())
	if err != nil {
		t.Fatalf("PlanStacks: %v", err)
	}
	ranges := p.Ranges()
	if len(ranges) != 6 {
		t.Fatalf("got %d ranges, want 6", len(ranges))
	}
	for i, r := range ranges {
		if !ram.Contains(r.Bottom, r.Top-r.Bottom) {
			t.Errorf("%v falls outside %v", r, ram)
		}
		for _, o := range ranges[i+1:] {
			if r.Overlaps(o) {
				t.Errorf("%v overlaps %v", r, o)
			}
		}
	}
	if got := p.Top(api.ModeSystem); got != ram.End() {
		t.Errorf("System stack top = 0x%x, want RAM end 0x%x", got, ram.End())
	}
	// User shares the System bank.
	if got := p.Top(api.ModeUser); got != p.Top(api.ModeSystem) {
		t.Errorf("User stack top = 0x%x, want System's 0x%x", got, p.Top(api.ModeSystem))
	}
	if p.Bottom() >= p.Top(api.ModeSupervisor) {
		t.Errorf("plan bottom 0x%x not below the lowest stack top", p.Bottom())
	}
}

func TestPlanStacksErrors(t *testing.T) {
	ram := layout.Region{Name: "SRAM", Origin: 0, Length: 4 * 1024}
	for _, test := range []struct {
		desc     string
		stackTop uint32
		sizes    func() layout.StackSizes
		wantMsg  string
	}{
		{
			desc:    "budget exceeds RAM",
			sizes:   layout.DefaultStackSizes, // 6.5K into 4K
			wantMsg: "exceeds",
		},
		{
			desc:     "stack top outside RAM",
			stackTop: 0x10000,
			sizes: func() layout.StackSizes {
				return layout.StackSizes{FIQ: 4, IRQ: 4, Abort: 4, Undefined: 4, Supervisor: 4, System: 4}
			},
			wantMsg: "outside RAM",
		},
		{
			desc:     "unaligned stack top",
			stackTop: 0x102,
			sizes: func() layout.StackSizes {
				return layout.StackSizes{FIQ: 4, IRQ: 4, Abort: 4, Undefined: 4, Supervisor: 4, System: 4}
			},
			wantMsg: "aligned",
		},
		{
			desc: "zero sized stack",
			sizes: func() layout.StackSizes {
				return layout.StackSizes{FIQ: 0, IRQ: 4, Abort: 4, Undefined: 4, Supervisor: 4, System: 4}
			},
			wantMsg: "zero size",
		},
		{
			desc: "unaligned stack size",
			sizes: func() layout.StackSizes {
				return layout.StackSizes{FIQ: 6, IRQ: 4, Abort: 4, Undefined: 4, Supervisor: 4, System: 4}
			},
			wantMsg: "word multiple",
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			_, err := layout.PlanStacks(ram, test.stackTop, test.sizes())
			if err == nil {
				t.Fatal("PlanStacks accepted an invalid configuration")
			}
			if !strings.Contains(err.Error(), test.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, test.wantMsg)
			}
		})
	}
}
