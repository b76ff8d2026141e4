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

package impl

import (
	"sync"

	"github.com/apeng2012/arm9/api"
	ihttp "github.com/apeng2012/arm9/cmd/bootsim/internal/http"
	"github.com/apeng2012/arm9/machine"
	"github.com/apeng2012/arm9/rt"
	"github.com/apeng2012/arm9/semihosting"
)

// monitor is the Source served by the HTTP monitor. The simulator owns the
// core, so the monitor holds snapshots taken at phase boundaries rather
// than reading live state.
type monitor struct {
	mu      sync.RWMutex
	status  ihttp.Status
	stacks  []ihttp.Stack
	vectors []ihttp.Vector
}

var _ ihttp.Source = (*monitor)(nil)

func newMonitor() *monitor {
	return &monitor{status: ihttp.Status{Phase: "reset"}}
}

// setLayout captures the immutable link-time artifacts.
func (m *monitor) setLayout(l *rt.Linked) {
	var stacks []ihttp.Stack
	for _, r := range l.Stacks.Ranges() {
		stacks = append(stacks, ihttp.Stack{Mode: r.Mode.String(), Top: r.Top, Bottom: r.Bottom})
	}
	var vectors []ihttp.Vector
	for _, e := range api.Exceptions {
		vectors = append(vectors, ihttp.Vector{Exception: e.String(), Offset: e.Offset(), Target: l.Table.Target(e)})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stacks = stacks
	m.vectors = vectors
}

// record snapshots the core state at a phase boundary.
func (m *monitor) record(cpu *machine.CPU, seq *rt.Sequencer, console *semihosting.ConsoleHost) {
	s := ihttp.Status{
		PC:      cpu.Regs.PC,
		Trapped: cpu.Trapped(),
		Halted:  cpu.Halted(),
	}
	if mode, err := cpu.Regs.CPSR.Mode(); err == nil {
		s.Mode = mode.String()
	}
	if seq != nil {
		s.Stage = seq.Stage().String()
	}
	switch {
	case cpu.Trapped():
		s.Phase = "trapped"
	case console != nil && console.Exited:
		s.Phase = "exited"
		code := console.StopReason
		s.ExitCode = &code
	case seq != nil && seq.Stage() == rt.StageEntryInvoked:
		s.Phase = "booted"
	default:
		s.Phase = "reset"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

func (m *monitor) Status() ihttp.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *monitor) Stacks() []ihttp.Stack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ihttp.Stack(nil), m.stacks...)
}

func (m *monitor) Vectors() []ihttp.Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ihttp.Vector(nil), m.vectors...)
}
