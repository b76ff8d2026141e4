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

// Package rt is the boot and exception runtime: it collects the program's
// entry point, exception handlers and pre-init hooks, resolves them into a
// vector table at link time, and carries the reset-to-entry startup
// sequence on a simulated core.
//
// Registration is a build-time protocol. A Program accumulates
// registrations, Link validates their cardinality and materializes the
// table, and the resulting Linked image is immutable: there is no way to
// add, remove or replace a handler afterwards.
package rt

import (
	"errors"
	"fmt"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/layout"
	"github.com/apeng2012/arm9/machine"
	"github.com/apeng2012/arm9/semihosting"
	"github.com/apeng2012/arm9/vector"
)

// EntryFunc is the program entry point. It is invoked with interrupts
// still masked (enabling them is its own first decision) and must not
// return; if it does anyway, the core parks in a terminal hang.
type EntryFunc func(*machine.CPU)

// PreInitFunc runs after memory initialization and before the entry point.
// Hooks have no return value and no error channel: below the entry point
// there is nothing to report a failure to.
type PreInitFunc func(*machine.CPU)

// Registration cardinality violations. They surface from Link (or the
// Set call itself) and never at run time.
var (
	ErrNoEntry        = errors.New("no entry point registered")
	ErrDuplicateEntry = errors.New("entry point already registered")
	ErrResetHandler   = errors.New("Reset is not a registrable handler; it is the startup sequencer")
)

// DuplicateHandlerError reports a second registration for one exception
// kind.
type DuplicateHandlerError struct {
	Exception api.Exception
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("handler for %v already registered", e.Exception)
}

// Program accumulates build-time registrations.
type Program struct {
	entry    EntryFunc
	handlers map[api.Exception]machine.Handler
	preInit  []PreInitFunc
}

// NewProgram returns an empty registration set.
func NewProgram() *Program {
	return &Program{handlers: make(map[api.Exception]machine.Handler)}
}

// SetEntry registers the program entry point. Exactly one registration
// must exist across the whole program; a second one fails rather than
// silently replacing the first.
func (p *Program) SetEntry(f EntryFunc) error {
	if f == nil {
		return errors.New("nil entry function")
	}
	if p.entry != nil {
		return ErrDuplicateEntry
	}
	p.entry = f
	return nil
}

// SetHandler registers the handler for one exception kind. At most one
// handler may exist per kind, and Reset is reserved for the startup
// sequencer.
func (p *Program) SetHandler(e api.Exception, h machine.Handler) error {
	if !e.Valid() {
		return fmt.Errorf("invalid exception %v", e)
	}
	if e == api.Reset {
		return ErrResetHandler
	}
	if h == nil {
		return fmt.Errorf("nil handler for %v", e)
	}
	if _, dup := p.handlers[e]; dup {
		return &DuplicateHandlerError{Exception: e}
	}
	p.handlers[e] = h
	return nil
}

// AddPreInit appends a pre-init hook; hooks run in registration order.
func (p *Program) AddPreInit(f PreInitFunc) {
	p.preInit = append(p.preInit, f)
}

// Section is a half-open byte range [Start, Start+Size) in the run-time
// address space.
type Section struct {
	Start uint32
	Size  uint32
}

// End returns the first address past the section.
func (s Section) End() uint32 {
	return s.Start + s.Size
}

func (s Section) overlaps(o Section) bool {
	return s.Size > 0 && o.Size > 0 && s.Start < o.End() && o.Start < s.End()
}

// LinkConfig is everything Link needs from the external linker
// configuration: where RAM is, where the writable sections live, and where
// the vector table goes.
type LinkConfig struct {
	// RAM is the region stacks and writable data live in.
	RAM layout.Region

	// StackTop overrides the initial stack top; zero means the end of RAM.
	StackTop uint32

	// Stacks is the per-mode stack budget.
	Stacks layout.StackSizes

	// VectorBase is the vector table placement; the hardware default is 0.
	VectorBase uint32

	// BSS is the zero-initialized section.
	BSS Section

	// Data is the initialized-data section at its run-time address.
	Data Section

	// DataLoad is the load-image address the Data section's initial
	// contents are copied from. Equal to Data.Start when the image
	// already runs from its load address; the copy is then a no-op.
	DataLoad uint32
}

// Linked is a fully resolved program image: the materialized vector table,
// the handler set with defaults filled in, and the stack plan. It is the
// build-time artifact; nothing in it changes after Link returns.
type Linked struct {
	Table    *vector.Table
	Stacks   *layout.StackPlan
	handlers map[api.Exception]machine.Handler
	entry    EntryFunc
	preInit  []PreInitFunc
	cfg      LinkConfig
}

// LinkOption adjusts the link step.
type LinkOption func(*linkOptions)

type linkOptions struct {
	host semihosting.Host
}

// WithHost routes the default software-interrupt handler to h instead of a
// host that fails every call.
func WithHost(h semihosting.Host) LinkOption {
	return func(o *linkOptions) { o.host = h }
}

// Link performs the build-time resolution: it enforces the registration
// invariants, plans the mode stacks, checks the section layout, and
// materializes the vector table. Every error it returns is a configuration
// error that must stop the build; there is no runtime fallback for any of
// them.
func (p *Program) Link(cfg LinkConfig, opts ...LinkOption) (*Linked, error) {
	o := linkOptions{host: unsupportedHost{}}
	for _, opt := range opts {
		opt(&o)
	}

	if p.entry == nil {
		return nil, ErrNoEntry
	}

	stacks, err := layout.PlanStacks(cfg.RAM, cfg.StackTop, cfg.Stacks)
	if err != nil {
		return nil, fmt.Errorf("stack plan: %w", err)
	}
	if err := checkSections(cfg, stacks); err != nil {
		return nil, err
	}

	tbl, err := vector.New(cfg.VectorBase)
	if err != nil {
		return nil, err
	}
	handlers := make(map[api.Exception]machine.Handler, len(api.Exceptions))
	for _, e := range api.Exceptions {
		if err := tbl.SetTarget(e, handlerTarget(cfg.VectorBase, e)); err != nil {
			return nil, err
		}
		if e == api.Reset {
			continue // bound by Attach, to the startup sequencer
		}
		if h, ok := p.handlers[e]; ok {
			handlers[e] = h
		} else {
			handlers[e] = defaultHandler(e, o.host)
		}
	}
	if err := tbl.Complete(); err != nil {
		return nil, err
	}

	return &Linked{
		Table:    tbl,
		Stacks:   stacks,
		handlers: handlers,
		entry:    p.entry,
		preInit:  append([]PreInitFunc(nil), p.preInit...),
		cfg:      cfg,
	}, nil
}

// handlerTarget assigns each exception's branch target: a fixed-size thunk
// slot in the text window right after the vector table, mirroring where
// the handler veneers land in a linked image. The addresses only need to
// be distinct, nonzero and stable; the simulated core transfers control by
// bound handler, not by decoding instructions at the target.
func handlerTarget(base uint32, e api.Exception) uint32 {
	return base + vector.Size + e.Offset()*8
}

// checkSections rejects overlapping or out-of-RAM section placement.
func checkSections(cfg LinkConfig, stacks *layout.StackPlan) error {
	stackArea := Section{Start: stacks.Bottom(), Size: stacks.Range(api.ModeSystem).Top - stacks.Bottom()}
	named := []struct {
		name string
		s    Section
	}{
		{"bss", cfg.BSS},
		{"data", cfg.Data},
		{"data load image", Section{Start: cfg.DataLoad, Size: cfg.Data.Size}},
	}
	for i, n := range named {
		if n.s.Size == 0 {
			continue
		}
		if !cfg.RAM.Contains(n.s.Start, n.s.Size) {
			return fmt.Errorf("%s section [0x%08x, 0x%08x) outside RAM %v", n.name, n.s.Start, n.s.End(), cfg.RAM)
		}
		if n.s.overlaps(stackArea) {
			return fmt.Errorf("%s section [0x%08x, 0x%08x) overlaps the stack area [0x%08x, 0x%08x)", n.name, n.s.Start, n.s.End(), stackArea.Start, stackArea.End())
		}
		for _, m := range named[i+1:] {
			// The data load image may alias the data run address; that
			// is the runs-in-place boot path, not an overlap error.
			if n.name == "data" && m.name == "data load image" && cfg.DataLoad == cfg.Data.Start {
				continue
			}
			if n.s.overlaps(m.s) {
				return fmt.Errorf("%s section overlaps %s section", n.name, m.name)
			}
		}
	}
	return nil
}

// Entry exposes the linked entry point for the startup sequencer.
func (l *Linked) Entry() EntryFunc {
	return l.entry
}

// Config returns the link configuration the image was resolved against.
func (l *Linked) Config() LinkConfig {
	return l.cfg
}

// Attach installs the linked image on a core: the vector table with the
// Reset slot bound to a fresh startup sequencer, every other slot to its
// resolved handler. Installing the table is the literal first effect of
// reset; it returns the sequencer so callers can observe boot progress.
func (l *Linked) Attach(c *machine.CPU) (*Sequencer, error) {
	seq := newSequencer(l, c)
	handlers := make(map[api.Exception]machine.Handler, len(l.handlers)+1)
	for e, h := range l.handlers {
		handlers[e] = h
	}
	handlers[api.Reset] = func(c *machine.CPU, _ *api.Frame) {
		seq.run()
	}
	if err := c.Install(l.Table, handlers); err != nil {
		return nil, err
	}
	return seq, nil
}
