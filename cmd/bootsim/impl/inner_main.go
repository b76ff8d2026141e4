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

// Package impl is the implementation of the boot simulator.
//
// It plays the part of the whole board: the mask ROM loads and validates
// the boot0 image from the device storage, a fresh core comes up through
// the startup sequence, and a small built-in firmware runs against the
// semihosting console before exiting. An optional HTTP monitor exposes the
// simulator state.
package impl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"os"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/apeng2012/arm9/api"
	ihttp "github.com/apeng2012/arm9/cmd/bootsim/internal/http"
	"github.com/apeng2012/arm9/layout"
	"github.com/apeng2012/arm9/machine"
	"github.com/apeng2012/arm9/rom"
	"github.com/apeng2012/arm9/rt"
	"github.com/apeng2012/arm9/semihosting"
)

// Opts encapsulates the parameters for running the simulator.
type Opts struct {
	DeviceStorage string
	MemoryXPath   string
	RAMRegion     string
	StacksPath    string
	ListenAddr    string
	Ticks         int
	Console       io.Writer
}

// Main is the entry point for the boot simulator.
func Main(ctx context.Context, opts Opts) error {
	out := opts.Console
	if out == nil {
		out = os.Stdout
	}
	ticks := opts.Ticks
	if ticks == 0 {
		ticks = 5
	}

	ram, stackTop, sizes, vectorBase, err := readLayout(opts)
	if err != nil {
		return err
	}
	dev, err := rom.NewDevice(opts.DeviceStorage)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	// The demo firmware needs a few writable words; carve them just
	// under the stack area, where neither the loaded image nor the
	// stacks reach.
	plan, err := layout.PlanStacks(ram, stackTop, sizes)
	if err != nil {
		return fmt.Errorf("stack plan: %w", err)
	}
	bss := rt.Section{Start: (plan.Bottom() - 0x200) &^ 3, Size: 0x180}
	cfg := rt.LinkConfig{
		RAM:        ram,
		StackTop:   stackTop,
		Stacks:     sizes,
		VectorBase: vectorBase,
		BSS:        bss,
	}

	prog, err := demoProgram(bss, ticks)
	if err != nil {
		return fmt.Errorf("failed to assemble firmware: %w", err)
	}

	mon := newMonitor()
	var console *semihosting.ConsoleHost
	var seq *rt.Sequencer
	attach := func(c *machine.CPU) error {
		console = semihosting.NewConsoleHost(c.Mem, out)
		l, err := prog.Link(cfg, rt.WithHost(console))
		if err != nil {
			return err
		}
		mon.setLayout(l)
		seq, err = l.Attach(c)
		return err
	}

	cpu, boot, err := rom.Reset(dev, ram, attach)
	if err != nil {
		return fmt.Errorf("ROM: %w", err)
	}
	mon.record(cpu, seq, console)

	g, ctx := errgroup.WithContext(ctx)
	if opts.ListenAddr != "" {
		httpListener, err := net.Listen("tcp", opts.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %q: %w", opts.ListenAddr, err)
		}
		r := mux.NewRouter()
		ihttp.NewServer(mon).RegisterHandlers(r)
		srv := nethttp.Server{Handler: r}
		g.Go(func() error {
			glog.Infof("Monitor listening on %q", opts.ListenAddr)
			return srv.Serve(httpListener)
		})
		g.Go(func() error {
			// Brings down the monitor when ctx is done.
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	bootErr := boot()
	mon.record(cpu, seq, console)
	if bootErr != nil {
		glog.Warningf("boot(): %v", bootErr)
	} else if console.Exited {
		glog.Infof("Program exited, stop reason 0x%x", console.StopReason)
	}

	if opts.ListenAddr == "" {
		return bootErr
	}
	if err := g.Wait(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return bootErr
}

// readLayout parses the linker memory configuration and stack sizes.
func readLayout(opts Opts) (layout.Region, uint32, layout.StackSizes, uint32, error) {
	var none layout.Region
	if opts.MemoryXPath == "" {
		return none, 0, layout.StackSizes{}, 0, errors.New("must specify memory_x")
	}
	raw, err := os.ReadFile(opts.MemoryXPath)
	if err != nil {
		return none, 0, layout.StackSizes{}, 0, fmt.Errorf("failed to read memory configuration: %w", err)
	}
	mem, err := layout.ParseMemoryX(raw)
	if err != nil {
		return none, 0, layout.StackSizes{}, 0, fmt.Errorf("bad memory configuration: %w", err)
	}
	ram, err := mem.Region(opts.RAMRegion)
	if err != nil {
		return none, 0, layout.StackSizes{}, 0, err
	}
	sizes := layout.DefaultStackSizes()
	if opts.StacksPath != "" {
		raw, err := os.ReadFile(opts.StacksPath)
		if err != nil {
			return none, 0, layout.StackSizes{}, 0, fmt.Errorf("failed to read stack sizes: %w", err)
		}
		if sizes, err = layout.ParseStackSizes(raw); err != nil {
			return none, 0, layout.StackSizes{}, 0, fmt.Errorf("bad stack sizes: %w", err)
		}
	}
	return ram, mem.StackStart, sizes, mem.VectorBase, nil
}

// demoProgram builds the built-in firmware: it prints a banner over the
// semihosting console, services a burst of timer interrupts, reports the
// count, and exits through the host.
func demoProgram(bss rt.Section, ticks int) (*rt.Program, error) {
	// The scratch section holds one real SWI instruction and the console
	// strings.
	codeAddr := bss.Start
	textAddr := bss.Start + 0x20

	p := rt.NewProgram()
	var tickCount int
	if err := p.SetHandler(api.IRQ, func(c *machine.CPU, f *api.Frame) {
		tickCount++
		glog.V(1).Infof("tick %d at PC 0x%08x", tickCount, f.PC)
	}); err != nil {
		return nil, err
	}

	err := p.SetEntry(func(c *machine.CPU) {
		storeWord(c.Mem, codeAddr, 0xEF000000|semihosting.SWIComment)
		swi := func(op semihosting.Op, param uint32) uint32 {
			c.Regs.R[0] = uint32(op)
			c.Regs.R[1] = param
			c.Regs.PC = codeAddr
			c.Raise(api.SoftwareInterrupt)
			return c.Regs.R[0]
		}
		print := func(s string) {
			storeCString(c.Mem, textAddr, s)
			swi(semihosting.SysWrite0, textAddr)
		}

		mode, _ := c.Regs.CPSR.Mode()
		print(fmt.Sprintf("boot0 up in %v mode, sp=0x%08x\n", mode, c.Regs.SP()))

		c.Regs.CPSR = c.Regs.CPSR.WithIRQMasked(false)
		for i := 0; i < ticks; i++ {
			c.Signal(api.IRQ)
			c.Step()
		}
		print(fmt.Sprintf("serviced %d timer ticks\n", tickCount))
		print(fmt.Sprintf("uptime %d cs\n", swi(semihosting.SysClock, 0)))

		swi(semihosting.SysExit, semihosting.ADPStoppedApplicationExit)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// storeWord and storeCString write into the scratch section. The addresses
// were checked at link time; a failure here is a wiring bug, not a
// run-time condition.
func storeWord(mem *machine.Memory, addr, v uint32) {
	if err := mem.Write32(addr, v); err != nil {
		panic(fmt.Sprintf("scratch write at 0x%08x: %v", addr, err))
	}
}

func storeCString(mem *machine.Memory, addr uint32, s string) {
	if err := mem.WriteRange(addr, append([]byte(s), 0)); err != nil {
		panic(fmt.Sprintf("scratch write at 0x%08x: %v", addr, err))
	}
}
