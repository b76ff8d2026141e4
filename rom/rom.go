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

// Package rom emulates the F1C100S mask-ROM boot stage: it reads the boot0
// image off a storage device, validates the eGON header the way the BROM
// does, places the image in SRAM, and hands over a jump into it.
package rom

import (
	"fmt"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/egon"
	"github.com/apeng2012/arm9/layout"
	"github.com/apeng2012/arm9/machine"
	"github.com/golang/glog"
)

// LoadLimit is the most the BROM will copy into SRAM in one go.
const LoadLimit = 32 * 1024

// loaderStamp is written into the BROM-reserved header region of the
// loaded copy, marking which loader ran. The on-device image is untouched.
const loaderStamp = "BROM.sim"

// Chain represents the next stage in the boot process.
type Chain func() error

// Reset emulates the power-on boot path. It loads and validates the
// device's boot0 image, copies it into a fresh SRAM at the front of ram,
// and calls attach to install the runtime image on the new core.
//
// It is separate from the simulator wiring to mirror the hardware split:
// everything here runs from unmodifiable mask ROM before a single byte of
// user code executes, so a bad image is rejected without ever being
// entered.
//
// Returns the core and the first link in the boot chain as a func.
func Reset(dev *Device, ram layout.Region, attach func(*machine.CPU) error) (*machine.CPU, Chain, error) {
	glog.Info("----RESET----")
	glog.Info("Mask ROM up, clocks at power-on defaults, watchdog fed")

	glog.Infof("Probing boot media in %q...", dev.storage)
	img, err := dev.ReadImage()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read boot image: %w", err)
	}

	h, err := egon.Validate(img)
	if err != nil {
		return nil, nil, fmt.Errorf("boot image rejected: %w", err)
	}
	if h.Length > LoadLimit {
		return nil, nil, fmt.Errorf("image length %d exceeds the %d-byte load window", h.Length, LoadLimit)
	}
	if h.Length > ram.Length {
		return nil, nil, fmt.Errorf("image length %d exceeds RAM %v", h.Length, ram)
	}
	jump := h.JumpTarget
	if jump < ram.Origin || jump >= ram.Origin+h.Length {
		return nil, nil, fmt.Errorf("jump target 0x%08x outside the loaded image", jump)
	}

	loaded := append([]byte(nil), img[:h.Length]...)
	if err := egon.SetLoaderInfo(loaded, []byte(loaderStamp)); err != nil {
		return nil, nil, fmt.Errorf("failed to stamp loader info: %w", err)
	}

	mem := machine.NewMemory(ram.Origin, ram.Length)
	if err := mem.WriteRange(ram.Origin, loaded); err != nil {
		return nil, nil, fmt.Errorf("failed to load image into SRAM: %w", err)
	}

	cpu := machine.New(mem)
	if err := attach(cpu); err != nil {
		return nil, nil, fmt.Errorf("failed to install runtime image: %w", err)
	}

	glog.Infof("Prepared to boot %v", h)
	boot := func() error {
		cpu.Regs.PC = jump
		cpu.Raise(api.Reset)
		if cpu.Trapped() {
			return fmt.Errorf("boot trapped at PC 0x%08x", cpu.Regs.PC)
		}
		return nil
	}
	return cpu, boot, nil
}
