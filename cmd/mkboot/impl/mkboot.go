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

// Package impl is the implementation of the mkboot image packaging tool.
package impl

import (
	"errors"
	"fmt"
	"os"

	"github.com/apeng2012/arm9/egon"
	"github.com/apeng2012/arm9/layout"
	"github.com/apeng2012/arm9/rom"
	"github.com/golang/glog"
)

// Opts encapsulates mkboot parameters.
type Opts struct {
	PayloadPath   string
	MemoryXPath   string
	RAMRegion     string
	StacksPath    string
	JumpTarget    uint32
	OutputPath    string
	DeviceStorage string
}

// Main builds the boot0 image and delivers it to the requested outputs.
// Every layout problem it can detect is detected here; a produced image
// has already passed the same checks the BROM and the runtime apply.
func Main(opts Opts) error {
	if opts.OutputPath == "" && opts.DeviceStorage == "" {
		return errors.New("must specify at least one of output, device_storage")
	}
	if opts.PayloadPath == "" {
		return errors.New("must specify payload")
	}
	payload, err := os.ReadFile(opts.PayloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	ram, stacks, err := readLayout(opts)
	if err != nil {
		return err
	}

	jump := opts.JumpTarget
	if jump == 0 {
		jump = ram.Origin + egon.EntryOffset
	}

	img, err := egon.Build(payload, jump)
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	if len(img) > rom.LoadLimit {
		return fmt.Errorf("image of %d bytes exceeds the %d-byte BROM load window", len(img), rom.LoadLimit)
	}
	if uint32(len(img)) > ram.Length {
		return fmt.Errorf("image of %d bytes exceeds RAM %v", len(img), ram)
	}
	// The BROM places the image at the bottom of RAM; the stacks grow
	// down from the top. The two must not meet.
	if end := ram.Origin + uint32(len(img)); end > stacks.Bottom() {
		return fmt.Errorf("image end 0x%08x reaches into the stack area starting at 0x%08x", end, stacks.Bottom())
	}
	if jump < ram.Origin || jump >= ram.Origin+uint32(len(img)) {
		return fmt.Errorf("jump target 0x%08x outside the loaded image", jump)
	}

	h, err := egon.Validate(img)
	if err != nil {
		return fmt.Errorf("built an image that fails validation: %w", err)
	}
	glog.Infof("Built %v", h)

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, img, 0o644); err != nil {
			return fmt.Errorf("failed to write image to %q: %w", opts.OutputPath, err)
		}
		glog.Infof("Wrote %d bytes to %q", len(img), opts.OutputPath)
	}
	if opts.DeviceStorage != "" {
		dev, err := rom.NewDevice(opts.DeviceStorage)
		if err != nil {
			return fmt.Errorf("failed to open device: %w", err)
		}
		if err := dev.ApplyImage(img); err != nil {
			return fmt.Errorf("failed to flash device: %w", err)
		}
		glog.Infof("Flashed device in %q", opts.DeviceStorage)
	}
	return nil
}

// readLayout resolves the RAM region and the stack plan the image must
// leave room for.
func readLayout(opts Opts) (layout.Region, *layout.StackPlan, error) {
	if opts.MemoryXPath == "" {
		return layout.Region{}, nil, errors.New("must specify memory_x")
	}
	raw, err := os.ReadFile(opts.MemoryXPath)
	if err != nil {
		return layout.Region{}, nil, fmt.Errorf("failed to read memory configuration: %w", err)
	}
	mem, err := layout.ParseMemoryX(raw)
	if err != nil {
		return layout.Region{}, nil, fmt.Errorf("bad memory configuration: %w", err)
	}
	ram, err := mem.Region(opts.RAMRegion)
	if err != nil {
		return layout.Region{}, nil, err
	}

	sizes := layout.DefaultStackSizes()
	if opts.StacksPath != "" {
		raw, err := os.ReadFile(opts.StacksPath)
		if err != nil {
			return layout.Region{}, nil, fmt.Errorf("failed to read stack sizes: %w", err)
		}
		if sizes, err = layout.ParseStackSizes(raw); err != nil {
			return layout.Region{}, nil, fmt.Errorf("bad stack sizes: %w", err)
		}
	}
	stacks, err := layout.PlanStacks(ram, mem.StackStart, sizes)
	if err != nil {
		return layout.Region{}, nil, fmt.Errorf("stack plan: %w", err)
	}
	return ram, stacks, nil
}
