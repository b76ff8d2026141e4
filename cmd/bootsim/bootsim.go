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

// bootsim is a board-level simulator for the F1C100S boot path.
//
// It emulates the mask-ROM stage against a flashed device directory,
// brings a simulated ARM926EJ-S core through the startup sequence, and
// runs a small built-in firmware against the semihosting console.
//
// Usage:
//
//	go run ./cmd/bootsim --logtostderr --device_storage=/tmp/f1c100s --memory_x=memory.x
package main

import (
	"context"
	"flag"

	"github.com/apeng2012/arm9/cmd/bootsim/impl"
	"github.com/golang/glog"
)

var (
	deviceStorage = flag.String("device_storage", "", "Storage directory of the flashed device")
	memoryX       = flag.String("memory_x", "", "File path of the linker memory configuration")
	ramRegion     = flag.String("ram_region", "SRAM", "Name of the RAM region to boot from")
	stacksFile    = flag.String("stacks", "", "Optional YAML file of per-mode stack sizes")
	listenAddr    = flag.String("listen", "", "Address to serve the monitor API on; empty disables it")
	ticks         = flag.Int("ticks", 5, "Number of timer interrupts the built-in firmware services")
)

func main() {
	flag.Parse()

	if err := impl.Main(context.Background(), impl.Opts{
		DeviceStorage: *deviceStorage,
		MemoryXPath:   *memoryX,
		RAMRegion:     *ramRegion,
		StacksPath:    *stacksFile,
		ListenAddr:    *listenAddr,
		Ticks:         *ticks,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
