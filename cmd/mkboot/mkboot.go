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

// mkboot packages a raw payload into an eGON.BT0 boot0 image the F1C100S
// BROM will load, and optionally flashes it onto a device.
//
// Usage:
//
//	go run ./cmd/mkboot --logtostderr --payload=fw.bin --memory_x=memory.x --output=boot0.bin
package main

import (
	"flag"

	"github.com/apeng2012/arm9/cmd/mkboot/impl"
	"github.com/golang/glog"
)

var (
	payload       = flag.String("payload", "", "File path of the raw payload binary")
	memoryX       = flag.String("memory_x", "", "File path of the linker memory configuration")
	ramRegion     = flag.String("ram_region", "SRAM", "Name of the RAM region the image boots from")
	stacksFile    = flag.String("stacks", "", "Optional YAML file of per-mode stack sizes")
	jumpTarget    = flag.Uint("jump_target", 0, "BROM jump target; 0 means first byte after the header")
	output        = flag.String("output", "", "File path to write the boot0 image to")
	deviceStorage = flag.String("device_storage", "", "Storage directory of a device to flash")
)

func main() {
	flag.Parse()

	if err := impl.Main(impl.Opts{
		PayloadPath:   *payload,
		MemoryXPath:   *memoryX,
		RAMRegion:     *ramRegion,
		StacksPath:    *stacksFile,
		JumpTarget:    uint32(*jumpTarget),
		OutputPath:    *output,
		DeviceStorage: *deviceStorage,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
