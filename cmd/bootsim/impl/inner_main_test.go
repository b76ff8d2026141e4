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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apeng2012/arm9/egon"
	"github.com/apeng2012/arm9/rom"
)

const memoryX = `
MEMORY
{
  SRAM : ORIGIN = 0x00000000, LENGTH = 40K
}
_stack_start = ORIGIN(SRAM) + LENGTH(SRAM);
`

func writeMemoryX(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "memory.x")
	if err := os.WriteFile(p, []byte(memoryX), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func flashDemo(t *testing.T) string {
	t.Helper()
	storage := t.TempDir()
	dev, err := rom.NewDevice(storage)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	img, err := egon.Build(make([]byte, 256), egon.EntryOffset)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := dev.ApplyImage(img); err != nil {
		t.Fatalf("ApplyImage: %v", err)
	}
	return storage
}

func TestMainRunsFirmwareToExit(t *testing.T) {
	var console bytes.Buffer
	err := Main(context.Background(), Opts{
		DeviceStorage: flashDemo(t),
		MemoryXPath:   writeMemoryX(t),
		RAMRegion:     "SRAM",
		Ticks:         3,
		Console:       &console,
	})
	if err != nil {
		t.Fatalf("Main: %v", err)
	}
	out := console.String()
	for _, want := range []string{
		"boot0 up in Supervisor mode",
		"serviced 3 timer ticks",
		"uptime",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestMainRejectsEmptyDevice(t *testing.T) {
	err := Main(context.Background(), Opts{
		DeviceStorage: t.TempDir(),
		MemoryXPath:   writeMemoryX(t),
		RAMRegion:     "SRAM",
	})
	if err == nil {
		t.Fatal("Main booted an empty device")
	}
	if !strings.Contains(err.Error(), "ROM") {
		t.Errorf("error %q does not come from the ROM stage", err)
	}
}
