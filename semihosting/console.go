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

package semihosting

import (
	"fmt"
	"io"
	"time"

	"github.com/apeng2012/arm9/machine"
)

// ConsoleHost is a Host backed by an io.Writer, good enough for a firmware
// image that only writes text and exits: the console operations, the two
// clock operations, and SysExit. Anything else fails, and the failure is
// relayed to the caller the ordinary way.
type ConsoleHost struct {
	mem   *machine.Memory
	w     io.Writer
	start time.Time

	// Exited and StopReason record a SysExit request; the emulation loop
	// polls Exited to stop stepping.
	Exited     bool
	StopReason uint32
}

// NewConsoleHost returns a ConsoleHost reading parameter blocks from mem
// and writing console output to w.
func NewConsoleHost(mem *machine.Memory, w io.Writer) *ConsoleHost {
	return &ConsoleHost{mem: mem, w: w, start: time.Now()}
}

// Call implements Host.
func (h *ConsoleHost) Call(op Op, param uint32) (uint32, error) {
	switch op {
	case SysWriteC:
		b, err := h.mem.Read8(param)
		if err != nil {
			return 0, fmt.Errorf("SYS_WRITEC block: %w", err)
		}
		if _, err := h.w.Write([]byte{b}); err != nil {
			return 0, err
		}
		return 0, nil
	case SysWrite0:
		s, err := h.mem.ReadCString(param)
		if err != nil {
			return 0, fmt.Errorf("SYS_WRITE0 block: %w", err)
		}
		if _, err := io.WriteString(h.w, s); err != nil {
			return 0, err
		}
		return 0, nil
	case SysClock:
		return uint32(time.Since(h.start) / (10 * time.Millisecond)), nil
	case SysTime:
		return uint32(time.Now().Unix()), nil
	case SysExit:
		h.Exited = true
		h.StopReason = param
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported semihosting operation 0x%x", uint32(op))
	}
}
