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

package rt

import (
	"fmt"

	"github.com/apeng2012/arm9/api"
	"github.com/apeng2012/arm9/machine"
	"github.com/apeng2012/arm9/semihosting"
)

// defaultHandler supplies the policy for exception kinds the program
// registered nothing for. The faults trap forever so the failure is
// observable from an attached debugger instead of silently corrupting
// state; the software interrupt dispatches the host-call protocol.
func defaultHandler(e api.Exception, host semihosting.Host) machine.Handler {
	if e == api.SoftwareInterrupt {
		return semihosting.Handler(host)
	}
	return trapHandler
}

// trapHandler is the default for the fault kinds and unregistered
// interrupts: park the core, preserve state.
func trapHandler(c *machine.CPU, _ *api.Frame) {
	c.Trap()
}

// unsupportedHost rejects every host call; the failure is relayed to the
// caller as a result value per the protocol.
type unsupportedHost struct{}

func (unsupportedHost) Call(op semihosting.Op, param uint32) (uint32, error) {
	return 0, fmt.Errorf("no debug host attached (op 0x%x)", uint32(op))
}
