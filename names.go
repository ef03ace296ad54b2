// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package rouse

import (
	"strconv"

	"github.com/thediveo/faf"
)

const (
	syskernelirqPath = "/sys/kernel/irq/"
	actionsNode      = "/actions"
)

// SysfsNamer returns an IRQ namer resolving IRQ numbers into their action
// chains as registered with the kernel, in form of a comma-separated list
// of zero or more actions. Actions might be device names, but also other
// elements, such as individual RX/TX queue IRQs of network cards. Unknown
// IRQ numbers resolve to a zero name.
func SysfsNamer() func(irq int) string {
	return func(irq int) string { return irqActions("", irq) }
}

// irqActions returns the action chain for the given IRQ from
// “/sys/kernel/irq/#/actions”, with the given root prepended to the pseudo
// file path for testing purposes. It returns "" for IRQs the kernel doesn't
// know about (anymore).
func irqActions(root string, irq int) string {
	contents, ok := faf.ReadFile(
		root+syskernelirqPath+strconv.Itoa(irq)+actionsNode, nil)
	if !ok || len(contents) < 1 || contents[len(contents)-1] != '\n' {
		return ""
	}
	return string(contents[:len(contents)-1])
}
