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
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("naming IRQs", func() {

	When("resolving action chains from /sys/kernel/irq", func() {

		var root string

		BeforeEach(func() {
			root = Successful(os.MkdirTemp("", "rouse-sysfs-*"))
			DeferCleanup(func() { _ = os.RemoveAll(root) })
			irqdir := filepath.Join(root, "sys/kernel/irq/42")
			Expect(os.MkdirAll(irqdir, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(irqdir, "actions"),
				[]byte("foo,bar\n"), 0o644)).To(Succeed())
			brokendir := filepath.Join(root, "sys/kernel/irq/43")
			Expect(os.MkdirAll(brokendir, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(brokendir, "actions"),
				[]byte("unterminated"), 0o644)).To(Succeed())
		})

		It("returns the registered actions", func() {
			Expect(irqActions(root, 42)).To(Equal("foo,bar"))
		})

		It("returns a zero name for unknown or malformed IRQs", func() {
			Expect(irqActions(root, 666)).To(BeEmpty())
			Expect(irqActions(root, 43)).To(BeEmpty())
		})

	})

	It("reads something sensible on a real system", func() {
		if _, err := os.Stat(syskernelirqPath); err != nil {
			Skip("no " + syskernelirqPath)
		}
		namer := SysfsNamer()
		entries := Successful(os.ReadDir(syskernelirqPath))
		Expect(entries).NotTo(BeEmpty())
		// Not all IRQs have actions registered, so all we can check without
		// flaking is that the namer doesn't blow up.
		for _, entry := range entries {
			var irq int
			if _, err := fmt.Sscan(entry.Name(), &irq); err != nil {
				continue
			}
			_ = namer(irq)
		}
	})

})
