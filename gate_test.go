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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("the completion gate", func() {

	var tracker *Tracker

	BeforeEach(func() {
		tracker = New(WithNamer(namelessly))
	})

	It("passes without waiting when nothing was recorded", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		Expect(tracker.PostSuspend()).To(Succeed())

		leaves, err := tracker.AwaitQuiescence(time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(BeEmpty())
		Expect(tracker.Stats().NoWaitCount).To(Equal(uint64(1)))

		// replays, instead of passing the no-wait branch again.
		Expect(tracker.AwaitQuiescence(time.Hour)).To(BeEmpty())
		Expect(tracker.Stats().NoWaitCount).To(Equal(uint64(1)))
	})

	It("waits for in-flight producers to finish", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		irqs := []int{3, 5, 7, 11, 13}
		var wg sync.WaitGroup
		wg.Add(len(irqs))
		for _, irq := range irqs {
			go func() {
				defer wg.Done()
				id, err := tracker.BeginIRQ(irq)
				if err != nil {
					return
				}
				time.Sleep(20 * time.Millisecond)
				tracker.EndIRQ(id)
			}()
		}
		Expect(tracker.PostSuspend()).To(Succeed())

		leaves, err := tracker.AwaitQuiescence(2 * time.Second)
		wg.Wait()
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).NotTo(BeEmpty())
		Expect(leaves).To(HaveEach(HaveField("Handled", true)))
		for _, irq := range irqs {
			Expect(tracker.CheckWakeup(irq)).To(BeTrue())
		}
		stats := tracker.Stats()
		Expect(stats.TimeoutCount).To(BeZero())
		Expect(stats.MaxWait).To(BeNumerically(">", 0))
	})

	It("keeps waiting across successive waves of occurrences", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		first := Successful(tracker.BeginIRQ(1))
		tracker.EndIRQ(first)
		// a second wave starts after the first one already fully drained.
		second := Successful(tracker.BeginIRQ(2))
		Expect(tracker.PostSuspend()).To(Succeed())

		go func() {
			time.Sleep(20 * time.Millisecond)
			tracker.EndIRQ(second)
		}()
		leaves, err := tracker.AwaitQuiescence(2 * time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveExactElements(
			HaveField("Num", 1), HaveField("Num", 2)))
		Expect(leaves).To(HaveEach(HaveField("Handled", true)))
		Expect(tracker.UnhandledIRQs()).To(BeEmpty())
	})

	It("times out on a stuck second wave instead of passing it off as quiescent", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		first := Successful(tracker.BeginIRQ(1))
		tracker.EndIRQ(first)
		second := Successful(tracker.BeginIRQ(2))
		Expect(tracker.PostSuspend()).To(Succeed())

		_, err := tracker.AwaitQuiescence(20 * time.Millisecond)
		var timeout *TimeoutError
		Expect(err).To(BeAssignableToTypeOf(timeout))
		Expect(err.(*TimeoutError).Unhandled).To(
			HaveExactElements(HaveField("Num", 2)))
		tracker.EndIRQ(second)
	})

	It("gives up after the bound, reporting the unhandled occurrences", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		outer := Successful(tracker.BeginIRQ(17))
		inner := Successful(tracker.BeginIRQ(5))
		tracker.EndIRQ(inner)
		Expect(tracker.PostSuspend()).To(Succeed())

		_, err := tracker.AwaitQuiescence(20 * time.Millisecond)
		var timeout *TimeoutError
		Expect(err).To(BeAssignableToTypeOf(timeout))
		timeout = err.(*TimeoutError)
		Expect(timeout.Unhandled).To(HaveExactElements(HaveField("Num", 17)))
		Expect(tracker.Stats().TimeoutCount).To(Equal(uint64(1)))

		By("replaying the frozen outcome on further calls")
		_, err2 := tracker.AwaitQuiescence(time.Hour)
		Expect(err2).To(BeIdenticalTo(err))
		Expect(tracker.Stats().TimeoutCount).To(Equal(uint64(1)))

		By("allowing the next cycle to start regardless")
		Expect(tracker.PrepareSuspend()).To(Succeed())
		Expect(tracker.UnhandledIRQs()).To(BeEmpty())
		tracker.EndIRQ(outer)
	})

	It("treats a zero bound as not waiting at all", func() {
		id := Successful(tracker.BeginIRQ(17))
		_, err := tracker.AwaitQuiescence(0)
		var timeout *TimeoutError
		Expect(err).To(BeAssignableToTypeOf(timeout))
		tracker.EndIRQ(id)
	})

	It("doesn't wait when quiescence was already reached", func() {
		id := Successful(tracker.BeginIRQ(17))
		tracker.EndIRQ(id)

		leaves, err := tracker.AwaitQuiescence(time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(leaves).To(HaveExactElements(HaveField("Num", 17)))
		reasons, err := tracker.WakeupReasons()
		Expect(err).NotTo(HaveOccurred())
		Expect(reasons).To(Equal(leaves))
	})

})
