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
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("the suspend cycle lifecycle", func() {

	var clock *testClock
	var tracker *Tracker

	BeforeEach(func() {
		clock = &testClock{now: time.Unix(1_000_000, 0)}
		tracker = New(WithClock(clock), WithNamer(namelessly))
	})

	It("enforces strictly alternating lifecycle notifications", func() {
		Expect(tracker.PostSuspend()).NotTo(Succeed())
		Expect(tracker.PrepareSuspend()).To(Succeed())
		Expect(tracker.PrepareSuspend()).NotTo(Succeed())
		Expect(tracker.PostSuspend()).To(Succeed())
		Expect(tracker.PostSuspend()).NotTo(Succeed())
	})

	It("refuses a new cycle while the gate was never drained", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		id := Successful(tracker.BeginIRQ(17))
		tracker.EndIRQ(id)
		Expect(tracker.PostSuspend()).To(Succeed())

		Expect(tracker.PrepareSuspend()).To(MatchError(ErrStillLogging))

		Expect(tracker.AwaitQuiescence(time.Second)).NotTo(BeEmpty())
		Expect(tracker.PrepareSuspend()).To(Succeed())
	})

	It("splits a cycle's wall time into sleep and resume work", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		clock.now = clock.now.Add(10 * time.Second)
		clock.slept += 8 * time.Second
		Expect(tracker.PostSuspend()).To(Succeed())

		resumeWork, sleep, err := tracker.LastSuspendTime()
		Expect(err).NotTo(HaveOccurred())
		Expect(sleep).To(Equal(8 * time.Second))
		Expect(resumeWork).To(Equal(2 * time.Second))
	})

	It("attributes a fully slept cycle to sleep only", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		clock.now = clock.now.Add(3 * time.Second)
		clock.slept += 3 * time.Second
		Expect(tracker.PostSuspend()).To(Succeed())

		resumeWork, sleep, err := tracker.LastSuspendTime()
		Expect(err).NotTo(HaveOccurred())
		Expect(sleep).To(Equal(3 * time.Second))
		Expect(resumeWork).To(BeZero())
	})

	It("reports inconsistent clock snapshots instead of clamping them", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		clock.slept -= time.Second
		Expect(tracker.PostSuspend()).To(Succeed())

		_, _, err := tracker.LastSuspendTime()
		Expect(err).To(MatchError(ErrClockInconsistency))
		_, err = tracker.FormatLastSuspendTime()
		Expect(err).To(MatchError(ErrClockInconsistency))
	})

	It("resets the record only at the next cycle's begin", func() {
		Expect(tracker.PrepareSuspend()).To(Succeed())
		id := Successful(tracker.BeginIRQ(17))
		tracker.EndIRQ(id)
		Expect(tracker.PostSuspend()).To(Succeed())
		Expect(tracker.AwaitQuiescence(time.Second)).NotTo(BeEmpty())

		// a late reader still sees the last cycle's record...
		Expect(tracker.CheckWakeup(17)).To(BeTrue())

		// ...until the next cycle begins.
		Expect(tracker.PrepareSuspend()).To(Succeed())
		Expect(tracker.CheckWakeup(17)).To(BeFalse())
		Expect(Successful(tracker.WakeupReasons())).To(BeEmpty())
	})

	When("aborting a suspend attempt", func() {

		It("reports the abort reason in place of the IRQ list", func() {
			Expect(tracker.PrepareSuspend()).To(Succeed())
			id := Successful(tracker.BeginIRQ(17))
			tracker.EndIRQ(id)
			tracker.LogAbort("frozen tasks refused to thaw")
			Expect(tracker.FormatLastResumeReason()).To(
				Equal("Abort: frozen tasks refused to thaw"))
		})

		It("records only the first abort reason of a cycle", func() {
			tracker.LogAbort("first")
			tracker.LogAbort("second")
			Expect(tracker.FormatLastResumeReason()).To(Equal("Abort: first"))
			Expect(tracker.Stats().AbortCount).To(Equal(uint64(1)))
		})

		It("truncates overly chatty abort reasons", func() {
			tracker.LogAbort(strings.Repeat("x", 4*maxAbortReasonLen))
			Expect(tracker.FormatLastResumeReason()).To(
				HaveLen(len("Abort: ") + maxAbortReasonLen))
		})

		It("clears the abort at the next cycle's begin", func() {
			tracker.LogAbort("whoops")
			Expect(tracker.PrepareSuspend()).To(Succeed())
			Expect(tracker.FormatLastResumeReason()).To(BeEmpty())
			Expect(tracker.Stats().AbortCount).To(Equal(uint64(1)))
		})

	})

})
