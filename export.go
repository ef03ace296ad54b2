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
	"strings"
	"time"
)

// Stats is a point-in-time snapshot of a tracker's aggregate suspend
// accounting; these figures span all suspend cycles of the tracker's
// lifetime and are never reset.
type Stats struct {
	SuspendCount  uint64        // completed prepare/post suspend cycles
	AbortCount    uint64        // aborted suspend attempts
	AwakeTime     time.Duration // time since tracker creation, minus accumulated sleep
	AsyncWakeTime time.Duration // accumulated resume-work time across cycles
	SleepTime     time.Duration // accumulated sleep time across cycles
	NoWaitCount   uint64        // gate passes that didn't need to wait
	TimeoutCount  uint64        // gate waits that timed out
	MaxWait       time.Duration // longest successful gate wait observed
}

// Stats returns the tracker's aggregate suspend accounting.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		SuspendCount:  t.suspendCount,
		AbortCount:    t.abortCount,
		AwakeTime:     t.clock.Now().Sub(t.createdAt) - t.totalSleep,
		AsyncWakeTime: t.totalAsyncAwk,
		SleepTime:     t.totalSleep,
		NoWaitCount:   t.noWaitCount,
		TimeoutCount:  t.timeoutCount,
		MaxWait:       t.maxWait,
	}
}

// LastSuspendTime returns how the most recent suspend cycle's elapsed wall
// time splits into actual sleep and the work spent suspending and resuming.
// Before the first completed cycle both durations are zero. A negative
// split indicates inconsistent clock snapshots and is reported as
// [ErrClockInconsistency] instead of being silently clamped.
func (t *Tracker) LastSuspendTime() (resumeWork, sleep time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveCycle {
		return 0, 0, nil
	}
	sleep = t.currSleep - t.lastSleep
	total := t.currWall.Sub(t.lastWall)
	if sleep < 0 || total < sleep {
		return 0, 0, ErrClockInconsistency
	}
	return total - sleep, sleep, nil
}

// FormatLastResumeReason renders the “last resume reason” report: either
// “Abort: <reason>” when the cycle's suspend attempt was aborted, or one
// line per terminal wakeup IRQ occurrence in “<irq> <name>” format, with
// the name left out for IRQs without registered actions. An abort always
// takes precedence over the IRQ list.
func (t *Tracker) FormatLastResumeReason() string {
	t.mu.Lock()
	if t.abort {
		reason := t.abortReason
		t.mu.Unlock()
		return "Abort: " + reason
	}
	leaves := t.leavesLocked()
	t.mu.Unlock()

	var report strings.Builder
	for _, irq := range leaves {
		if irq.Name != "" {
			fmt.Fprintf(&report, "%d %s\n", irq.Num, irq.Name)
			continue
		}
		fmt.Fprintf(&report, "%d\n", irq.Num)
	}
	return report.String()
}

// FormatLastSuspendTime renders the most recent cycle's suspend timing as
// two space-separated “seconds.nanoseconds” figures: first the
// suspend/resume work time, then the sleep time. Userspace always needs
// both, so they get exported in one pair.
func (t *Tracker) FormatLastSuspendTime() (string, error) {
	resumeWork, sleep, err := t.LastSuspendTime()
	if err != nil {
		return "", err
	}
	return formatSecNsec(resumeWork) + " " + formatSecNsec(sleep) + "\n", nil
}

// FormatSuspendStats renders the aggregate suspend accounting in the
// original two-line format: cycle and abort counts, awake, async-wake and
// sleep totals as “seconds.nanoseconds”, then the gate's no-wait and
// timeout counts and the longest observed wait in milliseconds.
func (t *Tracker) FormatSuspendStats() string {
	s := t.Stats()
	return fmt.Sprintf("%d %d %s %s %s\n%d %d %d\n",
		s.SuspendCount, s.AbortCount,
		formatSecNsec(s.AwakeTime),
		formatSecNsec(s.AsyncWakeTime),
		formatSecNsec(s.SleepTime),
		s.NoWaitCount, s.TimeoutCount, s.MaxWait.Milliseconds())
}

// formatSecNsec renders a non-negative duration as “seconds.nanoseconds”
// with the nanoseconds zero-padded to nine digits.
func formatSecNsec(d time.Duration) string {
	return fmt.Sprintf("%d.%09d", d/time.Second, d%time.Second)
}
