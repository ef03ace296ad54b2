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
	"time"

	"golang.org/x/sys/unix"
)

// Clock supplies the two time domains a [Tracker] snapshots at the suspend
// cycle boundaries: wall-clock time and the total time the system has been
// asleep. Trackers default to the system clock; tests inject their own
// implementation via [WithClock].
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
	// SleepTotal returns the total time the system spent in suspend since
	// boot.
	SleepTotal() time.Duration
}

// sysClock reads the real system clocks. CLOCK_BOOTTIME advances during
// suspend while CLOCK_MONOTONIC doesn't, so their difference is exactly the
// accumulated sleep time since boot.
type sysClock struct{}

var _ Clock = sysClock{}

func (sysClock) Now() time.Time { return time.Now() }

func (sysClock) SleepTotal() time.Duration {
	var boottime, mono unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &boottime); err != nil {
		return 0
	}
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &mono); err != nil {
		return 0
	}
	return time.Duration(boottime.Nano() - mono.Nano())
}
