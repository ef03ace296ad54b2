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
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCapacityExceeded is returned by [Tracker.BeginIRQ] when recording
	// yet another wakeup IRQ occurrence would exceed the tracker's node
	// capacity or nesting depth limit. The occurrence is dropped, all
	// occurrences recorded so far remain intact.
	ErrCapacityExceeded = errors.New("wakeup IRQ capacity exceeded")

	// ErrStillLogging is returned when an operation requires wakeup IRQ
	// logging to have come to its end for the current suspend cycle, but
	// logging is still active.
	ErrStillLogging = errors.New("wakeup IRQ logging still active")

	// ErrClockInconsistency is returned when the suspend timing snapshots
	// yield a negative duration; this indicates a clock or event ordering
	// problem and the affected durations must not be trusted.
	ErrClockInconsistency = errors.New("negative suspend duration")
)

// TimeoutError is returned by [Tracker.AwaitQuiescence] when not all recorded
// wakeup IRQ occurrences were marked as handled within the allotted time. It
// carries the occurrences that were still unhandled when the wait gave up.
type TimeoutError struct {
	Timeout   time.Duration // the bound the wait was given
	Unhandled []IRQ         // occurrences never marked as handled
}

var _ error = (*TimeoutError)(nil)

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("quiescence not reached within %s: %d wakeup IRQ(s) unhandled",
		e.Timeout, len(e.Unhandled))
}
