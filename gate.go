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
	"slices"
	"time"

	"go.uber.org/zap"
)

// AwaitQuiescence waits, bounded by the given timeout, until every wakeup
// IRQ occurrence recorded during the current cycle has been marked as
// handled, and then returns the terminal (“leaf”) occurrences in delivery
// order. When no occurrence was recorded at all this cycle, AwaitQuiescence
// doesn't wait and immediately returns the (empty) leaf set.
//
// When the timeout elapses first, AwaitQuiescence returns a [*TimeoutError]
// carrying the occurrences that were still unhandled, and the cycle's
// record freezes in this partial state. Either way, wakeup IRQ logging is
// over for this cycle afterwards and further AwaitQuiescence calls simply
// replay the frozen outcome until the next suspend cycle begins.
//
// The wait happens outside the tracker's mutex, on per-wave completion
// channels closed by the producer-side [Tracker.EndIRQ] calls observing
// zero still-open occurrences. The bound is measured in elapsed (monotonic)
// time, so it is robust against the very wall-clock jumps that
// suspend/resume causes.
func (t *Tracker) AwaitQuiescence(timeout time.Duration) ([]IRQ, error) {
	t.mu.Lock()
	if t.gateResolved {
		leaves, err := slices.Clone(t.gateLeaves), t.gateErr
		t.mu.Unlock()
		return leaves, err
	}
	if !t.loggingActive {
		t.noWaitCount++
		leaves := t.leavesLocked()
		t.gateResolved = true
		t.gateLeaves = leaves
		t.mu.Unlock()
		return slices.Clone(leaves), nil
	}
	// Quiescence means zero still-open occurrences, not a particular
	// channel closing: a fresh wave of occurrences after an earlier wave of
	// this cycle drained comes with a fresh completion channel, so keep
	// re-checking until either zero is observed or the bound is up.
	signalled := true
	start := time.Now()
	for t.outstanding > 0 {
		quiesced := t.quiesced
		remaining := timeout - time.Since(start)
		if remaining <= 0 {
			signalled = false
			break
		}
		t.mu.Unlock()
		timer := time.NewTimer(remaining)
		select {
		case <-quiesced:
			timer.Stop()
		case <-timer.C:
		}
		t.mu.Lock()
	}
	waited := time.Since(start)

	t.loggingActive = false
	t.gateResolved = true
	if !signalled {
		t.timeoutCount++
		unhandled := t.unhandledLocked()
		err := &TimeoutError{Timeout: timeout, Unhandled: unhandled}
		t.gateLeaves = nil
		t.gateErr = err
		t.mu.Unlock()
		for _, irq := range unhandled {
			t.log.Warn("wakeup IRQ was not handled", zap.Int("irq", irq.Num))
		}
		return nil, err
	}
	if waited > t.maxWait {
		t.maxWait = waited
	}
	leaves := t.leavesLocked()
	t.gateLeaves = leaves
	t.gateErr = nil
	t.mu.Unlock()
	t.log.Info("wakeup IRQ logging quiesced", zap.Duration("waited", waited))
	return slices.Clone(leaves), nil
}
