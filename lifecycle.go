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
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// The suspend cycle lifecycle: a tracker starts out awake, enters
// “suspending” on the prepare notification and returns to “awake” on the
// post-suspend notification. The state machine enforces the strict
// alternation of the two notifications.
const (
	stateAwake      = "awake"
	stateSuspending = "suspending"

	eventPrepare = "prepare"
	eventPost    = "post"
)

// newLifecycle wires up the suspend cycle state machine for the given
// tracker. The enter-state callbacks run with the tracker mutex held, as
// the lifecycle events are only ever fired from under it.
func newLifecycle(t *Tracker) *fsm.FSM {
	return fsm.NewFSM(
		stateAwake,
		fsm.Events{
			{Name: eventPrepare, Src: []string{stateAwake}, Dst: stateSuspending},
			{Name: eventPost, Src: []string{stateSuspending}, Dst: stateAwake},
		},
		fsm.Callbacks{
			"enter_" + stateSuspending: func(_ context.Context, _ *fsm.Event) {
				// The previous cycle's record lives until here, so late
				// readers still saw it; now a new cycle begins.
				t.resetLocked()
				t.lastWall = t.clock.Now()
				t.lastSleep = t.clock.SleepTotal()
			},
			"enter_" + stateAwake: func(_ context.Context, _ *fsm.Event) {
				t.currWall = t.clock.Now()
				t.currSleep = t.clock.SleepTotal()
				t.haveCycle = true
				t.suspendCount++
				sleep := t.currSleep - t.lastSleep
				total := t.currWall.Sub(t.lastWall)
				if sleep < 0 || total < sleep {
					t.log.Error("inconsistent suspend timing snapshots",
						zap.Duration("total", total), zap.Duration("sleep", sleep))
					return
				}
				t.totalSleep += sleep
				t.totalAsyncAwk += total - sleep
			},
		},
	)
}

// PrepareSuspend handles the prepare-suspend lifecycle notification: it
// discards the previous cycle's wakeup IRQ record, clears any abort, and
// snapshots the pre-suspend timing. PrepareSuspend returns an error when
// notifications do not strictly alternate, or with [ErrStillLogging] when
// the previous cycle's logging never came to its end because nobody drained
// the completion gate.
func (t *Tracker) PrepareSuspend() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loggingActive {
		return ErrStillLogging
	}
	return t.lifecycle.Event(context.Background(), eventPrepare)
}

// PostSuspend handles the post-suspend lifecycle notification: it snapshots
// the post-suspend timing and updates the aggregate suspend accounting. It
// returns an error when notifications do not strictly alternate.
func (t *Tracker) PostSuspend() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lifecycle.Event(context.Background(), eventPost)
}

// LogAbort records that the current suspend attempt was aborted, together
// with the reason; the reason gets truncated when exceedingly long. Only
// the first abort of a cycle is recorded, later LogAbort calls of the same
// cycle are no-ops. A recorded abort takes precedence over the leaf IRQ
// list in the last-resume-reason report.
func (t *Tracker) LogAbort(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.abort {
		return
	}
	t.abort = true
	if len(reason) > maxAbortReasonLen {
		reason = reason[:maxAbortReasonLen]
	}
	t.abortReason = reason
	t.abortCount++
}
