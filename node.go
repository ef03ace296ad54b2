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

import "go.uber.org/zap"

// noNode marks the absence of an arena index, such as “no current cursor”
// and “root occurrences have no parent”.
const noNode = -1

// NodeID is the opaque handle for a recorded wakeup IRQ occurrence, handed
// out by [Tracker.BeginIRQ] and later passed back to [Tracker.EndIRQ]. A
// NodeID is only valid for the suspend cycle it was issued in; stale
// handles from earlier cycles are silently ignored.
type NodeID struct {
	idx int
	gen uint64
}

// irqNode is a single recorded wakeup IRQ occurrence inside the tracker's
// arena. Parent linkage uses stable arena indices instead of pointers; the
// arena's append order is exactly the interrupt delivery order observed, so
// in-order traversal is a plain slice scan.
type irqNode struct {
	irq         int
	handled     bool
	parent      int // arena index of the parent occurrence, or noNode
	hasChildren bool
}

// BeginIRQ records that the given wakeup IRQ is about to be handled and
// returns the handle to later mark the occurrence as handled. When called
// while another occurrence is still open, the new occurrence becomes its
// child, reflecting nested delivery through chained interrupt controllers;
// otherwise it starts a new top-level occurrence.
//
// BeginIRQ never blocks beyond the tracker's short-held mutex. When the
// per-cycle capacity or the nesting depth limit would be exceeded, the
// occurrence is dropped and BeginIRQ returns [ErrCapacityExceeded]; all
// previously recorded occurrences remain intact.
func (t *Tracker) BeginIRQ(irq int) (NodeID, error) {
	t.mu.Lock()
	if len(t.nodes) >= t.capacity || t.depth >= t.maxDepth {
		t.droppedCount++
		t.mu.Unlock()
		t.log.Warn("dropping wakeup IRQ, capacity exceeded",
			zap.Int("irq", irq),
			zap.Int("capacity", t.capacity), zap.Int("maxdepth", t.maxDepth))
		return NodeID{idx: noNode}, ErrCapacityExceeded
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, irqNode{irq: irq, parent: t.cursor})
	if t.cursor != noNode {
		t.nodes[t.cursor].hasChildren = true
	}
	t.cursor = idx
	t.depth++
	// Logging becomes active only now that there actually is something to
	// log; this keeps cycles that resume without any recorded IRQ on the
	// gate's fast no-wait path. Each wave of occurrences gets its own
	// completion channel: an earlier wave of this cycle may already have
	// drained and closed its channel.
	if !t.gateResolved {
		t.loggingActive = true
		if t.outstanding == 0 {
			t.quiesced = make(chan struct{})
		}
	}
	t.outstanding++
	id := NodeID{idx: idx, gen: t.gen}
	t.mu.Unlock()

	if ce := t.log.Check(zap.InfoLevel, "resume caused by IRQ"); ce != nil {
		ce.Write(zap.Int("irq", irq), zap.String("name", t.namer(irq)))
	}
	return id, nil
}

// EndIRQ marks the occurrence identified by the given handle as handled. If
// the occurrence is the currently open one, the cursor retreats to its
// parent, matching the begin/end nesting. EndIRQ is idempotent and ignores
// unknown or stale handles. The EndIRQ call that leaves no occurrence of
// the current cycle unhandled signals quiescence to any consumer waiting in
// [Tracker.AwaitQuiescence].
func (t *Tracker) EndIRQ(id NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id.gen != t.gen || id.idx < 0 || id.idx >= len(t.nodes) {
		return
	}
	n := &t.nodes[id.idx]
	if n.handled {
		return
	}
	n.handled = true
	if t.cursor == id.idx {
		t.cursor = n.parent
		t.depth--
	}
	t.outstanding--
	if t.loggingActive && t.outstanding == 0 && t.quiesced != nil {
		close(t.quiesced)
		t.quiesced = nil
	}
}

// CheckWakeup reports whether the given IRQ was recorded as a wakeup cause
// at any nesting depth during the current cycle.
func (t *Tracker) CheckWakeup(irq int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.nodes {
		if t.nodes[i].irq == irq {
			return true
		}
	}
	return false
}

// WakeupReasons returns the terminal (“leaf”) wakeup IRQ occurrences of the
// current cycle in delivery order; these are the occurrences without nested
// occurrences beneath them and thus the proximate causes for leaving
// suspend. WakeupReasons must only be consulted after wakeup IRQ logging
// has come to its end, otherwise it returns [ErrStillLogging].
func (t *Tracker) WakeupReasons() ([]IRQ, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loggingActive {
		return nil, ErrStillLogging
	}
	return t.leavesLocked(), nil
}

// UnhandledIRQs returns the wakeup IRQ occurrences of the current cycle
// that have not (yet) been marked as handled, in delivery order. In
// contrast to [Tracker.WakeupReasons] it may be called while logging is
// still active, as its purpose is diagnosing incomplete cycles.
func (t *Tracker) UnhandledIRQs() []IRQ {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unhandledLocked()
}

func (t *Tracker) leavesLocked() []IRQ {
	leaves := []IRQ{}
	for i := range t.nodes {
		if t.nodes[i].hasChildren {
			continue
		}
		leaves = append(leaves, IRQ{Num: t.nodes[i].irq, Handled: t.nodes[i].handled})
	}
	return t.namedLocked(leaves)
}

func (t *Tracker) unhandledLocked() []IRQ {
	unhandled := []IRQ{}
	for i := range t.nodes {
		if t.nodes[i].handled {
			continue
		}
		unhandled = append(unhandled, IRQ{Num: t.nodes[i].irq})
	}
	return t.namedLocked(unhandled)
}

// resetLocked discards the forest and all per-cycle state, keeping the
// aggregate counters. Callers must hold the tracker mutex and must have
// ensured that logging is not active anymore.
func (t *Tracker) resetLocked() {
	t.nodes = t.nodes[:0]
	t.cursor = noNode
	t.depth = 0
	t.gen++
	t.outstanding = 0
	t.loggingActive = false
	t.quiesced = nil
	t.gateResolved = false
	t.gateLeaves = nil
	t.gateErr = nil
	t.abort = false
	t.abortReason = ""
}
