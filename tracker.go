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

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity is the default maximum number of wakeup IRQ
	// occurrences recorded per suspend cycle; further occurrences are
	// dropped with [ErrCapacityExceeded].
	DefaultCapacity = 32
	// DefaultMaxDepth is the default maximum nesting depth of chained
	// wakeup IRQ delivery; runaway nesting beyond it is rejected with
	// [ErrCapacityExceeded].
	DefaultMaxDepth = 32
	// maxAbortReasonLen bounds the length of a suspend abort reason text;
	// longer reasons get truncated.
	maxAbortReasonLen = 256
)

// IRQ describes a single recorded wakeup IRQ occurrence, as reported to
// consumers of a [Tracker].
type IRQ struct {
	Num     int    // IRQ number
	Name    string // action name(s) registered for this IRQ, or zero
	Handled bool   // the producer finished handling this occurrence
}

// Tracker records which IRQs caused the system to leave suspend during a
// single suspend/resume cycle, together with suspend timing accounting that
// spans all cycles of the tracker's lifetime. The zero value is not usable,
// use [New].
//
// A single mutex serializes all state mutation; it is only ever held for
// short, non-blocking critical sections, so the producer-side entry points
// [Tracker.BeginIRQ] and [Tracker.EndIRQ] are safe to call from contexts
// that must not sleep for long. Consumers block at most in
// [Tracker.AwaitQuiescence], and there only on the completion channel, never
// on the mutex.
type Tracker struct {
	mu sync.Mutex

	// the per-cycle forest of recorded occurrences, in an index-addressed
	// arena; slice order is insertion order.
	nodes    []irqNode
	cursor   int // arena index of the currently open occurrence, or noNode
	depth    int // nesting depth of the cursor, 0 when there is no cursor
	gen      uint64
	capacity int
	maxDepth int

	// completion gate state.
	loggingActive bool
	outstanding   int
	quiesced      chan struct{}
	gateResolved  bool
	gateLeaves    []IRQ
	gateErr       error

	// per-cycle abort record.
	abort       bool
	abortReason string

	// timing snapshots taken at the prepare/post suspend boundaries.
	lastWall  time.Time
	currWall  time.Time
	lastSleep time.Duration
	currSleep time.Duration
	haveCycle bool

	// aggregate counters, never reset for the tracker's lifetime.
	createdAt     time.Time
	suspendCount  uint64
	abortCount    uint64
	noWaitCount   uint64
	timeoutCount  uint64
	droppedCount  uint64
	maxWait       time.Duration
	totalSleep    time.Duration
	totalAsyncAwk time.Duration

	lifecycle *fsm.FSM
	clock     Clock
	namer     func(irq int) string
	log       *zap.Logger
}

// Option configures a [Tracker] during [New].
type Option func(*Tracker)

// WithCapacity sets the maximum number of wakeup IRQ occurrences recorded
// per suspend cycle. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// WithMaxDepth sets the maximum nesting depth of chained wakeup IRQ
// delivery. Non-positive values are ignored.
func WithMaxDepth(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxDepth = n
		}
	}
}

// WithClock sets the clock supplying the suspend timing snapshots.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithNamer sets the function resolving IRQ numbers into the action names
// reported alongside them. The namer must tolerate unknown IRQ numbers and
// then return a zero name. It defaults to [SysfsNamer].
func WithNamer(namer func(irq int) string) Option {
	return func(t *Tracker) {
		if namer != nil {
			t.namer = namer
		}
	}
}

// WithLogger sets the logger for the tracker's diagnostics; it defaults to a
// no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// New returns a new wakeup reason [Tracker], ready for its first suspend
// cycle.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		cursor:   noNode,
		gen:      1,
		capacity: DefaultCapacity,
		maxDepth: DefaultMaxDepth,
		clock:    sysClock{},
		namer:    SysfsNamer(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.createdAt = t.clock.Now()
	t.lifecycle = newLifecycle(t)
	return t
}

// namedLocked returns the passed occurrences with their IRQ action names
// resolved. Callers must hold the tracker mutex; namers thus need to be
// quick about their business.
func (t *Tracker) namedLocked(irqs []IRQ) []IRQ {
	for i := range irqs {
		irqs[i].Name = t.namer(irqs[i].Num)
	}
	return irqs
}
