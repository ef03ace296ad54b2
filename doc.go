/*
Package rouse tracks which interrupts roused a device from suspend, one
suspend/resume cycle at a time, and keeps accounting of how the cycle's wall
time split into actual sleep and suspend/resume work. It is the userland
sibling of the Android kernel's wakeup_reasons bookkeeping, with the same
reports and the same concurrency contract, but with an explicit [Tracker]
object instead of ambient globals.

# Three Timing Domains, One Contract

Three parties look at the same per-cycle record and must never see it torn
or stale:

  - producers in interrupt-ish contexts call [Tracker.BeginIRQ] and
    [Tracker.EndIRQ] around handling a wakeup interrupt; these calls must
    never block beyond a short, non-sleeping critical section. Nested calls
    record chained interrupt controllers as parent/child occurrences.
  - the suspend lifecycle calls [Tracker.PrepareSuspend] and
    [Tracker.PostSuspend] in strict alternation; the prepare notification
    discards the previous cycle's record and arms the new one.
  - a consumer calls [Tracker.AwaitQuiescence] to get the cycle's wakeup
    causes, waiting (bounded) for in-flight producers to finish annotating
    their occurrences first.

All mutation funnels through one short-held mutex. The consumer's wait
happens outside that mutex on a completion channel the last
[Tracker.EndIRQ] closes, so a stuck producer can delay a consumer at most
until the consumer's timeout, and a waiting consumer can never deadlock a
producer.

The wakeup causes reported are the “leaf” occurrences: interrupts whose
handling did not fan out into further nested interrupts. An aborted suspend
attempt, recorded via [Tracker.LogAbort], takes precedence over the leaf
list in the last-resume-reason report.

# Where the IRQ Names Come From

The reports decorate IRQ numbers with the action chains registered for
them, gleaned from “/sys/kernel/irq/#/actions”: a comma-separated list of
zero or more actions. Actions might be device names, but also other
elements, such as individual RX/TX queue IRQs of network cards. Pass
[WithNamer] to resolve names differently, or not at all.

# Reports

[Tracker.FormatLastResumeReason], [Tracker.FormatLastSuspendTime], and
[Tracker.FormatSuspendStats] render the three classic read attributes byte
for byte like their sysfs originals; [Tracker.Handler] serves them over
HTTP together with Prometheus metrics for the aggregate counters. The
structured forms are available as [Tracker.WakeupReasons],
[Tracker.LastSuspendTime], and [Tracker.Stats].

# Clocks

Suspend plays havoc with clocks, so rouse is picky about which one it uses
for what: sleep time is the difference between CLOCK_BOOTTIME (advances
during suspend) and CLOCK_MONOTONIC (doesn't), wall-clock snapshots frame
each cycle, and the consumer's wait bound is measured in elapsed monotonic
time only, so it is immune to the very wall-clock jumps this package is in
the business of measuring.
*/
package rouse
