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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "rouse"

var (
	suspendsDesc = prometheus.NewDesc(
		namespace+"_suspends_total",
		"Total number of completed suspend cycles.",
		nil, nil)
	abortsDesc = prometheus.NewDesc(
		namespace+"_suspend_aborts_total",
		"Total number of aborted suspend attempts.",
		nil, nil)
	sleepDesc = prometheus.NewDesc(
		namespace+"_sleep_seconds_total",
		"Total seconds spent asleep across all suspend cycles.",
		nil, nil)
	asyncWakeDesc = prometheus.NewDesc(
		namespace+"_async_wake_seconds_total",
		"Total seconds spent on suspend/resume work across all suspend cycles.",
		nil, nil)
	noWaitDesc = prometheus.NewDesc(
		namespace+"_gate_no_wait_total",
		"Total number of completion gate passes that didn't need to wait.",
		nil, nil)
	timeoutsDesc = prometheus.NewDesc(
		namespace+"_gate_timeouts_total",
		"Total number of completion gate waits that timed out.",
		nil, nil)
	maxWaitDesc = prometheus.NewDesc(
		namespace+"_gate_max_wait_seconds",
		"Longest successful completion gate wait observed so far.",
		nil, nil)
	droppedDesc = prometheus.NewDesc(
		namespace+"_dropped_irqs_total",
		"Total number of wakeup IRQ occurrences dropped due to capacity limits.",
		nil, nil)
)

var _ prometheus.Collector = (*Tracker)(nil)

// Describe implements [prometheus.Collector].
func (t *Tracker) Describe(ch chan<- *prometheus.Desc) {
	ch <- suspendsDesc
	ch <- abortsDesc
	ch <- sleepDesc
	ch <- asyncWakeDesc
	ch <- noWaitDesc
	ch <- timeoutsDesc
	ch <- maxWaitDesc
	ch <- droppedDesc
}

// Collect implements [prometheus.Collector], exposing the tracker's
// aggregate suspend accounting.
func (t *Tracker) Collect(ch chan<- prometheus.Metric) {
	s := t.Stats()
	t.mu.Lock()
	dropped := t.droppedCount
	t.mu.Unlock()
	ch <- prometheus.MustNewConstMetric(suspendsDesc,
		prometheus.CounterValue, float64(s.SuspendCount))
	ch <- prometheus.MustNewConstMetric(abortsDesc,
		prometheus.CounterValue, float64(s.AbortCount))
	ch <- prometheus.MustNewConstMetric(sleepDesc,
		prometheus.CounterValue, s.SleepTime.Seconds())
	ch <- prometheus.MustNewConstMetric(asyncWakeDesc,
		prometheus.CounterValue, s.AsyncWakeTime.Seconds())
	ch <- prometheus.MustNewConstMetric(noWaitDesc,
		prometheus.CounterValue, float64(s.NoWaitCount))
	ch <- prometheus.MustNewConstMetric(timeoutsDesc,
		prometheus.CounterValue, float64(s.TimeoutCount))
	ch <- prometheus.MustNewConstMetric(maxWaitDesc,
		prometheus.GaugeValue, s.MaxWait.Seconds())
	ch <- prometheus.MustNewConstMetric(droppedDesc,
		prometheus.CounterValue, float64(dropped))
}

// Handler returns an [http.Handler] serving the tracker's three read
// attributes beneath “/wakeup_reasons/”, mirroring the original sysfs
// attribute group, plus the Prometheus metrics on “/metrics”.
func (t *Tracker) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(t)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/wakeup_reasons/last_resume_reason",
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(t.FormatLastResumeReason()))
		})
	mux.HandleFunc("/wakeup_reasons/last_suspend_time",
		func(w http.ResponseWriter, _ *http.Request) {
			report, err := t.FormatLastSuspendTime()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(report))
		})
	mux.HandleFunc("/wakeup_reasons/suspend_since_boot",
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(t.FormatSuspendStats()))
		})
	return mux
}

// ServeEndpoints starts an HTTP server exposing the tracker's read
// attributes and metrics on the given address; it returns the server so
// callers can shut it down later.
func ServeEndpoints(addr string, t *Tracker, log *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:        addr,
		Handler:     t.Handler(),
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("wakeup reason endpoint server failed", zap.Error(err))
		}
	}()
	return server
}
