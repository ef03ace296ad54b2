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

// roused is a reference front-end for the rouse wakeup reason tracker: it
// accepts suspend lifecycle and interrupt events over a unix socket line
// protocol and serves the wakeup reason reports and Prometheus metrics over
// HTTP.
//
// The line protocol, one event per line:
//
//	prepare            - prepare-suspend lifecycle notification
//	post               - post-suspend lifecycle notification
//	begin <irq>        - a wakeup IRQ is about to be handled
//	end <irq>          - the most recent begin for this IRQ is handled
//	abort <reason...>  - the suspend attempt was aborted
//	reasons            - await quiescence, reply with the resume reason report
//	stats              - reply with the suspend statistics report
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/thediveo/rouse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func main() {
	configPath := flag.String("config", "", "path to yaml configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	log := newLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	tracker := rouse.New(
		rouse.WithCapacity(cfg.Capacity),
		rouse.WithMaxDepth(cfg.MaxDepth),
		rouse.WithLogger(log.Named("tracker")))
	server := rouse.ServeEndpoints(cfg.Listen, tracker, log.Named("http"))
	log.Info("serving wakeup reason endpoints", zap.String("addr", cfg.Listen))

	_ = os.Remove(cfg.Socket)
	listener, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		log.Fatal("cannot listen on event socket", zap.Error(err))
	}
	log.Info("accepting suspend/wakeup events", zap.String("socket", cfg.Socket))
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go feed(conn, tracker, time.Duration(cfg.GateTimeout), log.Named("feed"))
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("winding down")
	_ = listener.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

// feed consumes one event feed connection until EOF, translating the line
// protocol into tracker operations. Matching begin/end pairs are tracked
// per connection and per IRQ number, as the protocol identifies occurrences
// only by their IRQ.
func feed(conn net.Conn, tracker *rouse.Tracker, gateTimeout time.Duration, log *zap.Logger) {
	defer conn.Close()
	open := map[int][]rouse.NodeID{} // per-IRQ stack of open occurrences
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "prepare":
			clear(open)
			err = tracker.PrepareSuspend()
		case "post":
			err = tracker.PostSuspend()
		case "begin":
			var irq int
			if irq, err = strconv.Atoi(fields[len(fields)-1]); err != nil {
				break
			}
			var id rouse.NodeID
			if id, err = tracker.BeginIRQ(irq); err != nil {
				break
			}
			open[irq] = append(open[irq], id)
		case "end":
			var irq int
			if irq, err = strconv.Atoi(fields[len(fields)-1]); err != nil {
				break
			}
			if ids := open[irq]; len(ids) > 0 {
				tracker.EndIRQ(ids[len(ids)-1])
				open[irq] = ids[:len(ids)-1]
			}
		case "abort":
			tracker.LogAbort(strings.Join(fields[1:], " "))
		case "reasons":
			if _, err = tracker.AwaitQuiescence(gateTimeout); err != nil {
				log.Warn("wakeup reason logging did not quiesce", zap.Error(err))
			}
			err = reply(conn, tracker.FormatLastResumeReason())
		case "stats":
			err = reply(conn, tracker.FormatSuspendStats())
		default:
			log.Warn("unknown event", zap.String("event", fields[0]))
			continue
		}
		if err != nil {
			log.Warn("event failed",
				zap.String("event", fields[0]), zap.Error(err))
		}
	}
}

func reply(w io.Writer, report string) error {
	if !strings.HasSuffix(report, "\n") {
		report += "\n"
	}
	_, err := w.Write([]byte(report))
	return err
}
