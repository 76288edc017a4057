// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sim stands in for "boot + timer IRQ + architecture epilogue": the
// collaborators spec.md places out of scope. It drives pkg/kernel/manager
// with one goroutine per simulated logical CPU, delivering synthetic timer
// ticks the way a real architecture's ISR would, and reports scheduling
// decisions on a channel for a caller to print, trace, or summarize.
package sim

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/latticeos/stride/pkg/kernel/manager"
	"github.com/latticeos/stride/pkg/kernel/sched"
)

// maxEventsPerSecond bounds how fast Simulator forwards scheduling-decision
// events to its Events channel. A short quantum across many simulated CPUs
// can produce far more pick/idle transitions per wall-clock second than any
// consumer (a terminal, a trace file) can usefully keep up with; rate
// limiting here, rather than enlarging the channel buffer, keeps the oldest
// events from ever queuing up behind newer ones.
const maxEventsPerSecond = 2000

// EventKind classifies one entry reported on a Simulator's Events channel.
type EventKind string

const (
	// EventPick reports a CPU dispatching a different thread than it was
	// previously running (or picking one after being idle).
	EventPick EventKind = "pick"
	// EventIdle reports a CPU finding no runnable thread.
	EventIdle EventKind = "idle"
)

// Event is one observed scheduling decision.
type Event struct {
	CPU      sched.CPUID
	Kind     EventKind
	ThreadID sched.ThreadID
	SimTime  time.Duration
}

// Simulator drives mgr for a fixed quantum per simulated CPU, emitting one
// Event per tick that changes which thread a CPU is running.
type Simulator struct {
	mgr     *manager.Manager
	quantum time.Duration
	events  chan Event
	limiter *rate.Limiter

	start time.Time
}

// New constructs a Simulator over mgr, delivering a timer tick of quantum
// to every simulated CPU's goroutine.
func New(mgr *manager.Manager, quantum time.Duration) *Simulator {
	return &Simulator{
		mgr:     mgr,
		quantum: quantum,
		events:  make(chan Event, 256),
		limiter: rate.NewLimiter(rate.Limit(maxEventsPerSecond), maxEventsPerSecond/10),
	}
}

// Events returns the channel Run publishes scheduling decisions to. The
// caller must drain it (or let it buffer) while Run is in flight; Run
// closes it when all CPU goroutines have returned.
func (s *Simulator) Events() <-chan Event { return s.events }

// Run delivers timer ticks to every simulated CPU, one goroutine per CPU
// via errgroup — standing in for spec.md §5's "parallel hardware threads,
// one PerCpuState per logical CPU" — until ctx is cancelled or d elapses.
func (s *Simulator) Run(ctx context.Context, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	s.start = time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.mgr.NumCPUs(); i++ {
		cpu := sched.CPUID(i)
		g.Go(func() error {
			return s.runCPU(ctx, cpu)
		})
	}
	err := g.Wait()
	close(s.events)
	return err
}

func (s *Simulator) runCPU(ctx context.Context, cpu sched.CPUID) error {
	ticker := time.NewTicker(s.quantum)
	defer ticker.Stop()

	c := s.mgr.GetCPUState(cpu)
	var lastID sched.ThreadID
	var hadThread bool

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			savedSP := uint64(0)
			if c.CurrentThread != nil {
				savedSP = uint64(c.CurrentThread.Stack().SP())
			}
			s.mgr.OnTimerInterrupt(cpu, savedSP, s.quantum)

			cur := c.CurrentThread
			switch {
			case cur == nil && hadThread:
				s.emit(Event{CPU: cpu, Kind: EventIdle, SimTime: time.Since(s.start)})
				hadThread = false
			case cur != nil && (!hadThread || cur.ID() != lastID):
				s.emit(Event{CPU: cpu, Kind: EventPick, ThreadID: cur.ID(), SimTime: time.Since(s.start)})
				lastID = cur.ID()
				hadThread = true
			}
		}
	}
}

func (s *Simulator) emit(e Event) {
	if !s.limiter.Allow() {
		return
	}
	select {
	case s.events <- e:
	default:
		// The channel buffer is a best-effort trace; a caller not keeping
		// up drops events rather than stalling the simulated CPU, matching
		// spec.md's own stance that balance/trace concerns never block the
		// hot path.
	}
}
