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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"

	"github.com/latticeos/stride/cmd/schedctl/sim"
	"github.com/latticeos/stride/internal/config"
	"github.com/latticeos/stride/internal/klog"
)

// traceEvent is one JSON line appended to a trace file, named after the
// fields schedviz-style tools key their own sched_event records on: CPU,
// timestamp, and the thread identity involved.
type traceEvent struct {
	CPU      int32  `json:"cpu"`
	SimNS    int64  `json:"sim_ns"`
	Kind     string `json:"kind"`
	ThreadID uint32 `json:"thread_id,omitempty"`
}

// traceCmd implements subcommands.Command for "trace": run the same
// simulation as "run" but append one JSON line per scheduling decision to
// -trace-output, guarded by a file lock so concurrent invocations against
// the same path don't interleave writes.
type traceCmd struct {
	cfg     config.Config
	threads int
}

func (*traceCmd) Name() string { return "trace" }
func (*traceCmd) Synopsis() string {
	return "run the simulation, appending a JSON scheduling trace to a file"
}
func (*traceCmd) Usage() string {
	return "trace -trace-output=<path> [flags]\n"
}

func (t *traceCmd) SetFlags(f *flag.FlagSet) {
	t.cfg = *config.Default()
	t.cfg.RegisterFlags(f)
	f.IntVar(&t.threads, "threads", 8, "number of threads to seed across the simulated CPUs")
}

func (t *traceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if t.cfg.TraceOutput == "" {
		fmt.Fprintln(os.Stderr, "trace: -trace-output is required")
		return subcommands.ExitUsageError
	}
	klog.SetVerbose(t.cfg.Verbose)

	lock := flock.New(t.cfg.TraceOutput + ".lock")
	if err := lock.Lock(); err != nil {
		klog.Errorf("acquiring trace output lock: %v", err)
		return subcommands.ExitFailure
	}
	defer lock.Unlock()

	out, err := os.OpenFile(t.cfg.TraceOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		klog.Errorf("opening trace output: %v", err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	enc := json.NewEncoder(out)

	mgr := bootManager(&t.cfg)
	seedThreads(mgr, t.threads, nil)

	s := sim.New(mgr, t.cfg.Quantum)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range s.Events() {
			line := traceEvent{
				CPU:      int32(ev.CPU),
				SimNS:    ev.SimTime.Nanoseconds(),
				Kind:     string(ev.Kind),
				ThreadID: uint32(ev.ThreadID),
			}
			if err := enc.Encode(line); err != nil {
				klog.Warningf("writing trace line: %v", err)
			}
		}
	}()

	if err := s.Run(ctx, t.cfg.SimDuration); err != nil {
		klog.Errorf("simulation failed: %v", err)
		return subcommands.ExitFailure
	}
	<-done
	return subcommands.ExitSuccess
}
