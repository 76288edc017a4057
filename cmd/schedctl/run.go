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
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/latticeos/stride/cmd/schedctl/sim"
	"github.com/latticeos/stride/internal/config"
	"github.com/latticeos/stride/internal/klog"
)

// runCmd implements subcommands.Command for "run": boot a simulated
// machine, seed it with threads, and drive it for a fixed duration, then
// print a one-line summary of the scheduling decisions it observed.
type runCmd struct {
	cfg     config.Config
	threads int
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the stride scheduler against a simulated machine" }
func (*runCmd) Usage() string {
	return "run [flags]\n  Boots a simulated multi-CPU machine and drives it for -duration.\n"
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	r.cfg = *config.Default()
	r.cfg.RegisterFlags(f)
	f.IntVar(&r.threads, "threads", 8, "number of threads to seed across the simulated CPUs")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	klog.SetVerbose(r.cfg.Verbose)
	klog.Infof("%s", r.cfg.String())

	r.cfg.SimDuration = durationOrDefault(r.cfg.SimDuration, config.Default().SimDuration)

	mgr := bootManager(&r.cfg)
	seedThreads(mgr, r.threads, nil)

	s := sim.New(mgr, r.cfg.Quantum)
	picks := make(map[int]int)
	idles := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range s.Events() {
			switch ev.Kind {
			case sim.EventPick:
				picks[int(ev.ThreadID)]++
			case sim.EventIdle:
				idles++
			}
		}
	}()

	if err := s.Run(ctx, r.cfg.SimDuration); err != nil {
		klog.Errorf("simulation failed: %v", err)
		return subcommands.ExitFailure
	}
	<-done

	fmt.Printf("ran %d CPUs for %s: %d distinct threads picked, %d idle transitions\n",
		mgr.NumCPUs(), r.cfg.SimDuration, len(picks), idles)
	return subcommands.ExitSuccess
}
