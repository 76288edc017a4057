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
	"time"

	"github.com/latticeos/stride/internal/config"
	"github.com/latticeos/stride/internal/klog"
	"github.com/latticeos/stride/pkg/kernel/manager"
	"github.com/latticeos/stride/pkg/kernel/sched"
	"github.com/latticeos/stride/pkg/kernel/stride"
)

// stackSize is the size handed to every simulated thread's StackRegion.
// schedctl never actually branches into these stacks (there is no real
// architecture epilogue in user space), so the exact size only has to
// satisfy StackRegion.InitializeStack's minimum-frame check.
const stackSize = 4096

// bootManager constructs a Manager bound to the stride policy with
// cfg.NumCPUs simulated CPUs, matching the boot sequence spec.md §4.E
// describes, then immediately Enables it: schedctl has no equivalent of
// "early init queuing initial threads before switching begins", so there is
// no reason to stay paused.
func bootManager(cfg *config.Config) *manager.Manager {
	mgr := manager.New(stride.New(), manager.Config{
		NumCPUs:            cfg.NumCPUs,
		Quantum:            cfg.Quantum,
		BalancePeriodTicks: cfg.BalancePeriodTicks,
		Logger:             klog.Manager{},
	}, nil)
	mgr.Enable()
	return mgr
}

// seedThreads creates n threads with the given ticket counts (cycled if
// shorter than n), round-robins them across mgr's CPUs, and admits each via
// CreateThread so the first pick on every CPU has something to run.
func seedThreads(mgr *manager.Manager, n int, tickets []uint64) []*sched.Thread {
	if len(tickets) == 0 {
		tickets = []uint64{sched.DefaultTickets}
	}
	threads := make([]*sched.Thread, 0, n)
	base := uintptr(0x1000)
	for i := 0; i < n; i++ {
		cpu := sched.CPUID(i % mgr.NumCPUs())
		stack := sched.StackRegion{Base: base, Size: stackSize}
		base += stackSize
		stack.InitializeStack(0, 0, 0)

		t := mgr.NewThread(cpu, stack)
		t.Stride.Tickets = tickets[i%len(tickets)]
		mgr.CreateThread(cpu, t)
		threads = append(threads, t)
	}
	return threads
}

func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
