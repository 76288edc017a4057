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

package manager

import (
	"time"

	"github.com/latticeos/stride/pkg/kernel/sched"
)

// OnTimerInterrupt is the hot path (spec.md §4.E): invoked only from the
// architecture's timer ISR, with interrupts already disabled. Its own
// accounting, yield, pick, and publish steps touch only cpu's PerCpuState
// and never retry. The one exception is a pull-steal attempt through
// Balance (from tickIdle, and every BalancePeriodTicks switches from
// maybeBalance), which scans sibling CPUs and takes a sibling's lock with a
// bounded retry, giving up silently on contention.
//
// savedSP is the interrupted thread's stack pointer as captured by the
// epilogue that is about to resume; elapsed is how long the outgoing thread
// has run since the last tick.
func (m *Manager) OnTimerInterrupt(cpu sched.CPUID, savedSP uint64, elapsed time.Duration) {
	c := m.GetCPUState(cpu)

	current := c.CurrentThread
	if current == nil {
		m.tickIdle(c)
		return
	}

	preempt := m.policy.OnTick(c, current, elapsed)
	if !preempt {
		return
	}
	if !m.enabled.Load() {
		return
	}

	current.Stack().SetSP(uintptr(savedSP))

	if current.State() == sched.Running {
		current.SetState(sched.Ready)
		m.policy.OnYield(c, current)
	}
	c.CurrentThread = nil

	next := m.policy.PickNext(c)
	if next == nil {
		m.tickIdle(c)
		return
	}

	next.SetState(sched.Running)
	c.CurrentThread = next
	c.Switch.Publish(uint64(next.Stack().SP()), next.Stack().IsNew())
	next.Stack().ClearNew()

	m.maybeBalance(c)
}

// tickIdle handles a timer interrupt landing on a CPU with nothing running:
// it first tries its own run queue (covers both the initial-boot case and a
// CPU that went idle between ticks with Ready work still queued), then falls
// back to a pull-steal from a busier sibling, and otherwise leaves the
// architecture's idle stack in place, per spec.md §4.E step 5 ("publish a
// per-CPU idle stack that simply halts with interrupts enabled").
func (m *Manager) tickIdle(c *sched.PerCpuState) {
	if !m.enabled.Load() {
		return
	}
	next := m.policy.PickNext(c)
	if next == nil {
		if !m.policy.Balance(c, m.cpus) {
			return
		}
		next = m.policy.PickNext(c)
		if next == nil {
			return
		}
	}
	next.SetState(sched.Running)
	c.CurrentThread = next
	c.Switch.Publish(uint64(next.Stack().SP()), next.Stack().IsNew())
	next.Stack().ClearNew()
}

// maybeBalance counts the context-switching ticks on c's CPU and, on every
// balancePeriodTicks-th one, lets c attempt a pull-steal into its own run
// queue through Balance (which only pulls when that queue is empty). A
// balancePeriodTicks of zero disables it.
func (m *Manager) maybeBalance(c *sched.PerCpuState) {
	if m.balancePeriodTicks == 0 {
		return
	}
	n := m.tickCounters[c.ID()].Add(1)
	if n%m.balancePeriodTicks != 0 {
		return
	}
	m.policy.Balance(c, m.cpus)
}
