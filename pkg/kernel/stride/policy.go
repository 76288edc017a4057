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

// Package stride implements proportional-share stride scheduling
// (Waldspurger/Weihl '95) with sleep-aware interactive detection, a
// starvation cap, and pull-model SMP load balancing, per spec.md §4.D. It
// is the only policy.Scheduler implementation this repository ships.
package stride

import (
	"time"

	"github.com/latticeos/stride/pkg/kernel/policy"
	"github.com/latticeos/stride/pkg/kernel/sched"
)

// Policy implements policy.Scheduler. It carries no state of its own: all
// bookkeeping lives in the Thread/PerCpuState extension blocks the data
// model already defines, so a single Policy value can serve every CPU.
type Policy struct{}

var _ policy.Scheduler = Policy{}

// New constructs the stride policy.
func New() Policy { return Policy{} }

// InitializeCPU implements policy.Scheduler. RunQueue is constructed by
// sched.NewPerCpuState; there is nothing further for the policy to do.
func (Policy) InitializeCPU(sched.CPUID, *sched.PerCpuState) {}

// advanceGlobalPass implements spec.md §4.D's "GlobalPass update": advance
// by (Stride1/TotalTickets) * elapsed/quantum, then stamp LastPassUpdateNS.
// Suppressed when TotalTickets is zero.
func advanceGlobalPass(d *sched.StrideCpuData, now int64) {
	if d.TotalTickets == 0 {
		d.LastPassUpdateNS = now
		return
	}
	elapsed := now - d.LastPassUpdateNS
	if elapsed < 0 {
		elapsed = 0
	}
	globalStride := sched.Stride1 / d.TotalTickets
	d.GlobalPass += (globalStride * uint64(elapsed)) / uint64(sched.DefaultQuantumNS)
	d.LastPassUpdateNS = now
}

// OnCreate implements policy.Scheduler: a freshly Created thread is
// admitted at the CPU's current GlobalPass (spec.md §4.D "On first enqueue
// (Created)").
func (p Policy) OnCreate(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration) {
	nowNS := now.Nanoseconds()
	advanceGlobalPass(&cpu.Stride, nowNS)
	t.Stride.Pass = int64(cpu.Stride.GlobalPass)
	p.enqueue(cpu, t, nowNS)
}

// OnReady implements policy.Scheduler, covering both the Created path (tests
// and callers that skip straight to OnReady) and waking from Blocked.
func (p Policy) OnReady(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration, wasBlocked bool) {
	nowNS := now.Nanoseconds()
	advanceGlobalPass(&cpu.Stride, nowNS)

	if wasBlocked {
		p.computeWakePass(cpu, t, nowNS)
	} else {
		t.Stride.Pass = int64(cpu.Stride.GlobalPass)
	}
	p.enqueue(cpu, t, nowNS)
}

// computeWakePass implements spec.md §4.D's wake-from-Blocked rules:
// interactive detection by sleep-to-runtime ratio, priority boost, or the
// starvation-capped resumption of Remain.
func (Policy) computeWakePass(cpu *sched.PerCpuState, t *sched.Thread, nowNS int64) {
	sleepDuration := nowNS - t.Stride.LastWakeupNS
	if sleepDuration < 0 {
		sleepDuration = 0
	}
	if t.TotalRuntimeNS() > 0 && sleepDuration > t.TotalRuntimeNS()*sched.InteractiveSleepRatio {
		t.Stride.IsInteractive = true
	}

	globalPass := int64(cpu.Stride.GlobalPass)
	if t.Stride.IsInteractive {
		t.Stride.Pass = globalPass - int64(t.Stride.Stride)/2
		t.Stride.IsBoosted = true
		t.Stride.LastWakeupNS = nowNS
		return
	}

	candidate := globalPass + t.Stride.Remain
	floor := globalPass - sched.StarvationCap
	if candidate < floor {
		candidate = floor
	}
	t.Stride.Pass = candidate
	t.Stride.LastWakeupNS = nowNS
}

// enqueue inserts t into cpu's run queue and accounts its tickets, common
// to both the Created and wake-from-Blocked paths.
func (Policy) enqueue(cpu *sched.PerCpuState, t *sched.Thread, nowNS int64) {
	tickets := sched.ClampTickets(t.Stride.Tickets)
	t.Stride.Tickets = tickets
	t.Stride.Stride = sched.StrideFor(tickets)
	cpu.Stride.RunQueue.Insert(t, t.Stride.Pass)
	cpu.Stride.TotalTickets += tickets
}

// OnBlocked implements policy.Scheduler (spec.md §4.D "Blocking").
func (Policy) OnBlocked(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration) {
	nowNS := now.Nanoseconds()
	advanceGlobalPass(&cpu.Stride, nowNS)
	t.Stride.Remain = t.Stride.Pass - int64(cpu.Stride.GlobalPass)
	t.Stride.SleepCount++
	if cpu.Stride.RunQueue.Remove(t) {
		cpu.Stride.TotalTickets -= sched.ClampTickets(t.Stride.Tickets)
	}
}

// OnExit implements policy.Scheduler (spec.md §4.D "Exit").
func (Policy) OnExit(cpu *sched.PerCpuState, t *sched.Thread) {
	if cpu.Stride.RunQueue.Remove(t) {
		cpu.Stride.TotalTickets -= sched.ClampTickets(t.Stride.Tickets)
	}
	t.Stride = sched.StrideThreadData{}
}

// OnYield re-inserts t (which was Running) back into the run queue at its
// current Pass, without recomputing a wake boost.
func (p Policy) OnYield(cpu *sched.PerCpuState, t *sched.Thread) {
	p.enqueue(cpu, t, cpu.Stride.LastPassUpdateNS)
}

// PickNext implements policy.Scheduler (spec.md §4.D "Picking next"). The
// picked thread stops counting toward TotalTickets the moment it leaves the
// run queue: invariant 1 (spec.md §8) is scoped to Ready threads, and a
// picked thread is about to become Running.
func (Policy) PickNext(cpu *sched.PerCpuState) *sched.Thread {
	t := cpu.Stride.RunQueue.PopFront()
	if t != nil {
		cpu.Stride.TotalTickets -= sched.ClampTickets(t.Stride.Tickets)
	}
	return t
}

// OnTick implements policy.Scheduler (spec.md §4.D "Tick accounting").
func (Policy) OnTick(cpu *sched.PerCpuState, current *sched.Thread, elapsed time.Duration) bool {
	nowNS := cpu.Stride.LastPassUpdateNS + elapsed.Nanoseconds()
	advanceGlobalPass(&cpu.Stride, nowNS)

	elapsedNS := elapsed.Nanoseconds()
	current.AddRuntimeNS(elapsedNS)
	current.Stride.Pass += int64(current.Stride.Stride) * elapsedNS / sched.DefaultQuantumNS

	if current.Stride.IsBoosted && nowNS-current.Stride.LastWakeupNS > sched.WakeupBoostDecayNS {
		current.Stride.IsBoosted = false
	}

	if front := cpu.Stride.RunQueue.Front(); front != nil && front.Stride.Pass < current.Stride.Pass {
		return true
	}
	return elapsedNS >= sched.DefaultQuantumNS
}

// SetPriority implements policy.Scheduler (spec.md §4.D "Dynamic priority
// change"). priority is clamped like any other ticket count.
func (Policy) SetPriority(cpu *sched.PerCpuState, t *sched.Thread, priority uint64) {
	newTickets := sched.ClampTickets(priority)
	oldStride := t.Stride.Stride
	if oldStride == 0 {
		oldStride = sched.StrideFor(t.Stride.Tickets)
	}
	newStride := sched.StrideFor(newTickets)

	wasReady := cpu.Stride.RunQueue.Remove(t)
	if wasReady {
		cpu.Stride.TotalTickets -= sched.ClampTickets(t.Stride.Tickets)
	}

	remain := t.Stride.Pass - int64(cpu.Stride.GlobalPass)
	remain = remain * int64(newStride) / int64(oldStride)
	t.Stride.Tickets = newTickets
	t.Stride.Stride = newStride
	t.Stride.Pass = int64(cpu.Stride.GlobalPass) + remain

	if wasReady {
		cpu.Stride.RunQueue.Insert(t, t.Stride.Pass)
		cpu.Stride.TotalTickets += newTickets
	}
}

// GetPriority implements policy.Scheduler.
func (Policy) GetPriority(t *sched.Thread) uint64 {
	return t.Stride.Tickets
}
