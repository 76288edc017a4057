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

// Package policy declares the scheduler capability set spec.md §9 asks to
// be expressed "against a Scheduler capability set" rather than through
// inheritance. The manager (Component E) is built against this interface;
// it is bound to exactly one implementation for the life of the boot.
// pkg/kernel/stride is the only implementation this repository ships,
// matching spec.md's own scope.
package policy

import (
	"time"

	"github.com/latticeos/stride/pkg/kernel/sched"
)

// Scheduler is the full set of operations a scheduling policy must
// implement to back the manager.
type Scheduler interface {
	// InitializeCPU prepares a freshly constructed PerCpuState for use by
	// this policy, e.g. allocating its run queue.
	InitializeCPU(cpu sched.CPUID, data *sched.PerCpuState)

	// OnCreate is called once, when a Thread first transitions out of
	// Created into Ready.
	OnCreate(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration)

	// OnReady enqueues t, which may be transitioning from Created or
	// waking from Blocked. wasBlocked tells the policy which: the
	// manager has already performed the state transition by the time it
	// calls this hook, so the prior state can't be read back off t.
	OnReady(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration, wasBlocked bool)

	// OnBlocked removes t from the run queue and records what is needed
	// to resume it fairly later.
	OnBlocked(cpu *sched.PerCpuState, t *sched.Thread, now time.Duration)

	// OnExit removes t from the run queue (if present) and releases its
	// policy extension data.
	OnExit(cpu *sched.PerCpuState, t *sched.Thread)

	// OnYield re-inserts a thread that was Running and is being returned
	// to Ready, e.g. because its quantum expired.
	OnYield(cpu *sched.PerCpuState, t *sched.Thread)

	// PickNext removes and returns the thread that should run next on
	// cpu, or nil if the run queue is empty.
	PickNext(cpu *sched.PerCpuState) *sched.Thread

	// OnTick accounts elapsed time against the currently running thread
	// and reports whether the manager should preempt it.
	OnTick(cpu *sched.PerCpuState, current *sched.Thread, elapsed time.Duration) bool

	// SelectCPU chooses the CPU a Ready thread should be admitted to.
	SelectCPU(t *sched.Thread, current sched.CPUID, cpus []*sched.PerCpuState) sched.CPUID

	// OnMigrate moves t's policy bookkeeping from one CPU to another. The
	// caller (Balance, or an explicit migration request) is responsible
	// for the actual run-queue removal/insertion and lock ordering.
	OnMigrate(t *sched.Thread, from, to *sched.PerCpuState)

	// Balance lets an idle CPU attempt to pull work from a busier one. It
	// returns whether a thread was migrated.
	Balance(cpu *sched.PerCpuState, cpus []*sched.PerCpuState) bool

	// SetPriority re-ranks t given a new priority (ticket count),
	// reinserting it if it is Ready.
	SetPriority(cpu *sched.PerCpuState, t *sched.Thread, priority uint64)

	// GetPriority returns t's current priority (ticket count).
	GetPriority(t *sched.Thread) uint64
}
