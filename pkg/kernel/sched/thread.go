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

// Package sched defines the thread and per-CPU data model shared by the
// scheduler core. It owns no policy: everything here is the shape that a
// Scheduler implementation (see pkg/kernel/policy) operates on.
package sched

import (
	"fmt"
	"sync/atomic"
)

// ThreadID uniquely identifies a Thread for its lifetime. External code may
// hold one as a weak handle and query the manager; it must never reach into
// a Thread directly.
type ThreadID uint32

// CPUID identifies a logical CPU.
type CPUID int32

// State is a Thread's execution state. The legal transition table is
// enforced by SetState, not by callers.
type State int32

const (
	// Created is the state of a freshly allocated Thread, before it has
	// been made visible to the scheduler policy.
	Created State = iota
	// Ready means the thread is enqueued in a PerCpuState's run queue and
	// eligible to be picked.
	Ready
	// Running means the thread is the CurrentThread of the CPU named by
	// its affinity.
	Running
	// Blocked means the thread has been removed from every run queue and
	// is waiting on an external event.
	Blocked
	// Exited is terminal. A Thread in this state is never re-enqueued.
	Exited
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Exited:
		return "Exited"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// legalTransitions is the lifecycle table from spec.md §3: Created enqueues
// to Ready, Ready is picked into Running, Running blocks or exits (directly,
// or via a yield back to Ready), Blocked wakes back to Ready.
var legalTransitions = map[State]map[State]bool{
	Created: {Ready: true},
	Ready:   {Running: true, Exited: true},
	Running: {Ready: true, Blocked: true, Exited: true},
	Blocked: {Ready: true, Exited: true},
	Exited:  {},
}

// Flag is a bitmask of per-thread affinity hints.
type Flag uint32

const (
	// FlagPinned forbids the load balancer from migrating this thread.
	FlagPinned Flag = 1 << iota
	// FlagInteractiveHint is an external hint that this thread should be
	// treated as interactive even before it has slept long enough to earn
	// the boost itself.
	FlagInteractiveHint
)

// StrideThreadData is the policy extension block attached to every Thread.
// It belongs to the stride policy; the data model only carries it.
type StrideThreadData struct {
	Tickets       uint64
	Stride        uint64
	Pass          int64
	Remain        int64
	LastWakeupNS  int64
	SleepCount    uint32
	IsInteractive bool
	IsBoosted     bool
}

// Thread is one schedulable unit of execution. Thread is exclusively owned
// by the scheduler core for its lifetime (Created → Exited); no holder
// outside the core may mutate it. Callers that need to reach a Thread from
// outside the core must go through the manager with a ThreadID.
type Thread struct {
	id    ThreadID
	flags Flag

	// cpu is the CPUID this thread currently belongs to. It is read by the
	// owning CPU without synchronization and written only while holding
	// that CPU's lock (or with local interrupts disabled, if it is the
	// CPU's own state).
	cpu atomic.Int32

	state State

	stack StackRegion

	// totalRuntimeNS accumulates time spent Running, updated by the
	// manager's hot path.
	totalRuntimeNS int64

	// Policy extends Thread with whatever bookkeeping it needs. The core
	// never interprets this field.
	Stride StrideThreadData
}

// NewThread allocates a Thread descriptor for id, owning stack.
func NewThread(id ThreadID, cpu CPUID, stack StackRegion) *Thread {
	t := &Thread{
		id:    id,
		state: Created,
		stack: stack,
		Stride: StrideThreadData{
			Tickets: DefaultTickets,
			Stride:  Stride1 / DefaultTickets,
		},
	}
	t.cpu.Store(int32(cpu))
	return t
}

// ID returns the thread's stable identity.
func (t *Thread) ID() ThreadID { return t.id }

// CPU returns the CPU this thread currently belongs to.
func (t *Thread) CPU() CPUID { return CPUID(t.cpu.Load()) }

// SetCPU updates the thread's affinity. Callers must hold the locks of both
// the source and destination PerCpuState (or, for the thread's own CPU,
// have interrupts disabled) per spec.md §5.
func (t *Thread) SetCPU(cpu CPUID) { t.cpu.Store(int32(cpu)) }

// State returns the thread's current execution state.
func (t *Thread) State() State { return t.state }

// Pinned reports whether the load balancer must leave this thread alone.
func (t *Thread) Pinned() bool { return t.flags&FlagPinned != 0 }

// SetPinned sets or clears the Pinned affinity flag.
func (t *Thread) SetPinned(pinned bool) {
	if pinned {
		t.flags |= FlagPinned
	} else {
		t.flags &^= FlagPinned
	}
}

// TotalRuntimeNS returns the thread's accumulated on-CPU time.
func (t *Thread) TotalRuntimeNS() int64 { return t.totalRuntimeNS }

// AddRuntimeNS is called by the manager's hot path to account time spent
// Running.
func (t *Thread) AddRuntimeNS(ns int64) { t.totalRuntimeNS += ns }

// Stack returns the thread's owned stack region.
func (t *Thread) Stack() *StackRegion { return &t.stack }

// SetState performs the transition to next, panicking if the transition is
// not in the lifecycle table. This is a programming fault, detected in all
// builds (spec.md §4.A): there is no release-mode escape hatch.
//
// Grounded on pkg/sentry/control/lifecycle.go's updateContainerState, which
// panics on any transition not explicitly allowed.
func (t *Thread) SetState(next State) {
	if !legalTransitions[t.state][next] {
		panic(fmt.Sprintf("sched: illegal thread state transition: %v => %v (thread %d)", t.state, next, t.id))
	}
	t.state = next
}
