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

package sched

import (
	ksync "github.com/latticeos/stride/pkg/kernel/sync"
)

// StrideCpuData is the per-CPU policy extension block (spec.md §3).
type StrideCpuData struct {
	TotalTickets     uint64
	GlobalPass       uint64
	LastPassUpdateNS int64
	RunQueue         *RunQueue
}

// PerCpuState is the per-logical-CPU structure holding the run queue and
// policy state (spec.md §3). It is owned by the manager; the policy reads
// and mutates it under the caller's lock discipline (spec.md §5): a CPU
// mutating its own state may rely on IRQ-disable, but any other CPU must
// hold Lock.
type PerCpuState struct {
	id CPUID

	// Lock serializes mutation of this PerCpuState by any CPU other than
	// the one it represents.
	Lock ksync.SpinLock

	CurrentThread *Thread

	Stride StrideCpuData

	// Switch is the context-switch contract this CPU's architecture
	// epilogue reads (Component C). It is nil until the CPU is
	// initialized by the manager.
	Switch ContextSwitcher
}

// ContextSwitcher is the Component C contract: two cells the architecture's
// interrupt-return path reads. It is satisfied by pkg/kernel/archswitch.
type ContextSwitcher interface {
	Publish(targetSP uint64, isNew bool)
}

// NewPerCpuState constructs the per-CPU state for id. The caller
// (Component E, at boot) supplies the architecture's context-switch
// contract.
func NewPerCpuState(id CPUID, sw ContextSwitcher) *PerCpuState {
	return &PerCpuState{
		id: id,
		Stride: StrideCpuData{
			RunQueue: NewRunQueue(),
		},
		Switch: sw,
	}
}

// ID returns this CPU's identity.
func (c *PerCpuState) ID() CPUID { return c.id }
