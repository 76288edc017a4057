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
	ksync "github.com/latticeos/stride/pkg/kernel/sync"
)

// NewThread allocates a thread descriptor with the manager's own id
// counter and the given stack, but does not admit it to any run queue.
// Callers typically follow this with CreateThread.
func (m *Manager) NewThread(cpu sched.CPUID, stack sched.StackRegion) *sched.Thread {
	return sched.NewThread(m.ids.alloc(), cpu, stack)
}

// CreateThread implements spec.md §6's create_thread: transitions t to
// Ready and admits it to cpu's run queue via the policy's OnCreate.
func (m *Manager) CreateThread(cpu sched.CPUID, t *sched.Thread) {
	c := m.GetCPUState(cpu)
	ksyncWithOwnCPU(m, c, func() {
		t.SetState(sched.Ready)
		m.policy.OnCreate(c, t, now())
	})
	m.log.Infof("manager: created thread %d on cpu %d", t.ID(), cpu)
}

// ReadyThread implements spec.md §6's ready_thread: transitions t to Ready
// (typically from Blocked) and re-admits it via the policy's OnReady.
func (m *Manager) ReadyThread(cpu sched.CPUID, t *sched.Thread) {
	c := m.GetCPUState(cpu)
	ksyncWithOwnCPU(m, c, func() {
		wasBlocked := t.State() == sched.Blocked
		t.SetState(sched.Ready)
		m.policy.OnReady(c, t, now(), wasBlocked)
	})
}

// BlockThread implements spec.md §6's block_thread.
func (m *Manager) BlockThread(cpu sched.CPUID, t *sched.Thread) {
	c := m.GetCPUState(cpu)
	ksyncWithOwnCPU(m, c, func() {
		t.SetState(sched.Blocked)
		m.policy.OnBlocked(c, t, now())
		if c.CurrentThread == t {
			c.CurrentThread = nil
		}
	})
}

// ExitThread implements spec.md §6's exit_thread.
func (m *Manager) ExitThread(cpu sched.CPUID, t *sched.Thread) {
	c := m.GetCPUState(cpu)
	ksyncWithOwnCPU(m, c, func() {
		t.SetState(sched.Exited)
		m.policy.OnExit(c, t)
		if c.CurrentThread == t {
			c.CurrentThread = nil
		}
	})
}

// SetPriority implements spec.md §6's set_priority(cpu, thread, p). priority
// must be >= 1; the policy clamps further saturation itself.
func (m *Manager) SetPriority(cpu sched.CPUID, t *sched.Thread, priority uint64) {
	if priority < 1 {
		panic("manager: priority must be >= 1")
	}
	c := m.GetCPUState(cpu)
	ksyncWithOwnCPU(m, c, func() {
		m.policy.SetPriority(c, t, priority)
	})
}

// ksyncWithOwnCPU runs f with interrupts disabled, matching spec.md §5: "A
// CPU mutating its own state may rely on IRQ-disable." Every Manager entry
// point above is assumed to run on behalf of cpu's own logical CPU (a
// thread-creation or syscall-return path), never as a cross-CPU call —
// cross-CPU mutation (migration, pull-steal) goes through cpu.Lock instead,
// in balance.go.
func ksyncWithOwnCPU(m *Manager, c *sched.PerCpuState, f func()) {
	_ = c
	ksync.WithIRQDisabled(m.irq, f)
}

func now() time.Duration { return time.Duration(time.Now().UnixNano()) }
