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
	"testing"
	"time"

	"github.com/latticeos/stride/pkg/kernel/sched"
	"github.com/latticeos/stride/pkg/kernel/stride"
)

func newTestManager(t *testing.T, numCPUs int) *Manager {
	t.Helper()
	return New(stride.New(), Config{NumCPUs: numCPUs}, nil)
}

func newTestStack(id int) sched.StackRegion {
	return sched.StackRegion{Base: uintptr(0x10000 * (id + 1)), Size: 4096}
}

func TestInstallGetSingleton(t *testing.T) {
	t.Cleanup(resetInstalledForTest)
	resetInstalledForTest()

	m := newTestManager(t, 1)
	Install(m)
	if Get() != m {
		t.Fatalf("Get() did not return the installed Manager")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("Install() of a second Manager did not panic")
		}
	}()
	Install(newTestManager(t, 1))
}

func TestGetPanicsWithoutInstall(t *testing.T) {
	t.Cleanup(resetInstalledForTest)
	resetInstalledForTest()

	defer func() {
		if recover() == nil {
			t.Fatalf("Get() without Install() did not panic")
		}
	}()
	Get()
}

func TestCreateThreadAdmitsToRunQueue(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	m.CreateThread(0, th)

	if th.State() != sched.Ready {
		t.Fatalf("state after CreateThread = %v, want Ready", th.State())
	}
	c := m.GetCPUState(0)
	if !c.Stride.RunQueue.Contains(th) {
		t.Fatalf("thread not present in run queue after CreateThread")
	}
}

func TestBlockReadyRoundTrip(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	m.CreateThread(0, th)

	c := m.GetCPUState(0)
	// PickNext simulates the thread having been dispatched: Running threads
	// are not present in the run queue (invariant 1, spec.md §8).
	picked := m.policy.PickNext(c)
	if picked != th {
		t.Fatalf("PickNext() = %v, want the just-created thread", picked)
	}
	th.SetState(sched.Running)
	c.CurrentThread = th

	m.BlockThread(0, th)
	if th.State() != sched.Blocked {
		t.Fatalf("state after BlockThread = %v, want Blocked", th.State())
	}
	if c.Stride.RunQueue.Contains(th) {
		t.Fatalf("blocked thread still present in run queue")
	}
	if c.CurrentThread != nil {
		t.Fatalf("CurrentThread not cleared after BlockThread")
	}

	m.ReadyThread(0, th)
	if th.State() != sched.Ready {
		t.Fatalf("state after ReadyThread = %v, want Ready", th.State())
	}
	if !c.Stride.RunQueue.Contains(th) {
		t.Fatalf("thread not re-admitted to run queue after ReadyThread")
	}
}

func TestExitThreadRemovesFromRunQueue(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	m.CreateThread(0, th)

	m.ExitThread(0, th)
	if th.State() != sched.Exited {
		t.Fatalf("state after ExitThread = %v, want Exited", th.State())
	}
	c := m.GetCPUState(0)
	if c.Stride.RunQueue.Contains(th) {
		t.Fatalf("exited thread still present in run queue")
	}
}

func TestSetPriorityRejectsZero(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	m.CreateThread(0, th)

	defer func() {
		if recover() == nil {
			t.Fatalf("SetPriority(0) did not panic")
		}
	}()
	m.SetPriority(0, th, 0)
}

func TestSetPriorityUpdatesPolicy(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	m.CreateThread(0, th)

	m.SetPriority(0, th, 50)
	if got := m.policy.GetPriority(th); got != 50 {
		t.Fatalf("GetPriority() = %d, want 50", got)
	}
}

// TestOnTimerInterruptPicksFromOwnQueueWhenIdle exercises the boot case: a
// CPU with Ready threads of its own but no CurrentThread must pick one of
// them on the very first tick, not merely attempt to steal from a sibling.
func TestOnTimerInterruptPicksFromOwnQueueWhenIdle(t *testing.T) {
	m := newTestManager(t, 1)
	m.Enable()

	th := m.NewThread(0, newTestStack(0))
	th.Stack().InitializeStack(0, 0, 0)
	m.CreateThread(0, th)

	c := m.GetCPUState(0)
	if c.CurrentThread != nil {
		t.Fatalf("CurrentThread should start nil")
	}

	m.OnTimerInterrupt(0, 0, time.Microsecond)

	if c.CurrentThread != th {
		t.Fatalf("CurrentThread after first tick = %v, want the queued thread", c.CurrentThread)
	}
	if th.State() != sched.Running {
		t.Fatalf("state after being picked = %v, want Running", th.State())
	}
	sp, isNew := c.Switch.(interface {
		Consume() (uint64, bool)
	}).Consume()
	if !isNew {
		t.Fatalf("Switch contract isNew = false, want true for a never-resumed thread")
	}
	if sp != uint64(th.Stack().SP()) {
		t.Fatalf("published SP = %#x, want %#x", sp, th.Stack().SP())
	}
}

// TestOnTimerInterruptPreemptsAtQuantumExpiry drives two equal-ticket
// threads through a full quantum and checks that the second tick switches
// to the other thread once its quantum is spent.
func TestOnTimerInterruptPreemptsAtQuantumExpiry(t *testing.T) {
	m := newTestManager(t, 1)
	m.Enable()

	a := m.NewThread(0, newTestStack(0))
	a.Stack().InitializeStack(0, 0, 0)
	b := m.NewThread(0, newTestStack(1))
	b.Stack().InitializeStack(0, 0, 0)
	m.CreateThread(0, a)
	m.CreateThread(0, b)

	c := m.GetCPUState(0)

	// First tick: nothing running yet, picks the FIFO-first thread (a).
	m.OnTimerInterrupt(0, 0, 0)
	if c.CurrentThread != a {
		t.Fatalf("CurrentThread after first tick = %v, want A", c.CurrentThread)
	}

	// Second tick: a full quantum elapses while A is running, so A must be
	// preempted and B picked up in its place.
	m.OnTimerInterrupt(0, uint64(a.Stack().SP()), time.Duration(sched.DefaultQuantumNS))
	if c.CurrentThread != b {
		t.Fatalf("CurrentThread after quantum expiry = %v, want B", c.CurrentThread)
	}
	if a.State() != sched.Ready {
		t.Fatalf("A's state after preemption = %v, want Ready", a.State())
	}
	if !c.Stride.RunQueue.Contains(a) {
		t.Fatalf("preempted thread A not re-admitted to the run queue")
	}
}

// TestOnTimerInterruptNoopWhileDisabled ensures a manager that hasn't been
// Enabled never initiates a switch, even with Ready work queued.
func TestOnTimerInterruptNoopWhileDisabled(t *testing.T) {
	m := newTestManager(t, 1)
	th := m.NewThread(0, newTestStack(0))
	th.Stack().InitializeStack(0, 0, 0)
	m.CreateThread(0, th)

	m.OnTimerInterrupt(0, 0, time.Duration(sched.DefaultQuantumNS))

	c := m.GetCPUState(0)
	if c.CurrentThread != nil {
		t.Fatalf("CurrentThread = %v, want nil: manager is not Enabled", c.CurrentThread)
	}
}

func TestGetCPUStateInvalidIDPanics(t *testing.T) {
	m := newTestManager(t, 1)
	defer func() {
		if recover() == nil {
			t.Fatalf("GetCPUState(invalid) did not panic")
		}
	}()
	m.GetCPUState(5)
}
