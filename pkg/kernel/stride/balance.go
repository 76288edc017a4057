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

package stride

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/latticeos/stride/pkg/kernel/sched"
)

// errLockContended is returned internally by tryLockBoth's backoff
// operation while the target CPU's lock is still held by someone else; it
// never escapes Balance, which gives up silently on exhaustion (spec.md §7
// "Cross-CPU race failure").
var errLockContended = errors.New("stride: lock contended")

// lockBothRetryBudget bounds how long Balance will retry a contended
// cross-CPU lock before giving up. It is deliberately small: balancing is a
// best-effort activity whose failure is silent, and the manager invokes it
// from its timer-interrupt path.
const lockBothRetryBudget = 2 * time.Millisecond

// tryLockBoth acquires the locks of a and b in ascending CPUID order
// (spec.md §5's deadlock-avoidance rule), using a bounded constant-backoff
// retry for the second lock so a transient contention doesn't make the
// balancer give up immediately. It reports whether both locks were
// acquired; on failure, any lock it did take has already been released.
//
// Grounded on runsc/container/container.go's
// backoff.WithContext(backoff.NewConstantBackOff(...)) / backoff.Retry
// idiom, reused here for exactly the purpose spec.md §7 calls out: "a
// try-acquire loop with bounded retries is acceptable for balance
// operations (silent give-up)".
func tryLockBoth(a, b *sched.PerCpuState) bool {
	first, second := a, b
	if second.ID() < first.ID() {
		first, second = second, first
	}

	first.Lock.Acquire()

	b2 := backoff.NewConstantBackOff(100 * time.Microsecond)
	deadline := time.Now().Add(lockBothRetryBudget)
	op := func() error {
		if time.Now().After(deadline) {
			return backoff.Permanent(errLockContended)
		}
		if second.Lock.TryAcquire() {
			return nil
		}
		return errLockContended
	}
	if err := backoff.Retry(op, b2); err != nil {
		first.Lock.Release()
		return false
	}
	return true
}

func unlockBoth(a, b *sched.PerCpuState) {
	a.Lock.Release()
	b.Lock.Release()
}

// SelectCPU implements policy.Scheduler (spec.md §4.D "CPU selection"): a
// pinned thread stays put; otherwise prefer a CPU running under 80% of the
// current CPU's ticket load.
func (Policy) SelectCPU(t *sched.Thread, current sched.CPUID, cpus []*sched.PerCpuState) sched.CPUID {
	if t.Pinned() {
		return current
	}
	var currentLoad uint64
	for _, c := range cpus {
		if c.ID() == current {
			currentLoad = c.Stride.TotalTickets
			break
		}
	}
	threshold := currentLoad * 8 / 10
	for _, c := range cpus {
		if c.ID() == current {
			continue
		}
		if c.Stride.TotalTickets < threshold {
			return c.ID()
		}
	}
	return current
}

// OnMigrate implements policy.Scheduler (spec.md §4.D "Migration"): reseat
// t's Pass relative to the destination CPU's GlobalPass, preserving Remain.
// Callers must already hold both from.Lock and to.Lock.
func (Policy) OnMigrate(t *sched.Thread, from, to *sched.PerCpuState) {
	t.Stride.Pass = int64(to.Stride.GlobalPass) + t.Stride.Remain
	t.SetCPU(to.ID())
}

// Balance implements policy.Scheduler (spec.md §4.D "Balance (pull
// model)"): when cpu's run queue is empty, find the busiest other CPU with
// at least two Ready threads and steal its tail (highest-Pass, i.e.
// least-urgent) thread, provided it is not pinned.
func (Policy) Balance(cpu *sched.PerCpuState, cpus []*sched.PerCpuState) bool {
	if cpu.Stride.RunQueue.Len() != 0 {
		return false
	}

	var busiest *sched.PerCpuState
	for _, c := range cpus {
		if c.ID() == cpu.ID() {
			continue
		}
		if c.Stride.RunQueue.Len() < 2 {
			continue
		}
		if busiest == nil || c.Stride.RunQueue.Len() > busiest.Stride.RunQueue.Len() {
			busiest = c
		}
	}
	if busiest == nil {
		return false
	}

	if !tryLockBoth(cpu, busiest) {
		return false
	}
	defer unlockBoth(cpu, busiest)

	// Re-check under lock: state may have changed since the unlocked scan
	// above picked busiest as a candidate.
	if cpu.Stride.RunQueue.Len() != 0 || busiest.Stride.RunQueue.Len() < 2 {
		return false
	}

	victim := busiest.Stride.RunQueue.Tail()
	if victim == nil || victim.Pinned() {
		return false
	}
	busiest.Stride.RunQueue.RemoveTail()
	busiest.Stride.TotalTickets -= sched.ClampTickets(victim.Stride.Tickets)

	Policy{}.OnMigrate(victim, busiest, cpu)

	cpu.Stride.RunQueue.Insert(victim, victim.Stride.Pass)
	cpu.Stride.TotalTickets += sched.ClampTickets(victim.Stride.Tickets)
	return true
}
