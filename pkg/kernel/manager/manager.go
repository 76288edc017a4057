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

// Package manager implements the scheduler manager: the lifecycle façade
// and timer-tick entry point described in spec.md §4.E. It is the only
// package application code outside pkg/kernel is expected to call.
package manager

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/latticeos/stride/pkg/kernel/archswitch"
	"github.com/latticeos/stride/pkg/kernel/policy"
	"github.com/latticeos/stride/pkg/kernel/sched"
	ksync "github.com/latticeos/stride/pkg/kernel/sync"
)

// Logger is the minimal leveled-logging shape the manager accepts. It is
// satisfied by internal/klog, but pkg/kernel never imports that package
// directly, keeping the core decoupled from any concrete logging library
// (spec.md §6: the core owns no ambient concerns).
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...any)    {}
func (noopLogger) Warningf(string, ...any) {}

// Config bundles the manager's construction-time parameters.
type Config struct {
	// NumCPUs is the number of logical CPUs to create PerCpuState for.
	NumCPUs int
	// Quantum is the nominal time slice (spec.md's DEFAULT_QUANTUM_NS),
	// used only to size simulated ticks; the policy itself reads
	// sched.DefaultQuantumNS for virtual-time accounting.
	Quantum time.Duration
	// BalancePeriodTicks is how many context-switching timer ticks elapse
	// on a CPU between that CPU's periodic pull-steal attempts; zero
	// disables them. Independently of it, a CPU with nothing running and an
	// empty run queue attempts a pull-steal on every tick.
	BalancePeriodTicks uint64
	// IRQ is the HAL's interrupt-disable capability. If nil, a
	// NoopIRQController is used (appropriate for NumCPUs == 1).
	IRQ ksync.IRQController
	// Logger receives diagnostic messages. If nil, logging is discarded.
	Logger Logger
}

// Manager is the scheduler core's lifecycle façade (spec.md §4.E). It owns
// the thread id counter and the per-CPU states array, and binds exactly one
// policy.Scheduler instance for its lifetime.
//
// Manager is meant to be a process-wide singleton (spec.md §9: "Global
// mutable state... Forbid multiple instances."); Install/Get implement that
// for the one production boot path. Tests construct a *Manager directly
// with New and never touch Install/Get, so they don't contend over a
// shared global.
type Manager struct {
	policy policy.Scheduler
	cpus   []*sched.PerCpuState
	ids    idAllocator
	irq    ksync.IRQController
	log    Logger

	quantum            time.Duration
	balancePeriodTicks uint64
	tickCounters       []atomic.Uint64

	// enabled gates whether OnTimerInterrupt may initiate a context
	// switch. Until set, thread APIs may be called from early init but
	// must not switch contexts (spec.md §4.E).
	enabled atomic.Bool
}

// New constructs a Manager bound to sp for cfg.NumCPUs logical CPUs, each
// with its own architecture context-switch contract.
func New(sp policy.Scheduler, cfg Config, newSwitcher func(sched.CPUID) sched.ContextSwitcher) *Manager {
	if cfg.NumCPUs <= 0 {
		panic("manager: NumCPUs must be positive")
	}
	irq := cfg.IRQ
	if irq == nil {
		irq = ksync.NoopIRQController{}
	}
	log := cfg.Logger
	if log == nil {
		log = noopLogger{}
	}
	if newSwitcher == nil {
		newSwitcher = func(sched.CPUID) sched.ContextSwitcher { return archswitch.New() }
	}

	m := &Manager{
		policy:             sp,
		irq:                irq,
		log:                log,
		quantum:            cfg.Quantum,
		balancePeriodTicks: cfg.BalancePeriodTicks,
		cpus:               make([]*sched.PerCpuState, cfg.NumCPUs),
		tickCounters:       make([]atomic.Uint64, cfg.NumCPUs),
	}
	for i := range m.cpus {
		cpu := sched.NewPerCpuState(sched.CPUID(i), newSwitcher(sched.CPUID(i)))
		sp.InitializeCPU(cpu.ID(), cpu)
		m.cpus[i] = cpu
	}
	return m
}

// Enable allows OnTimerInterrupt to begin initiating context switches. Boot
// code calls this once initial threads have been queued safely.
func (m *Manager) Enable() { m.enabled.Store(true) }

// Pause disables switching, freezing the scheduler in place. Adapted from
// pkg/sentry/control/lifecycle.go's Pause/Resume, repurposed here to gate
// the hot path rather than a container's task set.
func (m *Manager) Pause() { m.enabled.Store(false) }

// Resume re-enables switching after a Pause.
func (m *Manager) Resume() { m.enabled.Store(true) }

// Enabled reports whether the manager will currently act on timer
// interrupts.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// NumCPUs returns the number of logical CPUs the manager was constructed
// with.
func (m *Manager) NumCPUs() int { return len(m.cpus) }

// GetCPUState implements spec.md §6's get_cpu_state.
func (m *Manager) GetCPUState(cpu sched.CPUID) *sched.PerCpuState {
	if int(cpu) < 0 || int(cpu) >= len(m.cpus) {
		panic(fmt.Sprintf("manager: invalid cpu id %d", cpu))
	}
	return m.cpus[cpu]
}

var installed atomic.Pointer[Manager]

// Install publishes m as the process-wide singleton. It panics if a
// manager is already installed, per spec.md §9's "forbid multiple
// instances."
func Install(m *Manager) {
	if !installed.CompareAndSwap(nil, m) {
		panic("manager: a Manager is already installed")
	}
}

// Get returns the installed singleton, panicking if none has been
// installed yet.
func Get() *Manager {
	m := installed.Load()
	if m == nil {
		panic("manager: no Manager installed")
	}
	return m
}

// resetInstalledForTest clears the singleton. It is unexported and used
// only by this package's own tests, which must each install a fresh
// Manager without leaking state across test cases.
func resetInstalledForTest() {
	installed.Store(nil)
}
