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

// Numeric contracts from spec.md §4.D. These live alongside the data model
// (rather than in the stride policy package) because StrideThreadData and
// StrideCpuData, which they size, are themselves part of the data model.
const (
	// Stride1 is the fixed-point numerator used to compute a thread's
	// stride from its ticket count: Stride = Stride1 / Tickets.
	Stride1 = 1 << 20

	// DefaultTickets is the ticket weight assigned to a thread unless
	// otherwise specified.
	DefaultTickets uint64 = 100

	// MinTickets is the clamp floor: Tickets < 1 is a programming
	// mistake the policy clamps rather than rejects (spec.md §4.D
	// "Failure modes").
	MinTickets uint64 = 1

	// MaxTickets is the clamp ceiling: Tickets > Stride1/2 saturates to
	// Stride1/2 (spec.md §12 / §7 "Saturation").
	MaxTickets uint64 = Stride1 / 2

	// StarvationCap bounds how far behind GlobalPass a waking thread's
	// Pass may be set, preventing unbounded lag.
	StarvationCap int64 = 2 * Stride1

	// InteractiveSleepRatio is the sleep-to-runtime ratio past which a
	// waking thread is classified interactive.
	InteractiveSleepRatio = 2

	// WakeupBoostDecayNS is how long an interactive boost survives before
	// the next tick clears it.
	WakeupBoostDecayNS int64 = 5_000_000 // 5ms

	// DefaultQuantumNS is the nominal time slice used as the denominator
	// for virtual-time accounting.
	DefaultQuantumNS int64 = 1_000_000 // 1ms
)

// ClampTickets enforces MinTickets/MaxTickets on a requested ticket count.
func ClampTickets(tickets uint64) uint64 {
	if tickets < MinTickets {
		return MinTickets
	}
	if tickets > MaxTickets {
		return MaxTickets
	}
	return tickets
}

// StrideFor returns the stride corresponding to tickets, after clamping.
func StrideFor(tickets uint64) uint64 {
	return Stride1 / ClampTickets(tickets)
}
