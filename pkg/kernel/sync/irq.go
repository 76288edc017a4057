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

package sync

// IRQController is the HAL capability the core needs to model "local
// interrupts disabled" (spec.md §4.B). Disabling and restoring interrupts
// is inherently architecture- and platform-specific, so it lives outside
// this repository (spec.md §1, "HAL... out of scope"); the core only
// defines the shape of the scope it requires.
type IRQController interface {
	// Disable masks local interrupt delivery and returns whether they
	// were previously enabled, so Restore can put things back exactly as
	// they were.
	Disable() (wasEnabled bool)
	// Restore unmasks local interrupts if wasEnabled is true.
	Restore(wasEnabled bool)
}

// NoopIRQController is an IRQController for builds with a single logical
// CPU, where there is nothing to contend with and therefore nothing to
// disable (spec.md §9: "the locks remain but never contend").
type NoopIRQController struct{}

// Disable implements IRQController.
func (NoopIRQController) Disable() bool { return true }

// Restore implements IRQController.
func (NoopIRQController) Restore(bool) {}

// WithIRQDisabled runs f with local interrupts disabled via c, guaranteeing
// the prior state is restored on every exit path including a panic inside
// f. Every scheduler entry that is not itself already running from IRQ
// context must wrap its PerCpuState access this way (spec.md §4.B).
func WithIRQDisabled(c IRQController, f func()) {
	prior := c.Disable()
	defer c.Restore(prior)
	f()
}
