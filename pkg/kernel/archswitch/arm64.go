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

//go:build arm64

package archswitch

// ARM64 is the per-CPU contract cell pair consumed by the ARM64
// architecture epilogue via the two external symbols named in spec.md §6:
// _native_arm64_set_context_switch_sp and
// _native_arm64_set_context_switch_new_thread.
type ARM64 struct {
	Contract
}

// NewARM64 constructs an ARM64 context-switch contract.
func NewARM64() *ARM64 { return &ARM64{} }

// New constructs the context-switch contract for the host's GOARCH. On
// arm64 builds this is always an *ARM64.
func New() *ARM64 { return NewARM64() }

// Publish implements sched.ContextSwitcher.
func (a *ARM64) Publish(targetSP uint64, isNew bool) {
	a.Contract.Publish(targetSP, isNew)
}

// SetARM64ContextSwitchSP is the Go side of
// _native_arm64_set_context_switch_sp.
func (a *ARM64) SetARM64ContextSwitchSP(sp uint64) {
	a.targetSP.Store(sp)
}

// SetARM64ContextSwitchNewThread is the Go side of
// _native_arm64_set_context_switch_new_thread.
func (a *ARM64) SetARM64ContextSwitchNewThread(isNew int32) {
	a.isNew.Store(isNew)
}
