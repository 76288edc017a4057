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

//go:build amd64

package archswitch

// X64 is the per-CPU contract cell pair consumed by the x86-64 architecture
// epilogue via the two external symbols named in spec.md §6:
// _native_x64_set_context_switch_rsp and
// _native_x64_set_context_switch_new_thread. Those symbols are defined in
// the (out-of-scope) assembly epilogue; SetX64ContextSwitchRSP and
// SetX64ContextSwitchNewThread are the Go-side half of that boundary, meant
// to be called with SuppressGCTransition-equivalent semantics (no runtime
// hooks) so they are safe from IRQ context.
type X64 struct {
	Contract
}

// NewX64 constructs an x86-64 context-switch contract.
func NewX64() *X64 { return &X64{} }

// New constructs the context-switch contract for the host's GOARCH. On
// amd64 builds this is always an *X64.
func New() *X64 { return NewX64() }

// Publish implements sched.ContextSwitcher, and is the Go-level stand-in
// for the architecture epilogue calling both
// _native_x64_set_context_switch_rsp(rsp) and
// _native_x64_set_context_switch_new_thread(isNew).
func (x *X64) Publish(targetSP uint64, isNew bool) {
	x.Contract.Publish(targetSP, isNew)
}

// SetX64ContextSwitchRSP is the Go side of
// _native_x64_set_context_switch_rsp: it publishes the saved RSP the
// epilogue should iretq to.
func (x *X64) SetX64ContextSwitchRSP(rsp uint64) {
	x.targetSP.Store(rsp)
}

// SetX64ContextSwitchNewThread is the Go side of
// _native_x64_set_context_switch_new_thread: 1 if the target thread has
// never run (Created), 0 otherwise.
func (x *X64) SetX64ContextSwitchNewThread(isNew int32) {
	x.isNew.Store(isNew)
}
