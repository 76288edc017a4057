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

import "testing"

func newTestThread() *Thread {
	return NewThread(1, 0, StackRegion{Base: 0x1000, Size: 4096})
}

func TestThreadLegalTransitions(t *testing.T) {
	for _, tc := range []struct {
		name string
		path []State
	}{
		{"create-ready-run-exit", []State{Ready, Running, Exited}},
		{"create-ready-run-block-ready-run-exit", []State{Ready, Running, Blocked, Ready, Running, Exited}},
		{"create-ready-run-yield-ready-run-exit", []State{Ready, Running, Ready, Running, Exited}},
		{"create-ready-exit", []State{Ready, Exited}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			th := newTestThread()
			for _, next := range tc.path {
				th.SetState(next)
				if th.State() != next {
					t.Fatalf("State() = %v, want %v", th.State(), next)
				}
			}
		})
	}
}

func TestThreadIllegalTransitionPanics(t *testing.T) {
	for _, tc := range []struct {
		name string
		from State
		to   State
	}{
		{"created-to-running", Created, Running},
		{"created-to-blocked", Created, Blocked},
		{"ready-to-blocked", Ready, Blocked},
		{"running-to-created", Running, Created},
		{"blocked-to-running", Blocked, Running},
		{"exited-to-ready", Exited, Ready},
	} {
		t.Run(tc.name, func(t *testing.T) {
			th := newTestThread()
			th.state = tc.from
			defer func() {
				if recover() == nil {
					t.Fatalf("SetState(%v) from %v did not panic", tc.to, tc.from)
				}
			}()
			th.SetState(tc.to)
		})
	}
}

func TestThreadRuntimeAccounting(t *testing.T) {
	th := newTestThread()
	if got := th.TotalRuntimeNS(); got != 0 {
		t.Fatalf("fresh thread TotalRuntimeNS() = %d, want 0", got)
	}
	th.AddRuntimeNS(100)
	th.AddRuntimeNS(250)
	if got := th.TotalRuntimeNS(); got != 350 {
		t.Fatalf("TotalRuntimeNS() = %d, want 350", got)
	}
}

func TestThreadPinnedFlag(t *testing.T) {
	th := newTestThread()
	if th.Pinned() {
		t.Fatalf("fresh thread is Pinned")
	}
	th.SetPinned(true)
	if !th.Pinned() {
		t.Fatalf("SetPinned(true) did not take effect")
	}
	th.SetPinned(false)
	if th.Pinned() {
		t.Fatalf("SetPinned(false) did not take effect")
	}
}

func TestThreadCPUAffinity(t *testing.T) {
	th := newTestThread()
	if th.CPU() != 0 {
		t.Fatalf("CPU() = %d, want 0", th.CPU())
	}
	th.SetCPU(3)
	if th.CPU() != 3 {
		t.Fatalf("CPU() = %d, want 3", th.CPU())
	}
}
