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

import "testing"

func TestARM64PublishMatchesDirectCellWrites(t *testing.T) {
	a := NewARM64()
	a.SetARM64ContextSwitchSP(0x7fff0000)
	a.SetARM64ContextSwitchNewThread(1)

	sp, isNew := a.Consume()
	if sp != 0x7fff0000 || !isNew {
		t.Fatalf("Consume() = (%#x, %v), want (0x7fff0000, true)", sp, isNew)
	}

	a.Publish(0x8000, false)
	sp, isNew = a.Consume()
	if sp != 0x8000 || isNew {
		t.Fatalf("Consume() after Publish = (%#x, %v), want (0x8000, false)", sp, isNew)
	}
}

func TestNewReturnsARM64OnARM64(t *testing.T) {
	if _, ok := any(New()).(*ARM64); !ok {
		t.Fatalf("New() did not return *ARM64 on an arm64 build")
	}
}
