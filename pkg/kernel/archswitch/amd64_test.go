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

import "testing"

func TestX64PublishMatchesDirectCellWrites(t *testing.T) {
	x := NewX64()
	x.SetX64ContextSwitchRSP(0x7fff0000)
	x.SetX64ContextSwitchNewThread(1)

	sp, isNew := x.Consume()
	if sp != 0x7fff0000 || !isNew {
		t.Fatalf("Consume() = (%#x, %v), want (0x7fff0000, true)", sp, isNew)
	}

	x.Publish(0x8000, false)
	sp, isNew = x.Consume()
	if sp != 0x8000 || isNew {
		t.Fatalf("Consume() after Publish = (%#x, %v), want (0x8000, false)", sp, isNew)
	}
}

func TestNewReturnsX64OnAMD64(t *testing.T) {
	if _, ok := any(New()).(*X64); !ok {
		t.Fatalf("New() did not return *X64 on an amd64 build")
	}
}
