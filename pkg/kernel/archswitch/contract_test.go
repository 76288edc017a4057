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

package archswitch

import "testing"

func TestContractPublishConsume(t *testing.T) {
	var c Contract

	sp, isNew := c.Consume()
	if sp != 0 || isNew {
		t.Fatalf("zero-value Contract.Consume() = (%d, %v), want (0, false)", sp, isNew)
	}

	c.Publish(0xdeadbeef, true)
	sp, isNew = c.Consume()
	if sp != 0xdeadbeef || !isNew {
		t.Fatalf("Consume() = (%#x, %v), want (0xdeadbeef, true)", sp, isNew)
	}

	c.Publish(0x1234, false)
	sp, isNew = c.Consume()
	if sp != 0x1234 || isNew {
		t.Fatalf("Consume() = (%#x, %v), want (0x1234, false)", sp, isNew)
	}
}
