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

package config

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func TestDefaultMatchesCoreContracts(t *testing.T) {
	c := Default()
	if c.NumCPUs <= 0 {
		t.Fatalf("Default().NumCPUs = %d, want positive", c.NumCPUs)
	}
	if c.StarvationCap != 2*(1<<20) {
		t.Fatalf("Default().StarvationCap = %d, want 2*Stride1", c.StarvationCap)
	}
	if c.DefaultTickets != 100 {
		t.Fatalf("Default().DefaultTickets = %d, want 100", c.DefaultTickets)
	}
}

func TestRegisterFlagsOverridesDefaults(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	err := fs.Parse([]string{
		"-cpus=8",
		"-quantum=2ms",
		"-default-tickets=250",
		"-verbose",
		"-trace-output=/tmp/trace.jsonl",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if c.NumCPUs != 8 {
		t.Fatalf("NumCPUs = %d, want 8", c.NumCPUs)
	}
	if c.Quantum != 2*time.Millisecond {
		t.Fatalf("Quantum = %v, want 2ms", c.Quantum)
	}
	if c.DefaultTickets != 250 {
		t.Fatalf("DefaultTickets = %d, want 250", c.DefaultTickets)
	}
	if !c.Verbose {
		t.Fatalf("Verbose = false, want true")
	}
	if c.TraceOutput != "/tmp/trace.jsonl" {
		t.Fatalf("TraceOutput = %q, want /tmp/trace.jsonl", c.TraceOutput)
	}
}

func TestStringRendersEveryField(t *testing.T) {
	c := Default()
	c.TraceOutput = "/tmp/out.jsonl"
	dump := c.String()

	for _, want := range []string{
		"cpus:", "quantum:", "default-tickets:", "starvation-cap:",
		"interactive-ratio:", "wakeup-boost-decay:", "balance-period:",
		"duration:", "trace-output:", "verbose:", "/tmp/out.jsonl",
	} {
		if !strings.Contains(dump, want) {
			t.Fatalf("String() missing %q in output:\n%s", want, dump)
		}
	}
}

func TestStringOmitsTraceOutputWhenEmpty(t *testing.T) {
	c := Default()
	c.TraceOutput = ""
	dump := c.String()
	if !strings.Contains(dump, "(none)") {
		t.Fatalf("String() with empty TraceOutput = %q, want it to contain \"(none)\"", dump)
	}
}
