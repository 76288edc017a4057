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

// Package config holds the tunables schedctl exposes on top of the
// scheduler core's own numeric contracts (pkg/kernel/sched.Stride1 and
// friends remain the core's own defaults). Of these, cpus, quantum,
// balance-period, duration, trace-output and verbose change what schedctl
// does. default-tickets, starvation-cap, interactive-ratio and
// wakeup-boost-decay are parsed and shown by String but are not passed to
// the scheduler: the stride policy always uses the pkg/kernel/sched
// constants.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"text/template"
	"time"
)

// Config bundles every flag schedctl's subcommands accept. Following
// runsc/config's pattern, each field that has a command-line
// representation carries a `flag` tag naming it.
type Config struct {
	NumCPUs            int           `flag:"cpus"`
	Quantum            time.Duration `flag:"quantum"`
	DefaultTickets     uint64        `flag:"default-tickets"`
	StarvationCap      int64         `flag:"starvation-cap"`
	InteractiveRatio   int64         `flag:"interactive-ratio"`
	WakeupBoostDecay   time.Duration `flag:"wakeup-boost-decay"`
	BalancePeriodTicks uint64        `flag:"balance-period"`
	SimDuration        time.Duration `flag:"duration"`
	TraceOutput        string        `flag:"trace-output"`
	Verbose            bool          `flag:"verbose"`
}

// Default returns a Config matching the scheduler core's own numeric
// contracts (pkg/kernel/sched's Stride1-derived constants), so a bare
// `schedctl run` reproduces the core's built-in defaults exactly.
func Default() *Config {
	return &Config{
		NumCPUs:            4,
		Quantum:            time.Millisecond,
		DefaultTickets:     100,
		StarvationCap:      2 * (1 << 20),
		InteractiveRatio:   2,
		WakeupBoostDecay:   5 * time.Millisecond,
		BalancePeriodTicks: 100,
		SimDuration:        5 * time.Second,
		TraceOutput:        "",
		Verbose:            false,
	}
}

// RegisterFlags registers c's fields on flagSet, following
// runsc/config/flags.go's one-flag-per-field convention. Unlike the
// teacher, schedctl's flag set is small enough to enumerate directly
// rather than reflecting over struct tags; the tags only document each
// field's flag name, and String's template lists the same names by hand.
func (c *Config) RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.IntVar(&c.NumCPUs, "cpus", c.NumCPUs, "number of simulated logical CPUs")
	flagSet.DurationVar(&c.Quantum, "quantum", c.Quantum, "nominal time slice delivered per simulated timer tick")
	flagSet.Uint64Var(&c.DefaultTickets, "default-tickets", c.DefaultTickets, "ticket weight assigned to threads that don't request one explicitly")
	flagSet.Int64Var(&c.StarvationCap, "starvation-cap", c.StarvationCap, "maximum Pass lag (in Pass units; default 2*Stride1) tolerated for a waking thread")
	flagSet.Int64Var(&c.InteractiveRatio, "interactive-ratio", c.InteractiveRatio, "sleep-to-runtime ratio past which a waking thread is classified interactive")
	flagSet.DurationVar(&c.WakeupBoostDecay, "wakeup-boost-decay", c.WakeupBoostDecay, "how long an interactive boost survives before being cleared")
	flagSet.Uint64Var(&c.BalancePeriodTicks, "balance-period", c.BalancePeriodTicks, "context-switching timer ticks between a CPU's periodic pull-balance attempts (0 disables them)")
	flagSet.DurationVar(&c.SimDuration, "duration", c.SimDuration, "how long to run the simulation before reporting")
	flagSet.StringVar(&c.TraceOutput, "trace-output", c.TraceOutput, "file to append scheduling-decision trace lines to (schedctl trace only)")
	flagSet.BoolVar(&c.Verbose, "verbose", c.Verbose, "enable debug logging")
}

const dumpTemplate = `schedctl configuration:
  cpus:               {{.NumCPUs}}
  quantum:            {{.Quantum}}
  default-tickets:    {{.DefaultTickets}}
  starvation-cap:     {{.StarvationCap}}
  interactive-ratio:  {{.InteractiveRatio}}
  wakeup-boost-decay: {{.WakeupBoostDecay}}
  balance-period:     {{.BalancePeriodTicks}} ticks
  duration:           {{.SimDuration}}
  trace-output:       {{if .TraceOutput}}{{.TraceOutput}}{{else}}(none){{end}}
  verbose:            {{.Verbose}}
`

// String renders a human-readable dump of c, grounded on
// runsc/config/flags.go's ToContainerdConfigTOML's use of text/template
// for a config summary, simplified here to plain text since schedctl has
// no containerd-style consumer to target.
func (c *Config) String() string {
	t := template.Must(template.New("config").Parse(dumpTemplate))
	var buf bytes.Buffer
	if err := t.Execute(&buf, c); err != nil {
		// The template is a compile-time constant; a failure here is a
		// programming error, not a runtime condition callers can recover
		// from.
		panic(fmt.Sprintf("config: rendering dump: %v", err))
	}
	return buf.String()
}
