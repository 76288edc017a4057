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

// Package klog is the leveled logging facade used by everything outside
// pkg/kernel. It mirrors the call shape gVisor's own pkg/log exposes
// (Infof/Warningf/Debugf/Errorf) but is backed by logrus rather than a
// hand-rolled logger, since this repository is not also shipping its own
// log package.
package klog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// logger is the process-wide logrus instance every helper in this package
// writes through. Tests may redirect its output with SetOutput.
var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutput redirects where log lines are written (stderr by default).
// Nothing in this repository calls it.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// SetVerbose raises the log level to Debug when v is true, matching
// runsc's -debug flag's effect on its own logger.
func SetVerbose(v bool) {
	if v {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// Infof logs at info level.
func Infof(format string, args ...any) { logger.Infof(format, args...) }

// Warningf logs at warning level.
func Warningf(format string, args ...any) { logger.Warnf(format, args...) }

// Debugf logs at debug level; suppressed unless SetVerbose(true) was called.
func Debugf(format string, args ...any) { logger.Debugf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { logger.Errorf(format, args...) }

// Manager adapts this package to manager.Logger without pkg/kernel ever
// importing logrus itself.
type Manager struct{}

// Infof implements manager.Logger.
func (Manager) Infof(format string, args ...any) { Infof(format, args...) }

// Warningf implements manager.Logger.
func (Manager) Warningf(format string, args ...any) { Warningf(format, args...) }
