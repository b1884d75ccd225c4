// Copyright 2026 u-blox AG
// SPDX-License-Identifier: Apache-2.0
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

package ucxfw

import "log/slog"

// Logger receives diagnostic output from a session. It is carried per
// session rather than as package state so that two concurrent sessions on
// different ports cannot interleave through a global. Implementations must
// be cheap: messages are emitted from the transfer loop.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// nopLogger is the default when no logger is configured.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

// Debug implements Logger.
func (s SlogLogger) Debug(msg string, keysAndValues ...any) {
	s.L.Debug(msg, keysAndValues...)
}

// Info implements Logger.
func (s SlogLogger) Info(msg string, keysAndValues ...any) {
	s.L.Info(msg, keysAndValues...)
}

// Error implements Logger.
func (s SlogLogger) Error(msg string, keysAndValues ...any) {
	s.L.Error(msg, keysAndValues...)
}
