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

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error categories surfaced by a transfer session. Every failed session
// terminates with exactly one of these kinds wrapped in a *TransferError.
var (
	// Transport errors
	ErrTransportOpen   = errors.New("failed to open transport")
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport is closed")

	// Handshake errors
	ErrHandshakeTimeout = errors.New("receiver never requested a transfer")
	// ErrChecksumModeUnsupported is returned when the receiver requests the
	// legacy arithmetic-checksum mode; the engine implements CRC mode only.
	ErrChecksumModeUnsupported = errors.New("receiver requested checksum mode, only CRC mode is supported")

	// Transfer errors
	ErrMaxRetriesExceeded = errors.New("block retry limit exceeded")
	ErrReceiverCancelled  = errors.New("transfer cancelled by receiver")
	ErrCancelledByCaller  = errors.New("transfer cancelled by caller")
	ErrDataSource         = errors.New("data source failed")

	// ErrEOTNotAcknowledged is a soft failure: the end-of-transmission
	// marker was never acknowledged, but the receiver may already have
	// accepted every data block and applied the image. Callers must verify
	// device state independently (e.g. re-query the firmware version after
	// reboot) instead of treating this like a data-integrity failure.
	ErrEOTNotAcknowledged = errors.New("end of transmission not acknowledged")

	// Usage errors - programming mistakes, never produced by line noise
	ErrChunkTooLarge = errors.New("chunk exceeds block payload length")
	ErrSessionDone   = errors.New("session already ran, create a new one")
	ErrNilDataSource = errors.New("data source is nil")
)

// TransferError wraps a terminal error kind with the context needed to
// diagnose a failed flash: the operation, port, protocol state and an
// optional wire trace.
type TransferError struct {
	Err   error
	Op    string
	Port  string
	State State
	Trace []TraceEntry
	// Soft marks ambiguous outcomes (currently only EOT-not-acknowledged)
	// where the device may have completed the update anyway.
	Soft bool
}

func (e *TransferError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s (%s, state %s): %v", e.Op, e.Port, e.State, e.Err)
	}
	return fmt.Sprintf("%s (state %s): %v", e.Op, e.State, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the recorded wire trace for log output.
func (e *TransferError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return "(no trace data)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "wire trace (%d entries):\n", len(e.Trace))
	for _, entry := range e.Trace {
		sb.WriteString("  " + entry.String() + "\n")
	}
	return sb.String()
}

// IsSoft reports whether err is an ambiguous soft failure, i.e. the
// transfer may have succeeded on the device despite the error.
func IsSoft(err error) bool {
	var te *TransferError
	if errors.As(err, &te) && te.Soft {
		return true
	}
	return errors.Is(err, ErrEOTNotAcknowledged)
}

// IsFatalForSession reports whether err rules out re-attempting with a
// fresh session on the same port. Cancellation (either side), mode
// mismatch and usage errors are final; handshake timeouts and retry
// exhaustion are worth a brand-new session once the device has been
// power-cycled or put back into update mode.
func IsFatalForSession(err error) bool {
	switch {
	case errors.Is(err, ErrReceiverCancelled),
		errors.Is(err, ErrCancelledByCaller),
		errors.Is(err, ErrChecksumModeUnsupported),
		errors.Is(err, ErrChunkTooLarge),
		errors.Is(err, ErrNilDataSource),
		errors.Is(err, ErrSessionDone):
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a whole-session re-attempt (new Session, new
// DataSource) may succeed. Soft failures are not retryable: re-flashing a
// device that already applied the image must be an operator decision.
func IsRetryable(err error) bool {
	if err == nil || IsSoft(err) || IsFatalForSession(err) {
		return false
	}
	switch {
	case errors.Is(err, ErrHandshakeTimeout),
		errors.Is(err, ErrMaxRetriesExceeded),
		errors.Is(err, ErrTransportOpen),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite):
		return true
	default:
		return false
	}
}

// TraceDirection indicates the direction of traced wire data.
type TraceDirection string

const (
	// TraceTX indicates data sent to the receiver.
	TraceTX TraceDirection = "TX"
	// TraceRX indicates data received from the receiver.
	TraceRX TraceDirection = "RX"
)

// TraceEntry records a single wire-level event.
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

// String formats a trace entry for display.
func (e TraceEntry) String() string {
	hexData := formatHexBytes(e.Data)
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData, e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData)
}

// traceBuffer collects wire events during a session. Fixed capacity;
// oldest entries are evicted so a long transfer keeps the tail that
// matters when it fails.
type traceBuffer struct {
	entries []TraceEntry
	maxSize int
}

func newTraceBuffer(maxSize int) *traceBuffer {
	if maxSize <= 0 {
		maxSize = 32
	}
	return &traceBuffer{
		entries: make([]TraceEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

func (tb *traceBuffer) recordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

func (tb *traceBuffer) recordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

func (tb *traceBuffer) recordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

func (tb *traceBuffer) record(dir TraceDirection, data []byte, note string) {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	entry := TraceEntry{
		Direction: dir,
		Data:      dataCopy,
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// snapshot returns a copy of the collected entries.
func (tb *traceBuffer) snapshot() []TraceEntry {
	out := make([]TraceEntry, len(tb.entries))
	copy(out, tb.entries)
	return out
}

// formatHexBytes formats a byte slice as space-separated hex values,
// truncating long payloads.
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	const maxShown = 16
	shown := len(data)
	if shown > maxShown {
		shown = maxShown
	}
	parts := make([]string, shown)
	for i := 0; i < shown; i++ {
		parts[i] = fmt.Sprintf("%02X", data[i])
	}
	s := strings.Join(parts, " ")
	if len(data) > maxShown {
		s += fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	return s
}
