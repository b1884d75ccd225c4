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

import "time"

// Per-session protocol budgets. These mirror what the module bootloaders
// tolerate in practice; they are overridable per session via Options.
const (
	// defaultBlockTimeout bounds the wait for the ACK/NAK reply to one
	// data block.
	defaultBlockTimeout = 5 * time.Second

	// defaultHandshakeTimeout bounds the overall wait for the receiver's
	// initial 'C'. Bootloaders can take tens of seconds to erase flash
	// before they start polling.
	defaultHandshakeTimeout = 60 * time.Second

	// defaultPollInterval is the granularity of blocking reads. It caps
	// how long a caller cancellation can go unnoticed.
	defaultPollInterval = 250 * time.Millisecond

	// defaultMaxRetries is the number of resends of one unacknowledged
	// block. The classic XMODEM budget.
	defaultMaxRetries = 10

	// defaultEOTRetries is the number of resends of the EOT marker before
	// declaring the soft EOT failure.
	defaultEOTRetries = 10
)

// Whole-session re-attempt budgets used by SessionRetryConfig.
const (
	// DefaultSessionAttempts is the number of complete flash attempts,
	// each with a fresh session and data source.
	DefaultSessionAttempts = 3
	// SessionRetryInitialBackoff is the delay before the first re-attempt,
	// long enough for a bootloader to fall back to polling.
	SessionRetryInitialBackoff = 2 * time.Second
	// SessionRetryMaxBackoff caps the delay between re-attempts.
	SessionRetryMaxBackoff = 10 * time.Second
	// SessionRetryBackoffMultiplier is the exponential backoff multiplier.
	SessionRetryBackoffMultiplier = 2.0
	// SessionRetryJitter is the random jitter factor (0.0-1.0).
	SessionRetryJitter = 0.1
)
