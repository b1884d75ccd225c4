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
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig configures whole-session re-attempts. Block-level retries
// are a protocol matter handled inside the state machine; this layer
// restarts the entire transfer (fresh Session, fresh DataSource) after a
// retryable terminal failure, e.g. a handshake timeout while the device
// was still erasing flash.
type RetryConfig struct {
	// MaxAttempts is the total number of transfer attempts (minimum 1).
	MaxAttempts int
	// InitialBackoff is the delay before the first re-attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between re-attempts.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which the backoff increases.
	BackoffMultiplier float64
	// Jitter adds randomness to the backoff (0.0-1.0).
	Jitter float64
}

// SessionRetryConfig returns the default whole-session retry budget.
func SessionRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultSessionAttempts,
		InitialBackoff:    SessionRetryInitialBackoff,
		MaxBackoff:        SessionRetryMaxBackoff,
		BackoffMultiplier: SessionRetryBackoffMultiplier,
		Jitter:            SessionRetryJitter,
	}
}

// AttemptFunc runs one complete transfer attempt. Implementations create a
// fresh Session and DataSource per call: sources are not restartable
// mid-session.
type AttemptFunc func(ctx context.Context, attempt int) (*Result, error)

// RunWithRetry executes attemptFunc up to config.MaxAttempts times,
// backing off between attempts. Soft failures and session-fatal errors
// (cancellation, unsupported mode, usage errors) are never re-attempted.
// The last attempt's Result is returned alongside its error.
func RunWithRetry(ctx context.Context, config *RetryConfig, attemptFunc AttemptFunc) (*Result, error) {
	if config == nil {
		config = SessionRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastRes *Result
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastRes, lastErr
			}
			return nil, fmt.Errorf("transfer cancelled: %w", err)
		}

		lastRes, lastErr = attemptFunc(ctx, attempt)
		if lastErr == nil {
			return lastRes, nil
		}
		if !IsRetryable(lastErr) {
			return lastRes, lastErr
		}

		if attempt < attempts {
			sleep := jitteredSleep(backoff, config.Jitter)
			if err := sleepWithContext(ctx, sleep); err != nil {
				return lastRes, lastErr
			}
			backoff = nextBackoff(backoff, config)
		}
	}

	return lastRes, lastErr
}

func sleepWithContext(ctx context.Context, sleep time.Duration) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(backoff time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(backoff) * config.BackoffMultiplier)
	if next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

// jitteredSleep applies random jitter to a backoff duration.
func jitteredSleep(base time.Duration, jitterFactor float64) time.Duration {
	sleep := base
	if jitterFactor > 0 {
		var randBytes [8]byte
		if _, err := rand.Read(randBytes[:]); err == nil {
			randUint := binary.LittleEndian.Uint64(randBytes[:])
			randFloat := float64(randUint) / float64(1<<64)
			sleep += time.Duration(randFloat * float64(sleep) * jitterFactor)
		}
	}
	return sleep
}
