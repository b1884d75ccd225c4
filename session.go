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
	"fmt"
	"time"
)

// State identifies a position in the transfer state machine. States are
// explicit so every transition is a compile-time checked switch arm rather
// than a scatter of flags.
type State int

const (
	// StateWaitingForStart waits for the receiver's handshake byte.
	StateWaitingForStart State = iota
	// StateSendingBlock frames and writes the next data block.
	StateSendingBlock
	// StateWaitingForAck waits for the receiver's single-byte reply.
	StateWaitingForAck
	// StateCompleting sends EOT and waits for the final acknowledgement.
	StateCompleting
	// StateSuccess is the terminal state of a fully acknowledged transfer.
	StateSuccess
	// StateCancelled is terminal: the receiver or the caller cancelled.
	StateCancelled
	// StateFailed is terminal: the transfer failed (see Result.Err).
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateWaitingForStart:
		return "waiting-for-start"
	case StateSendingBlock:
		return "sending-block"
	case StateWaitingForAck:
		return "waiting-for-ack"
	case StateCompleting:
		return "completing"
	case StateSuccess:
		return "success"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state machine has finished.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateCancelled, StateFailed:
		return true
	case StateWaitingForStart, StateSendingBlock, StateWaitingForAck, StateCompleting:
		return false
	default:
		return false
	}
}

// Config contains the tunables for one transfer session.
type Config struct {
	// Progress is invoked after every accepted block (optional).
	Progress ProgressFunc
	// Logger receives diagnostic output (optional).
	Logger Logger
	// BlockSize selects 128-byte or 1024-byte framing for the whole
	// session.
	BlockSize BlockSize
	// BlockTimeout bounds the wait for the receiver's reply to one block
	// and to the EOT marker.
	BlockTimeout time.Duration
	// HandshakeTimeout bounds the overall wait for the receiver's initial
	// mode request.
	HandshakeTimeout time.Duration
	// PollInterval is the granularity of blocking reads. Shorter intervals
	// make caller cancellation more responsive at the cost of more transport
	// read calls.
	PollInterval time.Duration
	// MaxRetries is the number of resends of a single unacknowledged block
	// before the session fails.
	MaxRetries int
	// EOTRetries is the number of resends of the end-of-transmission
	// marker before the session reports the soft EOT failure.
	EOTRetries int
	// TraceSize is the capacity of the wire trace attached to terminal
	// errors. Zero selects the default.
	TraceSize int
}

// DefaultConfig returns the session defaults: 1k blocks, 5s per-block
// timeout, 10 retries, 60s handshake budget polled at 250ms.
func DefaultConfig() *Config {
	return &Config{
		BlockSize:        BlockSizeLarge,
		BlockTimeout:     defaultBlockTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		PollInterval:     defaultPollInterval,
		MaxRetries:       defaultMaxRetries,
		EOTRetries:       defaultEOTRetries,
		Logger:           nopLogger{},
	}
}

// Option is a functional option for NewSession.
type Option func(*Config) error

// WithBlockSize selects the framing mode for the session.
func WithBlockSize(size BlockSize) Option {
	return func(c *Config) error {
		if size != BlockSizeSmall && size != BlockSizeLarge {
			return fmt.Errorf("invalid block size %d", size)
		}
		c.BlockSize = size
		return nil
	}
}

// WithBlockTimeout sets the per-block reply timeout.
func WithBlockTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("block timeout must be positive, got %v", timeout)
		}
		c.BlockTimeout = timeout
		return nil
	}
}

// WithHandshakeTimeout sets the overall handshake budget.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("handshake timeout must be positive, got %v", timeout)
		}
		c.HandshakeTimeout = timeout
		return nil
	}
}

// WithMaxRetries sets the per-block resend limit.
func WithMaxRetries(retries int) Option {
	return func(c *Config) error {
		if retries < 0 {
			return fmt.Errorf("max retries must not be negative, got %d", retries)
		}
		c.MaxRetries = retries
		return nil
	}
}

// WithEOTRetries sets the end-of-transmission resend limit.
func WithEOTRetries(retries int) Option {
	return func(c *Config) error {
		if retries < 1 {
			return fmt.Errorf("EOT retries must be at least 1, got %d", retries)
		}
		c.EOTRetries = retries
		return nil
	}
}

// WithProgressFunc sets the per-block progress callback.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(c *Config) error {
		c.Progress = fn
		return nil
	}
}

// WithLogger sets the session logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithPollInterval sets the blocking read granularity.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return fmt.Errorf("poll interval must be positive, got %v", interval)
		}
		c.PollInterval = interval
		return nil
	}
}

// Result reports the terminal outcome of a session. A Result is returned
// for failed sessions too, so callers always see the final byte counters.
type Result struct {
	// Err is the terminal error kind, nil on success.
	Err error
	// State is the terminal state reached.
	State State
	// TotalBytes is the image length reported by the data source.
	TotalBytes int64
	// BytesSent counts image bytes covered by acknowledged blocks
	// (padding excluded).
	BytesSent int64
	// BlocksSent counts acknowledged data blocks.
	BlocksSent int
	// Retries counts resends over the whole session.
	Retries int
	// Elapsed is the wall time from Run entry to the terminal state.
	Elapsed time.Duration
}
