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
	"errors"
	"fmt"
	"time"
)

// Session drives one firmware transfer over an exclusively owned
// Transport. The engine is single-threaded and synchronous: Run executes
// the handshake, the per-block send/wait cycle and the completion sequence
// on the calling goroutine, suspending only in timeout-bounded transport
// reads. Callers needing a responsive UI run the session on a worker
// goroutine and consume the progress callback.
//
// A Session is single-use: it lives for one transport open/close cycle
// and reports ErrSessionDone if Run is called again.
type Session struct {
	transport Transport
	config    *Config
	src       DataSource
	trace     *traceBuffer

	state State

	// current is the built block awaiting acknowledgement. Resends reuse
	// it byte for byte; the data source is never consulted for a retry.
	current    *Block
	currentLen int

	blockNum   byte
	retries    int
	bytesSent  int64
	totalBytes int64

	blocksSent   int
	totalRetries int

	progressFailed bool
	ran            bool
}

// NewSession creates a session around an open transport. The transport is
// owned by the session until Run returns; the caller closes it afterwards.
func NewSession(transport Transport, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport must not be nil", ErrTransportClosed)
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid session option: %w", err)
		}
	}

	return &Session{
		transport: transport,
		config:    config,
		trace:     newTraceBuffer(config.TraceSize),
		state:     StateWaitingForStart,
	}, nil
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Run performs the transfer, blocking until a terminal state. The context
// cancels the session between transport polls; cancellation surfaces as
// ErrCancelledByCaller, distinct from a receiver-issued CAN.
//
// The returned Result is non-nil even on failure so callers always see the
// final byte counters; err mirrors Result.Err.
func (s *Session) Run(ctx context.Context, src DataSource) (*Result, error) {
	if s.ran {
		return nil, s.fail("Run", ErrSessionDone, false)
	}
	s.ran = true

	if src == nil {
		res := s.terminate(StateFailed, s.fail("Run", ErrNilDataSource, false), time.Now())
		return res, res.Err
	}
	s.src = src
	s.totalBytes = src.Size()

	start := time.Now()
	s.config.Logger.Info("starting firmware transfer",
		"total_bytes", s.totalBytes,
		"block_size", s.config.BlockSize.String(),
	)

	if err := s.transport.Flush(); err != nil {
		s.config.Logger.Debug("flush before handshake failed", "error", err)
	}

	for !s.state.Terminal() {
		var err error
		var next State

		switch s.state {
		case StateWaitingForStart:
			next, err = s.waitForStart(ctx)
		case StateSendingBlock:
			next, err = s.sendBlock(ctx)
		case StateWaitingForAck:
			next, err = s.waitForAck(ctx)
		case StateCompleting:
			next, err = s.complete(ctx)
		case StateSuccess, StateCancelled, StateFailed:
			// Terminal states never reach the transition switch.
			next = s.state
		}

		if err != nil {
			res := s.terminate(next, err, start)
			return res, res.Err
		}
		s.state = next
	}

	res := s.terminate(s.state, nil, start)
	return res, nil
}

// terminate records the terminal state and assembles the Result.
func (s *Session) terminate(state State, err error, start time.Time) *Result {
	s.state = state
	res := &Result{
		State:      state,
		Err:        err,
		TotalBytes: s.totalBytes,
		BytesSent:  s.bytesSent,
		BlocksSent: s.blocksSent,
		Retries:    s.totalRetries,
		Elapsed:    time.Since(start),
	}

	switch {
	case err == nil:
		s.config.Logger.Info("transfer complete",
			"bytes", s.bytesSent,
			"blocks", s.blocksSent,
			"retries", s.totalRetries,
			"elapsed", res.Elapsed.String(),
		)
	case IsSoft(err):
		s.config.Logger.Error("transfer finished ambiguously, verify device state",
			"error", err, "bytes", s.bytesSent)
	default:
		s.config.Logger.Error("transfer failed", "error", err, "state", state.String())
	}
	return res
}

// waitForStart implements the WaitingForStart state: it blocks for the
// receiver's mode request within the overall handshake budget.
func (s *Session) waitForStart(ctx context.Context) (State, error) {
	deadline := time.Now().Add(s.config.HandshakeTimeout)

	for {
		b, ok, err := s.readReply(ctx, deadline)
		if err != nil {
			return s.abortState(err), err
		}
		if !ok {
			s.trace.recordTimeout("handshake")
			return StateFailed, s.fail("handshake", ErrHandshakeTimeout, false)
		}

		s.trace.recordRX([]byte{b}, "handshake")
		switch b {
		case byteCRCRequest:
			s.config.Logger.Debug("receiver requested CRC mode")
			s.blockNum = 1
			return StateSendingBlock, nil
		case byteNAK:
			// Legacy arithmetic-checksum request.
			return StateFailed, s.fail("handshake", ErrChecksumModeUnsupported, false)
		case byteCAN:
			return StateCancelled, s.fail("handshake", ErrReceiverCancelled, false)
		default:
			// Stale line noise before the receiver settles; keep waiting.
			s.config.Logger.Debug("ignoring unexpected handshake byte", "byte", fmt.Sprintf("0x%02X", b))
		}
	}
}

// sendBlock implements the SendingBlock state: it pulls the next chunk,
// frames it and writes it. An exhausted data source moves to Completing.
func (s *Session) sendBlock(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateCancelled, s.fail("send block", ErrCancelledByCaller, false)
	}

	chunk, err := s.src.NextChunk(s.config.BlockSize.PayloadLen())
	if err != nil {
		return StateFailed, s.fail("send block", err, false)
	}
	if len(chunk) == 0 {
		return StateCompleting, nil
	}

	block, err := BuildBlock(s.blockNum, chunk, s.config.BlockSize)
	if err != nil {
		return StateFailed, s.fail("send block", err, false)
	}
	s.current = block
	s.currentLen = len(chunk)

	if err := s.writeBlock(); err != nil {
		return StateFailed, err
	}
	return StateWaitingForAck, nil
}

// writeBlock writes the cached block to the transport.
func (s *Session) writeBlock() error {
	wire := s.current.Bytes()
	if _, err := s.transport.Write(wire); err != nil {
		return s.fail("write block", fmt.Errorf("%w: block %d: %w", ErrTransportWrite, s.current.Number, err), false)
	}
	s.trace.recordTX(wire, fmt.Sprintf("block %d", s.current.Number))
	return nil
}

// waitForAck implements the WaitingForAck state. NAK and timeout resend
// the identical cached block; ACK advances the cycle and reports progress.
func (s *Session) waitForAck(ctx context.Context) (State, error) {
	deadline := time.Now().Add(s.config.BlockTimeout)

	b, ok, err := s.readReply(ctx, deadline)
	if err != nil {
		return s.abortState(err), err
	}
	if !ok {
		s.trace.recordTimeout(fmt.Sprintf("block %d", s.current.Number))
		return s.retryBlock("timeout")
	}

	s.trace.recordRX([]byte{b}, fmt.Sprintf("reply to block %d", s.current.Number))
	switch b {
	case byteACK:
		s.bytesSent += int64(s.currentLen)
		s.blocksSent++
		s.retries = 0
		s.current = nil
		s.blockNum = nextBlockNumber(s.blockNum)
		s.reportProgress()
		return StateSendingBlock, nil
	case byteNAK:
		return s.retryBlock("NAK")
	case byteCAN:
		return StateCancelled, s.fail("wait for ack", ErrReceiverCancelled, false)
	default:
		// Anything else is line corruption; treat it like a NAK.
		s.config.Logger.Debug("unexpected reply byte", "byte", fmt.Sprintf("0x%02X", b))
		return s.retryBlock("corrupt reply")
	}
}

// retryBlock resends the cached block, byte for byte, until the retry
// budget runs out. The data source is never consulted here.
func (s *Session) retryBlock(cause string) (State, error) {
	s.retries++
	s.totalRetries++
	if s.retries > s.config.MaxRetries {
		return StateFailed, s.fail("wait for ack",
			fmt.Errorf("%w: block %d after %d attempts", ErrMaxRetriesExceeded, s.current.Number, s.retries), false)
	}

	s.config.Logger.Debug("resending block",
		"block", s.current.Number,
		"attempt", s.retries,
		"cause", cause,
	)
	if err := s.writeBlock(); err != nil {
		return StateFailed, err
	}
	return StateWaitingForAck, nil
}

// complete implements the Completing state: send EOT, wait for the final
// ACK, with its own bounded retry loop. Exhaustion is the soft failure.
func (s *Session) complete(ctx context.Context) (State, error) {
	for attempt := 0; attempt < s.config.EOTRetries; attempt++ {
		if _, err := s.transport.Write([]byte{byteEOT}); err != nil {
			return StateFailed, s.fail("complete", fmt.Errorf("%w: EOT: %w", ErrTransportWrite, err), false)
		}
		s.trace.recordTX([]byte{byteEOT}, "EOT")

		deadline := time.Now().Add(s.config.BlockTimeout)
		b, ok, err := s.readReply(ctx, deadline)
		if err != nil {
			return s.abortState(err), err
		}
		if !ok {
			s.trace.recordTimeout("EOT")
			continue
		}

		s.trace.recordRX([]byte{b}, "reply to EOT")
		switch b {
		case byteACK:
			return StateSuccess, nil
		case byteCAN:
			return StateCancelled, s.fail("complete", ErrReceiverCancelled, false)
		default:
			// NAK or noise: resend the marker.
		}
	}

	return StateFailed, s.fail("complete",
		fmt.Errorf("%w: after %d attempts", ErrEOTNotAcknowledged, s.config.EOTRetries), true)
}

// readReply polls the transport for a single byte until deadline, checking
// for caller cancellation between polls. ok is false when the deadline
// passed with no data.
func (s *Session) readReply(ctx context.Context, deadline time.Time) (byte, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, false, s.fail("read", ErrCancelledByCaller, false)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, false, nil
		}
		poll := s.config.PollInterval
		if poll > remaining {
			poll = remaining
		}

		b, ok, err := s.transport.ReadByte(poll)
		if err != nil {
			return 0, false, s.fail("read", fmt.Errorf("%w: %w", ErrTransportRead, err), false)
		}
		if ok {
			return b, true, nil
		}
	}
}

// abortState maps a read-path error to the matching terminal state.
func (*Session) abortState(err error) State {
	if errors.Is(err, ErrCancelledByCaller) {
		return StateCancelled
	}
	return StateFailed
}

// reportProgress invokes the progress callback, containing panics so a
// misbehaving reporter cannot corrupt the transfer loop. The first failure
// is logged; later ones are dropped silently.
func (s *Session) reportProgress() {
	if s.config.Progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if !s.progressFailed {
				s.progressFailed = true
				s.config.Logger.Error("progress reporter panicked, continuing transfer", "panic", r)
			}
		}
	}()
	s.config.Progress(s.totalBytes, s.bytesSent)
}

// fail wraps err into a TransferError carrying session context.
func (s *Session) fail(op string, err error, soft bool) error {
	return &TransferError{
		Op:    op,
		Port:  s.portName(),
		State: s.state,
		Err:   err,
		Soft:  soft,
		Trace: s.trace.snapshot(),
	}
}

// portName asks the transport for its port identifier when it has one.
func (s *Session) portName() string {
	if p, ok := s.transport.(interface{ Port() string }); ok {
		return p.Port()
	}
	return ""
}
