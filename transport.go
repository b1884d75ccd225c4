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
	"time"

	"github.com/u-blox/go-ucxfw/internal/syncutil"
)

// Transport is the byte channel the transfer engine drives. The serial
// implementation lives in transport/uart; MockTransport serves tests.
//
// The engine owns the transport exclusively for the session's lifetime:
// no command-mode traffic may share the channel until the session reaches
// a terminal state.
type Transport interface {
	// ReadByte blocks for up to timeout waiting for a single byte.
	// ok is false when the timeout elapsed without data and without error.
	ReadByte(timeout time.Duration) (b byte, ok bool, err error)

	// Write sends data to the receiver.
	Write(data []byte) (int, error)

	// Flush discards any stale data in the receive buffer.
	Flush() error

	// Close closes the transport connection.
	Close() error

	// IsConnected returns true if the transport is usable.
	IsConnected() bool

	// Type returns the transport type.
	Type() TransportType
}

// TransportType represents the type of transport.
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing.
	TransportMock TransportType = "mock"
)

// mockReply is one scripted event returned by MockTransport.ReadByte.
type mockReply struct {
	err     error
	b       byte
	timeout bool
}

// MockTransport provides a scripted implementation of Transport for
// testing. Reply bytes, timeouts and errors are queued in order and
// consumed one per ReadByte call; once the script is exhausted every
// further read times out. All writes are recorded.
type MockTransport struct {
	writeErr  error
	script    []mockReply
	writes    [][]byte
	mu        syncutil.Mutex
	connected bool
}

// NewMockTransport creates a connected mock transport with an empty script.
func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

// QueueByte appends reply bytes to the read script.
func (m *MockTransport) QueueByte(bytes ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bytes {
		m.script = append(m.script, mockReply{b: b})
	}
}

// QueueTimeout appends n timed-out reads to the script.
func (m *MockTransport) QueueTimeout(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.script = append(m.script, mockReply{timeout: true})
	}
}

// QueueError appends a read error to the script.
func (m *MockTransport) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{err: err})
}

// SetWriteError makes every subsequent Write fail with err.
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// ReadByte implements Transport.
func (m *MockTransport) ReadByte(_ time.Duration) (byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, false, ErrTransportClosed
	}
	if len(m.script) == 0 {
		return 0, false, nil
	}

	reply := m.script[0]
	m.script = m.script[1:]
	if reply.err != nil {
		return 0, false, reply.err
	}
	if reply.timeout {
		return 0, false, nil
	}
	return reply.b, true, nil
}

// Write implements Transport, recording a copy of data.
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes = append(m.writes, cp)
	return len(data), nil
}

// Flush implements Transport.
func (m *MockTransport) Flush() error {
	return nil
}

// Close implements Transport.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected implements Transport.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport.
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Writes returns all recorded writes in order.
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Sent returns the concatenation of everything written so far.
func (m *MockTransport) Sent() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}
