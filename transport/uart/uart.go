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

// Package uart implements the transfer engine's Transport over a serial
// port via go.bug.st/serial.
package uart

import (
	"fmt"
	"time"

	ucxfw "github.com/u-blox/go-ucxfw"
	"go.bug.st/serial"
)

// Config holds the serial port parameters.
type Config struct {
	// BaudRate in bits per second. Defaults to 115200.
	BaudRate int
	// FlowControl enables RTS/CTS hardware flow control. u-blox EVKs
	// normally run the update channel with flow control on.
	FlowControl bool
}

// Option is a functional option for New.
type Option func(*Config)

// WithBaudRate sets the port speed.
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.BaudRate = baud
		}
	}
}

// WithFlowControl toggles RTS/CTS hardware flow control.
func WithFlowControl(enabled bool) Option {
	return func(c *Config) {
		c.FlowControl = enabled
	}
}

// Transport implements ucxfw.Transport for a serial port.
type Transport struct {
	port     serial.Port
	portName string
}

// New opens portName with the given options.
func New(portName string, opts ...Option) (*Transport, error) {
	config := &Config{BaudRate: 115200}
	for _, opt := range opts {
		opt(config)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if config.FlowControl {
		mode.InitialStatusBits = &serial.ModemOutputBits{RTS: true, DTR: true}
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s at %d baud: %w", ucxfw.ErrTransportOpen, portName, config.BaudRate, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// ReadByte implements ucxfw.Transport. The timeout is applied via the
// port's read timeout; a timed-out read reports ok=false with a nil error,
// matching the serial library's zero-bytes-on-timeout contract.
func (t *Transport) ReadByte(timeout time.Duration) (byte, bool, error) {
	if t.port == nil {
		return 0, false, ucxfw.ErrTransportClosed
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return 0, false, fmt.Errorf("set read timeout on %s: %w", t.portName, err)
	}

	var buf [1]byte
	n, err := t.port.Read(buf[:])
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", t.portName, err)
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// Write implements ucxfw.Transport, draining the OS buffer so block
// pacing is driven by the wire rather than kernel buffering.
func (t *Transport) Write(data []byte) (int, error) {
	if t.port == nil {
		return 0, ucxfw.ErrTransportClosed
	}

	n, err := t.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", t.portName, err)
	}
	if n != len(data) {
		return n, fmt.Errorf("short write on %s: %d of %d bytes", t.portName, n, len(data))
	}
	if err := t.port.Drain(); err != nil {
		return n, fmt.Errorf("drain %s: %w", t.portName, err)
	}
	return n, nil
}

// Flush implements ucxfw.Transport, discarding stale receive data such as
// leftover URC traffic from before the device entered update mode.
func (t *Transport) Flush() error {
	if t.port == nil {
		return ucxfw.ErrTransportClosed
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("flush %s: %w", t.portName, err)
	}
	return nil
}

// Close implements ucxfw.Transport.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected implements ucxfw.Transport.
func (t *Transport) IsConnected() bool {
	return t.port != nil
}

// Type implements ucxfw.Transport.
func (*Transport) Type() ucxfw.TransportType {
	return ucxfw.TransportUART
}

// Port returns the port name for error context.
func (t *Transport) Port() string {
	return t.portName
}

// Ensure Transport implements ucxfw.Transport
var _ ucxfw.Transport = (*Transport)(nil)
