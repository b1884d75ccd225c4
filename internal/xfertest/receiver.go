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

// Package xfertest provides a wire-level XMODEM-CRC receiver simulator.
//
// Receiver implements io.ReadWriter: bytes written to it are parsed as the
// sender's wire stream (blocks and EOT markers) and reply bytes (the
// handshake request, ACK, NAK, CAN) become readable. Test adapters wrap it
// into the engine's Transport interface. The simulator validates block
// numbers, complements and CRCs exactly like a module bootloader, so
// engine tests exercise the real wire format rather than canned replies.
package xfertest

import (
	"encoding/binary"
	"fmt"

	"github.com/u-blox/go-ucxfw/internal/syncutil"
)

// Wire bytes understood by the simulator.
const (
	SOH byte = 0x01
	STX byte = 0x02
	EOT byte = 0x04
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
	// CRCRequest is the handshake byte requesting CRC-16 mode.
	CRCRequest byte = 'C'
	// Pad fills the unused tail of a final block.
	Pad byte = 0x1A
)

// Behavior scripts how the simulated receiver responds.
type Behavior struct {
	// Handshake is emitted before any sender traffic. Defaults to a single
	// CRCRequest; set to e.g. {NAK} for a legacy checksum-mode receiver,
	// {CAN} for an immediate cancel, or Silent for no handshake at all.
	Handshake []byte

	// Silent suppresses the default handshake.
	Silent bool

	// NAKFirst maps a wire block number to the count of times that block
	// is refused before being accepted.
	NAKFirst map[byte]int

	// CancelAtBlock replies CAN when the Nth accepted-so-far+1 data block
	// arrives (1-based ordinal over distinct blocks). Zero disables.
	CancelAtBlock int

	// EOTNAKs refuses the first n end-of-transmission markers.
	EOTNAKs int

	// DropEOTReplies never answers EOT at all.
	DropEOTReplies bool
}

// Receiver is the simulated module bootloader.
type Receiver struct {
	behavior Behavior

	pending []byte // reply bytes awaiting Read
	buf     []byte // partial sender frame
	refused map[byte]int

	payloads   [][]byte
	accepted   int
	lastNumber byte
	eotSeen    int
	cancelled  bool

	mu syncutil.Mutex
}

// NewReceiver creates a simulator with the given behavior.
func NewReceiver(behavior Behavior) *Receiver {
	r := &Receiver{
		behavior: behavior,
		refused:  make(map[byte]int),
	}
	if !behavior.Silent {
		hs := behavior.Handshake
		if hs == nil {
			hs = []byte{CRCRequest}
		}
		r.pending = append(r.pending, hs...)
	}
	return r
}

// Read returns queued reply bytes, 0 when none are pending.
func (r *Receiver) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return 0, nil
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Write consumes sender wire bytes, advancing the receiver state machine.
func (r *Receiver) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, p...)
	for r.consume() {
	}
	return len(p), nil
}

// consume processes one complete frame from the buffer, reporting whether
// progress was made.
func (r *Receiver) consume() bool {
	if r.cancelled || len(r.buf) == 0 {
		return false
	}

	switch r.buf[0] {
	case EOT:
		r.buf = r.buf[1:]
		r.eotSeen++
		switch {
		case r.behavior.DropEOTReplies:
		case r.eotSeen <= r.behavior.EOTNAKs:
			r.pending = append(r.pending, NAK)
		default:
			r.pending = append(r.pending, ACK)
		}
		return true
	case SOH, STX:
		payloadLen := 128
		if r.buf[0] == STX {
			payloadLen = 1024
		}
		wireLen := 3 + payloadLen + 2
		if len(r.buf) < wireLen {
			return false
		}
		frame := r.buf[:wireLen]
		r.buf = r.buf[wireLen:]
		r.handleBlock(frame, payloadLen)
		return true
	default:
		// Unframed garbage; a real bootloader NAKs and resynchronizes.
		r.buf = r.buf[1:]
		r.pending = append(r.pending, NAK)
		return true
	}
}

// handleBlock validates one data block and queues the scripted reply.
func (r *Receiver) handleBlock(frame []byte, payloadLen int) {
	number := frame[1]
	complement := frame[2]
	payload := frame[3 : 3+payloadLen]
	crc := binary.BigEndian.Uint16(frame[3+payloadLen:])

	if complement != 255-number || crc != crc16(payload) {
		r.pending = append(r.pending, NAK)
		return
	}

	if r.behavior.CancelAtBlock > 0 && number != r.lastNumber && r.accepted+1 >= r.behavior.CancelAtBlock {
		r.cancelled = true
		r.pending = append(r.pending, CAN)
		return
	}

	if r.refused[number] < r.behavior.NAKFirst[number] {
		r.refused[number]++
		r.pending = append(r.pending, NAK)
		return
	}

	if number == r.lastNumber {
		// Duplicate of an already acknowledged block (our ACK was lost);
		// acknowledge again without storing.
		r.pending = append(r.pending, ACK)
		return
	}

	cp := make([]byte, payloadLen)
	copy(cp, payload)
	r.payloads = append(r.payloads, cp)
	r.accepted++
	r.lastNumber = number
	r.pending = append(r.pending, ACK)
}

// Payloads returns the accepted padded block payloads in order.
func (r *Receiver) Payloads() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// Image reassembles the accepted payloads and trims trailing padding,
// approximating what the bootloader writes to flash.
func (r *Receiver) Image() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var img []byte
	for _, p := range r.payloads {
		img = append(img, p...)
	}
	for len(img) > 0 && img[len(img)-1] == Pad {
		img = img[:len(img)-1]
	}
	return img
}

// Accepted returns the count of distinct accepted data blocks.
func (r *Receiver) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

// EOTSeen returns how many end-of-transmission markers arrived.
func (r *Receiver) EOTSeen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eotSeen
}

// InjectReply queues arbitrary reply bytes, e.g. a mid-transfer CAN.
func (r *Receiver) InjectReply(bytes ...byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, bytes...)
}

// String describes the receiver state for test failure messages.
func (r *Receiver) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("receiver{accepted=%d eot=%d cancelled=%v}", r.accepted, r.eotSeen, r.cancelled)
}

// crc16 is CRC-16/CCITT with zero seed, matching the sender's trailer.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
