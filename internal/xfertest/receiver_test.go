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

package xfertest

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds a well-formed 128-byte block for the simulator.
func frame(number byte, data []byte) []byte {
	payload := make([]byte, 128)
	n := copy(payload, data)
	for i := n; i < len(payload); i++ {
		payload[i] = Pad
	}

	wire := []byte{SOH, number, 255 - number}
	wire = append(wire, payload...)
	return binary.BigEndian.AppendUint16(wire, crc16(payload))
}

// drain reads every pending reply byte.
func drain(t *testing.T, r *Receiver) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func TestReceiver_DefaultHandshake(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{})
	assert.Equal(t, []byte{CRCRequest}, drain(t, r))

	silent := NewReceiver(Behavior{Silent: true})
	assert.Empty(t, drain(t, silent))

	legacy := NewReceiver(Behavior{Handshake: []byte{NAK}})
	assert.Equal(t, []byte{NAK}, drain(t, legacy))
}

func TestReceiver_AcceptsValidBlock(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true})
	_, err := r.Write(frame(1, []byte("data")))
	require.NoError(t, err)

	assert.Equal(t, []byte{ACK}, drain(t, r))
	assert.Equal(t, 1, r.Accepted())
	assert.Equal(t, []byte("data"), r.Image())
}

func TestReceiver_RejectsCorruptBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{name: "bad complement", mutate: func(f []byte) { f[2] ^= 0xFF }},
		{name: "bad CRC", mutate: func(f []byte) { f[len(f)-1] ^= 0x01 }},
		{name: "flipped payload bit", mutate: func(f []byte) { f[10] ^= 0x80 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := frame(1, []byte("data"))
			tt.mutate(f)

			r := NewReceiver(Behavior{Silent: true})
			_, err := r.Write(f)
			require.NoError(t, err)

			assert.Equal(t, []byte{NAK}, drain(t, r))
			assert.Zero(t, r.Accepted())
		})
	}
}

func TestReceiver_PartialFrameWaitsForRest(t *testing.T) {
	t.Parallel()

	f := frame(1, []byte("split"))
	r := NewReceiver(Behavior{Silent: true})

	_, err := r.Write(f[:40])
	require.NoError(t, err)
	assert.Empty(t, drain(t, r), "no reply until the frame completes")

	_, err = r.Write(f[40:])
	require.NoError(t, err)
	assert.Equal(t, []byte{ACK}, drain(t, r))
}

func TestReceiver_DuplicateBlockReACKedNotStored(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true})
	f := frame(1, []byte("once"))

	_, err := r.Write(f)
	require.NoError(t, err)
	_, err = r.Write(f) // sender missed our ACK and resent
	require.NoError(t, err)

	assert.Equal(t, []byte{ACK, ACK}, drain(t, r))
	assert.Equal(t, 1, r.Accepted())
	require.Len(t, r.Payloads(), 1)
}

func TestReceiver_NAKFirstScript(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true, NAKFirst: map[byte]int{1: 2}})
	f := frame(1, []byte("persistent"))

	for i := 0; i < 3; i++ {
		_, err := r.Write(f)
		require.NoError(t, err)
	}

	assert.Equal(t, []byte{NAK, NAK, ACK}, drain(t, r))
	assert.Equal(t, 1, r.Accepted())
}

func TestReceiver_CancelAtBlock(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true, CancelAtBlock: 2})

	_, err := r.Write(frame(1, []byte("one")))
	require.NoError(t, err)
	_, err = r.Write(frame(2, []byte("two")))
	require.NoError(t, err)
	// Nothing after a cancel is processed.
	_, err = r.Write(frame(3, []byte("three")))
	require.NoError(t, err)

	assert.Equal(t, []byte{ACK, CAN}, drain(t, r))
	assert.Equal(t, 1, r.Accepted())
}

func TestReceiver_EOTHandling(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true, EOTNAKs: 1})

	_, err := r.Write([]byte{EOT})
	require.NoError(t, err)
	_, err = r.Write([]byte{EOT})
	require.NoError(t, err)

	assert.Equal(t, []byte{NAK, ACK}, drain(t, r))
	assert.Equal(t, 2, r.EOTSeen())

	dropped := NewReceiver(Behavior{Silent: true, DropEOTReplies: true})
	_, err = dropped.Write([]byte{EOT})
	require.NoError(t, err)
	assert.Empty(t, drain(t, dropped))
	assert.Equal(t, 1, dropped.EOTSeen())
}

func TestReceiver_ImageTrimsPadding(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true})
	_, err := r.Write(frame(1, []byte("short tail")))
	require.NoError(t, err)

	assert.Equal(t, []byte("short tail"), r.Image())
	// The stored payload keeps its padding.
	require.Len(t, r.Payloads(), 1)
	assert.Len(t, r.Payloads()[0], 128)
}

func TestReceiver_GarbageByteNAKed(t *testing.T) {
	t.Parallel()

	r := NewReceiver(Behavior{Silent: true})
	_, err := r.Write([]byte{0x7F})
	require.NoError(t, err)

	assert.Equal(t, []byte{NAK}, drain(t, r))
}
