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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum_KnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "empty input",
			data:     nil,
			expected: 0x0000,
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x0000,
		},
		{
			name:     "single 0xFF",
			data:     []byte{0xFF},
			expected: 0x1EF0,
		},
		{
			name:     "ASCII A",
			data:     []byte{'A'},
			expected: 0x58E5,
		},
		{
			name:     "123456789 check string",
			data:     []byte("123456789"),
			expected: 0x31C3,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Checksum(tt.data))
		})
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	t.Parallel()

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i * 7)
	}

	first := Checksum(data)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Checksum(data))
	}
}

// A single flipped bit anywhere in the payload must change the checksum,
// otherwise corrupted blocks slip past the receiver.
func TestChecksum_SingleBitSensitivity(t *testing.T) {
	t.Parallel()

	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i)
	}
	baseline := Checksum(data)

	for pos := 0; pos < len(data); pos++ {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(data))
			copy(mutated, data)
			mutated[pos] ^= 1 << bit
			assert.NotEqual(t, baseline, Checksum(mutated),
				"flip of bit %d at byte %d went undetected", bit, pos)
		}
	}
}

func TestChecksum_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	saved := make([]byte, len(data))
	copy(saved, data)

	_ = Checksum(data)
	assert.Equal(t, saved, data)
}
