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
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockSize_Properties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       BlockSize
		payloadLen int
		header     byte
		str        string
	}{
		{name: "small", size: BlockSizeSmall, payloadLen: 128, header: byteSOH, str: "128"},
		{name: "large", size: BlockSizeLarge, payloadLen: 1024, header: byteSTX, str: "1k"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.payloadLen, tt.size.PayloadLen())
			assert.Equal(t, tt.header, tt.size.Header())
			assert.Equal(t, tt.str, tt.size.String())
			assert.Equal(t, 3+tt.payloadLen+2, WireLen(tt.size))
		})
	}
}

func TestBuildBlock_FullChunk(t *testing.T) {
	t.Parallel()

	chunk := make([]byte, 128)
	for i := range chunk {
		chunk[i] = byte(i)
	}

	block, err := BuildBlock(1, chunk, BlockSizeSmall)
	require.NoError(t, err)

	assert.Equal(t, byteSOH, block.Header)
	assert.Equal(t, byte(1), block.Number)
	assert.Equal(t, byte(254), block.Complement)
	assert.Equal(t, chunk, block.Payload)
	assert.Equal(t, Checksum(chunk), block.CRC)
}

func TestBuildBlock_ShortChunkIsPadded(t *testing.T) {
	t.Parallel()

	chunk := []byte("tail of the image")
	block, err := BuildBlock(7, chunk, BlockSizeLarge)
	require.NoError(t, err)

	require.Len(t, block.Payload, 1024)
	assert.Equal(t, chunk, block.Payload[:len(chunk)])
	for i := len(chunk); i < 1024; i++ {
		require.Equal(t, bytePad, block.Payload[i], "byte %d not padded", i)
	}
	// CRC covers the padded payload, not the raw chunk.
	assert.Equal(t, Checksum(block.Payload), block.CRC)
}

func TestBuildBlock_ComplementInvariant(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 255; n++ {
		block, err := BuildBlock(byte(n), []byte{0x42}, BlockSizeSmall)
		require.NoError(t, err)
		assert.Equal(t, byte(255), block.Number+block.Complement)
	}
}

func TestBuildBlock_ChunkTooLarge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size BlockSize
		len  int
	}{
		{name: "129 into 128", size: BlockSizeSmall, len: 129},
		{name: "1025 into 1k", size: BlockSizeLarge, len: 1025},
		{name: "1k chunk into small block", size: BlockSizeSmall, len: 1024},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			block, err := BuildBlock(1, make([]byte, tt.len), tt.size)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrChunkTooLarge)
			assert.Nil(t, block)
		})
	}
}

func TestBlock_BytesLayout(t *testing.T) {
	t.Parallel()

	chunk := []byte{0xAA, 0xBB, 0xCC}
	block, err := BuildBlock(3, chunk, BlockSizeSmall)
	require.NoError(t, err)

	wire := block.Bytes()
	require.Len(t, wire, WireLen(BlockSizeSmall))

	assert.Equal(t, byteSOH, wire[0])
	assert.Equal(t, byte(3), wire[1])
	assert.Equal(t, byte(252), wire[2])
	assert.Equal(t, block.Payload, wire[3:3+128])
	assert.Equal(t, block.CRC, binary.BigEndian.Uint16(wire[3+128:]))
}

// Resends must be byte-for-byte identical, so serialization has to be
// deterministic for the same block.
func TestBlock_BytesDeterministic(t *testing.T) {
	t.Parallel()

	block, err := BuildBlock(9, []byte("firmware bits"), BlockSizeLarge)
	require.NoError(t, err)

	first := block.Bytes()
	for i := 0; i < 5; i++ {
		assert.True(t, bytes.Equal(first, block.Bytes()))
	}
}

func TestNextBlockNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(2), nextBlockNumber(1))
	assert.Equal(t, byte(255), nextBlockNumber(254))
	// Wrap skips zero.
	assert.Equal(t, byte(1), nextBlockNumber(255))
}
