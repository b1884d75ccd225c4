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
	"encoding/binary"
	"fmt"
)

// XMODEM control bytes exchanged with the module's bootloader.
const (
	byteSOH byte = 0x01 // start of 128-byte block
	byteSTX byte = 0x02 // start of 1024-byte block
	byteEOT byte = 0x04 // end of transmission
	byteACK byte = 0x06
	byteNAK byte = 0x15
	byteCAN byte = 0x18 // receiver-issued cancel

	// byteCRCRequest is sent by the receiver during the handshake to
	// request CRC-16 mode. A plain NAK at that point requests the legacy
	// arithmetic-checksum mode, which this engine does not implement.
	byteCRCRequest byte = 'C'

	// bytePad fills the unused tail of the final block (CP/M EOF).
	bytePad byte = 0x1A
)

// BlockSize selects the framing mode for a whole session.
type BlockSize int

const (
	// BlockSizeSmall frames 128-byte payloads (SOH header).
	BlockSizeSmall BlockSize = iota
	// BlockSizeLarge frames 1024-byte payloads (STX header). Preferred for
	// firmware images; roughly 8x fewer ACK round trips.
	BlockSizeLarge
)

// PayloadLen returns the fixed payload length for the mode.
func (s BlockSize) PayloadLen() int {
	if s == BlockSizeLarge {
		return 1024
	}
	return 128
}

// Header returns the wire header byte identifying the mode.
func (s BlockSize) Header() byte {
	if s == BlockSizeLarge {
		return byteSTX
	}
	return byteSOH
}

func (s BlockSize) String() string {
	if s == BlockSizeLarge {
		return "1k"
	}
	return "128"
}

// Block is one framed unit of the transfer: header byte, block number and
// its one's complement, the fixed-length payload and the CRC trailer.
// A well-formed block always satisfies Number+Complement == 255; the
// receiver uses the pair to detect corrupted sequencing bytes.
type Block struct {
	Payload    []byte
	CRC        uint16
	Header     byte
	Number     byte
	Complement byte
}

// BuildBlock frames a chunk of image data as block number for the given
// mode. Chunks shorter than the mode's payload length are padded; only the
// final chunk of an image may be short. A chunk longer than the payload
// length means the data source chunked incorrectly, which is a programming
// error rather than a runtime condition, and is reported as
// ErrChunkTooLarge.
func BuildBlock(number byte, chunk []byte, size BlockSize) (*Block, error) {
	payloadLen := size.PayloadLen()
	if len(chunk) > payloadLen {
		return nil, fmt.Errorf("%w: %d bytes into %d-byte %s block",
			ErrChunkTooLarge, len(chunk), payloadLen, size)
	}

	payload := make([]byte, payloadLen)
	n := copy(payload, chunk)
	for i := n; i < payloadLen; i++ {
		payload[i] = bytePad
	}

	return &Block{
		Header:     size.Header(),
		Number:     number,
		Complement: 255 - number,
		Payload:    payload,
		CRC:        Checksum(payload),
	}, nil
}

// Bytes serializes the block for the wire:
// header | number | complement | payload | crc_hi | crc_lo.
func (b *Block) Bytes() []byte {
	wire := make([]byte, 0, 3+len(b.Payload)+2)
	wire = append(wire, b.Header, b.Number, b.Complement)
	wire = append(wire, b.Payload...)
	wire = binary.BigEndian.AppendUint16(wire, b.CRC)
	return wire
}

// WireLen returns the serialized length of a block in the given mode.
func WireLen(size BlockSize) int {
	return 3 + size.PayloadLen() + 2
}

// nextBlockNumber advances the wrapping block counter. Numbering starts at
// 1 and wraps 255 -> 1, skipping 0 per the protocol convention.
func nextBlockNumber(n byte) byte {
	if n == 255 {
		return 1
	}
	return n + 1
}
