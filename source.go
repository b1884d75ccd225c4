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
	"errors"
	"fmt"
	"io"
	"os"
)

// DataSource yields sequential chunks of the firmware image. Each call to
// NextChunk advances the internal offset by the length of the returned
// chunk. An empty chunk with a nil error signals end of data. Sources are
// finite and not restartable: a failed transfer must recreate its source
// to retry from the start.
type DataSource interface {
	// NextChunk returns the next chunk of at most maxLen bytes. Only the
	// final chunk of an image may be shorter than maxLen.
	NextChunk(maxLen int) ([]byte, error)

	// Size returns the total image length in bytes, used for progress
	// reporting.
	Size() int64
}

// ChunkFunc is the callback contract for CallbackSource: return up to
// maxLen bytes starting at offset, an empty slice at end of data, or an
// error to abort the transfer.
type ChunkFunc func(offset int64, maxLen int) ([]byte, error)

// CallbackSource adapts a caller-supplied chunk callback to DataSource.
type CallbackSource struct {
	fn     ChunkFunc
	size   int64
	offset int64
	done   bool
}

// NewCallbackSource creates a callback-backed source. size is the total
// image length reported to the progress callback.
func NewCallbackSource(size int64, fn ChunkFunc) *CallbackSource {
	return &CallbackSource{fn: fn, size: size}
}

// NextChunk implements DataSource.
func (s *CallbackSource) NextChunk(maxLen int) ([]byte, error) {
	if s.done {
		return nil, nil
	}

	chunk, err := s.fn(s.offset, maxLen)
	if err != nil {
		s.done = true
		return nil, fmt.Errorf("%w: callback at offset %d: %w", ErrDataSource, s.offset, err)
	}
	if len(chunk) > maxLen {
		s.done = true
		return nil, fmt.Errorf("%w: callback returned %d bytes, asked for at most %d",
			ErrDataSource, len(chunk), maxLen)
	}
	if len(chunk) == 0 {
		s.done = true
		return nil, nil
	}

	s.offset += int64(len(chunk))
	return chunk, nil
}

// Size implements DataSource.
func (s *CallbackSource) Size() int64 {
	return s.size
}

// ReaderSource streams an io.Reader with a known total size.
type ReaderSource struct {
	r    io.Reader
	size int64
	done bool
}

// NewReaderSource creates a reader-backed source. size is the total image
// length; the reader is expected to yield exactly that many bytes.
func NewReaderSource(r io.Reader, size int64) *ReaderSource {
	return &ReaderSource{r: r, size: size}
}

// NextChunk implements DataSource.
func (s *ReaderSource) NextChunk(maxLen int) ([]byte, error) {
	if s.done {
		return nil, nil
	}

	buf := make([]byte, maxLen)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case errors.Is(err, io.EOF):
		s.done = true
		return nil, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Partial final chunk.
		s.done = true
		return buf[:n], nil
	case err != nil:
		s.done = true
		return nil, fmt.Errorf("%w: read: %w", ErrDataSource, err)
	}
	return buf[:n], nil
}

// Size implements DataSource.
func (s *ReaderSource) Size() int64 {
	return s.size
}

// FileSource reads a firmware image from disk. Close it after the session
// reaches a terminal state.
type FileSource struct {
	f *os.File
	ReaderSource
}

// NewFileSource opens path and stats it for the total size.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDataSource, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrDataSource, path, err)
	}

	return &FileSource{
		f:            f,
		ReaderSource: ReaderSource{r: f, size: info.Size()},
	}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close firmware image: %w", err)
	}
	return nil
}
