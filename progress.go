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

// ProgressFunc is invoked synchronously on the transfer goroutine once per
// accepted block with the total image length and the bytes transferred so
// far. It must return promptly and must not perform blocking I/O. A
// panicking reporter is contained by the session: the panic is logged once
// and the transfer continues.
type ProgressFunc func(totalBytes, bytesSent int64)

// ProgressTracker is a ProgressFunc helper that computes percentage and
// throughput and forwards throttled updates to a display callback. It is
// safe for concurrent reads (e.g. a UI goroutine polling Stats while the
// transfer goroutine updates).
type ProgressTracker struct {
	display    func(ProgressStats)
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stats      ProgressStats
	interval   time.Duration
	mu         syncutil.Mutex
}

// ProgressStats is a snapshot of transfer progress.
type ProgressStats struct {
	TotalBytes int64
	BytesSent  int64
	Percentage float64
	// Rate is the recent throughput in bytes per second.
	Rate    float64
	Elapsed time.Duration
}

// NewProgressTracker creates a tracker that forwards updates to display at
// most once per interval (plus a final update when the transfer total is
// reached). A zero interval defaults to 100ms.
func NewProgressTracker(display func(ProgressStats), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &ProgressTracker{
		display:  display,
		interval: interval,
	}
}

// Update is the ProgressFunc to pass to WithProgressFunc.
func (pt *ProgressTracker) Update(totalBytes, bytesSent int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	now := time.Now()
	if pt.startTime.IsZero() {
		pt.startTime = now
		pt.lastUpdate = now
	}

	pt.stats.TotalBytes = totalBytes
	pt.stats.BytesSent = bytesSent
	pt.stats.Elapsed = now.Sub(pt.startTime)
	if totalBytes > 0 {
		pt.stats.Percentage = 100 * float64(bytesSent) / float64(totalBytes)
		if pt.stats.Percentage > 100 {
			pt.stats.Percentage = 100
		}
	}

	final := totalBytes > 0 && bytesSent >= totalBytes
	if !final && now.Sub(pt.lastUpdate) < pt.interval {
		return
	}

	if elapsed := now.Sub(pt.lastUpdate).Seconds(); elapsed > 0 {
		pt.stats.Rate = float64(bytesSent-pt.lastBytes) / elapsed
	}
	pt.lastUpdate = now
	pt.lastBytes = bytesSent

	if pt.display != nil {
		pt.display(pt.stats)
	}
}

// Stats returns the latest snapshot.
func (pt *ProgressTracker) Stats() ProgressStats {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.stats
}
