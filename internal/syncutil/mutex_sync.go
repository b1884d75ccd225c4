//go:build !deadlock

// Package syncutil provides mutex types with optional deadlock detection.
// Default builds use standard sync mutexes with zero overhead; build with
// -tags=deadlock to swap in github.com/sasha-s/go-deadlock, which is
// useful when debugging hangs between a transfer goroutine and a UI
// goroutine sharing a progress tracker.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.Mutex to expose its interface
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.RWMutex to expose its interface
type RWMutex struct {
	sync.RWMutex
}
