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

// Package detection enumerates serial ports that plausibly carry a u-blox
// module's update channel. Detection is passive: ports are ranked by USB
// descriptor only, never probed, since writing to the wrong port while a
// bootloader polls for a handshake could start an unwanted transfer.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Confidence ranks how likely a port is to be a u-blox update channel.
type Confidence int

const (
	// Low confidence: a serial port with no identifying USB metadata.
	Low Confidence = iota
	// Medium confidence: a USB-serial bridge commonly found on EVKs.
	Medium
	// High confidence: a port with the u-blox vendor ID.
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a candidate port.
type DeviceInfo struct {
	// Path is the port path, e.g. "/dev/ttyUSB0" or "COM7".
	Path string
	// Name is a human-readable product string when the descriptor has one.
	Name string
	// VIDPID is "VID:PID" in hex for USB ports, empty otherwise.
	VIDPID string
	// Confidence ranks the candidate.
	Confidence Confidence
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	if d.VIDPID != "" {
		return fmt.Sprintf("%s (%s, usb %s, confidence %s)", d.Path, d.Name, d.VIDPID, d.Confidence)
	}
	return fmt.Sprintf("%s (confidence %s)", d.Path, d.Confidence)
}

// Options configures detection.
type Options struct {
	// Blocklist is USB VID:PID pairs to skip.
	Blocklist []string
	// IgnorePaths is device paths to skip, e.g. a port known to carry the
	// AT command channel of a dual-port EVK.
	IgnorePaths []string
}

// ErrNoDevicesFound indicates no candidate ports were detected.
var ErrNoDevicesFound = errors.New("no candidate serial ports found")

// usbVendorUblox is the u-blox USB vendor ID.
const usbVendorUblox = "1546"

// bridgeVendors are USB-serial bridge chips used on u-blox EVKs.
var bridgeVendors = map[string]string{
	"10C4": "Silicon Labs CP210x",
	"0403": "FTDI",
	"067B": "Prolific",
}

// Detect lists candidate ports ordered by descending confidence. The
// context bounds the underlying enumeration.
func Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []DeviceInfo
	for _, port := range ports {
		if isIgnoredPath(port.Name, opts.IgnorePaths) {
			continue
		}

		info := DeviceInfo{Path: port.Name}
		if port.IsUSB {
			info.VIDPID = strings.ToUpper(port.VID) + ":" + strings.ToUpper(port.PID)
			if IsBlocked(info.VIDPID, opts.Blocklist) {
				continue
			}
			info.Name = port.Product
			info.Confidence = classifyUSB(strings.ToUpper(port.VID))
		}
		devices = append(devices, info)
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}

	sortByConfidence(devices)
	return devices, nil
}

func classifyUSB(vid string) Confidence {
	if vid == usbVendorUblox {
		return High
	}
	if _, ok := bridgeVendors[vid]; ok {
		return Medium
	}
	return Low
}

func isIgnoredPath(path string, ignorePaths []string) bool {
	for _, p := range ignorePaths {
		if path == p {
			return true
		}
	}
	return false
}

func sortByConfidence(devices []DeviceInfo) {
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}
