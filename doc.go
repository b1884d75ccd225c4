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

// Package ucxfw sends firmware images to u-blox cellular and short-range
// modules over the XMODEM-CRC protocol used by their serial bootloaders.
//
// The module must already be in firmware-update mode (for example via
// AT+UFWUPD) before a transfer starts; putting it there is the caller's
// job, as is verifying the installed version afterwards. Once the module
// is polling for a sender, a transfer looks like:
//
//	transport, err := uart.New("/dev/ttyUSB0", uart.WithBaudRate(115200))
//	if err != nil { ... }
//	defer transport.Close()
//
//	src, err := ucxfw.NewFileSource("firmware.bin")
//	if err != nil { ... }
//	defer src.Close()
//
//	session, err := ucxfw.NewSession(transport,
//		ucxfw.WithBlockSize(ucxfw.BlockSizeLarge),
//		ucxfw.WithProgressFunc(tracker.Update),
//	)
//	if err != nil { ... }
//
//	result, err := session.Run(ctx, src)
//
// A Session is single-use and synchronous. Every block carries a
// CRC-16/CCITT trailer; refused or unanswered blocks are resent from a
// cached copy within a bounded retry budget, so the data source is read
// exactly once. Whole-transfer re-attempts (fresh session, fresh source)
// are available through RunWithRetry.
//
// Failed transfers surface a *TransferError whose kind can be tested with
// errors.Is. One outcome deserves care: IsSoft reports the case where
// every data block was acknowledged but the final end-of-transmission
// marker was not. The module may have installed the image anyway, so
// callers should verify device state rather than blindly re-flash.
package ucxfw
