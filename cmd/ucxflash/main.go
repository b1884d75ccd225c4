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

// ucxflash pushes a firmware image to a u-blox short-range module that is
// already in update mode. Switching the module into update mode is out of
// scope: run the appropriate software-update AT command first, then point
// ucxflash at the same port.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Process exit codes. Soft completion gets its own code so scripted
// flashes can branch to a device-state check instead of a blind retry.
const (
	exitOK = iota
	exitFailed
	exitUnverified
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ucxflash",
	Short: "Firmware flasher for u-blox short-range modules",
	Long: `ucxflash - push a firmware image to a u-blox short-range module.

The module must already be in update mode, polling for an XMODEM-CRC
handshake on the serial port. Example:

  ucxflash send --port /dev/ttyUSB0 --baud 115200 firmware.bin

If --port is omitted, send picks the highest-confidence candidate port
(use "ucxflash ports" to see the ranking).`,
	SilenceUsage: true,
	Version:      version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitFailed)
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(portsCmd)
}
