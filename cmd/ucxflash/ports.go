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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/u-blox/go-ucxfw/detection"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that look like module candidates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		devices, err := detection.Detect(cmd.Context(), nil)
		if errors.Is(err, detection.ErrNoDevicesFound) {
			fmt.Fprintln(os.Stderr, "no serial ports found")
			return nil
		}
		if err != nil {
			return err
		}
		for _, dev := range devices {
			fmt.Printf("%-20s %-10s %s\n", dev.Path, dev.Confidence, dev.Name)
		}
		return nil
	},
}
