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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	ucxfw "github.com/u-blox/go-ucxfw"
	"github.com/u-blox/go-ucxfw/detection"
	"github.com/u-blox/go-ucxfw/transport/uart"
)

var (
	flagPort             string
	flagBaud             int
	flagFlowControl      bool
	flagBlockSize        string
	flagBlockTimeout     time.Duration
	flagHandshakeTimeout time.Duration
	flagRetries          int
	flagAttempts         int
	flagQuiet            bool
	flagVerbose          bool
)

var sendCmd = &cobra.Command{
	Use:   "send [flags] <image>",
	Short: "Send a firmware image over XMODEM-CRC",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&flagPort, "port", "p", "", "serial port (auto-detect if empty)")
	sendCmd.Flags().IntVarP(&flagBaud, "baud", "b", 115200, "baud rate")
	sendCmd.Flags().BoolVar(&flagFlowControl, "flow-control", false, "enable RTS/CTS flow control")
	sendCmd.Flags().StringVar(&flagBlockSize, "block-size", "1k", "block size: 128 or 1k")
	sendCmd.Flags().DurationVar(&flagBlockTimeout, "block-timeout", 5*time.Second, "per-block reply timeout")
	sendCmd.Flags().DurationVar(&flagHandshakeTimeout, "handshake-timeout", 60*time.Second, "overall handshake timeout")
	sendCmd.Flags().IntVar(&flagRetries, "retries", 10, "per-block resend limit")
	sendCmd.Flags().IntVar(&flagAttempts, "attempts", 1, "complete transfer attempts")
	sendCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress the progress bar")
	sendCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log protocol details to stderr")
}

func runSend(cmd *cobra.Command, args []string) error {
	imagePath := args[0]

	blockSize, err := parseBlockSize(flagBlockSize)
	if err != nil {
		return err
	}

	portName := flagPort
	if portName == "" {
		portName, err = autoDetectPort(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "using auto-detected port %s\n", portName)
	}

	// First interrupt cancels the session gracefully; a second one kills
	// the process via the default handler.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retryConfig := ucxfw.SessionRetryConfig()
	retryConfig.MaxAttempts = flagAttempts

	result, err := ucxfw.RunWithRetry(ctx, retryConfig, func(ctx context.Context, attempt int) (*ucxfw.Result, error) {
		if attempt > 1 {
			fmt.Fprintf(os.Stderr, "retrying transfer (attempt %d of %d)\n", attempt, flagAttempts)
		}
		return runAttempt(ctx, portName, imagePath, blockSize)
	})

	return report(result, err)
}

// runAttempt performs one complete transfer: fresh transport, fresh
// session, fresh data source.
func runAttempt(ctx context.Context, portName, imagePath string, blockSize ucxfw.BlockSize) (*ucxfw.Result, error) {
	transport, err := uart.New(portName,
		uart.WithBaudRate(flagBaud),
		uart.WithFlowControl(flagFlowControl),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = transport.Close() }()

	src, err := ucxfw.NewFileSource(imagePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	opts := []ucxfw.Option{
		ucxfw.WithBlockSize(blockSize),
		ucxfw.WithBlockTimeout(flagBlockTimeout),
		ucxfw.WithHandshakeTimeout(flagHandshakeTimeout),
		ucxfw.WithMaxRetries(flagRetries),
	}
	if !flagQuiet {
		tracker := ucxfw.NewProgressTracker(renderProgress, 200*time.Millisecond)
		opts = append(opts, ucxfw.WithProgressFunc(tracker.Update))
	}
	if flagVerbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, ucxfw.WithLogger(ucxfw.SlogLogger{L: logger}))
	}

	session, err := ucxfw.NewSession(transport, opts...)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "waiting for the module to request the transfer (up to %s)...\n", flagHandshakeTimeout)
	return session.Run(ctx, src)
}

// report prints the outcome and maps it to the process exit code.
func report(result *ucxfw.Result, err error) error {
	if !flagQuiet {
		fmt.Fprintln(os.Stderr)
	}

	switch {
	case err == nil:
		fmt.Fprintf(os.Stderr, "transfer complete: %d bytes in %d blocks (%s, %d retries)\n",
			result.BytesSent, result.BlocksSent, result.Elapsed.Round(time.Millisecond), result.Retries)
		return nil
	case ucxfw.IsSoft(err):
		fmt.Fprintf(os.Stderr, "transfer finished but the final acknowledgement was lost: %v\n", err)
		fmt.Fprintln(os.Stderr, "the module may have applied the update anyway;")
		fmt.Fprintln(os.Stderr, "wait for it to reboot and verify the firmware version before retrying")
		os.Exit(exitUnverified)
		return nil
	default:
		if result != nil && result.BytesSent > 0 {
			fmt.Fprintf(os.Stderr, "transfer failed after %d of %d bytes\n", result.BytesSent, result.TotalBytes)
		}
		return err
	}
}

func renderProgress(stats ucxfw.ProgressStats) {
	fmt.Fprintf(os.Stderr, "\r%6.1f%%  %d / %d bytes  %8.1f kB/s",
		stats.Percentage, stats.BytesSent, stats.TotalBytes, stats.Rate/1000)
}

func parseBlockSize(s string) (ucxfw.BlockSize, error) {
	switch s {
	case "128":
		return ucxfw.BlockSizeSmall, nil
	case "1k", "1K", "1024":
		return ucxfw.BlockSizeLarge, nil
	default:
		return 0, fmt.Errorf("invalid block size %q (want 128 or 1k)", s)
	}
}

// autoDetectPort picks the highest-confidence candidate port.
func autoDetectPort(ctx context.Context) (string, error) {
	devices, err := detection.Detect(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("no port given and auto-detection failed: %w", err)
	}
	return devices[0].Path, nil
}
