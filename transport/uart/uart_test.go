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

package uart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ucxfw "github.com/u-blox/go-ucxfw"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	config := &Config{BaudRate: 115200}

	WithBaudRate(921600)(config)
	assert.Equal(t, 921600, config.BaudRate)

	WithBaudRate(0)(config)
	assert.Equal(t, 921600, config.BaudRate, "non-positive baud rates are ignored")

	WithFlowControl(true)(config)
	assert.True(t, config.FlowControl)
}

func TestTransport_ClosedPort(t *testing.T) {
	t.Parallel()

	tr := &Transport{portName: "/dev/null"}

	_, ok, err := tr.ReadByte(time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ucxfw.ErrTransportClosed)

	_, err = tr.Write([]byte{0x01})
	assert.ErrorIs(t, err, ucxfw.ErrTransportClosed)

	assert.ErrorIs(t, tr.Flush(), ucxfw.ErrTransportClosed)
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close(), "closing twice is fine")
}

func TestNew_BadPort(t *testing.T) {
	t.Parallel()

	tr, err := New("/nonexistent/port-for-test")
	require.Error(t, err)
	assert.ErrorIs(t, err, ucxfw.ErrTransportOpen)
	assert.Nil(t, tr)
}

func TestTransport_Type(t *testing.T) {
	t.Parallel()

	tr := &Transport{portName: "/dev/ttyUSB0"}
	assert.Equal(t, ucxfw.TransportUART, tr.Type())
	assert.Equal(t, "/dev/ttyUSB0", tr.Port())
}
