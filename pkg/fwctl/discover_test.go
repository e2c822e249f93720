// Copyright 2022 Intel Corporation. All Rights Reserved.
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

package fwctl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDeviceID(t *testing.T) {
	tcases := []struct {
		name         string
		expectedChip uint32
		expectedDie  uint32
		expectError  bool
	}{
		{name: "fwctl00", expectedChip: 0, expectedDie: 0},
		{name: "fwctl0001", expectedChip: 0, expectedDie: 1},
		{name: "fwctl00010001", expectedChip: 1, expectedDie: 1},
		{name: "fwctlFFFF0000", expectedChip: 65535, expectedDie: 0},
		{name: "fwctl", expectError: true},
		{name: "fwctlxyz", expectError: true},
		{name: "invalid", expectError: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			chip, die, err := parseDeviceID(tc.name)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedChip, chip)
			require.Equal(t, tc.expectedDie, die)
		})
	}
}

func TestParseUevent(t *testing.T) {
	driver, entity := parseUevent("MAJOR=240\nDRIVER=ubase\nUB_ENTITY_NAME=entity_0\n")
	require.Equal(t, "ubase", driver)
	require.Equal(t, "entity_0", entity)

	driver, entity = parseUevent("DRIVER=other\nNO_EQUALS_LINE\n")
	require.Equal(t, "other", driver)
	require.Equal(t, "", entity)
}

// prepareDevices builds scratch /dev and /sys/class trees with the
// given device nodes and uevent contents.
func prepareDevices(t *testing.T, devices map[string]string) {
	t.Helper()
	dev := filepath.Join(t.TempDir(), "dev")
	sys := filepath.Join(t.TempDir(), "sys")
	require.NoError(t, os.MkdirAll(dev, 0755))

	for name, uevent := range devices {
		require.NoError(t, os.WriteFile(filepath.Join(dev, name), nil, 0644))
		if uevent != "" {
			deviceDir := filepath.Join(sys, name, "device")
			require.NoError(t, os.MkdirAll(deviceDir, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(deviceDir, "uevent"), []byte(uevent), 0644))
		}
	}

	savedDev, savedSys := devDir, sysClassDir
	devDir, sysClassDir = dev, sys
	t.Cleanup(func() { devDir, sysClassDir = savedDev, savedSys })
}

func TestListDevices(t *testing.T) {
	prepareDevices(t, map[string]string{
		"fwctl00010000": "DRIVER=ubase\nUB_ENTITY_NAME=entity_1\n",
		"fwctl00":       "DRIVER=ubase\nUB_ENTITY_NAME=entity_0\n",
		"fwctl0001":     "DRIVER=other\nUB_ENTITY_NAME=entity_x\n",
		"fwctl0002":     "", // no sysfs entry
		"unrelated":     "DRIVER=ubase\nUB_ENTITY_NAME=entity_y\n",
	})

	devices, err := ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	// Sorted by chip, then die.
	require.Equal(t, uint32(0), devices[0].ChipID)
	require.Equal(t, "entity_0", devices[0].EntityName)
	require.Equal(t, uint32(1), devices[1].ChipID)
	require.Equal(t, "entity_1", devices[1].EntityName)
}

func TestListDevicesMissingDir(t *testing.T) {
	prepareDevices(t, nil)
	require.NoError(t, os.RemoveAll(devDir))

	devices, err := ListDevices()
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestFindDevicePath(t *testing.T) {
	prepareDevices(t, map[string]string{
		"fwctl00010002": "DRIVER=ubase\nUB_ENTITY_NAME=entity_1\n",
	})

	path, err := findDevicePath(1, 2)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(devDir, "fwctl00010002"), path)

	_, err = findDevicePath(7, 7)
	require.Error(t, err)
}
