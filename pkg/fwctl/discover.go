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
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Filesystem locations, variables so tests can redirect them.
var (
	devDir      = "/dev/fwctl"
	sysClassDir = "/sys/class/fwctl"
)

const (
	devPrefix    = "fwctl"
	ueventDriver = "DRIVER"
	ueventEntity = "UB_ENTITY_NAME"
	// driverName is the kernel driver expected to bind the device.
	driverName = "ubase"
)

// parseDeviceID extracts the chip and die ID from a device node name.
// The name encodes (chip << 16 | die) in hexadecimal after the prefix.
func parseDeviceID(name string) (uint32, uint32, error) {
	numStr := strings.TrimPrefix(name, devPrefix)
	if numStr == name || numStr == "" {
		return 0, 0, errors.Errorf("invalid device name %q", name)
	}
	num, err := strconv.ParseUint(numStr, 16, 32)
	if err != nil {
		return 0, 0, errors.Errorf("invalid device number %q", numStr)
	}
	return uint32(num >> 16), uint32(num & 0xFFFF), nil
}

// parseUevent extracts the bound driver and entity name from uevent
// file content.
func parseUevent(content string) (driver, entity string) {
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case ueventDriver:
			driver = strings.TrimSpace(value)
		case ueventEntity:
			entity = strings.TrimSpace(value)
		}
	}
	return driver, entity
}

// entityName returns the entity name of a device node bound to the
// expected driver, or "" if the device is not ours.
func entityName(deviceName string) string {
	content, err := os.ReadFile(filepath.Join(sysClassDir, deviceName, "device", "uevent"))
	if err != nil {
		return ""
	}
	driver, entity := parseUevent(string(content))
	if driver != driverName || entity == "" {
		return ""
	}
	return entity
}

// findDevicePath locates the device node of a chip/die pair.
func findDevicePath(chipID, dieID uint32) (string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return "", errors.Wrapf(err, "no fwctl devices")
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, devPrefix) {
			continue
		}
		chip, die, err := parseDeviceID(name)
		if err != nil {
			continue
		}
		if chip == chipID && die == dieID {
			return filepath.Join(devDir, name), nil
		}
	}
	return "", errors.Errorf("no fwctl device for chip %d die %d", chipID, dieID)
}

// ListDevices enumerates device nodes bound to the expected driver
// without opening them, sorted by chip and die ID. Nodes with
// malformed names are collected into the returned error alongside any
// found devices.
func ListDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list %s", devDir)
	}

	var devices []DeviceInfo
	var errs *multierror.Error
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, devPrefix) {
			continue
		}
		entity := entityName(name)
		if entity == "" {
			continue
		}
		chip, die, err := parseDeviceID(name)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		devices = append(devices, DeviceInfo{
			ChipID:     chip,
			DieID:      die,
			Path:       filepath.Join(devDir, name),
			EntityName: entity,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].ChipID != devices[j].ChipID {
			return devices[i].ChipID < devices[j].ChipID
		}
		return devices[i].DieID < devices[j].DieID
	})
	return devices, errs.ErrorOrNil()
}
