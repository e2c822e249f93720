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
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// lockDir holds the per-port-pair lock files. Variable for tests.
var lockDir = "/dev/shm"

// portLock serializes measurements of one port pair across processes.
// The firmware counters are shared per pair, so a concurrent
// measurement would corrupt both results.
type portLock struct {
	file *os.File
}

func lockPortPair(chipID, dieID, port uint32) (*portLock, error) {
	path := filepath.Join(lockDir,
		fmt.Sprintf("ubctl_%d_%d_nl_%d", chipID, dieID, port/portsPerPair))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open lock %s", path)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "port pair %d/%d busy", port/portsPerPair*2, port/portsPerPair*2+1)
	}
	return &portLock{file: file}, nil
}

func (l *portLock) release() {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
}

// MeasurePort runs one two-phase measurement on an open device: the
// config command starts the counters, the query command reads them
// after the interval has elapsed.
func (d *Device) MeasurePort(port, timeMS uint32) (PerfResult, error) {
	if err := ValidateMeasureTime(timeMS); err != nil {
		return PerfResult{}, err
	}
	if err := d.configurePerf(port, timeMS); err != nil {
		return PerfResult{}, err
	}
	sample, err := d.queryPerf(port)
	if err != nil {
		return PerfResult{}, err
	}
	return computePerfResult(sample, timeMS), nil
}

// Measure opens the device of the given chip and die, takes the
// per-port-pair lock and runs one bandwidth/latency measurement.
func Measure(chipID, dieID, port, timeMS uint32) (PerfResult, error) {
	if err := ValidateMeasureTime(timeMS); err != nil {
		return PerfResult{}, err
	}

	lock, err := lockPortPair(chipID, dieID, port)
	if err != nil {
		return PerfResult{}, err
	}
	defer lock.release()

	device, err := OpenDevice(chipID, dieID)
	if err != nil {
		return PerfResult{}, err
	}
	defer device.Close()

	return device.MeasurePort(port, timeMS)
}
