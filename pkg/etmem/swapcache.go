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

package etmem

import (
	"os"
	"strings"
)

// kernelSwapEnablePath is the system-wide sysfs toggle for kernel
// swap. Variable so that tests can point it at a scratch file.
var kernelSwapEnablePath = "/sys/kernel/mm/swap/kernel_swap_enable"

// KernelSwapEnabled reads the system-wide kernel swap toggle.
func KernelSwapEnabled() (bool, error) {
	data, err := os.ReadFile(kernelSwapEnablePath)
	if err != nil {
		return false, osError(err, "read %s", kernelSwapEnablePath)
	}
	value := strings.TrimSpace(string(data))
	return value == "true" || value == "1" || value == "enabled", nil
}

// SetKernelSwapEnabled writes the system-wide kernel swap toggle.
func SetKernelSwapEnabled(enable bool) error {
	value := "false"
	if enable {
		value = "true"
	}
	if err := os.WriteFile(kernelSwapEnablePath, []byte(value), 0600); err != nil {
		return osError(err, "write %s", kernelSwapEnablePath)
	}
	return nil
}
