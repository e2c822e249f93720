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
)

// PageAligned returns true for 4 kB aligned addresses.
func PageAligned(addr uint64) bool {
	return addr%constPagesize == 0
}

// HugePageAligned returns true for 2 MB aligned addresses.
func HugePageAligned(addr uint64) bool {
	return addr%constHugePagesize == 0
}

// PageAlignDown rounds addr down to a 4 kB boundary.
func PageAlignDown(addr uint64) uint64 {
	return addr &^ (constPagesize - 1)
}

// PageAlignUp rounds addr up to a 4 kB boundary.
func PageAlignUp(addr uint64) uint64 {
	return (addr + constPagesize - 1) &^ (constPagesize - 1)
}

// Available returns true if the kernel exposes the etmem procfs
// entries for the calling process.
func Available() bool {
	if _, err := os.Stat("/proc/self/idle_pages"); err != nil {
		return false
	}
	if _, err := os.Stat("/proc/self/swap_pages"); err != nil {
		return false
	}
	return true
}

// HasPermission returns true when running with the effective uid of
// root. Scan and swap operations require CAP_SYS_ADMIN.
func HasPermission() bool {
	return os.Geteuid() == 0
}

// Init checks availability and permissions, failing early instead of
// on the first session open.
func Init() error {
	if !Available() {
		return ErrModuleNotLoaded
	}
	if !HasPermission() {
		return ErrPermissionDenied
	}
	return nil
}
