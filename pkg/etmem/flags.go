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
	"strings"

	"golang.org/x/sys/unix"
)

// ScanFlags selects what the kernel reports during an idle page scan.
// The kernel reuses open(2) flag bits that are meaningless on a procfs
// read-only file, plus a few bits of its own.
type ScanFlags uint32

const (
	// ScanHugePage reports only huge pages.
	ScanHugePage ScanFlags = ScanFlags(unix.O_NONBLOCK)
	// ScanSkimIdle stops descending into a PMD whose PTEs are all
	// idle.
	ScanSkimIdle ScanFlags = ScanFlags(unix.O_NOFOLLOW)
	// ScanDirtyPage reports the PTE/PMD dirty bit.
	ScanDirtyPage ScanFlags = ScanFlags(unix.O_NOATIME)
	// ScanAsHuge treats normal pages as huge when scanning a VM.
	ScanAsHuge ScanFlags = 0o100000000
	// ScanIgnHost ignores host-side accesses when scanning a VM.
	ScanIgnHost ScanFlags = 0o200000000
	// VMScanHost scans the host side for VM hole detection.
	VMScanHost ScanFlags = 0o400000000
	// VMAScanFlag scans a single VMA instead of the whole process.
	VMAScanFlag ScanFlags = 0x1000
)

// scanFlagUniverse is the closed set of known flags. Anything outside
// it is rejected by Valid.
var scanFlagUniverse = ScanHugePage | ScanSkimIdle | ScanDirtyPage |
	ScanAsHuge | ScanIgnHost | VMScanHost | VMAScanFlag

var scanFlagNames = []struct {
	flag ScanFlags
	name string
}{
	{ScanHugePage, "huge-only"},
	{ScanSkimIdle, "skim-idle"},
	{ScanDirtyPage, "dirty-report"},
	{ScanAsHuge, "as-huge"},
	{ScanIgnHost, "ignore-host"},
	{VMScanHost, "vm-scan-host"},
	{VMAScanFlag, "vma-scan"},
}

// Valid returns true if no bit outside the known flag universe is set.
func (f ScanFlags) Valid() bool {
	return f&^scanFlagUniverse == 0
}

// Has returns true if all bits of flags are set in f.
func (f ScanFlags) Has(flags ScanFlags) bool {
	return f&flags == flags
}

// Union returns the flags of f and flags combined.
func (f ScanFlags) Union(flags ScanFlags) ScanFlags {
	return f | flags
}

// Diff returns f without the bits of flags.
func (f ScanFlags) Diff(flags ScanFlags) ScanFlags {
	return f &^ flags
}

// Bits returns the raw kernel flag word.
func (f ScanFlags) Bits() uint32 {
	return uint32(f)
}

func (f ScanFlags) String() string {
	if f == 0 {
		return "none"
	}
	names := []string{}
	for _, fn := range scanFlagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if rest := f &^ scanFlagUniverse; rest != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, ",")
}

// ParseScanFlags parses a comma-separated flag name list.
func ParseScanFlags(s string) (ScanFlags, error) {
	var flags ScanFlags
	if s == "" {
		return flags, nil
	}
	for _, name := range strings.Split(s, ",") {
		found := false
		for _, fn := range scanFlagNames {
			if fn.name == name {
				flags |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, scanError("unknown scan flag %q", name)
		}
	}
	return flags, nil
}
