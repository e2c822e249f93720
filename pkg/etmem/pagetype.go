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

import "fmt"

// PageType is the kernel's per-page state code reported in the upper
// nibble of a PIP byte.
type PageType uint8

const (
	// PteAccessed: 4 kB page with the A bit set in the PTE.
	PteAccessed PageType = iota
	// PmdAccessed: 2 MB page with the A bit set in the PMD.
	PmdAccessed
	// PudPresent: 1 GB page present at the PUD level.
	PudPresent
	// PteDirty: 4 kB page with the D bit set in the PTE.
	PteDirty
	// PmdDirty: 2 MB page with the D bit set in the PMD.
	PmdDirty
	// PteIdle: 4 kB page with the A bit clear in the PTE.
	PteIdle
	// PmdIdle: 2 MB page with the A bit clear in the PMD.
	PmdIdle
	// PmdIdlePtes: PMD whose PTEs are all idle.
	PmdIdlePtes
	// PteHole: no page mapped at the PTE level.
	PteHole
	// PmdHole: no page mapped at the PMD level.
	PmdHole
	// PipCmd marks a command byte in the PIP stream.
	PipCmd

	pageTypeMax
)

var pageTypeNames = map[PageType]string{
	PteAccessed: "pte-accessed",
	PmdAccessed: "pmd-accessed",
	PudPresent:  "pud-present",
	PteDirty:    "pte-dirty",
	PmdDirty:    "pmd-dirty",
	PteIdle:     "pte-idle",
	PmdIdle:     "pmd-idle",
	PmdIdlePtes: "pmd-idle-ptes",
	PteHole:     "pte-hole",
	PmdHole:     "pmd-hole",
	PipCmd:      "pip-cmd",
}

func (pt PageType) String() string {
	if name, ok := pageTypeNames[pt]; ok {
		return name
	}
	return fmt.Sprintf("page-type-%d", uint8(pt))
}

// PageSize returns the size in bytes of one page of this type.
func (pt PageType) PageSize() uint64 {
	switch pt {
	case PmdAccessed, PmdDirty, PmdIdle, PmdIdlePtes, PmdHole:
		return constHugePagesize
	case PudPresent:
		return constGigaPagesize
	default:
		return constPagesize
	}
}

// IsHuge returns true for 2 MB and 1 GB page types.
func (pt PageType) IsHuge() bool {
	switch pt {
	case PmdAccessed, PmdDirty, PmdIdle, PmdIdlePtes, PmdHole, PudPresent:
		return true
	}
	return false
}

// IsIdle returns true for page types reporting a cold page.
func (pt PageType) IsIdle() bool {
	return pt == PteIdle || pt == PmdIdle || pt == PmdIdlePtes
}

// IsAccessed returns true for page types reporting a hot page.
func (pt PageType) IsAccessed() bool {
	return pt == PteAccessed || pt == PmdAccessed
}

// IsHole returns true for page types reporting an unmapped region.
func (pt PageType) IsHole() bool {
	return pt == PteHole || pt == PmdHole
}

// pipCompose packs a page type and a run length minus one into one
// PIP byte.
func pipCompose(pt PageType, countMinusOne uint8) byte {
	return byte(pt&0xf)<<4 | byte(countMinusOne&0xf)
}

// pipType extracts the page type code from a PIP byte.
func pipType(b byte) uint8 {
	return (b >> 4) & 0xf
}

// pipCount extracts the run length minus one from a PIP byte.
func pipCount(b byte) uint8 {
	return b & 0xf
}

// pipCmdSetHVA relocates the decode cursor to the 64-bit little-endian
// address in the following 8 bytes.
var pipCmdSetHVA = pipCompose(PipCmd, 0)

// PageRun is a run of 1..16 consecutive same-type pages starting at a
// virtual address.
type PageRun struct {
	Addr  uint64
	Type  PageType
	Count uint8
}

// NewPageRun clamps count to at least one page.
func NewPageRun(addr uint64, pt PageType, count uint8) PageRun {
	if count < 1 {
		count = 1
	}
	return PageRun{Addr: addr, Type: pt, Count: count}
}

// TotalSize returns the number of bytes the run covers.
func (pr PageRun) TotalSize() uint64 {
	return pr.Type.PageSize() * uint64(pr.Count)
}

// EndAddr returns the exclusive end address of the run.
func (pr PageRun) EndAddr() uint64 {
	return pr.Addr + pr.TotalSize()
}

// IsIdle returns true if the run reports cold pages.
func (pr PageRun) IsIdle() bool {
	return pr.Type.IsIdle()
}

// IsAccessed returns true if the run reports hot pages.
func (pr PageRun) IsAccessed() bool {
	return pr.Type.IsAccessed()
}

func (pr PageRun) String() string {
	return fmt.Sprintf("%x+%d*%s", pr.Addr, pr.Count, pr.Type)
}
