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
	"fmt"
	"strconv"
	"strings"
)

// AddrRange is a half-open virtual address range [start, end).
type AddrRange struct {
	start uint64
	end   uint64
}

// NewAddrRange returns the range [startAddr, stopAddr). Swapped bounds
// are reordered.
func NewAddrRange(startAddr, stopAddr uint64) AddrRange {
	if stopAddr < startAddr {
		startAddr, stopAddr = stopAddr, startAddr
	}
	return AddrRange{start: startAddr, end: stopAddr}
}

// NewAddrRangeFromString parses a range expressed as "START-STOP" or
// "START+SIZE" with hexadecimal values, or a single page address.
func NewAddrRangeFromString(s string) (AddrRange, error) {
	switch {
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		start, err := strconv.ParseUint(parts[0], 16, 64)
		if err != nil {
			return AddrRange{}, fmt.Errorf("invalid start address %q", parts[0])
		}
		end, err := strconv.ParseUint(parts[1], 16, 64)
		if err != nil {
			return AddrRange{}, fmt.Errorf("invalid end address %q", parts[1])
		}
		if start >= end {
			return AddrRange{}, ErrInvalidRange
		}
		return AddrRange{start: start, end: end}, nil
	case strings.Contains(s, "+"):
		parts := strings.SplitN(s, "+", 2)
		start, err := strconv.ParseUint(parts[0], 16, 64)
		if err != nil {
			return AddrRange{}, fmt.Errorf("invalid start address %q", parts[0])
		}
		size, err := strconv.ParseUint(parts[1], 16, 64)
		if err != nil || size == 0 {
			return AddrRange{}, fmt.Errorf("invalid range size %q", parts[1])
		}
		return AddrRange{start: start, end: start + size}, nil
	default:
		start, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return AddrRange{}, fmt.Errorf("invalid address %q", s)
		}
		return AddrRange{start: start, end: start + constPagesize}, nil
	}
}

// Start returns the inclusive start address.
func (r AddrRange) Start() uint64 {
	return r.start
}

// End returns the exclusive end address.
func (r AddrRange) End() uint64 {
	return r.end
}

// Size returns the number of bytes in the range.
func (r AddrRange) Size() uint64 {
	if r.end < r.start {
		return 0
	}
	return r.end - r.start
}

// Contains returns true if addr falls within the range.
func (r AddrRange) Contains(addr uint64) bool {
	return addr >= r.start && addr < r.end
}

// Overlaps returns true if the ranges share at least one address.
func (r AddrRange) Overlaps(other AddrRange) bool {
	return r.start < other.end && other.start < r.end
}

// Valid returns true if start is below end.
func (r AddrRange) Valid() bool {
	return r.start < r.end
}

func (r AddrRange) String() string {
	return fmt.Sprintf("%x-%x", r.start, r.end)
}
