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
	"testing"
)

func TestNewAddrRangeFromString(t *testing.T) {
	tcases := []struct {
		name          string
		input         string
		expectedStart uint64
		expectedEnd   uint64
		expectError   bool
	}{
		{
			name:          "start-stop",
			input:         "1000-5000",
			expectedStart: 0x1000,
			expectedEnd:   0x5000,
		}, {
			name:          "start+size",
			input:         "7f0000000000+200000",
			expectedStart: 0x7f0000000000,
			expectedEnd:   0x7f0000200000,
		}, {
			name:          "single address means one page",
			input:         "4000",
			expectedStart: 0x4000,
			expectedEnd:   0x5000,
		}, {
			name:        "start above stop",
			input:       "5000-1000",
			expectError: true,
		}, {
			name:        "zero size",
			input:       "1000+0",
			expectError: true,
		}, {
			name:        "garbage start",
			input:       "zz-1000",
			expectError: true,
		}, {
			name:        "garbage size",
			input:       "1000+zz",
			expectError: true,
		}, {
			name:        "empty",
			input:       "",
			expectError: true,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewAddrRangeFromString(tc.input)
			if tc.expectError {
				if err == nil {
					t.Errorf("expected parse of %q to fail, got %v", tc.input, r)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse of %q failed: %v", tc.input, err)
			}
			if r.Start() != tc.expectedStart || r.End() != tc.expectedEnd {
				t.Errorf("parse of %q: expected %x-%x, got %v",
					tc.input, tc.expectedStart, tc.expectedEnd, r)
			}
		})
	}
}

func TestNewAddrRangeReorders(t *testing.T) {
	r := NewAddrRange(0x5000, 0x1000)
	if r.Start() != 0x1000 || r.End() != 0x5000 {
		t.Errorf("swapped bounds not reordered: %v", r)
	}
	if r.Size() != 0x4000 {
		t.Errorf("expected size 0x4000, got %x", r.Size())
	}
}

func TestAddrRangeContains(t *testing.T) {
	r := NewAddrRange(0x1000, 0x3000)
	tcases := []struct {
		addr     uint64
		expected bool
	}{
		{0x0fff, false},
		{0x1000, true},
		{0x2fff, true},
		{0x3000, false},
	}
	for _, tc := range tcases {
		if r.Contains(tc.addr) != tc.expected {
			t.Errorf("Contains(%x): expected %v", tc.addr, tc.expected)
		}
	}
}

func TestAddrRangeOverlaps(t *testing.T) {
	r := NewAddrRange(0x1000, 0x3000)
	tcases := []struct {
		name     string
		other    AddrRange
		expected bool
	}{
		{"identical", NewAddrRange(0x1000, 0x3000), true},
		{"partial", NewAddrRange(0x2000, 0x4000), true},
		{"contained", NewAddrRange(0x1800, 0x2000), true},
		{"adjacent above", NewAddrRange(0x3000, 0x4000), false},
		{"adjacent below", NewAddrRange(0x0, 0x1000), false},
		{"disjoint", NewAddrRange(0x8000, 0x9000), false},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			if r.Overlaps(tc.other) != tc.expected {
				t.Errorf("Overlaps(%v): expected %v", tc.other, tc.expected)
			}
		})
	}
}

func TestAddrRangeString(t *testing.T) {
	r := NewAddrRange(0x7f0000000000, 0x7f0000200000)
	if s := r.String(); s != "7f0000000000-7f0000200000" {
		t.Errorf("unexpected string %q", s)
	}
}
