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

func TestPageStats(t *testing.T) {
	runs := []PageRun{
		NewPageRun(0x1000, PteIdle, 3),
		NewPageRun(0x4000, PteAccessed, 7),
		NewPageRun(0x200000, PmdIdle, 1),
		NewPageRun(0x400000, PmdAccessed, 1),
		NewPageRun(0xb000, PteHole, 2),
	}
	stats := NewPageStats(runs)
	if stats.TotalPages != 14 {
		t.Errorf("expected 14 total pages, got %d", stats.TotalPages)
	}
	if stats.IdlePages != 4 {
		t.Errorf("expected 4 idle pages, got %d", stats.IdlePages)
	}
	if stats.AccessedPages != 8 {
		t.Errorf("expected 8 accessed pages, got %d", stats.AccessedPages)
	}
	if stats.HugePages != 2 {
		t.Errorf("expected 2 huge runs, got %d", stats.HugePages)
	}
	expectedIdle := uint64(3*constPagesize + constHugePagesize)
	if stats.IdleBytes != expectedIdle {
		t.Errorf("expected %d idle bytes, got %d", expectedIdle, stats.IdleBytes)
	}
	// Hole pages count into the total but are neither idle nor
	// accessed.
	expectedTotal := uint64(12*constPagesize + 2*constHugePagesize)
	if stats.TotalBytes != expectedTotal {
		t.Errorf("expected %d total bytes, got %d", expectedTotal, stats.TotalBytes)
	}
}

func TestPageStatsRatios(t *testing.T) {
	runs := []PageRun{
		NewPageRun(0x1000, PteIdle, 3),
		NewPageRun(0x8000, PteAccessed, 7),
	}
	stats := NewPageStats(runs)
	if r := stats.IdleRatio(); r != 0.3 {
		t.Errorf("expected idle ratio 0.3, got %v", r)
	}
	if r := stats.AccessedRatio(); r != 0.7 {
		t.Errorf("expected accessed ratio 0.7, got %v", r)
	}
	if !stats.HasIdleMemory(0.2) {
		t.Error("expected idle memory above 0.2 threshold")
	}
	if stats.HasIdleMemory(0.3) {
		t.Error("threshold comparison must be strict")
	}
}

func TestPageStatsEmpty(t *testing.T) {
	stats := NewPageStats(nil)
	if stats.IdleRatio() != 0 || stats.AccessedRatio() != 0 {
		t.Errorf("empty stats must have zero ratios, got %v/%v",
			stats.IdleRatio(), stats.AccessedRatio())
	}
	if stats.HasIdleMemory(0) {
		t.Error("empty stats must not report idle memory")
	}
}

func TestFormatBytes(t *testing.T) {
	tcases := []struct {
		bytes    uint64
		expected string
	}{
		{0, "0.00 B"},
		{512, "512.00 B"},
		{1024, "1.00 kB"},
		{1536, "1.50 kB"},
		{2 * 1024 * 1024, "2.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
		{5 * 1024 * 1024 * 1024 * 1024, "5.00 TB"},
		{1024 * 1024 * 1024 * 1024 * 1024, "1024.00 TB"},
	}
	for _, tc := range tcases {
		if s := FormatBytes(tc.bytes); s != tc.expected {
			t.Errorf("FormatBytes(%d): expected %q, got %q", tc.bytes, tc.expected, s)
		}
	}
}
