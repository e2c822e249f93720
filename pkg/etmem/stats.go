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
)

// PageStats summarizes the page runs of one scan.
type PageStats struct {
	TotalPages    uint64
	IdlePages     uint64
	AccessedPages uint64
	HugePages     uint64
	TotalBytes    uint64
	IdleBytes     uint64
	AccessedBytes uint64
}

// NewPageStats computes statistics over scanned page runs.
func NewPageStats(runs []PageRun) *PageStats {
	stats := &PageStats{}
	for _, run := range runs {
		count := uint64(run.Count)
		size := run.TotalSize()
		stats.TotalPages += count
		stats.TotalBytes += size
		switch {
		case run.IsIdle():
			stats.IdlePages += count
			stats.IdleBytes += size
		case run.IsAccessed():
			stats.AccessedPages += count
			stats.AccessedBytes += size
		}
		if run.Type.IsHuge() {
			stats.HugePages++
		}
	}
	return stats
}

// IdleRatio returns the idle share of scanned bytes, 0 when nothing
// was scanned.
func (s *PageStats) IdleRatio() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.IdleBytes) / float64(s.TotalBytes)
}

// AccessedRatio returns the hot share of scanned bytes, 0 when
// nothing was scanned.
func (s *PageStats) AccessedRatio() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.AccessedBytes) / float64(s.TotalBytes)
}

// HasIdleMemory returns true if the idle share exceeds threshold.
func (s *PageStats) HasIdleMemory(threshold float64) bool {
	return s.IdleRatio() > threshold
}

func (s *PageStats) String() string {
	return fmt.Sprintf("pages: %d (idle %d, accessed %d, huge %d), bytes: %s (idle %s, accessed %s)",
		s.TotalPages, s.IdlePages, s.AccessedPages, s.HugePages,
		FormatBytes(s.TotalBytes), FormatBytes(s.IdleBytes), FormatBytes(s.AccessedBytes))
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(bytes uint64) string {
	units := []string{"B", "kB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024.0 && i < len(units)-1 {
		size /= 1024.0
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
