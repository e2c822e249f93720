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
	"strings"

	"golang.org/x/sys/unix"
)

// SwapSession batches virtual addresses of one process and flushes
// them to /proc/pid/swap_pages. A session owns one write-only handle
// until Close. Not safe for concurrent use.
type SwapSession struct {
	file    procFile
	config  SwapConfig
	pid     int
	pending []uint64
}

// OpenSwapSession opens a swap session for pid.
func OpenSwapSession(pid int, config SwapConfig) (*SwapSession, error) {
	if pid == 0 {
		return nil, ErrInvalidPid
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	file, err := openKernelFile(swapPagesPath(pid), unix.O_WRONLY)
	if err != nil {
		return nil, err
	}
	return newSwapSession(pid, config, file), nil
}

func newSwapSession(pid int, config SwapConfig, file procFile) *SwapSession {
	return &SwapSession{
		file:   file,
		config: config,
		pid:    pid,
	}
}

// Pid returns the process the session is bound to.
func (s *SwapSession) Pid() int {
	return s.pid
}

// Config returns the current swap configuration.
func (s *SwapSession) Config() SwapConfig {
	return s.config
}

// PendingCount returns the number of addresses waiting for a flush.
func (s *SwapSession) PendingCount() int {
	return len(s.pending)
}

// AddAddress queues a page-aligned virtual address for swapping. When
// the queue reaches MaxPages it is flushed automatically.
func (s *SwapSession) AddAddress(addr uint64) error {
	if addr%constPagesize != 0 {
		return ErrInvalidAddress
	}
	s.pending = append(s.pending, addr)
	if len(s.pending) >= s.config.MaxPages {
		if _, err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// AddAddresses queues addresses one by one, stopping at the first
// failure.
func (s *SwapSession) AddAddresses(addrs []uint64) error {
	for _, addr := range addrs {
		if err := s.AddAddress(addr); err != nil {
			return err
		}
	}
	return nil
}

// ClearPending drops queued addresses without swapping them.
func (s *SwapSession) ClearPending() {
	s.pending = s.pending[:0]
}

// Flush writes all queued addresses to the kernel as one
// newline-terminated lowercase hex list in a single write call, and
// returns the number of addresses flushed. An empty queue is a no-op.
func (s *SwapSession) Flush() (int, error) {
	if len(s.pending) == 0 {
		return 0, nil
	}
	var buf strings.Builder
	for _, addr := range s.pending {
		fmt.Fprintf(&buf, "%x\n", addr)
	}
	n, err := s.file.Write([]byte(buf.String()))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, swapError("kernel rejected %d addresses", len(s.pending))
	}
	count := len(s.pending)
	s.pending = s.pending[:0]
	return count, nil
}

// SwapAddress queues one address and flushes immediately.
func (s *SwapSession) SwapAddress(addr uint64) error {
	if err := s.AddAddress(addr); err != nil {
		return err
	}
	_, err := s.Flush()
	return err
}

// SetWatermark configures the kernel reclaim watermarks. The low and
// high levels are set with two separate control calls; if the second
// call fails after the first succeeded, the kernel is left with the
// new low and the old high watermark. The local mirror is updated
// only when both calls succeed.
func (s *SwapSession) SetWatermark(w WatermarkConfig) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := s.file.Ioctl(setSwapcacheWmark, wmarkArg(watermarkLevelLow, w.LowPercent)); err != nil {
		return err
	}
	if err := s.file.Ioctl(setSwapcacheWmark, wmarkArg(watermarkLevelHigh, w.HighPercent)); err != nil {
		return err
	}
	s.config.Watermark = w
	return nil
}

// EnableProactiveReclaim starts the kernel background reclaim thread
// for the process.
func (s *SwapSession) EnableProactiveReclaim() error {
	if err := s.file.Ioctl(reclaimSwapcacheOn, u32Arg(1)); err != nil {
		return err
	}
	s.config.ProactiveReclaim = true
	return nil
}

// DisableProactiveReclaim stops the kernel background reclaim thread.
func (s *SwapSession) DisableProactiveReclaim() error {
	if err := s.file.Ioctl(reclaimSwapcacheOff, u32Arg(0)); err != nil {
		return err
	}
	s.config.ProactiveReclaim = false
	return nil
}

// Close flushes queued addresses on a best effort basis and releases
// the kernel handle. A flush failure is logged, not returned: callers
// needing the flush result must call Flush before Close.
func (s *SwapSession) Close() error {
	if _, err := s.Flush(); err != nil {
		log.Warnf("pid %d: dropping %d unswapped addresses: %v", s.pid, len(s.pending), err)
		s.pending = s.pending[:0]
	}
	return s.file.Close()
}

// SwapPage swaps one page of a process through a short-lived session.
func SwapPage(pid int, addr uint64) error {
	s, err := OpenSwapSession(pid, DefaultSwapConfig())
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SwapAddress(addr)
}

// SwapPages swaps pages of a process through a short-lived session
// and returns the number of addresses flushed.
func SwapPages(pid int, addrs []uint64) (int, error) {
	s, err := OpenSwapSession(pid, DefaultSwapConfig())
	if err != nil {
		return 0, err
	}
	defer s.Close()
	if err := s.AddAddresses(addrs); err != nil {
		return 0, err
	}
	return s.Flush()
}

// ConfigureProactiveReclaim sets the reclaim watermarks of a process
// and enables or disables the reclaim thread.
func ConfigureProactiveReclaim(pid int, w WatermarkConfig, enable bool) error {
	config := DefaultSwapConfig()
	config.Watermark = w
	s, err := OpenSwapSession(pid, config)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SetWatermark(w); err != nil {
		return err
	}
	if enable {
		return s.EnableProactiveReclaim()
	}
	return s.DisableProactiveReclaim()
}
