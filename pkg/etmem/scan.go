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
	"golang.org/x/sys/unix"
)

// ScanSession reads idle page reports of one process. A session owns
// one read-only handle on /proc/pid/idle_pages until Close. Sessions
// are not safe for concurrent use; opening two sessions against the
// same pid is the caller's responsibility.
type ScanSession struct {
	file   procFile
	config ScanConfig
	ctrl   *idleCtrl
	pid    int
}

// OpenScanSession opens an idle page scan session for pid. If the
// configuration carries scan flags, they are pushed to the kernel
// immediately.
func OpenScanSession(pid int, config ScanConfig) (*ScanSession, error) {
	if pid == 0 {
		return nil, ErrInvalidPid
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	file, err := openKernelFile(idlePagesPath(pid), unix.O_RDONLY)
	if err != nil {
		return nil, err
	}
	return newScanSession(pid, config, file)
}

// newScanSession finishes session construction on an already open
// handle. The session takes ownership of the handle, also on error.
func newScanSession(pid int, config ScanConfig, file procFile) (*ScanSession, error) {
	s := &ScanSession{
		file:   file,
		config: config,
		ctrl:   newIdleCtrl(config.BufferSize, config.Flags),
		pid:    pid,
	}
	if config.Flags != 0 {
		if err := file.Ioctl(idleScanAddFlags, u32Arg(config.Flags.Bits())); err != nil {
			file.Close()
			return nil, err
		}
	}
	return s, nil
}

// Pid returns the process the session is bound to.
func (s *ScanSession) Pid() int {
	return s.pid
}

// Config returns the current scan configuration, including flag
// changes applied through AddFlags and RemoveFlags.
func (s *ScanSession) Config() ScanConfig {
	return s.config
}

// Read reads one buffer of idle page data positioned at startAddr and
// decodes it. The address must be 4096-byte aligned. When the read
// filled the configured buffer exactly, more data may follow and next
// holds the end address of the last decoded run; otherwise more is
// false.
func (s *ScanSession) Read(startAddr uint64) (runs []PageRun, next uint64, more bool, err error) {
	if startAddr%constPagesize != 0 {
		return nil, 0, false, ErrInvalidAddress
	}
	buf := make([]byte, s.config.BufferSize)
	n, err := s.file.ReadAt(buf, int64(startAddr))
	if err != nil {
		return nil, 0, false, err
	}
	if n == 0 {
		return []PageRun{}, 0, false, nil
	}
	runs, err = decodePIP(buf[:n], startAddr)
	if err != nil {
		return nil, 0, false, err
	}
	if n >= s.config.BufferSize && len(runs) > 0 {
		last := runs[len(runs)-1]
		s.ctrl.nextHVA = last.EndAddr()
		return runs, last.EndAddr(), true, nil
	}
	return runs, 0, false, nil
}

// ReadRange reads all pages of the range, following the continuation
// cursor across reads and keeping runs whose start address falls
// within the range.
func (s *ScanSession) ReadRange(r AddrRange) ([]PageRun, error) {
	if !r.Valid() {
		return nil, ErrInvalidRange
	}
	all := []PageRun{}
	addr := r.Start()
	for addr < r.End() {
		runs, next, more, err := s.Read(addr)
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			if r.Contains(run.Addr) {
				all = append(all, run)
			}
		}
		if !more || next >= r.End() {
			break
		}
		addr = next
	}
	return all, nil
}

// AddFlags pushes flags to the kernel and mirrors them locally.
func (s *ScanSession) AddFlags(flags ScanFlags) error {
	if !flags.Valid() {
		return ErrInvalidFlags
	}
	if err := s.file.Ioctl(idleScanAddFlags, u32Arg(flags.Bits())); err != nil {
		return err
	}
	s.config.Flags = s.config.Flags.Union(flags)
	s.ctrl.flags = s.config.Flags
	return nil
}

// RemoveFlags removes flags in the kernel and mirrors the change.
func (s *ScanSession) RemoveFlags(flags ScanFlags) error {
	if !flags.Valid() {
		return ErrInvalidFlags
	}
	if err := s.file.Ioctl(idleScanRemoveFlags, u32Arg(flags.Bits())); err != nil {
		return err
	}
	s.config.Flags = s.config.Flags.Diff(flags)
	s.ctrl.flags = s.config.Flags
	return nil
}

// AddVMAFlags pushes VMA-scoped scan flags to the kernel.
func (s *ScanSession) AddVMAFlags(flags ScanFlags) error {
	if !flags.Valid() {
		return ErrInvalidFlags
	}
	return s.file.Ioctl(vmaScanAddFlags, u32Arg(flags.Bits()))
}

// RemoveVMAFlags removes VMA-scoped scan flags in the kernel.
func (s *ScanSession) RemoveVMAFlags(flags ScanFlags) error {
	if !flags.Valid() {
		return ErrInvalidFlags
	}
	return s.file.Ioctl(vmaScanRemoveFlags, u32Arg(flags.Bits()))
}

// Close releases the kernel handle. Subsequent operations fail with
// ErrSessionClosed. Closing twice is allowed.
func (s *ScanSession) Close() error {
	return s.file.Close()
}

// ScanProcess scans the whole address space of a process, following
// the continuation cursor from address 0 until the kernel reports no
// more data.
func ScanProcess(pid int, config ScanConfig) ([]PageRun, error) {
	s, err := OpenScanSession(pid, config)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	all := []PageRun{}
	addr := uint64(0)
	for {
		runs, next, more, err := s.Read(addr)
		if err != nil {
			return nil, err
		}
		all = append(all, runs...)
		if !more {
			break
		}
		addr = next
	}
	return all, nil
}

// ScanRange scans one address range of a process.
func ScanRange(pid int, r AddrRange, config ScanConfig) ([]PageRun, error) {
	s, err := OpenScanSession(pid, config)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ReadRange(r)
}

// ScanIdlePages scans a process and keeps only runs of cold pages.
func ScanIdlePages(pid int, config ScanConfig) ([]PageRun, error) {
	runs, err := ScanProcess(pid, config)
	if err != nil {
		return nil, err
	}
	return filterRuns(runs, PageRun.IsIdle), nil
}

// ScanAccessedPages scans a process and keeps only runs of hot pages.
func ScanAccessedPages(pid int, config ScanConfig) ([]PageRun, error) {
	runs, err := ScanProcess(pid, config)
	if err != nil {
		return nil, err
	}
	return filterRuns(runs, PageRun.IsAccessed), nil
}

func filterRuns(runs []PageRun, keep func(PageRun) bool) []PageRun {
	kept := []PageRun{}
	for _, run := range runs {
		if keep(run) {
			kept = append(kept, run)
		}
	}
	return kept
}
