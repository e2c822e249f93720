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

// fakeProcFile drives sessions without a patched kernel. Read data is
// served per call, writes and ioctls are recorded.
type fakeProcFile struct {
	readData [][]byte
	readErr  error
	reads    []int64

	writes   [][]byte
	writeErr error

	ioctlCmds []uint
	ioctlArgs [][]byte
	// ioctlErrAt fails the nth ioctl call (1-based), 0 fails none.
	ioctlErrAt int
	ioctlErr   error

	closeCount int
}

func (f *fakeProcFile) ReadAt(buf []byte, offset int64) (int, error) {
	f.reads = append(f.reads, offset)
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.readData) == 0 {
		return 0, nil
	}
	data := f.readData[0]
	f.readData = f.readData[1:]
	return copy(buf, data), nil
}

func (f *fakeProcFile) Write(buf []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	f.writes = append(f.writes, data)
	return len(buf), nil
}

func (f *fakeProcFile) Ioctl(cmd uint, arg []byte) error {
	f.ioctlCmds = append(f.ioctlCmds, cmd)
	argCopy := make([]byte, len(arg))
	copy(argCopy, arg)
	f.ioctlArgs = append(f.ioctlArgs, argCopy)
	if f.ioctlErrAt > 0 && len(f.ioctlCmds) == f.ioctlErrAt {
		return f.ioctlErr
	}
	return nil
}

func (f *fakeProcFile) Close() error {
	f.closeCount++
	return nil
}

func TestIoctlCommandEncoding(t *testing.T) {
	tcases := []struct {
		name     string
		cmd      uint
		expected uint
	}{
		{
			name:     "add scan flags",
			cmd:      idleScanAddFlags,
			expected: 0x66<<8 | 4<<16 | 1<<30,
		}, {
			name:     "remove scan flags",
			cmd:      idleScanRemoveFlags,
			expected: 0x1 | 0x66<<8 | 4<<16 | 1<<30,
		}, {
			name:     "add vma scan flags",
			cmd:      vmaScanAddFlags,
			expected: 0x2 | 0x66<<8 | 4<<16 | 1<<30,
		}, {
			name:     "reclaim swapcache on",
			cmd:      reclaimSwapcacheOn,
			expected: 0x1 | 0x77<<8 | 4<<16 | 1<<30,
		}, {
			name:     "set swapcache watermark",
			cmd:      setSwapcacheWmark,
			expected: 0x2 | 0x77<<8 | 8<<16 | 1<<30,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.cmd != tc.expected {
				t.Errorf("expected %#x, got %#x", tc.expected, tc.cmd)
			}
		})
	}
}

func TestProcPaths(t *testing.T) {
	if path := idlePagesPath(1234); path != "/proc/1234/idle_pages" {
		t.Errorf("unexpected idle pages path %q", path)
	}
	if path := swapPagesPath(5678); path != "/proc/5678/swap_pages" {
		t.Errorf("unexpected swap pages path %q", path)
	}
}

func TestWatermarkArgEncoding(t *testing.T) {
	arg := wmarkArg(1, 70)
	expected := []byte{1, 0, 0, 0, 70, 0, 0, 0}
	if len(arg) != len(expected) {
		t.Fatalf("expected %d bytes, got %d", len(expected), len(arg))
	}
	for i := range expected {
		if arg[i] != expected[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, expected[i], arg[i])
		}
	}
}
