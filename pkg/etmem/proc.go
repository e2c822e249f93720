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

// The etmem kernel interface lives in procfs: /proc/pid/idle_pages is
// a positioned read interface and /proc/pid/swap_pages a write
// interface, both accepting a small set of ioctls.

package etmem

import (
	"encoding/binary"
	"strconv"
	"unsafe"

	"golang.org/x/sys/unix"
)

func idlePagesPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid) + "/idle_pages"
}

func swapPagesPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid) + "/swap_pages"
}

// iow builds an ioctl command word the way the kernel module declares
// them with _IOW: command number in bits 0..7, one-byte magic in bits
// 8..15, argument size in bits 16..29, write direction bit 30.
func iow(magic uint8, nr uint, size uint) uint {
	return nr | uint(magic)<<8 | size<<16 | 1<<30
}

var (
	idleScanAddFlags    = iow(idleScanMagic, 0x0, 4)
	idleScanRemoveFlags = iow(idleScanMagic, 0x1, 4)
	vmaScanAddFlags     = iow(idleScanMagic, 0x2, 4)
	vmaScanRemoveFlags  = iow(idleScanMagic, 0x3, 4)

	reclaimSwapcacheOff = iow(reclaimSwapcacheMagic, 0x0, 4)
	reclaimSwapcacheOn  = iow(reclaimSwapcacheMagic, 0x1, 4)
	setSwapcacheWmark   = iow(reclaimSwapcacheMagic, 0x2, 8)
)

// u32Arg encodes a 4-byte little-endian ioctl argument.
func u32Arg(v uint32) []byte {
	arg := make([]byte, 4)
	binary.LittleEndian.PutUint32(arg, v)
	return arg
}

// wmarkArg encodes the {level, percent} watermark ioctl argument.
// Level 0 is the low watermark, 1 the high watermark.
func wmarkArg(level, percent uint32) []byte {
	arg := make([]byte, 8)
	binary.LittleEndian.PutUint32(arg[0:4], level)
	binary.LittleEndian.PutUint32(arg[4:8], percent)
	return arg
}

// procFile is the capability surface a session needs from its kernel
// handle: positioned reads, plain writes, control calls, release.
// Sessions own exactly one procFile for their lifetime.
type procFile interface {
	ReadAt(buf []byte, offset int64) (int, error)
	Write(buf []byte) (int, error)
	Ioctl(cmd uint, arg []byte) error
	Close() error
}

// kernelFile implements procFile over one OS file descriptor.
type kernelFile struct {
	fd   int
	path string
}

func openKernelFile(path string, flags int) (*kernelFile, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, osError(err, "open %s", path)
	}
	return &kernelFile{fd: fd, path: path}, nil
}

func (f *kernelFile) ReadAt(buf []byte, offset int64) (int, error) {
	if f.fd < 0 {
		return 0, ErrSessionClosed
	}
	n, err := unix.Pread(f.fd, buf, offset)
	if err != nil {
		return 0, osError(err, "pread %s @%x", f.path, offset)
	}
	return n, nil
}

func (f *kernelFile) Write(buf []byte) (int, error) {
	if f.fd < 0 {
		return 0, ErrSessionClosed
	}
	n, err := unix.Write(f.fd, buf)
	if err != nil {
		return 0, osError(err, "write %s", f.path)
	}
	return n, nil
}

func (f *kernelFile) Ioctl(cmd uint, arg []byte) error {
	if f.fd < 0 {
		return ErrSessionClosed
	}
	var ptr unsafe.Pointer
	if len(arg) > 0 {
		ptr = unsafe.Pointer(&arg[0])
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(f.fd), uintptr(cmd), uintptr(ptr))
	if errno != 0 {
		return osError(errno, "ioctl %#x %s", cmd, f.path)
	}
	return nil
}

func (f *kernelFile) Close() error {
	if f.fd < 0 {
		return nil
	}
	fd := f.fd
	f.fd = -1
	if err := unix.Close(fd); err != nil {
		return osError(err, "close %s", f.path)
	}
	return nil
}
