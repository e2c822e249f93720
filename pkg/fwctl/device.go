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

package fwctl

import (
	"encoding/binary"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// The firmware RPC is one ioctl taking a descriptor with input and
// output buffer pointers. The descriptor layout and command word come
// from the fwctl UAPI.
const (
	fwctlRPC          = 0xC09A0001
	fwctlRPCConfScope = 0
)

// Firmware command numbers carried in the RPC input header.
const (
	cmdConfigPerfStats = 0x0047
	cmdQueryPerfStats  = 0x0048
	cmdQueryDieInfo    = 0x0082
)

// fwctlRPCArg mirrors struct fwctl_rpc.
type fwctlRPCArg struct {
	size   uint32
	scope  uint32
	inLen  uint32
	outLen uint32
	inPtr  uint64
	outPtr uint64
}

// Device-format RPC headers: a 16-byte request header {cmd, data size,
// version, reserved} and an 8-byte response header {retval, data size}.
const (
	rpcInHeaderSize  = 16
	rpcOutHeaderSize = 8
)

// rpcHandle performs one firmware RPC over raw request and response
// buffers. Split from Device so tests can substitute the kernel.
type rpcHandle interface {
	Rpc(in, out []byte) error
	Close() error
}

type devHandle struct {
	fd int
}

func openDevHandle(path string) (*devHandle, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return &devHandle{fd: fd}, nil
}

func (h *devHandle) Rpc(in, out []byte) error {
	arg := fwctlRPCArg{
		size:   uint32(unsafe.Sizeof(fwctlRPCArg{})),
		scope:  fwctlRPCConfScope,
		inLen:  uint32(len(in)),
		outLen: uint32(len(out)),
		inPtr:  uint64(uintptr(unsafe.Pointer(&in[0]))),
		outPtr: uint64(uintptr(unsafe.Pointer(&out[0]))),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(h.fd), fwctlRPC,
		uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return errors.Wrap(errno, "fwctl RPC ioctl failed")
	}
	return nil
}

func (h *devHandle) Close() error {
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}

// Device is an open firmware-control device.
type Device struct {
	handle rpcHandle
	Info   DeviceInfo
}

// OpenDevice opens the device node of the given chip and die.
func OpenDevice(chipID, dieID uint32) (*Device, error) {
	path, err := findDevicePath(chipID, dieID)
	if err != nil {
		return nil, err
	}
	handle, err := openDevHandle(path)
	if err != nil {
		return nil, err
	}
	return &Device{
		handle: handle,
		Info:   DeviceInfo{ChipID: chipID, DieID: dieID, Path: path},
	}, nil
}

// Close releases the device node.
func (d *Device) Close() error {
	return d.handle.Close()
}

// sendRPC frames a firmware command with its 32-bit word payload,
// performs the RPC and decodes the response words.
func (d *Device) sendRPC(cmd uint32, input []uint32, outWords int) ([]uint32, error) {
	in := make([]byte, rpcInHeaderSize+4*len(input))
	binary.LittleEndian.PutUint32(in[0:], cmd)
	binary.LittleEndian.PutUint32(in[4:], uint32(4*len(input)))
	for i, word := range input {
		binary.LittleEndian.PutUint32(in[rpcInHeaderSize+4*i:], word)
	}

	out := make([]byte, rpcOutHeaderSize+4*outWords)
	if err := d.handle.Rpc(in, out); err != nil {
		return nil, err
	}

	retval := int32(binary.LittleEndian.Uint32(out[0:]))
	if retval != 0 {
		return nil, errors.Errorf("firmware command %#04x failed: %d", cmd, retval)
	}
	dataSize := binary.LittleEndian.Uint32(out[4:])
	words := int(dataSize / 4)
	if words > outWords {
		words = outWords
	}

	output := make([]uint32, outWords)
	for i := 0; i < words; i++ {
		output[i] = binary.LittleEndian.Uint32(out[rpcOutHeaderSize+4*i:])
	}
	return output, nil
}

// configurePerf starts the perf counters of a port for timeMS and
// waits out the measurement interval.
func (d *Device) configurePerf(port, timeMS uint32) error {
	if _, err := d.sendRPC(cmdConfigPerfStats, []uint32{port, timeMS}, perfQueryWords); err != nil {
		return err
	}
	time.Sleep(time.Duration(timeMS) * time.Millisecond)
	return nil
}

// queryPerf reads the perf counters of a port.
func (d *Device) queryPerf(port uint32) (PerfSample, error) {
	data, err := d.sendRPC(cmdQueryPerfStats, []uint32{port}, perfQueryWords)
	if err != nil {
		return PerfSample{}, err
	}
	return newPerfSample(data)
}

// QueryDieInfo reads the die identity and port inventory.
func (d *Device) QueryDieInfo() (*DieInfo, error) {
	// 24-byte header plus up to 20 ports of 24 bytes, rounded up to
	// whole words.
	const outWords = (dieInfoHeaderSize + maxPorts*portInfoSize + 3) / 4

	data, err := d.sendRPC(cmdQueryDieInfo, nil, outWords)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 4*len(data))
	for i, word := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], word)
	}
	return parseDieInfo(raw)
}
