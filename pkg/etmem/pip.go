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

// PIP (proc idle page) stream decoding. The kernel reports page runs
// as single bytes: upper nibble page type, lower nibble run length
// minus one. A command byte with the SET_HVA opcode relocates the
// decode cursor to the 64-bit little-endian address that follows it.

package etmem

import (
	"encoding/binary"
)

// BufferStatus reports whether a buffer filling pass can continue.
type BufferStatus uint8

const (
	// BufferOK: the pass can continue.
	BufferOK BufferStatus = iota
	// KernelBufferFull: the kernel side buffer is exhausted, more
	// data is available from the continuation cursor.
	KernelBufferFull
	// UserBufferFull: the caller's buffer is exhausted, more data
	// is available from the continuation cursor.
	UserBufferFull
)

// HasMore returns true if the status signals that data remains.
func (s BufferStatus) HasMore() bool {
	return s == KernelBufferFull || s == UserBufferFull
}

// decodePIP decodes a PIP byte stream into page runs, starting the
// address cursor at baseAddr. Unknown non-SET_HVA command bytes are
// skipped one byte at a time; the kernel currently emits no other
// multi-byte opcode.
func decodePIP(data []byte, baseAddr uint64) ([]PageRun, error) {
	runs := []PageRun{}
	addr := baseAddr
	i := 0
	for i < len(data) {
		b := data[i]
		typeCode := pipType(b)
		count := pipCount(b) + 1

		if typeCode == uint8(PipCmd) {
			if b == pipCmdSetHVA && i+8 < len(data) {
				addr = binary.LittleEndian.Uint64(data[i+1 : i+9])
				i += 9
				continue
			}
			i++
			continue
		}
		if typeCode >= uint8(pageTypeMax) {
			return nil, DecodeError{Byte: b}
		}
		pt := PageType(typeCode)
		runs = append(runs, NewPageRun(addr, pt, count))
		addr += pt.PageSize() * uint64(count)
		i++
	}
	return runs, nil
}

// idleCtrl is the userspace mirror of the kernel's page_idle_ctrl: the
// state of one buffer filling pass plus the continuation bookkeeping
// for VM scans.
type idleCtrl struct {
	// kbuf backs one idle_pages read.
	kbuf []byte
	// pieRead and pieReadMax are the cursor and limit within kbuf.
	pieRead    int
	pieReadMax int
	// nextHVA is the continuation address for the next pass.
	nextHVA uint64
	// gpaToHVA and restartGPA carry guest address translation
	// state for VM scans; not elaborated by this engine.
	gpaToHVA   uint64
	restartGPA uint64
	// lastVA deduplicates the most recently appended address.
	lastVA uint64
	flags  ScanFlags
	// runs is the accumulated run record queue.
	runs []PageRun
}

func newIdleCtrl(bufferSize int, flags ScanFlags) *idleCtrl {
	if bufferSize > PageIdleKbufSize {
		bufferSize = PageIdleKbufSize
	}
	return &idleCtrl{
		kbuf:       make([]byte, PageIdleKbufSize),
		pieReadMax: bufferSize,
		flags:      flags,
		lastVA:     InvalidPage,
	}
}

// initBuffer prepares the control state for one filling pass of at
// most bufSize-bytesCopied bytes, reserving room for a trailing
// SET_HVA command.
func (c *idleCtrl) initBuffer(bufSize, bytesCopied int) BufferStatus {
	c.pieRead = 0
	max := bufSize - bytesCopied
	if max < 0 {
		max = 0
	}
	if max > PageIdleKbufSize {
		max = PageIdleKbufSize
	}
	c.pieReadMax = max
	if c.pieReadMax <= 8+2 {
		return KernelBufferFull
	}
	c.pieReadMax -= 8 + 1
	for i := range c.kbuf {
		c.kbuf[i] = 0
	}
	return BufferOK
}

// addRun merges one observed run into the tail of the queue when it
// continues the previous record (same type, contiguous, page size
// unchanged, run below the 16 page encoding limit), otherwise appends
// a new record. Returns KernelBufferFull once the queue reaches half
// the buffer sizing, signalling the caller to stop submitting.
func (c *idleCtrl) addRun(addr uint64, pt PageType, pageSize uint64) BufferStatus {
	if n := len(c.runs); n > 0 {
		last := &c.runs[n-1]
		if last.Type == pt &&
			last.EndAddr() == addr &&
			last.Count < maxRunLength &&
			last.Type.PageSize() == pageSize {
			last.Count++
			return BufferOK
		}
	}
	if len(c.runs) >= c.pieReadMax/2 {
		return KernelBufferFull
	}
	c.runs = append(c.runs, NewPageRun(addr, pt, 1))
	c.lastVA = addr
	return BufferOK
}

// takeRuns drains the accumulated record queue.
func (c *idleCtrl) takeRuns() []PageRun {
	runs := c.runs
	c.runs = nil
	return runs
}
