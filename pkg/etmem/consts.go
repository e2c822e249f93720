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

const (
	// PageIdleKbufSize is the size of the kernel buffer backing
	// one idle_pages read.
	PageIdleKbufSize = 8000

	// PageIdleBufMin is the smallest accepted read buffer: room
	// for one SET_HVA command (1 opcode + 8 address bytes) at
	// both ends plus one page byte.
	PageIdleBufMin = 8*2 + 3

	// InvalidPage marks an address that was not found.
	InvalidPage = ^uint64(0)

	// WatermarkMax is the highest accepted watermark percentage.
	WatermarkMax = 100

	// SwapScanNumMax is the default size of a swap batch.
	SwapScanNumMax = 32

	// DefaultWalkStep is the default page table walk step in pages.
	DefaultWalkStep = 512

	// maxRunLength is the longest run a single PIP byte can encode.
	maxRunLength = 16

	idleScanMagic         = 0x66
	reclaimSwapcacheMagic = 0x77

	constPagesize     = uint64(4096)
	constHugePagesize = uint64(2 * 1024 * 1024)
	constGigaPagesize = uint64(1024 * 1024 * 1024)
)
