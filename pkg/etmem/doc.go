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

/*

	Package etmem classifies pages of a process as hot or cold and
	swaps cold pages out to secondary storage.

	Component types

	1. Sessions (scan.go, swap.go) own one procfs file handle each
	for the lifetime of the session. A ScanSession reads the
	kernel's compact idle page reports from
	/proc/pid/idle_pages, a SwapSession writes virtual addresses
	to /proc/pid/swap_pages.

	2. The PIP decoder (pip.go) translates the kernel's per-page
	byte encoding into PageRun records. Each byte encodes a page
	type in the upper nibble and a run length in the lower
	nibble. A command byte can relocate the decode cursor.

	3. Package level helpers (scan.go, swap.go) scan or swap
	without explicit session management: ScanProcess, ScanRange,
	SwapPage, SwapPages, ConfigureProactiveReclaim.

	4. Proactive reclaim (swap.go, swapcache.go) configures the
	kernel background thread that reclaims swapcache pages
	between a low and a high watermark, and the system wide
	kernel swap toggle in sysfs.

	All operations are synchronous and require CAP_SYS_ADMIN and
	a kernel with etmem support.

*/
package etmem
