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

func TestPageAlignment(t *testing.T) {
	tcases := []struct {
		addr        uint64
		pageAligned bool
		hugeAligned bool
		alignedDown uint64
		alignedUp   uint64
	}{
		{0, true, true, 0, 0},
		{0x1000, true, false, 0x1000, 0x1000},
		{0x1001, false, false, 0x1000, 0x2000},
		{0x1fff, false, false, 0x1000, 0x2000},
		{0x200000, true, true, 0x200000, 0x200000},
		{0x201000, true, false, 0x201000, 0x201000},
	}
	for _, tc := range tcases {
		if PageAligned(tc.addr) != tc.pageAligned {
			t.Errorf("%#x: expected PageAligned %v", tc.addr, tc.pageAligned)
		}
		if HugePageAligned(tc.addr) != tc.hugeAligned {
			t.Errorf("%#x: expected HugePageAligned %v", tc.addr, tc.hugeAligned)
		}
		if down := PageAlignDown(tc.addr); down != tc.alignedDown {
			t.Errorf("%#x: expected align down %#x, got %#x", tc.addr, tc.alignedDown, down)
		}
		if up := PageAlignUp(tc.addr); up != tc.alignedUp {
			t.Errorf("%#x: expected align up %#x, got %#x", tc.addr, tc.alignedUp, up)
		}
	}
}

func TestInvalidPageIsUnaligned(t *testing.T) {
	// The not-found marker must never pass address validation.
	if PageAligned(InvalidPage) {
		t.Error("InvalidPage must not be page aligned")
	}
}
