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

// ScanConfig controls a scan session.
type ScanConfig struct {
	// Flags select what the kernel reports.
	Flags ScanFlags
	// BufferSize is the read buffer size in bytes,
	// PageIdleBufMin..PageIdleKbufSize.
	BufferSize int
	// WalkStep is the kernel page table walk step in pages. The
	// kernel consumes it, userspace only validates it.
	WalkStep uint32
}

// DefaultScanConfig returns a configuration scanning everything with
// the largest buffer.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Flags:      0,
		BufferSize: PageIdleKbufSize,
		WalkStep:   DefaultWalkStep,
	}
}

// Validate checks flags against the known universe and the buffer
// size against the kernel bounds.
func (c ScanConfig) Validate() error {
	if !c.Flags.Valid() {
		return ErrInvalidFlags
	}
	if c.BufferSize < PageIdleBufMin || c.BufferSize > PageIdleKbufSize {
		return ErrBufferTooSmall
	}
	if c.WalkStep == 0 {
		return scanError("walk step must be non-zero")
	}
	return nil
}

// WatermarkConfig is the percentage pair controlling when proactive
// swapcache reclaim starts (low) and stops (high).
type WatermarkConfig struct {
	LowPercent  uint32
	HighPercent uint32
}

// DefaultWatermarkConfig returns the 30/70 default pair.
func DefaultWatermarkConfig() WatermarkConfig {
	return WatermarkConfig{LowPercent: 30, HighPercent: 70}
}

// Validate requires both percentages within 0..100 and low < high.
func (w WatermarkConfig) Validate() error {
	if w.LowPercent > WatermarkMax || w.HighPercent > WatermarkMax {
		return ErrWatermarkOutOfRange
	}
	if w.LowPercent >= w.HighPercent {
		return ErrInvalidWatermarkOrder
	}
	return nil
}

// Watermark ioctl levels.
const (
	watermarkLevelLow  = 0
	watermarkLevelHigh = 1
)

// SwapConfig controls a swap session.
type SwapConfig struct {
	// ProactiveReclaim mirrors the state of the kernel reclaim
	// thread toggled through the session.
	ProactiveReclaim bool
	// Watermark is the reclaim watermark pair.
	Watermark WatermarkConfig
	// MaxPages is the batch threshold triggering an automatic
	// flush.
	MaxPages int
}

// DefaultSwapConfig returns a configuration with reclaim disabled and
// the default batch size.
func DefaultSwapConfig() SwapConfig {
	return SwapConfig{
		ProactiveReclaim: false,
		Watermark:        DefaultWatermarkConfig(),
		MaxPages:         SwapScanNumMax,
	}
}

// Validate checks the watermark pair and the batch threshold.
func (c SwapConfig) Validate() error {
	if err := c.Watermark.Validate(); err != nil {
		return err
	}
	if c.MaxPages < 1 {
		return swapError("max pages must be at least 1")
	}
	return nil
}
