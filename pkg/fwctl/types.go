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

// Package fwctl measures memory-expansion interconnect bandwidth and
// latency through firmware-control devices under /dev/fwctl.
package fwctl

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	// maxPorts bounds the port array a die can report.
	maxPorts = 20
	// portsPerPair is the granularity of a perf measurement: ports
	// are counted in even/odd pairs.
	portsPerPair = 2

	// MinMeasureTimeMS and MaxMeasureTimeMS bound the measurement
	// interval.
	MinMeasureTimeMS = 1
	MaxMeasureTimeMS = 3600000
)

// Indices of the counters in the raw perf query response.
const (
	perfPortIDIdx = iota
	perfClockFreqIdx
	perfWriteBytesIdx
	perfReadBytesIdx
	perfTotalBytesIdx
	perfWriteCmdsIdx
	perfReadCmdsIdx
	perfTotalCmdsIdx
	perfWriteLatIdx
	perfReadLatIdx
	perfSampleWords
)

// perfQueryWords is the raw response buffer size in 32-bit words.
const perfQueryWords = 64

// PerfSample holds the raw counters of one measurement as reported by
// the device firmware.
type PerfSample struct {
	PortID         uint32
	ClockFreqHz    uint32
	WriteBytes     uint32
	ReadBytes      uint32
	TotalBytes     uint32
	WriteCmds      uint32
	ReadCmds       uint32
	TotalCmds      uint32
	WriteLatCycles uint32
	ReadLatCycles  uint32
}

// newPerfSample extracts counters from a raw query response.
func newPerfSample(data []uint32) (PerfSample, error) {
	if len(data) < perfSampleWords {
		return PerfSample{}, errors.Errorf("truncated perf response: %d words", len(data))
	}
	return PerfSample{
		PortID:         data[perfPortIDIdx],
		ClockFreqHz:    data[perfClockFreqIdx],
		WriteBytes:     data[perfWriteBytesIdx],
		ReadBytes:      data[perfReadBytesIdx],
		TotalBytes:     data[perfTotalBytesIdx],
		WriteCmds:      data[perfWriteCmdsIdx],
		ReadCmds:       data[perfReadCmdsIdx],
		TotalCmds:      data[perfTotalCmdsIdx],
		WriteLatCycles: data[perfWriteLatIdx],
		ReadLatCycles:  data[perfReadLatIdx],
	}, nil
}

// PerfResult is a computed measurement over one port pair.
type PerfResult struct {
	// FirstPortID and SecondPortID identify the measured pair.
	FirstPortID  uint32
	SecondPortID uint32
	// Traffic rates in bytes per second.
	WriteTraffic uint32
	ReadTraffic  uint32
	TotalTraffic uint32
	// Average payload lengths in bytes.
	WritePayloadAvg uint32
	ReadPayloadAvg  uint32
	PayloadAvg      uint32
	// Latencies in nanoseconds.
	WriteLatencyNs uint32
	ReadLatencyNs  uint32
}

// computePerfResult converts raw counters into rates and nanosecond
// latencies. A zero clock frequency or interval yields zero rates
// instead of an error.
func computePerfResult(sample PerfSample, timeMS uint32) PerfResult {
	durationSecs := float64(timeMS) / 1000.0
	clockCycleNs := 0.0
	if sample.ClockFreqHz > 0 {
		clockCycleNs = 1e9 / float64(sample.ClockFreqHz)
	}

	rate := func(bytes uint32) uint32 {
		if durationSecs <= 0 {
			return 0
		}
		return uint32(float64(bytes) / durationSecs)
	}
	avg := func(bytes, cmds uint32) uint32 {
		if cmds == 0 {
			return 0
		}
		return bytes / cmds
	}
	latency := func(cycles uint32) uint32 {
		if clockCycleNs <= 0 {
			return 0
		}
		return uint32(float64(cycles) * clockCycleNs)
	}

	first, second := sample.PortID, sample.PortID
	if sample.PortID%portsPerPair == 0 {
		second++
	} else {
		first--
	}

	return PerfResult{
		FirstPortID:     first,
		SecondPortID:    second,
		WriteTraffic:    rate(sample.WriteBytes),
		ReadTraffic:     rate(sample.ReadBytes),
		TotalTraffic:    rate(sample.TotalBytes),
		WritePayloadAvg: avg(sample.WriteBytes, sample.WriteCmds),
		ReadPayloadAvg:  avg(sample.ReadBytes, sample.ReadCmds),
		PayloadAvg:      avg(sample.TotalBytes, sample.TotalCmds),
		WriteLatencyNs:  latency(sample.WriteLatCycles),
		ReadLatencyNs:   latency(sample.ReadLatCycles),
	}
}

func (r PerfResult) String() string {
	return fmt.Sprintf("ports %d/%d: wr %d B/s, rd %d B/s, sum %d B/s, wr-latency %d ns, rd-latency %d ns",
		r.FirstPortID, r.SecondPortID, r.WriteTraffic, r.ReadTraffic, r.TotalTraffic,
		r.WriteLatencyNs, r.ReadLatencyNs)
}

// PortInfo describes one interconnect port of a die.
type PortInfo struct {
	PortID        uint32
	LinkStatus    uint32
	LinkStateInfo uint32
	PortType      uint32
}

// PortTypeString returns "eth" or "ub".
func (p PortInfo) PortTypeString() string {
	if p.PortType == 0 {
		return "eth"
	}
	return "ub"
}

// LinkStatusString returns "down" or "up".
func (p PortInfo) LinkStatusString() string {
	if p.LinkStatus == 0 {
		return "down"
	}
	return "up"
}

// DieInfo is a die's identity and port inventory.
type DieInfo struct {
	ChipID uint32
	DieID  uint32
	Ports  []PortInfo
}

// Byte layout of the die info response: a 24-byte header followed by
// 24-byte port records.
const (
	dieInfoHeaderSize = 24
	portInfoSize      = 24
)

// parseDieInfo decodes the die info query response.
func parseDieInfo(data []byte) (*DieInfo, error) {
	if len(data) < dieInfoHeaderSize {
		return nil, errors.Errorf("truncated die info: %d bytes", len(data))
	}

	portCount := binary.LittleEndian.Uint32(data[0:])
	info := &DieInfo{
		ChipID: binary.LittleEndian.Uint32(data[4:]),
		DieID:  binary.LittleEndian.Uint32(data[8:]),
	}

	if portCount == 0 || portCount > maxPorts {
		return nil, errors.Errorf("invalid port count %d", portCount)
	}
	if len(data) < dieInfoHeaderSize+int(portCount)*portInfoSize {
		return nil, errors.Errorf("truncated die info for %d ports: %d bytes", portCount, len(data))
	}

	offset := dieInfoHeaderSize
	for i := uint32(0); i < portCount; i++ {
		info.Ports = append(info.Ports, PortInfo{
			PortID:        binary.LittleEndian.Uint32(data[offset:]),
			LinkStatus:    binary.LittleEndian.Uint32(data[offset+4:]),
			LinkStateInfo: binary.LittleEndian.Uint32(data[offset+8:]),
			PortType:      binary.LittleEndian.Uint32(data[offset+12:]),
		})
		offset += portInfoSize
	}

	return info, nil
}

// DeviceInfo identifies one firmware-control device node.
type DeviceInfo struct {
	ChipID     uint32
	DieID      uint32
	Path       string
	EntityName string
}

// ValidateMeasureTime checks the measurement interval bounds.
func ValidateMeasureTime(timeMS uint32) error {
	if timeMS < MinMeasureTimeMS || timeMS > MaxMeasureTimeMS {
		return errors.Errorf("measurement time %d ms out of range %d..%d",
			timeMS, MinMeasureTimeMS, MaxMeasureTimeMS)
	}
	return nil
}
