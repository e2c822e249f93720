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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPerfSample(t *testing.T) {
	data := make([]uint32, perfQueryWords)
	data[perfPortIDIdx] = 3
	data[perfClockFreqIdx] = 1000000000
	data[perfWriteBytesIdx] = 4096
	data[perfReadBytesIdx] = 8192
	data[perfTotalBytesIdx] = 12288
	data[perfWriteCmdsIdx] = 64
	data[perfReadCmdsIdx] = 128
	data[perfTotalCmdsIdx] = 192
	data[perfWriteLatIdx] = 500
	data[perfReadLatIdx] = 700

	sample, err := newPerfSample(data)
	require.NoError(t, err)
	require.Equal(t, uint32(3), sample.PortID)
	require.Equal(t, uint32(4096), sample.WriteBytes)
	require.Equal(t, uint32(700), sample.ReadLatCycles)

	_, err = newPerfSample(data[:perfSampleWords-1])
	require.Error(t, err, "truncated response must fail")
}

func TestComputePerfResult(t *testing.T) {
	sample := PerfSample{
		PortID:         2,
		ClockFreqHz:    1000000000, // 1 ns per cycle
		WriteBytes:     4000,
		ReadBytes:      8000,
		TotalBytes:     12000,
		WriteCmds:      40,
		ReadCmds:       80,
		TotalCmds:      120,
		WriteLatCycles: 500,
		ReadLatCycles:  700,
	}
	result := computePerfResult(sample, 2000)

	// Even port: the pair is (port, port+1).
	require.Equal(t, uint32(2), result.FirstPortID)
	require.Equal(t, uint32(3), result.SecondPortID)
	// 4000 bytes over 2 s.
	require.Equal(t, uint32(2000), result.WriteTraffic)
	require.Equal(t, uint32(4000), result.ReadTraffic)
	require.Equal(t, uint32(6000), result.TotalTraffic)
	require.Equal(t, uint32(100), result.WritePayloadAvg)
	require.Equal(t, uint32(100), result.ReadPayloadAvg)
	require.Equal(t, uint32(100), result.PayloadAvg)
	// 1 GHz clock: one cycle is one nanosecond.
	require.Equal(t, uint32(500), result.WriteLatencyNs)
	require.Equal(t, uint32(700), result.ReadLatencyNs)
}

func TestComputePerfResultOddPort(t *testing.T) {
	result := computePerfResult(PerfSample{PortID: 5}, 1000)
	require.Equal(t, uint32(4), result.FirstPortID)
	require.Equal(t, uint32(5), result.SecondPortID)
}

func TestComputePerfResultZeroDivisors(t *testing.T) {
	sample := PerfSample{
		PortID:         0,
		ClockFreqHz:    0,
		WriteBytes:     4000,
		WriteLatCycles: 500,
	}
	result := computePerfResult(sample, 1000)
	require.Equal(t, uint32(0), result.WriteLatencyNs, "zero clock must not divide")
	require.Equal(t, uint32(0), result.WritePayloadAvg, "zero commands must not divide")
}

func TestValidateMeasureTime(t *testing.T) {
	require.Error(t, ValidateMeasureTime(0))
	require.NoError(t, ValidateMeasureTime(1))
	require.NoError(t, ValidateMeasureTime(3600000))
	require.Error(t, ValidateMeasureTime(3600001))
}

func encodeDieInfo(chipID, dieID uint32, ports []PortInfo) []byte {
	data := make([]byte, dieInfoHeaderSize+len(ports)*portInfoSize)
	binary.LittleEndian.PutUint32(data[0:], uint32(len(ports)))
	binary.LittleEndian.PutUint32(data[4:], chipID)
	binary.LittleEndian.PutUint32(data[8:], dieID)
	offset := dieInfoHeaderSize
	for _, port := range ports {
		binary.LittleEndian.PutUint32(data[offset:], port.PortID)
		binary.LittleEndian.PutUint32(data[offset+4:], port.LinkStatus)
		binary.LittleEndian.PutUint32(data[offset+8:], port.LinkStateInfo)
		binary.LittleEndian.PutUint32(data[offset+12:], port.PortType)
		offset += portInfoSize
	}
	return data
}

func TestParseDieInfo(t *testing.T) {
	ports := []PortInfo{
		{PortID: 0, LinkStatus: 1, PortType: 1},
		{PortID: 1, LinkStatus: 0, PortType: 0},
	}
	info, err := parseDieInfo(encodeDieInfo(3, 1, ports))
	require.NoError(t, err)
	require.Equal(t, uint32(3), info.ChipID)
	require.Equal(t, uint32(1), info.DieID)
	require.Equal(t, ports, info.Ports)
	require.Equal(t, "ub", info.Ports[0].PortTypeString())
	require.Equal(t, "up", info.Ports[0].LinkStatusString())
	require.Equal(t, "eth", info.Ports[1].PortTypeString())
	require.Equal(t, "down", info.Ports[1].LinkStatusString())
}

func TestParseDieInfoInvalid(t *testing.T) {
	_, err := parseDieInfo(make([]byte, dieInfoHeaderSize-1))
	require.Error(t, err, "short header must fail")

	_, err = parseDieInfo(encodeDieInfo(0, 0, nil))
	require.Error(t, err, "zero port count must fail")

	tooMany := make([]byte, dieInfoHeaderSize)
	binary.LittleEndian.PutUint32(tooMany[0:], maxPorts+1)
	_, err = parseDieInfo(tooMany)
	require.Error(t, err, "port count above maximum must fail")

	truncated := encodeDieInfo(0, 0, []PortInfo{{PortID: 0}})
	_, err = parseDieInfo(truncated[:len(truncated)-1])
	require.Error(t, err, "truncated port array must fail")
}
