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

// fakeHandle responds to firmware RPCs with canned per-command data.
type fakeHandle struct {
	// responses maps a command number to response payload words.
	responses map[uint32][]uint32
	// retval is written into every response header.
	retval int32
	// requests records the decoded command and payload of each RPC.
	requests []fakeRequest
	closed   bool
}

type fakeRequest struct {
	cmd     uint32
	payload []uint32
}

func (h *fakeHandle) Rpc(in, out []byte) error {
	cmd := binary.LittleEndian.Uint32(in[0:])
	dataSize := binary.LittleEndian.Uint32(in[4:])
	payload := make([]uint32, dataSize/4)
	for i := range payload {
		payload[i] = binary.LittleEndian.Uint32(in[rpcInHeaderSize+4*i:])
	}
	h.requests = append(h.requests, fakeRequest{cmd: cmd, payload: payload})

	binary.LittleEndian.PutUint32(out[0:], uint32(h.retval))
	data := h.responses[cmd]
	binary.LittleEndian.PutUint32(out[4:], uint32(4*len(data)))
	for i, word := range data {
		binary.LittleEndian.PutUint32(out[rpcOutHeaderSize+4*i:], word)
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

func perfResponse(sample PerfSample) []uint32 {
	data := make([]uint32, perfQueryWords)
	data[perfPortIDIdx] = sample.PortID
	data[perfClockFreqIdx] = sample.ClockFreqHz
	data[perfWriteBytesIdx] = sample.WriteBytes
	data[perfReadBytesIdx] = sample.ReadBytes
	data[perfTotalBytesIdx] = sample.TotalBytes
	data[perfWriteCmdsIdx] = sample.WriteCmds
	data[perfReadCmdsIdx] = sample.ReadCmds
	data[perfTotalCmdsIdx] = sample.TotalCmds
	data[perfWriteLatIdx] = sample.WriteLatCycles
	data[perfReadLatIdx] = sample.ReadLatCycles
	return data
}

func TestMeasurePort(t *testing.T) {
	handle := &fakeHandle{
		responses: map[uint32][]uint32{
			cmdQueryPerfStats: perfResponse(PerfSample{
				PortID:      4,
				ClockFreqHz: 1000000000,
				WriteBytes:  1000,
				ReadBytes:   2000,
				TotalBytes:  3000,
			}),
		},
	}
	device := &Device{handle: handle}

	result, err := device.MeasurePort(4, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(4), result.FirstPortID)
	require.Equal(t, uint32(5), result.SecondPortID)

	// Config phase first, with port and interval, then the query
	// with the port only.
	require.Len(t, handle.requests, 2)
	require.Equal(t, uint32(cmdConfigPerfStats), handle.requests[0].cmd)
	require.Equal(t, []uint32{4, 1}, handle.requests[0].payload)
	require.Equal(t, uint32(cmdQueryPerfStats), handle.requests[1].cmd)
	require.Equal(t, []uint32{4}, handle.requests[1].payload)
}

func TestMeasurePortInvalidTime(t *testing.T) {
	device := &Device{handle: &fakeHandle{}}
	_, err := device.MeasurePort(0, 0)
	require.Error(t, err)
	_, err = device.MeasurePort(0, MaxMeasureTimeMS+1)
	require.Error(t, err)
}

func TestSendRPCFirmwareError(t *testing.T) {
	handle := &fakeHandle{retval: -5}
	device := &Device{handle: handle}
	_, err := device.sendRPC(cmdQueryPerfStats, []uint32{0}, perfQueryWords)
	require.Error(t, err)
}

func TestQueryDieInfo(t *testing.T) {
	raw := encodeDieInfo(2, 1, []PortInfo{{PortID: 0, LinkStatus: 1, PortType: 1}})
	words := make([]uint32, (len(raw)+3)/4)
	padded := make([]byte, 4*len(words))
	copy(padded, raw)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(padded[4*i:])
	}
	handle := &fakeHandle{
		responses: map[uint32][]uint32{cmdQueryDieInfo: words},
	}
	device := &Device{handle: handle}

	info, err := device.QueryDieInfo()
	require.NoError(t, err)
	require.Equal(t, uint32(2), info.ChipID)
	require.Equal(t, uint32(1), info.DieID)
	require.Len(t, info.Ports, 1)
	require.Equal(t, "up", info.Ports[0].LinkStatusString())
}

func TestDeviceClose(t *testing.T) {
	handle := &fakeHandle{}
	device := &Device{handle: handle}
	require.NoError(t, device.Close())
	require.True(t, handle.closed)
}
