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

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intel/etmem/pkg/fwctl"
)

var bandwidthOpts struct {
	chip   uint32
	die    uint32
	port   uint32
	timeMS uint32
}

var bandwidthCmd = &cobra.Command{
	Use:   "bandwidth",
	Short: "Measure interconnect bandwidth and latency of a port pair",
	Long: `Run one firmware-counter measurement on a port pair of a
memory-expansion device. The counters run for the given interval
before they are read back.

Example:
  etmemctl bandwidth --chip 0 --die 0 --port 2 --time 1000`,
	RunE: runBandwidth,
}

func init() {
	bandwidthCmd.Flags().Uint32Var(&bandwidthOpts.chip, "chip", 0, "chip ID")
	bandwidthCmd.Flags().Uint32Var(&bandwidthOpts.die, "die", 0, "die ID")
	bandwidthCmd.Flags().Uint32Var(&bandwidthOpts.port, "port", 0, "port ID")
	bandwidthCmd.Flags().Uint32Var(&bandwidthOpts.timeMS, "time", 1000, "measurement time in milliseconds")
}

func runBandwidth(cmd *cobra.Command, args []string) error {
	result, err := fwctl.Measure(bandwidthOpts.chip, bandwidthOpts.die,
		bandwidthOpts.port, bandwidthOpts.timeMS)
	if err != nil {
		return err
	}
	fmt.Printf("ports: %d %d\n", result.FirstPortID, result.SecondPortID)
	fmt.Printf("wr_traffic: %d B/s\n", result.WriteTraffic)
	fmt.Printf("rd_traffic: %d B/s\n", result.ReadTraffic)
	fmt.Printf("sum_traffic: %d B/s\n", result.TotalTraffic)
	fmt.Printf("wr_payload_avg: %d B\n", result.WritePayloadAvg)
	fmt.Printf("rd_payload_avg: %d B\n", result.ReadPayloadAvg)
	fmt.Printf("payload_avg: %d B\n", result.PayloadAvg)
	fmt.Printf("wr_latency: %d ns\n", result.WriteLatencyNs)
	fmt.Printf("rd_latency: %d ns\n", result.ReadLatencyNs)
	return nil
}
