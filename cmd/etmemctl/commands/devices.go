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

var devicesPorts bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List memory-expansion firmware-control devices",
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesPorts, "ports", false, "query and print the port inventory of each device")
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := fwctl.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no fwctl devices found")
		return nil
	}

	for _, info := range devices {
		fmt.Printf("chip %d die %d: %s (%s)\n", info.ChipID, info.DieID, info.Path, info.EntityName)
		if !devicesPorts {
			continue
		}
		device, err := fwctl.OpenDevice(info.ChipID, info.DieID)
		if err != nil {
			fmt.Printf("  ports: %v\n", err)
			continue
		}
		dieInfo, err := device.QueryDieInfo()
		device.Close()
		if err != nil {
			fmt.Printf("  ports: %v\n", err)
			continue
		}
		for _, port := range dieInfo.Ports {
			fmt.Printf("  port %d: %s, link %s\n",
				port.PortID, port.PortTypeString(), port.LinkStatusString())
		}
	}
	return nil
}
