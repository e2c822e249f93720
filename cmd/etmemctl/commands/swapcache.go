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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intel/etmem/pkg/etmem"
)

var swapcacheOpts struct {
	enable  bool
	disable bool
	status  bool
}

var swapcacheCmd = &cobra.Command{
	Use:   "swapcache",
	Short: "Toggle or query the system-wide kernel swap switch",
	RunE:  runSwapcache,
}

func init() {
	swapcacheCmd.Flags().BoolVar(&swapcacheOpts.enable, "enable", false, "enable kernel swap")
	swapcacheCmd.Flags().BoolVar(&swapcacheOpts.disable, "disable", false, "disable kernel swap")
	swapcacheCmd.Flags().BoolVar(&swapcacheOpts.status, "status", false, "print the current state")
}

func runSwapcache(cmd *cobra.Command, args []string) error {
	set := 0
	for _, flag := range []bool{swapcacheOpts.enable, swapcacheOpts.disable, swapcacheOpts.status} {
		if flag {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of --enable, --disable and --status is required")
	}

	if swapcacheOpts.status {
		enabled, err := etmem.KernelSwapEnabled()
		if err != nil {
			return err
		}
		if enabled {
			fmt.Println("enabled")
		} else {
			fmt.Println("disabled")
		}
		return nil
	}

	return etmem.SetKernelSwapEnabled(swapcacheOpts.enable)
}
