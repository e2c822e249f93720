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

var reclaimOpts struct {
	pid     int
	low     uint32
	high    uint32
	enable  bool
	disable bool
}

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Configure proactive swapcache reclaim for a process",
	Long: `Set the swapcache reclaim watermarks of a process and enable
or disable its kernel reclaim thread. Reclaim starts when swapcache
usage exceeds the high watermark and stops at the low one.

Example:
  etmemctl reclaim --pid 1234 --low 30 --high 70 --enable`,
	RunE: runReclaim,
}

func init() {
	reclaimCmd.Flags().IntVar(&reclaimOpts.pid, "pid", 0, "process to configure")
	reclaimCmd.Flags().Uint32Var(&reclaimOpts.low, "low", 30, "low watermark percent")
	reclaimCmd.Flags().Uint32Var(&reclaimOpts.high, "high", 70, "high watermark percent")
	reclaimCmd.Flags().BoolVar(&reclaimOpts.enable, "enable", false, "enable the reclaim thread")
	reclaimCmd.Flags().BoolVar(&reclaimOpts.disable, "disable", false, "disable the reclaim thread")
	reclaimCmd.MarkFlagRequired("pid")
}

func runReclaim(cmd *cobra.Command, args []string) error {
	if reclaimOpts.enable == reclaimOpts.disable {
		return errors.New("exactly one of --enable and --disable is required")
	}
	if err := etmem.Init(); err != nil {
		return err
	}
	w := etmem.WatermarkConfig{
		LowPercent:  reclaimOpts.low,
		HighPercent: reclaimOpts.high,
	}
	if err := etmem.ConfigureProactiveReclaim(reclaimOpts.pid, w, reclaimOpts.enable); err != nil {
		return err
	}
	state := "disabled"
	if reclaimOpts.enable {
		state = "enabled"
	}
	fmt.Printf("reclaim %s for pid %d, watermarks %d/%d\n",
		state, reclaimOpts.pid, w.LowPercent, w.HighPercent)
	return nil
}
